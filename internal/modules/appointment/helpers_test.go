// README: Shared DB-backed test harness for the appointment module.
package appointment

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sched/internal/config"
	"sched/internal/events"
	"sched/internal/modules/earnings"
	"sched/internal/modules/rider"
	"sched/internal/types"
)

type testEnv struct {
	pool     *pgxpool.Pool
	appts    *Service
	riders   *rider.Service
	earnings *earnings.Service
	events   *eventCollector
}

// eventCollector records emitted lifecycle events for assertions.
type eventCollector struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *eventCollector) Emit(_ context.Context, e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

func (c *eventCollector) all() []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]events.Event, len(c.events))
	copy(out, c.events)
	return out
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("SCHED_TEST_DSN")
	if dsn == "" {
		t.Skip("SCHED_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	if err := applyMigration(ctx, pool); err != nil {
		t.Fatalf("apply migration: %v", err)
	}
	if _, err := pool.Exec(ctx, "TRUNCATE TABLE appointment_state_events, earning_records, appointments, riders"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}

	collector := &eventCollector{}
	earningsSvc := earnings.NewService(earnings.NewStore(pool), config.EarningsConfig{
		CommissionRate: 0.15,
		ClaimBonus:     types.Money{Amount: 50, Currency: "TWD"},
	})
	riderSvc := rider.NewService(rider.NewStore(pool), nil)
	apptSvc := NewService(pool, NewStore(pool), riderSvc, earningsSvc, collector)

	return &testEnv{
		pool:     pool,
		appts:    apptSvc,
		riders:   riderSvc,
		earnings: earningsSvc,
		events:   collector,
	}
}

func mustIngest(t *testing.T, env *testEnv, storeID types.ID, total int64) *Appointment {
	t.Helper()
	a, err := env.appts.Ingest(context.Background(), IngestCommand{
		CustomerID:    "c1",
		VendorStoreID: storeID,
		ServicePrice:  types.Money{Amount: total, Currency: "TWD"},
		TotalAmount:   types.Money{Amount: total, Currency: "TWD"},
		ScheduledFor:  time.Now().Add(2 * time.Hour),
	})
	if err != nil {
		t.Fatalf("ingest appointment: %v", err)
	}
	return a
}

func mustConfirm(t *testing.T, env *testEnv, id, storeID types.ID) {
	t.Helper()
	if _, err := env.appts.ApplyTransition(context.Background(), TransitionCommand{
		AppointmentID: id,
		Actor:         VendorActor(storeID),
		Target:        StatusConfirmed,
	}); err != nil {
		t.Fatalf("confirm appointment: %v", err)
	}
}

func mustRegisterRider(t *testing.T, env *testEnv, id types.ID) {
	t.Helper()
	if _, err := env.riders.Register(context.Background(), id, 5.0); err != nil {
		t.Fatalf("register rider: %v", err)
	}
}

func mustClaim(t *testing.T, env *testEnv, apptID, riderID types.ID) *ClaimResult {
	t.Helper()
	res, err := env.appts.Claim(context.Background(), ClaimCommand{
		AppointmentID: apptID,
		RiderID:       riderID,
	})
	if err != nil {
		t.Fatalf("claim appointment: %v", err)
	}
	return res
}

func assertStatus(t *testing.T, env *testEnv, id types.ID, want Status) *Appointment {
	t.Helper()
	a, err := env.appts.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if a.Status != want {
		t.Fatalf("expected status %s, got %s", want, a.Status)
	}
	return a
}

func assertRiderStatus(t *testing.T, env *testEnv, id types.ID, want rider.Status) {
	t.Helper()
	r, err := env.riders.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get rider: %v", err)
	}
	if r.Status != want {
		t.Fatalf("expected rider status %s, got %s", want, r.Status)
	}
}

func earningCount(t *testing.T, env *testEnv, apptID types.ID, typ earnings.RecordType) int {
	t.Helper()
	store := earnings.NewStore(env.pool)
	n, err := store.CountByAppointment(context.Background(), apptID, typ)
	if err != nil {
		t.Fatalf("count earnings: %v", err)
	}
	return n
}

func applyMigration(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	path := filepath.Join(root, "migrations", "0001_init.sql")
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	cleaned := stripSQLComments(string(content))
	for _, stmt := range splitSQL(cleaned) {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		stmt := strings.TrimSpace(p)
		if stmt == "" {
			continue
		}
		out = append(out, stmt)
	}
	return out
}
