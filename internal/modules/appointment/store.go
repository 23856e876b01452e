// README: Appointment store backed by PostgreSQL; CAS updates are the serialization point.
package appointment

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sched/internal/infra"
	"sched/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const appointmentColumns = `
	id, customer_id, vendor_store_id, rider_id, status, status_version,
	service_price, total_amount, currency, scheduled_for, claim_note,
	created_at, confirmed_at, started_at, completed_at, cancelled_at`

func (s *Store) Create(ctx context.Context, a *Appointment) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO appointments (
			id, customer_id, vendor_store_id, rider_id, status, status_version,
			service_price, total_amount, currency, scheduled_for, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(a.ID),
		string(a.CustomerID),
		string(a.VendorStoreID),
		toStringPtr(a.RiderID),
		string(a.Status),
		a.StatusVersion,
		a.ServicePrice.Amount,
		a.TotalAmount.Amount,
		a.TotalAmount.Currency,
		a.ScheduledFor,
		a.CreatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Appointment, error) {
	return s.get(ctx, s.db, id)
}

func (s *Store) get(ctx context.Context, db infra.DB, id types.ID) (*Appointment, error) {
	row := db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1`, string(id),
	)
	return scanAppointment(row)
}

// ApplyStatus performs the compare-and-swap transition. The timestamp column
// matching the target status is stamped in the same statement; zero rows
// affected means another writer got there first.
func (s *Store) ApplyStatus(ctx context.Context, db infra.DB, id types.ID, from, to Status, version int) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE appointments
		SET status = $1,
			status_version = status_version + 1,
			confirmed_at = CASE WHEN $1 = 'confirmed' THEN NOW() ELSE confirmed_at END,
			completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
			cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END
		WHERE id = $2 AND status = $3 AND status_version = $4`,
		string(to),
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ResetToPending clears every transition timestamp and the claim state so
// the appointment can be re-confirmed and re-claimed from scratch.
func (s *Store) ResetToPending(ctx context.Context, db infra.DB, id types.ID, from Status, version int) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE appointments
		SET status = 'pending',
			status_version = status_version + 1,
			rider_id = NULL,
			claim_note = NULL,
			confirmed_at = NULL,
			started_at = NULL,
			completed_at = NULL,
			cancelled_at = NULL
		WHERE id = $1 AND status = $2 AND status_version = $3`,
		string(id),
		string(from),
		version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimRow is the single conditional statement that decides the claim race:
// it succeeds for exactly one caller per confirmed, unassigned appointment.
func (s *Store) ClaimRow(ctx context.Context, db infra.DB, id, riderID types.ID, note string) (bool, error) {
	var notePtr *string
	if note != "" {
		notePtr = &note
	}
	tag, err := db.Exec(ctx, `
		UPDATE appointments
		SET status = 'in_progress',
			status_version = status_version + 1,
			rider_id = $1,
			claim_note = $2,
			started_at = NOW()
		WHERE id = $3 AND status = 'confirmed' AND rider_id IS NULL`,
		string(riderID),
		notePtr,
		string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListClaimable returns the claimable pool: confirmed, unassigned, optionally
// narrowed to one service date.
func (s *Store) ListClaimable(ctx context.Context, day *time.Time) ([]Appointment, error) {
	q := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'confirmed' AND rider_id IS NULL`
	args := []any{}
	if day != nil {
		q += ` AND scheduled_for::date = $1::date`
		args = append(args, *day)
	}
	q += ` ORDER BY scheduled_for ASC`
	return s.list(ctx, q, args...)
}

// ListByRider surfaces a rider's own active and recently completed
// assignments within the recency window.
func (s *Store) ListByRider(ctx context.Context, riderID types.ID, since time.Time) ([]Appointment, error) {
	return s.list(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE rider_id = $1
		  AND status IN ('in_progress', 'completed')
		  AND COALESCE(started_at, created_at) >= $2
		ORDER BY started_at DESC`,
		string(riderID), since,
	)
}

func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.Query(ctx, `
		SELECT status, COUNT(*) FROM appointments GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var st string
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		counts[Status(st)] = n
	}
	return counts, rows.Err()
}

func (s *Store) AppendEvent(ctx context.Context, db infra.DB, e *StateEvent) error {
	_, err := db.Exec(ctx, `
		INSERT INTO appointment_state_events (
			appointment_id, from_status, to_status, actor_role, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.AppointmentID),
		string(e.FromStatus),
		string(e.ToStatus),
		string(e.ActorRole),
		string(e.ActorID),
		e.CreatedAt,
	)
	return err
}

func (s *Store) list(ctx context.Context, q string, args ...any) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var riderID, claimNote sql.NullString
	var confirmedAt, startedAt, completedAt, cancelledAt sql.NullTime
	var currency string

	err := row.Scan(
		&a.ID, &a.CustomerID, &a.VendorStoreID, &riderID, &a.Status, &a.StatusVersion,
		&a.ServicePrice.Amount, &a.TotalAmount.Amount, &currency, &a.ScheduledFor, &claimNote,
		&a.CreatedAt, &confirmedAt, &startedAt, &completedAt, &cancelledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	a.ServicePrice.Currency = currency
	a.TotalAmount.Currency = currency
	if riderID.Valid {
		r := types.ID(riderID.String)
		a.RiderID = &r
	}
	if claimNote.Valid {
		a.ClaimNote = &claimNote.String
	}
	a.ConfirmedAt = toTimePtr(confirmedAt)
	a.StartedAt = toTimePtr(startedAt)
	a.CompletedAt = toTimePtr(completedAt)
	a.CancelledAt = toTimePtr(cancelledAt)
	return &a, nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func toTimePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
