// README: Concurrency tests for the claim race (run with -race).
package appointment

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"sched/internal/modules/earnings"
	"sched/internal/modules/rider"
	"sched/internal/types"
)

func TestConcurrentClaimSingleWinner(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a := mustIngest(t, env, "store1", 1000)
	mustConfirm(t, env, a.ID, "store1")

	const attempts = 8
	riderIDs := make([]types.ID, attempts)
	for i := range riderIDs {
		riderIDs[i] = types.ID(fmt.Sprintf("r%d", i))
		mustRegisterRider(t, env, riderIDs[i])
	}

	errs := make(chan error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup

	for _, id := range riderIDs {
		wg.Add(1)
		go func(rid types.ID) {
			defer wg.Done()
			<-start
			_, err := env.appts.Claim(ctx, ClaimCommand{AppointmentID: a.ID, RiderID: rid})
			errs <- err
		}(id)
	}

	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrAlreadyClaimed {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful claim, got %d", success)
	}

	got := assertStatus(t, env, a.ID, StatusInProgress)
	if got.RiderID == nil || *got.RiderID == "" {
		t.Fatal("expected rider_id to be set")
	}
	if got.StartedAt == nil {
		t.Fatal("expected started_at to be set")
	}
	if n := earningCount(t, env, a.ID, earnings.TypeBonus); n != 1 {
		t.Fatalf("expected exactly 1 bonus record, got %d", n)
	}

	// The bonus belongs to the winner and the winner alone is busy.
	winner := *got.RiderID
	records, err := env.earnings.ListByRider(ctx, winner)
	if err != nil {
		t.Fatalf("list winner earnings: %v", err)
	}
	if len(records) != 1 || records[0].Type != earnings.TypeBonus {
		t.Fatalf("expected the winner to hold the single bonus, got %d records", len(records))
	}
	for _, id := range riderIDs {
		want := rider.StatusOffline
		if id == winner {
			want = rider.StatusBusy
		}
		assertRiderStatus(t, env, id, want)
	}
}

func TestConcurrentClaimVsVendorCancel(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a := mustIngest(t, env, "store1", 1000)
	mustConfirm(t, env, a.ID, "store1")
	mustRegisterRider(t, env, "r1")

	var wg sync.WaitGroup
	var claimErr, cancelErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		_, claimErr = env.appts.Claim(ctx, ClaimCommand{AppointmentID: a.ID, RiderID: "r1"})
	}()
	go func() {
		defer wg.Done()
		_, cancelErr = env.appts.ApplyTransition(ctx, TransitionCommand{
			AppointmentID: a.ID,
			Actor:         VendorActor("store1"),
			Target:        StatusCancelled,
		})
	}()
	wg.Wait()

	if claimErr != nil && claimErr != ErrNotConfirmed && claimErr != ErrAlreadyClaimed {
		t.Fatalf("unexpected claim error: %v", claimErr)
	}
	if cancelErr != nil && cancelErr != ErrInvalidTransition {
		t.Fatalf("unexpected cancel error: %v", cancelErr)
	}

	a2, err := env.appts.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	switch {
	case claimErr == nil && cancelErr != nil:
		if a2.Status != StatusInProgress {
			t.Fatalf("claim won but status is %s", a2.Status)
		}
		if n := earningCount(t, env, a.ID, earnings.TypeBonus); n != 1 {
			t.Fatalf("expected 1 bonus, got %d", n)
		}
		assertRiderStatus(t, env, "r1", rider.StatusBusy)
	case cancelErr == nil && claimErr != nil:
		if a2.Status != StatusCancelled {
			t.Fatalf("cancel won but status is %s", a2.Status)
		}
		if n := earningCount(t, env, a.ID, earnings.TypeBonus); n != 0 {
			t.Fatalf("expected no bonus, got %d", n)
		}
		assertRiderStatus(t, env, "r1", rider.StatusOffline)
	default:
		t.Fatalf("expected exactly one winner: claim=%v cancel=%v", claimErr, cancelErr)
	}
}

func TestBusyRiderCannotClaimAgain(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	first := mustIngest(t, env, "store1", 1000)
	second := mustIngest(t, env, "store1", 1000)
	mustConfirm(t, env, first.ID, "store1")
	mustConfirm(t, env, second.ID, "store1")
	mustRegisterRider(t, env, "r1")

	mustClaim(t, env, first.ID, "r1")

	_, err := env.appts.Claim(ctx, ClaimCommand{AppointmentID: second.ID, RiderID: "r1"})
	if err != ErrRiderBusy {
		t.Fatalf("expected ErrRiderBusy, got %v", err)
	}
	assertStatus(t, env, second.ID, StatusConfirmed)
	if n := earningCount(t, env, second.ID, earnings.TypeBonus); n != 0 {
		t.Fatalf("expected no bonus on the blocked claim, got %d", n)
	}
}

func TestClaimThenImmediateComplete(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a := mustIngest(t, env, "store1", 1000)
	mustConfirm(t, env, a.ID, "store1")
	mustRegisterRider(t, env, "r9")

	res := mustClaim(t, env, a.ID, "r9")
	if res.Appointment.Status != StatusInProgress {
		t.Fatalf("claim should land in in_progress, got %s", res.Appointment.Status)
	}
	if res.Bonus.Amount != 50 {
		t.Fatalf("expected configured bonus 50, got %d", res.Bonus.Amount)
	}

	if _, err := env.appts.ApplyTransition(ctx, TransitionCommand{
		AppointmentID: a.ID,
		Actor:         RiderActor("r9"),
		Target:        StatusCompleted,
	}); err != nil {
		t.Fatalf("complete: %v", err)
	}

	if n := earningCount(t, env, a.ID, earnings.TypeBonus); n != 1 {
		t.Fatalf("expected 1 bonus, got %d", n)
	}
	if n := earningCount(t, env, a.ID, earnings.TypeCommission); n != 1 {
		t.Fatalf("expected 1 commission, got %d", n)
	}
	assertRiderStatus(t, env, "r9", rider.StatusAvailable)
}

func TestConcurrentCompleteOnlyOnce(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	a := mustIngest(t, env, "store1", 1000)
	mustConfirm(t, env, a.ID, "store1")
	mustRegisterRider(t, env, "r1")
	mustClaim(t, env, a.ID, "r1")

	const attempts = 4
	errs := make(chan error, attempts)
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.appts.ApplyTransition(ctx, TransitionCommand{
				AppointmentID: a.ID,
				Actor:         RiderActor("r1"),
				Target:        StatusCompleted,
			})
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if err != ErrInvalidTransition {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful complete, got %d", success)
	}
	if n := earningCount(t, env, a.ID, earnings.TypeCommission); n != 1 {
		t.Fatalf("expected exactly 1 commission record, got %d", n)
	}
}
