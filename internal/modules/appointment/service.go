// README: Status transition engine; validates actors and applies edge side effects atomically.
package appointment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"sched/internal/events"
	"sched/internal/infra"
	"sched/internal/modules/earnings"
	"sched/internal/modules/rider"
	"sched/internal/types"
)

var (
	ErrNotFound          = errors.New("appointment not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrAlreadyClaimed    = errors.New("appointment already claimed")
	ErrNotConfirmed      = errors.New("appointment not confirmed")
	ErrUnauthorized      = errors.New("actor not allowed to act on this appointment")
	ErrValidation        = errors.New("bad request")
	ErrRiderBusy         = errors.New("rider already has an active assignment")
)

// assignmentWindow bounds how far back ListAssignments surfaces completed jobs.
const assignmentWindow = 24 * time.Hour

type Service struct {
	pool     *pgxpool.Pool
	store    *Store
	riders   *rider.Service
	earnings *earnings.Service
	emitter  events.Emitter
}

func NewService(pool *pgxpool.Pool, store *Store, riders *rider.Service, earningsSvc *earnings.Service, emitter events.Emitter) *Service {
	if emitter == nil {
		emitter = events.NopEmitter{}
	}
	return &Service{pool: pool, store: store, riders: riders, earnings: earningsSvc, emitter: emitter}
}

// IngestCommand is the hand-off from the external booking flow: a fully
// populated appointment that enters this core in pending.
type IngestCommand struct {
	CustomerID    types.ID
	VendorStoreID types.ID
	ServicePrice  types.Money
	TotalAmount   types.Money
	ScheduledFor  time.Time
}

func (s *Service) Ingest(ctx context.Context, cmd IngestCommand) (*Appointment, error) {
	if cmd.CustomerID == "" || cmd.VendorStoreID == "" || cmd.ScheduledFor.IsZero() {
		return nil, ErrValidation
	}
	if cmd.TotalAmount.Amount < 0 || cmd.ServicePrice.Amount < 0 {
		return nil, ErrValidation
	}
	a := &Appointment{
		ID:            newID(),
		CustomerID:    cmd.CustomerID,
		VendorStoreID: cmd.VendorStoreID,
		Status:        StatusPending,
		ServicePrice:  cmd.ServicePrice,
		TotalAmount:   cmd.TotalAmount,
		ScheduledFor:  cmd.ScheduledFor,
		CreatedAt:     time.Now(),
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

type TransitionCommand struct {
	AppointmentID types.ID
	Actor         Actor
	Target        Status
}

// ApplyTransition validates the actor against the per-state allow-list and
// applies the edge with all of its side effects in one transaction. The CAS
// on status+status_version is the serialization point: a concurrent writer
// makes the CAS miss and the whole unit rolls back untouched.
func (s *Service) ApplyTransition(ctx context.Context, cmd TransitionCommand) (*Appointment, error) {
	if cmd.AppointmentID == "" || cmd.Actor.ID == "" {
		return nil, ErrValidation
	}
	if cmd.Actor.Role != RoleVendor && cmd.Actor.Role != RoleRider {
		return nil, ErrValidation
	}
	if !ValidStatus(cmd.Target) {
		return nil, ErrValidation
	}

	a, err := s.store.Get(ctx, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(cmd.Actor, a); err != nil {
		return nil, err
	}
	if !CanTransition(cmd.Actor.Role, a.Status, cmd.Target) {
		return nil, ErrInvalidTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var ok bool
	if cmd.Target == StatusPending {
		ok, err = s.store.ResetToPending(ctx, tx, a.ID, a.Status, a.StatusVersion)
	} else {
		ok, err = s.store.ApplyStatus(ctx, tx, a.ID, a.Status, cmd.Target, a.StatusVersion)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost a write race: the edge we validated no longer exists.
		return nil, ErrInvalidTransition
	}

	freedRider, err := s.applySideEffects(ctx, tx, a, cmd.Target)
	if err != nil {
		return nil, err
	}

	if err := s.store.AppendEvent(ctx, tx, &StateEvent{
		AppointmentID: a.ID,
		FromStatus:    a.Status,
		ToStatus:      cmd.Target,
		ActorRole:     cmd.Actor.Role,
		ActorID:       cmd.Actor.ID,
		CreatedAt:     time.Now(),
	}); err != nil {
		return nil, err
	}

	// Read the result back inside the transaction. Once the commit lands the
	// outcome is final, so the caller must never see an error for a change
	// that went through.
	fresh, err := s.store.get(ctx, tx, a.ID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if freedRider != nil {
		s.riders.Mirror(ctx, *freedRider, rider.StatusAvailable)
	}
	s.emit(ctx, a.ID, a.Status, cmd.Target, a.RiderID)

	return fresh, nil
}

// applySideEffects runs the per-edge mutations that must commit with the
// status change. It returns the rider freed by the edge, if any, so the
// caller can sync the availability mirror after commit.
func (s *Service) applySideEffects(ctx context.Context, tx infra.DB, a *Appointment, target Status) (*types.ID, error) {
	claimed := a.Status == StatusInProgress && a.RiderID != nil

	switch target {
	case StatusCompleted:
		if !claimed {
			// Vendor-fulfilled completion: no rider, no commission.
			return nil, nil
		}
		if _, err := s.earnings.PostCommission(ctx, tx, *a.RiderID, a.ID, a.TotalAmount); err != nil {
			return nil, err
		}
		if err := s.riders.MarkAvailable(ctx, tx, *a.RiderID); err != nil {
			return nil, err
		}
		if err := s.riders.IncrementCompleted(ctx, tx, *a.RiderID); err != nil {
			return nil, err
		}
		return a.RiderID, nil
	case StatusCancelled:
		if !claimed {
			return nil, nil
		}
		// The acceptance bonus posted at claim time stands; only the
		// rider's availability is restored.
		if err := s.riders.MarkAvailable(ctx, tx, *a.RiderID); err != nil {
			return nil, err
		}
		return a.RiderID, nil
	case StatusPending:
		if !claimed {
			return nil, nil
		}
		if err := s.riders.MarkAvailable(ctx, tx, *a.RiderID); err != nil {
			return nil, err
		}
		return a.RiderID, nil
	}
	return nil, nil
}

func authorize(actor Actor, a *Appointment) error {
	switch actor.Role {
	case RoleVendor:
		if actor.ID != a.VendorStoreID {
			return ErrUnauthorized
		}
	case RoleRider:
		if a.RiderID == nil || *a.RiderID != actor.ID {
			return ErrUnauthorized
		}
	default:
		return ErrValidation
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Appointment, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListClaimable(ctx context.Context, day *time.Time) ([]Appointment, error) {
	return s.store.ListClaimable(ctx, day)
}

func (s *Service) ListAssignments(ctx context.Context, riderID types.ID) ([]Appointment, error) {
	return s.store.ListByRider(ctx, riderID, time.Now().Add(-assignmentWindow))
}

func (s *Service) StatusCounts(ctx context.Context) (map[Status]int, error) {
	return s.store.CountByStatus(ctx)
}

func (s *Service) emit(ctx context.Context, id types.ID, from, to Status, riderID *types.ID) {
	err := s.emitter.Emit(ctx, events.Event{
		AppointmentID: id,
		Previous:      string(from),
		New:           string(to),
		RiderID:       riderID,
		At:            time.Now(),
	})
	if err != nil {
		// Event delivery is downstream's concern; a failed emit never
		// fails a committed transition.
		log.Printf("appointment: emit %s %s->%s: %v", id, from, to, err)
	}
}

func newID() types.ID {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return types.ID(hex.EncodeToString(b[:]))
}
