// README: Rider availability tracker; busy/available flips and the Redis mirror.
package rider

import (
	"context"
	"errors"
	"log"

	"github.com/redis/go-redis/v9"

	"sched/internal/infra"
	"sched/internal/types"
)

const availableSetKey = "riders:available"

var ErrBusy = errors.New("rider is busy")

// Service mutates the coarse rider status. MarkBusy and MarkAvailable are
// invoked only by the dispatch and transition flows inside their owning
// transaction; the tracker carries no state machine of its own beyond the
// three-value field.
type Service struct {
	store *Store
	redis *redis.Client
}

// NewService builds the tracker. redis may be nil; the availability mirror
// is then skipped entirely.
func NewService(store *Store, redis *redis.Client) *Service {
	return &Service{store: store, redis: redis}
}

func (s *Service) Register(ctx context.Context, id types.ID, rating float64) (*Rider, error) {
	if id == "" {
		return nil, errors.New("missing rider id")
	}
	r := &Rider{ID: id, Status: StatusOffline, Rating: rating}
	if err := s.store.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Rider, error) {
	return s.store.Get(ctx, id)
}

// LockForClaim loads the rider row under FOR UPDATE and rejects a rider
// that is already busy, closing the double-claim gap at the precondition.
func (s *Service) LockForClaim(ctx context.Context, db infra.DB, id types.ID) (*Rider, error) {
	r, err := s.store.GetForUpdate(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusBusy {
		return nil, ErrBusy
	}
	return r, nil
}

func (s *Service) MarkBusy(ctx context.Context, db infra.DB, id types.ID) error {
	return s.store.SetStatus(ctx, db, id, StatusBusy)
}

func (s *Service) MarkAvailable(ctx context.Context, db infra.DB, id types.ID) error {
	return s.store.SetStatus(ctx, db, id, StatusAvailable)
}

func (s *Service) IncrementCompleted(ctx context.Context, db infra.DB, id types.ID) error {
	return s.store.IncrementCompleted(ctx, db, id)
}

// SetPresence toggles a rider between offline and available. The write is a
// single guarded statement: a claim flipping the row to busy concurrently
// makes the update match nothing, so the active assignment's busy status is
// never overwritten.
func (s *Service) SetPresence(ctx context.Context, id types.ID, online bool) (*Rider, error) {
	next := StatusOffline
	if online {
		next = StatusAvailable
	}
	ok, err := s.store.SetStatusIfNotBusy(ctx, s.storePool(), id, next)
	if err != nil {
		return nil, err
	}
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrBusy
	}
	s.Mirror(ctx, id, next)
	return r, nil
}

// Mirror syncs the riders:available Redis set after a commit. Best effort:
// the Postgres row is authoritative, so a failed mirror write only degrades
// the cheap availability read, and is logged rather than propagated.
func (s *Service) Mirror(ctx context.Context, id types.ID, status Status) {
	if s.redis == nil {
		return
	}
	var err error
	if status == StatusAvailable {
		err = s.redis.SAdd(ctx, availableSetKey, string(id)).Err()
	} else {
		err = s.redis.SRem(ctx, availableSetKey, string(id)).Err()
	}
	if err != nil {
		log.Printf("rider: mirror %s=%s: %v", id, status, err)
	}
}

func (s *Service) storePool() infra.DB {
	return s.store.db
}
