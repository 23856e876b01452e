// README: Rider store backed by PostgreSQL with row locking for claim checks.
package rider

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sched/internal/infra"
	"sched/internal/types"
)

var ErrNotFound = errors.New("rider not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Create(ctx context.Context, r *Rider) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO riders (id, status, rating, completed_jobs)
		VALUES ($1, $2, $3, $4)`,
		string(r.ID), string(r.Status), r.Rating, r.CompletedJobs,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Rider, error) {
	return s.get(ctx, s.db, id, false)
}

// GetForUpdate locks the rider row inside the caller's transaction so the
// busy check and the subsequent status write are serialized per rider.
func (s *Store) GetForUpdate(ctx context.Context, db infra.DB, id types.ID) (*Rider, error) {
	return s.get(ctx, db, id, true)
}

func (s *Store) get(ctx context.Context, db infra.DB, id types.ID, lock bool) (*Rider, error) {
	q := `
		SELECT id, status, rating, completed_jobs
		FROM riders
		WHERE id = $1`
	if lock {
		q += ` FOR UPDATE`
	}
	row := db.QueryRow(ctx, q, string(id))

	var r Rider
	err := row.Scan(&r.ID, &r.Status, &r.Rating, &r.CompletedJobs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) SetStatus(ctx context.Context, db infra.DB, id types.ID, status Status) error {
	tag, err := db.Exec(ctx, `
		UPDATE riders SET status = $1 WHERE id = $2`,
		string(status), string(id),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

// SetStatusIfNotBusy writes the status only when the row is not busy, in one
// statement. Zero rows affected means the rider is missing or busy; the
// caller re-reads to tell the two apart.
func (s *Store) SetStatusIfNotBusy(ctx context.Context, db infra.DB, id types.ID, status Status) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE riders SET status = $1 WHERE id = $2 AND status <> 'busy'`,
		string(status), string(id),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) IncrementCompleted(ctx context.Context, db infra.DB, id types.ID) error {
	_, err := db.Exec(ctx, `
		UPDATE riders SET completed_jobs = completed_jobs + 1 WHERE id = $1`,
		string(id),
	)
	return err
}
