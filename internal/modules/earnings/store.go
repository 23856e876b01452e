// README: Earnings store backed by PostgreSQL (pure inserts, no implicit dedup).
package earnings

import (
	"context"

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

// Insert appends one ledger row. It runs on the caller's querier so that the
// write commits or rolls back with the owning transition.
func (s *Store) Insert(ctx context.Context, db infra.DB, r *Record) error {
	_, err := db.Exec(ctx, `
		INSERT INTO earning_records (rider_id, appointment_id, amount, currency, type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(r.RiderID),
		string(r.AppointmentID),
		r.Amount.Amount,
		r.Amount.Currency,
		string(r.Type),
		r.CreatedAt,
	)
	return err
}

func (s *Store) ListByRider(ctx context.Context, riderID types.ID) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, rider_id, appointment_id, amount, currency, type, created_at
		FROM earning_records
		WHERE rider_id = $1
		ORDER BY created_at DESC, id DESC`, string(riderID),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.RiderID, &r.AppointmentID,
			&r.Amount.Amount, &r.Amount.Currency, &r.Type, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) TotalByRider(ctx context.Context, riderID types.ID) (int64, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM earning_records
		WHERE rider_id = $1`, string(riderID),
	)
	var total int64
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// CountByAppointment reports how many rows of one type exist for an
// appointment. Used by tests to assert the caller-side dedup guard held.
func (s *Store) CountByAppointment(ctx context.Context, appointmentID types.ID, t RecordType) (int, error) {
	row := s.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM earning_records
		WHERE appointment_id = $1 AND type = $2`,
		string(appointmentID), string(t),
	)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
