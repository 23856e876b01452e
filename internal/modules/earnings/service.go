// README: Earnings ledger service; posts bonus and commission records.
package earnings

import (
	"context"
	"math"
	"time"

	"sched/internal/config"
	"sched/internal/infra"
	"sched/internal/types"
)

// Service posts ledger rows. The underlying writes are pure inserts: the
// at-most-once guarantees per (appointment, type) come from the callers,
// which only invoke these methods on the single successful claim or
// in_progress completion.
type Service struct {
	store *Store
	cfg   config.EarningsConfig
}

func NewService(store *Store, cfg config.EarningsConfig) *Service {
	return &Service{store: store, cfg: cfg}
}

// PostBonus appends the flat acceptance bonus for a successful claim.
func (s *Service) PostBonus(ctx context.Context, db infra.DB, riderID, appointmentID types.ID) (types.Money, error) {
	amount := s.cfg.ClaimBonus
	err := s.store.Insert(ctx, db, &Record{
		RiderID:       riderID,
		AppointmentID: appointmentID,
		Amount:        amount,
		Type:          TypeBonus,
		CreatedAt:     time.Now(),
	})
	return amount, err
}

// PostCommission appends the completion commission computed from the
// appointment total and the configured rate.
func (s *Service) PostCommission(ctx context.Context, db infra.DB, riderID, appointmentID types.ID, total types.Money) (types.Money, error) {
	amount := types.Money{
		Amount:   CommissionAmount(total.Amount, s.cfg.CommissionRate),
		Currency: total.Currency,
	}
	err := s.store.Insert(ctx, db, &Record{
		RiderID:       riderID,
		AppointmentID: appointmentID,
		Amount:        amount,
		Type:          TypeCommission,
		CreatedAt:     time.Now(),
	})
	return amount, err
}

func (s *Service) ListByRider(ctx context.Context, riderID types.ID) ([]Record, error) {
	return s.store.ListByRider(ctx, riderID)
}

func (s *Service) TotalByRider(ctx context.Context, riderID types.ID) (int64, error) {
	return s.store.TotalByRider(ctx, riderID)
}

// CommissionAmount rounds half away from zero in minor units.
func CommissionAmount(total int64, rate float64) int64 {
	return int64(math.Round(float64(total) * rate))
}
