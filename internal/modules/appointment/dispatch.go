// README: Dispatch service; a rider atomically claims a confirmed, unassigned appointment.
package appointment

import (
	"context"
	"errors"
	"time"

	"sched/internal/infra"
	"sched/internal/modules/rider"
	"sched/internal/types"
)

type ClaimCommand struct {
	AppointmentID types.ID
	RiderID       types.ID
	// Note carries optional acceptance details (ETA remark etc.) and is
	// stored on the appointment row.
	Note string
}

type ClaimResult struct {
	Appointment *Appointment
	Bonus       types.Money
}

// Claim takes exclusive ownership of a confirmed, unassigned appointment.
// The decision is a single conditional UPDATE, never a read-then-write: under
// N concurrent claims exactly one caller's statement affects the row. The
// bonus insert, the busy flip, and the audit row commit with it or not at all.
func (s *Service) Claim(ctx context.Context, cmd ClaimCommand) (*ClaimResult, error) {
	if cmd.AppointmentID == "" || cmd.RiderID == "" {
		return nil, ErrValidation
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Lock the rider row first: the busy check and the later busy flip
	// must be serialized against this rider's other claims.
	if _, err := s.riders.LockForClaim(ctx, tx, cmd.RiderID); err != nil {
		switch {
		case errors.Is(err, rider.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, rider.ErrBusy):
			return nil, ErrRiderBusy
		default:
			return nil, err
		}
	}

	won, err := s.store.ClaimRow(ctx, tx, cmd.AppointmentID, cmd.RiderID, cmd.Note)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, s.diagnoseLoss(ctx, tx, cmd.AppointmentID)
	}

	bonus, err := s.earnings.PostBonus(ctx, tx, cmd.RiderID, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}
	if err := s.riders.MarkBusy(ctx, tx, cmd.RiderID); err != nil {
		return nil, err
	}
	if err := s.store.AppendEvent(ctx, tx, &StateEvent{
		AppointmentID: cmd.AppointmentID,
		FromStatus:    StatusConfirmed,
		ToStatus:      StatusInProgress,
		ActorRole:     RoleRider,
		ActorID:       cmd.RiderID,
		CreatedAt:     time.Now(),
	}); err != nil {
		return nil, err
	}

	// Read the claimed row back inside the transaction; a committed claim
	// must never surface as an error to the winner.
	a, err := s.store.get(ctx, tx, cmd.AppointmentID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.riders.Mirror(ctx, cmd.RiderID, rider.StatusBusy)
	s.emit(ctx, cmd.AppointmentID, StatusConfirmed, StatusInProgress, &cmd.RiderID)

	return &ClaimResult{Appointment: a, Bonus: bonus}, nil
}

// diagnoseLoss tells a losing claimer why the conditional update matched
// nothing: the appointment is gone, already owned, or simply not confirmed.
func (s *Service) diagnoseLoss(ctx context.Context, tx infra.DB, id types.ID) error {
	a, err := s.store.get(ctx, tx, id)
	if err != nil {
		return err
	}
	if a.RiderID != nil {
		return ErrAlreadyClaimed
	}
	return ErrNotConfirmed
}
