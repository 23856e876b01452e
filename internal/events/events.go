// README: Lifecycle event emitter consumed by the external notification system.
package events

import (
	"context"
	"time"

	"sched/internal/types"
)

// Event describes one committed appointment transition. RiderID is set only
// when a rider is attached to the appointment at emit time.
type Event struct {
	AppointmentID types.ID  `json:"appointment_id"`
	Previous      string    `json:"previous_status"`
	New           string    `json:"new_status"`
	RiderID       *types.ID `json:"rider_id,omitempty"`
	At            time.Time `json:"at"`
}

// Emitter receives one event per committed transition. Delivery, retries,
// and notification formatting are downstream concerns, not ours.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}

// NopEmitter drops events; used when no downstream consumer is wired.
type NopEmitter struct{}

func (NopEmitter) Emit(context.Context, Event) error { return nil }
