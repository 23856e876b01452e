// README: Appointment aggregate, actor variants, and the per-role transition table.
package appointment

import (
	"time"

	"sched/internal/types"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is a status this core exercises. no_show and
// rescheduled exist in the broader domain but never pass through here.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Appointment is a bookable service job. RiderID is set exactly once, by a
// successful claim, and cleared only by a vendor reset to pending.
type Appointment struct {
	ID            types.ID
	CustomerID    types.ID
	VendorStoreID types.ID
	RiderID       *types.ID
	Status        Status
	StatusVersion int
	ServicePrice  types.Money
	TotalAmount   types.Money
	ScheduledFor  time.Time
	ClaimNote     *string
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

type Role string

const (
	RoleVendor Role = "vendor"
	RoleRider  Role = "rider"
)

// Actor identifies who is invoking a transition. A vendor acts for a store,
// a rider for themselves; the engine authorizes against the appointment's
// vendor_store_id or rider_id accordingly. There is no implicit fallback
// identity: callers always construct the actor explicitly.
type Actor struct {
	Role Role
	ID   types.ID
}

func VendorActor(storeID types.ID) Actor { return Actor{Role: RoleVendor, ID: storeID} }
func RiderActor(riderID types.ID) Actor  { return Actor{Role: RoleRider, ID: riderID} }

// AllowedTransitions is the per-role edge allow-list. The vendor reset
// (any state → pending) is handled in CanTransition rather than listed,
// and in_progress is entered only through Claim, never through this table.
var AllowedTransitions = map[Role]map[Status][]Status{
	RoleVendor: {
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusCancelled, StatusCompleted},
	},
	RoleRider: {
		StatusInProgress: {StatusCompleted, StatusCancelled},
	},
}

func CanTransition(role Role, from, to Status) bool {
	if role == RoleVendor && to == StatusPending {
		return true
	}
	next, ok := AllowedTransitions[role][from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// StateEvent is one row of the append-only transition audit trail.
type StateEvent struct {
	ID            int64
	AppointmentID types.ID
	FromStatus    Status
	ToStatus      Status
	ActorRole     Role
	ActorID       types.ID
	CreatedAt     time.Time
}
