// README: Earning record definitions for the append-only rider ledger.
package earnings

import (
	"time"

	"sched/internal/types"
)

type RecordType string

const (
	TypeBonus      RecordType = "bonus"
	TypeCommission RecordType = "commission"
)

// Record is one ledger row. Rows are inserted as side effects of claim and
// completion and are never updated or deleted afterward.
type Record struct {
	ID            int64
	RiderID       types.ID
	AppointmentID types.ID
	Amount        types.Money
	Type          RecordType
	CreatedAt     time.Time
}
