// README: Rider aggregate and availability status definitions.
package rider

import "sched/internal/types"

type Status string

const (
	StatusOffline   Status = "offline"
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
)

// Rider is the service agent that claims appointments. Status is mutated
// only by the dispatch/transition flows (busy/available) and by the rider's
// own presence toggle (offline/available).
type Rider struct {
	ID            types.ID
	Status        Status
	Rating        float64
	CompletedJobs int
}
