// README: Dispatch handlers for the claimable pool and rider claims.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sched/internal/http/middleware"
	"sched/internal/modules/appointment"
	"sched/internal/types"
)

type DispatchHandler struct {
	appointments *appointment.Service
}

func NewDispatchHandler(svc *appointment.Service) *DispatchHandler {
	return &DispatchHandler{appointments: svc}
}

// ListClaimable returns the claimable pool, optionally narrowed to one
// service date (?date=2026-08-31).
func (h *DispatchHandler) ListClaimable(c *gin.Context) {
	var day *time.Time
	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid date")
			return
		}
		day = &d
	}
	list, err := h.appointments.ListClaimable(c.Request.Context(), day)
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, appointmentView(&list[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"appointments": out})
}

type claimReq struct {
	Note string `json:"note"`
}

// Claim lets the calling rider take the appointment. A lost race returns
// 409 with the specific reason; the rider is expected to re-query the pool.
func (h *DispatchHandler) Claim(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing appointment id")
		return
	}
	actor, ok := middleware.CallerActor(c)
	if !ok {
		writeError(c, http.StatusUnauthorized, "missing actor identity")
		return
	}
	if actor.Role != appointment.RoleRider {
		writeError(c, http.StatusForbidden, "only riders can claim")
		return
	}
	var req claimReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	res, err := h.appointments.Claim(c.Request.Context(), appointment.ClaimCommand{
		AppointmentID: types.ID(id),
		RiderID:       actor.ID,
		Note:          req.Note,
	})
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	view := appointmentView(res.Appointment)
	view["bonus"] = res.Bonus.Amount
	writeJSON(c, http.StatusOK, view)
}

// Assignments lists the calling rider's active and recently completed jobs.
func (h *DispatchHandler) Assignments(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing rider id")
		return
	}
	list, err := h.appointments.ListAssignments(c.Request.Context(), types.ID(id))
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	out := make([]gin.H, 0, len(list))
	for i := range list {
		out = append(out, appointmentView(&list[i]))
	}
	writeJSON(c, http.StatusOK, gin.H{"appointments": out})
}
