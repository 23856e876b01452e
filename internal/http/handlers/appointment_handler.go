// README: Appointment handlers for ingestion, detail, counts, and transitions.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"sched/internal/http/middleware"
	"sched/internal/modules/appointment"
	"sched/internal/types"
)

type AppointmentHandler struct {
	appointments *appointment.Service
}

func NewAppointmentHandler(svc *appointment.Service) *AppointmentHandler {
	return &AppointmentHandler{appointments: svc}
}

type ingestReq struct {
	CustomerID    string `json:"customer_id"`
	VendorStoreID string `json:"vendor_store_id"`
	ServicePrice  int64  `json:"service_price"`
	TotalAmount   int64  `json:"total_amount"`
	Currency      string `json:"currency"`
	ScheduledFor  string `json:"scheduled_for"`
}

// Ingest receives a fully populated pending appointment from the external
// booking flow.
func (h *AppointmentHandler) Ingest(c *gin.Context) {
	var req ingestReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	scheduledFor, err := time.Parse(time.RFC3339, req.ScheduledFor)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid scheduled_for")
		return
	}
	a, err := h.appointments.Ingest(c.Request.Context(), appointment.IngestCommand{
		CustomerID:    types.ID(req.CustomerID),
		VendorStoreID: types.ID(req.VendorStoreID),
		ServicePrice:  types.Money{Amount: req.ServicePrice, Currency: req.Currency},
		TotalAmount:   types.Money{Amount: req.TotalAmount, Currency: req.Currency},
		ScheduledFor:  scheduledFor,
	})
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, appointmentView(a))
}

func (h *AppointmentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing appointment id")
		return
	}
	a, err := h.appointments.Get(c.Request.Context(), types.ID(id))
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, appointmentView(a))
}

func (h *AppointmentHandler) Counts(c *gin.Context) {
	counts, err := h.appointments.StatusCounts(c.Request.Context())
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"counts": counts})
}

type transitionReq struct {
	Target string `json:"target"`
}

// Transition applies one state-machine edge on behalf of the calling actor.
func (h *AppointmentHandler) Transition(c *gin.Context) {
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
	var req transitionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.appointments.ApplyTransition(c.Request.Context(), appointment.TransitionCommand{
		AppointmentID: types.ID(id),
		Actor:         actor,
		Target:        appointment.Status(req.Target),
	})
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, appointmentView(a))
}

func appointmentView(a *appointment.Appointment) gin.H {
	v := gin.H{
		"appointment_id":  a.ID,
		"customer_id":     a.CustomerID,
		"vendor_store_id": a.VendorStoreID,
		"status":          a.Status,
		"service_price":   a.ServicePrice.Amount,
		"total_amount":    a.TotalAmount.Amount,
		"currency":        a.TotalAmount.Currency,
		"scheduled_for":   a.ScheduledFor,
		"created_at":      a.CreatedAt,
	}
	if a.RiderID != nil {
		v["rider_id"] = *a.RiderID
	}
	if a.ClaimNote != nil {
		v["claim_note"] = *a.ClaimNote
	}
	if a.ConfirmedAt != nil {
		v["confirmed_at"] = *a.ConfirmedAt
	}
	if a.StartedAt != nil {
		v["started_at"] = *a.StartedAt
	}
	if a.CompletedAt != nil {
		v["completed_at"] = *a.CompletedAt
	}
	if a.CancelledAt != nil {
		v["cancelled_at"] = *a.CancelledAt
	}
	return v
}
