// README: Rider handlers for registration, presence, and earnings.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sched/internal/modules/earnings"
	"sched/internal/modules/rider"
	"sched/internal/types"
)

type RiderHandler struct {
	riders   *rider.Service
	earnings *earnings.Service
}

func NewRiderHandler(riders *rider.Service, earningsSvc *earnings.Service) *RiderHandler {
	return &RiderHandler{riders: riders, earnings: earningsSvc}
}

type registerRiderReq struct {
	RiderID string  `json:"rider_id"`
	Rating  float64 `json:"rating"`
}

func (h *RiderHandler) Register(c *gin.Context) {
	var req registerRiderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.RiderID == "" {
		writeError(c, http.StatusBadRequest, "missing rider_id")
		return
	}
	r, err := h.riders.Register(c.Request.Context(), types.ID(req.RiderID), req.Rating)
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, riderView(r))
}

type presenceReq struct {
	Online *bool `json:"online"`
}

// SetPresence toggles the rider between offline and available. Busy riders
// are rejected: the active assignment owns their status.
func (h *RiderHandler) SetPresence(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing rider id")
		return
	}
	var req presenceReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Online == nil {
		writeError(c, http.StatusBadRequest, "missing online flag")
		return
	}
	r, err := h.riders.SetPresence(c.Request.Context(), types.ID(id), *req.Online)
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, riderView(r))
}

func (h *RiderHandler) Earnings(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		writeError(c, http.StatusBadRequest, "missing rider id")
		return
	}
	riderID := types.ID(id)
	records, err := h.earnings.ListByRider(c.Request.Context(), riderID)
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	total, err := h.earnings.TotalByRider(c.Request.Context(), riderID)
	if err != nil {
		writeAppointmentError(c, err)
		return
	}
	out := make([]gin.H, 0, len(records))
	for _, rec := range records {
		out = append(out, gin.H{
			"id":             rec.ID,
			"appointment_id": rec.AppointmentID,
			"amount":         rec.Amount.Amount,
			"currency":       rec.Amount.Currency,
			"type":           rec.Type,
			"created_at":     rec.CreatedAt,
		})
	}
	writeJSON(c, http.StatusOK, gin.H{"records": out, "total": total})
}

func riderView(r *rider.Rider) gin.H {
	return gin.H{
		"rider_id":       r.ID,
		"status":         r.Status,
		"rating":         r.Rating,
		"completed_jobs": r.CompletedJobs,
	}
}
