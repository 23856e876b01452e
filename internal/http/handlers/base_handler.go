// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"sched/internal/modules/appointment"
	"sched/internal/modules/rider"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeAppointmentError maps the module taxonomy onto HTTP statuses. The 409
// family ("no longer available") is an expected outcome of healthy
// contention; 403 and 400 indicate a client or authorization bug.
func writeAppointmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appointment.ErrValidation):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, appointment.ErrNotFound), errors.Is(err, rider.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, appointment.ErrUnauthorized):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, appointment.ErrInvalidTransition),
		errors.Is(err, appointment.ErrAlreadyClaimed),
		errors.Is(err, appointment.ErrNotConfirmed),
		errors.Is(err, appointment.ErrRiderBusy),
		errors.Is(err, rider.ErrBusy):
		writeError(c, http.StatusConflict, err.Error())
	default:
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
