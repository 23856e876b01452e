// README: HTTP server; registers routes and delegates to module services.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sched/internal/http/handlers"
	"sched/internal/http/middleware"
	"sched/internal/modules/appointment"
	"sched/internal/modules/earnings"
	"sched/internal/modules/rider"
)

type ServerDeps struct {
	Appointments *appointment.Service
	Riders       *rider.Service
	Earnings     *earnings.Service
}

func NewRouter(deps ServerDeps) http.Handler {
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logging())

	appointmentHandler := handlers.NewAppointmentHandler(deps.Appointments)
	dispatchHandler := handlers.NewDispatchHandler(deps.Appointments)
	riderHandler := handlers.NewRiderHandler(deps.Riders, deps.Earnings)

	api := r.Group("/api")
	api.POST("/appointments", appointmentHandler.Ingest)
	api.GET("/appointments/counts", appointmentHandler.Counts)
	api.GET("/appointments/:id", appointmentHandler.Get)
	api.POST("/appointments/:id/transition", middleware.Actor(), appointmentHandler.Transition)

	api.GET("/dispatch/claimable", dispatchHandler.ListClaimable)
	api.POST("/dispatch/claimable/:id/claim", middleware.Actor(), dispatchHandler.Claim)

	api.POST("/riders", riderHandler.Register)
	api.PUT("/riders/:id/presence", riderHandler.SetPresence)
	api.GET("/riders/:id/assignments", dispatchHandler.Assignments)
	api.GET("/riders/:id/earnings", riderHandler.Earnings)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
