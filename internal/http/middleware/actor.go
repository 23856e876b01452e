// README: Actor middleware; reads the caller-injected identity headers.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sched/internal/modules/appointment"
	"sched/internal/types"
)

const (
	headerRole = "X-Actor-Role"
	headerID   = "X-Actor-ID"

	ctxActorRole = "actor_role"
	ctxActorID   = "actor_id"
)

// Actor extracts the caller-supplied identity. Authentication itself happens
// upstream of this core; by the time a request arrives the gateway has
// resolved who is calling, and it injects the identity explicitly. Requests
// without both headers are rejected before any handler runs.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetHeader(headerRole)
		id := c.GetHeader(headerID)
		if role == "" || id == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing actor identity"})
			return
		}
		if role != string(appointment.RoleVendor) && role != string(appointment.RoleRider) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown actor role"})
			return
		}
		c.Set(ctxActorRole, role)
		c.Set(ctxActorID, id)
		c.Next()
	}
}

// CallerActor returns the actor attached by the Actor middleware.
func CallerActor(c *gin.Context) (appointment.Actor, bool) {
	role := c.GetString(ctxActorRole)
	id := c.GetString(ctxActorID)
	if role == "" || id == "" {
		return appointment.Actor{}, false
	}
	return appointment.Actor{Role: appointment.Role(role), ID: types.ID(id)}, true
}
