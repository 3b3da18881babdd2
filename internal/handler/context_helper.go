package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/middleware"
	"github.com/noah-isme/sma-timetable-api/internal/models"
)

// actor is the authenticated caller that owns queued solves.
type actor struct {
	id   string
	role models.UserRole
}

// actorFromContext reads the JWT claims stored by the auth middleware. ok is false for anonymous callers.
func actorFromContext(c *gin.Context) (actor, bool) {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return actor{}, false
	}
	claims, isClaims := value.(*models.JWTClaims)
	if !isClaims || claims == nil || claims.UserID == "" {
		return actor{}, false
	}
	return actor{id: claims.UserID, role: claims.Role}, true
}
