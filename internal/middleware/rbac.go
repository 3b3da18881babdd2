package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable-api/internal/models"
	appErrors "github.com/noah-isme/sma-timetable-api/pkg/errors"
	"github.com/noah-isme/sma-timetable-api/pkg/response"
)

var (
	// timetableEditors may persist, publish and delete timetable versions.
	timetableEditors = []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin}
	// solveRequesters may queue background solves.
	solveRequesters = []models.UserRole{models.RoleAdmin, models.RoleSuperAdmin, models.RoleTeacher}
)

// RequireRoles aborts with 401 when no claims are present and 403 when the caller's role is not
// listed. It must run after JWT or OptionalJWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		value, exists := c.Get(ContextUserKey)
		claims, ok := value.(*models.JWTClaims)
		if !exists || !ok || claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(claims.Role)+" cannot perform this timetable operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// TimetableEditors guards save, publish and delete.
func TimetableEditors() gin.HandlerFunc {
	return RequireRoles(timetableEditors...)
}

// SolveRequesters guards the background solve queue.
func SolveRequesters() gin.HandlerFunc {
	return RequireRoles(solveRequesters...)
}
