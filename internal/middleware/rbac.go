package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/neurons-lms/lms-api/internal/models"
	appErrors "github.com/neurons-lms/lms-api/pkg/errors"
	"github.com/neurons-lms/lms-api/pkg/response"
)

// RequireRoles enforces role-based access control for routes. When the
// admin role is among the allowed roles, a superuser passes regardless of
// their stored role.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	adminAllowed := false
	for _, r := range roles {
		allowed[r] = struct{}{}
		if r == models.RoleAdmin {
			adminAllowed = true
		}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}
		if adminAllowed && claims.IsAdmin() {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireAdmin restricts a route to administrators.
func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

// RequireStaff restricts a route to administrators and instructors.
func RequireStaff() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin, models.RoleInstructor)
}
