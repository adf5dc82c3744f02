package middleware

import (
	"net/http"

	"talentdesk/internal/common"

	"github.com/labstack/echo/v4"
)

// RequireRole admits actors holding one of roles. It must run after JWT.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, common.CreateErrorResponse("UNAUTHORIZED", "authentication required", nil))
			}
			if !allowed[actor.Role] {
				return c.JSON(http.StatusForbidden, common.CreateErrorResponse("FORBIDDEN", "insufficient role", nil))
			}
			return next(c)
		}
	}
}

// RequireStaff admits the tenant's hiring team and platform operators.
func RequireStaff() echo.MiddlewareFunc {
	return RequireRole(common.RoleSuperAdmin, common.RoleAdmin, common.RoleRecruiter, common.RoleEmployee)
}
