package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowline/fileauth/internal/api/metrics"
	"github.com/flowline/fileauth/internal/core/policy"
)

// RequireRole enforces a minimum role through the hierarchy: an admin
// passes any check, an editor passes editor and viewer checks, and an
// unknown or missing role fails everything.
func RequireRole(minimum policy.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				metrics.AuthzDenialsTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}
			if !policy.HasMinimumRole(user.Role, minimum) {
				metrics.AuthzDenialsTotal.WithLabelValues("insufficient_role").Inc()
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
