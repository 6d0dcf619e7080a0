package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/flowline/fileauth/internal/api/metrics"
	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/ports"
)

// userContextKey is where the resolved user lands in the echo context.
const userContextKey = "auth_user"

// Auth validates the bearer token and re-resolves its subject against
// the live user store before injecting the user into the context. The
// role embedded in the token is never used for decisions: a token
// issued before a demotion or deactivation stops granting the old
// access as soon as the store says so.
func Auth(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				metrics.AuthzDenialsTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				metrics.AuthzDenialsTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims, err := auth.ParseToken(parts[1])
			if err != nil {
				metrics.AuthzDenialsTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			user := auth.ResolveClaims(claims)
			if user == nil {
				metrics.AuthzDenialsTotal.WithLabelValues("unauthenticated").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// CurrentUser returns the user injected by Auth, or nil when the
// middleware did not run.
func CurrentUser(c echo.Context) *domain.User {
	user, _ := c.Get(userContextKey).(*domain.User)
	return user
}
