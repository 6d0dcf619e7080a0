package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowline/fileauth/internal/api/metrics"
	apimiddleware "github.com/flowline/fileauth/internal/api/middleware"
	"github.com/flowline/fileauth/internal/core/ports"
	"github.com/flowline/fileauth/internal/infrastructure/db/redis"
	"github.com/flowline/fileauth/pkg/logger"
)

type AuthHandler struct {
	authService ports.AuthService
	throttle    *redis.LoginThrottle // nil when no redis is configured
}

func NewAuthHandler(authService ports.AuthService, throttle *redis.LoginThrottle) *AuthHandler {
	return &AuthHandler{authService: authService, throttle: throttle}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login authenticates a user and returns a bearer token.
//
// @Summary      Issue a session token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  tokenResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/token [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	if h.throttle != nil {
		blocked, err := h.throttle.Blocked(ctx, req.Username)
		if err != nil {
			// A broken throttle backend must not take logins down
			// with it; log and continue without damping.
			logger.Get().Error().Err(err).Msg("login throttle unavailable")
		} else if blocked {
			metrics.LoginAttemptsTotal.WithLabelValues("blocked").Inc()
			logger.Audit().Str("username", req.Username).Str("ip", c.RealIP()).Msg("login blocked by throttle")
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many failed attempts")
		}
	}

	token, user, err := h.authService.Login(ctx, req.Username, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		logger.Audit().Str("username", req.Username).Str("ip", c.RealIP()).Msg("login failed")
		if h.throttle != nil {
			if terr := h.throttle.RecordFailure(ctx, req.Username); terr != nil {
				logger.Get().Error().Err(terr).Msg("failed to record login failure")
			}
		}
		return err
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	logger.Audit().Str("username", user.Username).Str("ip", c.RealIP()).Msg("login succeeded")
	if h.throttle != nil {
		if terr := h.throttle.Reset(ctx, req.Username); terr != nil {
			logger.Get().Error().Err(terr).Msg("failed to reset login throttle")
		}
	}

	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.authService.TokenTTL().Seconds()),
	})
}

// Whoami returns the claim set for the authenticated caller.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Success      200  {object}  domain.Claims
// @Failure      401  {object}  map[string]string
// @Router       /auth/whoami [get]
func (h *AuthHandler) Whoami(c echo.Context) error {
	user := apimiddleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return c.JSON(http.StatusOK, h.authService.SerializeUser(user))
}

// Logout records the end of a session. Bearer tokens are stateless, so
// this is an audit event; clients discard the token.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	username := ""
	if user := apimiddleware.CurrentUser(c); user != nil {
		username = user.Username
	}
	logger.Audit().Str("username", username).Str("ip", c.RealIP()).Msg("logout")
	return c.NoContent(http.StatusNoContent)
}
