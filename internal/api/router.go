package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flowline/fileauth/internal/api/handler"
	"github.com/flowline/fileauth/internal/api/middleware"
	"github.com/flowline/fileauth/internal/core/policy"
	"github.com/flowline/fileauth/internal/core/ports"
	"github.com/flowline/fileauth/internal/infrastructure/db/redis"
	"github.com/flowline/fileauth/pkg/logger"
)

// NewRouter builds and returns the Echo instance with all routes
// registered. throttle may be nil when no redis backend is configured.
func NewRouter(store ports.UserStore, authService ports.AuthService, throttle *redis.LoginThrottle) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(*logger.Get())

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(authService, throttle)
	userHandler := handler.NewUserHandler(store)
	authMiddleware := middleware.Auth(authService)

	// --- Auth routes ---
	e.POST("/auth/token", authHandler.Login)
	e.GET("/auth/whoami", authHandler.Whoami, authMiddleware)
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)

	// --- User management (admin only) ---
	users := e.Group("/users", authMiddleware, middleware.RequireRole(policy.Admin))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.POST("/reload", userHandler.Reload)
	users.PATCH("/:username", userHandler.Update)
	users.DELETE("/:username", userHandler.Delete)

	// --- Operational endpoints (no auth required) ---
	healthHandler := handler.NewHealthHandler(store)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	return e
}
