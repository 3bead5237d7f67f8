package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/areti-alliance/crm-gateway/internal/api/http/handlers"
	"github.com/areti-alliance/crm-gateway/internal/auth"
	"github.com/areti-alliance/crm-gateway/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Drivers        *handlers.DriversHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes. Everything under /api passes through the
// authorization middleware; role floors are applied per route.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/token", cfg.Auth.Exchange)
	authGroup.Post("/refresh", cfg.Auth.Refresh)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/me", auth.RequireAuthenticated(), cfg.Auth.Me)

	accounts := api.Group("/accounts", auth.RequireRole(domain.RoleAdmin))
	accounts.Post("", cfg.Accounts.Create)
	accounts.Patch("/:id/status", cfg.Accounts.SetStatus)

	drivers := api.Group("/drivers")
	drivers.Get("", auth.RequireRole(domain.RoleManager), cfg.Drivers.List)
	drivers.Post("/sync", auth.RequireRole(domain.RoleAdmin), cfg.Drivers.Sync)
}
