package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ssantosh21/incident-iq/internal/api/http/handlers"
	"github.com/ssantosh21/incident-iq/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Incidents      *handlers.IncidentsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health", cfg.Health.Health)

	app.Post("/register", cfg.Auth.Register)
	app.Post("/login", cfg.Auth.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle)
	protected.Get("/me", cfg.Auth.Me)
	protected.Post("/incident", cfg.Incidents.Report)
	protected.Post("/resolve", cfg.Incidents.Resolve)
	protected.Get("/incidents", cfg.Incidents.List)
	protected.Get("/incidents/:id", cfg.Incidents.Get)
}
