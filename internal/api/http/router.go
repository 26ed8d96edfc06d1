package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-management-service/internal/api/http/handlers"
	"github.com/spec-kit/user-management-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health *handlers.HealthHandler
	Users  *handlers.UsersHandler
	Auth   *handlers.AuthHandler
	Gate   *auth.RequestGate
}

// RegisterRoutes wires HTTP routes. The request gate guards only the
// validation path; every other route bypasses it.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	users := app.Group("/users")
	users.Post("/", cfg.Users.Register)
	users.Get("/token/check", cfg.Users.CheckToken)
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
	users.Delete("/:id", cfg.Users.Delete)

	authenticate := app.Group("/authenticate")
	authenticate.Post("/login", cfg.Auth.Login)
	authenticate.Post("/membership", cfg.Auth.CheckMembership)
	authenticate.Get("/validate", cfg.Gate.Handle, cfg.Auth.Validate)
}
