package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/classhub/subject-service/internal/api/http/handlers"
	"github.com/classhub/subject-service/internal/auth"
	"github.com/classhub/subject-service/internal/domain"
	"github.com/classhub/subject-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Accounts       *handlers.AccountsHandler
	Subjects       *handlers.SubjectsHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginThrottle  fiber.Handler
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Role requirements are declared here as
// plain data next to the route they protect; every protected route runs
// the same pair of middlewares, token verification then the role guard, so
// no handler re-implements the decision. An empty RequireRole() means any
// authenticated caller.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	throttle := cfg.LoginThrottle
	if throttle == nil {
		throttle = func(c *fiber.Ctx) error { return c.Next() }
	}

	authGroup := app.Group("/auth")
	authGroup.Post("/register", throttle, cfg.Auth.Register)
	authGroup.Post("/login", throttle, cfg.Auth.Login)

	session := authGroup.Group("", cfg.AuthMiddleware.Handle, auth.RequireRole())
	session.Post("/logout", cfg.Auth.Logout)
	session.Get("/me", cfg.Auth.Me)
	session.Post("/password/change", cfg.Auth.ChangePassword)

	subjects := app.Group("/subjects", cfg.AuthMiddleware.Handle)
	subjects.Get("", auth.RequireRole(), cfg.Subjects.List)
	subjects.Get("/:id", auth.RequireRole(), cfg.Subjects.Get)
	subjects.Post("", auth.RequireRole(domain.RoleAdmin), cfg.Subjects.Create)
	subjects.Put("/:id", auth.RequireRole(domain.RoleAdmin, domain.RoleTeacher), cfg.Subjects.Update)
	subjects.Delete("/:id", auth.RequireRole(domain.RoleAdmin), cfg.Subjects.Delete)

	accounts := app.Group("/accounts", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	accounts.Post("", cfg.Accounts.Create)
	accounts.Get("", cfg.Accounts.List)
	accounts.Get("/:id", cfg.Accounts.Get)
	accounts.Patch("/:id/role", cfg.Accounts.UpdateRole)
	accounts.Patch("/:id/status", cfg.Accounts.UpdateStatus)
	accounts.Delete("/:id", cfg.Accounts.Delete)
}
