package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/adoption-service/internal/api/http/handlers"
	"github.com/spec-kit/adoption-service/internal/auth"
	"github.com/spec-kit/adoption-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Auth              *handlers.AuthHandler
	Pets              *handlers.PetsHandler
	Adoptions         *handlers.AdoptionsHandler
	Admin             *handlers.AdminHandler
	AuthMiddleware    *auth.AuthMiddleware
	Metrics           *observability.Metrics
	AuthRatePerMinute int
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	credentials := authRateLimiter(cfg.AuthRatePerMinute)
	authGroup.Post("/register", credentials, cfg.Auth.Register)
	authGroup.Post("/login", credentials, cfg.Auth.Login)
	authGroup.Get("/me", cfg.AuthMiddleware.Handle, cfg.Auth.Me)

	pets := app.Group("/pets")
	pets.Get("/", cfg.Pets.List)
	pets.Get("/breeds", cfg.Pets.Breeds)
	pets.Get("/:id", cfg.Pets.Get)

	users := app.Group("/users", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	users.Post("/adopt", cfg.Adoptions.Adopt)
	users.Get("/adoptions", cfg.Adoptions.List)
	users.Delete("/adoptions/:id", cfg.Adoptions.Withdraw)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/pets", cfg.Admin.CreatePet)
	admin.Get("/pets", cfg.Admin.ListPets)
	admin.Put("/pets/:id", cfg.Admin.UpdatePet)
	admin.Delete("/pets/:id", cfg.Admin.DeletePet)
	admin.Get("/adoptions", cfg.Admin.ListAdoptions)
	admin.Put("/adoptions/:id/approve", cfg.Admin.ApproveAdoption)
	admin.Put("/adoptions/:id/reject", cfg.Admin.RejectAdoption)
}
