package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/sla-service/internal/api/http/handlers"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Policies       *handlers.PolicyHandler
	Compliance     *handlers.ComplianceHandler
	Deadlines      *handlers.DeadlineHandler
	AuthMiddleware *auth.AuthMiddleware
	Limiter        *ratelimit.Limiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil && cfg.Metrics.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware.Handle, auth.RequireStaffRole())
	mutation := mutationLimiter(cfg.Limiter, cfg.Metrics)

	slaGroup := api.Group("/sla")
	slaGroup.Get("/policies", cfg.Policies.List)
	slaGroup.Post("/policies/refresh", auth.RequirePolicyManager(), mutation, cfg.Policies.Refresh)
	slaGroup.Get("/policies/:sectorId", cfg.Policies.Get)
	slaGroup.Put("/policies/:sectorId", auth.RequirePolicyManager(), mutation, cfg.Policies.Upsert)
	slaGroup.Get("/policies/:sectorId/audit", auth.RequirePolicyManager(), cfg.Policies.Audit)

	slaGroup.Get("/compliance", cfg.Compliance.Get)

	slaGroup.Get("/tickets/:id/deadline", cfg.Deadlines.Get)
	slaGroup.Put("/tickets/:id/deadline", mutation, cfg.Deadlines.Override)
	slaGroup.Get("/tickets/:id/history", cfg.Deadlines.History)
}

func mutationLimiter(limiter *ratelimit.Limiter, metrics *observability.Metrics) fiber.Handler {
	if limiter == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.Middleware(metrics, func(c *fiber.Ctx) string {
		if principal, ok := auth.PrincipalFromContext(c); ok {
			return principal.ID
		}
		return ""
	})
}
