package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/assignment-engine/internal/api/http/handlers"
	"github.com/spec-kit/assignment-engine/internal/auth"
	"github.com/spec-kit/assignment-engine/internal/domain"
	"github.com/spec-kit/assignment-engine/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Assignments    *handlers.AssignmentHandler
	Agents         *handlers.AgentHandler
	SLA            *handlers.SLAHandler
	Sweeps         *handlers.SweepHandler
	Notifications  *handlers.NotificationHandler
	AuthMiddleware fiber.Handler
	Metrics        *observability.Metrics
	MetricsPath    string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		app.Get(path, adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api/v1", cfg.AuthMiddleware, auth.RequireStaff())
	supervisor := auth.RequireSupervisor()
	admin := auth.RequireRole(domain.RoleAdmin)

	agents := api.Group("/agents")
	agents.Get("/workload", supervisor, cfg.Agents.Workload)
	agents.Put("/:id/preferences", cfg.Agents.UpdatePreferences)
	agents.Get("/:id/statistics", cfg.Agents.Statistics)

	tickets := api.Group("/tickets")
	tickets.Post("/bulk-assign", supervisor, cfg.Assignments.BulkAssign)
	tickets.Get("/:id/candidates", supervisor, cfg.Assignments.Candidates)
	tickets.Post("/:id/assign", supervisor, cfg.Assignments.Assign)
	tickets.Delete("/:id/assign", supervisor, cfg.Assignments.Unassign)
	tickets.Post("/:id/auto-assign", cfg.Assignments.AutoAssign)
	tickets.Get("/:id/assignment-history", cfg.Assignments.History)
	tickets.Post("/:id/sla", cfg.SLA.Calculate)

	sla := api.Group("/sla")
	sla.Get("/configs", cfg.SLA.ListConfigs)
	sla.Put("/configs", admin, cfg.SLA.UpsertConfig)

	api.Get("/notifications", cfg.Notifications.List)
	api.Post("/sweeps/:name/run", admin, cfg.Sweeps.Run)
}
