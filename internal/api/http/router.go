package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/ticket-analytics/internal/api/http/handlers"
	"github.com/spec-kit/ticket-analytics/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Analytics *handlers.AnalyticsHandler
	Metrics   *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Get("/report", cfg.Analytics.Report)
	api.Get("/metrics", cfg.Analytics.Metrics)
	api.Get("/distributions", cfg.Analytics.Distributions)
	api.Get("/sla", cfg.Analytics.SLA)
	api.Get("/csat", cfg.Analytics.CSAT)
	api.Get("/validation", cfg.Analytics.Validation)
	api.Get("/config", cfg.Analytics.Config)

	technicians := api.Group("/technicians")
	technicians.Get("/", cfg.Analytics.Technicians)
	technicians.Get("/sla", cfg.Analytics.TechnicianSLA)
	technicians.Get("/csat", cfg.Analytics.TechnicianCSAT)
	technicians.Get("/resolution", cfg.Analytics.TechnicianResolution)

	api.Get("/narrative/context", cfg.Analytics.NarrativeContext)
	api.Get("/history", cfg.Analytics.History)
	api.Get("/uploads", cfg.Analytics.Uploads)
	api.Get("/backups", cfg.Analytics.Backups)
	api.Post("/upload", cfg.Analytics.Upload)
}
