package handlers

import "github.com/gofiber/fiber/v2"

// Register wires every route onto the app. The same wiring serves the real
// binary and the handler tests.
func Register(app *fiber.App, health *HealthHandler, metrics *MetricsHandler, run *RunHandler) {
	app.Get("/healthz", health.GetHealth)

	api := app.Group("/api")

	// Metrics routes
	api.Get("/metrics/tenants/:id", metrics.GetTenantMetrics)
	api.Get("/metrics/tenants/:id/history", metrics.GetTenantHistory)
	api.Get("/metrics/platform", metrics.GetPlatformMetrics)

	// Run routes
	api.Post("/runs", run.TriggerRun)
	api.Get("/runs", run.ListRuns)
	api.Get("/runs/:id", run.GetRun)

	// Validation route
	api.Post("/validate", run.Validate)
}
