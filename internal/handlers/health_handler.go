package handlers

import (
	"github.com/Marseau/ubs-metrics-engine/internal/database"
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	db *database.DB
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// GetHealth reports process liveness and database reachability.
func (h *HealthHandler) GetHealth(c *fiber.Ctx) error {
	if err := h.db.DB.PingContext(c.Context()); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"error":  "database unreachable",
		})
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"service": "metrics-engine",
	})
}
