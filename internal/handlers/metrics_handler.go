package handlers

import (
	"errors"
	"strconv"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/Marseau/ubs-metrics-engine/internal/store"
	"github.com/Marseau/ubs-metrics-engine/internal/window"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type MetricsHandler struct {
	store store.MetricsStore
}

func NewMetricsHandler(st store.MetricsStore) *MetricsHandler {
	return &MetricsHandler{store: st}
}

// GetTenantMetrics returns the current snapshot for one tenant and window.
func (h *MetricsHandler) GetTenantMetrics(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tenant id",
		})
	}

	period, ok := parsePeriod(c)
	if !ok {
		return badPeriod(c)
	}

	snapshot, err := h.store.GetCurrent(c.Context(), tenantID, period)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no metrics for tenant and period",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch metrics",
		})
	}

	return c.JSON(snapshot)
}

// GetTenantHistory returns archived replaced snapshots, newest first.
func (h *MetricsHandler) GetTenantHistory(c *fiber.Ctx) error {
	tenantID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid tenant id",
		})
	}

	period, ok := parsePeriod(c)
	if !ok {
		return badPeriod(c)
	}

	limit, err := strconv.Atoi(c.Query("limit", "30"))
	if err != nil || limit < 1 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "limit must be a positive integer",
		})
	}

	history, err := h.store.GetHistory(c.Context(), tenantID, period, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch history",
		})
	}

	return c.JSON(fiber.Map{
		"tenant_id": tenantID,
		"period":    period,
		"history":   history,
	})
}

// GetPlatformMetrics returns the current platform snapshot for one window.
func (h *MetricsHandler) GetPlatformMetrics(c *fiber.Ctx) error {
	period, ok := parsePeriod(c)
	if !ok {
		return badPeriod(c)
	}

	snapshot, err := h.store.GetPlatformCurrent(c.Context(), period)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "no platform metrics for period",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch platform metrics",
		})
	}

	return c.JSON(snapshot)
}

func parsePeriod(c *fiber.Ctx) (string, bool) {
	period := c.Query("period", models.Window30d)
	if !window.ValidLabel(period) {
		return "", false
	}
	return period, true
}

func badPeriod(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   "invalid period",
		"allowed": window.AllLabels(),
	})
}
