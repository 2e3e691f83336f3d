package handlers

import (
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/Marseau/ubs-metrics-engine/internal/runs"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/Marseau/ubs-metrics-engine/internal/validator"
	"github.com/Marseau/ubs-metrics-engine/internal/window"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type RunHandler struct {
	orchestrator *aggregator.Orchestrator
	validator    *validator.Validator
	runs         *runs.Service
}

func NewRunHandler(orch *aggregator.Orchestrator, v *validator.Validator, recorder *runs.Service) *RunHandler {
	return &RunHandler{orchestrator: orch, validator: v, runs: recorder}
}

type triggerRunRequest struct {
	Windows   []string `json:"windows"`
	TenantIDs []string `json:"tenant_ids"`
	Ref       string   `json:"ref"` // RFC3339, empty means now
}

// TriggerRun starts an aggregation run synchronously and returns its summary.
func (h *RunHandler) TriggerRun(c *fiber.Ctx) error {
	var req triggerRunRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	params := aggregator.RunParams{Windows: req.Windows}
	if len(params.Windows) == 0 {
		params.Windows = window.AllLabels()
	}
	for _, label := range params.Windows {
		if !window.ValidLabel(label) {
			return badPeriod(c)
		}
	}

	for _, raw := range req.TenantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid tenant id: " + raw,
			})
		}
		params.TenantIDs = append(params.TenantIDs, id)
	}

	if req.Ref != "" {
		ref, err := time.Parse(time.RFC3339, req.Ref)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "ref must be RFC3339",
			})
		}
		params.Ref = ref
	}

	record, err := h.runs.Start(c.Context(), runs.TriggerAPI, params)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to record run",
		})
	}

	summary, runErr := h.orchestrator.Run(c.Context(), params)
	if err := h.runs.Finish(c.Context(), record, summary, runErr); err != nil {
		utils.LogError("run record not closed", err, map[string]interface{}{
			"run_id": record.ID.String(),
		})
	}
	if runErr != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  runErr.Error(),
			"run_id": record.ID,
		})
	}

	status := fiber.StatusOK
	if summary.Failed() {
		status = fiber.StatusMultiStatus
	}
	return c.Status(status).JSON(fiber.Map{
		"run_id":  record.ID,
		"summary": summary,
	})
}

// GetRun returns one recorded run by id.
func (h *RunHandler) GetRun(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid run id",
		})
	}

	record, err := h.runs.Get(c.Context(), id)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "run not found",
		})
	}
	return c.JSON(record)
}

// ListRuns returns recorded runs, newest first. Optional from/to query params
// (RFC3339) bound the started_at range.
func (h *RunHandler) ListRuns(c *fiber.Ctx) error {
	filter := runs.Filter{
		Trigger: c.Query("trigger"),
		Status:  c.Query("status"),
		Limit:   c.QueryInt("limit", 50),
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid from: expected RFC3339 timestamp",
			})
		}
		filter.StartDate = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid to: expected RFC3339 timestamp",
			})
		}
		filter.EndDate = &ts
	}

	records, err := h.runs.List(c.Context(), filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to list runs",
		})
	}
	return c.JSON(fiber.Map{"runs": records})
}

type validateRequest struct {
	Windows   []string `json:"windows"`
	TenantIDs []string `json:"tenant_ids"`
}

// Validate recomputes metrics for the given tenants and reports drift against
// stored snapshots. Read-only: drift is reported, never corrected here.
func (h *RunHandler) Validate(c *fiber.Ctx) error {
	var req validateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if len(req.TenantIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "tenant_ids is required",
		})
	}

	labels := req.Windows
	if len(labels) == 0 {
		labels = window.AllLabels()
	}
	for _, label := range labels {
		if !window.ValidLabel(label) {
			return badPeriod(c)
		}
	}

	tenantIDs := make([]uuid.UUID, 0, len(req.TenantIDs))
	for _, raw := range req.TenantIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid tenant id: " + raw,
			})
		}
		tenantIDs = append(tenantIDs, id)
	}

	report, err := h.validator.ValidateSample(c.Context(), tenantIDs, labels)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "validation failed",
		})
	}
	return c.JSON(report)
}
