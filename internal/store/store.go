package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no current snapshot exists for a key.
var ErrNotFound = errors.New("snapshot not found")

// PersistenceError marks a store write failure. Writes are idempotent
// upserts, so the orchestrator may retry them with backoff.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MetricsStore is idempotent, versioned persistence for tenant and platform
// snapshots. Puts are atomic replace-by-key: one current row per
// (tenant_id, period) and per (period), version incremented on replacement,
// and readers never observe a partially written metrics map.
type MetricsStore interface {
	PutTenantSnapshot(ctx context.Context, snapshot *models.TenantMetricSnapshot) error
	PutPlatformSnapshot(ctx context.Context, snapshot *models.PlatformMetricSnapshot) error

	// MarkTenantFailed records a failed tenant computation for a window
	// without touching the prior successful metrics payload.
	MarkTenantFailed(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow, reason string) error

	GetCurrent(ctx context.Context, tenantID uuid.UUID, label string) (*models.TenantMetricSnapshot, error)
	GetHistory(ctx context.Context, tenantID uuid.UUID, label string, limit int) ([]models.TenantMetricHistory, error)
	GetPlatformCurrent(ctx context.Context, label string) (*models.PlatformMetricSnapshot, error)

	// GetWindowSnapshots returns every current successful tenant snapshot for
	// one window label, the platform aggregator's input set.
	GetWindowSnapshots(ctx context.Context, label string) ([]models.TenantMetricSnapshot, error)

	// CountWindowFailures returns how many tenants currently hold an
	// error-status snapshot for the label, regardless of which run failed them.
	CountWindowFailures(ctx context.Context, label string) (int, error)
}
