package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/calculator"
	"github.com/Marseau/ubs-metrics-engine/internal/gateway"
	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/Marseau/ubs-metrics-engine/internal/platform"
	"github.com/Marseau/ubs-metrics-engine/internal/store"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/Marseau/ubs-metrics-engine/internal/window"
	"github.com/google/uuid"
)

// Config tunes one orchestrator instance. Everything is passed in explicitly;
// there are no process-wide defaults hiding behind the run.
type Config struct {
	Concurrency    int
	TenantTimeout  time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
}

// DefaultConfig returns the tuning used by the scheduled daily run.
func DefaultConfig() Config {
	return Config{
		Concurrency:    10,
		TenantTimeout:  60 * time.Second,
		MaxRetries:     3,
		RetryBaseDelay: 200 * time.Millisecond,
	}
}

// RunParams selects what one aggregation run covers. An empty TenantIDs means
// every active tenant. Ref anchors all windows of the run; the zero value
// means "now", resolved once at run start and never recomputed mid-run.
type RunParams struct {
	Windows   []string
	TenantIDs []uuid.UUID
	Ref       time.Time
}

// WindowResult reports one window's outcome within a run.
type WindowResult struct {
	Window             models.TimeWindow `json:"window"`
	TenantsProcessed   int               `json:"tenants_processed"`
	TenantsFailed      int               `json:"tenants_failed"`
	FailedTenantIDs    []string          `json:"failed_tenant_ids,omitempty"`
	PlatformSnapshotID uuid.UUID         `json:"platform_snapshot_id"`
	Duration           time.Duration     `json:"duration"`
	Err                string            `json:"error,omitempty"`
}

// RunSummary is the exit report of one aggregation run.
type RunSummary struct {
	Ref       time.Time      `json:"ref"`
	StartedAt time.Time      `json:"started_at"`
	Windows   []WindowResult `json:"windows"`
	Duration  time.Duration  `json:"duration"`
}

// Failed reports whether any window of the run failed at the platform stage.
func (s *RunSummary) Failed() bool {
	for _, w := range s.Windows {
		if w.Err != "" {
			return true
		}
	}
	return false
}

// Orchestrator fans tenant metric calculations out over a bounded worker pool
// and reduces the results into platform snapshots, one window at a time.
type Orchestrator struct {
	gateway gateway.RawDataGateway
	store   store.MetricsStore
	cfg     Config
}

// New creates an orchestrator.
func New(gw gateway.RawDataGateway, st store.MetricsStore, cfg Config) *Orchestrator {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConfig().Concurrency
	}
	if cfg.TenantTimeout <= 0 {
		cfg.TenantTimeout = DefaultConfig().TenantTimeout
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = DefaultConfig().RetryBaseDelay
	}
	return &Orchestrator{gateway: gw, store: st, cfg: cfg}
}

// Run executes one aggregation run. Per-tenant failures are isolated: they
// reduce the platform input set and show up in the summary, but never abort
// the run. A platform-stage failure marks that window failed and moves on;
// re-running is always safe because every write is an idempotent upsert.
func (o *Orchestrator) Run(ctx context.Context, params RunParams) (*RunSummary, error) {
	started := time.Now()
	ref := params.Ref
	if ref.IsZero() {
		ref = started.UTC()
	}

	labels := params.Windows
	if len(labels) == 0 {
		labels = window.AllLabels()
	}
	windows, err := window.ResolveAll(labels, ref)
	if err != nil {
		return nil, err
	}

	tenantIDs := params.TenantIDs
	if len(tenantIDs) == 0 {
		tenantIDs, err = o.gateway.ListActiveTenantIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list tenants: %w", err)
		}
	}

	summary := &RunSummary{Ref: ref, StartedAt: started.UTC()}
	for _, w := range windows {
		result := o.runWindow(ctx, w, tenantIDs)
		summary.Windows = append(summary.Windows, result)
		if ctx.Err() != nil {
			break
		}
	}
	summary.Duration = time.Since(started)
	return summary, ctx.Err()
}

func (o *Orchestrator) runWindow(ctx context.Context, w models.TimeWindow, tenantIDs []uuid.UUID) WindowResult {
	started := time.Now()
	result := WindowResult{Window: w}

	utils.LogInfo("starting window aggregation", map[string]interface{}{
		"window": w.Label, "tenants": len(tenantIDs), "stage": "orchestrator",
	})

	var (
		mu     sync.Mutex
		failed []string
	)
	jobs := make(chan uuid.UUID)
	var wg sync.WaitGroup

	for i := 0; i < o.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tenantID := range jobs {
				if err := o.processTenant(ctx, tenantID, w); err != nil {
					mu.Lock()
					failed = append(failed, tenantID.String())
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, id := range tenantIDs {
		select {
		case jobs <- id:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)

	// Barrier: the platform reduction must observe the complete tenant set
	// for this window, so every worker terminates first.
	wg.Wait()

	sort.Strings(failed)
	result.TenantsFailed = len(failed)
	result.FailedTenantIDs = failed
	result.TenantsProcessed = len(tenantIDs) - len(failed)

	if ctx.Err() != nil {
		result.Err = ctx.Err().Error()
		result.Duration = time.Since(started)
		return result
	}

	if err := o.aggregatePlatform(ctx, w, &result); err != nil {
		utils.LogError("platform aggregation failed", err, map[string]interface{}{
			"window": w.Label, "stage": "platform",
		})
		result.Err = err.Error()
	}
	result.Duration = time.Since(started)

	utils.LogInfo("window aggregation finished", map[string]interface{}{
		"window":    w.Label,
		"processed": result.TenantsProcessed,
		"failed":    result.TenantsFailed,
		"duration":  result.Duration.String(),
		"stage":     "orchestrator",
	})
	return result
}

// processTenant computes and persists one tenant's snapshot, retrying
// transient failures. On permanent failure the tenant is marked failed for
// this window and excluded from the platform input set.
func (o *Orchestrator) processTenant(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) error {
	tenantCtx, cancel := context.WithTimeout(ctx, o.cfg.TenantTimeout)
	defer cancel()

	err := o.withRetries(tenantCtx, func() error {
		appointments, err := o.gateway.FetchAppointments(tenantCtx, tenantID, w)
		if err != nil {
			return err
		}
		conversations, err := o.gateway.FetchConversations(tenantCtx, tenantID, w)
		if err != nil {
			return err
		}
		billing, err := o.gateway.FetchBilling(tenantCtx, tenantID, w)
		if err != nil {
			return err
		}

		metrics := calculator.Calculate(tenantID, w, appointments, conversations, billing)

		snapshot := &models.TenantMetricSnapshot{
			TenantID:     tenantID,
			Period:       w.Label,
			PeriodStart:  w.Start,
			PeriodEnd:    w.End,
			CalculatedAt: time.Now().UTC(),
			Status:       models.SnapshotOK,
		}
		if err := snapshot.SetMetrics(metrics); err != nil {
			return err
		}
		return o.store.PutTenantSnapshot(tenantCtx, snapshot)
	})
	if err == nil {
		return nil
	}

	utils.LogError("tenant calculation failed permanently", err, map[string]interface{}{
		"tenant_id": tenantID.String(), "window": w.Label, "stage": "orchestrator",
	})
	// Best effort with a fresh deadline: the tenant context may already be dead.
	markCtx, markCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer markCancel()
	if markErr := o.store.MarkTenantFailed(markCtx, tenantID, w, err.Error()); markErr != nil {
		utils.LogError("failed to mark tenant as failed", markErr, map[string]interface{}{
			"tenant_id": tenantID.String(), "window": w.Label, "stage": "orchestrator",
		})
	}
	return err
}

func (o *Orchestrator) aggregatePlatform(ctx context.Context, w models.TimeWindow, result *WindowResult) error {
	snapshots, err := o.store.GetWindowSnapshots(ctx, w.Label)
	if err != nil {
		return err
	}
	// The exclusion count comes from the store rather than this run's failure
	// list: a tenant failed by an earlier run still holds an error-status row,
	// stays out of the input set, and must be reported as excluded.
	excluded, err := o.store.CountWindowFailures(ctx, w.Label)
	if err != nil {
		return err
	}

	snapshot, err := platform.Aggregate(w, snapshots, excluded, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := o.withRetries(ctx, func() error {
		return o.store.PutPlatformSnapshot(ctx, snapshot)
	}); err != nil {
		return err
	}
	result.PlatformSnapshotID = snapshot.ID
	return nil
}

// withRetries runs fn, retrying retryable errors (fetch and persistence
// failures) with bounded exponential backoff. Context cancellation stops the
// retry loop immediately.
func (o *Orchestrator) withRetries(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := o.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func retryable(err error) bool {
	var fetchErr *gateway.FetchError
	var persistErr *store.PersistenceError
	if errors.As(err, &fetchErr) || errors.As(err, &persistErr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return false
}
