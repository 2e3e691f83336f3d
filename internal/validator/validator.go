package validator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/calculator"
	"github.com/Marseau/ubs-metrics-engine/internal/gateway"
	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/Marseau/ubs-metrics-engine/internal/store"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/Marseau/ubs-metrics-engine/internal/window"
	"github.com/google/uuid"
)

// ErrSnapshotFailed is returned when the stored snapshot carries an error
// status; there is no good metric set to validate against.
var ErrSnapshotFailed = errors.New("snapshot marked failed")

// Diff tolerances. Counts must match exactly; money and percentages allow for
// rounding noise only.
const (
	currencyTolerance = 0.01
	percentTolerance  = 0.01
)

// DriftWarning reports one stored metric diverging from its independent
// recomputation beyond tolerance. Warnings are reported, never auto-corrected;
// fixing drift requires an explicit recompute run.
type DriftWarning struct {
	TenantID uuid.UUID `json:"tenant_id"`
	Window   string    `json:"window"`
	Metric   string    `json:"metric"`
	Stored   float64   `json:"stored"`
	Computed float64   `json:"computed"`
}

func (d DriftWarning) String() string {
	return fmt.Sprintf("drift on %s/%s %s: stored=%.4f computed=%.4f",
		d.TenantID, d.Window, d.Metric, d.Stored, d.Computed)
}

// Validator recomputes metrics straight from raw data, bypassing the store's
// write path, and diffs the result against the stored current snapshot.
type Validator struct {
	gateway gateway.RawDataGateway
	store   store.MetricsStore
}

// New creates a validator.
func New(gw gateway.RawDataGateway, st store.MetricsStore) *Validator {
	return &Validator{gateway: gw, store: st}
}

// ValidateTenant checks one tenant and one window. The window is re-anchored
// to the stored snapshot's own period end, so validation compares like with
// like even when raw data kept flowing after the snapshot was computed.
func (v *Validator) ValidateTenant(ctx context.Context, tenantID uuid.UUID, label string) ([]DriftWarning, error) {
	snapshot, err := v.store.GetCurrent(ctx, tenantID, label)
	if err != nil {
		return nil, fmt.Errorf("load stored snapshot: %w", err)
	}
	if snapshot.Status != models.SnapshotOK {
		return nil, fmt.Errorf("%w: %s/%s is marked %s", ErrSnapshotFailed, tenantID, label, snapshot.Status)
	}

	w, err := window.Resolve(label, snapshot.PeriodEnd)
	if err != nil {
		return nil, err
	}

	appointments, err := v.gateway.FetchAppointments(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}
	conversations, err := v.gateway.FetchConversations(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}
	billing, err := v.gateway.FetchBilling(ctx, tenantID, w)
	if err != nil {
		return nil, err
	}

	computed := calculator.Calculate(tenantID, w, appointments, conversations, billing)
	stored, err := snapshot.MetricSet()
	if err != nil {
		return nil, err
	}

	warnings := diff(tenantID, label, stored, computed)
	for _, warn := range warnings {
		utils.LogWarn("validation drift detected", map[string]interface{}{
			"tenant_id": warn.TenantID.String(),
			"window":    warn.Window,
			"metric":    warn.Metric,
			"stored":    warn.Stored,
			"computed":  warn.Computed,
			"stage":     "validator",
		})
	}
	return warnings, nil
}

// SampleReport is the outcome of a batch validation pass.
type SampleReport struct {
	TenantsChecked int            `json:"tenants_checked"`
	TenantsSkipped int            `json:"tenants_skipped"`
	Warnings       []DriftWarning `json:"warnings"`
	Duration       time.Duration  `json:"duration"`
}

// ValidateSample validates a set of tenants across windows. Tenants without a
// stored snapshot are skipped, not errors: a drift check on nothing is noise.
func (v *Validator) ValidateSample(ctx context.Context, tenantIDs []uuid.UUID, labels []string) (*SampleReport, error) {
	started := time.Now()
	report := &SampleReport{}
	for _, label := range labels {
		for _, tenantID := range tenantIDs {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			warnings, err := v.ValidateTenant(ctx, tenantID, label)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) || errors.Is(err, ErrSnapshotFailed) {
					report.TenantsSkipped++
					continue
				}
				return report, fmt.Errorf("validate %s/%s: %w", tenantID, label, err)
			}
			report.TenantsChecked++
			report.Warnings = append(report.Warnings, warnings...)
		}
	}
	report.Duration = time.Since(started)
	return report, nil
}

func diff(tenantID uuid.UUID, label string, stored, computed models.TenantMetrics) []DriftWarning {
	var warnings []DriftWarning
	storedPairs := stored.MetricPairs()
	computedPairs := computed.MetricPairs()

	for i, sp := range storedPairs {
		cp := computedPairs[i]
		tolerance := currencyTolerance
		if models.CountMetricKeys[sp.Key] {
			tolerance = 0
		} else if models.RateMetricKeys[sp.Key] {
			tolerance = percentTolerance
		}
		if math.Abs(sp.Value-cp.Value) > tolerance {
			warnings = append(warnings, DriftWarning{
				TenantID: tenantID,
				Window:   label,
				Metric:   sp.Key,
				Stored:   sp.Value,
				Computed: cp.Value,
			})
		}
	}
	return warnings
}
