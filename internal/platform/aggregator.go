package platform

import (
	"fmt"
	"math"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
)

// Aggregate reduces the current successful tenant snapshots of one window into
// a single platform snapshot: summed totals, revenue participation shares and
// the composite ranking. Deterministic for the same input set.
func Aggregate(w models.TimeWindow, snapshots []models.TenantMetricSnapshot, excluded int, calculatedAt time.Time) (*models.PlatformMetricSnapshot, error) {
	sets := make(map[string]models.TenantMetrics, len(snapshots))
	for _, snap := range snapshots {
		m, err := snap.MetricSet()
		if err != nil {
			return nil, fmt.Errorf("tenant %s: %w", snap.TenantID, err)
		}
		sets[snap.TenantID.String()] = m
	}

	totals := sumTotals(sets)
	participation := revenueParticipation(sets, totals.RevenueTotal)
	ranking := buildRanking(sets, participation, usageParticipation(sets, totals.ConversationsTotal))

	snapshot := &models.PlatformMetricSnapshot{
		Period:           w.Label,
		PeriodStart:      w.Start,
		PeriodEnd:        w.End,
		CalculatedAt:     calculatedAt,
		TenantsProcessed: len(snapshots),
		TenantsExcluded:  excluded,
	}
	if err := snapshot.SetTotals(totals); err != nil {
		return nil, err
	}
	if err := snapshot.SetParticipation(participation); err != nil {
		return nil, err
	}
	if err := snapshot.SetRanking(ranking); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func sumTotals(sets map[string]models.TenantMetrics) models.PlatformTotals {
	var t models.PlatformTotals
	for _, m := range sets {
		t.AppointmentsTotal += m.AppointmentsTotal
		t.AppointmentsConfirmed += m.AppointmentsConfirmed
		t.AppointmentsCompleted += m.AppointmentsCompleted
		t.AppointmentsCancelled += m.AppointmentsCancelled
		t.AppointmentsNoShow += m.AppointmentsNoShow
		t.AppointmentsRescheduled += m.AppointmentsRescheduled
		t.AppointmentsInternal += m.AppointmentsInternal
		t.AppointmentsExternal += m.AppointmentsExternal
		t.RevenueTotal += m.RevenueTotal
		t.RevenueQuotedTotal += m.RevenueQuotedTotal
		t.BillingTotal += m.BillingTotal
		t.TotalCustomers += m.UniqueCustomers
		t.ConversationsTotal += m.ConversationsTotal
		t.ConversationsValid += m.ConversationsValid
		t.ConversationsSpam += m.ConversationsSpam
		t.ConversationsConverted += m.ConversationsConverted
		t.AICostUSD += m.AICostUSD
		t.TokensUsed += m.TokensUsed
	}
	t.RevenueTotal = round2(t.RevenueTotal)
	t.RevenueQuotedTotal = round2(t.RevenueQuotedTotal)
	t.BillingTotal = round2(t.BillingTotal)
	t.AICostUSD = round4(t.AICostUSD)

	// Platform rates come from the summed numerators and denominators, never
	// from averaging per-tenant percentages.
	t.SuccessRatePct = rate(t.AppointmentsCompleted+t.AppointmentsConfirmed, t.AppointmentsTotal)
	t.CancellationRatePct = rate(t.AppointmentsCancelled+t.AppointmentsNoShow, t.AppointmentsTotal)
	t.BypassRiskPct = rate(t.AppointmentsExternal, t.AppointmentsTotal)
	t.SpamRatePct = rate(t.ConversationsSpam, t.ConversationsTotal)
	t.ConversionRatePct = rate(t.ConversationsConverted, t.ConversationsTotal)

	if t.BillingTotal > 0 {
		t.RevenueBillingRatio = round2(t.RevenueTotal / t.BillingTotal)
	}
	return t
}

// revenueParticipation computes each tenant's share of platform revenue. All
// shares are 0 when the platform total is 0; otherwise they sum to 100 within
// rounding tolerance.
func revenueParticipation(sets map[string]models.TenantMetrics, revenueTotal float64) map[string]float64 {
	shares := make(map[string]float64, len(sets))
	for id, m := range sets {
		if revenueTotal <= 0 {
			shares[id] = 0
			continue
		}
		shares[id] = m.RevenueTotal / revenueTotal * 100
	}
	return shares
}

func usageParticipation(sets map[string]models.TenantMetrics, conversationsTotal int) map[string]float64 {
	shares := make(map[string]float64, len(sets))
	for id, m := range sets {
		if conversationsTotal <= 0 {
			shares[id] = 0
			continue
		}
		shares[id] = float64(m.ConversationsTotal) / float64(conversationsTotal) * 100
	}
	return shares
}

func rate(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	return round2(math.Max(0, math.Min(100, float64(num)/float64(den)*100)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
