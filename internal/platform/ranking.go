package platform

import (
	"math"
	"sort"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
)

// Composite score weights. Bypass risk is inverted: routing bookings outside
// the platform's own channel lowers the score.
const (
	weightSuccess    = 0.45
	weightConversion = 0.35
	weightChannel    = 0.20
)

// Health score penalty/reward weights. The formula is deliberately a plain
// weighted sum so operators can reproduce every published score by hand:
//
//	health = 100 - 0.35*spam_rate - 0.35*cancellation_rate - 0.30*(100 - conversion_rate)
//
// clamped to [0,100].
const (
	healthSpamPenalty      = 0.35
	healthCancelPenalty    = 0.35
	healthConversionWeight = 0.30
)

// buildRanking orders tenants by composite score, descending. Ties break by
// revenue descending, then tenant id ascending, so the ranking is fully
// deterministic across runs.
func buildRanking(sets map[string]models.TenantMetrics, revenueShare, usageShare map[string]float64) []models.RankingEntry {
	entries := make([]models.RankingEntry, 0, len(sets))
	for id, m := range sets {
		entries = append(entries, models.RankingEntry{
			TenantID:        id,
			Score:           compositeScore(m),
			RevenueTotal:    m.RevenueTotal,
			HealthScore:     healthScore(m),
			DistortionIndex: round2(revenueShare[id] - usageShare[id]),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].RevenueTotal != entries[j].RevenueTotal {
			return entries[i].RevenueTotal > entries[j].RevenueTotal
		}
		return entries[i].TenantID < entries[j].TenantID
	})
	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries
}

func compositeScore(m models.TenantMetrics) float64 {
	score := weightSuccess*m.SuccessRatePct +
		weightConversion*m.ConversionRatePct +
		weightChannel*(100-m.BypassRiskPct)
	return round2(clamp100(score))
}

func healthScore(m models.TenantMetrics) float64 {
	score := 100 -
		healthSpamPenalty*m.SpamRatePct -
		healthCancelPenalty*m.CancellationRatePct -
		healthConversionWeight*(100-m.ConversionRatePct)
	return round2(clamp100(score))
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
