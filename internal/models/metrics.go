package models

// TenantMetrics is the deterministic metric set computed for one tenant and
// one window. Field declaration order is the canonical metric order; JSON
// serialization preserves it, so stored snapshots are ordered maps.
type TenantMetrics struct {
	AppointmentsTotal       int `json:"appointments_total"`
	AppointmentsConfirmed   int `json:"appointments_confirmed"`
	AppointmentsCompleted   int `json:"appointments_completed"`
	AppointmentsCancelled   int `json:"appointments_cancelled"`
	AppointmentsNoShow      int `json:"appointments_no_show"`
	AppointmentsRescheduled int `json:"appointments_rescheduled"`
	AppointmentsInternal    int `json:"appointments_internal"`
	AppointmentsExternal    int `json:"appointments_external"`

	RevenueTotal             float64 `json:"revenue_total"`
	RevenueQuotedTotal       float64 `json:"revenue_quoted_total"`
	AvgRevenuePerAppointment float64 `json:"avg_revenue_per_appointment"`
	BillingTotal             float64 `json:"billing_total"`

	UniqueCustomers int `json:"unique_customers"`

	ConversationsTotal     int `json:"conversations_total"`
	ConversationsValid     int `json:"conversations_valid"`
	ConversationsSpam      int `json:"conversations_spam"`
	ConversationsConverted int `json:"conversations_converted"`

	SuccessRatePct      float64 `json:"success_rate_pct"`
	CancellationRatePct float64 `json:"cancellation_rate_pct"`
	RescheduleRatePct   float64 `json:"reschedule_rate_pct"`
	BypassRiskPct       float64 `json:"bypass_risk_pct"`
	SpamRatePct         float64 `json:"spam_rate_pct"`
	ConversionRatePct   float64 `json:"conversion_rate_pct"`
	InfoRatePct         float64 `json:"info_rate_pct"`

	AvgConfidenceScore float64 `json:"avg_confidence_score"`
	AICostUSD          float64 `json:"ai_cost_usd"`
	TokensUsed         int     `json:"tokens_used"`
}

// MetricPair is one (key, value) entry of a metric set.
type MetricPair struct {
	Key   string
	Value float64
}

// MetricPairs returns every metric in canonical order. Count metrics are
// widened to float64 so callers can sum and diff uniformly.
func (m TenantMetrics) MetricPairs() []MetricPair {
	return []MetricPair{
		{"appointments_total", float64(m.AppointmentsTotal)},
		{"appointments_confirmed", float64(m.AppointmentsConfirmed)},
		{"appointments_completed", float64(m.AppointmentsCompleted)},
		{"appointments_cancelled", float64(m.AppointmentsCancelled)},
		{"appointments_no_show", float64(m.AppointmentsNoShow)},
		{"appointments_rescheduled", float64(m.AppointmentsRescheduled)},
		{"appointments_internal", float64(m.AppointmentsInternal)},
		{"appointments_external", float64(m.AppointmentsExternal)},
		{"revenue_total", m.RevenueTotal},
		{"revenue_quoted_total", m.RevenueQuotedTotal},
		{"avg_revenue_per_appointment", m.AvgRevenuePerAppointment},
		{"billing_total", m.BillingTotal},
		{"unique_customers", float64(m.UniqueCustomers)},
		{"conversations_total", float64(m.ConversationsTotal)},
		{"conversations_valid", float64(m.ConversationsValid)},
		{"conversations_spam", float64(m.ConversationsSpam)},
		{"conversations_converted", float64(m.ConversationsConverted)},
		{"success_rate_pct", m.SuccessRatePct},
		{"cancellation_rate_pct", m.CancellationRatePct},
		{"reschedule_rate_pct", m.RescheduleRatePct},
		{"bypass_risk_pct", m.BypassRiskPct},
		{"spam_rate_pct", m.SpamRatePct},
		{"conversion_rate_pct", m.ConversionRatePct},
		{"info_rate_pct", m.InfoRatePct},
		{"avg_confidence_score", m.AvgConfidenceScore},
		{"ai_cost_usd", m.AICostUSD},
		{"tokens_used", float64(m.TokensUsed)},
	}
}

// CountMetricKeys are metrics diffed with zero tolerance by the validator.
var CountMetricKeys = map[string]bool{
	"appointments_total":       true,
	"appointments_confirmed":   true,
	"appointments_completed":   true,
	"appointments_cancelled":   true,
	"appointments_no_show":     true,
	"appointments_rescheduled": true,
	"appointments_internal":    true,
	"appointments_external":    true,
	"unique_customers":         true,
	"conversations_total":      true,
	"conversations_valid":      true,
	"conversations_spam":       true,
	"conversations_converted":  true,
	"tokens_used":              true,
}

// RateMetricKeys are percentage metrics, bounded to [0,100].
var RateMetricKeys = map[string]bool{
	"success_rate_pct":      true,
	"cancellation_rate_pct": true,
	"reschedule_rate_pct":   true,
	"bypass_risk_pct":       true,
	"spam_rate_pct":         true,
	"conversion_rate_pct":   true,
	"info_rate_pct":         true,
}

// PlatformTotals is the platform-wide reduction of all tenant metric sets for
// one window. Additive metrics are summed; rates are recomputed from the
// summed numerators and denominators, never averaged across tenants.
type PlatformTotals struct {
	AppointmentsTotal       int `json:"appointments_total"`
	AppointmentsConfirmed   int `json:"appointments_confirmed"`
	AppointmentsCompleted   int `json:"appointments_completed"`
	AppointmentsCancelled   int `json:"appointments_cancelled"`
	AppointmentsNoShow      int `json:"appointments_no_show"`
	AppointmentsRescheduled int `json:"appointments_rescheduled"`
	AppointmentsInternal    int `json:"appointments_internal"`
	AppointmentsExternal    int `json:"appointments_external"`

	RevenueTotal       float64 `json:"revenue_total"`
	RevenueQuotedTotal float64 `json:"revenue_quoted_total"`
	BillingTotal       float64 `json:"billing_total"`

	// Sum of per-tenant distinct customers; not deduplicated across tenants.
	TotalCustomers int `json:"total_customers"`

	ConversationsTotal     int `json:"conversations_total"`
	ConversationsValid     int `json:"conversations_valid"`
	ConversationsSpam      int `json:"conversations_spam"`
	ConversationsConverted int `json:"conversations_converted"`

	SuccessRatePct      float64 `json:"success_rate_pct"`
	CancellationRatePct float64 `json:"cancellation_rate_pct"`
	BypassRiskPct       float64 `json:"bypass_risk_pct"`
	SpamRatePct         float64 `json:"spam_rate_pct"`
	ConversionRatePct   float64 `json:"conversion_rate_pct"`

	RevenueBillingRatio float64 `json:"revenue_billing_ratio"`

	AICostUSD  float64 `json:"ai_cost_usd"`
	TokensUsed int     `json:"tokens_used"`
}

// RankingEntry is one tenant's position in the platform ranking, with the
// per-tenant composite indices computed alongside it.
type RankingEntry struct {
	TenantID string  `json:"tenant_id"`
	Score    float64 `json:"score"`
	Position int     `json:"position"`

	RevenueTotal    float64 `json:"revenue_total"`
	HealthScore     float64 `json:"health_score"`
	DistortionIndex float64 `json:"distortion_index"`
}
