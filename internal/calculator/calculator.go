package calculator

import (
	"math"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/google/uuid"
)

// Sessions with no recorded outcome and confidence below this are counted as
// noise alongside explicit spam outcomes.
const spamConfidenceThreshold = 0.7

// Calculate computes the full metric set for one tenant and one window from
// raw records already scoped to that tenant and window. It is pure: no I/O,
// no clock reads, deterministic for identical inputs.
func Calculate(tenantID uuid.UUID, w models.TimeWindow, appointments []models.Appointment, conversations []models.ConversationEvent, billing []models.BillingEvent) models.TenantMetrics {
	var m models.TenantMetrics

	appts := normalizeAppointments(tenantID.String(), appointments)
	customers := make(map[uuid.UUID]bool)

	for _, a := range appts {
		m.AppointmentsTotal++
		switch a.Status {
		case models.StatusConfirmed:
			m.AppointmentsConfirmed++
		case models.StatusCompleted:
			m.AppointmentsCompleted++
		case models.StatusCancelled:
			m.AppointmentsCancelled++
		case models.StatusNoShow:
			m.AppointmentsNoShow++
		case models.StatusRescheduled:
			m.AppointmentsRescheduled++
		}
		if a.Source == models.SourceExternal {
			m.AppointmentsExternal++
		} else {
			m.AppointmentsInternal++
		}

		// Missing price contributes 0 but the record still counts everywhere.
		price := a.EffectivePrice()
		m.RevenueQuotedTotal += price
		if a.Status == models.StatusCompleted || a.Status == models.StatusConfirmed {
			m.RevenueTotal += price
		}
		if a.CustomerID != uuid.Nil {
			customers[a.CustomerID] = true
		}
	}
	m.UniqueCustomers = len(customers)

	realized := m.AppointmentsCompleted + m.AppointmentsConfirmed
	if realized > 0 {
		m.AvgRevenuePerAppointment = round2(m.RevenueTotal / float64(realized))
	}
	m.RevenueTotal = round2(m.RevenueTotal)
	m.RevenueQuotedTotal = round2(m.RevenueQuotedTotal)

	m.SuccessRatePct = rate(realized, m.AppointmentsTotal)
	m.CancellationRatePct = rate(m.AppointmentsCancelled+m.AppointmentsNoShow, m.AppointmentsTotal)
	m.RescheduleRatePct = rate(m.AppointmentsRescheduled, m.AppointmentsTotal)
	m.BypassRiskPct = rate(m.AppointmentsExternal, m.AppointmentsTotal)

	sessions := groupSessions(tenantID.String(), conversations)
	m.ConversationsTotal = len(sessions)

	var info, confCount int
	var confSum float64
	for _, s := range sessions {
		m.TokensUsed += s.tokens
		m.AICostUSD += s.costUSD
		if isSpam(s) {
			m.ConversationsSpam++
		}
		switch s.outcome {
		case models.OutcomeAppointmentCreated:
			m.ConversationsConverted++
		case models.OutcomeInfoRequest, models.OutcomePriceInquiry:
			info++
		}
		if s.hasConf && s.confidence > 0 {
			confSum += s.confidence
			confCount++
		}
	}
	m.ConversationsValid = m.ConversationsTotal - m.ConversationsSpam
	m.SpamRatePct = rate(m.ConversationsSpam, m.ConversationsTotal)
	m.ConversionRatePct = rate(m.ConversationsConverted, m.ConversationsTotal)
	m.InfoRatePct = rate(info, m.ConversationsTotal)
	if confCount > 0 {
		m.AvgConfidenceScore = round2(confSum / float64(confCount))
	}
	m.AICostUSD = round4(m.AICostUSD)

	for _, b := range billing {
		m.BillingTotal += b.Amount
	}
	m.BillingTotal = round2(m.BillingTotal)

	return m
}

func isSpam(s session) bool {
	switch s.outcome {
	case models.OutcomeSpamDetected, models.OutcomeWrongNumber:
		return true
	case "":
		return !s.hasConf || s.confidence < spamConfidenceThreshold
	}
	return false
}

// rate returns num/den as a percentage, clamped to [0,100]. A zero denominator
// yields 0, never NaN.
func rate(num, den int) float64 {
	if den <= 0 {
		return 0
	}
	pct := float64(num) / float64(den) * 100
	return round2(math.Max(0, math.Min(100, pct)))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
