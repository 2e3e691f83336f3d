package calculator

import (
	"sort"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
)

// Legacy rows predating the schema cleanup carry variant spellings for status
// and outcome. Normalization is confined here; the rest of the pipeline only
// ever sees canonical values.
var legacyStatus = map[string]string{
	"canceled":   models.StatusCancelled,
	"no-show":    models.StatusNoShow,
	"noshow":     models.StatusNoShow,
	"booked":     models.StatusConfirmed,
	"done":       models.StatusCompleted,
	"reschedule": models.StatusRescheduled,
}

var legacyOutcome = map[string]string{
	"appointment_confirmed": models.OutcomeAppointmentCreated,
	"appointment_modified":  models.OutcomeAppointmentRescheduled,
	"info":                  models.OutcomeInfoRequest,
}

var knownStatuses = map[string]bool{
	models.StatusPending:     true,
	models.StatusConfirmed:   true,
	models.StatusCompleted:   true,
	models.StatusCancelled:   true,
	models.StatusNoShow:      true,
	models.StatusRescheduled: true,
}

var knownOutcomes = map[string]bool{
	models.OutcomeAppointmentCreated:     true,
	models.OutcomeAppointmentCancelled:   true,
	models.OutcomeAppointmentRescheduled: true,
	models.OutcomePriceInquiry:           true,
	models.OutcomeInfoRequest:            true,
	models.OutcomeBookingAbandoned:       true,
	models.OutcomeSpamDetected:           true,
	models.OutcomeWrongNumber:            true,
}

// normalizeAppointments canonicalizes statuses and sources. A record whose
// status cannot be mapped is skipped and logged; it never aborts the tenant.
func normalizeAppointments(tenantID string, raw []models.Appointment) []models.Appointment {
	out := make([]models.Appointment, 0, len(raw))
	for _, a := range raw {
		if mapped, ok := legacyStatus[a.Status]; ok {
			a.Status = mapped
		}
		if !knownStatuses[a.Status] {
			utils.LogWarn("skipping appointment with unparseable status", map[string]interface{}{
				"tenant_id":      tenantID,
				"appointment_id": a.ID.String(),
				"status":         a.Status,
				"stage":          "calculator",
			})
			continue
		}
		if a.Source != models.SourceExternal {
			a.Source = models.SourceInternal
		}
		out = append(out, a)
	}
	return out
}

// session is one logical conversation, reduced from its raw message events.
type session struct {
	id         string
	outcome    string // empty when no event carried an outcome
	confidence float64
	hasConf    bool
	tokens     int
	costUSD    float64
}

// groupSessions reduces raw message events into logical sessions keyed by
// session id. Tokens and cost are summed across events; the outcome is the
// latest one recorded; confidence follows the outcome-bearing event.
// Events with an unparseable outcome are treated as outcome-less, logged once.
func groupSessions(tenantID string, events []models.ConversationEvent) []session {
	byID := make(map[string]*session)
	order := make([]string, 0)

	for _, ev := range events {
		s, ok := byID[ev.SessionID]
		if !ok {
			s = &session{id: ev.SessionID}
			byID[ev.SessionID] = s
			order = append(order, ev.SessionID)
		}
		s.tokens += ev.TokensUsed
		s.costUSD += ev.APICostUSD

		if ev.ConfidenceScore != nil && (!s.hasConf || *ev.ConfidenceScore > s.confidence) {
			s.confidence = *ev.ConfidenceScore
			s.hasConf = true
		}
		if ev.Outcome == nil || *ev.Outcome == "" {
			continue
		}
		outcome := *ev.Outcome
		if mapped, ok := legacyOutcome[outcome]; ok {
			outcome = mapped
		}
		if !knownOutcomes[outcome] {
			utils.LogWarn("ignoring unparseable conversation outcome", map[string]interface{}{
				"tenant_id":  tenantID,
				"session_id": ev.SessionID,
				"outcome":    outcome,
				"stage":      "calculator",
			})
			continue
		}
		// Events are fetched in created_at order; the last outcome wins.
		s.outcome = outcome
		if ev.ConfidenceScore != nil {
			s.confidence = *ev.ConfidenceScore
			s.hasConf = true
		}
	}

	sort.Strings(order)
	sessions := make([]session, 0, len(order))
	for _, id := range order {
		sessions = append(sessions, *byID[id])
	}
	return sessions
}
