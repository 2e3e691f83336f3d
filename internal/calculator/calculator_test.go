package calculator

import (
	"fmt"
	"testing"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testWindow = models.TimeWindow{
	Label: "30d",
	Start: time.Date(2025, 7, 16, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
}

func appt(tenantID uuid.UUID, status string, price float64) models.Appointment {
	p := price
	return models.Appointment{
		ID:         uuid.New(),
		TenantID:   tenantID,
		CustomerID: uuid.New(),
		Status:     status,
		Source:     models.SourceInternal,
		FinalPrice: &p,
		StartTime:  testWindow.Start.Add(24 * time.Hour),
	}
}

func sessionEvent(tenantID uuid.UUID, sessionID string, outcome string, confidence float64) models.ConversationEvent {
	ev := models.ConversationEvent{
		ID:         uuid.New(),
		SessionID:  sessionID,
		TenantID:   tenantID,
		TokensUsed: 100,
		APICostUSD: 0.01,
	}
	if outcome != "" {
		ev.Outcome = &outcome
	}
	if confidence > 0 {
		ev.ConfidenceScore = &confidence
	}
	return ev
}

func TestCalculateEmptyInputs(t *testing.T) {
	m := Calculate(uuid.New(), testWindow, nil, nil, nil)

	assert.Zero(t, m.AppointmentsTotal)
	assert.Zero(t, m.RevenueTotal)
	assert.Zero(t, m.ConversationsTotal)
	for _, p := range m.MetricPairs() {
		assert.Zero(t, p.Value, "metric %s", p.Key)
	}
}

func TestCalculateScenarioA(t *testing.T) {
	// 10 appointments: 6 completed at 100 each, 2 cancelled, 2 no_show.
	tenantID := uuid.New()
	var appointments []models.Appointment
	for i := 0; i < 6; i++ {
		appointments = append(appointments, appt(tenantID, models.StatusCompleted, 100))
	}
	for i := 0; i < 2; i++ {
		appointments = append(appointments, appt(tenantID, models.StatusCancelled, 100))
	}
	for i := 0; i < 2; i++ {
		appointments = append(appointments, appt(tenantID, models.StatusNoShow, 100))
	}

	m := Calculate(tenantID, testWindow, appointments, nil, nil)

	assert.Equal(t, 10, m.AppointmentsTotal)
	assert.Equal(t, 6, m.AppointmentsCompleted)
	assert.Equal(t, 600.0, m.RevenueTotal)
	assert.Equal(t, 1000.0, m.RevenueQuotedTotal)
	assert.Equal(t, 60.0, m.SuccessRatePct)
	assert.Equal(t, 40.0, m.CancellationRatePct)
	assert.Equal(t, 100.0, m.AvgRevenuePerAppointment)
	assert.Equal(t, 10, m.UniqueCustomers)
}

func TestCalculateScenarioBNoDivideByZero(t *testing.T) {
	// 0 appointments, 5 sessions, none with appointment_created.
	tenantID := uuid.New()
	var events []models.ConversationEvent
	for i := 0; i < 5; i++ {
		events = append(events, sessionEvent(tenantID, fmt.Sprintf("s-%d", i), models.OutcomeInfoRequest, 0.9))
	}

	m := Calculate(tenantID, testWindow, nil, events, nil)

	assert.Equal(t, 5, m.ConversationsTotal)
	assert.Equal(t, 0.0, m.ConversionRatePct)
	assert.Equal(t, 0.0, m.SuccessRatePct)
	assert.Equal(t, 0.0, m.AvgRevenuePerAppointment)
	assert.Equal(t, 100.0, m.InfoRatePct)
}

func TestPriceFallback(t *testing.T) {
	tenantID := uuid.New()
	quoted := 50.0

	withQuoted := models.Appointment{
		ID: uuid.New(), TenantID: tenantID, CustomerID: uuid.New(),
		Status: models.StatusCompleted, QuotedPrice: &quoted,
		StartTime: testWindow.Start,
	}
	bothNil := models.Appointment{
		ID: uuid.New(), TenantID: tenantID, CustomerID: uuid.New(),
		Status: models.StatusCompleted, StartTime: testWindow.Start,
	}

	m := Calculate(tenantID, testWindow, []models.Appointment{withQuoted, bothNil}, nil, nil)

	assert.Equal(t, 50.0, m.RevenueTotal)
	// A null-priced record contributes 0 but is never skipped.
	assert.Equal(t, 2, m.AppointmentsTotal)
	assert.Equal(t, 25.0, m.AvgRevenuePerAppointment)
}

func TestSpamClassification(t *testing.T) {
	tenantID := uuid.New()
	events := []models.ConversationEvent{
		sessionEvent(tenantID, "s1", models.OutcomeSpamDetected, 0.95),
		sessionEvent(tenantID, "s2", models.OutcomeWrongNumber, 0.9),
		sessionEvent(tenantID, "s3", "", 0.2),  // no outcome, low confidence: noise
		sessionEvent(tenantID, "s4", "", 0.85), // no outcome, confident: valid
		sessionEvent(tenantID, "s5", models.OutcomeAppointmentCreated, 0.9),
	}

	m := Calculate(tenantID, testWindow, nil, events, nil)

	assert.Equal(t, 5, m.ConversationsTotal)
	assert.Equal(t, 3, m.ConversationsSpam)
	assert.Equal(t, 2, m.ConversationsValid)
	assert.Equal(t, 60.0, m.SpamRatePct)
	assert.Equal(t, 1, m.ConversationsConverted)
	assert.Equal(t, 20.0, m.ConversionRatePct)
}

func TestSessionGrouping(t *testing.T) {
	// Three events of one session count as one conversation; tokens and cost
	// are summed; the last outcome wins.
	tenantID := uuid.New()
	events := []models.ConversationEvent{
		sessionEvent(tenantID, "s1", "", 0),
		sessionEvent(tenantID, "s1", models.OutcomePriceInquiry, 0.8),
		sessionEvent(tenantID, "s1", models.OutcomeAppointmentCreated, 0.92),
	}

	m := Calculate(tenantID, testWindow, nil, events, nil)

	assert.Equal(t, 1, m.ConversationsTotal)
	assert.Equal(t, 300, m.TokensUsed)
	assert.InDelta(t, 0.03, m.AICostUSD, 1e-9)
	assert.Equal(t, 100.0, m.ConversionRatePct)
	assert.Equal(t, 0, m.ConversationsSpam)
}

func TestBypassRisk(t *testing.T) {
	tenantID := uuid.New()
	var appointments []models.Appointment
	for i := 0; i < 3; i++ {
		a := appt(tenantID, models.StatusConfirmed, 80)
		a.Source = models.SourceExternal
		appointments = append(appointments, a)
	}
	appointments = append(appointments, appt(tenantID, models.StatusConfirmed, 80))

	m := Calculate(tenantID, testWindow, appointments, nil, nil)

	assert.Equal(t, 3, m.AppointmentsExternal)
	assert.Equal(t, 1, m.AppointmentsInternal)
	assert.Equal(t, 75.0, m.BypassRiskPct)
}

func TestLegacyStatusNormalization(t *testing.T) {
	tenantID := uuid.New()
	legacy := appt(tenantID, "canceled", 100)
	garbage := appt(tenantID, "???", 100)

	m := Calculate(tenantID, testWindow, []models.Appointment{legacy, garbage}, nil, nil)

	// The legacy spelling is mapped; the unparseable record is skipped.
	assert.Equal(t, 1, m.AppointmentsTotal)
	assert.Equal(t, 1, m.AppointmentsCancelled)
}

func TestRatesBounded(t *testing.T) {
	tenantID := uuid.New()
	var appointments []models.Appointment
	for i := 0; i < 7; i++ {
		appointments = append(appointments, appt(tenantID, models.StatusCompleted, 33.33))
	}
	var events []models.ConversationEvent
	for i := 0; i < 3; i++ {
		events = append(events, sessionEvent(tenantID, fmt.Sprintf("s-%d", i), models.OutcomeAppointmentCreated, 0.9))
	}

	m := Calculate(tenantID, testWindow, appointments, events, nil)

	for _, p := range m.MetricPairs() {
		if models.RateMetricKeys[p.Key] {
			assert.GreaterOrEqual(t, p.Value, 0.0, "metric %s", p.Key)
			assert.LessOrEqual(t, p.Value, 100.0, "metric %s", p.Key)
		}
	}
}

func TestBillingTotal(t *testing.T) {
	tenantID := uuid.New()
	billing := []models.BillingEvent{
		{ID: uuid.New(), TenantID: tenantID, Amount: 58.0},
		{ID: uuid.New(), TenantID: tenantID, Amount: 116.0},
	}

	m := Calculate(tenantID, testWindow, nil, nil, billing)
	assert.Equal(t, 174.0, m.BillingTotal)
}

func TestDeterminism(t *testing.T) {
	tenantID := uuid.New()
	appointments := []models.Appointment{
		appt(tenantID, models.StatusCompleted, 120),
		appt(tenantID, models.StatusCancelled, 60),
	}
	events := []models.ConversationEvent{
		sessionEvent(tenantID, "s1", models.OutcomeAppointmentCreated, 0.9),
		sessionEvent(tenantID, "s2", "", 0.1),
	}

	a := Calculate(tenantID, testWindow, appointments, events, nil)
	b := Calculate(tenantID, testWindow, appointments, events, nil)
	assert.Equal(t, a, b)
}
