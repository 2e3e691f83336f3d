package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation outcomes
const (
	OutcomeAppointmentCreated     = "appointment_created"
	OutcomeAppointmentCancelled   = "appointment_cancelled"
	OutcomeAppointmentRescheduled = "appointment_rescheduled"
	OutcomePriceInquiry           = "price_inquiry"
	OutcomeInfoRequest            = "info_request"
	OutcomeBookingAbandoned       = "booking_abandoned"
	OutcomeSpamDetected           = "spam_detected"
	OutcomeWrongNumber            = "wrong_number"
)

// ConversationEvent is one raw message event of a conversational session.
// Events sharing a SessionID belong to the same logical session; the
// calculator groups them before computing session-level metrics.
type ConversationEvent struct {
	ID              uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	SessionID       string    `gorm:"type:text;not null;index" json:"session_id"`
	TenantID        uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID      uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	Outcome         *string   `gorm:"type:text" json:"outcome"`
	ConfidenceScore *float64  `gorm:"type:decimal(4,3)" json:"confidence_score"`
	TokensUsed      int       `gorm:"not null;default:0" json:"tokens_used"`
	APICostUSD      float64   `gorm:"type:decimal(10,6);not null;default:0" json:"api_cost_usd"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (ConversationEvent) TableName() string {
	return "conversation_history"
}

// BeforeCreate sets UUID before creating
func (c *ConversationEvent) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
