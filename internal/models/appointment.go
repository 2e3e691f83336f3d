package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment statuses
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusNoShow      = "no_show"
	StatusRescheduled = "rescheduled"
)

// Appointment sources
const (
	SourceInternal = "internal"
	SourceExternal = "external"
)

// Appointment represents a booked service appointment.
// StartTime is the actual service date; window filtering uses it, not CreatedAt.
type Appointment struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TenantID       uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	CustomerID     uuid.UUID `gorm:"type:uuid;index" json:"customer_id"`
	ProfessionalID uuid.UUID `gorm:"type:uuid;index" json:"professional_id"`
	ServiceID      uuid.UUID `gorm:"type:uuid" json:"service_id"`
	Status         string    `gorm:"type:text;not null;default:'pending';index" json:"status"`
	Source         string    `gorm:"type:text;not null;default:'internal'" json:"source"`
	QuotedPrice    *float64  `gorm:"type:decimal(10,2)" json:"quoted_price"`
	FinalPrice     *float64  `gorm:"type:decimal(10,2)" json:"final_price"`
	StartTime      time.Time `gorm:"not null;index" json:"start_time"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name
func (Appointment) TableName() string {
	return "appointments"
}

// BeforeCreate sets UUID before creating
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// EffectivePrice returns final price, falling back to quoted price, then 0.
func (a *Appointment) EffectivePrice() float64 {
	if a.FinalPrice != nil {
		return *a.FinalPrice
	}
	if a.QuotedPrice != nil {
		return *a.QuotedPrice
	}
	return 0
}
