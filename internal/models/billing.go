package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BillingEvent represents a realized platform charge against a tenant,
// independent of appointment pricing.
type BillingEvent struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	TenantID  uuid.UUID `gorm:"type:uuid;not null;index" json:"tenant_id"`
	Amount    float64   `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// TableName specifies the table name
func (BillingEvent) TableName() string {
	return "billing_events"
}

// BeforeCreate sets UUID before creating
func (b *BillingEvent) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}
