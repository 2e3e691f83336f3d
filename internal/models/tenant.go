package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tenant represents a business operating on the platform
type Tenant struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	BusinessName string    `gorm:"type:text;not null" json:"business_name"`
	Domain       string    `gorm:"type:text" json:"domain"`
	Status       string    `gorm:"type:text;not null;default:'active';index" json:"status"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name
func (Tenant) TableName() string {
	return "tenants"
}

// BeforeCreate sets UUID before creating
func (t *Tenant) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
