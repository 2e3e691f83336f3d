package runs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Run statuses
const (
	StatusRunning = "running"
	StatusOK      = "ok"
	StatusPartial = "partial" // finished, but at least one window failed
	StatusError   = "error"
)

// Run triggers
const (
	TriggerCron   = "cron"
	TriggerAPI    = "api"
	TriggerManual = "manual"
)

// Record represents one aggregation run, from start to exit report
type Record struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	// Context
	Trigger string    `json:"trigger" gorm:"type:text;not null;index"` // cron, api, manual
	Ref     time.Time `json:"ref" gorm:"not null"`
	Windows string    `json:"windows" gorm:"type:text;not null"` // comma-joined window labels

	// Outcome
	Status         string         `json:"status" gorm:"type:text;not null;index"`
	TenantsFailed  int            `json:"tenants_failed" gorm:"not null;default:0"`
	WindowsFailed  int            `json:"windows_failed" gorm:"not null;default:0"`
	ErrorReason    string         `json:"error_reason,omitempty" gorm:"type:text"`
	DurationMillis int64          `json:"duration_ms" gorm:"column:duration_ms;type:bigint"`
	Summary        datatypes.JSON `json:"summary,omitempty" gorm:"type:jsonb"` // full exit report

	// Timestamps
	StartedAt  time.Time  `json:"started_at" gorm:"not null;index"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// TableName specifies the table name
func (Record) TableName() string {
	return "aggregation_runs"
}

// BeforeCreate sets UUID before creating
func (r *Record) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// SetSummary serializes the run's exit report into the record.
func (r *Record) SetSummary(summary *aggregator.RunSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to serialize run summary: %w", err)
	}
	r.Summary = raw
	return nil
}

// Filter represents filters for querying run records
type Filter struct {
	Trigger   string
	Status    string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}
