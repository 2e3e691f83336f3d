package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot statuses
const (
	SnapshotOK    = "ok"
	SnapshotError = "error"
)

// TenantMetricSnapshot is the current computed metric set for one tenant and
// one window label. Exactly one row exists per (tenant_id, period);
// recomputation replaces it atomically with an incremented version.
type TenantMetricSnapshot struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_period" json:"tenant_id"`
	Period       string         `gorm:"type:text;not null;uniqueIndex:idx_tenant_period" json:"period"`
	PeriodStart  time.Time      `gorm:"not null" json:"period_start"`
	PeriodEnd    time.Time      `gorm:"not null" json:"period_end"`
	CalculatedAt time.Time      `gorm:"not null;index" json:"calculated_at"`
	Version      int            `gorm:"not null;default:1" json:"version"`
	Status       string         `gorm:"type:text;not null;default:'ok'" json:"status"`
	ErrorReason  string         `gorm:"type:text" json:"error_reason,omitempty"`
	Metrics      datatypes.JSON `gorm:"type:jsonb" json:"metrics"`
}

// TableName specifies the table name
func (TenantMetricSnapshot) TableName() string {
	return "tenant_metrics"
}

// BeforeCreate sets UUID before creating
func (s *TenantMetricSnapshot) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SetMetrics serializes the metric set into the snapshot.
func (s *TenantMetricSnapshot) SetMetrics(m TenantMetrics) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize metrics: %w", err)
	}
	s.Metrics = raw
	return nil
}

// MetricSet deserializes the stored metric set.
func (s *TenantMetricSnapshot) MetricSet() (TenantMetrics, error) {
	var m TenantMetrics
	if len(s.Metrics) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(s.Metrics, &m); err != nil {
		return m, fmt.Errorf("failed to parse stored metrics: %w", err)
	}
	return m, nil
}

// TenantMetricHistory is an immutable copy of a replaced current snapshot,
// appended on every upsert so historical reads survive recomputation.
type TenantMetricHistory struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	TenantID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_history_tenant_period" json:"tenant_id"`
	Period       string         `gorm:"type:text;not null;index:idx_history_tenant_period" json:"period"`
	PeriodStart  time.Time      `gorm:"not null" json:"period_start"`
	PeriodEnd    time.Time      `gorm:"not null" json:"period_end"`
	CalculatedAt time.Time      `gorm:"not null" json:"calculated_at"`
	Version      int            `gorm:"not null" json:"version"`
	Status       string         `gorm:"type:text;not null" json:"status"`
	Metrics      datatypes.JSON `gorm:"type:jsonb" json:"metrics"`
	ReplacedAt   time.Time      `gorm:"not null;index" json:"replaced_at"`
}

// TableName specifies the table name
func (TenantMetricHistory) TableName() string {
	return "tenant_metrics_history"
}

// BeforeCreate sets UUID before creating
func (h *TenantMetricHistory) BeforeCreate(tx *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// PlatformMetricSnapshot is the platform-wide reduction for one window label.
// Exactly one row exists per period; replacement bumps the version.
type PlatformMetricSnapshot struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Period        string         `gorm:"type:text;not null;uniqueIndex" json:"period"`
	PeriodStart   time.Time      `gorm:"not null" json:"period_start"`
	PeriodEnd     time.Time      `gorm:"not null" json:"period_end"`
	CalculatedAt  time.Time      `gorm:"not null;index" json:"calculated_at"`
	Version       int            `gorm:"not null;default:1" json:"version"`
	Totals        datatypes.JSON `gorm:"type:jsonb" json:"totals"`
	Participation datatypes.JSON `gorm:"type:jsonb" json:"participation"`
	Ranking       datatypes.JSON `gorm:"type:jsonb" json:"ranking"`

	TenantsProcessed int `gorm:"not null;default:0" json:"tenants_processed"`
	TenantsExcluded  int `gorm:"not null;default:0" json:"tenants_excluded"`
}

// TableName specifies the table name
func (PlatformMetricSnapshot) TableName() string {
	return "platform_metrics"
}

// BeforeCreate sets UUID before creating
func (p *PlatformMetricSnapshot) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// SetTotals serializes the platform totals.
func (p *PlatformMetricSnapshot) SetTotals(t PlatformTotals) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to serialize totals: %w", err)
	}
	p.Totals = raw
	return nil
}

// TotalSet deserializes the stored platform totals.
func (p *PlatformMetricSnapshot) TotalSet() (PlatformTotals, error) {
	var t PlatformTotals
	if len(p.Totals) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(p.Totals, &t); err != nil {
		return t, fmt.Errorf("failed to parse stored totals: %w", err)
	}
	return t, nil
}

// SetParticipation serializes the per-tenant revenue shares.
func (p *PlatformMetricSnapshot) SetParticipation(shares map[string]float64) error {
	raw, err := json.Marshal(shares)
	if err != nil {
		return fmt.Errorf("failed to serialize participation: %w", err)
	}
	p.Participation = raw
	return nil
}

// ParticipationSet deserializes the stored per-tenant revenue shares.
func (p *PlatformMetricSnapshot) ParticipationSet() (map[string]float64, error) {
	shares := map[string]float64{}
	if len(p.Participation) == 0 {
		return shares, nil
	}
	if err := json.Unmarshal(p.Participation, &shares); err != nil {
		return nil, fmt.Errorf("failed to parse stored participation: %w", err)
	}
	return shares, nil
}

// SetRanking serializes the ranking list.
func (p *PlatformMetricSnapshot) SetRanking(entries []RankingEntry) error {
	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to serialize ranking: %w", err)
	}
	p.Ranking = raw
	return nil
}

// RankingSet deserializes the stored ranking list.
func (p *PlatformMetricSnapshot) RankingSet() ([]RankingEntry, error) {
	var entries []RankingEntry
	if len(p.Ranking) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(p.Ranking, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse stored ranking: %w", err)
	}
	return entries, nil
}
