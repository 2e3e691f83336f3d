package store

import (
	"context"
	"errors"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormStore struct {
	db *gorm.DB
}

// NewGormStore returns a MetricsStore backed by the metrics database.
func NewGormStore(db *gorm.DB) MetricsStore {
	return &gormStore{db: db}
}

func (s *gormStore) PutTenantSnapshot(ctx context.Context, snapshot *models.TenantMetricSnapshot) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.TenantMetricSnapshot
		err := tx.Where("tenant_id = ? AND period = ?", snapshot.TenantID, snapshot.Period).
			First(&current).Error

		switch {
		case err == nil:
			// Archive the replaced row, then replace in place. Both writes
			// commit together, so readers see old or new, never a mix.
			history := models.TenantMetricHistory{
				TenantID:     current.TenantID,
				Period:       current.Period,
				PeriodStart:  current.PeriodStart,
				PeriodEnd:    current.PeriodEnd,
				CalculatedAt: current.CalculatedAt,
				Version:      current.Version,
				Status:       current.Status,
				Metrics:      current.Metrics,
				ReplacedAt:   time.Now().UTC(),
			}
			if err := tx.Create(&history).Error; err != nil {
				return err
			}
			snapshot.ID = current.ID
			snapshot.Version = current.Version + 1
			return tx.Model(&models.TenantMetricSnapshot{}).
				Where("id = ?", current.ID).
				Updates(map[string]interface{}{
					"period_start":  snapshot.PeriodStart,
					"period_end":    snapshot.PeriodEnd,
					"calculated_at": snapshot.CalculatedAt,
					"version":       snapshot.Version,
					"status":        snapshot.Status,
					"error_reason":  snapshot.ErrorReason,
					"metrics":       snapshot.Metrics,
				}).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			snapshot.Version = 1
			return tx.Create(snapshot).Error

		default:
			return err
		}
	})
	if err != nil {
		return &PersistenceError{Op: "put tenant snapshot", Err: err}
	}
	return nil
}

func (s *gormStore) PutPlatformSnapshot(ctx context.Context, snapshot *models.PlatformMetricSnapshot) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.PlatformMetricSnapshot
		err := tx.Where("period = ?", snapshot.Period).First(&current).Error

		switch {
		case err == nil:
			snapshot.ID = current.ID
			snapshot.Version = current.Version + 1
			return tx.Model(&models.PlatformMetricSnapshot{}).
				Where("id = ?", current.ID).
				Updates(map[string]interface{}{
					"period_start":      snapshot.PeriodStart,
					"period_end":        snapshot.PeriodEnd,
					"calculated_at":     snapshot.CalculatedAt,
					"version":           snapshot.Version,
					"totals":            snapshot.Totals,
					"participation":     snapshot.Participation,
					"ranking":           snapshot.Ranking,
					"tenants_processed": snapshot.TenantsProcessed,
					"tenants_excluded":  snapshot.TenantsExcluded,
				}).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			snapshot.Version = 1
			return tx.Create(snapshot).Error

		default:
			return err
		}
	})
	if err != nil {
		return &PersistenceError{Op: "put platform snapshot", Err: err}
	}
	return nil
}

func (s *gormStore) MarkTenantFailed(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow, reason string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.TenantMetricSnapshot
		err := tx.Where("tenant_id = ? AND period = ?", tenantID, w.Label).First(&current).Error

		switch {
		case err == nil:
			// Keep the last good metrics payload; only flag the run failure.
			return tx.Model(&models.TenantMetricSnapshot{}).
				Where("id = ?", current.ID).
				Updates(map[string]interface{}{
					"status":       models.SnapshotError,
					"error_reason": reason,
				}).Error

		case errors.Is(err, gorm.ErrRecordNotFound):
			failed := models.TenantMetricSnapshot{
				TenantID:     tenantID,
				Period:       w.Label,
				PeriodStart:  w.Start,
				PeriodEnd:    w.End,
				CalculatedAt: time.Now().UTC(),
				Version:      1,
				Status:       models.SnapshotError,
				ErrorReason:  reason,
			}
			return tx.Create(&failed).Error

		default:
			return err
		}
	})
	if err != nil {
		return &PersistenceError{Op: "mark tenant failed", Err: err}
	}
	return nil
}

func (s *gormStore) GetCurrent(ctx context.Context, tenantID uuid.UUID, label string) (*models.TenantMetricSnapshot, error) {
	var snapshot models.TenantMetricSnapshot
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, label).
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get current", Err: err}
	}
	return &snapshot, nil
}

func (s *gormStore) GetHistory(ctx context.Context, tenantID uuid.UUID, label string, limit int) ([]models.TenantMetricHistory, error) {
	if limit <= 0 {
		limit = 20
	}
	var history []models.TenantMetricHistory
	err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND period = ?", tenantID, label).
		Order("replaced_at DESC").
		Limit(limit).
		Find(&history).Error
	if err != nil {
		return nil, &PersistenceError{Op: "get history", Err: err}
	}
	return history, nil
}

func (s *gormStore) GetPlatformCurrent(ctx context.Context, label string) (*models.PlatformMetricSnapshot, error) {
	var snapshot models.PlatformMetricSnapshot
	err := s.db.WithContext(ctx).Where("period = ?", label).First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, &PersistenceError{Op: "get platform current", Err: err}
	}
	return &snapshot, nil
}

func (s *gormStore) GetWindowSnapshots(ctx context.Context, label string) ([]models.TenantMetricSnapshot, error) {
	var snapshots []models.TenantMetricSnapshot
	err := s.db.WithContext(ctx).
		Where("period = ? AND status = ?", label, models.SnapshotOK).
		Order("tenant_id ASC").
		Find(&snapshots).Error
	if err != nil {
		return nil, &PersistenceError{Op: "get window snapshots", Err: err}
	}
	return snapshots, nil
}

func (s *gormStore) CountWindowFailures(ctx context.Context, label string) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.TenantMetricSnapshot{}).
		Where("period = ? AND status = ?", label, models.SnapshotError).
		Count(&count).Error
	if err != nil {
		return 0, &PersistenceError{Op: "count window failures", Err: err}
	}
	return int(count), nil
}
