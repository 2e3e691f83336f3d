package runs

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service records aggregation runs for operational history
type Service struct {
	db *gorm.DB
}

// NewService creates a new run recorder
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Start records a run that has just begun and returns its record.
func (s *Service) Start(ctx context.Context, trigger string, params aggregator.RunParams) (*Record, error) {
	ref := params.Ref
	if ref.IsZero() {
		ref = time.Now().UTC()
	}
	record := &Record{
		Trigger:   trigger,
		Ref:       ref,
		Windows:   strings.Join(params.Windows, ","),
		Status:    StatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}
	return record, nil
}

// Finish closes a run record with its exit report. A nil summary plus a
// non-nil runErr means the run aborted before producing any window results.
func (s *Service) Finish(ctx context.Context, record *Record, summary *aggregator.RunSummary, runErr error) error {
	now := time.Now().UTC()
	record.FinishedAt = &now

	switch {
	case runErr != nil:
		record.Status = StatusError
		record.ErrorReason = runErr.Error()
	case summary != nil && summary.Failed():
		record.Status = StatusPartial
	default:
		record.Status = StatusOK
	}

	if summary != nil {
		record.DurationMillis = summary.Duration.Milliseconds()
		for _, w := range summary.Windows {
			record.TenantsFailed += w.TenantsFailed
			if w.Err != "" {
				record.WindowsFailed++
			}
		}
		if err := record.SetSummary(summary); err != nil {
			utils.LogWarn("run summary not serializable", map[string]interface{}{
				"run_id": record.ID.String(),
				"error":  err.Error(),
			})
		}
	}

	if err := s.db.WithContext(ctx).Save(record).Error; err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// Get retrieves one run record by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	var record Record
	if err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return &record, nil
}

// List retrieves run records with filtering, newest first.
func (s *Service) List(ctx context.Context, filter Filter) ([]Record, error) {
	query := s.db.WithContext(ctx).Model(&Record{})

	if filter.Trigger != "" {
		query = query.Where("trigger = ?", filter.Trigger)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.StartDate != nil {
		query = query.Where("started_at >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		query = query.Where("started_at <= ?", *filter.EndDate)
	}

	limit := filter.Limit
	if limit < 1 {
		limit = 50
	}

	var records []Record
	if err := query.
		Order("started_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return records, nil
}
