package gateway

import (
	"context"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormGateway struct {
	db *gorm.DB
}

// NewGormGateway returns a RawDataGateway backed by the transactional database.
func NewGormGateway(db *gorm.DB) RawDataGateway {
	return &gormGateway{db: db}
}

func (g *gormGateway) FetchAppointments(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.Appointment, error) {
	var appointments []models.Appointment
	err := g.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("start_time >= ? AND start_time < ?", w.Start, w.End).
		Order("start_time ASC").
		Find(&appointments).Error
	if err != nil {
		return nil, &FetchError{TenantID: tenantID, Stream: "appointments", Err: err}
	}
	return appointments, nil
}

func (g *gormGateway) FetchConversations(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.ConversationEvent, error) {
	var events []models.ConversationEvent
	err := g.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("created_at >= ? AND created_at < ?", w.Start, w.End).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, &FetchError{TenantID: tenantID, Stream: "conversations", Err: err}
	}
	return events, nil
}

func (g *gormGateway) FetchBilling(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.BillingEvent, error) {
	var events []models.BillingEvent
	err := g.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Where("created_at >= ? AND created_at < ?", w.Start, w.End).
		Order("created_at ASC").
		Find(&events).Error
	if err != nil {
		return nil, &FetchError{TenantID: tenantID, Stream: "billing", Err: err}
	}
	return events, nil
}

func (g *gormGateway) ListActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := g.db.WithContext(ctx).
		Model(&models.Tenant{}).
		Where("status = ?", "active").
		Order("id ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, &FetchError{Stream: "tenants", Err: err}
	}
	return ids, nil
}
