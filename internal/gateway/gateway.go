package gateway

import (
	"context"
	"fmt"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/google/uuid"
)

// FetchError marks a raw data read failure. Fetches are side-effect free, so
// the orchestrator may retry them with backoff.
type FetchError struct {
	TenantID uuid.UUID
	Stream   string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s for tenant %s: %v", e.Stream, e.TenantID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// RawDataGateway is read-only access to the three transactional record
// streams, scoped by tenant and window. Appointments are filtered on
// start_time (the actual service date); conversations and billing on
// created_at. No transactional isolation is assumed across the three calls.
type RawDataGateway interface {
	FetchAppointments(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.Appointment, error)
	FetchConversations(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.ConversationEvent, error)
	FetchBilling(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.BillingEvent, error)
	ListActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error)
}
