package runs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testService(t *testing.T) *Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Record{}))
	return NewService(db)
}

func TestRunLifecycleOK(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	record, err := svc.Start(ctx, TriggerCron, aggregator.RunParams{Windows: []string{models.Window7d, models.Window30d}})
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, record.Status)
	assert.Equal(t, "7d,30d", record.Windows)

	summary := &aggregator.RunSummary{
		StartedAt: time.Now().UTC(),
		Duration:  1500 * time.Millisecond,
		Windows: []aggregator.WindowResult{
			{TenantsProcessed: 10},
			{TenantsProcessed: 9, TenantsFailed: 1, FailedTenantIDs: []string{"x"}},
		},
	}
	require.NoError(t, svc.Finish(ctx, record, summary, nil))

	stored, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, stored.Status)
	assert.Equal(t, 1, stored.TenantsFailed)
	assert.Equal(t, 0, stored.WindowsFailed)
	assert.Equal(t, int64(1500), stored.DurationMillis)
	assert.NotNil(t, stored.FinishedAt)
	assert.NotEmpty(t, stored.Summary)
}

func TestRunMarkedPartialOnWindowFailure(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	record, err := svc.Start(ctx, TriggerAPI, aggregator.RunParams{Windows: []string{models.Window7d}})
	require.NoError(t, err)

	summary := &aggregator.RunSummary{
		Windows: []aggregator.WindowResult{{Err: "platform aggregation failed"}},
	}
	require.NoError(t, svc.Finish(ctx, record, summary, nil))

	stored, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, stored.Status)
	assert.Equal(t, 1, stored.WindowsFailed)
}

func TestRunMarkedErrorOnAbort(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	record, err := svc.Start(ctx, TriggerManual, aggregator.RunParams{})
	require.NoError(t, err)
	require.NoError(t, svc.Finish(ctx, record, nil, errors.New("context canceled")))

	stored, err := svc.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusError, stored.Status)
	assert.Equal(t, "context canceled", stored.ErrorReason)
}

func TestListFiltersByStatus(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	ok, err := svc.Start(ctx, TriggerCron, aggregator.RunParams{})
	require.NoError(t, err)
	require.NoError(t, svc.Finish(ctx, ok, &aggregator.RunSummary{}, nil))

	failed, err := svc.Start(ctx, TriggerCron, aggregator.RunParams{})
	require.NoError(t, err)
	require.NoError(t, svc.Finish(ctx, failed, nil, errors.New("boom")))

	records, err := svc.List(ctx, Filter{Status: StatusError})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, failed.ID, records[0].ID)
}
