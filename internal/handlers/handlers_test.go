package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/aggregator"
	"github.com/Marseau/ubs-metrics-engine/internal/database"
	"github.com/Marseau/ubs-metrics-engine/internal/gateway"
	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/Marseau/ubs-metrics-engine/internal/runs"
	"github.com/Marseau/ubs-metrics-engine/internal/store"
	"github.com/Marseau/ubs-metrics-engine/internal/validator"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type stubGateway struct {
	tenants      []uuid.UUID
	appointments map[uuid.UUID][]models.Appointment
}

func (s *stubGateway) FetchAppointments(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.Appointment, error) {
	return s.appointments[tenantID], nil
}

func (s *stubGateway) FetchConversations(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.ConversationEvent, error) {
	return nil, nil
}

func (s *stubGateway) FetchBilling(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow) ([]models.BillingEvent, error) {
	return nil, nil
}

func (s *stubGateway) ListActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	return s.tenants, nil
}

var _ gateway.RawDataGateway = (*stubGateway)(nil)

type testEnv struct {
	app      *fiber.App
	gateway  *stubGateway
	store    store.MetricsStore
	db       *gorm.DB
	tenantID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gormDB, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(
		&models.TenantMetricSnapshot{},
		&models.TenantMetricHistory{},
		&models.PlatformMetricSnapshot{},
		&runs.Record{},
	))
	sqlDB, err := gormDB.DB()
	require.NoError(t, err)

	tenantID := uuid.New()
	price := 150.0
	gw := &stubGateway{
		tenants: []uuid.UUID{tenantID},
		appointments: map[uuid.UUID][]models.Appointment{
			tenantID: {{
				ID:         uuid.New(),
				TenantID:   tenantID,
				CustomerID: uuid.New(),
				Status:     models.StatusCompleted,
				Source:     models.SourceInternal,
				FinalPrice: &price,
				StartTime:  time.Now().UTC().Add(-24 * time.Hour),
			}},
		},
	}

	st := store.NewGormStore(gormDB)
	orch := aggregator.New(gw, st, aggregator.Config{
		Concurrency:    2,
		TenantTimeout:  5 * time.Second,
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	})
	v := validator.New(gw, st)
	recorder := runs.NewService(gormDB)

	app := fiber.New()
	Register(app,
		NewHealthHandler(&database.DB{DB: sqlDB, GORM: gormDB}),
		NewMetricsHandler(st),
		NewRunHandler(orch, v, recorder),
	)

	return &testEnv{app: app, gateway: gw, store: st, db: gormDB, tenantID: tenantID}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, 10000)
	require.NoError(t, err)

	var parsed map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &parsed))
	}
	return resp, parsed
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := doJSON(t, env.app, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestTriggerRunThenFetchMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/runs", map[string]interface{}{
		"windows": []string{models.Window30d},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["run_id"])

	path := fmt.Sprintf("/api/metrics/tenants/%s?period=30d", env.tenantID)
	resp, body = doJSON(t, env.app, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	metrics, ok := body["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), metrics["appointments_total"])
	assert.Equal(t, float64(150), metrics["revenue_total"])

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/metrics/platform?period=30d", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals, ok := body["totals"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(150), totals["revenue_total"])
}

func TestGetTenantMetricsNotFound(t *testing.T) {
	env := newTestEnv(t)
	path := fmt.Sprintf("/api/metrics/tenants/%s?period=7d", uuid.New())
	resp, _ := doJSON(t, env.app, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidPeriodRejected(t *testing.T) {
	env := newTestEnv(t)
	path := fmt.Sprintf("/api/metrics/tenants/%s?period=365d", env.tenantID)
	resp, body := doJSON(t, env.app, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid period", body["error"])
}

func TestTriggerRunRejectsBadWindow(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/runs", map[string]interface{}{
		"windows": []string{"14d"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunIsRecordedAndListed(t *testing.T) {
	env := newTestEnv(t)

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/runs", map[string]interface{}{
		"windows": []string{models.Window7d},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	runID, ok := body["run_id"].(string)
	require.True(t, ok)

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/runs/"+runID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, runs.StatusOK, body["status"])
	assert.Equal(t, runs.TriggerAPI, body["trigger"])

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/runs?status=ok", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list, ok := body["runs"].([]interface{})
	require.True(t, ok)
	assert.Len(t, list, 1)
}

func TestListRunsDateRange(t *testing.T) {
	env := newTestEnv(t)

	old := runs.Record{
		Trigger:   runs.TriggerCron,
		Ref:       time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC),
		Windows:   models.Window7d,
		Status:    runs.StatusOK,
		StartedAt: time.Date(2025, 8, 1, 3, 0, 0, 0, time.UTC),
	}
	recent := runs.Record{
		Trigger:   runs.TriggerCron,
		Ref:       time.Date(2025, 8, 20, 3, 0, 0, 0, time.UTC),
		Windows:   models.Window7d,
		Status:    runs.StatusOK,
		StartedAt: time.Date(2025, 8, 20, 3, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.db.Create(&old).Error)
	require.NoError(t, env.db.Create(&recent).Error)

	resp, body := doJSON(t, env.app, http.MethodGet,
		"/api/runs?from=2025-08-10T00:00:00Z&to=2025-08-25T00:00:00Z", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list, ok := body["runs"].([]interface{})
	require.True(t, ok)
	require.Len(t, list, 1)
	entry, ok := list[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, recent.ID.String(), entry["id"])

	resp, body = doJSON(t, env.app, http.MethodGet, "/api/runs?from=not-a-date", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body["error"], "RFC3339")
}

func TestValidateEndpointReportsDrift(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := doJSON(t, env.app, http.MethodPost, "/api/runs", map[string]interface{}{
		"windows": []string{models.Window30d},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Tamper with the stored snapshot so the validator has drift to find.
	snapshot, err := env.store.GetCurrent(context.Background(), env.tenantID, models.Window30d)
	require.NoError(t, err)
	metrics, err := snapshot.MetricSet()
	require.NoError(t, err)
	metrics.RevenueTotal += 99
	require.NoError(t, snapshot.SetMetrics(metrics))
	require.NoError(t, env.store.PutTenantSnapshot(context.Background(), snapshot))

	resp, body := doJSON(t, env.app, http.MethodPost, "/api/validate", map[string]interface{}{
		"windows":    []string{models.Window30d},
		"tenant_ids": []string{env.tenantID.String()},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["tenants_checked"])
	warnings, ok := body["warnings"].([]interface{})
	require.True(t, ok)
	require.Len(t, warnings, 1)
	first := warnings[0].(map[string]interface{})
	assert.Equal(t, "revenue_total", first["metric"])
}
