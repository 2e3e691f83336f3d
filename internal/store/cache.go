package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Marseau/ubs-metrics-engine/internal/models"
	"github.com/Marseau/ubs-metrics-engine/internal/utils"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RedisClient is the subset of redis.Client commands the cache needs.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedStore decorates a MetricsStore with a Redis read cache for current
// snapshots. Dashboards hit GetCurrent/GetPlatformCurrent continuously; the
// cache absorbs that load. Cache failures fall through to the database and
// never fail a read. Writes invalidate before delegating.
type CachedStore struct {
	inner  MetricsStore
	client RedisClient
	ttl    time.Duration
}

// NewCachedStore wraps inner with a Redis cache using the given TTL.
func NewCachedStore(inner MetricsStore, client RedisClient, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

func tenantKey(tenantID uuid.UUID, label string) string {
	return fmt.Sprintf("metrics:tenant:%s:%s", tenantID, label)
}

func platformKey(label string) string {
	return fmt.Sprintf("metrics:platform:%s", label)
}

func (c *CachedStore) PutTenantSnapshot(ctx context.Context, snapshot *models.TenantMetricSnapshot) error {
	c.invalidate(ctx, tenantKey(snapshot.TenantID, snapshot.Period))
	return c.inner.PutTenantSnapshot(ctx, snapshot)
}

func (c *CachedStore) PutPlatformSnapshot(ctx context.Context, snapshot *models.PlatformMetricSnapshot) error {
	c.invalidate(ctx, platformKey(snapshot.Period))
	return c.inner.PutPlatformSnapshot(ctx, snapshot)
}

func (c *CachedStore) MarkTenantFailed(ctx context.Context, tenantID uuid.UUID, w models.TimeWindow, reason string) error {
	c.invalidate(ctx, tenantKey(tenantID, w.Label))
	return c.inner.MarkTenantFailed(ctx, tenantID, w, reason)
}

func (c *CachedStore) GetCurrent(ctx context.Context, tenantID uuid.UUID, label string) (*models.TenantMetricSnapshot, error) {
	key := tenantKey(tenantID, label)
	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var snapshot models.TenantMetricSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err == nil {
			return &snapshot, nil
		}
	}

	snapshot, err := c.inner.GetCurrent(ctx, tenantID, label)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, snapshot)
	return snapshot, nil
}

func (c *CachedStore) GetPlatformCurrent(ctx context.Context, label string) (*models.PlatformMetricSnapshot, error) {
	key := platformKey(label)
	if raw, err := c.client.Get(ctx, key).Result(); err == nil {
		var snapshot models.PlatformMetricSnapshot
		if err := json.Unmarshal([]byte(raw), &snapshot); err == nil {
			return &snapshot, nil
		}
	}

	snapshot, err := c.inner.GetPlatformCurrent(ctx, label)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, snapshot)
	return snapshot, nil
}

func (c *CachedStore) GetHistory(ctx context.Context, tenantID uuid.UUID, label string, limit int) ([]models.TenantMetricHistory, error) {
	return c.inner.GetHistory(ctx, tenantID, label, limit)
}

func (c *CachedStore) GetWindowSnapshots(ctx context.Context, label string) ([]models.TenantMetricSnapshot, error) {
	return c.inner.GetWindowSnapshots(ctx, label)
}

func (c *CachedStore) CountWindowFailures(ctx context.Context, label string) (int, error) {
	return c.inner.CountWindowFailures(ctx, label)
}

func (c *CachedStore) set(ctx context.Context, key string, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		utils.LogWarn("snapshot cache set failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
	}
}

func (c *CachedStore) invalidate(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil && err != redis.Nil {
		utils.LogWarn("snapshot cache invalidation failed", map[string]interface{}{
			"key": key, "error": err.Error(),
		})
	}
}
