package client

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/boxscan/scan-service/internal/scan/domain"
	"github.com/boxscan/scan-service/pkg/logger"
	"github.com/boxscan/scan-service/pkg/tenant"
	"github.com/redis/go-redis/v9"
)

const storeCacheKeyPrefix = "boxscan:stores:active:"

// StoreLister is anything that can list active stores
type StoreLister interface {
	ListActiveStores(ctx context.Context) ([]domain.Store, error)
}

// CachedStoreDirectory caches the active store list per tenant in Redis.
// Only the store list is cached; inventory is always read fresh.
// Redis failures fall through to the upstream directory.
type CachedStoreDirectory struct {
	upstream StoreLister
	rdb      *redis.Client
	ttl      time.Duration
	logger   *logger.Logger
}

// NewCachedStoreDirectory wraps upstream with a Redis cache
func NewCachedStoreDirectory(upstream StoreLister, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedStoreDirectory {
	return &CachedStoreDirectory{
		upstream: upstream,
		rdb:      rdb,
		ttl:      ttl,
		logger:   log.WithComponent("store-cache"),
	}
}

// StoreCacheKey is the Redis key of a tenant's active store list
func StoreCacheKey(tenantID string) string {
	if tenantID == "" {
		tenantID = "default"
	}
	return storeCacheKeyPrefix + tenantID
}

func cacheKeyFor(ctx context.Context) string {
	tenantID, _ := tenant.TenantID(ctx)
	return StoreCacheKey(tenantID)
}

// ListActiveStores serves from cache when possible
func (c *CachedStoreDirectory) ListActiveStores(ctx context.Context) ([]domain.Store, error) {
	key := cacheKeyFor(ctx)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var stores []domain.Store
		if jsonErr := json.Unmarshal(raw, &stores); jsonErr == nil {
			return stores, nil
		}
		c.logger.Warn().Str("key", key).Msg("discarding undecodable store cache entry")
	case errors.Is(err, redis.Nil):
		// miss
	default:
		c.logger.Warn().Err(err).Msg("store cache read failed, using directory")
	}

	stores, err := c.upstream.ListActiveStores(ctx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(stores); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn().Err(err).Msg("store cache write failed")
		}
	}

	return stores, nil
}

// InvalidateTenant drops the cached store list of one tenant.
// An empty tenantID falls back to the tenant in ctx.
func (c *CachedStoreDirectory) InvalidateTenant(ctx context.Context, tenantID string) error {
	key := StoreCacheKey(tenantID)
	if tenantID == "" {
		key = cacheKeyFor(ctx)
	}
	return c.rdb.Del(ctx, key).Err()
}
