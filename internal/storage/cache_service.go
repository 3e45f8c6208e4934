package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/types"
)

// CacheService stores upstream market pages in Redis. It never holds user state.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// CacheKeyType represents different types of cache keys
type CacheKeyType string

const (
	// CacheKeyMarket is for market list pages
	CacheKeyMarket CacheKeyType = "market"
)

// GenerateCacheKey generates a cache key for a given type and parameters
// Format: <type>:<param1>:<param2>:...
func (c *CacheService) GenerateCacheKey(keyType CacheKeyType, params ...string) string {
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, string(keyType))
	for _, p := range params {
		parts = append(parts, strings.ToLower(p))
	}
	return strings.Join(parts, ":")
}

// GenerateMarketKey generates the key of a market page
// Format: market:page:<n>
func (c *CacheService) GenerateMarketKey(page int) string {
	return c.GenerateCacheKey(CacheKeyMarket, "page", strconv.Itoa(page))
}

// CachedMarketPage is the cached form of one upstream market page
type CachedMarketPage struct {
	Page     int           `json:"page"`
	Assets   []types.Asset `json:"assets"`
	CachedAt time.Time     `json:"cachedAt"`
}

// SetMarketPage caches an upstream page with the configured TTL
func (c *CacheService) SetMarketPage(ctx context.Context, page int, assets []types.Asset) error {
	entry := CachedMarketPage{Page: page, Assets: assets, CachedAt: time.Now().UTC()}
	return c.Set(ctx, c.GenerateMarketKey(page), entry)
}

// GetMarketPage returns the cached page, or false on a miss
func (c *CacheService) GetMarketPage(ctx context.Context, page int) (*CachedMarketPage, bool, error) {
	var entry CachedMarketPage
	found, err := c.Get(ctx, c.GenerateMarketKey(page), &entry)
	if err != nil || !found {
		return nil, false, err
	}
	return &entry, true, nil
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := c.redis.Set(ctx, key, data, c.ttl); err != nil {
		return apperrors.NewCacheError("set", err)
	}
	return nil
}

// Get retrieves a value from cache and deserializes it into dest
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, apperrors.NewCacheError("get", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidateMarket drops every cached market page
func (c *CacheService) InvalidateMarket(ctx context.Context) error {
	keys, err := c.redis.Scan(ctx, string(CacheKeyMarket)+":*")
	if err != nil {
		return apperrors.NewCacheError("scan", err)
	}
	return c.Invalidate(ctx, keys...)
}
