// Package ratelimit provides a Redis-backed call budget shared by every
// replica that talks to the same upstream provider.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default budget configuration values.
const (
	DefaultLimit     = 25 // calls per window, below the public CoinGecko allowance
	DefaultWindow    = time.Minute
	DefaultKeyPrefix = "budget:coingecko:"
)

// consumeScript atomically checks and increments the counter of the current
// window. Returns {allowed, used}.
var consumeScript = redis.NewScript(`
	local key = KEYS[1]
	local n = tonumber(ARGV[1])
	local limit = tonumber(ARGV[2])
	local ttl = tonumber(ARGV[3])

	local used = tonumber(redis.call('GET', key) or '0')
	if used + n > limit then
		return {0, used}
	end

	used = redis.call('INCRBY', key, n)
	redis.call('PEXPIRE', key, ttl)
	return {1, used}
`)

// BudgetConfig holds configuration for the shared budget.
type BudgetConfig struct {
	// Redis is the client used for cross-replica coordination. Required.
	Redis redis.Cmdable

	// Limit is the number of calls allowed per window. Default: 25.
	Limit int

	// Window is the fixed window length. Default: 1m.
	Window time.Duration

	// KeyPrefix namespaces the window counters. Default: budget:coingecko:.
	KeyPrefix string
}

// Validate checks if the configuration is valid.
func (c *BudgetConfig) Validate() error {
	if c.Redis == nil {
		return errors.New("redis client is required")
	}
	if c.Limit < 0 {
		return errors.New("limit cannot be negative")
	}
	if c.Window < 0 {
		return errors.New("window cannot be negative")
	}
	return nil
}

// BudgetUsage is a snapshot of the current window.
type BudgetUsage struct {
	Used        int       `json:"used"`
	Limit       int       `json:"limit"`
	WindowStart time.Time `json:"windowStart"`
}

// SharedBudget counts upstream calls in fixed windows stored in Redis, so
// that all replicas together stay under the provider's allowance.
type SharedBudget struct {
	redis     redis.Cmdable
	limit     int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

// NewSharedBudget creates a budget with the given configuration.
func NewSharedBudget(cfg *BudgetConfig) (*SharedBudget, error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	b := &SharedBudget{
		redis:     cfg.Redis,
		limit:     cfg.Limit,
		window:    cfg.Window,
		keyPrefix: cfg.KeyPrefix,
		now:       time.Now,
	}
	if b.limit == 0 {
		b.limit = DefaultLimit
	}
	if b.window == 0 {
		b.window = DefaultWindow
	}
	if b.keyPrefix == "" {
		b.keyPrefix = DefaultKeyPrefix
	}
	return b, nil
}

// windowStart aligns t to the window boundary.
func (b *SharedBudget) windowStart(t time.Time) time.Time {
	return t.Truncate(b.window)
}

func (b *SharedBudget) key(start time.Time) string {
	return b.keyPrefix + strconv.FormatInt(start.UnixMilli(), 10)
}

// TryConsume takes n calls from the current window. When the window is
// exhausted it returns false and the time until the next window opens.
// Redis failures are returned as errors; the caller decides whether to
// proceed without the budget.
func (b *SharedBudget) TryConsume(ctx context.Context, n int) (bool, time.Duration, error) {
	if n <= 0 {
		return true, 0, nil
	}

	start := b.windowStart(b.now())
	// Keys outlive their window by one window so late readers still see them.
	ttl := (2 * b.window).Milliseconds()

	result, err := consumeScript.Run(ctx, b.redis, []string{b.key(start)}, n, b.limit, ttl).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("failed to consume budget: %w", err)
	}

	if result[0] == 1 {
		return true, 0, nil
	}
	return false, b.waitTime(start), nil
}

// waitTime returns the time until the window after start begins.
func (b *SharedBudget) waitTime(start time.Time) time.Duration {
	wait := start.Add(b.window).Sub(b.now())
	if wait < 0 {
		wait = 0
	}
	return wait + time.Millisecond
}

// Usage returns the consumption of the current window.
func (b *SharedBudget) Usage(ctx context.Context) (*BudgetUsage, error) {
	start := b.windowStart(b.now())

	used, err := b.redis.Get(ctx, b.key(start)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read budget usage: %w", err)
	}

	return &BudgetUsage{Used: used, Limit: b.limit, WindowStart: start}, nil
}

// Limit returns the configured calls per window.
func (b *SharedBudget) Limit() int {
	return b.limit
}

// Window returns the configured window length.
func (b *SharedBudget) Window() time.Duration {
	return b.window
}
