package worker

import (
	"context"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedna-dashboard/internal/config"
	"github.com/sedna-dashboard/internal/types"
)

var shortAddr = regexp.MustCompile(`^0x[0-9a-f]{4}\.\.\.$`)

func testFeedConfig() config.FeedConfig {
	return config.FeedConfig{Interval: 5 * time.Millisecond, Seed: 5, History: 7}
}

func seeded(seed uint64) WhaleFeedOption {
	return WithFeedRand(rand.New(rand.NewPCG(seed, seed)))
}

func TestGenerateWhaleTx_Shape(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	now := time.Date(2025, 11, 24, 14, 30, 0, 0, time.UTC)

	tx := GenerateWhaleTx(rng, now)

	assert.Len(t, tx.ID, 8)
	assert.Regexp(t, shortAddr, tx.From)
	assert.Regexp(t, shortAddr, tx.To)
	assert.Equal(t, "Just now", tx.Time)
	assert.Equal(t, now, tx.CreatedAt)
	assert.Contains(t, []types.WhaleCurrency{types.CurrencyBTC, types.CurrencyETH}, tx.Currency)
	assert.LessOrEqual(t, -tx.Amount.Exponent(), int32(4), "rounded to 4 decimals")
}

func TestGenerateWhaleTx_Deterministic(t *testing.T) {
	now := time.Unix(0, 0)
	a := GenerateWhaleTx(rand.New(rand.NewPCG(9, 9)), now)
	b := GenerateWhaleTx(rand.New(rand.NewPCG(9, 9)), now)
	assert.Equal(t, a, b)
}

func TestGenerateWhaleTx_AmountRanges(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("amounts fall in the bucket of their class and currency", prop.ForAll(
		func(seed uint64) bool {
			tx := GenerateWhaleTx(rand.New(rand.NewPCG(seed, seed^1)), time.Unix(0, 0))
			lo, hi := 0.0, 0.0
			switch {
			case tx.IsWhale && tx.Currency == types.CurrencyBTC:
				lo, hi = 10, 60
			case tx.IsWhale:
				lo, hi = 100, 600
			case tx.Currency == types.CurrencyBTC:
				lo, hi = 0, 2
			default:
				lo, hi = 0, 10
			}
			return tx.Amount.GreaterThanOrEqual(decimal.NewFromFloat(lo)) &&
				tx.Amount.LessThanOrEqual(decimal.NewFromFloat(hi))
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func TestGenerateWhaleTx_WhaleShare(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 42))
	whales := 0
	const n = 5000
	for i := 0; i < n; i++ {
		if GenerateWhaleTx(rng, time.Unix(0, 0)).IsWhale {
			whales++
		}
	}
	assert.InDelta(t, 0.3, float64(whales)/n, 0.03)
}

func TestWhaleFeed_SeedAndCap(t *testing.T) {
	f := NewWhaleFeed(testFeedConfig(), seeded(1))
	require.Len(t, f.Recent(), 5)

	first := f.Tick()
	recent := f.Recent()
	require.Len(t, recent, 6)
	assert.Equal(t, first, recent[0], "new entries are prepended")

	for i := 0; i < 6; i++ {
		f.Tick()
	}
	recent = f.Recent()
	require.Len(t, recent, 7)
	assert.Equal(t, first, recent[6], "older entries shift toward the tail")

	f.Tick()
	assert.NotContains(t, f.Recent(), first)
}

func TestWhaleFeed_Subscribe(t *testing.T) {
	f := NewWhaleFeed(testFeedConfig(), seeded(2))

	ch, cancel := f.Subscribe(4)
	tx := f.Tick()

	select {
	case got := <-ch:
		assert.Equal(t, tx, got)
	case <-time.After(time.Second):
		t.Fatal("no entry delivered")
	}

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, f.Subscribers())
}

func TestWhaleFeed_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := NewWhaleFeed(testFeedConfig(), seeded(3))
	_, cancel := f.Subscribe(1)
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 20; i++ {
			f.Tick()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Tick blocked on a full subscriber")
	}
}

func TestWhaleFeed_StartStop(t *testing.T) {
	f := NewWhaleFeed(testFeedConfig(), seeded(4))
	ch, _ := f.Subscribe(16)

	require.NoError(t, f.Start(context.Background()))
	assert.Error(t, f.Start(context.Background()))

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.Stop(ctx))

	// Stop closes subscriptions and no further ticks happen
	for range ch {
	}
	before := f.Recent()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, before, f.Recent())

	assert.NoError(t, f.Stop(ctx), "stopping twice is a no-op")
}

func TestWhaleFeed_RestartAfterStop(t *testing.T) {
	f := NewWhaleFeed(testFeedConfig(), seeded(5))
	ctx := context.Background()

	require.NoError(t, f.Start(ctx))
	require.NoError(t, f.Stop(ctx))
	require.NoError(t, f.Start(ctx))
	require.NoError(t, f.Stop(ctx))
}

func TestWhaleFeed_ZeroIntervalRejected(t *testing.T) {
	f := NewWhaleFeed(config.FeedConfig{Seed: 1, History: 7}, seeded(6))
	assert.Error(t, f.Start(context.Background()))
}
