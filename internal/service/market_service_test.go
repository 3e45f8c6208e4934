package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sedna-dashboard/internal/adapter"
	"github.com/sedna-dashboard/internal/config"
	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/storage"
	"github.com/sedna-dashboard/internal/types"
)

type stubFetcher struct {
	assets []types.Asset
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (f *stubFetcher) FetchMarkets(ctx context.Context, page int) ([]types.Asset, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.assets, f.err
}

func upstreamAssets() []types.Asset {
	return []types.Asset{
		{ID: "bitcoin", Symbol: "btc", Name: "Bitcoin", CurrentPrice: decimal.RequireFromString("65000"), PriceChangePercentage24h: decimal.RequireFromString("1.1")},
		{ID: "ethereum", Symbol: "eth", Name: "Ethereum", CurrentPrice: decimal.RequireFromString("3500"), PriceChangePercentage24h: decimal.RequireFromString("-0.3")},
		{ID: "wrapped-bitcoin", Symbol: "wbtc", Name: "Wrapped Bitcoin", CurrentPrice: decimal.RequireFromString("64990"), PriceChangePercentage24h: decimal.RequireFromString("1.0")},
	}
}

func seededRand() MarketServiceOption {
	return WithRand(rand.New(rand.NewPCG(11, 13)))
}

func assertPerturbedMock(t *testing.T, got []types.Asset) {
	t.Helper()
	mock := MockAssets()
	require.Len(t, got, len(mock))

	for i, a := range got {
		base := mock[i]
		assert.Equal(t, base.ID, a.ID)
		lo := base.CurrentPrice.Mul(decimal.RequireFromString("0.98999"))
		hi := base.CurrentPrice.Mul(decimal.RequireFromString("1.01001"))
		assert.True(t, a.CurrentPrice.GreaterThanOrEqual(lo) && a.CurrentPrice.LessThanOrEqual(hi),
			"%s price %s outside ±1%% of %s", a.ID, a.CurrentPrice, base.CurrentPrice)

		diff := a.PriceChangePercentage24h.Sub(base.PriceChangePercentage24h).Abs()
		assert.True(t, diff.LessThanOrEqual(decimal.RequireFromString("0.5")), "%s change drifted by %s", a.ID, diff)
	}
}

func TestMarketService_LoadUpstream(t *testing.T) {
	svc := NewMarketService(&stubFetcher{assets: upstreamAssets()}, 0, seededRand())

	snap := svc.Load(context.Background(), 1)

	assert.Equal(t, types.SourceUpstream, snap.Source)
	assert.Len(t, snap.Assets, 3)
	assert.Equal(t, StatusIdle, svc.Status(), "Load alone does not publish")
}

func TestMarketService_LoadFallsBackOnError(t *testing.T) {
	fetcher := &stubFetcher{err: apperrors.NewProviderRateLimitError("coingecko")}
	svc := NewMarketService(fetcher, 0, seededRand())

	snap := svc.Load(context.Background(), 1)

	assert.Equal(t, types.SourceFallback, snap.Source)
	assertPerturbedMock(t, snap.Assets)
}

func TestMarketService_FallbackVariesPerCall(t *testing.T) {
	svc := NewMarketService(&stubFetcher{err: errors.New("dial tcp: refused")}, 0, seededRand())

	a := svc.Load(context.Background(), 1)
	b := svc.Load(context.Background(), 1)

	assert.False(t, a.Assets[0].CurrentPrice.Equal(b.Assets[0].CurrentPrice))
	assert.Equal(t, "64230.5", MockAssets()[0].CurrentPrice.String(), "mock list itself is never mutated")
}

// An upstream 429 ends up as the perturbed mock list, never as an error.
func TestMarketService_HTTP429FallsBackToMock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := adapter.NewCoinGeckoClient(config.MarketConfig{BaseURL: server.URL, PerPage: 20})
	svc := NewMarketService(client, 10*time.Millisecond, seededRand())

	snap := svc.InitialLoad(context.Background())

	assert.Equal(t, types.SourceFallback, snap.Source)
	assertPerturbedMock(t, snap.Assets)
	assert.Equal(t, StatusReady, svc.Status())
	assert.Equal(t, snap.Assets, svc.Snapshot().Assets)
}

func TestMarketService_InitialLoadWaitsForMinimum(t *testing.T) {
	svc := NewMarketService(&stubFetcher{assets: upstreamAssets()}, 80*time.Millisecond, seededRand())

	start := time.Now()
	snap := svc.InitialLoad(context.Background())

	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
	assert.Equal(t, types.SourceUpstream, snap.Source)
}

func TestMarketService_InitialLoadWaitsForFetch(t *testing.T) {
	fetcher := &stubFetcher{assets: upstreamAssets(), delay: 60 * time.Millisecond}
	svc := NewMarketService(fetcher, time.Millisecond, seededRand())

	done := make(chan types.MarketSnapshot)
	go func() { done <- svc.InitialLoad(context.Background()) }()

	require.Eventually(t, func() bool { return svc.Status() == StatusLoading }, time.Second, time.Millisecond)

	snap := <-done
	assert.Equal(t, types.SourceUpstream, snap.Source)
	assert.Equal(t, StatusReady, svc.Status())
}

func TestMarketService_ClosedDiscardsLateResults(t *testing.T) {
	fetcher := &stubFetcher{assets: upstreamAssets(), delay: 30 * time.Millisecond}
	svc := NewMarketService(fetcher, 0, seededRand())

	done := make(chan struct{})
	go func() {
		svc.InitialLoad(context.Background())
		close(done)
	}()
	svc.Close()
	<-done

	assert.Empty(t, svc.Snapshot().Assets)
}

func TestMarketService_Search(t *testing.T) {
	svc := NewMarketService(&stubFetcher{assets: upstreamAssets()}, 0, seededRand())
	svc.Fetch(context.Background(), 1)

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"bitcoin", "ethereum", "wrapped-bitcoin"}},
		{"BIT", []string{"bitcoin", "wrapped-bitcoin"}},
		{"eth", []string{"ethereum"}},
		{"WBTC", []string{"wrapped-bitcoin"}},
		{"doge", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			ids := []string{}
			for _, a := range svc.Search(tt.term) {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	a, ok := svc.FindAsset("ethereum")
	require.True(t, ok)
	assert.Equal(t, "Ethereum", a.Name)
	_, ok = svc.FindAsset("doge")
	assert.False(t, ok)
}

func TestMarketService_RefreshReplacesSnapshot(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("down")}
	svc := NewMarketService(fetcher, 0, seededRand())
	svc.Fetch(context.Background(), 1)
	require.Equal(t, types.SourceFallback, svc.Snapshot().Source)

	fetcher.err = nil
	fetcher.assets = upstreamAssets()
	snap := svc.Refresh(context.Background())

	assert.Equal(t, types.SourceUpstream, snap.Source)
	assert.Equal(t, types.SourceUpstream, svc.Snapshot().Source)
}

func TestMarketService_RedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache := storage.NewCacheService(storage.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), time.Minute)
	fetcher := &stubFetcher{assets: upstreamAssets()}
	svc := NewMarketService(fetcher, 0, seededRand(), WithMarketCache(cache))

	first := svc.Load(context.Background(), 1)
	second := svc.Load(context.Background(), 1)

	assert.Equal(t, types.SourceUpstream, first.Source)
	assert.Equal(t, types.SourceCache, second.Source)
	assert.Equal(t, int32(1), fetcher.calls.Load())
	assert.Len(t, second.Assets, 3)
}

func TestMarketService_RefreshBypassesCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache := storage.NewCacheService(storage.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), time.Minute)
	fetcher := &stubFetcher{assets: upstreamAssets()}
	svc := NewMarketService(fetcher, 0, seededRand(), WithMarketCache(cache))

	svc.Fetch(context.Background(), 1)
	snap := svc.Refresh(context.Background())

	assert.Equal(t, types.SourceUpstream, snap.Source)
	assert.Equal(t, int32(2), fetcher.calls.Load())
	assert.True(t, mr.Exists("market:page:1"), "refreshed page is cached again")
}

func TestMarketService_FallbackIsNotCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cache := storage.NewCacheService(storage.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), time.Minute)
	svc := NewMarketService(&stubFetcher{err: errors.New("down")}, 0, seededRand(), WithMarketCache(cache))

	svc.Load(context.Background(), 1)

	assert.False(t, mr.Exists("market:page:1"))
}

func TestMarketService_CacheOutageStillServes(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cache := storage.NewCacheService(storage.NewRedisCacheFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()})), time.Minute)
	mr.Close()

	svc := NewMarketService(&stubFetcher{assets: upstreamAssets()}, 0, seededRand(), WithMarketCache(cache))

	snap := svc.Load(context.Background(), 1)
	assert.Equal(t, types.SourceUpstream, snap.Source)
}

func TestMarketService_ConcurrentLoadsShareOneFetch(t *testing.T) {
	fetcher := &stubFetcher{assets: upstreamAssets(), delay: 100 * time.Millisecond}
	svc := NewMarketService(fetcher, 0, seededRand())

	var wg sync.WaitGroup
	results := make([]types.MarketSnapshot, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Load(context.Background(), 2)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for _, snap := range results {
		assert.Equal(t, 2, snap.Page)
		assert.Len(t, snap.Assets, 3)
	}
	assert.Equal(t, int64(1), svc.LoadStats().TotalLoads)
}

func TestMarketService_LoadStats(t *testing.T) {
	fetcher := &stubFetcher{assets: upstreamAssets()}
	svc := NewMarketService(fetcher, 0, seededRand())

	svc.Load(context.Background(), 1)
	fetcher.err = errors.New("dial tcp: refused")
	svc.Load(context.Background(), 1)
	svc.Load(context.Background(), 1)

	stats := svc.LoadStats()
	assert.Equal(t, int64(3), stats.TotalLoads)
	assert.Equal(t, int64(1), stats.Upstream)
	assert.Equal(t, int64(2), stats.Fallbacks)
	assert.InDelta(t, 66.67, stats.FallbackRate, 0.01)
}
