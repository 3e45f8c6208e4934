package service

import (
	"context"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/storage"
	"github.com/sedna-dashboard/internal/types"
)

// MarketFetcher fetches one page of the market list from a provider
type MarketFetcher interface {
	FetchMarkets(ctx context.Context, page int) ([]types.Asset, error)
}

// MarketCache caches upstream pages. *storage.CacheService implements it.
type MarketCache interface {
	GetMarketPage(ctx context.Context, page int) (*storage.CachedMarketPage, bool, error)
	SetMarketPage(ctx context.Context, page int, assets []types.Asset) error
	InvalidateMarket(ctx context.Context) error
}

// LoadStatus is the state of the market snapshot
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusReady   LoadStatus = "ready"
)

// MarketService owns the current market snapshot. Loads never fail: provider
// errors are replaced by the perturbed mock list.
type MarketService struct {
	fetcher    MarketFetcher
	cache      MarketCache // nil disables caching
	minLoading time.Duration
	now        func() time.Time
	monitor    *LoadMonitor

	// concurrent loads of one page share a single upstream call
	inflight singleflight.Group

	rngMu sync.Mutex
	rng   *rand.Rand

	snapshot atomic.Pointer[types.MarketSnapshot]
	status   atomic.Value // LoadStatus
	closed   atomic.Bool
}

// MarketServiceOption configures a MarketService
type MarketServiceOption func(*MarketService)

// WithMarketCache enables the upstream page cache
func WithMarketCache(cache MarketCache) MarketServiceOption {
	return func(s *MarketService) { s.cache = cache }
}

// WithRand sets the random source used to perturb fallback data
func WithRand(rng *rand.Rand) MarketServiceOption {
	return func(s *MarketService) { s.rng = rng }
}

// WithClock overrides the wall clock
func WithClock(now func() time.Time) MarketServiceOption {
	return func(s *MarketService) { s.now = now }
}

// NewMarketService creates a market service
func NewMarketService(fetcher MarketFetcher, minLoading time.Duration, opts ...MarketServiceOption) *MarketService {
	seed := uint64(time.Now().UnixNano())
	s := &MarketService{
		fetcher:    fetcher,
		minLoading: minLoading,
		now:        time.Now,
		monitor:    NewLoadMonitor(),
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.status.Store(StatusIdle)
	return s
}

// Load returns page from the cache or the provider, or the perturbed mock list
// when the provider fails. It does not touch the current snapshot.
func (s *MarketService) Load(ctx context.Context, page int) types.MarketSnapshot {
	v, _, shared := s.inflight.Do(strconv.Itoa(page), func() (interface{}, error) {
		start := time.Now()
		snap := s.load(ctx, page)
		s.monitor.Record(snap.Source, time.Since(start))
		return snap, nil
	})
	if shared {
		logging.FromContext(ctx).WithField("page", page).Debug("Joined in-flight market load")
	}
	return v.(types.MarketSnapshot)
}

func (s *MarketService) load(ctx context.Context, page int) types.MarketSnapshot {
	logger := logging.FromContext(ctx).WithField("page", page)

	if s.cache != nil {
		cached, found, err := s.cache.GetMarketPage(ctx, page)
		if err != nil {
			logger.WithError(err).Warn("Market cache read failed")
		} else if found {
			return types.MarketSnapshot{Page: page, Assets: cached.Assets, Source: types.SourceCache, FetchedAt: cached.CachedAt}
		}
	}

	assets, err := s.fetcher.FetchMarkets(ctx, page)
	if err != nil {
		logger.WithError(err).WithField("retryable", apperrors.IsRetryable(err)).
			Warn("Market data provider unavailable, falling back to mock data")
		return types.MarketSnapshot{Page: page, Assets: s.fallback(), Source: types.SourceFallback, FetchedAt: s.now()}
	}

	if s.cache != nil {
		if err := s.cache.SetMarketPage(ctx, page, assets); err != nil {
			logger.WithError(err).Warn("Market cache write failed")
		}
	}
	return types.MarketSnapshot{Page: page, Assets: assets, Source: types.SourceUpstream, FetchedAt: s.now()}
}

// InitialLoad fetches page 1 while holding the loading state for at least the
// minimum display time. Both finish before it returns.
func (s *MarketService) InitialLoad(ctx context.Context) types.MarketSnapshot {
	s.status.Store(StatusLoading)

	var snap types.MarketSnapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap = s.Load(gctx, 1)
		return nil
	})
	g.Go(func() error {
		timer := time.NewTimer(s.minLoading)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-gctx.Done():
		}
		return nil
	})
	_ = g.Wait()

	s.store(snap)
	return snap
}

// Fetch loads page and makes it the current snapshot
func (s *MarketService) Fetch(ctx context.Context, page int) types.MarketSnapshot {
	snap := s.Load(ctx, page)
	s.store(snap)
	return snap
}

// Refresh reloads the page currently shown, bypassing cached pages
func (s *MarketService) Refresh(ctx context.Context) types.MarketSnapshot {
	page := 1
	if cur := s.snapshot.Load(); cur != nil && cur.Page > 0 {
		page = cur.Page
	}
	if s.cache != nil {
		if err := s.cache.InvalidateMarket(ctx); err != nil {
			logging.FromContext(ctx).WithError(err).Warn("Market cache invalidation failed")
		}
	}
	return s.Fetch(ctx, page)
}

// store swaps in snap unless the service was closed meanwhile
func (s *MarketService) store(snap types.MarketSnapshot) {
	if s.closed.Load() {
		return
	}
	s.snapshot.Store(&snap)
	s.status.Store(StatusReady)
}

// Snapshot returns the current snapshot. Before the first load it is empty.
func (s *MarketService) Snapshot() types.MarketSnapshot {
	if cur := s.snapshot.Load(); cur != nil {
		return *cur
	}
	return types.MarketSnapshot{Page: 1, Assets: []types.Asset{}}
}

// Status reports whether the snapshot is loading or ready
func (s *MarketService) Status() LoadStatus {
	return s.status.Load().(LoadStatus)
}

// Search returns the assets whose name or symbol contains term, case-insensitively
func (s *MarketService) Search(term string) []types.Asset {
	assets := s.Snapshot().Assets
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return assets
	}

	out := make([]types.Asset, 0, len(assets))
	for _, a := range assets {
		if strings.Contains(strings.ToLower(a.Name), term) || strings.Contains(strings.ToLower(a.Symbol), term) {
			out = append(out, a)
		}
	}
	return out
}

// FindAsset looks id up in the current snapshot
func (s *MarketService) FindAsset(id string) (types.Asset, bool) {
	for _, a := range s.Snapshot().Assets {
		if a.ID == id {
			return a, true
		}
	}
	return types.Asset{}, false
}

// LoadStats reports how recent loads were served
func (s *MarketService) LoadStats() LoadStats {
	return s.monitor.Stats()
}

// Close stops the service from accepting new snapshots
func (s *MarketService) Close() {
	s.closed.Store(true)
}

var (
	priceJitter  = decimal.RequireFromString("0.01")
	changeJitter = decimal.RequireFromString("0.5")
)

// fallback returns MockAssets with price scaled by 1±1% and change shifted by ±0.5
func (s *MarketService) fallback() []types.Asset {
	assets := MockAssets()

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	for i := range assets {
		factor := decimal.NewFromInt(1).Add(priceJitter.Mul(s.symmetric()))
		assets[i].CurrentPrice = assets[i].CurrentPrice.Mul(factor).Round(8)
		assets[i].PriceChangePercentage24h = assets[i].PriceChangePercentage24h.Add(changeJitter.Mul(s.symmetric())).Round(4)
	}
	return assets
}

// symmetric returns a uniform value in [-1, 1)
func (s *MarketService) symmetric() decimal.Decimal {
	return decimal.NewFromFloat(s.rng.Float64()*2 - 1)
}
