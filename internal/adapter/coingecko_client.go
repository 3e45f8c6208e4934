package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/sedna-dashboard/internal/circuitbreaker"
	"github.com/sedna-dashboard/internal/config"
	apperrors "github.com/sedna-dashboard/internal/errors"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/types"
)

const providerName = "coingecko"

// CallBudget is a call allowance shared with other replicas
type CallBudget interface {
	TryConsume(ctx context.Context, n int) (bool, time.Duration, error)
}

// CoinGeckoClient fetches the market list from the CoinGecko public API
type CoinGeckoClient struct {
	baseURL string // overridable for tests
	perPage int
	client  *http.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.CircuitBreaker
	budget  CallBudget
}

// ClientOption configures a CoinGeckoClient
type ClientOption func(*CoinGeckoClient)

// WithCallBudget makes every upstream call draw from budget first
func WithCallBudget(budget CallBudget) ClientOption {
	return func(c *CoinGeckoClient) { c.budget = budget }
}

// NewCoinGeckoClient creates a client from the market configuration
func NewCoinGeckoClient(cfg config.MarketConfig, opts ...ClientOption) *CoinGeckoClient {
	limit := rate.Inf
	if cfg.UpstreamRPS > 0 {
		limit = rate.Limit(cfg.UpstreamRPS)
	}
	perPage := cfg.PerPage
	if perPage <= 0 {
		perPage = 20
	}

	c := &CoinGeckoClient{
		baseURL: cfg.BaseURL,
		perPage: perPage,
		// No timeout unless configured; requests are bounded by their context.
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: rate.NewLimiter(limit, 1),
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(providerName)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider's name
func (c *CoinGeckoClient) Name() string { return providerName }

// BreakerStats exposes the state of the upstream circuit breaker
func (c *CoinGeckoClient) BreakerStats() *circuitbreaker.Stats {
	return c.breaker.GetStats()
}

// FetchMarkets fetches one page of assets ordered by market cap, with 7-day sparklines
func (c *CoinGeckoClient) FetchMarkets(ctx context.Context, page int) ([]types.Asset, error) {
	if page < 1 {
		page = 1
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("coingecko rate limiter: %w", err)
	}

	// An open circuit fails fast without spending the shared budget, and an
	// exhausted budget is not an upstream failure.
	if !c.breaker.Ready() {
		return nil, circuitbreaker.ErrCircuitOpen
	}
	if err := c.consumeBudget(ctx); err != nil {
		return nil, err
	}

	var assets []types.Asset
	err := c.breaker.Execute(ctx, func() error {
		var err error
		assets, err = c.fetchPage(ctx, page)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (c *CoinGeckoClient) marketsURL(page int) string {
	q := url.Values{}
	q.Set("vs_currency", "usd")
	q.Set("order", "market_cap_desc")
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")
	return c.baseURL + "/coins/markets?" + q.Encode()
}

func (c *CoinGeckoClient) fetchPage(ctx context.Context, page int) ([]types.Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.marketsURL(page), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewProviderError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"provider":   providerName,
			"status":     resp.StatusCode,
			"page":       page,
			"retryAfter": resp.Header.Get("Retry-After"),
		}).Warn("Market data provider returned non-success status")
		return nil, apperrors.NewProviderStatusError(providerName, resp.StatusCode)
	}

	var raw []types.Asset
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, apperrors.NewProviderError(providerName, fmt.Errorf("failed to parse response: %w", err))
	}

	assets := make([]types.Asset, 0, len(raw))
	for _, a := range raw {
		if a.ID == "" || !a.CurrentPrice.IsPositive() {
			continue
		}
		assets = append(assets, a)
	}
	return assets, nil
}

// consumeBudget draws one call from the shared budget. An unreachable budget
// store does not block the call; the local limiter still paces this replica.
func (c *CoinGeckoClient) consumeBudget(ctx context.Context) error {
	if c.budget == nil {
		return nil
	}

	ok, wait, err := c.budget.TryConsume(ctx, 1)
	if err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Shared call budget unavailable, calling upstream anyway")
		return nil
	}
	if !ok {
		catErr := apperrors.NewProviderRateLimitError(providerName)
		catErr.Details = map[string]interface{}{
			"provider":   providerName,
			"reason":     "shared call budget exhausted",
			"retryAfter": wait.String(),
		}
		return catErr
	}
	return nil
}
