// Package types provides common type definitions for the dashboard service.
package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one tradable instrument as returned by the market-data provider.
// A fetch produces an immutable list that is replaced as a whole on the next fetch.
type Asset struct {
	ID                       string          `json:"id"`
	Symbol                   string          `json:"symbol"`
	Name                     string          `json:"name"`
	Image                    string          `json:"image,omitempty"`
	CurrentPrice             decimal.Decimal `json:"current_price"`
	PriceChangePercentage24h decimal.Decimal `json:"price_change_percentage_24h"`
	Sparkline7d              *Sparkline      `json:"sparkline_in_7d,omitempty"`
}

// Sparkline holds the 7-day price samples of an asset
type Sparkline struct {
	Price []float64 `json:"price"`
}

// IsUp reports whether the 24h change is non-negative
func (a Asset) IsUp() bool {
	return !a.PriceChangePercentage24h.IsNegative()
}

// FavoriteEntry is a pinned snapshot of an asset
type FavoriteEntry struct {
	ID     string          `json:"id"`
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Change decimal.Decimal `json:"change"`
	IsUp   bool            `json:"isUp"`
	Image  string          `json:"image,omitempty"`
}

// Selection is the asset currently focused by the detail views
type Selection struct {
	Name   string          `json:"name"`
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	Image  string          `json:"image,omitempty"`
}

// SeriesPoint is one sample of a generated chart series
type SeriesPoint struct {
	Label     string   `json:"label"`
	Value     float64  `json:"value"`
	Secondary *float64 `json:"secondary,omitempty"`
}

// MarketSource tells where the current asset list came from
type MarketSource string

const (
	// SourceUpstream is live provider data
	SourceUpstream MarketSource = "upstream"
	// SourceCache is provider data served from Redis
	SourceCache MarketSource = "cache"
	// SourceFallback is the perturbed local mock list
	SourceFallback MarketSource = "fallback"
)

// MarketSnapshot is the asset list of one fetch cycle
type MarketSnapshot struct {
	Page      int          `json:"page"`
	Assets    []Asset      `json:"assets"`
	Source    MarketSource `json:"source"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// WhaleCurrency is the currency of a whale-watch entry
type WhaleCurrency string

const (
	CurrencyBTC  WhaleCurrency = "BTC"
	CurrencyETH  WhaleCurrency = "ETH"
	CurrencyUSDT WhaleCurrency = "USDT"
)

// WhaleTransaction is one entry of the mock live feed
type WhaleTransaction struct {
	ID        string          `json:"id"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  WhaleCurrency   `json:"currency"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	IsWhale   bool            `json:"isWhale"`
	Time      string          `json:"time"`
	CreatedAt time.Time       `json:"createdAt"`
}

// TransactionType is the kind of ledger transaction
type TransactionType string

const (
	TxDeposit    TransactionType = "deposit"
	TxWithdrawal TransactionType = "withdrawal"
	TxTrade      TransactionType = "trade"
)

// TransactionStatus is the settlement state of a ledger transaction
type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "completed"
	StatusPending   TransactionStatus = "pending"
	StatusFailed    TransactionStatus = "failed"
)

// LedgerTransaction is one row of the transactions view
type LedgerTransaction struct {
	ID     string            `json:"id"`
	Type   TransactionType   `json:"type"`
	Asset  string            `json:"asset"`
	Amount decimal.Decimal   `json:"amount"`
	Value  decimal.Decimal   `json:"value"`
	Date   time.Time         `json:"date"`
	Status TransactionStatus `json:"status"`
	Hash   string            `json:"hash,omitempty"`
}

// OrderSide is the side of an order book level
type OrderSide string

const (
	SideAsk OrderSide = "ask"
	SideBid OrderSide = "bid"
)

// OrderLevel is one price level of the order book
type OrderLevel struct {
	Price       decimal.Decimal `json:"price"`
	Amount      decimal.Decimal `json:"amount"`
	Total       decimal.Decimal `json:"total"`
	Side        OrderSide       `json:"type"`
	FillPercent int             `json:"fillPercent"`
}

// OrderBook is the order book of a single pair
type OrderBook struct {
	Pair string       `json:"pair"`
	Asks []OrderLevel `json:"asks"`
	Bids []OrderLevel `json:"bids"`
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}
