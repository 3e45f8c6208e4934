package worker

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sedna-dashboard/internal/config"
	"github.com/sedna-dashboard/internal/logging"
	"github.com/sedna-dashboard/internal/types"
)

const (
	whaleProbability = 0.3
	justNow          = "Just now"
)

// rngReader exposes a *rand.Rand as an io.Reader so IDs and addresses come
// from the same seeded source as amounts
type rngReader struct{ r *rand.Rand }

func (rr rngReader) Read(p []byte) (int, error) {
	var buf [8]byte
	for i := 0; i < len(p); i += 8 {
		binary.LittleEndian.PutUint64(buf[:], rr.r.Uint64())
		copy(p[i:], buf[:])
	}
	return len(p), nil
}

// GenerateWhaleTx draws one feed entry from rng
func GenerateWhaleTx(rng *rand.Rand, now time.Time) types.WhaleTransaction {
	isWhale := rng.Float64() < whaleProbability
	currency := types.CurrencyETH
	if rng.Float64() < 0.5 {
		currency = types.CurrencyBTC
	}

	var amount float64
	switch {
	case isWhale && currency == types.CurrencyBTC:
		amount = 10 + rng.Float64()*50
	case isWhale:
		amount = 100 + rng.Float64()*500
	case currency == types.CurrencyBTC:
		amount = rng.Float64() * 2
	default:
		amount = rng.Float64() * 10
	}

	reader := rngReader{r: rng}
	id := uuid.Must(uuid.NewRandomFromReader(reader))

	return types.WhaleTransaction{
		ID:        strings.ReplaceAll(id.String(), "-", "")[:8],
		Amount:    decimal.NewFromFloat(amount).Round(4),
		Currency:  currency,
		From:      shortAddress(reader),
		To:        shortAddress(reader),
		IsWhale:   isWhale,
		Time:      justNow,
		CreatedAt: now,
	}
}

// shortAddress returns a random address abbreviated to its first two bytes, e.g. 0x1a2b...
func shortAddress(reader rngReader) string {
	var b [common.AddressLength]byte
	_, _ = reader.Read(b[:])
	addr := common.BytesToAddress(b[:])
	return strings.ToLower(addr.Hex()[:6]) + "..."
}

// WhaleFeed keeps a short, newest-first history of mock large transfers and
// prepends a new entry every interval while running
type WhaleFeed struct {
	interval time.Duration
	history  int
	now      func() time.Time

	mu      sync.RWMutex
	rng     *rand.Rand
	entries []types.WhaleTransaction
	subs    map[int]chan types.WhaleTransaction
	nextSub int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// WhaleFeedOption configures a WhaleFeed
type WhaleFeedOption func(*WhaleFeed)

// WithFeedRand sets the random source
func WithFeedRand(rng *rand.Rand) WhaleFeedOption {
	return func(f *WhaleFeed) { f.rng = rng }
}

// WithFeedClock overrides the wall clock
func WithFeedClock(now func() time.Time) WhaleFeedOption {
	return func(f *WhaleFeed) { f.now = now }
}

// NewWhaleFeed creates a feed seeded with cfg.Seed entries
func NewWhaleFeed(cfg config.FeedConfig, opts ...WhaleFeedOption) *WhaleFeed {
	seed := uint64(time.Now().UnixNano())
	f := &WhaleFeed{
		interval: cfg.Interval,
		history:  cfg.History,
		now:      time.Now,
		rng:      rand.New(rand.NewPCG(seed, seed<<1)),
		subs:     make(map[int]chan types.WhaleTransaction),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.history <= 0 {
		f.history = 7
	}
	n := min(cfg.Seed, f.history)
	f.entries = make([]types.WhaleTransaction, 0, f.history)
	for i := 0; i < n; i++ {
		f.entries = append(f.entries, GenerateWhaleTx(f.rng, f.now()))
	}
	return f
}

// Recent returns the history, newest first
func (f *WhaleFeed) Recent() []types.WhaleTransaction {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]types.WhaleTransaction, len(f.entries))
	copy(out, f.entries)
	return out
}

// Tick generates one entry, prepends it and publishes it to subscribers
func (f *WhaleFeed) Tick() types.WhaleTransaction {
	f.mu.Lock()
	defer f.mu.Unlock()

	tx := GenerateWhaleTx(f.rng, f.now())

	keep := min(len(f.entries), f.history-1)
	next := make([]types.WhaleTransaction, 0, f.history)
	next = append(next, tx)
	next = append(next, f.entries[:keep]...)
	f.entries = next

	for _, ch := range f.subs {
		select {
		case ch <- tx:
		default:
			// slow subscriber, drop
		}
	}
	return tx
}

// Subscribe returns a channel of new entries and a cancel func. The channel is
// closed by cancel or by Stop.
func (f *WhaleFeed) Subscribe(buffer int) (<-chan types.WhaleTransaction, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.nextSub
	f.nextSub++
	ch := make(chan types.WhaleTransaction, buffer)
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if c, ok := f.subs[id]; ok {
				delete(f.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Subscribers returns the number of live subscriptions
func (f *WhaleFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Start begins ticking every interval until Stop or ctx is done
func (f *WhaleFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return fmt.Errorf("whale feed is already running")
	}
	if f.interval <= 0 {
		f.mu.Unlock()
		return fmt.Errorf("whale feed interval must be positive, got %v", f.interval)
	}
	f.running = true
	f.stopCh = make(chan struct{})
	f.doneCh = make(chan struct{})
	stopCh, doneCh := f.stopCh, f.doneCh
	f.mu.Unlock()

	logging.WithFields(map[string]interface{}{
		"interval": f.interval,
		"history":  f.history,
	}).Info("Starting whale feed")

	go f.loop(ctx, stopCh, doneCh)
	return nil
}

// Stop cancels the ticker, waits for the loop to exit and closes all subscriptions
func (f *WhaleFeed) Stop(ctx context.Context) error {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = false
	stopCh, doneCh := f.stopCh, f.doneCh
	f.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-ctx.Done():
		logging.Warn("Whale feed stop timed out")
		return ctx.Err()
	}

	f.mu.Lock()
	for id, ch := range f.subs {
		delete(f.subs, id)
		close(ch)
	}
	f.mu.Unlock()

	logging.Info("Whale feed stopped")
	return nil
}

func (f *WhaleFeed) loop(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			tx := f.Tick()
			if tx.IsWhale {
				logging.WithFields(map[string]interface{}{
					"id":       tx.ID,
					"amount":   tx.Amount.String(),
					"currency": tx.Currency,
				}).Debug("Whale transfer generated")
			}
		}
	}
}
