package service

import (
	"slices"
	"sync"
	"time"

	"github.com/sedna-dashboard/internal/types"
)

// slowLoadThreshold marks loads that would visibly stall the market view
const slowLoadThreshold = 2 * time.Second

// LoadMonitor tracks how market loads were served and how long they took
type LoadMonitor struct {
	mu         sync.RWMutex
	durations  []time.Duration
	bySource   map[types.MarketSource]int64
	slowLoads  int64
	totalLoads int64
	maxSamples int
}

// LoadStats is a snapshot of the monitor
type LoadStats struct {
	TotalLoads   int64   `json:"totalLoads"`
	Upstream     int64   `json:"upstream"`
	CacheHits    int64   `json:"cacheHits"`
	Fallbacks    int64   `json:"fallbacks"`
	SlowLoads    int64   `json:"slowLoads"`
	FallbackRate float64 `json:"fallbackRate"` // percentage
	AvgLoadMs    float64 `json:"avgLoadMs"`
	P95LoadMs    float64 `json:"p95LoadMs"`
}

// NewLoadMonitor keeps the last 500 load durations
func NewLoadMonitor() *LoadMonitor {
	return &LoadMonitor{
		durations:  make([]time.Duration, 0, 500),
		bySource:   make(map[types.MarketSource]int64),
		maxSamples: 500,
	}
}

// Record adds one finished load
func (m *LoadMonitor) Record(source types.MarketSource, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalLoads++
	m.bySource[source]++
	if d > slowLoadThreshold {
		m.slowLoads++
	}

	m.durations = append(m.durations, d)
	if len(m.durations) > m.maxSamples {
		m.durations = m.durations[len(m.durations)-m.maxSamples:]
	}
}

// Stats returns the current counters and latency figures
func (m *LoadMonitor) Stats() LoadStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := LoadStats{
		TotalLoads: m.totalLoads,
		Upstream:   m.bySource[types.SourceUpstream],
		CacheHits:  m.bySource[types.SourceCache],
		Fallbacks:  m.bySource[types.SourceFallback],
		SlowLoads:  m.slowLoads,
	}
	if m.totalLoads > 0 {
		stats.FallbackRate = float64(stats.Fallbacks) / float64(m.totalLoads) * 100
	}

	if len(m.durations) == 0 {
		return stats
	}

	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	stats.AvgLoadMs = float64(total.Milliseconds()) / float64(len(m.durations))

	sorted := slices.Clone(m.durations)
	slices.Sort(sorted)
	stats.P95LoadMs = float64(sorted[int(float64(len(sorted))*0.95)].Milliseconds())
	return stats
}

// Reset clears all counters
func (m *LoadMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.durations = m.durations[:0]
	m.bySource = make(map[types.MarketSource]int64)
	m.slowLoads = 0
	m.totalLoads = 0
}
