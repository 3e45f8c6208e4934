package series

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sedna-dashboard/internal/types"
)

// Generator produces synthetic series. It is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// NewGenerator creates a generator with a time-seeded source and the wall clock
func NewGenerator() *Generator {
	seed := uint64(time.Now().UnixNano())
	return NewGeneratorWithSource(rand.New(rand.NewPCG(seed, seed>>1|1)), time.Now)
}

// NewGeneratorWithSource creates a generator with an explicit source and clock
func NewGeneratorWithSource(rng *rand.Rand, now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now}
}

// NewSeededGenerator is a deterministic generator, mainly for tests
func NewSeededGenerator(seed uint64, now func() time.Time) *Generator {
	return NewGeneratorWithSource(rand.New(rand.NewPCG(seed, seed)), now)
}

// Generate returns a random walk for r whose last value is exactly anchor
func (g *Generator) Generate(anchor float64, r Range) []types.SeriesPoint {
	p := r.Profile()

	g.mu.Lock()
	defer g.mu.Unlock()

	labels := g.labels(p)
	points := make([]types.SeriesPoint, p.Points)

	value := anchor * (1 + g.uniform(-p.Band, p.Band))
	for i := range points {
		if i > 0 {
			value *= 1 + g.uniform(p.StepMin, p.StepMax)
		}
		points[i] = types.SeriesPoint{Label: labels[i], Value: value}
	}
	points[len(points)-1].Value = anchor

	return points
}

// GenerateDual returns two walks sharing labels, a in Value and b in Secondary.
// Each walk stays within the range band around its own anchor and ends on it.
func (g *Generator) GenerateDual(r Range, anchorA, anchorB float64) []types.SeriesPoint {
	p := r.Profile()

	g.mu.Lock()
	defer g.mu.Unlock()

	labels := g.labels(p)
	points := make([]types.SeriesPoint, p.Points)

	a := anchorA * (1 + g.uniform(-p.Band, p.Band))
	b := anchorB * (1 + g.uniform(-p.Band, p.Band))
	for i := range points {
		if i > 0 {
			a = clamp(a*(1+g.uniform(p.StepMin, p.StepMax)), anchorA, p.Band)
			b = clamp(b*(1+g.uniform(p.StepMin, p.StepMax)), anchorB, p.Band)
		}
		sec := b
		points[i] = types.SeriesPoint{Label: labels[i], Value: a, Secondary: &sec}
	}

	last := &points[len(points)-1]
	last.Value = anchorA
	sec := anchorB
	last.Secondary = &sec

	return points
}

// FlowBar is one weekly bar of the repayment/origination chart
type FlowBar struct {
	Label       string  `json:"name"`
	Repayment   float64 `json:"repayment"`
	Origination float64 `json:"origination"`
}

var months = [...]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun", "Jul", "Aug", "Sep", "Oct", "Nov", "Dec"}

// GenerateFlow returns 48 weekly bars, four per month. Repayments are
// positive, originations negative, both following a slow sine wave.
func (g *Generator) GenerateFlow() []FlowBar {
	g.mu.Lock()
	defer g.mu.Unlock()

	bars := make([]FlowBar, 0, len(months)*4)
	for i, month := range months {
		for j := 0; j < 4; j++ {
			repayment := 2000 + g.rng.Float64()*5000
			origination := 3000 + g.rng.Float64()*8000
			wave := math.Sin(float64(i*4+j)/10) * 2000

			label := ""
			if j == 0 {
				label = month
			}
			bars = append(bars, FlowBar{
				Label:       label,
				Repayment:   math.Abs(repayment + wave),
				Origination: -math.Abs(origination + wave*0.8),
			})
		}
	}
	return bars
}

// labels counts back from now so the last label is the current instant
func (g *Generator) labels(p Profile) []string {
	now := g.now()
	out := make([]string, p.Points)
	for i := range out {
		at := now.Add(-time.Duration(p.Points-1-i) * p.Spacing)
		out[i] = at.Format(p.Layout)
	}
	return out
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func clamp(v, anchor, band float64) float64 {
	lo, hi := anchor*(1-band), anchor*(1+band)
	if lo > hi {
		lo, hi = hi, lo
	}
	return math.Min(math.Max(v, lo), hi)
}
