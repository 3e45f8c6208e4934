// Package series generates the synthetic price series drawn by the dashboard charts.
package series

import (
	"fmt"
	"strings"
	"time"
)

// Range is a chart time range
type Range string

const (
	Range1D  Range = "1D"
	Range1W  Range = "1W"
	Range1M  Range = "1M"
	Range1Y  Range = "1Y"
	Range5Y  Range = "5Y"
	RangeMax Range = "MAX"
)

// Ranges lists every range in display order
var Ranges = []Range{Range1D, Range1W, Range1M, Range1Y, Range5Y, RangeMax}

// Profile is the shape of a generated series for one range
type Profile struct {
	Points  int
	Spacing time.Duration
	Layout  string  // time layout of point labels
	Band    float64 // start deviation from the anchor, and clamp for dual series
	StepMin float64
	StepMax float64
}

var profiles = map[Range]Profile{
	Range1D:  {Points: 96, Spacing: 15 * time.Minute, Layout: "15:04", Band: 0.02, StepMin: -0.0042, StepMax: 0.0038},
	Range1W:  {Points: 168, Spacing: time.Hour, Layout: "Jan 2 15:04", Band: 0.05, StepMin: -0.0063, StepMax: 0.0057},
	Range1M:  {Points: 90, Spacing: 8 * time.Hour, Layout: "Jan 2", Band: 0.10, StepMin: -0.0105, StepMax: 0.0095},
	Range1Y:  {Points: 365, Spacing: 24 * time.Hour, Layout: "Jan 2", Band: 0.35, StepMin: -0.021, StepMax: 0.019},
	Range5Y:  {Points: 260, Spacing: 7 * 24 * time.Hour, Layout: "Jan 2006", Band: 0.60, StepMin: -0.0525, StepMax: 0.0475},
	RangeMax: {Points: 120, Spacing: 30 * 24 * time.Hour, Layout: "Jan 2006", Band: 0.80, StepMin: -0.084, StepMax: 0.076},
}

// ParseRange parses a range name, case-insensitively
func ParseRange(s string) (Range, error) {
	r := Range(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := profiles[r]; !ok {
		return "", fmt.Errorf("unknown range %q", s)
	}
	return r, nil
}

// Profile returns the profile of r. Unknown ranges fall back to 1M.
func (r Range) Profile() Profile {
	if p, ok := profiles[r]; ok {
		return p
	}
	return profiles[Range1M]
}

func (r Range) String() string {
	return string(r)
}
