package favorites

// Viewport breakpoints in CSS pixels, lowest first. A width below breakpoints[i]
// gets capacity MinCapacity+i; anything wider gets MaxCapacity.
var breakpoints = [...]int{640, 768, 1024, 1280}

const (
	MinCapacity = 4
	MaxCapacity = 8
)

// CapacityForWidth maps a viewport width to the favorites capacity.
// The result is always in [MinCapacity, MaxCapacity] and never decreases as width grows.
func CapacityForWidth(width int) int {
	for i, bp := range breakpoints {
		if width < bp {
			return MinCapacity + i
		}
	}
	return MaxCapacity
}
