package viz

import (
	"math"
	"strings"
)

// DeflectionBar draws x on a bar centred at zero: negative values fill to
// the left, positive to the right. Values beyond scale are clipped.
// It returns the left and right halves separately so they can be styled.
func DeflectionBar(x, scale float64, width int) (left, right string) {
	half := width / 2
	if half < 1 {
		return "", ""
	}
	n := 0
	if scale > 0 && !math.IsNaN(x) {
		n = int(math.Round(math.Min(math.Abs(x)/scale, 1) * float64(half)))
	}
	if x < 0 {
		return strings.Repeat("·", half-n) + strings.Repeat("█", n), strings.Repeat("·", half)
	}
	return strings.Repeat("·", half), strings.Repeat("█", n) + strings.Repeat("·", half-n)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// Sparkline renders the last width values as block characters scaled to
// their own range.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	rng := hi - lo
	if rng == 0 {
		rng = 1
	}

	var sb strings.Builder
	for _, v := range values {
		idx := int((v - lo) / rng * float64(len(sparkChars)-1))
		idx = min(max(idx, 0), len(sparkChars)-1)
		sb.WriteRune(sparkChars[idx])
	}
	return sb.String()
}
