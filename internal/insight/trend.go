package insight

import "math"

// trendWindow is how many recent values form the "recent" side of a
// trend comparison
const trendWindow = 3

// computeTrend compares the mean of the last trendWindow values against
// the mean of everything before them. Needs at least twice the window to
// say anything beyond "emerging". The threshold is in the unit of the
// series; lowerIsBetter flips the direction for series where a drop is
// an improvement (snooze counts, deviation from routine).
func computeTrend(values []float64, lowerIsBetter bool, threshold float64) Trend {
	if len(values) < 2*trendWindow {
		return TrendEmerging
	}

	recent := mean(values[len(values)-trendWindow:])
	older := mean(values[:len(values)-trendWindow])

	delta := recent - older
	if math.Abs(delta) <= threshold {
		return TrendStable
	}

	improving := delta > 0
	if lowerIsBetter {
		improving = delta < 0
	}
	if improving {
		return TrendImproving
	}
	return TrendDeclining
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}
