package prediction

import "math"

// The aggregation heuristics live here as pure functions so they can be
// tuned or swapped without touching the engine.

// factorWeight is the aggregation weight of a factor. Confidence is squared
// so high-confidence factors dominate noisy ones.
func factorWeight(confidence float64) float64 {
	return confidence * confidence
}

// aggregateAdjustmentHours combines factor impacts into one adjustment,
// as a confidence-squared weighted average. Returns 0 with no factors.
func aggregateAdjustmentHours(factors []Factor) float64 {
	var weightedSum, totalWeight float64
	for _, f := range factors {
		w := factorWeight(f.Confidence)
		weightedSum += f.Impact * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return weightedSum / totalWeight
}

// clampAdjustmentMinutes bounds an adjustment to [-max, max]
func clampAdjustmentMinutes(minutes, max int) int {
	if minutes > max {
		return max
	}
	if minutes < -max {
		return -max
	}
	return minutes
}

// combinedConfidence is the average factor confidence plus a bonus of 0.05
// per corroborating factor (bonus capped at 0.2), capped at 0.95 overall.
// Returns 0 with no factors.
func combinedConfidence(factors []Factor) float64 {
	if len(factors) == 0 {
		return 0
	}

	var sum float64
	for _, f := range factors {
		sum += f.Confidence
	}
	avg := sum / float64(len(factors))

	bonus := math.Min(0.2, 0.05*float64(len(factors)))
	return math.Min(0.95, avg+bonus)
}
