package analysis

import "fertility-platform/internal/models"

// WeightedMean returns sum(values[i]*weights[i]) / sum(weights). It is
// undefined when the weights sum to zero, when the slices are empty or when
// their lengths differ.
func WeightedMean(values, weights []float64) models.Measure {
	if len(values) == 0 || len(values) != len(weights) {
		return models.Undefined()
	}

	var num, den float64
	for i, v := range values {
		num += v * weights[i]
		den += weights[i]
	}
	return models.Ratio(num, den)
}

// CenteredRollingMean smooths a series with a centred window of the given odd
// size. Positions near the edges, or next to undefined values, average
// whatever defined neighbours exist; a position is undefined only when its
// whole window is.
func CenteredRollingMean(values []models.Measure, window int) []models.Measure {
	if window < 1 {
		window = 1
	}
	half := window / 2

	out := make([]models.Measure, len(values))
	for i := range values {
		var sum float64
		var n int
		for j := i - half; j <= i+half; j++ {
			if j < 0 || j >= len(values) || !values[j].Defined() {
				continue
			}
			sum += float64(values[j])
			n++
		}
		if n == 0 {
			out[i] = models.Undefined()
			continue
		}
		out[i] = models.Measure(sum / float64(n))
	}
	return out
}
