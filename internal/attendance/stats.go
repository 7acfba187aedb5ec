package attendance

import "math"

// ComputeStatistics returns the mean, population variance and population
// standard deviation of distances. An empty slice yields all zeros.
func ComputeStatistics(distances []float64) Statistics {
	if len(distances) == 0 {
		return Statistics{}
	}

	var sum float64
	for _, d := range distances {
		sum += d
	}
	mean := sum / float64(len(distances))

	var sq float64
	for _, d := range distances {
		diff := d - mean
		sq += diff * diff
	}
	variance := sq / float64(len(distances))

	return Statistics{
		Mean:     mean,
		Variance: variance,
		StdDev:   math.Sqrt(variance),
	}
}
