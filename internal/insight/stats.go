package insight

import "math"

// mean returns the arithmetic mean of values, or 0 for an empty slice.
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

// populationStdDev returns the population standard deviation of values.
// The anomaly detector deliberately uses the population form (dividing by N,
// not N-1): the window is treated as the whole population of interest, and
// the canonical alerting thresholds were tuned against it.
func populationStdDev(values []float64, m float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)))
}

// olsFit computes an ordinary least-squares simple linear regression of
// values on their dense 0-based index, returning slope, intercept and r².
// For a zero-variance index (fewer than 2 points) slope is 0 and intercept
// the mean. r² is 1 when the residuals are zero (including an all-constant
// window, which a flat line fits exactly); the zero-denominator case never
// divides.
func olsFit(values []float64) (slope, intercept, rSquared float64) {
	n := float64(len(values))
	if len(values) < 2 {
		return 0, mean(values), 1
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	// The index variance n*sumXX - sumX² is strictly positive for n >= 2.
	denom := n*sumXX - sumX*sumX
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssRes, ssTot float64
	for i, v := range values {
		fit := slope*float64(i) + intercept
		ssRes += (v - fit) * (v - fit)
		ssTot += (v - meanY) * (v - meanY)
	}
	if ssTot == 0 {
		return slope, intercept, 1
	}
	return slope, intercept, 1 - ssRes/ssTot
}
