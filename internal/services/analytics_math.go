package services

import (
	"math"
	"sort"
)

func calculateMeanFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func calculateStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := calculateMeanFloat64(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	variance := sumSquares / float64(len(values)-1)
	return math.Sqrt(variance)
}

// calculatePearson computes the Pearson correlation coefficient, clamped to
// [-1, 1]. Returns 0 when either series has zero variance.
func calculatePearson(x []float64, y []float64) float64 {
	n := len(x)
	if n == 0 || len(y) != n {
		return 0
	}
	meanX := calculateMeanFloat64(x)
	meanY := calculateMeanFloat64(y)

	var numerator float64
	var denomX float64
	var denomY float64

	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	denom := math.Sqrt(denomX * denomY)
	if denom == 0 {
		return 0
	}

	corr := numerator / denom
	if corr > 1 {
		return 1
	}
	if corr < -1 {
		return -1
	}
	return corr
}

// rankValues assigns fractional ranks (1-based), averaging ranks across ties.
func rankValues(values []float64) []float64 {
	n := len(values)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool {
		return values[indices[a]] < values[indices[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j+1 < n && values[indices[j+1]] == values[indices[i]] {
			j++
		}
		// Average rank across the tie group
		avgRank := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[indices[k]] = avgRank
		}
		i = j + 1
	}
	return ranks
}

// calculateSpearman computes the Spearman rank correlation coefficient:
// Pearson correlation applied to fractional ranks.
func calculateSpearman(x []float64, y []float64) float64 {
	if len(x) == 0 || len(x) != len(y) {
		return 0
	}
	return calculatePearson(rankValues(x), rankValues(y))
}

// fitLinearTrend fits y = intercept + slope*x by ordinary least squares.
// Returns (0, 0) for fewer than 2 points or a degenerate x axis.
func fitLinearTrend(x []float64, y []float64) (slope, intercept float64) {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0, 0
	}
	meanX := calculateMeanFloat64(x)
	meanY := calculateMeanFloat64(y)

	var numerator float64
	var denominator float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		numerator += dx * (y[i] - meanY)
		denominator += dx * dx
	}
	if denominator == 0 {
		return 0, meanY
	}
	slope = numerator / denominator
	intercept = meanY - slope*meanX
	return slope, intercept
}

// round2 rounds to 2 decimal places, the precision used in API responses.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// percentChange returns the relative change from previous to current in
// percent, 0 when previous is 0.
func percentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
