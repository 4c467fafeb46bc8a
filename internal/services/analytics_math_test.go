package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateMeanFloat64(t *testing.T) {
	assert.Equal(t, 0.0, calculateMeanFloat64(nil))
	assert.Equal(t, 2.0, calculateMeanFloat64([]float64{1, 2, 3}))
}

func TestCalculateStdDev(t *testing.T) {
	assert.Equal(t, 0.0, calculateStdDev([]float64{5}))
	assert.Equal(t, 0.0, calculateStdDev([]float64{5, 5, 5}))
	// Sample standard deviation of {2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.138, calculateStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 0.001)
}

func TestCalculatePearson(t *testing.T) {
	assert.Equal(t, 1.0, calculatePearson([]float64{1, 2, 3}, []float64{10, 20, 30}))
	assert.Equal(t, -1.0, calculatePearson([]float64{1, 2, 3}, []float64{30, 20, 10}))
	assert.Equal(t, 0.0, calculatePearson([]float64{1, 1, 1}, []float64{1, 2, 3}))
	assert.Equal(t, 0.0, calculatePearson([]float64{1, 2}, []float64{1}))
}

func TestRankValues(t *testing.T) {
	assert.Equal(t, []float64{2, 1, 3}, rankValues([]float64{20, 10, 30}))
	// Ties receive the average of their ranks
	assert.Equal(t, []float64{1.5, 1.5, 3}, rankValues([]float64{5, 5, 9}))
	assert.Equal(t, []float64{2, 2, 2}, rankValues([]float64{7, 7, 7}))
}

func TestCalculateSpearman(t *testing.T) {
	// Monotonic but non-linear relationships rank-correlate perfectly
	assert.InDelta(t, 1.0, calculateSpearman([]float64{1, 2, 3, 4}, []float64{1, 4, 9, 16}), 1e-9)
	assert.InDelta(t, -1.0, calculateSpearman([]float64{1, 2, 3, 4}, []float64{100, 50, 20, 1}), 1e-9)
	assert.Equal(t, 0.0, calculateSpearman([]float64{1, 2}, []float64{1, 2, 3}))
}

func TestFitLinearTrend(t *testing.T) {
	slope, intercept := fitLinearTrend([]float64{0, 1, 2, 3}, []float64{5, 7, 9, 11})
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 5.0, intercept, 1e-9)

	slope, intercept = fitLinearTrend([]float64{1}, []float64{1})
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 0.0, intercept)

	// Degenerate x axis falls back to the mean
	slope, intercept = fitLinearTrend([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.Equal(t, 0.0, slope)
	assert.Equal(t, 2.0, intercept)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.23, round2(1.2345))
	assert.Equal(t, 1.24, round2(1.235))
	assert.Equal(t, -1.23, round2(-1.2345))
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 50.0, percentChange(150, 100))
	assert.Equal(t, -25.0, percentChange(75, 100))
	assert.Equal(t, 0.0, percentChange(10, 0))
}

func TestFormatGrouped(t *testing.T) {
	assert.Equal(t, "1,234,567", formatGrouped(1234567, 0))
	assert.Equal(t, "1,234.50", formatGrouped(1234.5, 2))
	assert.Equal(t, "0", formatGrouped(0, 0))
}
