package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testForecastService(fs *fakeStore) *ForecastService {
	return NewForecastService(fs, testAnalyticsConfig(), testLogger())
}

func TestParseForecastMetric(t *testing.T) {
	m, err := ParseForecastMetric("sales")
	require.NoError(t, err)
	assert.Equal(t, MetricSales, m)
	assert.Equal(t, "Sales Revenue", m.Name())

	m, err = ParseForecastMetric("engagement")
	require.NoError(t, err)
	assert.Equal(t, "Engagement", m.Name())

	m, err = ParseForecastMetric("reach")
	require.NoError(t, err)
	assert.Equal(t, "Reach", m.Name())

	_, err = ParseForecastMetric("followers")
	assert.Error(t, err)
	_, err = ParseForecastMetric("")
	assert.Error(t, err)
}

func TestTrainingCutoff(t *testing.T) {
	svc := testForecastService(newFakeStore())

	// Mid-month: the current month is incomplete
	svc.Now = func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, date("2024-05-01"), svc.trainingCutoff())

	// Last day of the month: the current month counts
	svc.Now = func() time.Time { return time.Date(2024, 6, 30, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, date("2024-06-01"), svc.trainingCutoff())

	// February edge
	svc.Now = func() time.Time { return time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, date("2024-02-01"), svc.trainingCutoff())
	svc.Now = func() time.Time { return time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC) }
	assert.Equal(t, date("2024-01-01"), svc.trainingCutoff())
}

func TestTrainingSeriesMonthlySums(t *testing.T) {
	fs := newFakeStore()
	fs.rows["sales"] = []map[string]interface{}{
		saleRow("2024-01-10", 100),
		saleRow("2024-01-20", 50),
		// February absent entirely
		saleRow("2024-03-05", 200),
		// In-progress month must be excluded
		saleRow("2024-04-02", 999),
	}

	svc := testForecastService(fs)
	svc.Now = func() time.Time { return time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC) }

	months, values := svc.trainingSeries(context.Background(), MetricSales)

	require.Equal(t, []time.Time{date("2024-01-01"), date("2024-03-01")}, months)
	assert.Equal(t, []float64{150, 200}, values)
}

func TestTrainingSeriesEngagementAndReach(t *testing.T) {
	fs := newFakeStore()
	fs.rows["tiktokdata"] = []map[string]interface{}{socialRow("2024-01-10", 1000, 10, 5, 5, 0)}
	fs.rows["facebookdata"] = []map[string]interface{}{socialRow("2024-01-12", 0, 20, 10, 10, 700)}

	svc := testForecastService(fs)
	svc.Now = func() time.Time { return time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC) }

	_, engagement := svc.trainingSeries(context.Background(), MetricEngagement)
	require.Len(t, engagement, 1)
	assert.Equal(t, 60.0, engagement[0])

	_, reach := svc.trainingSeries(context.Background(), MetricReach)
	require.Len(t, reach, 1)
	assert.Equal(t, 1700.0, reach[0])
}

func TestPredictInsufficientData(t *testing.T) {
	fs := newFakeStore()
	fs.rows["sales"] = monthlySales(2023, 1, 23, 100)

	svc := testForecastService(fs)
	svc.Now = func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }

	resp, err := svc.Predict(context.Background(), MetricSales)

	require.NoError(t, err)
	assert.Empty(t, resp.HistoricalData)
	assert.Empty(t, resp.ForecastData)
	assert.Equal(t, "Not enough complete historical data for forecasting.", resp.Message)
	assert.Contains(t, resp.Recommendation, "at least 24 months")
	assert.Contains(t, resp.Recommendation, "Sales Revenue")
}

func TestLinearForecast(t *testing.T) {
	svc := testForecastService(newFakeStore())

	t.Run("fewer than two points yields empty forecast", func(t *testing.T) {
		forecasts, lower, upper := svc.linearForecast([]time.Time{date("2024-01-01")}, []float64{10})
		assert.Nil(t, forecasts)
		assert.Nil(t, lower)
		assert.Nil(t, upper)
	})

	t.Run("projects the fitted trend with ten percent bounds", func(t *testing.T) {
		months := []time.Time{date("2024-01-01"), date("2024-02-01"), date("2024-03-01")}
		values := []float64{100, 200, 300}

		forecasts, lower, upper := svc.linearForecast(months, values)

		require.Len(t, forecasts, 36)
		// The trend keeps climbing month over month
		assert.Greater(t, forecasts[0], 300.0)
		assert.Greater(t, forecasts[35], forecasts[0])
		assert.InDelta(t, forecasts[0]*0.9, lower[0], 1e-9)
		assert.InDelta(t, forecasts[0]*1.1, upper[0], 1e-9)
	})
}

func TestForecastSeriesClampsAndLabels(t *testing.T) {
	svc := testForecastService(newFakeStore())

	// A steep decline drives the linear projection negative
	months := []time.Time{date("2024-01-01"), date("2024-02-01")}
	values := []float64{100, 10}
	points := svc.forecastSeries(months, values)

	require.Len(t, points, 36)
	assert.Equal(t, "2024-03-01", points[0].Date)
	assert.Equal(t, "2027-02-01", points[35].Date)
	for i, p := range points {
		assert.GreaterOrEqual(t, p.Value, 0.0, "point %d", i)
		assert.GreaterOrEqual(t, p.LowerBound, 0.0, "point %d", i)
	}
}

func TestGenerateForecastRecommendation(t *testing.T) {
	svc := testForecastService(newFakeStore())
	historical := []float64{100, 110}

	grow := []ForecastPoint{{Value: 100}, {Value: 200}}
	text := svc.generateRecommendation(historical, grow, "Sales Revenue")
	assert.Contains(t, text, "forecasted to be around 100 next month")
	assert.Contains(t, text, "strong positive growth of approximately +100.0%")

	decline := []ForecastPoint{{Value: 200}, {Value: 100}}
	text = svc.generateRecommendation(historical, decline, "Reach")
	assert.Contains(t, text, "potential decline of approximately -50.0%")
	assert.Contains(t, text, "re-evaluating your current strategy for Reach")

	stable := []ForecastPoint{{Value: 100}, {Value: 101}}
	text = svc.generateRecommendation(historical, stable, "Engagement")
	assert.Contains(t, text, "relatively stable trend (1.0%)")

	text = svc.generateRecommendation(nil, nil, "Engagement")
	assert.Contains(t, text, "Not enough data to provide a comprehensive recommendation for Engagement")
}

func TestPredictStableSeries(t *testing.T) {
	fs := newFakeStore()
	fs.rows["sales"] = monthlySales(2023, 1, 24, 500)

	svc := testForecastService(fs)
	svc.Now = func() time.Time { return time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC) }

	resp, err := svc.Predict(context.Background(), MetricSales)

	require.NoError(t, err)
	assert.Equal(t, "Predictive analytics successful.", resp.Message)

	require.Len(t, resp.HistoricalData, 24)
	assert.Equal(t, "2023-01-01", resp.HistoricalData[0].Date)
	assert.Equal(t, "2024-12-01", resp.HistoricalData[23].Date)
	for i, p := range resp.HistoricalData {
		assert.Equal(t, 500.0, p.Value, "month %d", i)
	}

	require.Len(t, resp.ForecastData, 36)
	for i, p := range resp.ForecastData {
		assert.Equal(t, date("2025-01-01").AddDate(0, i, 0).Format("2006-01-02"), p.Date)
		assert.GreaterOrEqual(t, p.Value, 0.0, "month %d", i)
		assert.GreaterOrEqual(t, p.LowerBound, 0.0, "month %d", i)
	}
	assert.Equal(t, "2027-12-01", resp.ForecastData[35].Date)

	assert.Contains(t, resp.Recommendation, "relatively stable trend")
}

func TestTrainingSeriesAppliesRowCap(t *testing.T) {
	fs := newFakeStore()
	cfg := testAnalyticsConfig()
	cfg.MaxRows = 500

	svc := NewForecastService(fs, cfg, testLogger())
	svc.Now = func() time.Time { return time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC) }
	svc.trainingSeries(context.Background(), MetricReach)

	require.Len(t, fs.queries, 2)
	for _, q := range fs.queries {
		assert.Equal(t, 500, q.Limit, q.Table)
	}
}
