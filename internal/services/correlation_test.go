package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andikafs/marketpulse-go/internal/models"
)

func sp(dateStr string, value float64) seriesPoint {
	return seriesPoint{date: date(dateStr), value: value}
}

func TestAnalyzePerfectMonotonicSeries(t *testing.T) {
	fs := newFakeStore()
	fs.rows["tiktokdata"] = []map[string]interface{}{
		socialRow("2024-01-01", 100, 10, 0, 0, 0),
		socialRow("2024-01-02", 200, 20, 0, 0, 0),
		socialRow("2024-01-03", 300, 30, 0, 0, 0),
	}
	fs.rows["sales"] = []map[string]interface{}{
		saleRow("2023-12-31", 50),
		saleRow("2024-01-01", 5),
		saleRow("2024-01-02", 10),
		saleRow("2024-01-03", 15),
	}

	svc := NewCorrelationService(fs, testAnalyticsConfig(), testLogger())
	resp, err := svc.Analyze(context.Background(), "", "", models.FilterTikTok)
	require.NoError(t, err)

	assert.Equal(t, "Correlation analysis successful.", resp.Message)

	for _, key := range []string{"engage_reach", "engage_sales", "reach_sales"} {
		require.NotNil(t, resp.Correlations[key], key)
		assert.Equal(t, 1.0, *resp.Correlations[key], key)
	}
	assert.Contains(t, resp.Recommendations["engage_sales"], "strong positive relationship between your Engagement and Sales")

	// The sales-only day is charted zero-filled but kept out of the sample
	require.Len(t, resp.ChartData, 4)
	assert.Equal(t, ChartPoint{Date: "2023-12-31", Engagement: 0, Reach: 0, Sales: 50}, resp.ChartData[0])
	assert.Equal(t, ChartPoint{Date: "2024-01-02", Engagement: 20, Reach: 200, Sales: 10}, resp.ChartData[2])

	// One of four days dropped from the sample surfaces as a data gap
	assert.Contains(t, resp.Recommendations["engage_sales"], "Data Gaps: Approximately 25.0%")
}

func TestAnalyzeZeroVariancePairIsNull(t *testing.T) {
	fs := newFakeStore()
	fs.rows["tiktokdata"] = []map[string]interface{}{
		socialRow("2024-01-01", 100, 10, 0, 0, 0),
		socialRow("2024-01-02", 200, 10, 0, 0, 0),
		socialRow("2024-01-03", 300, 10, 0, 0, 0),
	}
	fs.rows["sales"] = []map[string]interface{}{
		saleRow("2024-01-01", 5),
		saleRow("2024-01-02", 10),
		saleRow("2024-01-03", 15),
	}

	svc := NewCorrelationService(fs, testAnalyticsConfig(), testLogger())
	resp, err := svc.Analyze(context.Background(), "", "", models.FilterTikTok)
	require.NoError(t, err)

	assert.Nil(t, resp.Correlations["engage_reach"])
	assert.Nil(t, resp.Correlations["engage_sales"])
	require.NotNil(t, resp.Correlations["reach_sales"])
	assert.Equal(t, 1.0, *resp.Correlations["reach_sales"])

	assert.Equal(t,
		"Not enough meaningful data to calculate a correlation between Engagement and Reach for the selected period/platform. Please ensure you have sufficient non-zero data points for both metrics.<br>",
		resp.Recommendations["engage_reach"])
}

func TestAnalyzePlatformFilter(t *testing.T) {
	fs := newFakeStore()
	svc := NewCorrelationService(fs, testAnalyticsConfig(), testLogger())

	_, err := svc.Analyze(context.Background(), "", "", models.FilterFacebook)
	require.NoError(t, err)

	var tables []string
	for _, q := range fs.queries {
		tables = append(tables, q.Table)
	}
	assert.Contains(t, tables, "facebookdata")
	assert.Contains(t, tables, "sales")
	assert.NotContains(t, tables, "tiktokdata")
}

func TestAnalyzeInvalidRange(t *testing.T) {
	svc := NewCorrelationService(newFakeStore(), testAnalyticsConfig(), testLogger())
	_, err := svc.Analyze(context.Background(), "not-a-date", "", models.FilterAll)
	assert.Error(t, err)
}

func TestDetectSignificantIncreases(t *testing.T) {
	series := []seriesPoint{
		sp("2024-01-01", 0),
		sp("2024-01-02", 100), // previous is zero, skipped
		sp("2024-01-03", 130), // +30%, below threshold
		sp("2024-01-04", 260), // +100%
		sp("2024-01-05", 910), // +250%
	}

	increases := detectSignificantIncreases(series, 50)

	require.Len(t, increases, 2)
	assert.Equal(t, date("2024-01-05"), increases[0].date)
	assert.InDelta(t, 250, increases[0].change, 1e-9)
	assert.Equal(t, date("2024-01-04"), increases[1].date)

	assert.Nil(t, detectSignificantIncreases(series[:1], 50))
}

func TestRecommendationTextStrengthBranches(t *testing.T) {
	series := []seriesPoint{sp("2024-01-01", 100), sp("2024-01-02", 120)}

	tests := []struct {
		name        string
		coefficient float64
		want        string
	}{
		{name: "strong positive", coefficient: 0.8, want: "strong positive relationship between your Engagement and Reach"},
		{name: "moderate positive", coefficient: 0.5, want: "moderate positive relationship between your Engagement and Reach"},
		{name: "strong negative", coefficient: -0.8, want: "strong negative relationship between your Engagement and Reach"},
		{name: "moderate negative", coefficient: -0.5, want: "moderate negative relationship between your Engagement and Reach"},
		{name: "weak", coefficient: 0.1, want: "weak or negligible relationship between your Engagement and Reach"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := recommendationText(&tt.coefficient, "Engagement", "Reach", series, series, len(series))
			assert.Contains(t, text, tt.want)
			assert.NotContains(t, text, "Data Gaps")
		})
	}
}

func TestRecommendationTextTopIncreases(t *testing.T) {
	series1 := []seriesPoint{
		sp("2024-01-01", 100),
		sp("2024-01-02", 250),  // +150%
		sp("2024-01-03", 500),  // +100%
		sp("2024-01-04", 900),  // +80%
		sp("2024-01-05", 1530), // +70%
	}
	series2 := []seriesPoint{
		sp("2024-01-01", 10),
		sp("2024-01-02", 11),
		sp("2024-01-03", 12),
		sp("2024-01-04", 13),
		sp("2024-01-05", 14),
	}
	coefficient := 0.5

	text := recommendationText(&coefficient, "Sales", "Reach", series1, series2, len(series1))

	assert.Contains(t, text, "Significant Increases Detected")
	assert.Contains(t, text, "For Sales, the top increases occurred on: 2024-01-02 (Value: 250, Change: +150.0%); 2024-01-03 (Value: 500, Change: +100.0%); 2024-01-04 (Value: 900, Change: +80.0%).")
	// Four qualifying jumps but only three are listed
	assert.Contains(t, text, "(and potentially more).")
	assert.NotContains(t, text, "1,530")
	assert.Contains(t, text, "Further Insights & Recommendations:")
}

func TestRecommendationTextDeeperDive(t *testing.T) {
	var series []seriesPoint
	for i := 0; i < 11; i++ {
		series = append(series, sp(fmt.Sprintf("2024-01-%02d", i+1), 100+float64(i)))
	}
	coefficient := 0.1

	text := recommendationText(&coefficient, "Engagement", "Sales", series, series, len(series))

	assert.Contains(t, text, "Deeper Dive Recommended")
	assert.Contains(t, text, "marketing push for Engagement")
}

func TestAnalyzeAppliesRowCap(t *testing.T) {
	fs := newFakeStore()
	cfg := testAnalyticsConfig()
	cfg.MaxRows = 500

	svc := NewCorrelationService(fs, cfg, testLogger())
	_, err := svc.Analyze(context.Background(), "", "", models.FilterAll)
	require.NoError(t, err)

	require.Len(t, fs.queries, 3)
	for _, q := range fs.queries {
		assert.Equal(t, 500, q.Limit, q.Table)
	}
}
