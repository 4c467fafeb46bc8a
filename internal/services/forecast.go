package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sartorproj/goarima/autoarima"
	"github.com/sartorproj/goarima/timeseries"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/observability"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// ForecastMetric identifies the series being forecast.
type ForecastMetric int

const (
	MetricSales ForecastMetric = iota + 1
	MetricEngagement
	MetricReach
)

// ParseForecastMetric converts the metric_type query parameter.
func ParseForecastMetric(s string) (ForecastMetric, error) {
	switch s {
	case "sales":
		return MetricSales, nil
	case "engagement":
		return MetricEngagement, nil
	case "reach":
		return MetricReach, nil
	default:
		return 0, fmt.Errorf("unsupported metric type %q", s)
	}
}

// Name returns the metric's display name used in narratives.
func (m ForecastMetric) Name() string {
	switch m {
	case MetricSales:
		return "Sales Revenue"
	case MetricEngagement:
		return "Engagement"
	case MetricReach:
		return "Reach"
	default:
		panic(fmt.Sprintf("invalid forecast metric %d", int(m)))
	}
}

// HistoricalPoint is one complete training month.
type HistoricalPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ForecastPoint is one forecast month with its prediction interval.
type ForecastPoint struct {
	Date       string  `json:"date"`
	Value      float64 `json:"value"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// ForecastResponse is the predictive analytics payload.
type ForecastResponse struct {
	HistoricalData []HistoricalPoint `json:"historical_data"`
	ForecastData   []ForecastPoint   `json:"forecast_data"`
	Recommendation string            `json:"recommendation"`
	Message        string            `json:"message"`
}

// ForecastService produces long-range monthly forecasts from the platform
// tables. The primary model is an auto-selected seasonal ARIMA; a linear
// trend fit covers series the search cannot handle.
type ForecastService struct {
	store          TableFetcher
	horizon        int
	minMonths      int
	seasonalPeriod int
	maxRows        int
	logger         logging.Logger

	// Now is the clock used for the in-progress month cutoff. Overridable
	// in tests.
	Now func() time.Time
}

// NewForecastService creates a new forecast service.
func NewForecastService(tableStore TableFetcher, cfg *config.AnalyticsConfig, logger logging.Logger) *ForecastService {
	return &ForecastService{
		store:          tableStore,
		horizon:        cfg.ForecastHorizonMonths,
		minMonths:      cfg.MinTrainingMonths,
		seasonalPeriod: cfg.SeasonalPeriod,
		maxRows:        cfg.MaxRows,
		logger:         logger.WithComponent("forecast"),
		Now:            time.Now,
	}
}

// Predict builds the monthly training series for the metric and forecasts
// the configured horizon.
//
// Parameters:
//
//	ctx: Context.
//	metric: The series to forecast.
//
// Returns:
//
//	*ForecastResponse: Historical months, forecast months and narrative.
//	error: Never set for insufficient data; the gate is a normal response.
func (s *ForecastService) Predict(ctx context.Context, metric ForecastMetric) (*ForecastResponse, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpForecast, metric.Name())
	defer observability.FinishSpan(span, nil)

	months, values := s.trainingSeries(ctx, metric)

	if len(values) < s.minMonths {
		s.logger.WithFields(map[string]interface{}{
			"metric": metric.Name(),
			"months": len(values),
		}).Warn("Insufficient complete months for forecasting")
		return &ForecastResponse{
			HistoricalData: []HistoricalPoint{},
			ForecastData:   []ForecastPoint{},
			Recommendation: fmt.Sprintf("Not enough complete historical data (at least %d months) to generate a robust monthly forecast for %s. Please upload more complete historical data.", s.minMonths, metric.Name()),
			Message:        "Not enough complete historical data for forecasting.",
		}, nil
	}

	historical := make([]HistoricalPoint, len(months))
	for i, month := range months {
		historical[i] = HistoricalPoint{
			Date:  month.Format(models.DateLayout),
			Value: round2(values[i]),
		}
	}

	forecast := s.forecastSeries(months, values)

	return &ForecastResponse{
		HistoricalData: historical,
		ForecastData:   forecast,
		Recommendation: s.generateRecommendation(values, forecast, metric.Name()),
		Message:        "Predictive analytics successful.",
	}, nil
}

// trainingSeries fetches the metric's daily values, sums them per calendar
// month and drops the in-progress month. Months with no records are absent,
// not zero. Returned months are sorted ascending.
func (s *ForecastService) trainingSeries(ctx context.Context, metric ForecastMetric) ([]time.Time, []float64) {
	monthly := make(map[time.Time]float64)

	add := func(date time.Time, value float64) {
		month := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		monthly[month] += value
	}

	switch metric {
	case MetricSales:
		rows, _, err := s.store.FetchAll(ctx, store.Query{
			Table:  models.PlatformSales.Table(),
			Select: "date,revenue",
			Order:  "date.asc",
			Limit:  s.maxRows,
		})
		if err != nil {
			s.logger.WithError(err).Warn("Sales fetch failed")
		}
		for _, rec := range models.ParseSaleRows(rows) {
			add(rec.Date, rec.Revenue)
		}
	case MetricEngagement, MetricReach:
		for _, platform := range []models.Platform{models.PlatformTikTok, models.PlatformFacebook} {
			rows, _, err := s.store.FetchAll(ctx, store.Query{
				Table:  platform.Table(),
				Select: "date," + metricColumns(platform),
				Order:  "date.asc",
				Limit:  s.maxRows,
			})
			if err != nil {
				s.logger.WithError(err).WithPlatform(platform.String()).Warn("Social fetch failed")
				continue
			}
			for _, rec := range models.ParseSocialRows(platform, rows) {
				if metric == MetricEngagement {
					add(rec.Date, rec.Engagement())
				} else {
					add(rec.Date, rec.ReachFor(platform))
				}
			}
		}
	default:
		panic(fmt.Sprintf("invalid forecast metric %d", int(metric)))
	}

	cutoff := s.trainingCutoff()
	months := make([]time.Time, 0, len(monthly))
	for month := range monthly {
		if !month.After(cutoff) {
			months = append(months, month)
		}
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	values := make([]float64, len(months))
	for i, month := range months {
		values[i] = monthly[month]
	}
	return months, values
}

// trainingCutoff returns the latest month start eligible for training. The
// current month only qualifies on its last day; otherwise it is incomplete
// and the previous month is the cutoff.
func (s *ForecastService) trainingCutoff() time.Time {
	now := s.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	lastDay := monthStart.AddDate(0, 1, -1).Day()
	if now.Day() < lastDay {
		return monthStart.AddDate(0, -1, 0)
	}
	return monthStart
}

// forecastSeries runs the ARIMA search and falls back to a linear trend when
// the search fails. Forecast months are the consecutive month starts after
// the last training month; values and lower bounds are clamped to zero.
func (s *ForecastService) forecastSeries(months []time.Time, values []float64) []ForecastPoint {
	lastMonth := months[len(months)-1]

	forecasts, lower, upper, err := s.arimaForecast(values)
	if err != nil {
		s.logger.WithError(err).Warn("ARIMA search failed, falling back to linear trend")
		forecasts, lower, upper = s.linearForecast(months, values)
	}
	if len(forecasts) == 0 {
		return []ForecastPoint{}
	}

	points := make([]ForecastPoint, len(forecasts))
	for i := range forecasts {
		value := round2(forecasts[i])
		lo := round2(lower[i])
		hi := round2(upper[i])
		if value < 0 {
			value = 0
		}
		if lo < 0 {
			lo = 0
		}
		points[i] = ForecastPoint{
			Date:       lastMonth.AddDate(0, i+1, 0).Format(models.DateLayout),
			Value:      value,
			LowerBound: lo,
			UpperBound: hi,
		}
	}
	return points
}

// arimaForecast fits an auto-selected model with monthly seasonality. When
// the selected model is non-seasonal it carries no interval estimate, so the
// bounds are synthesized at ±10%.
func (s *ForecastService) arimaForecast(values []float64) (forecasts, lower, upper []float64, err error) {
	series := timeseries.New(values)
	result, err := autoarima.AutoARIMA(series, &autoarima.Config{
		MaxP:        5,
		MaxD:        2,
		MaxQ:        5,
		MaxSP:       2,
		MaxSD:       1,
		MaxSQ:       2,
		Seasonal:    true,
		SeasonalM:   s.seasonalPeriod,
		Stepwise:    true,
		Criterion:   "aic",
		StationTest: "kpss",
	})
	if err != nil {
		return nil, nil, nil, err
	}

	if result.IsSeasonal && result.SeasonalModel != nil {
		forecasts, lower, upper, err = result.SeasonalModel.PredictWithInterval(s.horizon, 0.95)
		if err != nil {
			return nil, nil, nil, err
		}
		return forecasts, lower, upper, nil
	}

	forecasts, err = result.Predict(s.horizon)
	if err != nil {
		return nil, nil, nil, err
	}
	if forecasts == nil {
		return nil, nil, nil, fmt.Errorf("model search produced no usable model")
	}
	lower = make([]float64, len(forecasts))
	upper = make([]float64, len(forecasts))
	for i, v := range forecasts {
		lower[i] = v * 0.9
		upper[i] = v * 1.1
	}
	return forecasts, lower, upper, nil
}

// linearForecast fits an ordinary least squares trend against the ordinal
// day axis. Fewer than 2 points yield an empty forecast. Bounds are ±10%.
func (s *ForecastService) linearForecast(months []time.Time, values []float64) (forecasts, lower, upper []float64) {
	if len(values) < 2 {
		return nil, nil, nil
	}

	first := months[0]
	x := make([]float64, len(months))
	for i, month := range months {
		x[i] = month.Sub(first).Hours() / 24
	}
	slope, intercept := fitLinearTrend(x, values)

	lastMonth := months[len(months)-1]
	forecasts = make([]float64, s.horizon)
	lower = make([]float64, s.horizon)
	upper = make([]float64, s.horizon)
	for i := 0; i < s.horizon; i++ {
		futureX := lastMonth.AddDate(0, i+1, 0).Sub(first).Hours() / 24
		v := intercept + slope*futureX
		forecasts[i] = v
		lower[i] = v * 0.9
		upper[i] = v * 1.1
	}
	return forecasts, lower, upper
}

// generateRecommendation compares the start and end of the forecast window
// and renders the long-range narrative for the metric.
func (s *ForecastService) generateRecommendation(historical []float64, forecast []ForecastPoint, metricName string) string {
	if len(historical) == 0 || len(forecast) == 0 {
		return fmt.Sprintf("Not enough data to provide a comprehensive recommendation for %s. Please upload more historical data to enable robust forecasting and insights.", metricName)
	}

	var overallChange float64
	if len(forecast) > 1 {
		overallChange = percentChange(forecast[len(forecast)-1].Value, forecast[0].Value)
	} else {
		overallChange = percentChange(forecast[0].Value, historical[len(historical)-1])
	}

	recommendation := fmt.Sprintf("Based on historical data and projected trends, your %s is forecasted to be around %s next month.",
		metricName, formatGrouped(forecast[0].Value, 0))

	switch {
	case overallChange > 5:
		recommendation += fmt.Sprintf(" The long-term forecast indicates a strong positive growth of approximately +%.1f%% over the next 3 years. "+
			"This is an excellent sign for %s performance and suggests sustained positive momentum. "+
			"Consider doubling down on successful strategies that have driven this growth, and explore opportunities to scale up initiatives contributing to this positive outlook. "+
			"Proactive investment in these areas can lead to significant long-term gains.", overallChange, metricName)
	case overallChange < -5:
		recommendation += fmt.Sprintf(" The long-term forecast indicates a potential decline of approximately -%.1f%% over the next 3 years. "+
			"This trend could significantly impact overall business objectives. "+
			"It's crucial to immediately analyze recent activities and market shifts to identify root causes of this projected decline. "+
			"We recommend re-evaluating your current strategy for %s to mitigate this trend and implement corrective actions to stabilize or reverse the decline. "+
			"Early intervention is key to preventing further losses.", -overallChange, metricName)
	default:
		recommendation += fmt.Sprintf(" The long-term forecast indicates a relatively stable trend (%.1f%%) over the next 3 years. "+
			"While stability can be good, it also suggests a lack of significant growth. "+
			"Continue optimizing current efforts, but also explore new avenues or innovative strategies to stimulate further growth and achieve higher %s targets. "+
			"Consider A/B testing new approaches, targeting new segments, or diversifying your efforts to break through current plateaus.", overallChange, metricName)
	}
	return recommendation
}

// metricColumns returns the numeric columns a platform contributes to the
// engagement and reach series.
func metricColumns(p models.Platform) string {
	switch p {
	case models.PlatformTikTok:
		return "views,likes,comments,shares"
	case models.PlatformFacebook:
		return "likes,comments,shares,reach"
	default:
		panic(fmt.Sprintf("invalid platform %d", int(p)))
	}
}
