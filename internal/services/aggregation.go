package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/observability"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// TableFetcher is the slice of the store client the analytics services need.
type TableFetcher interface {
	FetchAll(ctx context.Context, q store.Query) ([]store.Row, int, error)
}

// Granularity selects the chart bucketing for a date range.
type Granularity int

const (
	GranularityDaily Granularity = iota + 1
	GranularityWeekly
	GranularityMonthly
)

// GranularityForRange picks the bucketing from the span between start and
// end: up to 30 days daily, 31 to 90 days weekly, beyond that monthly.
// An open-ended range defaults to monthly.
func GranularityForRange(start, end time.Time) Granularity {
	if start.IsZero() || end.IsZero() {
		return GranularityMonthly
	}
	delta := end.Sub(start)
	switch {
	case delta <= 30*24*time.Hour:
		return GranularityDaily
	case delta <= 90*24*time.Hour:
		return GranularityWeekly
	default:
		return GranularityMonthly
	}
}

// BucketStart maps a date onto its bucket key: the day itself, the Monday of
// its ISO week, or the first of its month.
func (g Granularity) BucketStart(date time.Time) time.Time {
	switch g {
	case GranularityDaily:
		return date
	case GranularityWeekly:
		// Monday of the ISO week
		offset := (int(date.Weekday()) + 6) % 7
		return date.AddDate(0, 0, -offset)
	case GranularityMonthly:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		panic(fmt.Sprintf("invalid granularity %d", int(g)))
	}
}

// Label formats a bucket key for chart output.
func (g Granularity) Label(bucket time.Time) string {
	if g == GranularityMonthly {
		return bucket.Format("2006-01")
	}
	return bucket.Format(models.DateLayout)
}

// SocialPoint is one aggregated social media chart bucket.
type SocialPoint struct {
	Date            string  `json:"date"`
	EngagementRate  float64 `json:"engagement"`
	EngagementTotal float64 `json:"engagement_total"`
	ReachTotal      float64 `json:"reach_total"`
}

// SalesPoint is one aggregated sales chart bucket.
type SalesPoint struct {
	Date       string  `json:"date"`
	SalesTotal float64 `json:"sales_total"`
}

// PerformanceResponse is the aggregated performance payload.
type PerformanceResponse struct {
	PerformanceChartsData []SocialPoint `json:"performance_charts_data"`
	SalesChartsData       []SalesPoint  `json:"sales_charts_data"`
	TotalSalesSummary     float64       `json:"total_sales_summary"`
	PerformanceInsights   string        `json:"performance_insights"`
}

// AggregationService turns raw platform tables into chart-ready buckets and
// narrative performance insights.
type AggregationService struct {
	store   TableFetcher
	maxRows int
	logger  logging.Logger
}

// NewAggregationService creates a new aggregation service.
func NewAggregationService(tableStore TableFetcher, cfg *config.AnalyticsConfig, logger logging.Logger) *AggregationService {
	return &AggregationService{
		store:   tableStore,
		maxRows: cfg.MaxRows,
		logger:  logger.WithComponent("aggregation"),
	}
}

// PerformanceData aggregates engagement, reach and revenue over the range.
//
// Parameters:
//
//	ctx: Context.
//	startDate, endDate: Inclusive YYYY-MM-DD bounds, either may be empty.
//	filter: Social platform filter.
//
// Returns:
//
//	*PerformanceResponse: Chart buckets, total sales and insight text.
//	error: Error on an unparsable date range.
func (s *AggregationService) PerformanceData(ctx context.Context, startDate, endDate string, filter models.PlatformFilter) (*PerformanceResponse, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpAggregation, "performance_data")
	defer observability.FinishSpan(span, nil)

	start, end, err := parseRangeBounds(startDate, endDate)
	if err != nil {
		return nil, err
	}
	granularity := GranularityForRange(start, end)
	s.logger.WithFields(map[string]interface{}{
		"granularity": int(granularity),
		"platform":    filter.String(),
	}).Debug("Aggregating performance data")

	social := s.fetchSocial(ctx, startDate, endDate, filter)
	sales := s.fetchSales(ctx, startDate, endDate)

	socialPoints := bucketSocial(social, granularity)
	salesPoints, totalSales := bucketSales(sales, granularity)

	return &PerformanceResponse{
		PerformanceChartsData: socialPoints,
		SalesChartsData:       salesPoints,
		TotalSalesSummary:     totalSales,
		PerformanceInsights:   generatePerformanceInsights(socialPoints, salesPoints, start, end, filter),
	}, nil
}

// socialSample is one social record reduced to the two chart metrics.
type socialSample struct {
	date       time.Time
	engagement float64
	reach      float64
}

func (s *AggregationService) fetchSocial(ctx context.Context, startDate, endDate string, filter models.PlatformFilter) []socialSample {
	var samples []socialSample
	for _, platform := range filter.Platforms() {
		rows, _, err := s.store.FetchAll(ctx, store.Query{
			Table:     platform.Table(),
			Select:    strings.Join(platform.RequiredColumns(), ","),
			StartDate: startDate,
			EndDate:   endDate,
			Limit:     s.maxRows,
		})
		if err != nil {
			s.logger.WithError(err).WithPlatform(platform.String()).Warn("Social fetch failed")
			continue
		}
		for _, rec := range models.ParseSocialRows(platform, rows) {
			samples = append(samples, socialSample{
				date:       rec.Date,
				engagement: rec.Engagement(),
				reach:      rec.ReachFor(platform),
			})
		}
	}
	return samples
}

func (s *AggregationService) fetchSales(ctx context.Context, startDate, endDate string) []models.SaleRecord {
	rows, _, err := s.store.FetchAll(ctx, store.Query{
		Table:     models.PlatformSales.Table(),
		Select:    "date,revenue",
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     s.maxRows,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Sales fetch failed")
		return nil
	}
	return models.ParseSaleRows(rows)
}

func bucketSocial(samples []socialSample, granularity Granularity) []SocialPoint {
	type totals struct {
		engagement float64
		reach      float64
	}
	buckets := make(map[time.Time]*totals)
	for _, sample := range samples {
		key := granularity.BucketStart(sample.date)
		if buckets[key] == nil {
			buckets[key] = &totals{}
		}
		buckets[key].engagement += sample.engagement
		buckets[key].reach += sample.reach
	}

	keys := make([]time.Time, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]SocialPoint, 0, len(keys))
	for _, key := range keys {
		bucket := buckets[key]
		rate := 0.0
		if bucket.reach > 0 {
			rate = round2(bucket.engagement / bucket.reach * 100)
		}
		points = append(points, SocialPoint{
			Date:            granularity.Label(key),
			EngagementRate:  rate,
			EngagementTotal: bucket.engagement,
			ReachTotal:      bucket.reach,
		})
	}
	return points
}

func bucketSales(records []models.SaleRecord, granularity Granularity) ([]SalesPoint, float64) {
	buckets := make(map[time.Time]float64)
	totalSales := 0.0
	for _, rec := range records {
		buckets[granularity.BucketStart(rec.Date)] += rec.Revenue
		totalSales += rec.Revenue
	}

	keys := make([]time.Time, 0, len(buckets))
	for key := range buckets {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })

	points := make([]SalesPoint, 0, len(keys))
	for _, key := range keys {
		points = append(points, SalesPoint{
			Date:       granularity.Label(key),
			SalesTotal: buckets[key],
		})
	}
	return points, totalSales
}

// generatePerformanceInsights builds the narrative summary: totals for each
// metric plus latest-vs-previous period movement with thresholds of 5% for
// sales and 10% for social metrics.
func generatePerformanceInsights(social []SocialPoint, sales []SalesPoint, start, end time.Time, filter models.PlatformFilter) string {
	var insights []string

	periodStr := ""
	if !start.IsZero() && !end.IsZero() {
		periodStr = fmt.Sprintf(" from %s to %s", start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	platformStr := ""
	if filter != models.FilterAll {
		name := filter.String()
		platformStr = fmt.Sprintf(" on %s", strings.ToUpper(name[:1])+name[1:])
	}

	if len(sales) > 0 {
		totalSales := 0.0
		for _, p := range sales {
			totalSales += p.SalesTotal
		}
		insights = append(insights, fmt.Sprintf("Your total sales revenue%s is approximately $%s.", periodStr, formatGrouped(totalSales, 2)))

		if len(sales) >= 2 {
			change := percentChange(sales[len(sales)-1].SalesTotal, sales[len(sales)-2].SalesTotal)
			switch {
			case change > 5:
				insights = append(insights, fmt.Sprintf("Sales show strong recent growth (+%.1f%%). Continue to invest in high-performing products and sales channels.", change))
			case change < -5:
				insights = append(insights, fmt.Sprintf("Sales have recently declined (-%.1f%%). Investigate recent market changes or campaign performance to address this.", -change))
			default:
				insights = append(insights, "Sales are stable. Look for new market opportunities or product launches to drive further growth.")
			}
		}
	} else {
		insights = append(insights, fmt.Sprintf("No sales data available for the selected period%s.", periodStr))
	}

	if len(social) > 0 {
		totalEngagement := 0.0
		rates := make([]float64, 0, len(social))
		for _, p := range social {
			totalEngagement += p.EngagementTotal
			rates = append(rates, p.EngagementRate)
		}
		insights = append(insights, fmt.Sprintf("Your social media campaigns%s generated a total of %s engagements with an average engagement rate of %.2f%%%s.",
			platformStr, formatGrouped(totalEngagement, 0), calculateMeanFloat64(rates), periodStr))

		if len(social) >= 2 {
			change := percentChange(social[len(social)-1].EngagementTotal, social[len(social)-2].EngagementTotal)
			switch {
			case change > 10:
				insights = append(insights, fmt.Sprintf("Engagement is surging (+%.1f%%). Identify top-performing content and replicate its success.", change))
			case change < -10:
				insights = append(insights, fmt.Sprintf("Engagement has dropped (-%.1f%%). Re-evaluate content strategy and audience targeting.", -change))
			default:
				insights = append(insights, "Engagement is consistent. Experiment with new content formats or call-to-actions to boost interaction.")
			}
		}
	} else {
		insights = append(insights, fmt.Sprintf("No social media engagement data available%s for the selected period.", platformStr))
	}

	if len(social) > 0 {
		totalReach := 0.0
		for _, p := range social {
			totalReach += p.ReachTotal
		}
		insights = append(insights, fmt.Sprintf("Your total social media reach%s%s was %s.", platformStr, periodStr, formatGrouped(totalReach, 0)))

		if len(social) >= 2 {
			change := percentChange(social[len(social)-1].ReachTotal, social[len(social)-2].ReachTotal)
			switch {
			case change > 10:
				insights = append(insights, fmt.Sprintf("Reach is expanding (+%.1f%%). Consider allocating more budget to channels or content types that are driving this reach.", change))
			case change < -10:
				insights = append(insights, fmt.Sprintf("Reach has contracted (-%.1f%%). Review ad spend, targeting, and content distribution strategies.", -change))
			default:
				insights = append(insights, "Reach is stable. Explore new platforms or partnerships to expand your audience.")
			}
		}
	} else {
		insights = append(insights, fmt.Sprintf("No social media reach data available%s for the selected period.", platformStr))
	}

	return strings.Join(insights, " ")
}

// parseRangeBounds parses optional YYYY-MM-DD range bounds.
func parseRangeBounds(startDate, endDate string) (time.Time, time.Time, error) {
	var start, end time.Time
	var err error
	if startDate != "" {
		start, err = time.Parse(models.DateLayout, startDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date %q: %w", startDate, err)
		}
	}
	if endDate != "" {
		end, err = time.Parse(models.DateLayout, endDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date %q: %w", endDate, err)
		}
	}
	return start, end, nil
}
