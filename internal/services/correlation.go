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

// ChartPoint is one fully joined day for scatter plotting. Days a metric has
// no data for carry zero.
type ChartPoint struct {
	Date       string  `json:"date"`
	Engagement float64 `json:"engagement"`
	Reach      float64 `json:"reach"`
	Sales      float64 `json:"sales"`
}

// CorrelationResponse is the correlation analysis payload. A nil coefficient
// means the pair had no meaningful sample and serializes as JSON null.
type CorrelationResponse struct {
	Message         string              `json:"message"`
	Correlations    map[string]*float64 `json:"correlations"`
	Recommendations map[string]string   `json:"recommendations"`
	ChartData       []ChartPoint        `json:"chart_data"`
}

// CorrelationService measures how engagement, reach and revenue move
// together day by day and narrates what the coefficients mean.
type CorrelationService struct {
	store   TableFetcher
	maxRows int
	logger  logging.Logger
}

// NewCorrelationService creates a new correlation service.
func NewCorrelationService(tableStore TableFetcher, cfg *config.AnalyticsConfig, logger logging.Logger) *CorrelationService {
	return &CorrelationService{
		store:   tableStore,
		maxRows: cfg.MaxRows,
		logger:  logger.WithComponent("correlation"),
	}
}

// seriesPoint is one daily observation in a correlation sample.
type seriesPoint struct {
	date  time.Time
	value float64
}

// Analyze joins the three daily series and computes Spearman rank
// correlations pairwise.
//
// Parameters:
//
//	ctx: Context.
//	startDate, endDate: Inclusive YYYY-MM-DD bounds, either may be empty.
//	filter: Social platform filter.
//
// Returns:
//
//	*CorrelationResponse: Coefficients, narratives and the joined series.
//	error: Error on an unparsable date range.
func (s *CorrelationService) Analyze(ctx context.Context, startDate, endDate string, filter models.PlatformFilter) (*CorrelationResponse, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpCorrelation, "correlation_analysis")
	defer observability.FinishSpan(span, nil)

	if _, _, err := parseRangeBounds(startDate, endDate); err != nil {
		return nil, err
	}

	type dayTotals struct {
		engagement float64
		reach      float64
		sales      float64
	}
	days := make(map[time.Time]*dayTotals)
	day := func(date time.Time) *dayTotals {
		if days[date] == nil {
			days[date] = &dayTotals{}
		}
		return days[date]
	}

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
			totals := day(rec.Date)
			totals.engagement += rec.Engagement()
			totals.reach += rec.ReachFor(platform)
		}
	}

	salesRows, _, err := s.store.FetchAll(ctx, store.Query{
		Table:     models.PlatformSales.Table(),
		Select:    "date,revenue",
		StartDate: startDate,
		EndDate:   endDate,
		Limit:     s.maxRows,
	})
	if err != nil {
		s.logger.WithError(err).Warn("Sales fetch failed")
	}
	for _, rec := range models.ParseSaleRows(salesRows) {
		day(rec.Date).sales += rec.Revenue
	}

	dates := make([]time.Time, 0, len(days))
	for date := range days {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	totalPossibleDates := len(dates)

	chartData := make([]ChartPoint, 0, len(dates))
	var engagement, reach, sales []seriesPoint
	for _, date := range dates {
		totals := days[date]
		chartData = append(chartData, ChartPoint{
			Date:       date.Format(models.DateLayout),
			Engagement: totals.engagement,
			Reach:      totals.reach,
			Sales:      totals.sales,
		})
		// The correlation sample keeps only days where every metric moved
		if totals.engagement > 0 && totals.reach > 0 && totals.sales > 0 {
			engagement = append(engagement, seriesPoint{date, totals.engagement})
			reach = append(reach, seriesPoint{date, totals.reach})
			sales = append(sales, seriesPoint{date, totals.sales})
		}
	}

	correlations := make(map[string]*float64)
	recommendations := make(map[string]string)
	pairs := []struct {
		key      string
		name1    string
		name2    string
		series1  []seriesPoint
		series2  []seriesPoint
	}{
		{key: "engage_reach", name1: "Engagement", name2: "Reach", series1: engagement, series2: reach},
		{key: "engage_sales", name1: "Engagement", name2: "Sales", series1: engagement, series2: sales},
		{key: "reach_sales", name1: "Reach", name2: "Sales", series1: reach, series2: sales},
	}
	for _, pair := range pairs {
		coefficient, ok := pairCorrelation(pair.series1, pair.series2)
		if !ok {
			correlations[pair.key] = nil
			recommendations[pair.key] = recommendationText(nil, pair.name1, pair.name2, nil, nil, totalPossibleDates)
			continue
		}
		rounded := round2(coefficient)
		correlations[pair.key] = &rounded
		recommendations[pair.key] = recommendationText(&coefficient, pair.name1, pair.name2, pair.series1, pair.series2, totalPossibleDates)
	}

	return &CorrelationResponse{
		Message:         "Correlation analysis successful.",
		Correlations:    correlations,
		Recommendations: recommendations,
		ChartData:       chartData,
	}, nil
}

// pairCorrelation computes the Spearman coefficient for two aligned series.
// Returns false when either series has zero variance over the sample.
func pairCorrelation(series1, series2 []seriesPoint) (float64, bool) {
	values1 := seriesValues(series1)
	values2 := seriesValues(series2)
	if calculateStdDev(values1) == 0 || calculateStdDev(values2) == 0 {
		return 0, false
	}
	return calculateSpearman(values1, values2), true
}

func seriesValues(series []seriesPoint) []float64 {
	values := make([]float64, len(series))
	for i, point := range series {
		values[i] = point.value
	}
	return values
}

// significantIncrease is one day whose value jumped sharply over the
// previous sample day.
type significantIncrease struct {
	date   time.Time
	value  float64
	change float64
}

// detectSignificantIncreases finds day-over-day jumps above the threshold
// percentage, largest first.
func detectSignificantIncreases(series []seriesPoint, thresholdPercent float64) []significantIncrease {
	if len(series) < 2 {
		return nil
	}
	var increases []significantIncrease
	for i := 1; i < len(series); i++ {
		prev := series[i-1].value
		if prev == 0 {
			continue
		}
		change := percentChange(series[i].value, prev)
		if change > thresholdPercent {
			increases = append(increases, significantIncrease{
				date:   series[i].date,
				value:  series[i].value,
				change: change,
			})
		}
	}
	sort.Slice(increases, func(i, j int) bool { return increases[i].change > increases[j].change })
	return increases
}

func formatIncreases(increases []significantIncrease) []string {
	formatted := make([]string, len(increases))
	for i, inc := range increases {
		formatted[i] = fmt.Sprintf("%s (Value: %s, Change: +%.1f%%)",
			inc.date.Format(models.DateLayout), formatGrouped(inc.value, 0), inc.change)
	}
	return formatted
}

// recommendationText narrates a correlation pair: strength and direction,
// data gaps, standout daily jumps, and a manual inspection suggestion for
// weak coefficients with a decent sample. A nil coefficient means the pair
// had no usable sample.
func recommendationText(coefficient *float64, var1Name, var2Name string, series1, series2 []seriesPoint, totalPossiblePoints int) string {
	if coefficient == nil {
		return fmt.Sprintf("Not enough meaningful data to calculate a correlation between %s and %s for the selected period/platform. Please ensure you have sufficient non-zero data points for both metrics.<br>", var1Name, var2Name)
	}

	correlation := *coefficient
	correlationAbs := correlation
	if correlationAbs < 0 {
		correlationAbs = -correlationAbs
	}

	var strength string
	switch {
	case correlationAbs >= 0.7:
		strength = "strong"
	case correlationAbs >= 0.3:
		strength = "moderate"
	default:
		strength = "weak or negligible"
	}

	var message string
	switch {
	case correlation > 0.3 && strength == "strong":
		message = fmt.Sprintf("There is a strong positive relationship between your %[1]s and %[2]s. "+
			"This means when %[1]s increases, %[2]s also significantly increases. <br>"+
			"This is a powerful connection for your business. We recommend identifying the specific campaigns, content, or actions that led to high %[1]s on dates where %[2]s also saw significant boosts. Focus your efforts and investment on replicating and scaling these successful strategies to maximize %[2]s's performance.<br>",
			var1Name, var2Name)
	case correlation > 0.3:
		message = fmt.Sprintf("There is a moderate positive relationship between your %[1]s and %[2]s. "+
			"This suggests that as %[1]s increases, %[2]s tends to increase, but not always dramatically. <br>"+
			"This relationship offers opportunities for improvement. Analyze periods where both %[1]s and %[2]s performed well simultaneously. Can you identify any common factors or specific activities during those times? Experiment with initiatives that aim to strengthen this positive link, such as optimizing your content to drive both engagement and sales.<br>",
			var1Name, var2Name)
	case correlation < -0.3 && strength == "strong":
		message = fmt.Sprintf("There is a strong negative relationship between your %[1]s and %[2]s. "+
			"This indicates that as %[1]s increases, %[2]s significantly decreases. <br>"+
			"This is a critical area for immediate attention. Identify specific dates or campaigns where %[1]s was high but %[2]s was low. What happened during those periods? It's crucial to investigate potential conflicts in your strategy, such as ad campaigns that drive clicks but not conversions, and adjust your approach for %[1]s to mitigate its negative impact on %[2]s.<br>",
			var1Name, var2Name)
	case correlation < -0.3:
		message = fmt.Sprintf("There is a moderate negative relationship between your %[1]s and %[2]s. "+
			"This suggests that as %[1]s increases, %[2]s tends to decrease. <br>"+
			"This inverse trend warrants investigation. Look for specific instances where this negative pattern was most pronounced. Are certain types of content or activities for %[1]s inadvertently detracting from %[2]s? Adjust your approach to minimize any adverse effects and ensure your efforts are aligned with overall business goals.<br>",
			var1Name, var2Name)
	default:
		message = fmt.Sprintf("There is a weak or negligible relationship between your %[1]s and %[2]s. "+
			"This means changes in %[1]s do not consistently or significantly influence %[2]s in a direct or inverse manner. <br>"+
			"From a business perspective, %[1]s is likely not a primary driver for %[2]s in its current state. "+
			"Consider exploring other factors that might have a stronger impact on %[2]s, or refine your strategies for %[1]s to see if a more direct link can be established. For example, if you want %[1]s to drive %[2]s, ensure your calls-to-action are clear and your funnels are optimized.<br>",
			var1Name, var2Name)
	}

	var additionalInsights []string
	currentPoints := len(series1)

	if currentPoints > 0 {
		if totalPossiblePoints > currentPoints {
			gapPercentage := float64(totalPossiblePoints-currentPoints) / float64(totalPossiblePoints) * 100
			additionalInsights = append(additionalInsights, fmt.Sprintf("Data Gaps: Approximately %.1f%% of the potential daily data points had zero or missing values for one or both metrics. This can make it harder to see a complete picture of their relationship. We recommend ensuring consistent data collection and investigating why data might be missing or zero on certain days.<br>", gapPercentage))
		}

		increases1 := detectSignificantIncreases(series1, 50)
		increases2 := detectSignificantIncreases(series2, 50)
		top1 := increases1
		if len(top1) > 3 {
			top1 = top1[:3]
		}
		top2 := increases2
		if len(top2) > 3 {
			top2 = top2[:3]
		}

		if len(top1) > 0 || len(top2) > 0 {
			increaseMessage := "Significant Increases Detected: We observed notable increases that stand out from the typical daily fluctuations."
			if len(top1) > 0 {
				increaseMessage += fmt.Sprintf("<br>For %s, the top increases occurred on: %s.", var1Name, strings.Join(formatIncreases(top1), "; "))
				if len(increases1) > len(top1) {
					increaseMessage += " (and potentially more)."
				}
			}
			if len(top2) > 0 {
				increaseMessage += fmt.Sprintf("<br>For %s, the top increases occurred on: %s.", var2Name, strings.Join(formatIncreases(top2), "; "))
				if len(increases2) > len(top2) {
					increaseMessage += " (and potentially more)."
				}
			}
			increaseMessage += "<br>For these dates, we highly recommend reviewing your activities, campaigns, or external events that might have contributed to these surges. Understanding these drivers can help you replicate success.<br>"
			additionalInsights = append(additionalInsights, increaseMessage)
		}

		if strength == "weak or negligible" && currentPoints > 10 {
			additionalInsights = append(additionalInsights, fmt.Sprintf("Deeper Dive Recommended: Given the weak relationship, it's beneficial to manually examine the periods where %[1]s and %[2]s moved in the same direction (both up or both down) or in opposite directions. This qualitative analysis can reveal patterns or external factors that a simple correlation might miss. For instance, did a specific marketing push for %[1]s coincide with an unexpected dip in %[2]s?<br>", var1Name, var2Name))
		}
	}

	if len(additionalInsights) > 0 {
		message += "<br>Further Insights & Recommendations:<br>" + strings.Join(additionalInsights, "")
	}

	return message
}
