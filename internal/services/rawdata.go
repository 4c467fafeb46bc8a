package services

import (
	"context"
	"sort"

	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// SummingFetcher is the slice of the store client the raw data service needs.
type SummingFetcher interface {
	TableFetcher
	SumField(ctx context.Context, table, field, startDate, endDate string) (float64, error)
}

// TopProduct is one catalog entry ranked by summed revenue.
type TopProduct struct {
	ProductName string  `json:"product_name"`
	Sales       float64 `json:"sales"`
}

// RawDataService serves unaggregated table rows and store-side summaries.
type RawDataService struct {
	store  SummingFetcher
	logger logging.Logger
}

// NewRawDataService creates a new raw data service.
func NewRawDataService(tableStore SummingFetcher, logger logging.Logger) *RawDataService {
	return &RawDataService{
		store:  tableStore,
		logger: logger.WithComponent("rawdata"),
	}
}

// TableRows fetches every row of a platform table ordered by date.
func (s *RawDataService) TableRows(ctx context.Context, platform models.Platform, startDate, endDate string) ([]store.Row, error) {
	rows, _, err := s.store.FetchAll(ctx, store.Query{
		Table:     platform.Table(),
		Order:     "date.asc",
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []store.Row{}
	}
	s.logger.WithTable(platform.Table()).WithFields(map[string]interface{}{
		"records": len(rows),
	}).Info("Raw table rows fetched")
	return rows, nil
}

// SalesSummary returns the store-side revenue sum over the range.
func (s *RawDataService) SalesSummary(ctx context.Context, startDate, endDate string) (float64, error) {
	return s.store.SumField(ctx, models.PlatformSales.Table(), "revenue", startDate, endDate)
}

// TikTokReachSummary returns the store-side views sum over the range.
func (s *RawDataService) TikTokReachSummary(ctx context.Context, startDate, endDate string) (float64, error) {
	return s.store.SumField(ctx, models.PlatformTikTok.Table(), "views", startDate, endDate)
}

// TikTokEngagementSummary sums likes, comments and shares over the range.
func (s *RawDataService) TikTokEngagementSummary(ctx context.Context, startDate, endDate string) (float64, error) {
	table := models.PlatformTikTok.Table()
	total := 0.0
	for _, field := range []string{"likes", "comments", "shares"} {
		sum, err := s.store.SumField(ctx, table, field, startDate, endDate)
		if err != nil {
			return 0, err
		}
		total += sum
	}
	return total, nil
}

// TopProducts ranks products by summed revenue over the range.
//
// Parameters:
//
//	ctx: Context.
//	limit: Maximum products returned.
//	startDate, endDate: Inclusive YYYY-MM-DD bounds, either may be empty.
//
// Returns:
//
//	[]TopProduct: Ranked products, empty when either table has no rows.
//	error: Error only on context cancellation.
func (s *RawDataService) TopProducts(ctx context.Context, limit int, startDate, endDate string) ([]TopProduct, error) {
	salesRows, _, err := s.store.FetchAll(ctx, store.Query{
		Table:     models.PlatformSales.Table(),
		Select:    "product_id,revenue,date",
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}
	if len(salesRows) == 0 {
		return []TopProduct{}, nil
	}

	revenueByProduct := make(map[string]float64)
	for _, row := range salesRows {
		productID := models.StringValue(row["product_id"])
		if productID == "" {
			continue
		}
		revenueByProduct[productID] += models.NumericValue(row["revenue"])
	}

	productRows, _, err := s.store.FetchAll(ctx, store.Query{
		Table:  "products",
		Select: "product_id,product_name",
	})
	if err != nil {
		return nil, err
	}
	if len(productRows) == 0 {
		return []TopProduct{}, nil
	}

	// Inner join: only products present in both tables rank
	products := make([]TopProduct, 0, len(productRows))
	for _, row := range productRows {
		productID := models.StringValue(row["product_id"])
		revenue, sold := revenueByProduct[productID]
		if !sold {
			continue
		}
		products = append(products, TopProduct{
			ProductName: models.StringValue(row["product_name"]),
			Sales:       revenue,
		})
	}
	sort.Slice(products, func(i, j int) bool { return products[i].Sales > products[j].Sales })
	if len(products) > limit {
		products = products[:limit]
	}
	return products, nil
}
