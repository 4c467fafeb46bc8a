package services

import (
	"context"
	"fmt"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/store"
)

func testLogger() logging.Logger {
	return logging.NewStandardLogger("error", "production")
}

func testAnalyticsConfig() *config.AnalyticsConfig {
	return &config.AnalyticsConfig{
		ForecastHorizonMonths: 36,
		MinTrainingMonths:     24,
		SeasonalPeriod:        12,
	}
}

type insertCall struct {
	table  string
	rows   []store.Row
	upsert bool
}

// fakeStore serves canned rows per table and records every call.
type fakeStore struct {
	rows      map[string][]store.Row
	queries   []store.Query
	inserts   []insertCall
	insertErr map[string]error
	sums      map[string]float64
	sumErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:      make(map[string][]store.Row),
		insertErr: make(map[string]error),
		sums:      make(map[string]float64),
	}
}

func (f *fakeStore) FetchAll(_ context.Context, q store.Query) ([]store.Row, int, error) {
	f.queries = append(f.queries, q)
	rows := f.rows[q.Table]
	return rows, len(rows), nil
}

func (f *fakeStore) Insert(_ context.Context, table string, records []store.Row, upsert bool) error {
	f.inserts = append(f.inserts, insertCall{table: table, rows: records, upsert: upsert})
	return f.insertErr[table]
}

func (f *fakeStore) SumField(_ context.Context, table, field, _, _ string) (float64, error) {
	if f.sumErr != nil {
		return 0, f.sumErr
	}
	return f.sums[table+"."+field], nil
}

func socialRow(date string, views, likes, comments, shares, reach float64) store.Row {
	return store.Row{
		"date":     date,
		"views":    views,
		"likes":    likes,
		"comments": comments,
		"shares":   shares,
		"reach":    reach,
	}
}

func saleRow(date string, revenue float64) store.Row {
	return store.Row{"date": date, "revenue": revenue}
}

// monthlySales fills n consecutive months of single-day sales starting at
// the given month.
func monthlySales(startYear, startMonth, n int, value float64) []store.Row {
	rows := make([]store.Row, 0, n)
	year, month := startYear, startMonth
	for i := 0; i < n; i++ {
		rows = append(rows, saleRow(fmt.Sprintf("%04d-%02d-15", year, month), value))
		month++
		if month > 12 {
			month = 1
			year++
		}
	}
	return rows
}
