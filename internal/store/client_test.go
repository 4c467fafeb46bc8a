package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, baseURL string, pageSize int) *Client {
	t.Helper()
	return NewClient(&config.StoreConfig{
		BaseURL:    baseURL,
		ServiceKey: "test-service-key",
		Timeout:    5,
		PageSize:   pageSize,
	}, logging.NewStandardLogger("error", "production"))
}

// tableServer serves a fixed number of synthetic rows with PostgREST-style
// limit/offset pagination and records every request it sees.
type tableServer struct {
	totalRows int
	requests  []*http.Request
	failAfter int // fail requests with index >= failAfter, -1 disables
}

func (s *tableServer) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.requests = append(s.requests, r.Clone(r.Context()))
		if s.failAfter >= 0 && len(s.requests) > s.failAfter {
			http.Error(w, `{"message":"internal error"}`, http.StatusInternalServerError)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		end := offset + limit
		if end > s.totalRows {
			end = s.totalRows
		}
		rows := make([]Row, 0, end-offset)
		for i := offset; i < end; i++ {
			rows = append(rows, Row{"date": "2024-01-01", "revenue": float64(i)})
		}

		if r.Header.Get("Prefer") == "count=exact" {
			w.Header().Set("Content-Range", fmt.Sprintf("%d-%d/%d", offset, end-1, s.totalRows))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPartialContent)
		_ = json.NewEncoder(w).Encode(rows)
	}
}

func TestFetchAllPaginatesToCompletion(t *testing.T) {
	ts := &tableServer{totalRows: 2500, failAfter: -1}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	client := testClient(t, srv.URL, 1000)
	rows, total, err := client.FetchAll(context.Background(), Query{Table: "sales", Order: "date.asc"})

	require.NoError(t, err)
	assert.Len(t, rows, 2500)
	assert.Equal(t, 2500, total)
	// 1000 + 1000 + 500: the short third page stops pagination
	require.Len(t, ts.requests, 3)
	assert.Equal(t, "0", ts.requests[0].URL.Query().Get("offset"))
	assert.Equal(t, "1000", ts.requests[1].URL.Query().Get("offset"))
	assert.Equal(t, "2000", ts.requests[2].URL.Query().Get("offset"))
}

func TestFetchAllCountHeaderOnlyOnFirstRequest(t *testing.T) {
	ts := &tableServer{totalRows: 1500, failAfter: -1}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	client := testClient(t, srv.URL, 1000)
	rows, total, err := client.FetchAll(context.Background(), Query{Table: "activity_logs", WithCount: true})

	require.NoError(t, err)
	assert.Len(t, rows, 1500)
	assert.Equal(t, 1500, total)
	require.Len(t, ts.requests, 2)
	assert.Equal(t, "count=exact", ts.requests[0].Header.Get("Prefer"))
	assert.Empty(t, ts.requests[1].Header.Get("Prefer"))
}

func TestFetchAllCapTruncatesExactly(t *testing.T) {
	tests := []struct {
		name         string
		limit        int
		wantRows     int
		wantRequests int
		wantPerPage  string
	}{
		{name: "cap below page size issues one sized request", limit: 500, wantRows: 500, wantRequests: 1, wantPerPage: "500"},
		{name: "cap above page size truncates after over-fetch", limit: 1500, wantRows: 1500, wantRequests: 2, wantPerPage: "1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := &tableServer{totalRows: 2500, failAfter: -1}
			srv := httptest.NewServer(ts.handler())
			defer srv.Close()

			client := testClient(t, srv.URL, 1000)
			rows, _, err := client.FetchAll(context.Background(), Query{Table: "sales", Limit: tt.limit})

			require.NoError(t, err)
			assert.Len(t, rows, tt.wantRows)
			require.Len(t, ts.requests, tt.wantRequests)
			assert.Equal(t, tt.wantPerPage, ts.requests[0].URL.Query().Get("limit"))
		})
	}
}

func TestFetchAllDateFilters(t *testing.T) {
	ts := &tableServer{totalRows: 1, failAfter: -1}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	client := testClient(t, srv.URL, 1000)

	_, _, err := client.FetchAll(context.Background(), Query{
		Table:     "sales",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
	})
	require.NoError(t, err)
	q := ts.requests[0].URL.Query()
	assert.Equal(t, "gte.2024-01-01", q.Get("date"))
	assert.Contains(t, q["date"], "lte.2024-01-31")

	// activity_logs keeps a timestamptz column; the end bound covers the day
	ts.requests = nil
	_, _, err = client.FetchAll(context.Background(), Query{
		Table:     "activity_logs",
		StartDate: "2024-01-01",
		EndDate:   "2024-01-31",
		Filters:   map[string]string{"user_id": "uid-1", "skipped": ""},
	})
	require.NoError(t, err)
	q = ts.requests[0].URL.Query()
	assert.Equal(t, "gte.2024-01-01", q.Get("timestamp"))
	assert.Contains(t, q["timestamp"], "lte.2024-01-31T23:59:59.999Z")
	assert.Equal(t, "eq.uid-1", q.Get("user_id"))
	assert.Empty(t, q.Get("skipped"))
}

func TestFetchAllDegradesOnFailure(t *testing.T) {
	t.Run("first page failure yields empty result without error", func(t *testing.T) {
		ts := &tableServer{totalRows: 2500, failAfter: 0}
		srv := httptest.NewServer(ts.handler())
		defer srv.Close()

		client := testClient(t, srv.URL, 1000)
		rows, total, err := client.FetchAll(context.Background(), Query{Table: "sales"})

		require.NoError(t, err)
		assert.Empty(t, rows)
		assert.Equal(t, 0, total)
	})

	t.Run("mid-pagination failure yields accumulated rows", func(t *testing.T) {
		ts := &tableServer{totalRows: 2500, failAfter: 1}
		srv := httptest.NewServer(ts.handler())
		defer srv.Close()

		client := testClient(t, srv.URL, 1000)
		rows, _, err := client.FetchAll(context.Background(), Query{Table: "sales"})

		require.NoError(t, err)
		assert.Len(t, rows, 1000)
	})
}

func TestFetchAllContextCancellation(t *testing.T) {
	ts := &tableServer{totalRows: 10, failAfter: -1}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testClient(t, srv.URL, 1000)
	_, _, err := client.FetchAll(ctx, Query{Table: "sales"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchAllAuthHeaders(t *testing.T) {
	ts := &tableServer{totalRows: 1, failAfter: -1}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	client := testClient(t, srv.URL, 1000)
	_, _, err := client.FetchAll(context.Background(), Query{Table: "sales"})
	require.NoError(t, err)

	req := ts.requests[0]
	assert.Equal(t, "test-service-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer test-service-key", req.Header.Get("Authorization"))
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		upsert     bool
		wantPrefer string
		wantErr    bool
	}{
		{name: "created", status: http.StatusCreated},
		{name: "ok", status: http.StatusOK},
		{name: "no content", status: http.StatusNoContent},
		{name: "upsert sets merge header", status: http.StatusCreated, upsert: true, wantPrefer: "resolution=merge-duplicates"},
		{name: "conflict surfaces error", status: http.StatusConflict, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPrefer string
			var gotBody []Row
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPrefer = r.Header.Get("Prefer")
				_ = json.NewDecoder(r.Body).Decode(&gotBody)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			client := testClient(t, srv.URL, 1000)
			err := client.Insert(context.Background(), "products", []Row{{"product_id": "P1"}}, tt.upsert)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsRequestError(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefer, gotPrefer)
			require.Len(t, gotBody, 1)
		})
	}
}

func TestSumField(t *testing.T) {
	tests := []struct {
		name string
		body string
		want float64
	}{
		{name: "numeric sum", body: `[{"sum": 1234.5}]`, want: 1234.5},
		{name: "string sum", body: `[{"sum": "99"}]`, want: 99},
		{name: "null sum on empty table", body: `[{"sum": null}]`, want: 0},
		{name: "no rows", body: `[]`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSelect string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotSelect = r.URL.Query().Get("select")
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := testClient(t, srv.URL, 1000)
			got, err := client.SumField(context.Background(), "sales", "revenue", "2024-01-01", "2024-01-31")

			require.NoError(t, err)
			assert.Equal(t, "sum(revenue)", gotSelect)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseContentRangeTotal(t *testing.T) {
	assert.Equal(t, 12345, parseContentRangeTotal("0-999/12345", 10))
	assert.Equal(t, 10, parseContentRangeTotal("0-*/*", 10))
	assert.Equal(t, 10, parseContentRangeTotal("", 10))
	assert.Equal(t, 0, parseContentRangeTotal("*/0", 5))
}
