package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/database"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/store"
)

func testLogger() logging.Logger {
	return logging.NewStandardLogger("error", "production")
}

type insertCall struct {
	table  string
	rows   []store.Row
	upsert bool
}

// fakeTableStore serves canned rows per table and records every call.
type fakeTableStore struct {
	rows      map[string][]store.Row
	queries   []store.Query
	inserts   []insertCall
	insertErr map[string]error
	sums      map[string]float64
}

func newFakeTableStore() *fakeTableStore {
	return &fakeTableStore{
		rows:      make(map[string][]store.Row),
		insertErr: make(map[string]error),
		sums:      make(map[string]float64),
	}
}

func (f *fakeTableStore) FetchAll(_ context.Context, q store.Query) ([]store.Row, int, error) {
	f.queries = append(f.queries, q)
	rows := f.rows[q.Table]
	return rows, len(rows), nil
}

func (f *fakeTableStore) Insert(_ context.Context, table string, records []store.Row, upsert bool) error {
	f.inserts = append(f.inserts, insertCall{table: table, rows: records, upsert: upsert})
	return f.insertErr[table]
}

func (f *fakeTableStore) SumField(_ context.Context, table, field, _, _ string) (float64, error) {
	return f.sums[table+"."+field], nil
}

// testResponseCache builds a real cache backed by miniredis.
func testResponseCache(t *testing.T) *cache.ResponseCache {
	t.Helper()
	mr := miniredis.RunT(t)

	host, portStr, ok := strings.Cut(mr.Addr(), ":")
	require.True(t, ok)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	client, err := database.NewRedisConnection(config.RedisConfig{Host: host, Port: port}, testLogger())
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return cache.New(client, time.Minute, testLogger())
}

// disabledCache is a cache with no Redis behind it.
func disabledCache() *cache.ResponseCache {
	return cache.New(nil, time.Minute, testLogger())
}

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doRequest(router *gin.Engine, method, target string, body *strings.Reader) *httptest.ResponseRecorder {
	var req *http.Request
	if body == nil {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, body)
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}
