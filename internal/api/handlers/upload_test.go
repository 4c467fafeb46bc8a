package handlers

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	responsecache "github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/metrics"
	"github.com/andikafs/marketpulse-go/internal/services"
	"github.com/andikafs/marketpulse-go/internal/store"
)

func uploadRouter(fs *fakeTableStore, rc *responsecache.ResponseCache) *gin.Engine {
	collector := metrics.NewCollector(testLogger(), "test")
	h := NewUploadHandler(services.NewUploadService(fs, testLogger()), rc, collector, testLogger())
	router := testRouter()
	router.POST("/upload-data", h.UploadData)
	return router
}

func multipartRequest(t *testing.T, app, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if app != "" {
		require.NoError(t, writer.WriteField("app", app))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-data", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestUploadData(t *testing.T) {
	fs := newFakeTableStore()
	router := uploadRouter(fs, disabledCache())

	csvData := "date,views,likes,comments,shares\n2024-01-01,100,10,1,2\n2024-01-01,50,5,1,1\n"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "tiktok", "metrics.csv", csvData))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message": "'tiktokdata' data uploaded successfully."}`, w.Body.String())

	require.Len(t, fs.inserts, 1)
	assert.Equal(t, "tiktokdata", fs.inserts[0].table)
	require.Len(t, fs.inserts[0].rows, 1)
	assert.Equal(t, 150.0, fs.inserts[0].rows[0]["views"])
}

func TestUploadDataMissingFields(t *testing.T) {
	router := uploadRouter(newFakeTableStore(), disabledCache())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "", "metrics.csv", "date\n2024-01-01\n"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "App name and file are required.")

	w = httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "tiktok", "", ""))
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "App name and file are required.")
}

func TestUploadDataUnsupportedApp(t *testing.T) {
	router := uploadRouter(newFakeTableStore(), disabledCache())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "myspace", "metrics.csv", "date\n2024-01-01\n"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unsupported app name provided: 'myspace'. Please select 'Facebook', 'TikTok', or 'Sales'.")
}

func TestUploadDataValidationError(t *testing.T) {
	fs := newFakeTableStore()
	router := uploadRouter(fs, disabledCache())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "tiktok", "metrics.csv", "date\n2024-01-01\n"))

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Missing required TikTok columns")
	assert.Empty(t, fs.inserts)
}

func TestUploadDataStoreRejection(t *testing.T) {
	fs := newFakeTableStore()
	fs.insertErr["tiktokdata"] = &store.RequestError{Table: "tiktokdata", Status: http.StatusConflict, Message: "duplicate key"}
	router := uploadRouter(fs, disabledCache())

	csvData := "date,views,likes,comments,shares\n2024-01-01,100,10,1,2\n"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "tiktok", "metrics.csv", csvData))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "'tiktokdata' upload failed:")
}

func TestUploadDataInvalidatesCache(t *testing.T) {
	fs := newFakeTableStore()
	rc := testResponseCache(t)
	router := uploadRouter(fs, rc)

	key := responsecache.Key("performance-data", map[string]string{"platform": "tiktok"})
	rc.Set(context.Background(), key, map[string]string{"stale": "yes"})

	csvData := "date,views,likes,comments,shares\n2024-01-01,100,10,1,2\n"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, multipartRequest(t, "tiktok", "metrics.csv", csvData))
	require.Equal(t, http.StatusOK, w.Code)

	var cached map[string]string
	assert.False(t, rc.Get(context.Background(), key, &cached))
}
