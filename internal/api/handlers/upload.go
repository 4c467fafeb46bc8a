package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/cache"
	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/metrics"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/services"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// UploadHandler accepts spreadsheet uploads and writes them to the store.
type UploadHandler struct {
	uploads   *services.UploadService
	cache     *cache.ResponseCache
	collector *metrics.Collector
	logger    logging.Logger
}

// NewUploadHandler creates a new instance of UploadHandler.
func NewUploadHandler(uploads *services.UploadService, responseCache *cache.ResponseCache, collector *metrics.Collector, logger logging.Logger) *UploadHandler {
	return &UploadHandler{
		uploads:   uploads,
		cache:     responseCache,
		collector: collector,
		logger:    logger.WithComponent("upload_handler"),
	}
}

// UploadData handles a multipart upload for one platform. The form carries
// the platform under "app" and the spreadsheet under "file". A successful
// write invalidates the analytics response cache.
func (h *UploadHandler) UploadData(c *gin.Context) {
	appName := c.PostForm("app")
	fileHeader, err := c.FormFile("file")
	if appName == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "App name and file are required."})
		return
	}

	platform, err := models.ParsePlatform(appName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Unsupported app name provided: '%s'. Please select 'Facebook', 'TikTok', or 'Sales'.", appName)})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.logger.WithError(err).Error("Failed to open uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to read uploaded file."})
		return
	}
	defer func() {
		_ = file.Close()
	}()

	start := time.Now()
	messages, err := h.uploads.Process(c.Request.Context(), platform, fileHeader.Filename, file)
	if err != nil {
		h.collector.RecordUploadMetrics(platform.String(), time.Since(start), false)
		if services.IsValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		// Store rejections keep their original status when it is known
		status := http.StatusBadGateway
		if reqErr, ok := err.(*store.RequestError); ok && reqErr.Status > 0 {
			status = reqErr.Status
		}
		h.logger.WithError(err).WithPlatform(platform.String()).Error("Upload failed")
		c.JSON(status, gin.H{"message": strings.Join(messages, "; ")})
		return
	}

	h.collector.RecordUploadMetrics(platform.String(), time.Since(start), true)
	h.cache.Invalidate(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"message": strings.Join(messages, "; ")})
}
