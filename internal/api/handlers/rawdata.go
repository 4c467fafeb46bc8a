package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/services"
)

// topProductsLimit caps the product leaderboard.
const topProductsLimit = 5

// RawDataHandler serves unaggregated table rows and store-side summaries.
type RawDataHandler struct {
	rawData *services.RawDataService
	logger  logging.Logger
}

// NewRawDataHandler creates a new instance of RawDataHandler.
func NewRawDataHandler(rawData *services.RawDataService, logger logging.Logger) *RawDataHandler {
	return &RawDataHandler{
		rawData: rawData,
		logger:  logger.WithComponent("rawdata_handler"),
	}
}

// GetFacebookData returns every Facebook row ordered by date.
func (h *RawDataHandler) GetFacebookData(c *gin.Context) {
	h.tableRows(c, models.PlatformFacebook)
}

// GetTikTokData returns every TikTok row ordered by date.
func (h *RawDataHandler) GetTikTokData(c *gin.Context) {
	h.tableRows(c, models.PlatformTikTok)
}

// GetSalesData returns every sales row ordered by date.
func (h *RawDataHandler) GetSalesData(c *gin.Context) {
	h.tableRows(c, models.PlatformSales)
}

func (h *RawDataHandler) tableRows(c *gin.Context, platform models.Platform) {
	rows, err := h.rawData.TableRows(c.Request.Context(), platform, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.logger.WithError(err).WithTable(platform.Table()).Error("Raw data fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch data"})
		return
	}
	c.JSON(http.StatusOK, rows)
}

// GetSalesSummary returns the store-side revenue sum over the range.
func (h *RawDataHandler) GetSalesSummary(c *gin.Context) {
	total, err := h.rawData.SalesSummary(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.logger.WithError(err).Error("Sales summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_sales": total})
}

// GetTopProducts returns the products ranked by summed revenue.
func (h *RawDataHandler) GetTopProducts(c *gin.Context) {
	products, err := h.rawData.TopProducts(c.Request.Context(), topProductsLimit, c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.logger.WithError(err).Error("Top products failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top products"})
		return
	}
	c.JSON(http.StatusOK, products)
}

// GetTikTokReachSummary returns the store-side views sum over the range.
func (h *RawDataHandler) GetTikTokReachSummary(c *gin.Context) {
	total, err := h.rawData.TikTokReachSummary(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.logger.WithError(err).Error("TikTok reach summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch reach summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_tiktok_reach": total})
}

// GetTikTokEngagementSummary sums likes, comments and shares over the range.
func (h *RawDataHandler) GetTikTokEngagementSummary(c *gin.Context) {
	total, err := h.rawData.TikTokEngagementSummary(c.Request.Context(), c.Query("start_date"), c.Query("end_date"))
	if err != nil {
		h.logger.WithError(err).Error("TikTok engagement summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch engagement summary"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"total_tiktok_engagement": total})
}
