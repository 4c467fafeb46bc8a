package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/middleware"
	"github.com/andikafs/marketpulse-go/internal/services"
)

// ActivityHandler serves the audit trail endpoints.
type ActivityHandler struct {
	activity *services.ActivityService
	logger   logging.Logger
}

// NewActivityHandler creates a new instance of ActivityHandler.
func NewActivityHandler(activity *services.ActivityService, logger logging.Logger) *ActivityHandler {
	return &ActivityHandler{
		activity: activity,
		logger:   logger.WithComponent("activity_handler"),
	}
}

// logActivityRequest is the POST /log_activity body.
type logActivityRequest struct {
	Action  string `json:"action"`
	Details string `json:"details"`
}

// LogActivity appends one audit entry for the authenticated user.
func (h *ActivityHandler) LogActivity(c *gin.Context) {
	var req logActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Activity 'action' is required."})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token for activity logging."})
		return
	}

	if err := h.activity.LogActivity(c.Request.Context(), userID, req.Action, req.Details); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to log activity."})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Activity logged successfully."})
}

// GetActivityLogs returns one page of the audit trail, newest first.
func (h *ActivityHandler) GetActivityLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	logs, err := h.activity.ListLogs(c.Request.Context(), page, limit,
		c.Query("start_date"), c.Query("end_date"), c.Query("user_id"))
	if err != nil {
		h.logger.WithError(err).Error("Failed to retrieve activity logs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve activity logs"})
		return
	}
	c.JSON(http.StatusOK, logs)
}
