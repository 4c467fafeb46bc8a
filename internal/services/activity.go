package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/observability"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// activityLogsTable holds the audit trail.
const activityLogsTable = "activity_logs"

// ActivityStore is the slice of the store client the activity service needs.
type ActivityStore interface {
	TableFetcher
	Inserter
}

// ActivityLogsPage is one page of the audit trail.
type ActivityLogsPage struct {
	Logs       []store.Row `json:"logs"`
	TotalCount int         `json:"total_count"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
}

// ActivityService appends and queries the audit trail.
type ActivityService struct {
	store  ActivityStore
	logger logging.Logger

	// Now supplies entry timestamps. Overridable in tests.
	Now func() time.Time
}

// NewActivityService creates a new activity service.
func NewActivityService(activityStore ActivityStore, logger logging.Logger) *ActivityService {
	return &ActivityService{
		store:  activityStore,
		logger: logger.WithComponent("activity"),
		Now:    time.Now,
	}
}

// LogActivity appends one audit entry for the user.
//
// Parameters:
//
//	ctx: Context.
//	userID: Authenticated user id.
//	action: What the user did.
//	details: Optional free-form context.
//
// Returns:
//
//	error: Error when the store rejects the entry.
func (s *ActivityService) LogActivity(ctx context.Context, userID, action, details string) error {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpStoreInsert, activityLogsTable)
	entry := store.Row{
		"id":        uuid.NewString(),
		"user_id":   userID,
		"action":    action,
		"details":   details,
		"timestamp": s.Now().UTC().Format("2006-01-02T15:04:05.000000") + "Z",
	}
	err := s.store.Insert(ctx, activityLogsTable, []store.Row{entry}, false)
	observability.FinishSpan(span, err)
	if err != nil {
		s.logger.WithError(err).WithUserID(userID).Error("Failed to log activity")
		return err
	}
	s.logger.WithUserID(userID).WithFields(map[string]interface{}{"action": action}).Info("Activity logged")
	return nil
}

// ListLogs fetches one page of the audit trail, newest first, with the exact
// matching total for pagination controls.
//
// Parameters:
//
//	ctx: Context.
//	page: 1-indexed page number.
//	limit: Page size.
//	startDate, endDate: Inclusive YYYY-MM-DD bounds, either may be empty.
//	userID: Optional user filter.
//
// Returns:
//
//	*ActivityLogsPage: The page and total count.
//	error: Error only on context cancellation.
func (s *ActivityService) ListLogs(ctx context.Context, page, limit int, startDate, endDate, userID string) (*ActivityLogsPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	filters := map[string]string{}
	if userID != "" {
		filters["user_id"] = userID
	}

	logs, totalCount, err := s.store.FetchAll(ctx, store.Query{
		Table:     activityLogsTable,
		Select:    "id,user_id,action,details,timestamp",
		Order:     "timestamp.desc",
		StartDate: startDate,
		EndDate:   endDate,
		Filters:   filters,
		Offset:    (page - 1) * limit,
		Limit:     limit,
		WithCount: true,
	})
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []store.Row{}
	}

	return &ActivityLogsPage{
		Logs:       logs,
		TotalCount: totalCount,
		Page:       page,
		Limit:      limit,
	}, nil
}
