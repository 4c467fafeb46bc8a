package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andikafs/marketpulse-go/internal/config"
	"github.com/andikafs/marketpulse-go/internal/logging"
)

// RequestError represents a non-2xx response from the store.
type RequestError struct {
	Table   string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("store request for %s failed with status %d: %s", e.Table, e.Status, e.Message)
}

// IsRequestError returns true if the error is a store request error.
func IsRequestError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*RequestError)
	return ok
}

// Row is one record returned by the store, keyed by column name.
type Row = map[string]interface{}

// Query describes a paginated table read.
type Query struct {
	// Table is the store table to read.
	Table string
	// Select is the PostgREST column selection, "*" when empty.
	Select string
	// Order is the PostgREST ordering expression (e.g., "date.asc").
	Order string
	// StartDate and EndDate filter the table's date column inclusively,
	// both in YYYY-MM-DD form.
	StartDate string
	EndDate   string
	// Filters holds additional equality filters; empty values are skipped.
	Filters map[string]string
	// Offset is the starting row offset.
	Offset int
	// Limit caps the total number of rows returned. Zero means fetch all.
	Limit int
	// WithCount requests the exact matching row count on the first page.
	WithCount bool
}

// dateColumn returns the column date filters apply to. activity_logs keeps a
// full timestamptz instead of a plain date.
func (q Query) dateColumn() string {
	if q.Table == "activity_logs" {
		return "timestamp"
	}
	return "date"
}

// Client is the HTTP client for the REST tabular store.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
	serviceKey string
	pageSize   int
	logger     logging.Logger
}

// NewClient creates a new store client instance.
//
// Parameters:
//
//	cfg: Store configuration.
//	logger: Logger for degraded-fetch reporting.
//
// Returns:
//
//	*Client: Initialized client.
func NewClient(cfg *config.StoreConfig, logger logging.Logger) *Client {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 1000
	}

	return &Client{
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceKey: cfg.ServiceKey,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// FetchAll retrieves every row matching the query, paginating transparently.
//
// A non-2xx response or transport failure aborts pagination: the rows fetched
// so far are returned with a zero error so callers degrade to partial data.
// Only context cancellation and request construction failures surface as
// errors.
//
// Parameters:
//
//	ctx: Context.
//	q: Query description.
//
// Returns:
//
//	[]Row: All fetched rows, truncated to q.Limit when set.
//	int: Exact total when q.WithCount is set, otherwise len(rows).
//	error: Error on context cancellation or malformed request only.
func (c *Client) FetchAll(ctx context.Context, q Query) ([]Row, int, error) {
	started := time.Now()

	perRequest := c.pageSize
	if q.Limit > 0 && q.Limit < c.pageSize {
		perRequest = q.Limit
	}

	var all []Row
	offset := q.Offset
	total := -1 // unknown until the first counted response
	firstPage := true

	for {
		rows, headerTotal, err := c.fetchPage(ctx, q, perRequest, offset, firstPage && q.WithCount)
		if err != nil {
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			if !IsRequestError(err) && !isTransportError(err) {
				return nil, 0, err
			}
			// Degrade: keep whatever was fetched before the failure
			c.logger.WithTable(q.Table).WithError(err).Error("Store fetch failed, returning partial data")
			break
		}

		all = append(all, rows...)

		if firstPage && q.WithCount && headerTotal >= 0 {
			total = headerTotal
		}
		firstPage = false

		if q.Limit > 0 && len(all) >= q.Limit {
			all = all[:q.Limit]
			break
		}
		if len(rows) < perRequest {
			break
		}
		if total >= 0 && len(all) >= total {
			break
		}

		offset += len(rows)
	}

	c.logger.LogStoreOperation("GET", q.Table, time.Since(started).Milliseconds(), len(all))

	if total < 0 {
		total = len(all)
	}
	return all, total, nil
}

// fetchPage performs one paginated GET against the table endpoint.
func (c *Client) fetchPage(ctx context.Context, q Query, limit, offset int, withCount bool) ([]Row, int, error) {
	params := url.Values{}
	sel := q.Select
	if sel == "" {
		sel = "*"
	}
	params.Set("select", sel)
	if q.Order != "" {
		params.Set("order", q.Order)
	}

	dateCol := q.dateColumn()
	if q.StartDate != "" {
		params.Set(dateCol, "gte."+q.StartDate)
	}
	if q.EndDate != "" {
		endDate := q.EndDate
		if q.Table == "activity_logs" {
			// timestamptz column: cover the whole end day in UTC
			endDate += "T23:59:59.999Z"
		}
		params.Add(dateCol, "lte."+endDate)
	}
	for key, value := range q.Filters {
		if value != "" {
			params.Set(key, "eq."+value)
		}
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	reqURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, q.Table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	if withCount {
		req.Header.Set("Prefer", "count=exact")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, &transportError{err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &transportError{err: err}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, 0, &RequestError{
			Table:   q.Table,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var rows []Row
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return nil, 0, &RequestError{
			Table:   q.Table,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected response body: %v", err),
		}
	}

	headerTotal := -1
	if withCount {
		headerTotal = parseContentRangeTotal(resp.Header.Get("Content-Range"), len(rows))
	}
	return rows, headerTotal, nil
}

// Insert posts records to a table.
//
// Parameters:
//
//	ctx: Context.
//	table: Target table.
//	records: Slice of records, marshaled as a JSON array.
//	upsert: When true, duplicate keys are merged instead of rejected.
//
// Returns:
//
//	error: Error if the insert is not acknowledged with 200, 201 or 204.
func (c *Client) Insert(ctx context.Context, table string, records []Row, upsert bool) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	reqURL := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")
	if upsert {
		req.Header.Set("Prefer", "resolution=merge-duplicates")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Error closing response body")
		}
	}()

	respBody, _ := io.ReadAll(resp.Body)
	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
		return nil
	default:
		return &RequestError{
			Table:   table,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}
}

// SumField fetches the sum of a numeric field over an optional date range,
// delegating the aggregation to the store.
//
// Parameters:
//
//	ctx: Context.
//	table: Table to aggregate.
//	field: Numeric column to sum.
//	startDate, endDate: Optional inclusive YYYY-MM-DD bounds.
//
// Returns:
//
//	float64: The sum, 0 when the table is empty.
//	error: Error if the request fails.
func (c *Client) SumField(ctx context.Context, table, field, startDate, endDate string) (float64, error) {
	params := url.Values{}
	params.Set("select", fmt.Sprintf("sum(%s)", field))
	if startDate != "" {
		params.Set("date", "gte."+startDate)
	}
	if endDate != "" {
		params.Add("date", "lte."+endDate)
	}

	reqURL := fmt.Sprintf("%s/rest/v1/%s?%s", c.baseURL, table, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return 0, &RequestError{
			Table:   table,
			Status:  resp.StatusCode,
			Message: strings.TrimSpace(string(respBody)),
		}
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal(respBody, &rows); err != nil {
		return 0, fmt.Errorf("unexpected summary response: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	// The aggregate row has a single column whose name depends on the store
	for _, v := range rows[0] {
		if v == nil {
			return 0, nil
		}
		if f, ok := v.(float64); ok {
			return f, nil
		}
		if s, ok := v.(string); ok {
			f, perr := strconv.ParseFloat(s, 64)
			if perr != nil {
				return 0, fmt.Errorf("unexpected summary value %q", s)
			}
			return f, nil
		}
	}
	return 0, nil
}

// HealthCheck verifies the store is reachable by requesting a single row.
//
// Parameters:
//
//	ctx: Context.
//
// Returns:
//
//	error: Error if the store does not answer with a success status.
func (c *Client) HealthCheck(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/rest/v1/products?select=product_id&limit=1", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("store unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return &RequestError{Table: "products", Status: resp.StatusCode, Message: "health probe failed"}
	}
	return nil
}

// setHeaders applies the authentication headers every store request carries.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "MarketPulse-Go/1.0")
}

// parseContentRangeTotal extracts the total after the slash in a
// Content-Range header ("0-999/12345"). Falls back to the page length when
// the header is missing or the total is "*".
func parseContentRangeTotal(header string, fallback int) int {
	idx := strings.LastIndex(header, "/")
	if idx < 0 {
		return fallback
	}
	total, err := strconv.Atoi(header[idx+1:])
	if err != nil {
		return fallback
	}
	return total
}

// transportError wraps connection-level failures so FetchAll can tell them
// apart from request construction errors.
type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func isTransportError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*transportError)
	return ok
}
