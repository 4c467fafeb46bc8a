package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical date format used across tables and responses.
const DateLayout = "2006-01-02"

// SocialRecord is one day/post worth of social metrics from either platform.
// Metric fields a platform does not carry stay zero.
type SocialRecord struct {
	Date     time.Time
	Views    float64
	Likes    float64
	Comments float64
	Shares   float64
	Reach    float64
}

// Engagement returns likes + comments + shares.
func (r SocialRecord) Engagement() float64 {
	return r.Likes + r.Comments + r.Shares
}

// ReachFor returns the platform's audience measure: views for TikTok, reach
// for Facebook.
func (r SocialRecord) ReachFor(p Platform) float64 {
	switch p {
	case PlatformTikTok:
		return r.Views
	case PlatformFacebook:
		return r.Reach
	case PlatformSales:
		return 0
	default:
		panic(fmt.Sprintf("invalid platform %d", int(p)))
	}
}

// SaleRecord is one sales transaction row.
type SaleRecord struct {
	Date        time.Time
	SaleID      string
	ProductID   string
	ProductName string
	Quantity    float64
	Price       float64
	Revenue     float64
}

// Product is a catalog entry extracted from sales uploads.
type Product struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
}

// ActivityLog is one audit trail entry.
type ActivityLog struct {
	LogID     string `json:"log_id"`
	UserEmail string `json:"user_email"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ParseSocialRows converts raw store rows into SocialRecords. Rows whose date
// cannot be parsed are dropped.
func ParseSocialRows(p Platform, rows []map[string]interface{}) []SocialRecord {
	out := make([]SocialRecord, 0, len(rows))
	for _, row := range rows {
		date, ok := ParseRowDate(row["date"])
		if !ok {
			continue
		}
		rec := SocialRecord{
			Date:     date,
			Likes:    NumericValue(row["likes"]),
			Comments: NumericValue(row["comments"]),
			Shares:   NumericValue(row["shares"]),
		}
		switch p {
		case PlatformTikTok:
			rec.Views = NumericValue(row["views"])
		case PlatformFacebook:
			rec.Reach = NumericValue(row["reach"])
		case PlatformSales:
			// sales rows never reach this parser
		default:
			panic(fmt.Sprintf("invalid platform %d", int(p)))
		}
		out = append(out, rec)
	}
	return out
}

// ParseSaleRows converts raw store rows into SaleRecords. Rows whose date
// cannot be parsed are dropped.
func ParseSaleRows(rows []map[string]interface{}) []SaleRecord {
	out := make([]SaleRecord, 0, len(rows))
	for _, row := range rows {
		date, ok := ParseRowDate(row["date"])
		if !ok {
			continue
		}
		out = append(out, SaleRecord{
			Date:        date,
			SaleID:      StringValue(row["sale_id"]),
			ProductID:   StringValue(row["product_id"]),
			ProductName: StringValue(row["product_name"]),
			Quantity:    NumericValue(row["quantity_sold"]),
			Price:       NumericValue(row["price"]),
			Revenue:     NumericValue(row["revenue"]),
		})
	}
	return out
}

// NumericValue coerces a raw store or spreadsheet cell into a float64.
// Missing values, empty strings and unparsable text all become 0.
func NumericValue(v interface{}) float64 {
	switch val := v.(type) {
	case nil:
		return 0
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", ""))
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// StringValue coerces a raw cell into a trimmed string.
func StringValue(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case float64:
		// Spreadsheet IDs frequently arrive as numbers
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

// dateLayouts are accepted in the order listed; the first match wins.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

// ParseRowDate parses a raw date cell into a UTC day.
//
// Returns:
//
//	time.Time: The parsed date truncated to midnight UTC.
//	bool: False when the value is missing or unparsable.
func ParseRowDate(v interface{}) (time.Time, bool) {
	s := StringValue(v)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// NormalizeDate rewrites a raw date cell as YYYY-MM-DD.
//
// Returns:
//
//	string: The normalized date.
//	error: Error when the value cannot be parsed as a date.
func NormalizeDate(raw string) (string, error) {
	ts, ok := ParseRowDate(raw)
	if !ok {
		return "", fmt.Errorf("unparsable date %q", raw)
	}
	return ts.Format(DateLayout), nil
}
