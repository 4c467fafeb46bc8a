package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/andikafs/marketpulse-go/internal/logging"
	"github.com/andikafs/marketpulse-go/internal/models"
	"github.com/andikafs/marketpulse-go/internal/observability"
	"github.com/andikafs/marketpulse-go/internal/store"
)

// ValidationError reports an upload the caller can fix: wrong file type,
// missing columns or unparsable dates.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// IsValidationError returns true if the error is an upload validation error.
func IsValidationError(err error) bool {
	_, ok := err.(*ValidationError)
	return ok
}

// Inserter is the slice of the store client the upload service needs.
type Inserter interface {
	Insert(ctx context.Context, table string, records []store.Row, upsert bool) error
}

// TableUpload is one normalized batch headed for a store table.
type TableUpload struct {
	Table   string
	Records []store.Row
	Upsert  bool
}

// UploadService decodes spreadsheet uploads and normalizes them into store
// table batches.
type UploadService struct {
	store  Inserter
	logger logging.Logger
}

// NewUploadService creates a new upload service.
func NewUploadService(inserter Inserter, logger logging.Logger) *UploadService {
	return &UploadService{
		store:  inserter,
		logger: logger.WithComponent("upload"),
	}
}

// Process decodes, normalizes and stores an uploaded file.
//
// Parameters:
//
//	ctx: Context.
//	platform: Target platform.
//	filename: Original file name, used for format detection.
//	file: File content.
//
// Returns:
//
//	[]string: One status message per table written.
//	error: *ValidationError for caller mistakes, store errors otherwise.
func (s *UploadService) Process(ctx context.Context, platform models.Platform, filename string, file io.Reader) ([]string, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanOpUpload, platform.String())
	defer observability.FinishSpan(span, nil)

	rows, err := DecodeFile(filename, file)
	if err != nil {
		return nil, err
	}
	uploads, err := Normalize(platform, rows)
	if err != nil {
		return nil, err
	}

	var messages []string
	for _, upload := range uploads {
		if len(upload.Records) == 0 {
			messages = append(messages, fmt.Sprintf("No data to upload for table: %s.", upload.Table))
			continue
		}
		s.logger.WithTable(upload.Table).WithFields(map[string]interface{}{
			"records": len(upload.Records),
		}).Info("Uploading normalized records")
		if err := s.store.Insert(ctx, upload.Table, upload.Records, upload.Upsert); err != nil {
			messages = append(messages, fmt.Sprintf("'%s' upload failed: %v", upload.Table, err))
			return messages, err
		}
		messages = append(messages, fmt.Sprintf("'%s' data uploaded successfully.", upload.Table))
	}
	return messages, nil
}

// DecodeFile reads CSV, Excel or JSON content into rows keyed by lowercased,
// trimmed header names. Cell values stay strings.
func DecodeFile(filename string, file io.Reader) ([]map[string]string, error) {
	name := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(name, ".csv"):
		return decodeCSV(file)
	case strings.HasSuffix(name, ".xlsx"), strings.HasSuffix(name, ".xls"):
		return decodeExcel(file)
	case strings.HasSuffix(name, ".json"):
		return decodeJSON(file)
	default:
		return nil, &ValidationError{Message: "Unsupported file type. Only CSV, Excel (.xlsx, .xls), and JSON files are supported."}
	}
}

func decodeCSV(file io.Reader) ([]map[string]string, error) {
	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Error reading CSV file: %v", err)}
	}
	if len(records) == 0 {
		return nil, nil
	}
	return rowsFromCells(records)
}

func decodeExcel(file io.Reader) ([]map[string]string, error) {
	workbook, err := excelize.OpenReader(file)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Error reading Excel file: %v", err)}
	}
	defer func() {
		_ = workbook.Close()
	}()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ValidationError{Message: "Error reading Excel file: workbook has no sheets"}
	}
	cells, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Error reading Excel file: %v", err)}
	}
	return rowsFromCells(cells)
}

func decodeJSON(file io.Reader) ([]map[string]string, error) {
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Error reading JSON file: %v", err)}
	}
	var raw []map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(content), &raw); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("Error reading JSON file: %v. Ensure JSON is a flat structure (list of records/objects).", err)}
	}
	rows := make([]map[string]string, 0, len(raw))
	for _, obj := range raw {
		row := make(map[string]string, len(obj))
		for key, value := range obj {
			row[strings.ToLower(strings.TrimSpace(key))] = models.StringValue(value)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// rowsFromCells turns a header row plus data rows into keyed rows. Short data
// rows leave trailing columns empty.
func rowsFromCells(cells [][]string) ([]map[string]string, error) {
	if len(cells) == 0 {
		return nil, nil
	}
	headers := make([]string, len(cells[0]))
	for i, header := range cells[0] {
		headers[i] = strings.ToLower(strings.TrimSpace(header))
	}

	rows := make([]map[string]string, 0, len(cells)-1)
	for _, line := range cells[1:] {
		row := make(map[string]string, len(headers))
		for i, header := range headers {
			if i < len(line) {
				row[header] = strings.TrimSpace(line[i])
			} else {
				row[header] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Normalize validates decoded rows for the platform and produces the store
// batches to write, in write order.
func Normalize(platform models.Platform, rows []map[string]string) ([]TableUpload, error) {
	rows, err := normalizeDates(rows)
	if err != nil {
		return nil, err
	}

	switch platform {
	case models.PlatformFacebook:
		return normalizeFacebook(rows)
	case models.PlatformTikTok:
		return normalizeTikTok(rows)
	case models.PlatformSales:
		return normalizeSales(rows)
	default:
		panic(fmt.Sprintf("invalid platform %d", int(platform)))
	}
}

// normalizeDates rewrites every date cell as YYYY-MM-DD.
func normalizeDates(rows []map[string]string) ([]map[string]string, error) {
	for _, row := range rows {
		raw, ok := row["date"]
		if !ok {
			continue
		}
		normalized, err := models.NormalizeDate(raw)
		if err != nil {
			return nil, &ValidationError{Message: fmt.Sprintf("Error parsing 'date' column: %v. Please ensure dates are in a recognizable format (e.g., YYYY-MM-DD).", err)}
		}
		row["date"] = normalized
	}
	return rows, nil
}

// missingColumns returns required columns absent from the first row.
func missingColumns(rows []map[string]string, required []string) []string {
	var missing []string
	if len(rows) == 0 {
		return append(missing, required...)
	}
	for _, column := range required {
		if _, ok := rows[0][column]; !ok {
			missing = append(missing, column)
		}
	}
	sort.Strings(missing)
	return missing
}

func normalizeFacebook(rows []map[string]string) ([]TableUpload, error) {
	required := models.PlatformFacebook.RequiredColumns()
	if missing := missingColumns(rows, required); len(missing) > 0 {
		expected := append([]string(nil), required...)
		sort.Strings(expected)
		return nil, &ValidationError{Message: fmt.Sprintf("Missing required Facebook columns: %s. Expected: %s",
			strings.Join(missing, ", "), strings.Join(expected, ", "))}
	}

	// Posts are identified by post_id or post_url when present; otherwise
	// every row gets a generated post_id.
	identifier := ""
	if len(rows) > 0 {
		if _, ok := rows[0]["post_id"]; ok {
			identifier = "post_id"
		} else if _, ok := rows[0]["post_url"]; ok {
			identifier = "post_url"
		}
	}
	if identifier == "" {
		identifier = "post_id"
		for _, row := range rows {
			row["post_id"] = uuid.NewString()
		}
	}

	// Deduplicate by (date, identifier) keeping the last occurrence
	type dedupeKey struct {
		date string
		id   string
	}
	seen := make(map[dedupeKey]bool)
	var order []dedupeKey
	for _, row := range rows {
		key := dedupeKey{date: row["date"], id: row[identifier]}
		if !seen[key] {
			seen[key] = true
			order = append(order, key)
		}
	}
	latest := make(map[dedupeKey]map[string]string)
	for _, row := range rows {
		latest[dedupeKey{date: row["date"], id: row[identifier]}] = row
	}

	records := make([]store.Row, 0, len(order))
	for _, key := range order {
		row := latest[key]
		records = append(records, store.Row{
			"date":     row["date"],
			"likes":    models.NumericValue(row["likes"]),
			"comments": models.NumericValue(row["comments"]),
			"shares":   models.NumericValue(row["shares"]),
			"reach":    models.NumericValue(row["reach"]),
			identifier: row[identifier],
		})
	}
	return []TableUpload{{Table: models.PlatformFacebook.Table(), Records: records}}, nil
}

func normalizeTikTok(rows []map[string]string) ([]TableUpload, error) {
	required := models.PlatformTikTok.RequiredColumns()
	if missing := missingColumns(rows, required); len(missing) > 0 {
		expected := append([]string(nil), required...)
		sort.Strings(expected)
		return nil, &ValidationError{Message: fmt.Sprintf("Missing required TikTok columns: %s. Expected: %s",
			strings.Join(missing, ", "), strings.Join(expected, ", "))}
	}

	// Daily totals: one row per date with all counters summed
	type counters struct {
		views    float64
		likes    float64
		comments float64
		shares   float64
	}
	totals := make(map[string]*counters)
	var dates []string
	for _, row := range rows {
		date := row["date"]
		if totals[date] == nil {
			totals[date] = &counters{}
			dates = append(dates, date)
		}
		totals[date].views += models.NumericValue(row["views"])
		totals[date].likes += models.NumericValue(row["likes"])
		totals[date].comments += models.NumericValue(row["comments"])
		totals[date].shares += models.NumericValue(row["shares"])
	}
	sort.Strings(dates)

	records := make([]store.Row, 0, len(dates))
	for _, date := range dates {
		c := totals[date]
		records = append(records, store.Row{
			"date":     date,
			"views":    c.views,
			"likes":    c.likes,
			"comments": c.comments,
			"shares":   c.shares,
		})
	}
	return []TableUpload{{Table: models.PlatformTikTok.Table(), Records: records}}, nil
}

func normalizeSales(rows []map[string]string) ([]TableUpload, error) {
	required := []string{"date", "product id", "product name", "quantity sold", "price", "revenue"}
	if missing := missingColumns(rows, required); len(missing) > 0 {
		expected := append([]string(nil), required...)
		sort.Strings(expected)
		return nil, &ValidationError{Message: fmt.Sprintf("Missing required columns for Sales data. Expected: %s. Missing: %s.",
			strings.Join(expected, ", "), strings.Join(missing, ", "))}
	}

	// Product catalog: unique by product id, or one generated id per
	// distinct product name when the upload carries none.
	productIDs := make(map[string]string)
	var productRecords []store.Row
	seenProducts := make(map[string]bool)
	for _, row := range rows {
		productID := row["product id"]
		productName := row["product name"]
		if productID == "" {
			if generated, ok := productIDs[productName]; ok {
				productID = generated
			} else {
				productID = uuid.NewString()
				productIDs[productName] = productID
			}
		}
		if !seenProducts[productID] {
			seenProducts[productID] = true
			productRecords = append(productRecords, store.Row{
				"product_id":   productID,
				"product_name": productName,
			})
		}
		row["product id"] = productID
	}

	salesRecords := make([]store.Row, 0, len(rows))
	for _, row := range rows {
		quantity, _ := decimal.NewFromString(strings.ReplaceAll(row["quantity sold"], ",", ""))
		price, _ := decimal.NewFromString(strings.ReplaceAll(row["price"], ",", ""))
		revenue, revErr := decimal.NewFromString(strings.ReplaceAll(row["revenue"], ",", ""))
		if row["revenue"] == "" || revErr != nil {
			revenue = quantity.Mul(price)
		}
		salesRecords = append(salesRecords, store.Row{
			"sale_id":       uuid.NewString(),
			"product_id":    row["product id"],
			"date":          row["date"],
			"quantity_sold": quantity.InexactFloat64(),
			"price":         price.InexactFloat64(),
			"revenue":       revenue.InexactFloat64(),
		})
	}

	return []TableUpload{
		{Table: "products", Records: productRecords, Upsert: true},
		{Table: models.PlatformSales.Table(), Records: salesRecords},
	}, nil
}
