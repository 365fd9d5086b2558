package ingest

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"profitlift/domain/basket"
	"profitlift/domain/core"

	"github.com/xuri/excelize/v2"
)

// Required and optional column names of the transaction table contract.
// "unit_price" is accepted as an alias for "price".
var requiredColumns = []string{"transaction_id", "timestamp", "store_id", "item_id", "price"}

// Reject reason keys reported in the ImportSummary
const (
	RejectMissingField = "missing_field"
	RejectBadTimestamp = "bad_timestamp"
	RejectBadPrice     = "bad_price"
	RejectBadQuantity  = "bad_quantity"
	RejectBadMargin    = "bad_margin"
)

// timestampLayouts are the accepted timestamp encodings, tried in order
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ImportSummary reports what an import did. Rejected rows never abort the
// import; they are counted by reason.
type ImportSummary struct {
	RowsRead      int            `json:"rows_read"`
	RowsRejected  int            `json:"rows_rejected"`
	Transactions  int            `json:"transactions"`
	DistinctItems int            `json:"distinct_items"`
	RejectReasons map[string]int `json:"reject_reasons,omitempty"`
}

func (s *ImportSummary) reject(reason string) {
	s.RowsRejected++
	if s.RejectReasons == nil {
		s.RejectReasons = make(map[string]int)
	}
	s.RejectReasons[reason]++
}

// RawRow is one header-mapped source row
type RawRow map[string]string

// DataReader loads the transaction table from a CSV or Excel file,
// validates rows, groups them into transactions and enriches context
// fields. The output satisfies the shape the mining core consumes.
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	enricher *Enricher
}

// NewDataReader creates a reader for the given file. The extension picks
// the format; everything else is shared.
func NewDataReader(filePath string, enricher *Enricher) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	if enricher == nil {
		enricher = NewEnricher(nil)
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: "Sheet1", enricher: enricher}
}

// WithSheet overrides the Excel sheet name (default Sheet1)
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// ReadTransactions loads, validates, groups and enriches the file's rows
func (r *DataReader) ReadTransactions() ([]basket.Transaction, *ImportSummary, error) {
	log.Printf("[Ingest] Reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, nil, err
	}

	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%s file must have a header row and at least one data row", strings.ToUpper(r.fileType))
	}

	raw := headerMapRows(rows)
	txs, summary := r.buildTransactions(raw)

	log.Printf("[Ingest] Import finished: %d rows read, %d rejected, %d transactions, %d distinct items",
		summary.RowsRead, summary.RowsRejected, summary.Transactions, summary.DistinctItems)
	return txs, summary, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	start := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	log.Printf("[Ingest] CSV read in %.2fms (%d rows)", float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", r.sheet, err)
	}
	log.Printf("[Ingest] Excel sheet %s read in %.2fms (%d rows)", r.sheet, float64(time.Since(start).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// headerMapRows turns positional rows into header-keyed maps. Headers are
// trimmed and lowercased; "unit_price" folds into "price".
func headerMapRows(rows [][]string) []RawRow {
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "unit_price" {
			h = "price"
		}
		headers[i] = h
	}

	out := make([]RawRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		m := make(RawRow, len(headers))
		for j, cell := range row {
			if j < len(headers) {
				m[headers[j]] = strings.TrimSpace(cell)
			}
		}
		out = append(out, m)
	}
	return out
}

// buildTransactions validates rows, groups them by transaction id and
// enriches the result. Row order within a transaction is preserved;
// transactions come out sorted by id for stable downstream hashing.
func (r *DataReader) buildTransactions(raw []RawRow) ([]basket.Transaction, *ImportSummary) {
	summary := &ImportSummary{}
	grouped := make(map[core.TransactionID]*basket.Transaction)
	order := make([]core.TransactionID, 0)
	items := make(map[core.ItemID]struct{})

	for _, row := range raw {
		summary.RowsRead++

		missing := false
		for _, col := range requiredColumns {
			if row[col] == "" {
				missing = true
				break
			}
		}
		if missing {
			summary.reject(RejectMissingField)
			continue
		}

		ts, ok := parseTimestamp(row["timestamp"])
		if !ok {
			summary.reject(RejectBadTimestamp)
			continue
		}

		price, err := strconv.ParseFloat(row["price"], 64)
		if err != nil || price < 0 {
			summary.reject(RejectBadPrice)
			continue
		}

		quantity := 1
		if qs := row["quantity"]; qs != "" {
			q, err := strconv.Atoi(qs)
			if err != nil || q < 1 {
				summary.reject(RejectBadQuantity)
				continue
			}
			quantity = q
		}

		var marginPct *float64
		if ms := row["margin_pct"]; ms != "" {
			m, err := strconv.ParseFloat(ms, 64)
			if err != nil {
				summary.reject(RejectBadMargin)
				continue
			}
			// Percent-style inputs (e.g. "25") normalize to fractions
			if m > 1 && m <= 100 {
				m = m / 100
			}
			if m < 0 || m > 1 {
				summary.reject(RejectBadMargin)
				continue
			}
			marginPct = &m
		}

		txID := core.TransactionID(row["transaction_id"])
		tx, exists := grouped[txID]
		if !exists {
			tx = &basket.Transaction{
				ID:           txID,
				Timestamp:    core.NewTimestamp(ts),
				StoreID:      core.StoreID(row["store_id"]),
				DiscountFlag: parseBoolFlag(row["discount_flag"]),
			}
			if customer := row["customer_id"]; customer != "" {
				tx.CustomerHash = core.NewCustomerHash(customer)
			}
			grouped[txID] = tx
			order = append(order, txID)
		}

		itemID := core.ItemID(row["item_id"])
		tx.Items = append(tx.Items, basket.LineItem{
			ItemID:    itemID,
			Quantity:  quantity,
			UnitPrice: price,
			Category:  row["category"],
			MarginPct: marginPct,
		})
		items[itemID] = struct{}{}

		// Any discounted line flags the whole basket
		if parseBoolFlag(row["discount_flag"]) {
			tx.DiscountFlag = true
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	txs := make([]basket.Transaction, 0, len(order))
	for _, id := range order {
		txs = append(txs, *grouped[id])
	}
	r.enricher.EnrichAll(txs)

	summary.Transactions = len(txs)
	summary.DistinctItems = len(items)
	return txs, summary
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseBoolFlag(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "y", "t":
		return true
	default:
		return false
	}
}
