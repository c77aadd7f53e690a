package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/Dan9191/ledger-service/internal/models"
)

// Column names understood by a ColumnMapping.
const (
	ColumnDate        = "date"
	ColumnDescription = "description"
	ColumnAmount      = "amount"
	ColumnCategory    = "category"
	ColumnMerchant    = "merchant"
)

// ColumnMapping maps field names to zero-based CSV column indexes.
type ColumnMapping struct {
	Columns   map[string]int `json:"columns"`
	HasHeader bool           `json:"has_header"`
}

// Validate checks that the required columns are mapped.
func (m ColumnMapping) Validate() error {
	for _, name := range []string{ColumnDate, ColumnAmount} {
		if _, ok := m.Columns[name]; !ok {
			return models.NewFieldError("mapping", "the %s column is required", name)
		}
	}
	for name, idx := range m.Columns {
		if idx < 0 {
			return models.NewFieldError("mapping", "column index for %s must not be negative", name)
		}
	}
	return nil
}

// ReadCSV turns CSV records into rows using m. Blank records are skipped;
// line numbers count data records from 1. A malformed record becomes a row
// carrying Err so the rest of the file still imports.
func ReadCSV(r io.Reader, m ColumnMapping) ([]Row, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []Row
	line := 0
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			if first && m.HasHeader {
				first = false
				continue
			}
			first = false
			line++
			rows = append(rows, Row{Line: line, Err: fmt.Sprintf("malformed CSV record: %v", parseErr.Err)})
			continue
		}
		if err != nil {
			return nil, models.NewFieldError("file", "invalid CSV: %v", err)
		}
		if first && m.HasHeader {
			first = false
			continue
		}
		first = false
		line++
		if blank(record) {
			continue
		}
		rows = append(rows, m.row(line, record))
	}
	return rows, nil
}

func (m ColumnMapping) row(line int, record []string) Row {
	row := Row{Line: line}
	get := func(name string) (string, bool) {
		idx, ok := m.Columns[name]
		if !ok {
			return "", true
		}
		if idx >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[idx]), true
	}
	var ok [5]bool
	row.Date, ok[0] = get(ColumnDate)
	row.Description, ok[1] = get(ColumnDescription)
	row.Amount, ok[2] = get(ColumnAmount)
	row.Category, ok[3] = get(ColumnCategory)
	row.Merchant, ok[4] = get(ColumnMerchant)
	for _, v := range ok {
		if !v {
			row.Err = "column index out of range, check your column mapping"
			break
		}
	}
	return row
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// ImportCSV reads a CSV statement and imports it into accountID.
func (im *Importer) ImportCSV(ctx context.Context, ownerID, accountID int64, r io.Reader, m ColumnMapping) (*Summary, error) {
	rows, err := ReadCSV(r, m)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return im.ImportRows(ctx, ownerID, accountID, rows)
}
