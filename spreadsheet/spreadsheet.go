package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"partsync/models"
)

// Column names of the accounting export
const (
	ColumnItemCode    = "ItemCode"
	ColumnItemCodeAlt = "*ItemCode"
	ColumnItemName    = "ItemName"
	ColumnPrice       = "SalesUnitPrice"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrMissingColumn is returned when a required column is absent
var ErrMissingColumn = errors.New("missing column")

// Sheet is an accounting export held in memory. Cells are kept as read so
// that writing it back changes only the prices that were set.
type Sheet struct {
	Header []string
	Rows   [][]string

	codeCol  int
	nameCol  int
	priceCol int
}

// Read parses a CSV export. A leading byte-order mark is ignored.
func Read(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: sheet is empty", ErrMissingColumn)
	}

	sheet := &Sheet{Header: records[0], Rows: records[1:]}

	sheet.codeCol = sheet.column(ColumnItemCode)
	if sheet.codeCol < 0 {
		sheet.codeCol = sheet.column(ColumnItemCodeAlt)
	}
	if sheet.codeCol < 0 {
		return nil, fmt.Errorf("%w: %s or %s", ErrMissingColumn, ColumnItemCode, ColumnItemCodeAlt)
	}
	if sheet.nameCol = sheet.column(ColumnItemName); sheet.nameCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnItemName)
	}
	if sheet.priceCol = sheet.column(ColumnPrice); sheet.priceCol < 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnPrice)
	}

	return sheet, nil
}

// ReadFile reads a CSV export from disk
func ReadFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet: %w", err)
	}
	defer f.Close()
	return Read(f)
}

func (s *Sheet) column(name string) int {
	for i, h := range s.Header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func (s *Sheet) cell(row, col int) string {
	if row < 0 || row >= len(s.Rows) || col >= len(s.Rows[row]) {
		return ""
	}
	return s.Rows[row][col]
}

// Items returns one record per data row, in sheet order. Empty or
// unparseable prices read as zero.
func (s *Sheet) Items() []models.ItemRecord {
	items := make([]models.ItemRecord, 0, len(s.Rows))
	for i := range s.Rows {
		items = append(items, models.ItemRecord{
			Row:          i,
			Code:         strings.TrimSpace(s.cell(i, s.codeCol)),
			Name:         strings.TrimSpace(s.cell(i, s.nameCol)),
			CurrentPrice: ParsePrice(s.cell(i, s.priceCol)),
		})
	}
	return items
}

// SetPrice replaces the price cell of a data row
func (s *Sheet) SetPrice(row int, price decimal.Decimal) error {
	if row < 0 || row >= len(s.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	for len(s.Rows[row]) <= s.priceCol {
		s.Rows[row] = append(s.Rows[row], "")
	}
	s.Rows[row][s.priceCol] = price.StringFixed(2)
	return nil
}

// Write writes the sheet with its original header and row order
func (s *Sheet) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(s.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(s.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteFile writes the sheet to path
func (s *Sheet) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := s.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// ParsePrice reads a price cell, treating blanks and junk as zero
func ParsePrice(raw string) decimal.Decimal {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	raw = strings.TrimPrefix(raw, "£")
	if raw == "" {
		return decimal.Zero
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return value
}
