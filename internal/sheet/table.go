package sheet

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// EmailsColumn is the header of the column holding found addresses.
const EmailsColumn = "Emails"

// EmailSeparator joins several addresses inside one cell.
const EmailSeparator = ", "

var (
	// ErrNoURLColumn is returned when no header looks like a URL column.
	ErrNoURLColumn = errors.New("no column found that likely contains URLs")

	// ErrUnsupportedFormat is returned for files that are neither CSV nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file type (expected .csv or .xlsx)")

	// ErrEmptySheet is returned when a file has no header row.
	ErrEmptySheet = errors.New("sheet has no header row")

	// ErrColumnLength is returned when appended values do not match the row count.
	ErrColumnLength = errors.New("column length does not match row count")
)

// urlHeaderKeywords are matched case-insensitively as substrings of headers.
var urlHeaderKeywords = []string{"website", "url", "websites", "urls"}

// Format identifies a supported file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatOf returns the format implied by a file name's extension.
func FormatOf(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Table is a header row and its data rows. Every row has exactly
// len(Headers) cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// newTable builds a Table from raw records whose first record is the header.
// Short rows are padded and long rows truncated.
func newTable(records [][]string) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptySheet
	}

	headers := lo.Map(records[0], func(h string, _ int) string {
		return strings.TrimSpace(h)
	})

	rows := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]string, len(headers))
		for i := range row {
			if i < len(rec) {
				row[i] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return &Table{Headers: headers, Rows: rows}, nil
}

// FindURLColumn returns the index of the first header containing one of
// "website", "url", "websites" or "urls", ignoring case.
func FindURLColumn(headers []string) (int, error) {
	for i, h := range headers {
		lower := strings.ToLower(h)
		for _, kw := range urlHeaderKeywords {
			if strings.Contains(lower, kw) {
				return i, nil
			}
		}
	}
	return -1, ErrNoURLColumn
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ClearMissing empties the cells of column col that hold the "nan"
// placeholder spreadsheet exports write for missing values. Other
// columns are left as read.
func (t *Table) ClearMissing(col int) {
	for _, row := range t.Rows {
		if col >= 0 && col < len(row) && strings.TrimSpace(row[col]) == "nan" {
			row[col] = ""
		}
	}
}

// URLs returns the trimmed values of column col, one per row.
func (t *Table) URLs(col int) []string {
	return lo.Map(t.Rows, func(row []string, _ int) string {
		if col < 0 || col >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[col])
	})
}

// AppendColumn adds a column named header with one value per row.
// An existing column with the same name is overwritten in place.
func (t *Table) AppendColumn(header string, values []string) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("%w: %d values for %d rows", ErrColumnLength, len(values), len(t.Rows))
	}

	if idx := lo.IndexOf(t.Headers, header); idx >= 0 {
		for i := range t.Rows {
			t.Rows[i][idx] = values[i]
		}
		return nil
	}

	t.Headers = append(t.Headers, header)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], values[i])
	}
	return nil
}

// Records returns the header followed by the rows.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.Rows)+1)
	records = append(records, t.Headers)
	return append(records, t.Rows...)
}

// Read loads a table from r using the format implied by name.
func Read(name string, r io.Reader) (*Table, error) {
	format, err := FormatOf(name)
	if err != nil {
		return nil, err
	}
	if format == FormatXLSX {
		return ReadXLSX(r)
	}
	return ReadCSV(r)
}

// Write stores t to w using the format implied by name.
func Write(name string, w io.Writer, t *Table) error {
	format, err := FormatOf(name)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return WriteXLSX(w, t)
	}
	return WriteCSV(w, t)
}
