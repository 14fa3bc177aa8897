package sheets

import (
	"context"
	"errors"
	"strings"
)

// ErrSheetNotFound is returned when a workbook has no worksheet with the requested name.
var ErrSheetNotFound = errors.New("worksheet not found")

// Ports for inbound spreadsheet adapters.
type (
	// WorkbookOpener resolves a reference (a file path or a spreadsheet ID,
	// depending on the adapter) to an open workbook.
	WorkbookOpener interface {
		Open(ctx context.Context, ref string) (Workbook, error)
	}

	// Workbook enumerates worksheets and converts them to header-keyed rows.
	Workbook interface {
		// SheetNames returns the worksheet names in workbook order.
		SheetNames() []string
		Sheet(ctx context.Context, name string) (Sheet, error)
		Close() error
	}
)

// Sheet is a worksheet read into rows keyed by header.
type Sheet struct {
	Name    string
	Headers []string
	Rows    []Row
}

// Row is one data row. Number is the 1-based row number in the worksheet.
type Row struct {
	Number int
	Values map[string]string
}

// Get returns the trimmed cell under header, or "" when absent.
func (r Row) Get(header string) string {
	return strings.TrimSpace(r.Values[header])
}

// MissingHeaders returns the required headers the sheet does not carry, in
// the order given.
func (s Sheet) MissingHeaders(required []string) []string {
	have := make(map[string]struct{}, len(s.Headers))
	for _, h := range s.Headers {
		have[h] = struct{}{}
	}
	var missing []string
	for _, h := range required {
		if _, ok := have[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// FromMatrix builds a Sheet from a cell matrix whose first row holds the
// headers. Headers are trimmed, unnamed columns are ignored and rows with no
// values at all are dropped.
func FromMatrix(name string, matrix [][]string) Sheet {
	sheet := Sheet{Name: name}
	if len(matrix) == 0 {
		return sheet
	}

	headers := make([]string, len(matrix[0]))
	for i, h := range matrix[0] {
		headers[i] = strings.TrimSpace(h)
		if headers[i] != "" {
			sheet.Headers = append(sheet.Headers, headers[i])
		}
	}

	for i, cells := range matrix[1:] {
		values := make(map[string]string, len(headers))
		blank := true
		for col, v := range cells {
			if col >= len(headers) || headers[col] == "" {
				continue
			}
			v = strings.TrimSpace(v)
			if v != "" {
				blank = false
			}
			// first column wins when a header repeats
			if _, dup := values[headers[col]]; !dup {
				values[headers[col]] = v
			}
		}
		if blank {
			continue
		}
		sheet.Rows = append(sheet.Rows, Row{Number: i + 2, Values: values})
	}
	return sheet
}
