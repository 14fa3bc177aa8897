// Package xlsx opens local Excel workbooks for import.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"household/internal/core"
	ports "household/internal/sheets"

	"github.com/xuri/excelize/v2"
)

// Opener opens .xlsx files from the local filesystem.
type Opener struct{}

// Ensure interface conformance
var _ ports.WorkbookOpener = Opener{}

// Open opens the workbook at path. A missing path (or a directory) yields a
// *core.FileNotFoundError.
func (Opener) Open(_ context.Context, path string) (ports.Workbook, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &core.FileNotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat workbook: %w", err)
	}
	if info.IsDir() {
		return nil, &core.FileNotFoundError{Path: path}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	return &workbook{f: f}, nil
}

// OpenReader reads a workbook from r, e.g. an uploaded file.
func OpenReader(r io.Reader) (ports.Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return &workbook{f: f}, nil
}

type workbook struct {
	f *excelize.File
}

func (w *workbook) SheetNames() []string {
	return w.f.GetSheetList()
}

// Sheet reads a worksheet with raw cell values so dates arrive as serial numbers
// and amounts without display formatting.
func (w *workbook) Sheet(_ context.Context, name string) (ports.Sheet, error) {
	if idx, err := w.f.GetSheetIndex(name); err != nil || idx < 0 {
		return ports.Sheet{}, fmt.Errorf("%w: %s", ports.ErrSheetNotFound, name)
	}
	rows, err := w.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return ports.Sheet{}, fmt.Errorf("read sheet %s: %w", name, err)
	}
	return ports.FromMatrix(name, rows), nil
}

func (w *workbook) Close() error {
	return w.f.Close()
}
