// Package memory provides an in-process workbook store for fixtures and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"household/internal/core"
	ports "household/internal/sheets"
)

// Store maps references to in-memory workbooks.
type Store struct {
	mu        sync.Mutex
	workbooks map[string][]ports.Sheet
}

// Ensure interface conformance
var _ ports.WorkbookOpener = (*Store)(nil)

func New() *Store {
	return &Store{workbooks: map[string][]ports.Sheet{}}
}

// Put registers a workbook under ref. Sheets keep the given order.
func (s *Store) Put(ref string, sheets ...ports.Sheet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workbooks[ref] = append([]ports.Sheet(nil), sheets...)
}

// PutMatrix registers a single-sheet workbook built from a header-first matrix.
func (s *Store) PutMatrix(ref, sheetName string, matrix [][]string) {
	s.Put(ref, ports.FromMatrix(sheetName, matrix))
}

// Open returns the workbook registered under ref, or a *core.FileNotFoundError.
func (s *Store) Open(_ context.Context, ref string) (ports.Workbook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sheets, ok := s.workbooks[ref]
	if !ok {
		return nil, &core.FileNotFoundError{Path: ref}
	}
	return &workbook{sheets: sheets}, nil
}

type workbook struct {
	sheets []ports.Sheet
}

func (w *workbook) SheetNames() []string {
	names := make([]string, len(w.sheets))
	for i, sh := range w.sheets {
		names[i] = sh.Name
	}
	return names
}

func (w *workbook) Sheet(_ context.Context, name string) (ports.Sheet, error) {
	for _, sh := range w.sheets {
		if sh.Name == name {
			return sh, nil
		}
	}
	return ports.Sheet{}, fmt.Errorf("%w: %s", ports.ErrSheetNotFound, name)
}

func (w *workbook) Close() error { return nil }
