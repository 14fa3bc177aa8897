package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrImportInProgress is returned when an import is requested while another one runs.
var ErrImportInProgress = errors.New("an import is already in progress")

// ValidationError indicates a single record failed its schema constraints.
type ValidationError struct {
	Record string
	Field  string
	Msg    string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s %s", e.Record, e.Field, e.Msg)
	}
	return fmt.Sprintf("invalid %s: %s", e.Record, e.Msg)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError indicates required spreadsheet columns are absent.
type SchemaMismatchError struct {
	Missing []string
}

func (e *SchemaMismatchError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// FileNotFoundError indicates the workbook reference does not resolve to a file.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("spreadsheet file not found: %s", e.Path)
}

// ImportFailedError indicates the commit phase failed and was rolled back.
type ImportFailedError struct {
	Cause error
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("import failed and was rolled back: %v", e.Cause)
}

func (e *ImportFailedError) Unwrap() error {
	return e.Cause
}

// InvalidInputError indicates malformed or missing analyzer input.
type InvalidInputError struct {
	Message string
}

func (e *InvalidInputError) Error() string {
	return e.Message
}

// InternalComputationError indicates an unexpected fault during analysis.
type InternalComputationError struct {
	Operation string
	Err       error
}

func (e *InternalComputationError) Error() string {
	return fmt.Sprintf("computation %s failed: %v", e.Operation, e.Err)
}

func (e *InternalComputationError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates a stored resource does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError indicates a resource with the same identifier already exists.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Resource, e.ID)
}

// NewInvalidInput builds an InvalidInputError with a formatted message.
func NewInvalidInput(format string, args ...any) *InvalidInputError {
	return &InvalidInputError{Message: fmt.Sprintf(format, args...)}
}
