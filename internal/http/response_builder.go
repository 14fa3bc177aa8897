// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for JSON responses and the single
// place where service errors are mapped to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"household/internal/core"
	"household/internal/log"
)

// Fixed messages for responses that must not leak internals.
const (
	msgInternalError  = "Internal server error"
	msgImportFailed   = "Import failed; no data was changed"
	msgImportBusy     = "An import is already in progress"
	msgTooManyRequest = "Rate limit exceeded. Please try again later."
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Message sets a {"message": ...} body.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Body(messageBody{Message: msg})
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"` + msgInternalError + `"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(payload, '\n'))
}

type messageBody struct {
	Message string `json:"message"`
}

// ErrorResponse creates a {"message": ...} error response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusConflict, message)
}

// InternalServerError creates a 500 response with the fixed message.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, msgInternalError)
}

// errorResponse maps a service error to its response. Client errors carry
// the error text; server errors carry a fixed message.
func errorResponse(err error) *JSONResponseBuilder {
	var (
		validation *core.ValidationError
		invalid    *core.InvalidInputError
		schema     *core.SchemaMismatchError
		notFile    *core.FileNotFoundError
		notFound   *core.NotFoundError
		conflict   *core.ConflictError
		failed     *core.ImportFailedError
	)

	switch {
	case errors.As(err, &validation):
		return BadRequestError(validation.Error())
	case errors.As(err, &invalid):
		return BadRequestError(invalid.Message)
	case errors.As(err, &schema):
		return BadRequestError(schema.Error())
	case errors.As(err, &notFile):
		return BadRequestError(notFile.Error())
	case errors.As(err, &notFound):
		return NotFoundError(notFound.Error())
	case errors.As(err, &conflict):
		return ConflictError(conflict.Error())
	case errors.Is(err, core.ErrImportInProgress):
		return ConflictError(msgImportBusy)
	case errors.As(err, &failed):
		return ErrorResponse(http.StatusInternalServerError, msgImportFailed)
	default:
		return InternalServerError()
	}
}

// handleServiceError logs err and writes the mapped response.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error, operation string) {
	resp := errorResponse(err)
	logger := log.FromContext(ctx)
	if resp.statusCode >= http.StatusInternalServerError {
		log.NewStructuredLogger(logger).LogError(ctx, "Request failed", err, log.ComponentHTTP, operation, log.NewFields())
	} else {
		logger.WarnContext(ctx, "Request rejected", log.FieldOperation, operation, log.FieldError, err)
	}
	resp.Write(w)
}
