package backend

import (
	"context"
	"time"

	"household/internal/amqp"
	"household/internal/sheets"
	"household/internal/storage"
)

// EventPublisher is satisfied by the AMQP client.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, msg amqp.ImportCompletedMessage) error
	PublishTransactionCreated(ctx context.Context, msg amqp.TransactionCreatedMessage) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult bundles the collaborators the services are wired with.
// Publisher is nil when events are disabled.
type BackendResult struct {
	Repository storage.Repository
	Publisher  EventPublisher
	Opener     sheets.WorkbookOpener
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Storage backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath   string
	ConnectRetries int
	ConnectBackoff time.Duration

	// AMQP events, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Workbook source for imports by reference
	ImportSource string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
