package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"household/internal/amqp"
	"household/internal/config"
	"household/internal/log"
	"household/internal/sheets"
	gsheet "household/internal/sheets/google"
	"household/internal/sheets/xlsx"
	"household/internal/storage"
	"household/internal/storage/memory"

	"github.com/cenkalti/backoff/v4"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger

	// openSQLite is swapped in tests to simulate an unreachable database.
	openSQLite func(path string) (storage.Repository, error)
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) *DefaultFactory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		openSQLite: func(path string) (storage.Repository, error) {
			return storage.NewSQLiteRepository(path)
		},
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		repo storage.Repository
		err  error
	)
	switch cfg.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteBackend(ctx, cfg)
	case MemoryBackend:
		repo = memory.New()
		f.logger.Info("Initialized memory backend")
	default:
		err = fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}

	opener, err := f.createOpener(ctx, cfg)
	if err != nil {
		repo.Close()
		return nil, err
	}

	result := &BackendResult{Repository: repo, Opener: opener}

	// AMQP is optional; the backend works without events
	var client *amqp.Client
	if cfg.AMQPURL != "" {
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			f.logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP client",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
			result.Publisher = client
		}
	}

	result.Cleanup = func() error {
		var errs []error
		if client != nil {
			if err := client.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		if err := repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
		return errors.Join(errs...)
	}
	return result, nil
}

// createSQLiteBackend opens the database, retrying a bounded number of times
// with a fixed pause between attempts.
func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, cfg Config) (storage.Repository, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.ConnectBackoff), uint64(cfg.ConnectRetries)),
		ctx)

	attempt := 0
	repo, err := backoff.RetryNotifyWithData[storage.Repository](func() (storage.Repository, error) {
		attempt++
		return f.openSQLite(cfg.SQLiteDBPath)
	}, policy, func(err error, next time.Duration) {
		f.logger.Warn("Database connection failed, retrying",
			log.FieldError, err,
			"attempt", attempt,
			"retry_in", next.String())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository after %d attempts: %w", attempt, err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath, "attempts", attempt)
	return repo, nil
}

func (f *DefaultFactory) createOpener(ctx context.Context, cfg Config) (sheets.WorkbookOpener, error) {
	if cfg.ImportSource != config.ImportSourceSheets {
		return xlsx.Opener{}, nil
	}
	cli, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets import source")
	return cli, nil
}
