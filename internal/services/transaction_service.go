package services

import (
	"context"
	"fmt"

	"household/internal/amqp"
	"household/internal/core"
	"household/internal/log"
	"household/internal/storage"
)

// TransactionPublisher announces transactions stored through the API.
type TransactionPublisher interface {
	PublishTransactionCreated(ctx context.Context, msg amqp.TransactionCreatedMessage) error
}

// TransactionStore is the storage slice the transaction service needs.
type TransactionStore interface {
	storage.TransactionWriter
	storage.TransactionLister
}

// TransactionService validates and stores single transactions, then publishes
// an event for each one.
type TransactionService struct {
	store     TransactionStore
	validator *core.Validator
	publisher TransactionPublisher
	logger    *log.Logger
}

func NewTransactionService(store TransactionStore, validator *core.Validator, publisher TransactionPublisher, logger *log.Logger) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		store:     store,
		validator: validator,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentTxn),
	}
}

// AddTransaction validates t and stores it. The returned transaction carries
// its assigned ID and creation time.
func (s *TransactionService) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if err := s.validator.ValidateTransaction(t); err != nil {
		return core.Transaction{}, err
	}

	// Save first; the event is best effort
	saved, err := s.store.AddTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	log.NewStructuredLogger(s.logger).LogTransactionCreated(ctx,
		saved.ID, saved.FamilyID, saved.MemberID, string(saved.Category), saved.Amount)

	if err := s.publishCreated(ctx, saved); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction created message",
			log.FieldTransactionID, saved.ID, log.FieldError, err)
		// Don't fail the request - transaction is saved locally
	}

	return saved, nil
}

// ListTransactions returns the transactions of familyID, or all of them when
// familyID is empty.
func (s *TransactionService) ListTransactions(ctx context.Context, familyID string) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (s *TransactionService) publishCreated(ctx context.Context, t core.Transaction) error {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "AMQP publisher not available, skipping transaction event")
		return nil
	}
	return s.publisher.PublishTransactionCreated(ctx, amqp.TransactionCreatedMessage{
		ID:        t.ID,
		FamilyID:  t.FamilyID,
		MemberID:  t.MemberID,
		Category:  string(t.Category),
		Amount:    t.Amount,
		Timestamp: t.CreatedAt,
	})
}
