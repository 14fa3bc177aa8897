package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"household/internal/core"
	storemem "household/internal/storage/memory"
)

func validTransaction() core.Transaction {
	return core.Transaction{
		FamilyID:        "F1",
		MemberID:        "M1",
		TransactionDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Category:        core.Groceries,
		Amount:          42.5,
	}
}

func TestTransactionService_AddTransaction(t *testing.T) {
	store := storemem.New()
	pub := &fakePublisher{}
	svc := NewTransactionService(store, testValidator(), pub, quietLogger())
	ctx := context.Background()

	saved, err := svc.AddTransaction(ctx, validTransaction())
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if saved.ID == "" {
		t.Error("expected an assigned ID")
	}
	if len(pub.created) != 1 || pub.created[0].ID != saved.ID {
		t.Errorf("published %+v", pub.created)
	}

	txs, err := svc.ListTransactions(ctx, "F1")
	if err != nil || len(txs) != 1 {
		t.Fatalf("ListTransactions = %v, %v", txs, err)
	}
}

func TestTransactionService_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.Transaction)
		field  string
	}{
		{"future date", func(tx *core.Transaction) { tx.TransactionDate = testNow.Add(24 * time.Hour) }, "transactionDate"},
		{"zero amount", func(tx *core.Transaction) { tx.Amount = 0 }, "amount"},
		{"suspicious amount", func(tx *core.Transaction) { tx.Amount = 100000.01 }, "amount"},
		{"unknown category", func(tx *core.Transaction) { tx.Category = "Travel" }, "category"},
		{"missing member", func(tx *core.Transaction) { tx.MemberID = " " }, "memberId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storemem.New()
			svc := NewTransactionService(store, testValidator(), nil, quietLogger())
			tx := validTransaction()
			tt.mutate(&tx)

			_, err := svc.AddTransaction(context.Background(), tx)
			var ve *core.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field = %q, want %q", ve.Field, tt.field)
			}
			if txs, _ := store.ListTransactions(context.Background(), ""); len(txs) != 0 {
				t.Errorf("rejected transaction stored: %+v", txs)
			}
		})
	}
}

func TestTransactionService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{failWith: errors.New("broker down")}
	svc := NewTransactionService(storemem.New(), testValidator(), pub, quietLogger())

	if _, err := svc.AddTransaction(context.Background(), validTransaction()); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
}
