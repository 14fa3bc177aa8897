package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"household/internal/core"
	"household/internal/storage"
)

func TestStore_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.CreateFamily(ctx, core.FamilyProfile{FamilyID: "OLD"}); err != nil {
		t.Fatal(err)
	}

	date := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	res, err := s.ReplaceAll(ctx, storage.Snapshot{
		Families: []core.FamilyProfile{{FamilyID: "F1"}},
		Transactions: []core.Transaction{
			{ID: "a", FamilyID: "F1", MemberID: "M", TransactionDate: date, Category: core.Rent, Amount: 1},
			{ID: "a", FamilyID: "F1", MemberID: "M", TransactionDate: date, Category: core.Rent, Amount: 2},
		},
	})
	if err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}
	if res != (storage.ReplaceResult{Families: 1, Transactions: 1, RejectedTransactions: 1}) {
		t.Fatalf("result = %+v", res)
	}
	if _, err := s.GetFamily(ctx, "OLD"); err == nil {
		t.Fatal("old family should be gone")
	}
	txs, _ := s.ListTransactions(ctx, "F1")
	if len(txs) != 1 || txs[0].Amount != 1 {
		t.Fatalf("transactions = %+v", txs)
	}
}

func TestStore_ReplaceAllDuplicateFamilyLeavesState(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.CreateFamily(ctx, core.FamilyProfile{FamilyID: "KEEP"}); err != nil {
		t.Fatal(err)
	}

	_, err := s.ReplaceAll(ctx, storage.Snapshot{
		Families: []core.FamilyProfile{{FamilyID: "F1"}, {FamilyID: "F1"}},
	})
	var conflict *core.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if _, err := s.GetFamily(ctx, "KEEP"); err != nil {
		t.Fatalf("existing family lost: %v", err)
	}
}

func TestStore_CreateFamilyConflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	if _, err := s.CreateFamily(ctx, core.FamilyProfile{FamilyID: "F1"}); err != nil {
		t.Fatal(err)
	}
	_, err := s.CreateFamily(ctx, core.FamilyProfile{FamilyID: " F1"})
	var conflict *core.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}
