package storage

import (
	"context"

	"household/internal/core"
)

// Ports implemented by the storage backends.
type (
	FamilyReader interface {
		// GetFamily returns a *core.NotFoundError when the family does not exist.
		GetFamily(ctx context.Context, familyID string) (core.FamilyProfile, error)
		ListFamilies(ctx context.Context) ([]core.FamilyProfile, error)
	}

	FamilyWriter interface {
		// CreateFamily returns a *core.ConflictError when the family already exists.
		CreateFamily(ctx context.Context, f core.FamilyProfile) (core.FamilyProfile, error)
	}

	TransactionWriter interface {
		// AddTransaction assigns an ID when the transaction has none.
		AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	}

	TransactionLister interface {
		// ListTransactions returns a family's transactions, or every transaction
		// when familyID is empty.
		ListTransactions(ctx context.Context, familyID string) ([]core.Transaction, error)
	}

	// SnapshotReplacer swaps the whole content of both collections in one
	// atomic step. Readers observe either the old or the new snapshot.
	SnapshotReplacer interface {
		ReplaceAll(ctx context.Context, s Snapshot) (ReplaceResult, error)
	}

	Repository interface {
		FamilyReader
		FamilyWriter
		TransactionWriter
		TransactionLister
		SnapshotReplacer
		Ping(ctx context.Context) error
		Close() error
	}
)

// Snapshot is the full replacement content of both collections.
type Snapshot struct {
	Families     []core.FamilyProfile
	Transactions []core.Transaction
}

// ReplaceResult reports what a snapshot replacement stored. RejectedTransactions
// counts records refused individually by the store (e.g. duplicate IDs) without
// aborting their siblings.
type ReplaceResult struct {
	Families             int
	Transactions         int
	RejectedTransactions int
}
