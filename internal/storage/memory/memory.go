// Package memory is an in-process storage backend used for tests and the
// DATA_BACKEND=memory mode.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"household/internal/core"
	"household/internal/storage"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.RWMutex
	families     map[string]core.FamilyProfile
	transactions []core.Transaction
	now          func() time.Time
}

// Ensure interface conformance
var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		families: map[string]core.FamilyProfile{},
		now:      time.Now,
	}
}

func (s *Store) CreateFamily(_ context.Context, f core.FamilyProfile) (core.FamilyProfile, error) {
	f = f.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.families[f.FamilyID]; ok {
		return core.FamilyProfile{}, &core.ConflictError{Resource: "family", ID: f.FamilyID}
	}
	now := s.now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now
	s.families[f.FamilyID] = f
	return f, nil
}

func (s *Store) GetFamily(_ context.Context, familyID string) (core.FamilyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.families[strings.TrimSpace(familyID)]
	if !ok {
		return core.FamilyProfile{}, &core.NotFoundError{Resource: "family", ID: familyID}
	}
	return f, nil
}

// ListFamilies returns profiles ordered by family ID.
func (s *Store) ListFamilies(_ context.Context) ([]core.FamilyProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.FamilyProfile, 0, len(s.families))
	for _, f := range s.families {
		out = append(out, f)
	}
	slices.SortFunc(out, func(a, b core.FamilyProfile) int {
		return strings.Compare(a.FamilyID, b.FamilyID)
	})
	return out, nil
}

func (s *Store) AddTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.transactions {
		if existing.ID == t.ID {
			return core.Transaction{}, &core.ConflictError{Resource: "transaction", ID: t.ID}
		}
	}
	t.CreatedAt = s.now().UTC()
	s.transactions = append(s.transactions, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, familyID string) ([]core.Transaction, error) {
	familyID = strings.TrimSpace(familyID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Transaction
	for _, t := range s.transactions {
		if familyID == "" || t.FamilyID == familyID {
			out = append(out, t)
		}
	}
	return out, nil
}

// ReplaceAll builds the new state aside and swaps it in under the write lock.
// Duplicate transaction IDs are rejected one by one; a duplicate family ID
// aborts with a conflict and leaves the store untouched.
func (s *Store) ReplaceAll(_ context.Context, snap storage.Snapshot) (storage.ReplaceResult, error) {
	now := s.now().UTC()
	var res storage.ReplaceResult

	families := make(map[string]core.FamilyProfile, len(snap.Families))
	for _, f := range snap.Families {
		f = f.Normalize()
		if _, dup := families[f.FamilyID]; dup {
			return storage.ReplaceResult{}, &core.ConflictError{Resource: "family", ID: f.FamilyID}
		}
		f.CreatedAt, f.UpdatedAt = now, now
		families[f.FamilyID] = f
		res.Families++
	}

	seen := make(map[string]struct{}, len(snap.Transactions))
	transactions := make([]core.Transaction, 0, len(snap.Transactions))
	for _, t := range snap.Transactions {
		t = t.Normalize()
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if _, dup := seen[t.ID]; dup {
			res.RejectedTransactions++
			continue
		}
		seen[t.ID] = struct{}{}
		t.CreatedAt = now
		transactions = append(transactions, t)
		res.Transactions++
	}

	s.mu.Lock()
	s.families = families
	s.transactions = transactions
	s.mu.Unlock()
	return res, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
