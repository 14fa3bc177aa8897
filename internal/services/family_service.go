package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"household/internal/cache"
	"household/internal/core"
	"household/internal/log"
	"household/internal/storage"
)

// FamilyStore is the storage slice the family service needs.
type FamilyStore interface {
	storage.FamilyReader
	storage.FamilyWriter
}

// FamilyService manages family profiles. Lookups by ID go through an
// optional cache that the importer purges after every commit.
type FamilyService struct {
	store     FamilyStore
	validator *core.Validator
	cache     cache.Cache[core.FamilyProfile]
	logger    *log.Logger
}

func NewFamilyService(store FamilyStore, validator *core.Validator, c cache.Cache[core.FamilyProfile], logger *log.Logger) *FamilyService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &FamilyService{
		store:     store,
		validator: validator,
		cache:     c,
		logger:    logger.WithComponent(log.ComponentFamily),
	}
}

// CreateFamily validates and stores a new profile. A duplicate Family ID
// yields a *core.ConflictError.
func (s *FamilyService) CreateFamily(ctx context.Context, f core.FamilyProfile) (core.FamilyProfile, error) {
	f = f.Normalize()
	if err := s.validator.ValidateFamily(f); err != nil {
		return core.FamilyProfile{}, err
	}

	gen := s.generation()
	saved, err := s.store.CreateFamily(ctx, f)
	if err != nil {
		var conflict *core.ConflictError
		if errors.As(err, &conflict) {
			return core.FamilyProfile{}, err
		}
		return core.FamilyProfile{}, fmt.Errorf("create family: %w", err)
	}

	s.remember(ctx, saved, gen)
	s.logger.InfoContext(ctx, "Family profile created",
		log.FieldFamilyID, saved.FamilyID, log.FieldOperation, log.OpCreate)
	return saved, nil
}

// GetFamily returns one profile or a *core.NotFoundError.
func (s *FamilyService) GetFamily(ctx context.Context, familyID string) (core.FamilyProfile, error) {
	familyID = strings.TrimSpace(familyID)
	if s.cache != nil {
		if f, ok := s.cache.Get(familyID); ok {
			return f, nil
		}
	}

	// Read the generation before the store so an import committing
	// meanwhile keeps this profile out of the cache
	gen := s.generation()
	f, err := s.store.GetFamily(ctx, familyID)
	if err != nil {
		return core.FamilyProfile{}, err
	}
	s.remember(ctx, f, gen)
	return f, nil
}

// ListFamilies returns every stored profile ordered by Family ID.
func (s *FamilyService) ListFamilies(ctx context.Context) ([]core.FamilyProfile, error) {
	families, err := s.store.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return families, nil
}

// InvalidateCache drops every cached profile. It has the shape of an
// importer commit hook.
func (s *FamilyService) InvalidateCache(ctx context.Context, _ ImportResult) {
	if s.cache == nil {
		return
	}
	s.cache.Purge()
	s.logger.DebugContext(ctx, "Family cache purged after import")
}

func (s *FamilyService) generation() uint64 {
	if s.cache == nil {
		return 0
	}
	return s.cache.Generation()
}

// remember caches f unless the cache was purged since gen was read.
func (s *FamilyService) remember(ctx context.Context, f core.FamilyProfile, gen uint64) {
	if s.cache == nil {
		return
	}
	if !s.cache.SetIfGeneration(f.FamilyID, f, gen) {
		s.logger.DebugContext(ctx, "Profile read overlapped an import, not cached", log.FieldFamilyID, f.FamilyID)
	}
}
