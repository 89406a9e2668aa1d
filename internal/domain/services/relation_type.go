package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
)

// validAliasRegex allows camelCase aliases: a letter followed by letters and digits.
var validAliasRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]*$`)

// RelationTypeService manages relation types.
type RelationTypeService struct {
	store         ports.RelationStore
	cache         map[string]*entities.RelationType
	sortedAliases []string // cached sorted aliases, populated with cache
	cacheMu       sync.RWMutex
}

// NewRelationTypeService creates a new RelationTypeService.
func NewRelationTypeService(store ports.RelationStore) *RelationTypeService {
	return &RelationTypeService{
		store: store,
		cache: make(map[string]*entities.RelationType),
	}
}

// LoadDefaults seeds the default relation types into the store.
func (s *RelationTypeService) LoadDefaults(ctx context.Context) error {
	existing, err := s.store.ListRelationTypes(ctx)
	if err != nil {
		return fmt.Errorf("listing relation types: %w", err)
	}

	existingSet := make(map[string]bool, len(existing))
	for _, rt := range existing {
		existingSet[rt.Alias] = true
	}

	for _, rt := range entities.DefaultRelationTypes {
		if !existingSet[rt.Alias] {
			rtCopy := rt
			if err := s.store.SaveRelationType(ctx, &rtCopy); err != nil {
				return fmt.Errorf("seeding relation type %s: %w", rt.Alias, err)
			}
		}
	}
	s.invalidateCache()
	return nil
}

// List returns all relation types.
func (s *RelationTypeService) List(ctx context.Context) ([]entities.RelationType, error) {
	return s.store.ListRelationTypes(ctx)
}

// Get returns a relation type by alias, or nil if not found.
func (s *RelationTypeService) Get(ctx context.Context, alias string) (*entities.RelationType, error) {
	return s.store.FindRelationType(ctx, alias)
}

// Add creates a new relation type.
func (s *RelationTypeService) Add(ctx context.Context, rt entities.RelationType) (*entities.RelationType, error) {
	rt.Alias = strings.TrimSpace(rt.Alias)
	rt.Name = strings.TrimSpace(rt.Name)

	if !validAliasRegex.MatchString(rt.Alias) {
		return nil, errors.New("invalid relation type alias: must start with a letter and contain only letters and digits")
	}
	if !rt.ParentKind.IsValid() {
		return nil, fmt.Errorf("invalid parent kind %q", rt.ParentKind)
	}
	if !rt.ChildKind.IsValid() {
		return nil, fmt.Errorf("invalid child kind %q", rt.ChildKind)
	}
	if rt.Name == "" {
		rt.Name = rt.Alias
	}

	existing, err := s.store.FindRelationType(ctx, rt.Alias)
	if err != nil {
		return nil, fmt.Errorf("checking relation type: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("relation type '%s' already exists", rt.Alias)
	}

	rt.ID = 0
	if err := s.store.SaveRelationType(ctx, &rt); err != nil {
		return nil, fmt.Errorf("saving relation type: %w", err)
	}

	s.invalidateCache()
	return &rt, nil
}

// Remove deletes a relation type and all of its relations.
func (s *RelationTypeService) Remove(ctx context.Context, alias string) error {
	if entities.IsDefaultRelationType(alias) {
		return fmt.Errorf("cannot remove default relation type '%s'", alias)
	}

	existing, err := s.store.FindRelationType(ctx, alias)
	if err != nil {
		return fmt.Errorf("checking relation type: %w", err)
	}
	if existing == nil {
		return fmt.Errorf("relation type '%s' not found", alias)
	}

	if err := s.store.DeleteRelationType(ctx, alias); err != nil {
		return fmt.Errorf("deleting relation type: %w", err)
	}

	s.invalidateCache()
	return nil
}

// IsValid checks if a relation type alias exists.
func (s *RelationTypeService) IsValid(ctx context.Context, alias string) bool {
	// Fast path: check cache with read lock
	s.cacheMu.RLock()
	if len(s.cache) > 0 {
		_, ok := s.cache[alias]
		s.cacheMu.RUnlock()
		return ok
	}
	s.cacheMu.RUnlock()

	// Slow path: need to populate cache
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	// Double-check: another goroutine may have populated the cache
	if len(s.cache) > 0 {
		_, ok := s.cache[alias]
		return ok
	}

	types, err := s.store.ListRelationTypes(ctx)
	if err != nil {
		return false
	}

	s.populateCacheFromTypes(types)
	_, ok := s.cache[alias]
	return ok
}

// Aliases returns all relation type aliases, sorted.
// The returned slice is shared and must not be modified by callers.
func (s *RelationTypeService) Aliases(ctx context.Context) ([]string, error) {
	s.cacheMu.RLock()
	if len(s.cache) > 0 {
		aliases := s.sortedAliases
		s.cacheMu.RUnlock()
		return aliases, nil
	}
	s.cacheMu.RUnlock()

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if len(s.cache) > 0 {
		return s.sortedAliases, nil
	}

	types, err := s.store.ListRelationTypes(ctx)
	if err != nil {
		return nil, err
	}

	s.populateCacheFromTypes(types)
	return s.sortedAliases, nil
}

// populateCacheFromTypes fills the cache and sortedAliases from a types slice.
// Caller must hold cacheMu write lock.
func (s *RelationTypeService) populateCacheFromTypes(types []entities.RelationType) {
	s.cache = make(map[string]*entities.RelationType, len(types))
	s.sortedAliases = make([]string, len(types))
	for i := range types {
		s.cache[types[i].Alias] = &types[i]
		s.sortedAliases[i] = types[i].Alias
	}
	sort.Strings(s.sortedAliases)
}

func (s *RelationTypeService) invalidateCache() {
	s.cacheMu.Lock()
	s.cache = make(map[string]*entities.RelationType)
	s.sortedAliases = nil
	s.cacheMu.Unlock()
}
