package mocks

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/ersonp/relmap/internal/domain/entities"
)

// RelationStore is an in-memory implementation of ports.RelationStore, ports.Transactor
// and ports.AuditLog. InTransaction snapshots the relations and audit entries and
// restores them when fn fails.
type RelationStore struct {
	mu        sync.Mutex
	txMu      sync.Mutex
	types     map[string]*entities.RelationType
	relations map[int]entities.Relation
	audit     []entities.AuditEntry
	nextRelID int
	nextTypID int

	// Err is returned by every call when set.
	Err error
	// SaveHook, when set, runs before every SaveRelation and aborts it on error.
	SaveHook func(rel *entities.Relation) error

	// Call counters.
	Saves   int
	Deletes int
}

// NewRelationStore creates a new mock RelationStore.
func NewRelationStore() *RelationStore {
	return &RelationStore{
		types:     make(map[string]*entities.RelationType),
		relations: make(map[int]entities.Relation),
		nextRelID: 1,
		nextTypID: 1,
	}
}

// AddRelationType adds a relation type and returns it with its ID assigned.
func (m *RelationStore) AddRelationType(rt entities.RelationType) *entities.RelationType {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt.ID == 0 {
		rt.ID = m.nextTypID
		m.nextTypID++
	}
	m.types[rt.Alias] = &rt
	return &rt
}

// AddRelation adds a relation without counting it as a save and returns its ID.
func (m *RelationStore) AddRelation(rel entities.Relation) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel.ID = m.nextRelID
	m.nextRelID++
	m.relations[rel.ID] = rel
	return rel.ID
}

// Relations returns every stored relation ordered by ID.
func (m *RelationStore) Relations() []entities.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedRelations(0)
}

// Relation returns a stored relation by ID.
func (m *RelationStore) Relation(id int) (entities.Relation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rel, ok := m.relations[id]
	return rel, ok
}

// Relation type methods.

// FindRelationType finds a relation type by alias.
func (m *RelationStore) FindRelationType(_ context.Context, alias string) (*entities.RelationType, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.types[alias]
	if !ok {
		return nil, nil
	}
	cp := *rt
	return &cp, nil
}

// ListRelationTypes lists all relation types ordered by alias.
func (m *RelationStore) ListRelationTypes(_ context.Context) ([]entities.RelationType, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]entities.RelationType, 0, len(m.types))
	for _, rt := range m.types {
		result = append(result, *rt)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Alias < result[j].Alias
	})
	return result, nil
}

// SaveRelationType creates or updates a relation type.
func (m *RelationStore) SaveRelationType(_ context.Context, rt *entities.RelationType) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if rt.ID == 0 {
		rt.ID = m.nextTypID
		m.nextTypID++
	}
	cp := *rt
	m.types[rt.Alias] = &cp
	return nil
}

// DeleteRelationType deletes a relation type and its relations.
func (m *RelationStore) DeleteRelationType(_ context.Context, alias string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rt, ok := m.types[alias]
	if !ok {
		return nil
	}
	for id, rel := range m.relations {
		if rel.RelationTypeID == rt.ID {
			delete(m.relations, id)
		}
	}
	delete(m.types, alias)
	return nil
}

// Relation methods.

// ListRelations lists every relation of a relation type ordered by ID.
func (m *RelationStore) ListRelations(_ context.Context, relationTypeID int) ([]entities.Relation, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedRelations(relationTypeID), nil
}

// SaveRelation creates or updates a relation.
func (m *RelationStore) SaveRelation(_ context.Context, rel *entities.Relation) error {
	if m.Err != nil {
		return m.Err
	}
	if m.SaveHook != nil {
		if err := m.SaveHook(rel); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Saves++
	if rel.ID == 0 {
		rel.ID = m.nextRelID
		m.nextRelID++
		rel.CreatedAt = time.Now()
	}
	m.relations[rel.ID] = *rel
	return nil
}

// DeleteRelation deletes a relation by ID.
func (m *RelationStore) DeleteRelation(_ context.Context, id int) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deletes++
	delete(m.relations, id)
	return nil
}

// InTransaction runs fn and restores the previous state when fn fails.
// Transactions are serialized.
func (m *RelationStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	relations := maps.Clone(m.relations)
	audit := append([]entities.AuditEntry(nil), m.audit...)
	nextRelID := m.nextRelID
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.relations = relations
		m.audit = audit
		m.nextRelID = nextRelID
		m.mu.Unlock()
		return err
	}
	return nil
}

// Audit log methods.

// LogAction logs an action to the audit log.
func (m *RelationStore) LogAction(_ context.Context, action string, relationID int, details map[string]any) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entities.AuditEntry{
		ID:         int64(len(m.audit) + 1),
		Action:     action,
		RelationID: relationID,
		Details:    details,
		CreatedAt:  time.Now(),
	})
	return nil
}

// FindAuditLogByAction finds audit log entries by action type (all when empty), newest first.
func (m *RelationStore) FindAuditLogByAction(_ context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []entities.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if action != "" && m.audit[i].Action != action {
			continue
		}
		result = append(result, m.audit[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// FindAuditLogByRelation finds audit log entries for a relation, newest first.
func (m *RelationStore) FindAuditLogByRelation(_ context.Context, relationID int) ([]entities.AuditEntry, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []entities.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		if m.audit[i].RelationID == relationID {
			result = append(result, m.audit[i])
		}
	}
	return result, nil
}

func (m *RelationStore) sortedRelations(relationTypeID int) []entities.Relation {
	result := make([]entities.Relation, 0, len(m.relations))
	for _, rel := range m.relations {
		if relationTypeID != 0 && rel.RelationTypeID != relationTypeID {
			continue
		}
		result = append(result, rel)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}
