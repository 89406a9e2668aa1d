package services

import (
	"context"
	"fmt"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
)

// RelationshipService inspects and edits individual relations outside of a picker save.
type RelationshipService struct {
	store ports.RelationStore
	audit ports.AuditLog
}

// NewRelationshipService creates a new RelationshipService. audit may be nil.
func NewRelationshipService(store ports.RelationStore, audit ports.AuditLog) *RelationshipService {
	return &RelationshipService{
		store: store,
		audit: audit,
	}
}

// List returns the relations of a relation type with their decoded metadata.
// When entityID is non-zero only relations involving that entity are returned.
func (s *RelationshipService) List(ctx context.Context, relationTypeAlias string, entityID int) ([]MappedRelation, error) {
	relType, err := s.store.FindRelationType(ctx, relationTypeAlias)
	if err != nil {
		return nil, fmt.Errorf("finding relation type: %w", err)
	}
	if relType == nil {
		return nil, fmt.Errorf("relation type '%s' not found", relationTypeAlias)
	}

	relations, err := s.store.ListRelations(ctx, relType.ID)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}

	result := make([]MappedRelation, 0, len(relations))
	for i := range relations {
		if entityID != 0 && !relations[i].Involves(entityID) {
			continue
		}
		result = append(result, MappedRelation{
			Relation: relations[i],
			Metadata: entities.DecodeRelationMetadata(relations[i].Comment),
		})
	}
	return result, nil
}

// Count returns the number of relations of a relation type.
func (s *RelationshipService) Count(ctx context.Context, relationTypeAlias string) (int, error) {
	mapped, err := s.List(ctx, relationTypeAlias, 0)
	if err != nil {
		return 0, err
	}
	return len(mapped), nil
}

// Delete removes a single relation by ID.
func (s *RelationshipService) Delete(ctx context.Context, id int) error {
	if err := s.store.DeleteRelation(ctx, id); err != nil {
		return fmt.Errorf("deleting relation: %w", err)
	}
	if s.audit != nil {
		if err := s.audit.LogAction(ctx, entities.AuditRelationDeleted, id, map[string]any{"source": "manual"}); err != nil {
			return fmt.Errorf("logging deletion: %w", err)
		}
	}
	return nil
}

// History returns the audit entries of a relation, newest first.
func (s *RelationshipService) History(ctx context.Context, id int) ([]entities.AuditEntry, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.FindAuditLogByRelation(ctx, id)
}
