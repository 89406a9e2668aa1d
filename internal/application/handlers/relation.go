package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
	"github.com/ersonp/relmap/internal/domain/services"
)

// RelationHandler handles relation inspection and maintenance.
type RelationHandler struct {
	service *services.RelationshipService
	audit   ports.AuditLog
}

// NewRelationHandler creates a new RelationHandler.
func NewRelationHandler(service *services.RelationshipService, audit ports.AuditLog) *RelationHandler {
	return &RelationHandler{
		service: service,
		audit:   audit,
	}
}

// RelationListOptions configures relation listing.
type RelationListOptions struct {
	EntityID int    // Only relations involving this entity (0 = all)
	Property string // Only relations written by this property alias (empty = all)
}

// RelationListResult contains the relations of one relation type.
type RelationListResult struct {
	RelationType string                    `json:"relation_type"`
	Relations    []services.MappedRelation `json:"relations"`
}

// HandleList returns the relations of a relation type with decoded metadata.
func (h *RelationHandler) HandleList(ctx context.Context, relationTypeAlias string, opts RelationListOptions) (*RelationListResult, error) {
	mapped, err := h.service.List(ctx, relationTypeAlias, opts.EntityID)
	if err != nil {
		return nil, fmt.Errorf("listing relations: %w", err)
	}

	if opts.Property != "" {
		filtered := make([]services.MappedRelation, 0, len(mapped))
		for i := range mapped {
			if mapped[i].Metadata.PropertyAlias == opts.Property {
				filtered = append(filtered, mapped[i])
			}
		}
		mapped = filtered
	}

	return &RelationListResult{
		RelationType: relationTypeAlias,
		Relations:    mapped,
	}, nil
}

// HandleDelete removes a relation by ID.
func (h *RelationHandler) HandleDelete(ctx context.Context, id int) error {
	return h.service.Delete(ctx, id)
}

// HandleHistory returns the audit trail of a relation.
func (h *RelationHandler) HandleHistory(ctx context.Context, id int) ([]entities.AuditEntry, error) {
	return h.service.History(ctx, id)
}

// HandleAudit returns the most recent audit entries for an action, or for every action
// when action is empty.
func (h *RelationHandler) HandleAudit(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	switch action {
	case "", entities.AuditRelationCreated, entities.AuditRelationUpdated,
		entities.AuditRelationDeleted, entities.AuditKindMismatch:
	default:
		return nil, fmt.Errorf("unknown audit action %q", action)
	}
	if h.audit == nil {
		return nil, nil
	}
	return h.audit.FindAuditLogByAction(ctx, action, limit)
}
