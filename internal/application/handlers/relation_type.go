package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/services"
)

// RelationTypeHandler handles relation type operations.
type RelationTypeHandler struct {
	service       *services.RelationTypeService
	relationships *services.RelationshipService
}

// NewRelationTypeHandler creates a new RelationTypeHandler.
func NewRelationTypeHandler(service *services.RelationTypeService, relationships *services.RelationshipService) *RelationTypeHandler {
	return &RelationTypeHandler{
		service:       service,
		relationships: relationships,
	}
}

// RelationTypeInput describes a relation type to create.
type RelationTypeInput struct {
	Alias         string
	Name          string
	ParentKind    string
	ChildKind     string
	Bidirectional bool
}

// RelationTypeInfo is a relation type with its usage.
type RelationTypeInfo struct {
	Type      entities.RelationType `json:"type"`
	Default   bool                  `json:"default"`
	Relations int                   `json:"relations"`
}

// HandleAliases returns every relation type alias, sorted.
func (h *RelationTypeHandler) HandleAliases(ctx context.Context) ([]string, error) {
	return h.service.Aliases(ctx)
}

// HandleList returns all relation types.
func (h *RelationTypeHandler) HandleList(ctx context.Context) ([]entities.RelationType, error) {
	return h.service.List(ctx)
}

// HandleAdd creates a new relation type.
func (h *RelationTypeHandler) HandleAdd(ctx context.Context, in RelationTypeInput) (*entities.RelationType, error) {
	parent, ok := entities.ParseKind(in.ParentKind)
	if !ok {
		return nil, fmt.Errorf("invalid parent kind %q (valid: content, media, member)", in.ParentKind)
	}
	child, ok := entities.ParseKind(in.ChildKind)
	if !ok {
		return nil, fmt.Errorf("invalid child kind %q (valid: content, media, member)", in.ChildKind)
	}

	return h.service.Add(ctx, entities.RelationType{
		Alias:         in.Alias,
		Name:          in.Name,
		Bidirectional: in.Bidirectional,
		ParentKind:    parent,
		ChildKind:     child,
	})
}

// HandleRemove deletes a custom relation type and its relations.
func (h *RelationTypeHandler) HandleRemove(ctx context.Context, alias string) error {
	return h.service.Remove(ctx, alias)
}

// HandleDescribe returns a relation type with its relation count, or nil if not found.
func (h *RelationTypeHandler) HandleDescribe(ctx context.Context, alias string) (*RelationTypeInfo, error) {
	rt, err := h.service.Get(ctx, alias)
	if err != nil {
		return nil, err
	}
	if rt == nil {
		return nil, nil
	}

	count, err := h.relationships.Count(ctx, alias)
	if err != nil {
		return nil, err
	}

	return &RelationTypeInfo{
		Type:      *rt,
		Default:   entities.IsDefaultRelationType(rt.Alias),
		Relations: count,
	}, nil
}
