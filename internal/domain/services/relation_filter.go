package services

import (
	"context"
	"sort"

	"github.com/samber/oops"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
)

// MappedRelation is a relation paired with its decoded comment.
type MappedRelation struct {
	Relation entities.Relation         `json:"relation"`
	Metadata entities.RelationMetadata `json:"metadata"`
}

// RelationFilter selects the relations of a relation type that were written by one
// picker property on one entity.
type RelationFilter struct {
	store ports.RelationStore
}

// NewRelationFilter creates a new RelationFilter.
func NewRelationFilter(store ports.RelationStore) *RelationFilter {
	return &RelationFilter{store: store}
}

// Filter returns the relations owned by prop on contextID, ordered by the sort order of
// the context's side, highest first.
//
// Bidirectional relations-only pickers match relations on either side of contextID that
// were written by the same data type, since the last save may have come from the other
// entity's property. Every other picker matches relations whose child is contextID and
// that were written by the same property instance; properties inside a repeating group
// are further narrowed to their own group instance.
func (f *RelationFilter) Filter(
	ctx context.Context,
	relType *entities.RelationType,
	contextID int,
	prop *entities.PropertyDescriptor,
	relationsOnly bool,
) ([]MappedRelation, error) {
	relations, err := f.store.ListRelations(ctx, relType.ID)
	if err != nil {
		return nil, oops.Code("RELATION_LIST_FAILED").
			With("relation_type", relType.Alias).
			Wrap(err)
	}

	if relType.Bidirectional && relationsOnly {
		return filterEitherSide(relations, contextID, prop), nil
	}
	return filterChildSide(relations, contextID, prop), nil
}

func filterEitherSide(relations []entities.Relation, contextID int, prop *entities.PropertyDescriptor) []MappedRelation {
	result := make([]MappedRelation, 0, len(relations))
	for i := range relations {
		if !relations[i].Involves(contextID) {
			continue
		}
		meta := entities.DecodeRelationMetadata(relations[i].Comment)
		if meta.DataTypeID != prop.DataTypeID {
			continue
		}
		result = append(result, MappedRelation{Relation: relations[i], Metadata: meta})
	}

	// The context's own position lives in ChildSortOrder when it was the editing side of
	// the last save, and in ParentSortOrder when the other side saved last.
	sortKey := func(m MappedRelation) int {
		if m.Relation.ChildID == contextID {
			return m.Metadata.ChildSortOrder
		}
		return m.Metadata.ParentSortOrder
	}
	sort.SliceStable(result, func(i, j int) bool {
		return sortKey(result[i]) > sortKey(result[j])
	})
	return result
}

func filterChildSide(relations []entities.Relation, contextID int, prop *entities.PropertyDescriptor) []MappedRelation {
	nested := entities.IsNestedGroupAlias(prop.Alias)

	result := make([]MappedRelation, 0, len(relations))
	for i := range relations {
		if relations[i].ChildID != contextID {
			continue
		}
		meta := entities.DecodeRelationMetadata(relations[i].Comment)
		if meta.PropertyTypeID != prop.ID {
			continue
		}
		if nested && !entities.SameGroupInstance(meta.PropertyAlias, prop.Alias) {
			continue
		}
		result = append(result, MappedRelation{Relation: relations[i], Metadata: meta})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Metadata.ParentSortOrder > result[j].Metadata.ParentSortOrder
	})
	return result
}
