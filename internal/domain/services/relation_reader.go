package services

import (
	"context"
	"sort"

	"github.com/samber/oops"

	"github.com/ersonp/relmap/internal/domain/ports"
)

// RelationReader reads a picker's selection back from the relation store.
type RelationReader struct {
	store  ports.RelationStore
	props  ports.PropertyResolver
	filter *RelationFilter
}

// NewRelationReader creates a new RelationReader.
func NewRelationReader(store ports.RelationStore, props ports.PropertyResolver) *RelationReader {
	return &RelationReader{
		store:  store,
		props:  props,
		filter: NewRelationFilter(store),
	}
}

// RelatedIDs returns the ids linked to contextID by the picker property, in picker order.
// It returns nil when the relation type does not exist.
func (r *RelationReader) RelatedIDs(
	ctx context.Context,
	relationTypeAlias string,
	contextID int,
	propertyAlias string,
	relationsOnly bool,
) ([]int, error) {
	relType, err := r.store.FindRelationType(ctx, relationTypeAlias)
	if err != nil {
		return nil, oops.Code("RELATION_READ_FAILED").
			With("relation_type", relationTypeAlias).
			Wrapf(err, "finding relation type")
	}
	if relType == nil {
		return nil, nil
	}

	prop, err := r.props.ResolveProperty(ctx, contextID, propertyAlias)
	if err != nil {
		return nil, oops.Code("PROPERTY_TYPE_NOT_FOUND").
			With("context_id", contextID).
			With("property", propertyAlias).
			Wrapf(err, "resolving property")
	}
	if prop == nil {
		return nil, oops.Code("PROPERTY_TYPE_NOT_FOUND").
			With("context_id", contextID).
			With("property", propertyAlias).
			Errorf("property %q not found on entity %d", propertyAlias, contextID)
	}

	mapped, err := r.filter.Filter(ctx, relType, contextID, prop, relationsOnly)
	if err != nil {
		return nil, err
	}

	// The filter orders child-side relations by parent sort order; the picker's own
	// order is the context side's sort order.
	sort.SliceStable(mapped, func(i, j int) bool {
		return contextOrder(mapped[i], contextID) > contextOrder(mapped[j], contextID)
	})

	ids := make([]int, 0, len(mapped))
	for i := range mapped {
		ids = append(ids, mapped[i].Relation.OtherEnd(contextID))
	}
	return ids, nil
}

func contextOrder(m MappedRelation, contextID int) int {
	if m.Relation.ChildID == contextID {
		return m.Metadata.ChildSortOrder
	}
	return m.Metadata.ParentSortOrder
}
