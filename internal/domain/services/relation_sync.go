package services

import (
	"context"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
)

// DuplicatePolicy decides what happens when the same id is picked more than once.
type DuplicatePolicy string

const (
	// DuplicatesPreserve processes every occurrence. The second occurrence of an id
	// creates a second relation for the pair.
	DuplicatesPreserve DuplicatePolicy = "preserve"
	// DuplicatesDedupe keeps the first occurrence of each id and numbers the
	// remaining list.
	DuplicatesDedupe DuplicatePolicy = "dedupe"
)

// IsValid reports whether the policy is known.
func (p DuplicatePolicy) IsValid() bool {
	return p == DuplicatesPreserve || p == DuplicatesDedupe
}

// ReconcileRequest is the input of a single reconcile call.
type ReconcileRequest struct {
	RelationTypeAlias string
	ContextID         int
	PropertyAlias     string
	RelationsOnly     bool
	PickedIDs         []int
}

// RelationSynchronizer brings the relations owned by a picker property in line with the
// picker's current selection.
type RelationSynchronizer struct {
	store      ports.RelationStore
	tx         ports.Transactor
	kinds      ports.KindResolver
	props      ports.PropertyResolver
	audit      ports.AuditLog
	filter     *RelationFilter
	duplicates DuplicatePolicy
	logger     *zap.SugaredLogger
}

// NewRelationSynchronizer creates a new RelationSynchronizer.
func NewRelationSynchronizer(
	store ports.RelationStore,
	tx ports.Transactor,
	kinds ports.KindResolver,
	props ports.PropertyResolver,
	logger *zap.SugaredLogger,
) *RelationSynchronizer {
	return &RelationSynchronizer{
		store:      store,
		tx:         tx,
		kinds:      kinds,
		props:      props,
		filter:     NewRelationFilter(store),
		duplicates: DuplicatesPreserve,
		logger:     logger,
	}
}

// WithAuditLog records every relation change and skipped id in the audit log.
func (s *RelationSynchronizer) WithAuditLog(audit ports.AuditLog) *RelationSynchronizer {
	s.audit = audit
	return s
}

// WithDuplicatePolicy sets how repeated picked ids are handled.
func (s *RelationSynchronizer) WithDuplicatePolicy(p DuplicatePolicy) *RelationSynchronizer {
	if p.IsValid() {
		s.duplicates = p
	}
	return s
}

// Reconcile creates, updates, and deletes relations so that the relations owned by
// req.PropertyAlias on req.ContextID have exactly the picked ids as parents, with sort
// orders following the picked order (first id highest).
//
// A missing relation type makes the call a no-op and returns nil. All writes of one call
// commit together; on error nothing is applied.
func (s *RelationSynchronizer) Reconcile(ctx context.Context, req ReconcileRequest) (*entities.ReconcileResult, error) {
	errb := oops.
		With("relation_type", req.RelationTypeAlias).
		With("context_id", req.ContextID).
		With("property", req.PropertyAlias)

	relType, err := s.store.FindRelationType(ctx, req.RelationTypeAlias)
	if err != nil {
		return nil, errb.Code("RELATION_RECONCILE_FAILED").Wrapf(err, "finding relation type")
	}
	if relType == nil {
		s.logger.Debugw("relation type not found, nothing to reconcile",
			"relation_type", req.RelationTypeAlias, "context_id", req.ContextID)
		return nil, nil
	}

	prop, err := s.props.ResolveProperty(ctx, req.ContextID, req.PropertyAlias)
	if err != nil {
		return nil, errb.Code("PROPERTY_TYPE_NOT_FOUND").Wrapf(err, "resolving property")
	}
	if prop == nil {
		return nil, errb.Code("PROPERTY_TYPE_NOT_FOUND").Errorf("property %q not found on entity %d", req.PropertyAlias, req.ContextID)
	}

	picked := req.PickedIDs
	if s.duplicates == DuplicatesDedupe {
		picked = dedupeIDs(picked)
	}

	result := &entities.ReconcileResult{
		RelationTypeAlias: relType.Alias,
		ContextID:         req.ContextID,
		PropertyAlias:     req.PropertyAlias,
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		// The result is rebuilt on every attempt so a rolled back run reports nothing.
		*result = entities.ReconcileResult{
			RelationTypeAlias: relType.Alias,
			ContextID:         req.ContextID,
			PropertyAlias:     req.PropertyAlias,
		}
		return s.apply(ctx, relType, prop, req, picked, result)
	})
	if err != nil {
		if _, ok := oops.AsOops(err); ok {
			return nil, err
		}
		return nil, errb.Code("RELATION_RECONCILE_FAILED").Wrap(err)
	}

	s.logger.Debugw("relations reconciled",
		"relation_type", relType.Alias,
		"context_id", req.ContextID,
		"property", req.PropertyAlias,
		"created", len(result.Created),
		"updated", len(result.Updated),
		"deleted", len(result.Deleted),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (s *RelationSynchronizer) apply(
	ctx context.Context,
	relType *entities.RelationType,
	prop *entities.PropertyDescriptor,
	req ReconcileRequest,
	picked []int,
	result *entities.ReconcileResult,
) error {
	existing, err := s.filter.Filter(ctx, relType, req.ContextID, prop, req.RelationsOnly)
	if err != nil {
		return err
	}

	kind, ok, err := s.kinds.KindOf(ctx, req.ContextID)
	if err != nil {
		return oops.Code("RELATION_RECONCILE_FAILED").
			With("context_id", req.ContextID).
			Wrapf(err, "resolving context kind")
	}
	if !ok || kind != relType.ChildKind {
		mismatch := entities.KindMismatch{
			ID:       req.ContextID,
			Side:     entities.MismatchChild,
			Expected: relType.ChildKind,
			Actual:   kind,
		}
		return oops.Code("RELATION_CONTEXT_KIND_MISMATCH").
			With("relation_type", relType.Alias).
			With("context_id", req.ContextID).
			With("expected", relType.ChildKind).
			With("actual", kind).
			Wrap(&mismatch)
	}

	n := len(picked)
	for i, pickedID := range picked {
		order := n - i

		pickedKind, ok, err := s.kinds.KindOf(ctx, pickedID)
		if err != nil {
			return oops.Code("RELATION_RECONCILE_FAILED").
				With("picked_id", pickedID).
				Wrapf(err, "resolving picked kind")
		}
		if !ok || pickedKind != relType.ParentKind {
			mismatch := entities.KindMismatch{
				ID:       pickedID,
				Side:     entities.MismatchParent,
				Expected: relType.ParentKind,
				Actual:   pickedKind,
			}
			result.Skipped = append(result.Skipped, mismatch)
			s.logger.Warnw("skipping picked id of wrong kind",
				"relation_type", relType.Alias,
				"context_id", req.ContextID,
				"picked_id", pickedID,
				"expected", relType.ParentKind,
				"actual", pickedKind,
			)
			if err := s.logAudit(ctx, entities.AuditKindMismatch, 0, map[string]any{
				"relation_type": relType.Alias,
				"context_id":    req.ContextID,
				"picked_id":     pickedID,
				"expected":      string(relType.ParentKind),
				"actual":        string(pickedKind),
			}); err != nil {
				return err
			}
			continue
		}

		if idx := indexOfParent(existing, pickedID); idx >= 0 {
			mapped := existing[idx]
			mapped.Metadata.ChildSortOrder = order
			mapped.Relation.Comment = entities.EncodeRelationMetadata(mapped.Metadata)
			if err := s.store.SaveRelation(ctx, &mapped.Relation); err != nil {
				return oops.Code("RELATION_RECONCILE_FAILED").
					With("relation_id", mapped.Relation.ID).
					Wrapf(err, "updating relation")
			}
			result.Updated = append(result.Updated, mapped.Relation)
			if err := s.logAudit(ctx, entities.AuditRelationUpdated, mapped.Relation.ID, map[string]any{
				"child_sort_order": order,
			}); err != nil {
				return err
			}
		} else {
			meta := entities.NewRelationMetadata(prop)
			if fi := indexOfChild(existing, pickedID); fi >= 0 {
				flipped := existing[fi]
				// The pair was last written from the other side; its order there moves
				// into this relation's parent slot.
				meta.ParentSortOrder = flipped.Metadata.ChildSortOrder
				if err := s.deleteRelation(ctx, flipped.Relation, result); err != nil {
					return err
				}
				existing = append(existing[:fi], existing[fi+1:]...)
			}
			meta.ChildSortOrder = order

			rel := entities.Relation{
				ParentID:       pickedID,
				ChildID:        req.ContextID,
				RelationTypeID: relType.ID,
				Comment:        entities.EncodeRelationMetadata(meta),
			}
			if err := s.store.SaveRelation(ctx, &rel); err != nil {
				return oops.Code("RELATION_RECONCILE_FAILED").
					With("parent_id", pickedID).
					Wrapf(err, "creating relation")
			}
			result.Created = append(result.Created, rel)
			if err := s.logAudit(ctx, entities.AuditRelationCreated, rel.ID, map[string]any{
				"parent_id":         rel.ParentID,
				"child_id":          rel.ChildID,
				"parent_sort_order": meta.ParentSortOrder,
				"child_sort_order":  meta.ChildSortOrder,
			}); err != nil {
				return err
			}
		}

		existing = removeExact(existing, req.ContextID, pickedID, relType.ID)
	}

	for i := range existing {
		if err := s.deleteRelation(ctx, existing[i].Relation, result); err != nil {
			return err
		}
	}
	return nil
}

func (s *RelationSynchronizer) deleteRelation(ctx context.Context, rel entities.Relation, result *entities.ReconcileResult) error {
	if err := s.store.DeleteRelation(ctx, rel.ID); err != nil {
		return oops.Code("RELATION_RECONCILE_FAILED").
			With("relation_id", rel.ID).
			Wrapf(err, "deleting relation")
	}
	result.Deleted = append(result.Deleted, rel)
	return s.logAudit(ctx, entities.AuditRelationDeleted, rel.ID, map[string]any{
		"parent_id": rel.ParentID,
		"child_id":  rel.ChildID,
	})
}

func (s *RelationSynchronizer) logAudit(ctx context.Context, action string, relationID int, details map[string]any) error {
	if s.audit == nil {
		return nil
	}
	if err := s.audit.LogAction(ctx, action, relationID, details); err != nil {
		return oops.Code("RELATION_RECONCILE_FAILED").
			With("action", action).
			Wrapf(err, "writing audit log")
	}
	return nil
}

func indexOfParent(list []MappedRelation, id int) int {
	for i := range list {
		if list[i].Relation.ParentID == id {
			return i
		}
	}
	return -1
}

func indexOfChild(list []MappedRelation, id int) int {
	for i := range list {
		if list[i].Relation.ChildID == id {
			return i
		}
	}
	return -1
}

// removeExact drops every entry linking parentID to childID with the given type.
func removeExact(list []MappedRelation, childID, parentID, relationTypeID int) []MappedRelation {
	kept := list[:0]
	for _, m := range list {
		if m.Relation.ChildID == childID && m.Relation.ParentID == parentID && m.Relation.RelationTypeID == relationTypeID {
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

func dedupeIDs(ids []int) []int {
	seen := make(map[int]bool, len(ids))
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
