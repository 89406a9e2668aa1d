package entities

import "fmt"

// MismatchSide names which end of a relation failed the kind check.
type MismatchSide string

const (
	MismatchParent MismatchSide = "parent"
	MismatchChild  MismatchSide = "child"
)

// KindMismatch records an id whose entity kind does not fit the relation type.
// A parent mismatch skips a single picked id; a child mismatch aborts the reconcile.
type KindMismatch struct {
	ID       int          `json:"id"`
	Side     MismatchSide `json:"side"`
	Expected EntityKind   `json:"expected"`
	Actual   EntityKind   `json:"actual"`
}

// Error implements the error interface.
func (m *KindMismatch) Error() string {
	return fmt.Sprintf("%s id %d is %q, relation type expects %q", m.Side, m.ID, m.Actual, m.Expected)
}

// ReconcileResult summarises what a reconcile did to the relation store.
type ReconcileResult struct {
	RelationTypeAlias string         `json:"relation_type_alias"`
	ContextID         int            `json:"context_id"`
	PropertyAlias     string         `json:"property_alias"`
	Created           []Relation     `json:"created,omitempty"`
	Updated           []Relation     `json:"updated,omitempty"`
	Deleted           []Relation     `json:"deleted,omitempty"`
	Skipped           []KindMismatch `json:"skipped,omitempty"`
}

// Changed reports whether any relation was written or removed.
func (r *ReconcileResult) Changed() bool {
	return len(r.Created)+len(r.Updated)+len(r.Deleted) > 0
}
