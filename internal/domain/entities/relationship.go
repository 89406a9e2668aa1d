package entities

import "time"

// RelationType defines a kind of link between two entities.
// ParentKind and ChildKind restrict which entities may sit on each side.
type RelationType struct {
	ID            int        `json:"id"`
	Alias         string     `json:"alias"`
	Name          string     `json:"name"`
	Bidirectional bool       `json:"bidirectional"`
	ParentKind    EntityKind `json:"parent_kind"`
	ChildKind     EntityKind `json:"child_kind"`
}

// Relation is a single parent/child link. Comment carries the encoded RelationMetadata
// for relations written by a picker.
type Relation struct {
	ID             int       `json:"id"`
	ParentID       int       `json:"parent_id"`
	ChildID        int       `json:"child_id"`
	RelationTypeID int       `json:"relation_type_id"`
	Comment        string    `json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}

// OtherEnd returns the id on the opposite side of id.
func (r *Relation) OtherEnd(id int) int {
	if r.ParentID != id {
		return r.ParentID
	}
	return r.ChildID
}

// Involves reports whether id is on either side of the relation.
func (r *Relation) Involves(id int) bool {
	return r.ParentID == id || r.ChildID == id
}
