package entities

import (
	"strings"

	"github.com/google/uuid"
)

// EntityKind identifies which host service owns an entity.
type EntityKind string

const (
	KindContent EntityKind = "content"
	KindMedia   EntityKind = "media"
	KindMember  EntityKind = "member"
)

// AllKinds lists every kind that raises save events.
var AllKinds = []EntityKind{KindContent, KindMedia, KindMember}

// IsValid reports whether k is one of the known kinds.
func (k EntityKind) IsValid() bool {
	switch k {
	case KindContent, KindMedia, KindMember:
		return true
	default:
		return false
	}
}

// ParseKind converts user input into an EntityKind.
func ParseKind(s string) (EntityKind, bool) {
	k := EntityKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.IsValid()
}

// Entity is a content, media or member item as seen by the relation mapping engine.
// ID is zero until the host has persisted a new entity; Key is assigned before the
// first save event and never changes.
type Entity struct {
	ID          int                `json:"id"`
	Key         uuid.UUID          `json:"key"`
	Kind        EntityKind         `json:"kind"`
	ParentID    int                `json:"parent_id"`
	ContentType string             `json:"content_type"`
	Name        string             `json:"name"`
	Values      map[string]*string `json:"values,omitempty"`
	Dirty       bool               `json:"-"`
}

// Value returns the raw value of a property, or nil when unset.
func (e *Entity) Value(alias string) *string {
	if e.Values == nil {
		return nil
	}
	return e.Values[alias]
}

// SetValue sets (or clears, with nil) the raw value of a property and marks the entity dirty.
func (e *Entity) SetValue(alias string, value *string) {
	if e.Values == nil {
		e.Values = make(map[string]*string)
	}
	e.Values[alias] = value
	e.Dirty = true
}

// IsNew reports whether the entity has not been persisted yet.
func (e *Entity) IsNew() bool {
	return e.ID == 0
}
