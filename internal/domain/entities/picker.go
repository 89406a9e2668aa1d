package entities

import "github.com/google/uuid"

// Picker is the snapshot of one picker property taken while its entity is being saved.
// It lives only between the saving and saved events of a single save batch.
type Picker struct {
	EntityKey         uuid.UUID
	EntityID          int
	ParentID          int
	PropertyAlias     string
	DataTypeID        int
	EditorAlias       string
	SavedValue        *string
	RelationTypeAlias string
	SaveFormat        SaveFormat
	PickedKeys        []string
}

// IsRelationsOnly reports whether the picker stores its selection only as relations.
func (p *Picker) IsRelationsOnly() bool {
	return p.SaveFormat == SaveFormatRelationsOnly
}

// UsesRelationMapping reports whether the picker mirrors its selection into relations.
func (p *Picker) UsesRelationMapping() bool {
	return p.RelationTypeAlias != ""
}
