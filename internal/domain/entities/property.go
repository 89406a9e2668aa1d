package entities

// PropertyDescriptor describes one property on a content type.
// ID is the property-type instance id; DataTypeID identifies the editor configuration
// that the property shares with every other property using the same data type.
type PropertyDescriptor struct {
	ID          int        `json:"id"`
	Kind        EntityKind `json:"kind"`
	ContentType string     `json:"content_type"`
	Alias       string     `json:"alias"`
	DataTypeID  int        `json:"data_type_id"`
	EditorAlias string     `json:"editor_alias"`
}

// SaveFormat controls how a picker persists its selection.
type SaveFormat string

const (
	SaveFormatCSV           SaveFormat = "csv"
	SaveFormatJSON          SaveFormat = "json"
	SaveFormatXML           SaveFormat = "xml"
	SaveFormatRelationsOnly SaveFormat = "relationsOnly"
)

// IsValid reports whether f is a known save format.
func (f SaveFormat) IsValid() bool {
	switch f {
	case SaveFormatCSV, SaveFormatJSON, SaveFormatXML, SaveFormatRelationsOnly:
		return true
	default:
		return false
	}
}

// DataType is an editor configuration shared by properties.
// RelationTypeAlias is empty when the picker does not mirror its selection into relations.
type DataType struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	EditorAlias       string     `json:"editor_alias"`
	RelationTypeAlias string     `json:"relation_type_alias,omitempty"`
	SaveFormat        SaveFormat `json:"save_format"`
}

// UsesRelationMapping reports whether the data type mirrors picks into a relation type.
func (d *DataType) UsesRelationMapping() bool {
	return d.RelationTypeAlias != ""
}

// IsRelationsOnly reports whether picks are stored only as relations.
func (d *DataType) IsRelationsOnly() bool {
	return d.SaveFormat == SaveFormatRelationsOnly
}
