package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/services"
)

// SchemaStore persists content types, data types and property types.
type SchemaStore interface {
	SaveContentType(ctx context.Context, ct *entities.ContentType) error
	FindContentType(ctx context.Context, alias string) (*entities.ContentType, error)
	ListContentTypes(ctx context.Context) ([]entities.ContentType, error)
	SaveDataType(ctx context.Context, dt *entities.DataType) error
	FindDataType(ctx context.Context, id int) (*entities.DataType, error)
	FindDataTypeByName(ctx context.Context, name string) (*entities.DataType, error)
	ListDataTypes(ctx context.Context) ([]entities.DataType, error)
	SavePropertyType(ctx context.Context, prop *entities.PropertyDescriptor) error
	ListPropertyTypes(ctx context.Context, contentType string) ([]entities.PropertyDescriptor, error)
}

// SchemaHandler manages the host schema the pickers live in.
type SchemaHandler struct {
	store   SchemaStore
	types   *services.RelationTypeService
	pickers entities.PickerEditorSet
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(store SchemaStore, types *services.RelationTypeService, pickers entities.PickerEditorSet) *SchemaHandler {
	return &SchemaHandler{
		store:   store,
		types:   types,
		pickers: pickers,
	}
}

// DataTypeInput describes a data type to create.
type DataTypeInput struct {
	Name              string
	EditorAlias       string
	RelationTypeAlias string
	SaveFormat        string
}

// PropertyInfo is a property type with its data type configuration.
type PropertyInfo struct {
	Property entities.PropertyDescriptor `json:"property"`
	DataType *entities.DataType          `json:"data_type,omitempty"`
	Picker   bool                        `json:"picker"`
}

// HandleAddContentType creates or updates a content type.
func (h *SchemaHandler) HandleAddContentType(ctx context.Context, alias, kind, name string) (*entities.ContentType, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, errors.New("content type alias is required")
	}
	k, ok := entities.ParseKind(kind)
	if !ok {
		return nil, fmt.Errorf("invalid kind %q (valid: content, media, member)", kind)
	}
	if name == "" {
		name = alias
	}

	ct := &entities.ContentType{Alias: alias, Kind: k, Name: name}
	if err := h.store.SaveContentType(ctx, ct); err != nil {
		return nil, fmt.Errorf("saving content type: %w", err)
	}
	return ct, nil
}

// HandleListContentTypes returns all content types.
func (h *SchemaHandler) HandleListContentTypes(ctx context.Context) ([]entities.ContentType, error) {
	return h.store.ListContentTypes(ctx)
}

// HandleAddDataType creates a data type. A relation type alias, when given, must exist.
func (h *SchemaHandler) HandleAddDataType(ctx context.Context, in DataTypeInput) (*entities.DataType, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, errors.New("data type name is required")
	}
	if strings.TrimSpace(in.EditorAlias) == "" {
		return nil, errors.New("editor alias is required")
	}

	format := entities.SaveFormat(in.SaveFormat)
	if format == "" {
		format = entities.SaveFormatCSV
	}
	if !format.IsValid() {
		return nil, fmt.Errorf("invalid save format %q (valid: csv, json, xml, relationsOnly)", in.SaveFormat)
	}

	if in.RelationTypeAlias != "" {
		if !h.types.IsValid(ctx, in.RelationTypeAlias) {
			known, err := h.types.Aliases(ctx)
			if err != nil {
				return nil, fmt.Errorf("listing relation types: %w", err)
			}
			return nil, fmt.Errorf("relation type '%s' not found (known: %s)", in.RelationTypeAlias, strings.Join(known, ", "))
		}
	} else if format == entities.SaveFormatRelationsOnly {
		return nil, errors.New("relationsOnly save format requires a relation type")
	}

	existing, err := h.store.FindDataTypeByName(ctx, in.Name)
	if err != nil {
		return nil, fmt.Errorf("checking data type: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("data type '%s' already exists", in.Name)
	}

	dt := &entities.DataType{
		Name:              in.Name,
		EditorAlias:       in.EditorAlias,
		RelationTypeAlias: in.RelationTypeAlias,
		SaveFormat:        format,
	}
	if err := h.store.SaveDataType(ctx, dt); err != nil {
		return nil, fmt.Errorf("saving data type: %w", err)
	}
	return dt, nil
}

// HandleListDataTypes returns all data types.
func (h *SchemaHandler) HandleListDataTypes(ctx context.Context) ([]entities.DataType, error) {
	return h.store.ListDataTypes(ctx)
}

// HandleAddProperty adds a property using the named data type to a content type.
func (h *SchemaHandler) HandleAddProperty(ctx context.Context, contentType, alias, dataTypeName string) (*entities.PropertyDescriptor, error) {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		return nil, errors.New("property alias is required")
	}
	if !entities.EncodableAlias(alias) {
		return nil, fmt.Errorf("property alias %q contains characters that cannot be stored in relation metadata", alias)
	}

	ct, err := h.store.FindContentType(ctx, contentType)
	if err != nil {
		return nil, fmt.Errorf("finding content type: %w", err)
	}
	if ct == nil {
		return nil, fmt.Errorf("content type '%s' not found", contentType)
	}

	dt, err := h.store.FindDataTypeByName(ctx, dataTypeName)
	if err != nil {
		return nil, fmt.Errorf("finding data type: %w", err)
	}
	if dt == nil {
		return nil, fmt.Errorf("data type '%s' not found", dataTypeName)
	}

	prop := &entities.PropertyDescriptor{
		Kind:        ct.Kind,
		ContentType: ct.Alias,
		Alias:       alias,
		DataTypeID:  dt.ID,
		EditorAlias: dt.EditorAlias,
	}
	if err := h.store.SavePropertyType(ctx, prop); err != nil {
		return nil, fmt.Errorf("saving property type: %w", err)
	}
	return prop, nil
}

// HandleListProperties returns the properties of a content type with their data types.
func (h *SchemaHandler) HandleListProperties(ctx context.Context, contentType string) ([]PropertyInfo, error) {
	props, err := h.store.ListPropertyTypes(ctx, contentType)
	if err != nil {
		return nil, fmt.Errorf("listing property types: %w", err)
	}

	result := make([]PropertyInfo, 0, len(props))
	for i := range props {
		dt, err := h.store.FindDataType(ctx, props[i].DataTypeID)
		if err != nil {
			return nil, fmt.Errorf("finding data type: %w", err)
		}
		result = append(result, PropertyInfo{
			Property: props[i],
			DataType: dt,
			Picker:   h.pickers.Contains(props[i].EditorAlias),
		})
	}
	return result, nil
}
