package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ersonp/relmap/internal/domain/entities"
)

// KindResolver tells which kind of entity an id belongs to.
type KindResolver interface {
	// KindOf returns the kind of the entity, or ok == false when the id is unknown.
	KindOf(ctx context.Context, id int) (kind entities.EntityKind, ok bool, err error)
}

// PropertyResolver resolves the property descriptor a picker on an entity writes with.
type PropertyResolver interface {
	// ResolveProperty returns the descriptor of alias on the entity's content type,
	// or nil when the entity or property does not exist.
	ResolveProperty(ctx context.Context, entityID int, alias string) (*entities.PropertyDescriptor, error)
}

// EntityKeyResolver maps picked keys that are not numeric ids to entity ids.
type EntityKeyResolver interface {
	// IDForKey returns the id of the entity with the given instance key, or ok == false.
	IDForKey(ctx context.Context, key uuid.UUID) (id int, ok bool, err error)
}

// DataTypeSource returns picker configuration.
type DataTypeSource interface {
	// FindDataType finds a data type by ID, or nil when it does not exist.
	FindDataType(ctx context.Context, id int) (*entities.DataType, error)
}

// EntityAccessor reads and writes an entity's property values on behalf of the engine.
type EntityAccessor interface {
	// PropertyTypes returns the descriptors of every property on the entity's content type.
	PropertyTypes(ctx context.Context, entity *entities.Entity) ([]entities.PropertyDescriptor, error)

	// GetPropertyValue returns the in-memory raw value of a property.
	GetPropertyValue(entity *entities.Entity, alias string) *string

	// SetPropertyValue replaces the in-memory raw value of a property.
	SetPropertyValue(entity *entities.Entity, alias string, value *string)

	// IsPickerEditor reports whether an editor alias is a picker.
	IsPickerEditor(editorAlias string) bool
}

// KeyDecoder turns a picker's raw persisted value into its ordered list of keys.
type KeyDecoder interface {
	DecodeKeys(raw string) ([]string, error)
}
