package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
)

// Host is an in-memory host implementing ports.KindResolver, ports.PropertyResolver,
// ports.EntityKeyResolver, ports.DataTypeSource, ports.EntityAccessor and
// ports.KeyDecoder. Property types are registered per content type.
type Host struct {
	mu         sync.Mutex
	kinds      map[int]entities.EntityKind
	types      map[int]string
	keys       map[uuid.UUID]int
	properties map[string][]entities.PropertyDescriptor
	dataTypes  map[int]*entities.DataType
	pickers    entities.PickerEditorSet

	// Err is returned by every resolver call when set.
	Err error
	// DecodeErr is returned by DecodeKeys when set.
	DecodeErr error
}

// NewHost creates a new mock Host recognising the default picker editors.
func NewHost() *Host {
	return &Host{
		kinds:      make(map[int]entities.EntityKind),
		types:      make(map[int]string),
		keys:       make(map[uuid.UUID]int),
		properties: make(map[string][]entities.PropertyDescriptor),
		dataTypes:  make(map[int]*entities.DataType),
		pickers:    entities.NewPickerEditorSet(nil),
	}
}

// AddEntity registers an entity id with its kind and content type.
func (h *Host) AddEntity(id int, kind entities.EntityKind, contentType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.kinds[id] = kind
	h.types[id] = contentType
}

// AddKey maps an instance key to an entity id.
func (h *Host) AddKey(key uuid.UUID, id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.keys[key] = id
}

// AddProperty registers a property type on a content type.
func (h *Host) AddProperty(contentType string, prop entities.PropertyDescriptor) {
	h.mu.Lock()
	defer h.mu.Unlock()
	prop.ContentType = contentType
	h.properties[contentType] = append(h.properties[contentType], prop)
}

// AddDataType registers a data type.
func (h *Host) AddDataType(dt entities.DataType) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dataTypes[dt.ID] = &dt
}

// KindOf returns the kind of a registered entity.
func (h *Host) KindOf(_ context.Context, id int) (entities.EntityKind, bool, error) {
	if h.Err != nil {
		return "", false, h.Err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	kind, ok := h.kinds[id]
	return kind, ok, nil
}

// ResolveProperty returns the descriptor of alias on the entity's content type.
func (h *Host) ResolveProperty(_ context.Context, entityID int, alias string) (*entities.PropertyDescriptor, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	ct, ok := h.types[entityID]
	if !ok {
		return nil, nil
	}
	for _, p := range h.properties[ct] {
		if p.Alias == alias {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

// IDForKey returns the id mapped to key.
func (h *Host) IDForKey(_ context.Context, key uuid.UUID) (int, bool, error) {
	if h.Err != nil {
		return 0, false, h.Err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.keys[key]
	return id, ok, nil
}

// FindDataType finds a data type by ID.
func (h *Host) FindDataType(_ context.Context, id int) (*entities.DataType, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	dt, ok := h.dataTypes[id]
	if !ok {
		return nil, nil
	}
	cp := *dt
	return &cp, nil
}

// PropertyTypes returns the property types of the entity's content type.
func (h *Host) PropertyTypes(_ context.Context, entity *entities.Entity) ([]entities.PropertyDescriptor, error) {
	if h.Err != nil {
		return nil, h.Err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]entities.PropertyDescriptor(nil), h.properties[entity.ContentType]...), nil
}

// GetPropertyValue returns the entity's in-memory value.
func (h *Host) GetPropertyValue(entity *entities.Entity, alias string) *string {
	return entity.Value(alias)
}

// SetPropertyValue replaces the entity's in-memory value.
func (h *Host) SetPropertyValue(entity *entities.Entity, alias string, value *string) {
	entity.SetValue(alias, value)
}

// IsPickerEditor reports whether editorAlias is a picker.
func (h *Host) IsPickerEditor(editorAlias string) bool {
	return h.pickers.Contains(editorAlias)
}

// DecodeKeys splits a comma-delimited key list.
func (h *Host) DecodeKeys(raw string) ([]string, error) {
	if h.DecodeErr != nil {
		return nil, h.DecodeErr
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// SaveSource is a ports.SaveLifecycleSource that tests fire by hand.
type SaveSource struct {
	kind   entities.EntityKind
	saving []ports.SaveHandler
	saved  []ports.SaveHandler
	abort  []ports.SaveHandler
}

// NewSaveSource creates a new SaveSource for kind.
func NewSaveSource(kind entities.EntityKind) *SaveSource {
	return &SaveSource{kind: kind}
}

// Kind returns the entity kind of the source.
func (s *SaveSource) Kind() entities.EntityKind {
	return s.kind
}

// OnSaving registers a pre-commit handler.
func (s *SaveSource) OnSaving(h ports.SaveHandler) {
	s.saving = append(s.saving, h)
}

// OnSaved registers a post-commit handler.
func (s *SaveSource) OnSaved(h ports.SaveHandler) {
	s.saved = append(s.saved, h)
}

// OnSaveAborted registers a handler for batches that failed to persist.
func (s *SaveSource) OnSaveAborted(h ports.SaveHandler) {
	s.abort = append(s.abort, h)
}

// FireSaving runs every pre-commit handler and returns the first error.
func (s *SaveSource) FireSaving(ctx context.Context, event ports.SaveEvent) error {
	for _, h := range s.saving {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// FireSaved runs every post-commit handler and returns the first error.
func (s *SaveSource) FireSaved(ctx context.Context, event ports.SaveEvent) error {
	for _, h := range s.saved {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// FireAborted runs every abort handler and returns the first error.
func (s *SaveSource) FireAborted(ctx context.Context, event ports.SaveEvent) error {
	for _, h := range s.abort {
		if err := h(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
