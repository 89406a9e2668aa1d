package handlers

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/ersonp/relmap/internal/application/host"
	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
	"github.com/ersonp/relmap/internal/domain/services"
	"github.com/ersonp/relmap/internal/infrastructure/saveformat"
)

// EntityStore reads entities and their schema.
type EntityStore interface {
	FindEntity(ctx context.Context, id int) (*entities.Entity, error)
	FindEntityByKey(ctx context.Context, key uuid.UUID) (*entities.Entity, error)
	ListEntities(ctx context.Context, kind entities.EntityKind) ([]*entities.Entity, error)
	FindContentType(ctx context.Context, alias string) (*entities.ContentType, error)
	ListPropertyTypes(ctx context.Context, contentType string) ([]entities.PropertyDescriptor, error)
}

// EntityHandler handles entity operations at the application layer.
type EntityHandler struct {
	host      *host.Host
	store     EntityStore
	dataTypes ports.DataTypeSource
	reader    *services.RelationReader
	pickers   entities.PickerEditorSet
}

// NewEntityHandler creates a new EntityHandler.
func NewEntityHandler(
	h *host.Host,
	store EntityStore,
	dataTypes ports.DataTypeSource,
	reader *services.RelationReader,
	pickers entities.PickerEditorSet,
) *EntityHandler {
	return &EntityHandler{
		host:      h,
		store:     store,
		dataTypes: dataTypes,
		reader:    reader,
		pickers:   pickers,
	}
}

// EntityInput describes an entity to create (ID == 0) or update.
type EntityInput struct {
	ID          int
	Kind        string
	ContentType string
	Name        string
	ParentID    int
	// Values sets plain property values.
	Values map[string]string
	// Picks sets picker properties from ordered keys, encoded in the data type's format.
	Picks map[string][]string
	// Clear sets properties to null.
	Clear []string
}

// SaveOutcome contains the result of saving an entity.
type SaveOutcome struct {
	Entity  *entities.Entity `json:"entity"`
	BatchID uuid.UUID        `json:"batch_id"`
	// Warnings are errors raised by save handlers. The entity itself was saved.
	Warnings []string `json:"warnings,omitempty"`
}

// PropertyView shows one property of an entity.
type PropertyView struct {
	Alias        string              `json:"alias"`
	EditorAlias  string              `json:"editor_alias"`
	Picker       bool                `json:"picker"`
	RelationType string              `json:"relation_type,omitempty"`
	SaveFormat   entities.SaveFormat `json:"save_format,omitempty"`
	Value        *string             `json:"value"`
	// PickedKeys are the keys decoded from Value.
	PickedKeys []string `json:"picked_keys,omitempty"`
	// RelatedIDs are read back from the relation store for relation-mapped pickers.
	RelatedIDs []int `json:"related_ids,omitempty"`
}

// EntityView is an entity with its properties resolved.
type EntityView struct {
	Entity     *entities.Entity `json:"entity"`
	Properties []PropertyView   `json:"properties"`
}

// HandleSave creates or updates an entity through the host save service, which raises
// the save events that keep relations in line with picker values.
func (h *EntityHandler) HandleSave(ctx context.Context, in EntityInput) (*SaveOutcome, error) {
	entity, err := h.prepare(ctx, in)
	if err != nil {
		return nil, err
	}

	props, err := h.store.ListPropertyTypes(ctx, entity.ContentType)
	if err != nil {
		return nil, fmt.Errorf("listing property types: %w", err)
	}
	byAlias := make(map[string]entities.PropertyDescriptor, len(props))
	for _, p := range props {
		byAlias[p.Alias] = p
	}

	if !entity.IsNew() {
		if err := h.reloadRelationsOnly(ctx, entity, props, in); err != nil {
			return nil, err
		}
	}

	for alias, value := range in.Values {
		if _, ok := byAlias[alias]; !ok {
			return nil, fmt.Errorf("property '%s' not found on %s", alias, entity.ContentType)
		}
		entity.SetValue(alias, &value)
	}
	for alias, keys := range in.Picks {
		raw, err := h.encodePicks(ctx, byAlias, alias, keys)
		if err != nil {
			return nil, err
		}
		entity.SetValue(alias, &raw)
	}
	for _, alias := range in.Clear {
		if _, ok := byAlias[alias]; !ok {
			return nil, fmt.Errorf("property '%s' not found on %s", alias, entity.ContentType)
		}
		entity.SetValue(alias, nil)
	}

	svc, err := h.host.Service(entity.Kind)
	if err != nil {
		return nil, err
	}
	result, err := svc.Save(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("saving entity: %w", err)
	}

	outcome := &SaveOutcome{Entity: entity, BatchID: result.BatchID}
	for _, e := range multierr.Errors(result.HandlerErr) {
		outcome.Warnings = append(outcome.Warnings, e.Error())
	}
	return outcome, nil
}

func (h *EntityHandler) prepare(ctx context.Context, in EntityInput) (*entities.Entity, error) {
	if in.ID != 0 {
		entity, err := h.store.FindEntity(ctx, in.ID)
		if err != nil {
			return nil, fmt.Errorf("finding entity: %w", err)
		}
		if entity == nil {
			return nil, fmt.Errorf("entity %d not found", in.ID)
		}
		if in.Name != "" {
			entity.Name = in.Name
			entity.Dirty = true
		}
		if in.ParentID != 0 {
			entity.ParentID = in.ParentID
			entity.Dirty = true
		}
		return entity, nil
	}

	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("entity name is required")
	}
	ct, err := h.store.FindContentType(ctx, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("finding content type: %w", err)
	}
	if ct == nil {
		return nil, fmt.Errorf("content type '%s' not found", in.ContentType)
	}
	if in.Kind != "" {
		kind, ok := entities.ParseKind(in.Kind)
		if !ok {
			return nil, fmt.Errorf("invalid kind %q (valid: content, media, member)", in.Kind)
		}
		if kind != ct.Kind {
			return nil, fmt.Errorf("content type '%s' is %s, not %s", ct.Alias, ct.Kind, kind)
		}
	}

	return &entities.Entity{
		Kind:        ct.Kind,
		ContentType: ct.Alias,
		Name:        in.Name,
		ParentID:    in.ParentID,
		Dirty:       true,
	}, nil
}

// reloadRelationsOnly fills the in-memory value of every relations-only picker the input
// leaves alone with the selection read back from the relation store. Those values are
// never persisted, so without this an unrelated edit would stage an empty selection.
// The entity's dirty flag is left as it is.
func (h *EntityHandler) reloadRelationsOnly(
	ctx context.Context,
	entity *entities.Entity,
	props []entities.PropertyDescriptor,
	in EntityInput,
) error {
	for _, prop := range props {
		if _, picked := in.Picks[prop.Alias]; picked || slices.Contains(in.Clear, prop.Alias) {
			continue
		}
		if !h.pickers.Contains(prop.EditorAlias) {
			continue
		}
		dt, err := h.dataTypes.FindDataType(ctx, prop.DataTypeID)
		if err != nil {
			return fmt.Errorf("finding data type: %w", err)
		}
		if dt == nil || !dt.IsRelationsOnly() || !dt.UsesRelationMapping() {
			continue
		}

		ids, err := h.reader.RelatedIDs(ctx, dt.RelationTypeAlias, entity.ID, prop.Alias, true)
		if err != nil {
			return fmt.Errorf("reading related ids for %s: %w", prop.Alias, err)
		}
		keys := make([]string, len(ids))
		for i, id := range ids {
			keys[i] = strconv.Itoa(id)
		}
		raw, err := saveformat.ForFormat(dt.SaveFormat).Encode(saveformat.Keys(keys))
		if err != nil {
			return fmt.Errorf("encoding %s: %w", prop.Alias, err)
		}
		if entity.Values == nil {
			entity.Values = make(map[string]*string)
		}
		entity.Values[prop.Alias] = &raw
	}
	return nil
}

func (h *EntityHandler) encodePicks(
	ctx context.Context,
	byAlias map[string]entities.PropertyDescriptor,
	alias string,
	keys []string,
) (string, error) {
	prop, ok := byAlias[alias]
	if !ok {
		return "", fmt.Errorf("property '%s' not found", alias)
	}
	if !h.pickers.Contains(prop.EditorAlias) {
		return "", fmt.Errorf("property '%s' is not a picker (editor %s)", alias, prop.EditorAlias)
	}
	dt, err := h.dataTypes.FindDataType(ctx, prop.DataTypeID)
	if err != nil {
		return "", fmt.Errorf("finding data type: %w", err)
	}
	if dt == nil {
		return "", fmt.Errorf("data type %d not found", prop.DataTypeID)
	}
	codec := saveformat.ForFormat(dt.SaveFormat)
	if codec == nil {
		return "", fmt.Errorf("unsupported save format %q", dt.SaveFormat)
	}
	raw, err := codec.Encode(saveformat.Keys(keys))
	if err != nil {
		return "", fmt.Errorf("encoding %s: %w", alias, err)
	}
	return raw, nil
}

// HandleShow returns an entity with every property, including the picked ids that
// relations-only pickers keep only in the relation store. It returns nil if not found.
func (h *EntityHandler) HandleShow(ctx context.Context, id int) (*EntityView, error) {
	entity, err := h.store.FindEntity(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("finding entity: %w", err)
	}
	return h.view(ctx, entity)
}

// HandleShowByKey is HandleShow for an entity's instance key.
func (h *EntityHandler) HandleShowByKey(ctx context.Context, key uuid.UUID) (*EntityView, error) {
	entity, err := h.store.FindEntityByKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("finding entity: %w", err)
	}
	return h.view(ctx, entity)
}

func (h *EntityHandler) view(ctx context.Context, entity *entities.Entity) (*EntityView, error) {
	if entity == nil {
		return nil, nil
	}

	props, err := h.store.ListPropertyTypes(ctx, entity.ContentType)
	if err != nil {
		return nil, fmt.Errorf("listing property types: %w", err)
	}

	view := &EntityView{Entity: entity, Properties: make([]PropertyView, 0, len(props))}
	for _, prop := range props {
		pv := PropertyView{
			Alias:       prop.Alias,
			EditorAlias: prop.EditorAlias,
			Picker:      h.pickers.Contains(prop.EditorAlias),
			Value:       entity.Value(prop.Alias),
		}
		if pv.Picker {
			if err := h.resolvePicker(ctx, entity, prop, &pv); err != nil {
				return nil, err
			}
		}
		view.Properties = append(view.Properties, pv)
	}
	return view, nil
}

func (h *EntityHandler) resolvePicker(ctx context.Context, entity *entities.Entity, prop entities.PropertyDescriptor, pv *PropertyView) error {
	dt, err := h.dataTypes.FindDataType(ctx, prop.DataTypeID)
	if err != nil {
		return fmt.Errorf("finding data type: %w", err)
	}
	if dt == nil {
		return nil
	}
	pv.SaveFormat = dt.SaveFormat
	pv.RelationType = dt.RelationTypeAlias

	if pv.Value != nil {
		// Undecodable values are shown raw only.
		if keys, err := (saveformat.Decoder{}).DecodeKeys(*pv.Value); err == nil {
			pv.PickedKeys = keys
		}
	}

	if dt.UsesRelationMapping() {
		ids, err := h.reader.RelatedIDs(ctx, dt.RelationTypeAlias, entity.ID, prop.Alias, dt.IsRelationsOnly())
		if err != nil {
			return fmt.Errorf("reading related ids for %s: %w", prop.Alias, err)
		}
		pv.RelatedIDs = ids
	}
	return nil
}

// HandleList returns the entities of a kind; an empty kind lists all.
func (h *EntityHandler) HandleList(ctx context.Context, kind string) ([]*entities.Entity, error) {
	var k entities.EntityKind
	if kind != "" {
		var ok bool
		if k, ok = entities.ParseKind(kind); !ok {
			return nil, fmt.Errorf("invalid kind %q (valid: content, media, member)", kind)
		}
	}
	return h.store.ListEntities(ctx, k)
}
