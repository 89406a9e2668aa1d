package services

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/oops"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
	"github.com/ersonp/relmap/pkg/errutil"
)

// NullValuePolicy decides what an absent raw value on a relations-only picker means.
type NullValuePolicy string

const (
	// NullValueClear treats an absent value as an empty selection and deletes the
	// picker's relations.
	NullValueClear NullValuePolicy = "clear"
	// NullValueIgnore treats an absent value as "not edited" and leaves relations alone.
	NullValueIgnore NullValuePolicy = "ignore"
)

// IsValid reports whether the policy is known.
func (p NullValuePolicy) IsValid() bool {
	return p == NullValueClear || p == NullValueIgnore
}

// CoordinatorOptions tunes a SaveCoordinator.
type CoordinatorOptions struct {
	NullValue NullValuePolicy
	// Workers bounds how many entities of one batch reconcile at once. Values below 2
	// process entities one after another.
	Workers int
}

// SaveCoordinator keeps relations in line with picker values across the two save events
// of a batch. Pickers are snapshotted while saving and reconciled once saved.
type SaveCoordinator struct {
	synchronizer *RelationSynchronizer
	dataTypes    ports.DataTypeSource
	accessor     ports.EntityAccessor
	decoder      ports.KeyDecoder
	keys         ports.EntityKeyResolver
	logger       *zap.SugaredLogger
	nullValue    NullValuePolicy
	workers      int

	mu     sync.Mutex
	staged map[uuid.UUID]map[uuid.UUID][]entities.Picker
}

// NewSaveCoordinator creates a new SaveCoordinator.
func NewSaveCoordinator(
	synchronizer *RelationSynchronizer,
	dataTypes ports.DataTypeSource,
	accessor ports.EntityAccessor,
	decoder ports.KeyDecoder,
	keys ports.EntityKeyResolver,
	logger *zap.SugaredLogger,
	opts CoordinatorOptions,
) *SaveCoordinator {
	if !opts.NullValue.IsValid() {
		opts.NullValue = NullValueClear
	}
	return &SaveCoordinator{
		synchronizer: synchronizer,
		dataTypes:    dataTypes,
		accessor:     accessor,
		decoder:      decoder,
		keys:         keys,
		logger:       logger,
		nullValue:    opts.NullValue,
		workers:      opts.Workers,
		staged:       make(map[uuid.UUID]map[uuid.UUID][]entities.Picker),
	}
}

// Register subscribes the coordinator to the save events of every source.
func (c *SaveCoordinator) Register(sources ...ports.SaveLifecycleSource) {
	for _, src := range sources {
		src.OnSaving(c.Saving)
		src.OnSaved(c.Saved)
		if aborts, ok := src.(ports.SaveAbortSource); ok {
			aborts.OnSaveAborted(c.Aborted)
		}
		c.logger.Debugw("registered save lifecycle source", "kind", src.Kind())
	}
}

// Staged returns the number of batches waiting for their saved event.
func (c *SaveCoordinator) Staged() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.staged)
}

// Saving snapshots the relation-mapped pickers of every dirty entity in the batch.
// Relations-only pickers have their in-memory value cleared so it is not persisted.
// Errors for one entity do not stop the others; they are returned combined.
func (c *SaveCoordinator) Saving(ctx context.Context, event ports.SaveEvent) error {
	var errs error
	batch := make(map[uuid.UUID][]entities.Picker)

	for _, entity := range event.Entities {
		if entity == nil || !entity.Dirty {
			continue
		}
		if entity.Key == uuid.Nil {
			err := oops.Code("STAGING_KEY_MISSING").
				With("kind", event.Kind).
				With("entity_id", entity.ID).
				Errorf("entity has no instance key")
			errutil.LogError(c.logger, "skipping entity without key", err)
			errs = multierr.Append(errs, err)
			continue
		}

		pickers, err := c.snapshot(ctx, entity)
		errs = multierr.Append(errs, err)
		if len(pickers) > 0 {
			batch[entity.Key] = pickers
		}
	}

	if len(batch) > 0 {
		c.mu.Lock()
		if existing, ok := c.staged[event.BatchID]; ok {
			for key, pickers := range batch {
				existing[key] = pickers
			}
		} else {
			c.staged[event.BatchID] = batch
		}
		c.mu.Unlock()
	}

	c.logger.Debugw("pickers staged",
		"batch", event.BatchID,
		"kind", event.Kind,
		"entities", len(batch),
	)
	return errs
}

func (c *SaveCoordinator) snapshot(ctx context.Context, entity *entities.Entity) ([]entities.Picker, error) {
	props, err := c.accessor.PropertyTypes(ctx, entity)
	if err != nil {
		return nil, oops.Code("PICKER_SNAPSHOT_FAILED").
			With("entity_key", entity.Key).
			Wrapf(err, "listing property types")
	}

	var (
		pickers []entities.Picker
		errs    error
	)
	for _, prop := range props {
		if !c.accessor.IsPickerEditor(prop.EditorAlias) {
			continue
		}
		dt, err := c.dataTypes.FindDataType(ctx, prop.DataTypeID)
		if err != nil {
			errs = multierr.Append(errs, oops.Code("PICKER_SNAPSHOT_FAILED").
				With("entity_key", entity.Key).
				With("property", prop.Alias).
				Wrapf(err, "finding data type"))
			continue
		}
		if dt == nil || !dt.UsesRelationMapping() {
			continue
		}

		raw := c.accessor.GetPropertyValue(entity, prop.Alias)
		picker := entities.Picker{
			EntityKey:         entity.Key,
			EntityID:          entity.ID,
			ParentID:          entity.ParentID,
			PropertyAlias:     prop.Alias,
			DataTypeID:        prop.DataTypeID,
			EditorAlias:       prop.EditorAlias,
			SavedValue:        raw,
			RelationTypeAlias: dt.RelationTypeAlias,
			SaveFormat:        dt.SaveFormat,
			PickedKeys:        []string{},
		}

		if raw == nil {
			if picker.IsRelationsOnly() && c.nullValue == NullValueIgnore {
				continue
			}
			pickers = append(pickers, picker)
			continue
		}

		keys, err := c.decoder.DecodeKeys(*raw)
		if err != nil {
			errs = multierr.Append(errs, oops.Code("PICKER_DECODE_FAILED").
				With("entity_key", entity.Key).
				With("property", prop.Alias).
				Wrap(err))
			continue
		}
		picker.PickedKeys = keys
		if picker.IsRelationsOnly() {
			c.accessor.SetPropertyValue(entity, prop.Alias, nil)
		}
		pickers = append(pickers, picker)
	}
	return pickers, errs
}

// Saved reconciles the pickers staged for the batch by Saving. Entities with nothing
// staged are left alone. The batch's staging entry is always released, and errors for
// one entity do not stop the others.
func (c *SaveCoordinator) Saved(ctx context.Context, event ports.SaveEvent) error {
	batch := c.take(event.BatchID)
	if len(batch) == 0 {
		return nil
	}

	var (
		mu   sync.Mutex
		errs error
	)
	var g errgroup.Group
	g.SetLimit(max(c.workers, 1))

	for _, entity := range event.Entities {
		if entity == nil {
			continue
		}
		pickers, ok := batch[entity.Key]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := c.reconcileEntity(ctx, entity, pickers); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Aborted drops whatever was staged for a batch that will never be saved. Relations-only
// values cleared while saving are put back so a retry stages the same selection.
func (c *SaveCoordinator) Aborted(_ context.Context, event ports.SaveEvent) error {
	batch := c.take(event.BatchID)
	if batch == nil {
		return nil
	}
	for _, entity := range event.Entities {
		if entity == nil {
			continue
		}
		for _, picker := range batch[entity.Key] {
			if picker.IsRelationsOnly() && picker.SavedValue != nil {
				c.accessor.SetPropertyValue(entity, picker.PropertyAlias, picker.SavedValue)
			}
		}
	}
	c.logger.Debugw("discarded staged pickers", "batch", event.BatchID, "entities", len(batch))
	return nil
}

func (c *SaveCoordinator) take(batchID uuid.UUID) map[uuid.UUID][]entities.Picker {
	c.mu.Lock()
	defer c.mu.Unlock()
	batch := c.staged[batchID]
	delete(c.staged, batchID)
	return batch
}

func (c *SaveCoordinator) reconcileEntity(ctx context.Context, entity *entities.Entity, pickers []entities.Picker) error {
	if entity.ID == 0 {
		err := oops.Code("ENTITY_NOT_PERSISTED").
			With("entity_key", entity.Key).
			Errorf("saved entity has no id")
		errutil.LogError(c.logger, "cannot reconcile relations", err)
		return err
	}

	var errs error
	for i := range pickers {
		p := &pickers[i]
		ids, err := c.resolveIDs(ctx, p)
		if err != nil {
			errutil.LogError(c.logger, "resolving picked keys", err)
			errs = multierr.Append(errs, err)
			continue
		}

		_, err = c.synchronizer.Reconcile(ctx, ReconcileRequest{
			RelationTypeAlias: p.RelationTypeAlias,
			ContextID:         entity.ID,
			PropertyAlias:     p.PropertyAlias,
			RelationsOnly:     p.IsRelationsOnly(),
			PickedIDs:         ids,
		})
		if err != nil {
			errutil.LogError(c.logger, "reconciling relations", err)
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// resolveIDs turns picked keys into entity ids. Numeric keys are ids; keys that parse as
// UUIDs are looked up; anything else is skipped.
func (c *SaveCoordinator) resolveIDs(ctx context.Context, p *entities.Picker) ([]int, error) {
	ids := make([]int, 0, len(p.PickedKeys))
	for _, raw := range p.PickedKeys {
		key := strings.TrimSpace(raw)
		if id, err := strconv.Atoi(key); err == nil {
			ids = append(ids, id)
			continue
		}
		if u, err := uuid.Parse(key); err == nil {
			id, ok, err := c.keys.IDForKey(ctx, u)
			if err != nil {
				return nil, oops.Code("PICKED_KEY_LOOKUP_FAILED").
					With("property", p.PropertyAlias).
					With("key", key).
					Wrap(err)
			}
			if ok {
				ids = append(ids, id)
				continue
			}
		}
		c.logger.Warnw("skipping unresolvable picked key",
			"entity_key", p.EntityKey,
			"property", p.PropertyAlias,
			"key", key,
		)
	}
	return ids, nil
}
