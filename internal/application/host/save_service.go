// Package host is a small reference host: it persists entities and raises the saving
// and saved events the relation mapping engine listens to.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
	"github.com/ersonp/relmap/pkg/errutil"
)

// EntityStore is the persistence a SaveService writes through.
type EntityStore interface {
	SaveEntity(ctx context.Context, entity *entities.Entity) error
	ListPropertyTypes(ctx context.Context, contentType string) ([]entities.PropertyDescriptor, error)
}

// SaveResult describes one Save call.
type SaveResult struct {
	BatchID uuid.UUID
	Saved   int
	// HandlerErr combines the errors returned by saving and saved handlers. They never
	// stop the save itself.
	HandlerErr error
}

// SaveService saves entities of one kind. It implements ports.SaveLifecycleSource and
// ports.EntityAccessor.
type SaveService struct {
	kind    entities.EntityKind
	store   EntityStore
	tx      ports.Transactor
	pickers entities.PickerEditorSet
	logger  *zap.SugaredLogger

	mu     sync.RWMutex
	saving []ports.SaveHandler
	saved  []ports.SaveHandler
	abort  []ports.SaveHandler
}

// NewSaveService creates a new SaveService for kind.
func NewSaveService(
	kind entities.EntityKind,
	store EntityStore,
	tx ports.Transactor,
	pickers entities.PickerEditorSet,
	logger *zap.SugaredLogger,
) *SaveService {
	return &SaveService{
		kind:    kind,
		store:   store,
		tx:      tx,
		pickers: pickers,
		logger:  logger,
	}
}

// Kind returns the entity kind the service saves.
func (s *SaveService) Kind() entities.EntityKind {
	return s.kind
}

// OnSaving registers a handler run before entities are persisted.
func (s *SaveService) OnSaving(h ports.SaveHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = append(s.saving, h)
}

// OnSaved registers a handler run after entities are persisted.
func (s *SaveService) OnSaved(h ports.SaveHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, h)
}

// OnSaveAborted registers a handler run when persisting a batch fails.
func (s *SaveService) OnSaveAborted(h ports.SaveHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.abort = append(s.abort, h)
}

// Save persists a batch of entities between a saving and a saved event carrying the
// same batch id. New entities get an instance key before the saving event and an ID
// before the saved event. Entities are written in one transaction; a write failure
// aborts the batch, leaves new entities without an ID and raises an aborted event
// instead of a saved one, so the same entities can be saved again.
func (s *SaveService) Save(ctx context.Context, batch ...*entities.Entity) (*SaveResult, error) {
	for _, e := range batch {
		if e.Kind == "" {
			e.Kind = s.kind
		}
		if e.Kind != s.kind {
			return nil, fmt.Errorf("entity %q is %s, service saves %s", e.Name, e.Kind, s.kind)
		}
		if e.Key == uuid.Nil {
			e.Key = uuid.New()
		}
	}

	result := &SaveResult{BatchID: uuid.New()}
	event := ports.SaveEvent{BatchID: result.BatchID, Kind: s.kind, Entities: batch}

	result.HandlerErr = multierr.Append(result.HandlerErr, s.raise(ctx, s.handlers(&s.saving), event))

	var created []*entities.Entity
	for _, e := range batch {
		if e.IsNew() {
			created = append(created, e)
		}
	}

	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		for _, e := range batch {
			if err := s.store.SaveEntity(ctx, e); err != nil {
				return fmt.Errorf("saving entity %q: %w", e.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		// The rows were rolled back; ids handed out inside the transaction are gone too.
		for _, e := range created {
			e.ID = 0
		}
		if abortErr := s.raise(ctx, s.handlers(&s.abort), event); abortErr != nil {
			errutil.LogError(s.logger, "save abort handlers reported errors", abortErr)
		}
		return nil, err
	}
	result.Saved = len(batch)

	result.HandlerErr = multierr.Append(result.HandlerErr, s.raise(ctx, s.handlers(&s.saved), event))

	for _, e := range batch {
		e.Dirty = false
	}

	if result.HandlerErr != nil {
		errutil.LogError(s.logger, "save handlers reported errors", result.HandlerErr)
	}
	s.logger.Debugw("entities saved", "kind", s.kind, "batch", result.BatchID, "count", result.Saved)
	return result, nil
}

func (s *SaveService) raise(ctx context.Context, handlers []ports.SaveHandler, event ports.SaveEvent) error {
	var errs error
	for _, h := range handlers {
		errs = multierr.Append(errs, h(ctx, event))
	}
	return errs
}

// handlers copies one handler list under the read lock.
func (s *SaveService) handlers(list *[]ports.SaveHandler) []ports.SaveHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ports.SaveHandler(nil), *list...)
}

// PropertyTypes returns the property types of the entity's content type.
func (s *SaveService) PropertyTypes(ctx context.Context, entity *entities.Entity) ([]entities.PropertyDescriptor, error) {
	props, err := s.store.ListPropertyTypes(ctx, entity.ContentType)
	if err != nil {
		return nil, fmt.Errorf("listing property types: %w", err)
	}
	return props, nil
}

// GetPropertyValue returns the in-memory raw value of a property.
func (s *SaveService) GetPropertyValue(entity *entities.Entity, alias string) *string {
	return entity.Value(alias)
}

// SetPropertyValue replaces the in-memory raw value of a property.
func (s *SaveService) SetPropertyValue(entity *entities.Entity, alias string, value *string) {
	entity.SetValue(alias, value)
}

// IsPickerEditor reports whether an editor alias is a configured picker.
func (s *SaveService) IsPickerEditor(editorAlias string) bool {
	return s.pickers.Contains(editorAlias)
}
