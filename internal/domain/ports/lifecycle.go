package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/ersonp/relmap/internal/domain/entities"
)

// SaveEvent is raised twice per save batch: once before the host persists the entities
// and once after. Both events of a batch carry the same BatchID.
type SaveEvent struct {
	BatchID  uuid.UUID
	Kind     entities.EntityKind
	Entities []*entities.Entity
}

// SaveHandler handles a save event.
type SaveHandler func(ctx context.Context, event SaveEvent) error

// SaveLifecycleSource is a host service that raises save events for one entity kind.
type SaveLifecycleSource interface {
	// Kind returns the entity kind the source saves.
	Kind() entities.EntityKind

	// OnSaving registers a handler run before entities are persisted.
	OnSaving(h SaveHandler)

	// OnSaved registers a handler run after entities are persisted.
	OnSaved(h SaveHandler)
}

// SaveAbortSource is implemented by sources that report a batch whose persistence
// failed after its saving event was raised. No saved event follows an abort.
type SaveAbortSource interface {
	OnSaveAborted(h SaveHandler)
}
