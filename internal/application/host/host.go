package host

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/domain/ports"
)

// Host holds one SaveService per entity kind.
type Host struct {
	services map[entities.EntityKind]*SaveService
}

// New creates a Host with a SaveService for every kind in entities.AllKinds.
func New(store EntityStore, tx ports.Transactor, pickers entities.PickerEditorSet, logger *zap.SugaredLogger) *Host {
	h := &Host{services: make(map[entities.EntityKind]*SaveService, len(entities.AllKinds))}
	for _, kind := range entities.AllKinds {
		h.services[kind] = NewSaveService(kind, store, tx, pickers, logger.With("kind", kind))
	}
	return h
}

// Service returns the SaveService for kind.
func (h *Host) Service(kind entities.EntityKind) (*SaveService, error) {
	svc, ok := h.services[kind]
	if !ok {
		return nil, fmt.Errorf("no save service for kind %q", kind)
	}
	return svc, nil
}

// Sources returns every SaveService as a lifecycle source, in entities.AllKinds order.
func (h *Host) Sources() []ports.SaveLifecycleSource {
	sources := make([]ports.SaveLifecycleSource, 0, len(h.services))
	for _, kind := range entities.AllKinds {
		sources = append(sources, h.services[kind])
	}
	return sources
}

// Accessor returns an EntityAccessor for the engine. Property access does not depend on
// kind, so the content service serves every kind.
func (h *Host) Accessor() ports.EntityAccessor {
	return h.services[entities.KindContent]
}
