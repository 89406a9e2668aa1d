// Package ports defines the interfaces the relation mapping engine consumes from its host.
package ports

import (
	"context"

	"github.com/ersonp/relmap/internal/domain/entities"
)

// RelationStore defines the generic relation store shared by every feature that links
// entities. Lookups return nil without error when nothing matches.
type RelationStore interface {
	// FindRelationType finds a relation type by alias.
	FindRelationType(ctx context.Context, alias string) (*entities.RelationType, error)

	// ListRelationTypes lists all relation types ordered by alias.
	ListRelationTypes(ctx context.Context) ([]entities.RelationType, error)

	// SaveRelationType creates (ID == 0) or updates a relation type.
	SaveRelationType(ctx context.Context, rt *entities.RelationType) error

	// DeleteRelationType deletes a relation type and every relation of that type.
	DeleteRelationType(ctx context.Context, alias string) error

	// ListRelations lists every relation of a relation type.
	ListRelations(ctx context.Context, relationTypeID int) ([]entities.Relation, error)

	// SaveRelation creates (ID == 0, ID assigned on return) or updates a relation.
	SaveRelation(ctx context.Context, rel *entities.Relation) error

	// DeleteRelation deletes a relation by ID.
	DeleteRelation(ctx context.Context, id int) error
}

// Transactor runs fn so that every store call made with the context it receives
// commits or rolls back together.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditLog records reconciliation outcomes.
type AuditLog interface {
	// LogAction logs an action to the audit log.
	LogAction(ctx context.Context, action string, relationID int, details map[string]any) error

	// FindAuditLogByAction finds audit log entries by action type, newest first.
	// An empty action matches every entry.
	FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error)

	// FindAuditLogByRelation finds audit log entries for a relation, newest first.
	FindAuditLogByRelation(ctx context.Context, relationID int) ([]entities.AuditEntry, error)
}
