package entities

import "time"

// Audit actions recorded for reconciliations.
const (
	AuditRelationCreated = "relation_created"
	AuditRelationUpdated = "relation_updated"
	AuditRelationDeleted = "relation_deleted"
	AuditKindMismatch    = "kind_mismatch"
)

// AuditEntry represents a logged action in the system.
type AuditEntry struct {
	ID         int64          `json:"id"`
	Action     string         `json:"action"`
	RelationID int            `json:"relation_id,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
