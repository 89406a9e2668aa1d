// Package sqlite provides a SQLite implementation of the relation store and of the
// reference host's entity storage.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ersonp/relmap/internal/domain/entities"
	"github.com/ersonp/relmap/internal/infrastructure/config"
)

// timeNow returns the current time (can be mocked in tests).
var timeNow = time.Now

// Repository implements ports.RelationStore, ports.AuditLog and the host lookups using SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new SQLite repository.
func NewRepository(cfg config.SQLiteConfig) (*Repository, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	// One connection: SQLite has a single writer, and each ":memory:" connection
	// would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	// Enable foreign keys for referential integrity
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrent read/write performance
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the database schema if it doesn't exist.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	schema := `
	-- Relation types (alias is the lookup key used by pickers)
	CREATE TABLE IF NOT EXISTS relation_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alias TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		bidirectional INTEGER NOT NULL DEFAULT 0,
		parent_kind TEXT NOT NULL,
		child_kind TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Relations (untyped parent/child pairs with a free-text comment)
	CREATE TABLE IF NOT EXISTS relations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER NOT NULL,
		child_id INTEGER NOT NULL,
		relation_type_id INTEGER NOT NULL REFERENCES relation_types(id) ON DELETE CASCADE,
		comment TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_relations_type ON relations(relation_type_id);
	CREATE INDEX IF NOT EXISTS idx_relations_parent ON relations(parent_id);
	CREATE INDEX IF NOT EXISTS idx_relations_child ON relations(child_id);

	-- Content types (group property types per entity kind)
	CREATE TABLE IF NOT EXISTS content_types (
		alias TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Data types (editor configuration shared by properties)
	CREATE TABLE IF NOT EXISTS data_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		editor_alias TEXT NOT NULL,
		relation_type_alias TEXT NOT NULL DEFAULT '',
		save_format TEXT NOT NULL
	);

	-- Property types (one property on one content type)
	CREATE TABLE IF NOT EXISTS property_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_type TEXT NOT NULL REFERENCES content_types(alias) ON DELETE CASCADE,
		alias TEXT NOT NULL,
		data_type_id INTEGER NOT NULL REFERENCES data_types(id),
		UNIQUE(content_type, alias)
	);

	-- Entities (content, media and member items)
	CREATE TABLE IF NOT EXISTS entities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL,
		parent_id INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL REFERENCES content_types(alias),
		name TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);

	-- Property values (raw persisted value, NULL when cleared)
	CREATE TABLE IF NOT EXISTS property_values (
		entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		alias TEXT NOT NULL,
		value TEXT,
		PRIMARY KEY(entity_id, alias)
	);

	-- Audit log (tracks reconciliation outcomes)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		action TEXT NOT NULL,
		relation_id INTEGER,
		details TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_audit_log_relation ON audit_log(relation_id);
	CREATE INDEX IF NOT EXISTS idx_audit_log_action ON audit_log(action);
	CREATE INDEX IF NOT EXISTS idx_audit_log_created ON audit_log(created_at);
	`

	_, err := r.conn(ctx).ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Relation type methods.

// FindRelationType finds a relation type by alias.
func (r *Repository) FindRelationType(ctx context.Context, alias string) (*entities.RelationType, error) {
	query := `
		SELECT id, alias, name, bidirectional, parent_kind, child_kind
		FROM relation_types
		WHERE alias = ?
	`
	row := r.conn(ctx).QueryRowContext(ctx, query, alias)

	var rt entities.RelationType
	err := row.Scan(&rt.ID, &rt.Alias, &rt.Name, &rt.Bidirectional, &rt.ParentKind, &rt.ChildKind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning relation type: %w", err)
	}
	return &rt, nil
}

// ListRelationTypes lists all relation types ordered by alias.
func (r *Repository) ListRelationTypes(ctx context.Context) ([]entities.RelationType, error) {
	query := `
		SELECT id, alias, name, bidirectional, parent_kind, child_kind
		FROM relation_types
		ORDER BY alias ASC
	`
	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying relation types: %w", err)
	}
	defer rows.Close()

	types := make([]entities.RelationType, 0, 8)
	for rows.Next() {
		var rt entities.RelationType
		if err := rows.Scan(&rt.ID, &rt.Alias, &rt.Name, &rt.Bidirectional, &rt.ParentKind, &rt.ChildKind); err != nil {
			return nil, fmt.Errorf("scanning relation type: %w", err)
		}
		types = append(types, rt)
	}
	return types, rows.Err()
}

// SaveRelationType creates (ID == 0) or updates a relation type.
func (r *Repository) SaveRelationType(ctx context.Context, rt *entities.RelationType) error {
	if rt.ID == 0 {
		query := `
			INSERT INTO relation_types (alias, name, bidirectional, parent_kind, child_kind, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`
		result, err := r.conn(ctx).ExecContext(ctx, query,
			rt.Alias, rt.Name, rt.Bidirectional, string(rt.ParentKind), string(rt.ChildKind), timeNow())
		if err != nil {
			return fmt.Errorf("inserting relation type: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading relation type id: %w", err)
		}
		rt.ID = int(id)
		return nil
	}

	query := `
		UPDATE relation_types
		SET alias = ?, name = ?, bidirectional = ?, parent_kind = ?, child_kind = ?
		WHERE id = ?
	`
	result, err := r.conn(ctx).ExecContext(ctx, query,
		rt.Alias, rt.Name, rt.Bidirectional, string(rt.ParentKind), string(rt.ChildKind), rt.ID)
	if err != nil {
		return fmt.Errorf("updating relation type: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("relation type not found: %d", rt.ID)
	}
	return nil
}

// DeleteRelationType deletes a relation type; its relations cascade.
func (r *Repository) DeleteRelationType(ctx context.Context, alias string) error {
	query := `DELETE FROM relation_types WHERE alias = ?`
	result, err := r.conn(ctx).ExecContext(ctx, query, alias)
	if err != nil {
		return fmt.Errorf("deleting relation type: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("relation type not found: %s", alias)
	}
	return nil
}

// Relation methods.

// ListRelations lists every relation of a relation type ordered by ID.
func (r *Repository) ListRelations(ctx context.Context, relationTypeID int) ([]entities.Relation, error) {
	query := `
		SELECT id, parent_id, child_id, relation_type_id, comment, created_at
		FROM relations
		WHERE relation_type_id = ?
		ORDER BY id ASC
	`
	rows, err := r.conn(ctx).QueryContext(ctx, query, relationTypeID)
	if err != nil {
		return nil, fmt.Errorf("querying relations: %w", err)
	}
	defer rows.Close()

	var relations []entities.Relation
	for rows.Next() {
		var rel entities.Relation
		if err := rows.Scan(
			&rel.ID,
			&rel.ParentID,
			&rel.ChildID,
			&rel.RelationTypeID,
			&rel.Comment,
			&rel.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning relation: %w", err)
		}
		relations = append(relations, rel)
	}
	return relations, rows.Err()
}

// SaveRelation creates (ID == 0) or updates a relation. New relations get their ID and
// creation time assigned.
func (r *Repository) SaveRelation(ctx context.Context, rel *entities.Relation) error {
	if rel.ID == 0 {
		rel.CreatedAt = timeNow()
		query := `
			INSERT INTO relations (parent_id, child_id, relation_type_id, comment, created_at)
			VALUES (?, ?, ?, ?, ?)
		`
		result, err := r.conn(ctx).ExecContext(ctx, query,
			rel.ParentID, rel.ChildID, rel.RelationTypeID, rel.Comment, rel.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting relation: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading relation id: %w", err)
		}
		rel.ID = int(id)
		return nil
	}

	query := `
		UPDATE relations
		SET parent_id = ?, child_id = ?, relation_type_id = ?, comment = ?
		WHERE id = ?
	`
	result, err := r.conn(ctx).ExecContext(ctx, query,
		rel.ParentID, rel.ChildID, rel.RelationTypeID, rel.Comment, rel.ID)
	if err != nil {
		return fmt.Errorf("updating relation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("relation not found: %d", rel.ID)
	}
	return nil
}

// DeleteRelation deletes a relation by ID.
func (r *Repository) DeleteRelation(ctx context.Context, id int) error {
	query := `DELETE FROM relations WHERE id = ?`
	result, err := r.conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deleting relation: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("relation not found: %d", id)
	}
	return nil
}

// Audit log methods.

// LogAction logs an action to the audit log.
func (r *Repository) LogAction(ctx context.Context, action string, relationID int, details map[string]any) error {
	var detailsJSON sql.NullString
	if details != nil {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshaling details: %w", err)
		}
		detailsJSON = sql.NullString{String: string(data), Valid: true}
	}

	var relID sql.NullInt64
	if relationID != 0 {
		relID = sql.NullInt64{Int64: int64(relationID), Valid: true}
	}

	query := `INSERT INTO audit_log (action, relation_id, details, created_at) VALUES (?, ?, ?, ?)`
	_, err := r.conn(ctx).ExecContext(ctx, query, action, relID, detailsJSON, timeNow())
	if err != nil {
		return fmt.Errorf("logging action: %w", err)
	}
	return nil
}

// FindAuditLogByRelation finds audit log entries for a specific relation.
func (r *Repository) FindAuditLogByRelation(ctx context.Context, relationID int) ([]entities.AuditEntry, error) {
	query := `
		SELECT id, action, relation_id, details, created_at
		FROM audit_log
		WHERE relation_id = ?
		ORDER BY id DESC
	`
	return r.queryAuditLog(ctx, query, relationID)
}

// FindAuditLogByAction finds audit log entries by action type. An empty action matches
// every entry; a limit of zero or less returns every entry.
func (r *Repository) FindAuditLogByAction(ctx context.Context, action string, limit int) ([]entities.AuditEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, action, relation_id, details, created_at
		FROM audit_log
		WHERE ? = '' OR action = ?
		ORDER BY id DESC
		LIMIT ?
	`
	return r.queryAuditLog(ctx, query, action, action, limit)
}

// queryAuditLog is a helper to execute audit log queries.
func (r *Repository) queryAuditLog(ctx context.Context, query string, args ...any) ([]entities.AuditEntry, error) {
	rows, err := r.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	// Use limit parameter as capacity hint if available
	var entries []entities.AuditEntry
	if len(args) > 1 {
		if limit, ok := args[len(args)-1].(int); ok && limit > 0 {
			entries = make([]entities.AuditEntry, 0, limit)
		}
	}

	for rows.Next() {
		var entry entities.AuditEntry
		var relationID sql.NullInt64
		var details sql.NullString

		if err := rows.Scan(
			&entry.ID,
			&entry.Action,
			&relationID,
			&details,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}

		entry.RelationID = int(relationID.Int64)

		if details.Valid && details.String != "" {
			if err := json.Unmarshal([]byte(details.String), &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshaling details: %w", err)
			}
		}

		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
