package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ersonp/relmap/internal/domain/entities"
)

// Content type methods.

// SaveContentType saves or updates a content type.
func (r *Repository) SaveContentType(ctx context.Context, ct *entities.ContentType) error {
	if ct.CreatedAt.IsZero() {
		ct.CreatedAt = timeNow()
	}
	query := `
		INSERT INTO content_types (alias, kind, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(alias) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name
	`
	_, err := r.conn(ctx).ExecContext(ctx, query, ct.Alias, string(ct.Kind), ct.Name, ct.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving content type: %w", err)
	}
	return nil
}

// FindContentType finds a content type by alias.
func (r *Repository) FindContentType(ctx context.Context, alias string) (*entities.ContentType, error) {
	query := `SELECT alias, kind, name, created_at FROM content_types WHERE alias = ?`
	var ct entities.ContentType
	err := r.conn(ctx).QueryRowContext(ctx, query, alias).Scan(&ct.Alias, &ct.Kind, &ct.Name, &ct.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning content type: %w", err)
	}
	return &ct, nil
}

// ListContentTypes lists all content types ordered by alias.
func (r *Repository) ListContentTypes(ctx context.Context) ([]entities.ContentType, error) {
	query := `SELECT alias, kind, name, created_at FROM content_types ORDER BY alias ASC`
	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying content types: %w", err)
	}
	defer rows.Close()

	var result []entities.ContentType
	for rows.Next() {
		var ct entities.ContentType
		if err := rows.Scan(&ct.Alias, &ct.Kind, &ct.Name, &ct.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning content type: %w", err)
		}
		result = append(result, ct)
	}
	return result, rows.Err()
}

// Data type methods.

// SaveDataType creates (ID == 0) or updates a data type.
func (r *Repository) SaveDataType(ctx context.Context, dt *entities.DataType) error {
	if dt.ID == 0 {
		query := `
			INSERT INTO data_types (name, editor_alias, relation_type_alias, save_format)
			VALUES (?, ?, ?, ?)
		`
		result, err := r.conn(ctx).ExecContext(ctx, query,
			dt.Name, dt.EditorAlias, dt.RelationTypeAlias, string(dt.SaveFormat))
		if err != nil {
			return fmt.Errorf("inserting data type: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading data type id: %w", err)
		}
		dt.ID = int(id)
		return nil
	}

	query := `
		UPDATE data_types
		SET name = ?, editor_alias = ?, relation_type_alias = ?, save_format = ?
		WHERE id = ?
	`
	result, err := r.conn(ctx).ExecContext(ctx, query,
		dt.Name, dt.EditorAlias, dt.RelationTypeAlias, string(dt.SaveFormat), dt.ID)
	if err != nil {
		return fmt.Errorf("updating data type: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("data type not found: %d", dt.ID)
	}
	return nil
}

// FindDataType finds a data type by ID.
func (r *Repository) FindDataType(ctx context.Context, id int) (*entities.DataType, error) {
	query := `
		SELECT id, name, editor_alias, relation_type_alias, save_format
		FROM data_types
		WHERE id = ?
	`
	var dt entities.DataType
	err := r.conn(ctx).QueryRowContext(ctx, query, id).Scan(
		&dt.ID, &dt.Name, &dt.EditorAlias, &dt.RelationTypeAlias, &dt.SaveFormat)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning data type: %w", err)
	}
	return &dt, nil
}

// FindDataTypeByName finds a data type by name.
func (r *Repository) FindDataTypeByName(ctx context.Context, name string) (*entities.DataType, error) {
	query := `
		SELECT id, name, editor_alias, relation_type_alias, save_format
		FROM data_types
		WHERE name = ?
	`
	var dt entities.DataType
	err := r.conn(ctx).QueryRowContext(ctx, query, name).Scan(
		&dt.ID, &dt.Name, &dt.EditorAlias, &dt.RelationTypeAlias, &dt.SaveFormat)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning data type: %w", err)
	}
	return &dt, nil
}

// ListDataTypes lists all data types ordered by name.
func (r *Repository) ListDataTypes(ctx context.Context) ([]entities.DataType, error) {
	query := `
		SELECT id, name, editor_alias, relation_type_alias, save_format
		FROM data_types
		ORDER BY name ASC
	`
	rows, err := r.conn(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying data types: %w", err)
	}
	defer rows.Close()

	var result []entities.DataType
	for rows.Next() {
		var dt entities.DataType
		if err := rows.Scan(&dt.ID, &dt.Name, &dt.EditorAlias, &dt.RelationTypeAlias, &dt.SaveFormat); err != nil {
			return nil, fmt.Errorf("scanning data type: %w", err)
		}
		result = append(result, dt)
	}
	return result, rows.Err()
}

// Property type methods.

const propertyColumns = `
	pt.id, ct.kind, pt.content_type, pt.alias, pt.data_type_id, dt.editor_alias
	FROM property_types pt
	JOIN content_types ct ON ct.alias = pt.content_type
	JOIN data_types dt ON dt.id = pt.data_type_id
`

// SavePropertyType creates a property type on its content type and assigns its ID.
func (r *Repository) SavePropertyType(ctx context.Context, prop *entities.PropertyDescriptor) error {
	query := `INSERT INTO property_types (content_type, alias, data_type_id) VALUES (?, ?, ?)`
	result, err := r.conn(ctx).ExecContext(ctx, query, prop.ContentType, prop.Alias, prop.DataTypeID)
	if err != nil {
		return fmt.Errorf("inserting property type: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading property type id: %w", err)
	}
	prop.ID = int(id)
	return nil
}

// ListPropertyTypes lists the property types of a content type ordered by ID.
func (r *Repository) ListPropertyTypes(ctx context.Context, contentType string) ([]entities.PropertyDescriptor, error) {
	query := `SELECT ` + propertyColumns + ` WHERE pt.content_type = ? ORDER BY pt.id ASC`
	rows, err := r.conn(ctx).QueryContext(ctx, query, contentType)
	if err != nil {
		return nil, fmt.Errorf("querying property types: %w", err)
	}
	defer rows.Close()

	var result []entities.PropertyDescriptor
	for rows.Next() {
		var p entities.PropertyDescriptor
		if err := rows.Scan(&p.ID, &p.Kind, &p.ContentType, &p.Alias, &p.DataTypeID, &p.EditorAlias); err != nil {
			return nil, fmt.Errorf("scanning property type: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ResolveProperty returns the descriptor of alias on the content type of an entity.
func (r *Repository) ResolveProperty(ctx context.Context, entityID int, alias string) (*entities.PropertyDescriptor, error) {
	query := `SELECT ` + propertyColumns + `
		JOIN entities e ON e.content_type = pt.content_type
		WHERE e.id = ? AND pt.alias = ?
	`
	var p entities.PropertyDescriptor
	err := r.conn(ctx).QueryRowContext(ctx, query, entityID, alias).Scan(
		&p.ID, &p.Kind, &p.ContentType, &p.Alias, &p.DataTypeID, &p.EditorAlias)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolving property: %w", err)
	}
	return &p, nil
}

// Entity methods.

// KindOf returns the kind of an entity.
func (r *Repository) KindOf(ctx context.Context, id int) (entities.EntityKind, bool, error) {
	var kind entities.EntityKind
	err := r.conn(ctx).QueryRowContext(ctx, `SELECT kind FROM entities WHERE id = ?`, id).Scan(&kind)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading entity kind: %w", err)
	}
	return kind, true, nil
}

// IDForKey returns the id of the entity with the given instance key.
func (r *Repository) IDForKey(ctx context.Context, key uuid.UUID) (int, bool, error) {
	var id int
	err := r.conn(ctx).QueryRowContext(ctx, `SELECT id FROM entities WHERE key = ?`, key.String()).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("reading entity id: %w", err)
	}
	return id, true, nil
}

// SaveEntity inserts a new entity (ID == 0, ID assigned on return) or updates an existing
// one, then writes every property value. A nil value is stored as NULL.
func (r *Repository) SaveEntity(ctx context.Context, entity *entities.Entity) error {
	now := timeNow()
	if entity.ID == 0 {
		query := `
			INSERT INTO entities (key, kind, parent_id, content_type, name, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		result, err := r.conn(ctx).ExecContext(ctx, query,
			entity.Key.String(), string(entity.Kind), entity.ParentID, entity.ContentType, entity.Name, now, now)
		if err != nil {
			return fmt.Errorf("inserting entity: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading entity id: %w", err)
		}
		entity.ID = int(id)
	} else {
		query := `
			UPDATE entities
			SET parent_id = ?, content_type = ?, name = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := r.conn(ctx).ExecContext(ctx, query,
			entity.ParentID, entity.ContentType, entity.Name, now, entity.ID)
		if err != nil {
			return fmt.Errorf("updating entity: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return fmt.Errorf("entity not found: %d", entity.ID)
		}
	}

	for alias, value := range entity.Values {
		var v sql.NullString
		if value != nil {
			v = sql.NullString{String: *value, Valid: true}
		}
		query := `
			INSERT INTO property_values (entity_id, alias, value)
			VALUES (?, ?, ?)
			ON CONFLICT(entity_id, alias) DO UPDATE SET value = excluded.value
		`
		if _, err := r.conn(ctx).ExecContext(ctx, query, entity.ID, alias, v); err != nil {
			return fmt.Errorf("saving value %s: %w", alias, err)
		}
	}
	return nil
}

// FindEntity finds an entity by ID with its property values.
func (r *Repository) FindEntity(ctx context.Context, id int) (*entities.Entity, error) {
	return r.findEntity(ctx, `WHERE id = ?`, id)
}

// FindEntityByKey finds an entity by instance key with its property values.
func (r *Repository) FindEntityByKey(ctx context.Context, key uuid.UUID) (*entities.Entity, error) {
	return r.findEntity(ctx, `WHERE key = ?`, key.String())
}

func (r *Repository) findEntity(ctx context.Context, where string, arg any) (*entities.Entity, error) {
	query := `SELECT id, key, kind, parent_id, content_type, name FROM entities ` + where
	entity, err := scanEntity(r.conn(ctx).QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning entity: %w", err)
	}

	rows, err := r.conn(ctx).QueryContext(ctx,
		`SELECT alias, value FROM property_values WHERE entity_id = ?`, entity.ID)
	if err != nil {
		return nil, fmt.Errorf("querying values: %w", err)
	}
	defer rows.Close()

	entity.Values = make(map[string]*string)
	for rows.Next() {
		var alias string
		var value sql.NullString
		if err := rows.Scan(&alias, &value); err != nil {
			return nil, fmt.Errorf("scanning value: %w", err)
		}
		if value.Valid {
			v := value.String
			entity.Values[alias] = &v
		} else {
			entity.Values[alias] = nil
		}
	}
	return entity, rows.Err()
}

// ListEntities lists entities of a kind ordered by ID, without values. An empty kind
// lists every entity.
func (r *Repository) ListEntities(ctx context.Context, kind entities.EntityKind) ([]*entities.Entity, error) {
	query := `
		SELECT id, key, kind, parent_id, content_type, name
		FROM entities
		WHERE ? = '' OR kind = ?
		ORDER BY id ASC
	`
	rows, err := r.conn(ctx).QueryContext(ctx, query, string(kind), string(kind))
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}
	defer rows.Close()

	var result []*entities.Entity
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		result = append(result, entity)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntity(row rowScanner) (*entities.Entity, error) {
	var entity entities.Entity
	var key string
	if err := row.Scan(&entity.ID, &key, &entity.Kind, &entity.ParentID, &entity.ContentType, &entity.Name); err != nil {
		return nil, err
	}
	parsed, err := uuid.Parse(key)
	if err != nil {
		return nil, fmt.Errorf("parsing entity key: %w", err)
	}
	entity.Key = parsed
	return &entity, nil
}
