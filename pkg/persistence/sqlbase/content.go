package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

type ContentRepository struct {
	db      *sql.DB
	dialect Dialect
}

func (r *ContentRepository) CreateEntity(ctx context.Context, fields map[string]any) (string, error) {
	id := uuid.New().String()

	encoded, err := jsonText(fields)
	if err != nil {
		return "", fmt.Errorf("failed to marshal content fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		r.dialect.Rebind("INSERT INTO content_entities (id, fields, custom_fields, created_at) VALUES (?, ?, NULL, ?)"),
		id, encoded, r.dialect.Time(time.Now()))
	if err != nil {
		return "", fmt.Errorf("failed to create content entity: %w", err)
	}

	return id, nil
}

func (r *ContentRepository) SetField(ctx context.Context, entityID, name string, value any) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			r.dialect.Rebind("SELECT id, fields, custom_fields, created_at FROM content_entities WHERE id = ?"+r.dialect.LockRow),
			entityID)

		entity, err := r.scan(row, entityID)
		if err != nil {
			return err
		}

		if entity.CustomFields == nil {
			entity.CustomFields = map[string]any{}
		}

		entity.CustomFields[name] = value

		encoded, err := jsonText(entity.CustomFields)
		if err != nil {
			return fmt.Errorf("failed to marshal custom field %s: %w", name, err)
		}

		_, err = tx.ExecContext(ctx, r.dialect.Rebind("UPDATE content_entities SET custom_fields = ? WHERE id = ?"), encoded, entityID)
		if err != nil {
			return fmt.Errorf("failed to set custom field %s: %w", name, err)
		}

		return nil
	})
}

func (r *ContentRepository) EntityByID(ctx context.Context, entityID string) (*models.ContentEntity, error) {
	row := r.db.QueryRowContext(ctx,
		r.dialect.Rebind("SELECT id, fields, custom_fields, created_at FROM content_entities WHERE id = ?"),
		entityID)

	return r.scan(row, entityID)
}

func (r *ContentRepository) scan(row rowScanner, entityID string) (*models.ContentEntity, error) {
	var (
		entity    models.ContentEntity
		fields    []byte
		custom    []byte
		createdAt Timestamp
	)

	err := row.Scan(&entity.ID, &fields, &custom, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrEntityNotFound, entityID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load content entity %s: %w", entityID, err)
	}

	err = decodeJSON(fields, &entity.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal content fields: %w", err)
	}

	err = decodeJSON(custom, &entity.CustomFields)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal custom fields: %w", err)
	}

	entity.CreatedAt = createdAt.Time

	return &entity, nil
}
