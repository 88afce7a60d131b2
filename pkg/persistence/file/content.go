package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// ContentRepository keeps one JSON file per content entity.
type ContentRepository struct {
	root string
	mu   sync.Mutex
}

func NewContentRepository(root string) *ContentRepository {
	return &ContentRepository{root: root}
}

func (cr *ContentRepository) path(id string) string {
	return filepath.Join(cr.root, "content", id+".json")
}

func (cr *ContentRepository) CreateEntity(ctx context.Context, fields map[string]any) (string, error) {
	entity := &models.ContentEntity{
		ID:        uuid.New().String(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	err := writeJSON(cr.path(entity.ID), entity)
	if err != nil {
		return "", fmt.Errorf("failed to write content entity: %w", err)
	}

	return entity.ID, nil
}

func (cr *ContentRepository) SetField(ctx context.Context, entityID, name string, value any) error {
	err := validateID(entityID)
	if err != nil {
		return err
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	entity, err := cr.load(entityID)
	if err != nil {
		return err
	}

	if entity.CustomFields == nil {
		entity.CustomFields = map[string]any{}
	}

	entity.CustomFields[name] = value

	return writeJSON(cr.path(entityID), entity)
}

func (cr *ContentRepository) EntityByID(ctx context.Context, entityID string) (*models.ContentEntity, error) {
	err := validateID(entityID)
	if err != nil {
		return nil, err
	}

	cr.mu.Lock()
	defer cr.mu.Unlock()

	return cr.load(entityID)
}

func (cr *ContentRepository) load(id string) (*models.ContentEntity, error) {
	var entity models.ContentEntity

	err := readJSON(cr.path(id), &entity)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrEntityNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	return &entity, nil
}
