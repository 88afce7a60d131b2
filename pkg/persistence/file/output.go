package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// OutputRepository keeps the outputs of each node in one file, oldest first.
type OutputRepository struct {
	root string
	mu   sync.Mutex
}

func NewOutputRepository(root string) *OutputRepository {
	return &OutputRepository{root: root}
}

func (o *OutputRepository) path(nodeID string) string {
	return filepath.Join(o.root, "outputs", nodeID+".json")
}

func (o *OutputRepository) SaveOutput(ctx context.Context, output *models.SavedOutput) error {
	err := validateID(output.NodeID)
	if err != nil {
		return err
	}

	if output.ID == "" {
		output.ID = uuid.New().String()
	}

	if output.CreatedAt.IsZero() {
		output.CreatedAt = time.Now().UTC()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	outputs, err := o.load(output.NodeID)
	if err != nil {
		return err
	}

	return writeJSON(o.path(output.NodeID), append(outputs, output))
}

func (o *OutputRepository) LatestOutput(ctx context.Context, nodeID string) (*models.SavedOutput, error) {
	err := validateID(nodeID)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	outputs, err := o.load(nodeID)
	if err != nil {
		return nil, err
	}

	if len(outputs) == 0 {
		return nil, persistence.ErrOutputNotFound
	}

	return outputs[len(outputs)-1], nil
}

func (o *OutputRepository) load(nodeID string) ([]*models.SavedOutput, error) {
	var outputs []*models.SavedOutput

	err := readJSON(o.path(nodeID), &outputs)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	return outputs, err
}
