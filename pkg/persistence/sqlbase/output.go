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

// OutputRepository appends saved outputs. The seq column orders outputs saved
// within the same instant.
type OutputRepository struct {
	db      *sql.DB
	dialect Dialect
}

func (r *OutputRepository) SaveOutput(ctx context.Context, output *models.SavedOutput) error {
	if output.ID == "" {
		output.ID = uuid.New().String()
	}

	if output.CreatedAt.IsZero() {
		output.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO outputs (id, node_id, workflow_id, execution_id, output_type, content, status, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		output.ID,
		output.NodeID,
		output.WorkflowID,
		output.ExecutionID,
		output.OutputType,
		output.Content,
		output.Status,
		output.Message,
		r.dialect.Time(output.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save output of node %s: %w", output.NodeID, err)
	}

	return nil
}

func (r *OutputRepository) LatestOutput(ctx context.Context, nodeID string) (*models.SavedOutput, error) {
	query := `
		SELECT id, node_id, workflow_id, execution_id, output_type, content, status, message, created_at
		FROM outputs
		WHERE node_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`

	var (
		output    models.SavedOutput
		createdAt Timestamp
	)

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), nodeID).Scan(
		&output.ID,
		&output.NodeID,
		&output.WorkflowID,
		&output.ExecutionID,
		&output.OutputType,
		&output.Content,
		&output.Status,
		&output.Message,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: node %s", persistence.ErrOutputNotFound, nodeID)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to load output of node %s: %w", nodeID, err)
	}

	output.CreatedAt = createdAt.Time

	return &output, nil
}
