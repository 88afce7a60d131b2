package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// WorkflowRepository keeps workflow metadata in columns and the graph as one
// JSON definition. Deleted workflows are soft deleted.
type WorkflowRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// definition is the graph part of a workflow stored as JSON.
type definition struct {
	Nodes    []*models.Node   `json:"nodes"`
	Edges    []*models.Edge   `json:"edges"`
	Schedule *models.Schedule `json:"schedule,omitempty"`
}

const selectWorkflow = `
	SELECT
		id
	  , name
	  , description
	  , status
	  , definition
	  , last_executed
	  , created_at
	  , updated_at
	FROM workflows
`

// GetAll returns all workflows, oldest first.
func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := r.db.QueryContext(ctx, selectWorkflow+" WHERE deleted_at IS NULL ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectWorkflow+" WHERE id = ? AND deleted_at IS NULL"), id)

	workflow, err := scanWorkflow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewWorkflowError("WorkflowByID", id, err)
	}

	return workflow, nil
}

// Save creates or replaces a workflow, assigning an id when empty. Saving a
// deleted workflow restores it.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	graph, err := jsonText(definition{Nodes: workflow.Nodes, Edges: workflow.Edges, Schedule: workflow.Schedule})
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, fmt.Errorf("failed to marshal definition: %w", err))
	}

	query := `
		INSERT INTO workflows (id, name, description, status, definition, last_executed, created_at, updated_at, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			status = EXCLUDED.status,
			definition = EXCLUDED.definition,
			last_executed = EXCLUDED.last_executed,
			updated_at = EXCLUDED.updated_at,
			deleted_at = NULL
	`

	_, err = r.db.ExecContext(ctx, r.dialect.Rebind(query),
		workflow.ID,
		workflow.Name,
		workflow.Description,
		string(workflow.Status),
		graph,
		r.dialect.NullTime(workflow.LastExecuted),
		r.dialect.Time(workflow.CreatedAt),
		r.dialect.Time(workflow.UpdatedAt),
	)
	if err != nil {
		return persistence.NewWorkflowError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		r.dialect.Rebind("UPDATE workflows SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL"),
		r.dialect.Time(time.Now()), id)
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewWorkflowError("DeleteWorkflow", id, err)
	}

	if rowsAffected == 0 {
		return persistence.NewWorkflowError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow     models.Workflow
		status       string
		graph        []byte
		lastExecuted Timestamp
		createdAt    Timestamp
		updatedAt    Timestamp
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.Name,
		&workflow.Description,
		&status,
		&graph,
		&lastExecuted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	var def definition

	err = decodeJSON(graph, &def)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition of workflow %s: %w", workflow.ID, err)
	}

	workflow.Status = models.WorkflowStatus(status)
	workflow.Nodes = def.Nodes
	workflow.Edges = def.Edges
	workflow.Schedule = def.Schedule
	workflow.LastExecuted = lastExecuted.Ptr()
	workflow.CreatedAt = createdAt.Time
	workflow.UpdatedAt = updatedAt.Time

	return &workflow, nil
}
