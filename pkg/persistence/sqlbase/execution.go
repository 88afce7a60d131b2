package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// ExecutionRepository stores one row per execution. The status log and the
// results are JSON columns rewritten on every update.
type ExecutionRepository struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

const selectExecution = `
	SELECT
		id
	  , workflow_id
	  , workflow_name
	  , status
	  , input_data
	  , output_data
	  , result
	  , scheduled_at
	  , created_at
	  , updated_at
	FROM executions
`

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	if execution.UpdatedAt.IsZero() {
		execution.UpdatedAt = now
	}

	if execution.OutputData == nil {
		execution.OutputData = []models.StatusEntry{}
	}

	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int

		err := tx.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM executions WHERE id = ?"), execution.ID).Scan(&exists)
		if err != nil {
			return err
		}

		if exists > 0 {
			return persistence.ErrExecutionExists
		}

		return r.write(ctx, tx, `
			INSERT INTO executions (workflow_id, workflow_name, status, input_data, output_data, result, scheduled_at, created_at, updated_at, id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, execution)
	})
	if err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) AppendStatus(ctx context.Context, executionID string, entry models.StatusEntry) error {
	return r.update(ctx, "AppendStatus", executionID, func(execution *models.Execution) {
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now().UTC()
		}

		execution.OutputData = append(execution.OutputData, entry)
	})
}

func (r *ExecutionRepository) SetStatus(ctx context.Context, executionID string, status models.ExecutionStatus, scheduledAt *time.Time) error {
	return r.update(ctx, "SetStatus", executionID, func(execution *models.Execution) {
		execution.Status = status
		execution.ScheduledAt = scheduledAt
	})
}

// FinalizeExecution stores the run's results. A scheduled or terminated
// record keeps its status.
func (r *ExecutionRepository) FinalizeExecution(ctx context.Context, executionID string, status models.ExecutionStatus, result *models.ResultMap) error {
	return r.update(ctx, "FinalizeExecution", executionID, func(execution *models.Execution) {
		execution.Result = result

		if execution.Status != models.ExecutionStatusScheduled && execution.Status != models.ExecutionStatusTerminated {
			execution.Status = status
		}
	})
}

// update reads, mutates and rewrites the record in one transaction.
func (r *ExecutionRepository) update(ctx context.Context, op, executionID string, mutate func(*models.Execution)) error {
	err := WithTx(ctx, r.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, r.dialect.Rebind(selectExecution+" WHERE id = ?"+r.dialect.LockRow), executionID)

		execution, err := scanExecution(row)
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.ErrExecutionNotFound
		}

		if err != nil {
			return err
		}

		mutate(execution)
		execution.UpdatedAt = time.Now().UTC()

		return r.write(ctx, tx, `
			UPDATE executions SET
				workflow_id = ?,
				workflow_name = ?,
				status = ?,
				input_data = ?,
				output_data = ?,
				result = ?,
				scheduled_at = ?,
				created_at = ?,
				updated_at = ?
			WHERE id = ?
		`, execution)
	})
	if err != nil {
		return persistence.NewExecutionError(op, executionID, err)
	}

	return nil
}

// write binds the record's columns in the order shared by the insert and
// update statements, id last.
func (r *ExecutionRepository) write(ctx context.Context, tx *sql.Tx, query string, execution *models.Execution) error {
	input, err := jsonText(execution.InputData)
	if err != nil {
		return fmt.Errorf("failed to marshal input data: %w", err)
	}

	output, err := jsonText(execution.OutputData)
	if err != nil {
		return fmt.Errorf("failed to marshal status log: %w", err)
	}

	var result any

	if execution.Result != nil {
		result, err = jsonText(execution.Result)
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, r.dialect.Rebind(query),
		execution.WorkflowID,
		execution.WorkflowName,
		string(execution.Status),
		input,
		output,
		result,
		r.dialect.NullTime(execution.ScheduledAt),
		r.dialect.Time(execution.CreatedAt),
		r.dialect.Time(execution.UpdatedAt),
		execution.ID,
	)

	return err
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, executionID string) (*models.Execution, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(selectExecution+" WHERE id = ?"), executionID)

	execution, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.NewExecutionError("ExecutionByID", executionID, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", executionID, err)
	}

	return execution, nil
}

// Executions lists records newest first.
func (r *ExecutionRepository) Executions(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	opts.Normalize()

	var (
		conditions []string
		args       []any
	)

	if opts.WorkflowID != "" {
		conditions = append(conditions, "workflow_id = ?")
		args = append(args, opts.WorkflowID)
	}

	if opts.Search != "" {
		conditions = append(conditions, "LOWER(workflow_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(opts.Search)+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64

	err := r.db.QueryRowContext(ctx, r.dialect.Rebind("SELECT COUNT(*) FROM executions"+where), args...).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count executions: %w", err)
	}

	query := r.dialect.Rebind(selectExecution + where + " ORDER BY created_at DESC, id LIMIT ? OFFSET ?")

	rows, err := r.db.QueryContext(ctx, query, append(args, opts.PageSize, opts.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	executions := make([]*models.Execution, 0, opts.PageSize)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}

		executions = append(executions, execution)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating executions: %w", err)
	}

	return persistence.NewExecutionListResult(executions, total, opts), nil
}

func (r *ExecutionRepository) DeleteExecution(ctx context.Context, executionID string) error {
	result, err := r.db.ExecContext(ctx, r.dialect.Rebind("DELETE FROM executions WHERE id = ?"), executionID)
	if err != nil {
		return persistence.NewExecutionError("DeleteExecution", executionID, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError("DeleteExecution", executionID, err)
	}

	if rowsAffected == 0 {
		return persistence.NewExecutionError("DeleteExecution", executionID, persistence.ErrExecutionNotFound)
	}

	return nil
}

func scanExecution(row rowScanner) (*models.Execution, error) {
	var (
		execution   models.Execution
		status      string
		input       []byte
		output      []byte
		result      []byte
		scheduledAt Timestamp
		createdAt   Timestamp
		updatedAt   Timestamp
	)

	err := row.Scan(
		&execution.ID,
		&execution.WorkflowID,
		&execution.WorkflowName,
		&status,
		&input,
		&output,
		&result,
		&scheduledAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.Status = models.ExecutionStatus(status)
	execution.ScheduledAt = scheduledAt.Ptr()
	execution.CreatedAt = createdAt.Time
	execution.UpdatedAt = updatedAt.Time

	err = decodeJSON(input, &execution.InputData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal input data: %w", err)
	}

	execution.OutputData = []models.StatusEntry{}

	err = decodeJSON(output, &execution.OutputData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal status log: %w", err)
	}

	if len(result) > 0 {
		execution.Result = models.NewResultMap()

		err = decodeJSON(result, execution.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}
	}

	return &execution, nil
}
