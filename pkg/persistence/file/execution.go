package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

var ErrExecutionExists = persistence.ErrExecutionExists

// ExecutionRepository keeps one JSON file per execution record.
type ExecutionRepository struct {
	root string
	mu   sync.Mutex
}

func NewExecutionRepository(root string) *ExecutionRepository {
	return &ExecutionRepository{root: root}
}

func (er *ExecutionRepository) path(id string) string {
	return filepath.Join(er.root, "executions", id+".json")
}

func (er *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		execution.ID = uuid.New().String()
	}

	err := validateID(execution.ID)
	if err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
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

	er.mu.Lock()
	defer er.mu.Unlock()

	_, err = os.Stat(er.path(execution.ID))
	if err == nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, ErrExecutionExists)
	}

	err = writeJSON(er.path(execution.ID), execution)
	if err != nil {
		return persistence.NewExecutionError("CreateExecution", execution.ID, err)
	}

	return nil
}

func (er *ExecutionRepository) AppendStatus(ctx context.Context, executionID string, entry models.StatusEntry) error {
	return er.update("AppendStatus", executionID, func(execution *models.Execution) {
		if entry.Timestamp.IsZero() {
			entry.Timestamp = time.Now().UTC()
		}

		execution.OutputData = append(execution.OutputData, entry)
	})
}

func (er *ExecutionRepository) SetStatus(ctx context.Context, executionID string, status models.ExecutionStatus, scheduledAt *time.Time) error {
	return er.update("SetStatus", executionID, func(execution *models.Execution) {
		execution.Status = status
		execution.ScheduledAt = scheduledAt
	})
}

// FinalizeExecution stores the run's results. A scheduled or terminated
// record keeps its status.
func (er *ExecutionRepository) FinalizeExecution(ctx context.Context, executionID string, status models.ExecutionStatus, result *models.ResultMap) error {
	return er.update("FinalizeExecution", executionID, func(execution *models.Execution) {
		execution.Result = result

		if execution.Status != models.ExecutionStatusScheduled && execution.Status != models.ExecutionStatusTerminated {
			execution.Status = status
		}
	})
}

func (er *ExecutionRepository) update(op, executionID string, mutate func(*models.Execution)) error {
	err := validateID(executionID)
	if err != nil {
		return persistence.NewExecutionError(op, executionID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.load(executionID)
	if err != nil {
		return persistence.NewExecutionError(op, executionID, err)
	}

	mutate(execution)
	execution.UpdatedAt = time.Now().UTC()

	err = writeJSON(er.path(executionID), execution)
	if err != nil {
		return persistence.NewExecutionError(op, executionID, err)
	}

	return nil
}

func (er *ExecutionRepository) load(id string) (*models.Execution, error) {
	var execution models.Execution

	err := readJSON(er.path(id), &execution)
	if errors.Is(err, os.ErrNotExist) {
		return nil, persistence.ErrExecutionNotFound
	}

	if err != nil {
		return nil, err
	}

	return &execution, nil
}

func (er *ExecutionRepository) ExecutionByID(ctx context.Context, executionID string) (*models.Execution, error) {
	err := validateID(executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", executionID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	execution, err := er.load(executionID)
	if err != nil {
		return nil, persistence.NewExecutionError("ExecutionByID", executionID, err)
	}

	return execution, nil
}

// Executions lists records newest first, filtered in memory.
func (er *ExecutionRepository) Executions(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	opts.Normalize()

	er.mu.Lock()
	defer er.mu.Unlock()

	ids, err := jsonFiles(filepath.Join(er.root, "executions"))
	if err != nil {
		return nil, fmt.Errorf("failed to list execution files: %w", err)
	}

	search := strings.ToLower(opts.Search)
	matched := make([]*models.Execution, 0, len(ids))

	for _, id := range ids {
		execution, err := er.load(id)
		if err != nil {
			return nil, persistence.NewExecutionError("Executions", id, err)
		}

		if opts.WorkflowID != "" && execution.WorkflowID != opts.WorkflowID {
			continue
		}

		if search != "" && !strings.Contains(strings.ToLower(execution.WorkflowName), search) {
			continue
		}

		matched = append(matched, execution)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := min(opts.Offset(), len(matched))
	end := min(start+opts.PageSize, len(matched))

	return persistence.NewExecutionListResult(matched[start:end], total, opts), nil
}

func (er *ExecutionRepository) DeleteExecution(ctx context.Context, executionID string) error {
	err := validateID(executionID)
	if err != nil {
		return persistence.NewExecutionError("DeleteExecution", executionID, err)
	}

	er.mu.Lock()
	defer er.mu.Unlock()

	err = os.Remove(er.path(executionID))
	if errors.Is(err, os.ErrNotExist) {
		return persistence.NewExecutionError("DeleteExecution", executionID, persistence.ErrExecutionNotFound)
	}

	if err != nil {
		return persistence.NewExecutionError("DeleteExecution", executionID, err)
	}

	return nil
}
