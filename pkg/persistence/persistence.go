// Package persistence provides the storage abstraction for workflows, executions and their outputs.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/aiflow/pkg/models"
)

type Persistence interface {
	Workflows(ctx context.Context) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	// WorkflowByID returns ErrWorkflowNotFound when no workflow has the id.
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DeleteWorkflow(ctx context.Context, id string) error

	ExecutionRepository() ExecutionRepository
	OutputRepository() OutputRepository
	ContentRepository() ContentRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// ExecutionRepository tracks the lifecycle of workflow runs. The status log of
// an execution is append-only.
type ExecutionRepository interface {
	// CreateExecution stores a new record, assigning an id when empty.
	CreateExecution(ctx context.Context, execution *models.Execution) error
	AppendStatus(ctx context.Context, executionID string, entry models.StatusEntry) error
	SetStatus(ctx context.Context, executionID string, status models.ExecutionStatus, scheduledAt *time.Time) error
	FinalizeExecution(ctx context.Context, executionID string, status models.ExecutionStatus, result *models.ResultMap) error
	ExecutionByID(ctx context.Context, executionID string) (*models.Execution, error)
	Executions(ctx context.Context, opts ListExecutionsOptions) (*ExecutionListResult, error)
	DeleteExecution(ctx context.Context, executionID string) error
}

// OutputRepository keeps what output nodes produced.
type OutputRepository interface {
	SaveOutput(ctx context.Context, output *models.SavedOutput) error
	// LatestOutput returns ErrOutputNotFound when the node never produced output.
	LatestOutput(ctx context.Context, nodeID string) (*models.SavedOutput, error)
}

// ContentRepository stores the publishable entities created by post nodes.
type ContentRepository interface {
	CreateEntity(ctx context.Context, fields map[string]any) (string, error)
	SetField(ctx context.Context, entityID, name string, value any) error
	EntityByID(ctx context.Context, entityID string) (*models.ContentEntity, error)
}

// ListExecutionsOptions filters and pages the execution list.
type ListExecutionsOptions struct {
	Page     int
	PageSize int
	// Search matches workflow names case-insensitively.
	Search     string
	WorkflowID string
}

// Normalize applies list defaults.
func (o *ListExecutionsOptions) Normalize() {
	if o.Page <= 0 {
		o.Page = 1
	}

	if o.PageSize <= 0 || o.PageSize > 100 {
		o.PageSize = 20
	}
}

// Offset of the first item of the requested page.
func (o ListExecutionsOptions) Offset() int {
	return (o.Page - 1) * o.PageSize
}

type ExecutionListResult struct {
	Executions []*models.Execution `json:"executions"`
	TotalCount int64               `json:"total_count"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// NewExecutionListResult computes paging metadata.
func NewExecutionListResult(executions []*models.Execution, total int64, opts ListExecutionsOptions) *ExecutionListResult {
	if executions == nil {
		executions = []*models.Execution{}
	}

	pages := 0
	if opts.PageSize > 0 {
		pages = int((total + int64(opts.PageSize) - 1) / int64(opts.PageSize))
	}

	return &ExecutionListResult{
		Executions: executions,
		TotalCount: total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: pages,
	}
}
