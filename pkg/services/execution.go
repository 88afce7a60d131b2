package services

import (
	"context"
	"log/slog"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
)

// Runner starts and stops workflow runs.
type Runner interface {
	ExecuteWorkflow(ctx context.Context, workflowID string, trigger any, resumeExecutionID string) (*models.Run, error)
	Terminate(ctx context.Context, executionID string) error
}

type Execution struct {
	logger     *slog.Logger
	executions persistence.ExecutionRepository
	outputs    persistence.OutputRepository
	runner     Runner
}

func NewExecution(logger *slog.Logger, persistence persistence.Persistence, runner Runner) *Execution {
	return &Execution{
		logger:     logger.With("module", "execution_service"),
		executions: persistence.ExecutionRepository(),
		outputs:    persistence.OutputRepository(),
		runner:     runner,
	}
}

// Run executes the workflow now with payload as the trigger input.
func (s *Execution) Run(ctx context.Context, workflowID string, payload any) (*models.Run, error) {
	return s.runner.ExecuteWorkflow(ctx, workflowID, payload, "")
}

func (s *Execution) List(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	return s.executions.Executions(ctx, opts)
}

func (s *Execution) Get(ctx context.Context, id string) (*models.Execution, error) {
	return s.executions.ExecutionByID(ctx, id)
}

// StopAndDelete terminates the execution, dropping the pending continuations
// of its workflow, then removes its record.
func (s *Execution) StopAndDelete(ctx context.Context, id string) error {
	err := s.runner.Terminate(ctx, id)
	if err != nil {
		return err
	}

	err = s.executions.DeleteExecution(ctx, id)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Execution stopped and deleted", "execution_id", id)

	return nil
}

// LatestOutput returns the last content the output node produced.
func (s *Execution) LatestOutput(ctx context.Context, nodeID string) (*models.SavedOutput, error) {
	return s.outputs.LatestOutput(ctx, nodeID)
}
