package mocks

import (
	"context"
	"time"

	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence is a mock implementation of persistence.Persistence.
type MockPersistence struct {
	mock.Mock

	Executions *MockExecutionRepository
	Outputs    *MockOutputRepository
	Content    *MockContentRepository
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Executions: &MockExecutionRepository{},
		Outputs:    &MockOutputRepository{},
		Content:    &MockContentRepository{},
	}
}

func (m *MockPersistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockPersistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockPersistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockPersistence) DeleteWorkflow(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

func (m *MockPersistence) ExecutionRepository() persistence.ExecutionRepository {
	return m.Executions
}

func (m *MockPersistence) OutputRepository() persistence.OutputRepository {
	return m.Outputs
}

func (m *MockPersistence) ContentRepository() persistence.ContentRepository {
	return m.Content
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockPersistence) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

// MockExecutionRepository is a mock implementation of persistence.ExecutionRepository.
type MockExecutionRepository struct {
	mock.Mock
}

func (m *MockExecutionRepository) CreateExecution(ctx context.Context, execution *models.Execution) error {
	args := m.Called(ctx, execution)

	return args.Error(0)
}

func (m *MockExecutionRepository) AppendStatus(ctx context.Context, executionID string, entry models.StatusEntry) error {
	args := m.Called(ctx, executionID, entry)

	return args.Error(0)
}

func (m *MockExecutionRepository) SetStatus(ctx context.Context, executionID string, status models.ExecutionStatus, scheduledAt *time.Time) error {
	args := m.Called(ctx, executionID, status, scheduledAt)

	return args.Error(0)
}

func (m *MockExecutionRepository) FinalizeExecution(ctx context.Context, executionID string, status models.ExecutionStatus, result *models.ResultMap) error {
	args := m.Called(ctx, executionID, status, result)

	return args.Error(0)
}

func (m *MockExecutionRepository) ExecutionByID(ctx context.Context, executionID string) (*models.Execution, error) {
	args := m.Called(ctx, executionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Execution), args.Error(1)
}

func (m *MockExecutionRepository) Executions(ctx context.Context, opts persistence.ListExecutionsOptions) (*persistence.ExecutionListResult, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*persistence.ExecutionListResult), args.Error(1)
}

func (m *MockExecutionRepository) DeleteExecution(ctx context.Context, executionID string) error {
	args := m.Called(ctx, executionID)

	return args.Error(0)
}

// MockOutputRepository is a mock implementation of persistence.OutputRepository.
type MockOutputRepository struct {
	mock.Mock
}

func (m *MockOutputRepository) SaveOutput(ctx context.Context, output *models.SavedOutput) error {
	args := m.Called(ctx, output)

	return args.Error(0)
}

func (m *MockOutputRepository) LatestOutput(ctx context.Context, nodeID string) (*models.SavedOutput, error) {
	args := m.Called(ctx, nodeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.SavedOutput), args.Error(1)
}

// MockContentRepository is a mock implementation of persistence.ContentRepository.
type MockContentRepository struct {
	mock.Mock
}

func (m *MockContentRepository) CreateEntity(ctx context.Context, fields map[string]any) (string, error) {
	args := m.Called(ctx, fields)

	return args.String(0), args.Error(1)
}

func (m *MockContentRepository) SetField(ctx context.Context, entityID, name string, value any) error {
	args := m.Called(ctx, entityID, name, value)

	return args.Error(0)
}

func (m *MockContentRepository) EntityByID(ctx context.Context, entityID string) (*models.ContentEntity, error) {
	args := m.Called(ctx, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.ContentEntity), args.Error(1)
}
