package services

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/aiflow/pkg/events"
	"github.com/dukex/aiflow/pkg/graph"
	"github.com/dukex/aiflow/pkg/mocks"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/persistence/file"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/registry"
	"github.com/dukex/aiflow/pkg/scheduler/memory"
	"github.com/dukex/aiflow/pkg/testutil"
	"github.com/dukex/aiflow/pkg/workflow"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store     *file.Persistence
	scheduler *memory.Store
	executor  *workflow.Executor
	events    *mocks.MockEventBus
	workflows *Workflow
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	f := &fixture{
		store:     file.NewPersistence(t.TempDir()),
		scheduler: memory.NewStore(),
		events:    &mocks.MockEventBus{},
	}

	f.executor = workflow.NewExecutor(slog.Default(), f.store, reg, protocol.Dependencies{
		Scheduler: f.scheduler,
		Now:       func() time.Time { return now },
	})

	f.workflows = NewWorkflow(slog.Default(), f.store, f.executor, f.scheduler).WithEventPublisher(f.events)
	f.workflows.now = func() time.Time { return now }

	f.events.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	return f
}

func (f *fixture) published() []events.EventType {
	var types []events.EventType

	for _, call := range f.events.Calls {
		if call.Method == "Publish" {
			types = append(types, call.Arguments.Get(2).(interface{ GetType() events.EventType }).GetType())
		}
	}

	return types
}

func TestWorkflow_HealthCheck(t *testing.T) {
	f := newFixture(t)

	message, ok := f.workflows.HealthCheck(t.Context())
	assert.True(t, ok)
	assert.Equal(t, "Persistence layer is healthy", message)

	message, ok = (&Workflow{}).HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer not initialized", message)
}

func TestWorkflow_HealthCheck_Unhealthy(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.On("HealthCheck", mock.Anything).Return(errors.New("disk full"))

	workflows := NewWorkflow(slog.Default(), store, nil, nil)

	message, ok := workflows.HealthCheck(t.Context())
	assert.False(t, ok)
	assert.Equal(t, "Persistence layer is unhealthy: disk full", message)
	store.AssertExpectations(t)
}

func TestWorkflow_Delete_PersistenceError(t *testing.T) {
	store := mocks.NewMockPersistence()
	store.On("DeleteWorkflow", mock.Anything, "wf-1").Return(persistence.ErrWorkflowNotFound)

	sched := &mocks.MockScheduler{}
	workflows := NewWorkflow(slog.Default(), store, nil, sched)

	err := workflows.Delete(t.Context(), "wf-1")
	assert.True(t, IsNotFoundError(err))
	sched.AssertNotCalled(t, "CancelAllFor", mock.Anything, mock.Anything)
}

func TestWorkflow_Create(t *testing.T) {
	f := newFixture(t)

	input := testutil.CreateTestWorkflow(testutil.WithStatus(""))
	input.ID = "client-chosen"

	created, err := f.workflows.Create(t.Context(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, "client-chosen", created.ID)
	assert.Equal(t, models.WorkflowStatusActive, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	stored, err := f.workflows.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test Workflow", stored.Name)

	assert.Empty(t, f.scheduler.Pending())
	assert.Equal(t, []events.EventType{events.WorkflowSavedEvent}, f.published())
}

func TestWorkflow_Create_ArmsSchedule(t *testing.T) {
	f := newFixture(t)

	created, err := f.workflows.Create(t.Context(), testutil.CreateTestWorkflow(testutil.WithSchedule(&models.Schedule{
		Enabled: true, Interval: 1, Unit: models.ScheduleUnitDay,
	})))
	require.NoError(t, err)

	pending := f.scheduler.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, created.ID, pending[0].WorkflowID)
	assert.Equal(t, models.ContinuationScheduledWorkflow, pending[0].Kind)
	assert.True(t, pending[0].Recurring)
	assert.Equal(t, now.AddDate(0, 0, 1), pending[0].FireAt)
}

func TestWorkflow_Create_Invalid(t *testing.T) {
	past := now.Add(-time.Hour)

	tests := []struct {
		name     string
		workflow *models.Workflow
		target   error
	}{
		{
			name:     "short name",
			workflow: testutil.CreateTestWorkflow(testutil.WithName("ab")),
			target:   ErrInvalidWorkflow,
		},
		{
			name: "unknown status",
			workflow: testutil.CreateTestWorkflow(func(wf *models.Workflow) {
				wf.Status = "paused"
			}),
			target: ErrInvalidWorkflow,
		},
		{
			name: "edge to unknown node",
			workflow: testutil.CreateTestWorkflow(func(wf *models.Workflow) {
				wf.Edges = append(wf.Edges, &models.Edge{ID: "e2", Source: "output-1", Target: "ghost"})
			}),
			target: ErrNodeNotFound,
		},
		{
			name: "cycle",
			workflow: testutil.CreateTestWorkflow(func(wf *models.Workflow) {
				wf.Edges = append(wf.Edges, &models.Edge{ID: "e2", Source: "output-1", Target: "trigger-1"})
			}),
			target: graph.ErrCyclicGraph,
		},
		{
			name: "schedule already ended",
			workflow: testutil.CreateTestWorkflow(testutil.WithSchedule(&models.Schedule{
				Enabled: true, Interval: 1, Unit: models.ScheduleUnitHour, EndDate: &past,
			})),
			target: models.ErrInvalidSchedule,
		},
		{
			name: "invalid webhook url",
			workflow: testutil.CreateTestWorkflow(func(wf *models.Workflow) {
				wf.Nodes[1].Data = &models.OutputData{OutputType: models.OutputTypeWebhook, WebhookURL: "not a url"}
			}),
			target: ErrInvalidWorkflow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.workflows.Create(t.Context(), tt.workflow)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, IsValidationError(err))

			workflows, err := f.workflows.List(t.Context())
			require.NoError(t, err)
			assert.Empty(t, workflows)
			assert.Empty(t, f.published())
		})
	}
}

func TestWorkflow_Create_Nil(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflows.Create(t.Context(), nil)
	assert.ErrorIs(t, err, ErrWorkflowNil)
}

func TestWorkflow_Update(t *testing.T) {
	f := newFixture(t)

	original := testutil.CreateTestWorkflow(testutil.WithSchedule(&models.Schedule{
		Enabled: true, Interval: 2, Unit: models.ScheduleUnitHour,
	}))
	original.Nodes[0].Data = &models.TriggerData{TriggerType: models.TriggerTypeWebhook, WebhookKey: "secret"}

	created, err := f.workflows.Create(t.Context(), original)
	require.NoError(t, err)

	executed := now.Add(-time.Minute)
	created.LastExecuted = &executed
	require.NoError(t, f.store.SaveWorkflow(t.Context(), created))

	changed := testutil.CreateTestWorkflow(testutil.WithName("Renamed"), testutil.WithSchedule(&models.Schedule{
		Enabled: true, Interval: 30, Unit: models.ScheduleUnitMinute,
	}))
	changed.Nodes[0].Data = &models.TriggerData{TriggerType: models.TriggerTypeWebhook}

	updated, err := f.workflows.Update(t.Context(), created.ID, changed)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID)
	assert.WithinDuration(t, created.CreatedAt, updated.CreatedAt, time.Millisecond)
	require.NotNil(t, updated.LastExecuted)
	assert.True(t, executed.Equal(*updated.LastExecuted))
	assert.Equal(t, "secret", updated.Nodes[0].Data.(*models.TriggerData).WebhookKey)

	stored, err := f.workflows.FetchByID(t.Context(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", stored.Name)

	pending := f.scheduler.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, now.Add(30*time.Minute), pending[0].FireAt)
}

func TestWorkflow_Update_DisablesSchedule(t *testing.T) {
	f := newFixture(t)

	created, err := f.workflows.Create(t.Context(), testutil.CreateTestWorkflow(testutil.WithSchedule(&models.Schedule{
		Enabled: true, Interval: 1, Unit: models.ScheduleUnitDay,
	})))
	require.NoError(t, err)
	require.Len(t, f.scheduler.Pending(), 1)

	_, err = f.workflows.Update(t.Context(), created.ID, testutil.CreateTestWorkflow(testutil.WithStatus(models.WorkflowStatusInactive)))
	require.NoError(t, err)

	assert.Empty(t, f.scheduler.Pending())
}

func TestWorkflow_Update_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflows.Update(t.Context(), "missing", testutil.CreateTestWorkflow())
	assert.True(t, persistence.IsWorkflowNotFound(err))
	assert.True(t, IsNotFoundError(err))
}

func TestWorkflow_Delete(t *testing.T) {
	f := newFixture(t)

	created, err := f.workflows.Create(t.Context(), testutil.CreateTestWorkflow(testutil.WithSchedule(&models.Schedule{
		Enabled: true, Interval: 1, Unit: models.ScheduleUnitWeek,
	})))
	require.NoError(t, err)
	require.NoError(t, f.scheduler.ScheduleAt(t.Context(), now.Add(time.Minute), models.Continuation{
		Kind:       models.ContinuationDelayedOutput,
		WorkflowID: created.ID,
	}))

	require.NoError(t, f.workflows.Delete(t.Context(), created.ID))

	assert.Empty(t, f.scheduler.Pending())

	_, err = f.workflows.FetchByID(t.Context(), created.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = f.workflows.Delete(t.Context(), created.ID)
	assert.True(t, IsNotFoundError(err))

	assert.Equal(t, []events.EventType{events.WorkflowSavedEvent, events.WorkflowDeletedEvent}, f.published())
}
