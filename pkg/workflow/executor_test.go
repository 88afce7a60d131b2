package workflow_test

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dukex/aiflow/pkg/eventbus"
	"github.com/dukex/aiflow/pkg/events"
	"github.com/dukex/aiflow/pkg/mocks"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/nodes/aimodel"
	"github.com/dukex/aiflow/pkg/nodes/output"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/persistence/file"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/registry"
	"github.com/dukex/aiflow/pkg/scheduler/memory"
	"github.com/dukex/aiflow/pkg/workflow"
)

var now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type recorder struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (r *recorder) Publish(_ context.Context, _ string, event eventbus.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]events.EventType, 0, len(r.events))
	for _, event := range r.events {
		types = append(types, event.GetType())
	}

	return types
}

type harness struct {
	store     *file.Persistence
	completer *mocks.MockCompleter
	webhooks  *mocks.MockWebhookPoster
	scheduler *memory.Store
	events    *recorder
	executor  *workflow.Executor
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	reg := registry.NewRegistry(slog.Default())
	reg.RegisterDefaultNodes()

	h := &harness{
		store:     file.NewPersistence(t.TempDir()),
		completer: &mocks.MockCompleter{},
		webhooks:  &mocks.MockWebhookPoster{},
		scheduler: memory.NewStore(),
		events:    &recorder{},
	}

	h.executor = workflow.NewExecutor(slog.Default(), h.store, reg, protocol.Dependencies{
		Completer: h.completer,
		Webhooks:  h.webhooks,
		Scheduler: h.scheduler,
		Now:       func() time.Time { return now },
	}).WithEventPublisher(h.events)

	t.Cleanup(func() {
		h.completer.AssertExpectations(t)
		h.webhooks.AssertExpectations(t)
	})

	return h
}

func (h *harness) save(t *testing.T, wf *models.Workflow) *models.Workflow {
	t.Helper()

	require.NoError(t, h.store.SaveWorkflow(context.Background(), wf))

	return wf
}

func (h *harness) execution(t *testing.T, id string) *models.Execution {
	t.Helper()

	record, err := h.store.ExecutionRepository().ExecutionByID(context.Background(), id)
	require.NoError(t, err)

	return record
}

func (h *harness) executionCount(t *testing.T) int64 {
	t.Helper()

	list, err := h.store.ExecutionRepository().Executions(context.Background(), persistence.ListExecutionsOptions{})
	require.NoError(t, err)

	return list.TotalCount
}

func messages(record *models.Execution) []string {
	out := make([]string, 0, len(record.OutputData))
	for _, entry := range record.OutputData {
		out = append(out, entry.Message)
	}

	return out
}

func manualTrigger(id, content string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeTrigger, Data: &models.TriggerData{Content: content}}
}

func display(id string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeOutput, Data: &models.OutputData{OutputType: models.OutputTypeDisplay}}
}

func delayedWebhook(id string) *models.Node {
	return &models.Node{ID: id, Type: models.NodeTypeOutput, Data: &models.OutputData{
		OutputType:   models.OutputTypeWebhook,
		WebhookURL:   "https://hooks.example.com/out",
		DelayEnabled: true,
		DelayValue:   10,
		DelayUnit:    "minutes",
	}}
}

func text(s string) *string {
	return &s
}

func link(source, target string) *models.Edge {
	return &models.Edge{Source: source, Target: target}
}

func branch(source, target, handle string) *models.Edge {
	return &models.Edge{Source: source, Target: target, SourceHandle: handle}
}

func active(name string, nodes []*models.Node, edges ...*models.Edge) *models.Workflow {
	return &models.Workflow{Name: name, Status: models.WorkflowStatusActive, Nodes: nodes, Edges: edges}
}

func TestExecuteWorkflow_LinearChain(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("summarize",
		[]*models.Node{
			display("o"),
			{ID: "a", Type: models.NodeTypeAIModel, Data: &models.AIModelData{Content: text("Summarize: [Input from t]")}},
			manualTrigger("t", "Go concurrency"),
		},
		link("t", "a"), link("a", "o")))

	h.completer.On("Complete", mock.Anything, "Summarize: Go concurrency", aimodel.DefaultModel, []string{}).
		Return("Go is **fast**", nil).Once()

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"t", "a", "o"}, run.Results.Keys())
	assert.Equal(t, models.ExecutionStatusCompleted, run.Status)

	ai, _ := run.Results.Get("a")
	out, _ := run.Results.Get("o")
	assert.Equal(t, "Go is <strong>fast</strong>", ai.Content)
	assert.Equal(t, ai.Content, out.Content)

	record := h.execution(t, run.ExecutionID)
	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
	assert.Equal(t, []string{
		"Execution started",
		"Executed trigger node",
		"Executed aiModel node",
		"Executed output node",
	}, messages(record))
	require.NotNil(t, record.Result)
	assert.Equal(t, 3, record.Result.Len())

	saved, err := h.store.OutputRepository().LatestOutput(ctx, "o")
	require.NoError(t, err)
	assert.Equal(t, "Go is <strong>fast</strong>", saved.Content)

	assert.Equal(t, []events.EventType{
		events.ExecutionStartedEvent,
		events.NodeExecutedEvent,
		events.NodeExecutedEvent,
		events.NodeExecutedEvent,
		events.ExecutionFinishedEvent,
	}, h.events.types())
}

func TestExecuteWorkflow_AnnotatesWorkflow(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("annotate",
		[]*models.Node{manualTrigger("t", "hello"), display("o"), display("orphan")},
		link("t", "o")))

	_, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)

	stored, err := h.store.WorkflowByID(ctx, wf.ID)
	require.NoError(t, err)

	require.NotNil(t, stored.LastExecuted)
	assert.True(t, stored.LastExecuted.Equal(now))
	assert.True(t, stored.NodeByID("t").Executed)
	assert.Equal(t, "hello", stored.NodeByID("o").Output)
	assert.True(t, stored.NodeByID("orphan").Executed, "nodes without inputs still run")
}

func TestExecuteWorkflow_ConditionPrunesBranch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		ran     string
		pruned  string
	}{
		{name: "true branch", content: "this is urgent", ran: "x", pruned: "y"},
		{name: "false branch", content: "all calm", ran: "y", pruned: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)

			wf := h.save(t, active("route",
				[]*models.Node{
					manualTrigger("t", tt.content),
					{ID: "c", Type: models.NodeTypeCondition, Data: &models.ConditionData{Condition: `{{ contains .inputs.t "urgent" }}`}},
					display("x"),
					display("y"),
				},
				link("t", "c"), branch("c", "x", "true"), branch("c", "y", "false")))

			run, err := h.executor.ExecuteWorkflow(context.Background(), wf.ID, nil, "")
			require.NoError(t, err)

			assert.True(t, run.Results.Has(tt.ran))
			assert.False(t, run.Results.Has(tt.pruned))
		})
	}
}

func TestExecuteWorkflow_ConvergingConditionsKeepSkip(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	urgent := `{{ contains .inputs.t "urgent" }}`

	wf := h.save(t, active("converge",
		[]*models.Node{
			manualTrigger("t", "urgent"),
			{ID: "c1", Type: models.NodeTypeCondition, Data: &models.ConditionData{Condition: urgent}},
			{ID: "c2", Type: models.NodeTypeCondition, Data: &models.ConditionData{Condition: urgent}},
			display("z"),
		},
		link("t", "c1"), link("t", "c2"), branch("c1", "z", "false"), branch("c2", "z", "true")))

	run, err := h.executor.ExecuteWorkflow(context.Background(), wf.ID, nil, "")
	require.NoError(t, err)

	assert.True(t, run.Results.Has("c1"))
	assert.True(t, run.Results.Has("c2"))
	assert.False(t, run.Results.Has("z"))
}

func TestExecuteWorkflow_DelayedOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	wf := h.save(t, active("later",
		[]*models.Node{manualTrigger("t", "report"), delayedWebhook("o")},
		link("t", "o")))

	run, err := h.executor.ExecuteWorkflow(context.Background(), wf.ID, nil, "")
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionStatusScheduled, run.Status)

	pending := h.scheduler.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, models.ContinuationDelayedOutput, pending[0].Kind)
	assert.Equal(t, run.ExecutionID, pending[0].ExecutionID)
	assert.Equal(t, "report", pending[0].Content)
	assert.True(t, pending[0].FireAt.Equal(now.Add(10*time.Minute)))

	record := h.execution(t, run.ExecutionID)
	assert.Equal(t, models.ExecutionStatusScheduled, record.Status)
	require.NotNil(t, record.ScheduledAt)
	assert.True(t, record.ScheduledAt.Equal(now.Add(10*time.Minute)))
	assert.Contains(t, messages(record), "Output scheduled for execution at: 2025-03-01 12:10:00")

	h.webhooks.AssertNotCalled(t, "PostJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteWorkflow_UnsupportedNodeDoesNotStopRun(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	wf := h.save(t, active("mixed",
		[]*models.Node{
			manualTrigger("t", "hi"),
			{ID: "m", Type: "mystery", Data: &models.RawData{NodeType: "mystery"}},
			display("o"),
		},
		link("t", "m"), link("m", "o")))

	run, err := h.executor.ExecuteWorkflow(context.Background(), wf.ID, nil, "")
	require.NoError(t, err)

	unsupported, ok := run.Results.Get("m")
	require.True(t, ok)
	assert.True(t, unsupported.IsError())
	assert.True(t, run.Results.Has("o"))

	record := h.execution(t, run.ExecutionID)
	assert.Contains(t, messages(record), "Unsupported node type: mystery")
	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)
}

func TestExecuteWorkflow_FatalErrors(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	inactive := h.save(t, &models.Workflow{
		Name:   "paused",
		Status: models.WorkflowStatusInactive,
		Nodes:  []*models.Node{manualTrigger("t", "x")},
	})

	cyclic := h.save(t, active("loop",
		[]*models.Node{display("a"), display("b")},
		link("a", "b"), link("b", "a")))

	tests := []struct {
		name       string
		workflowID string
		want       error
	}{
		{name: "missing workflow", workflowID: "does-not-exist", want: workflow.ErrWorkflowNotFound},
		{name: "inactive workflow", workflowID: inactive.ID, want: workflow.ErrWorkflowInactive},
		{name: "cyclic graph", workflowID: cyclic.ID, want: workflow.ErrCyclicGraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run, err := h.executor.ExecuteWorkflow(context.Background(), tt.workflowID, nil, "")

			require.ErrorIs(t, err, tt.want)
			assert.True(t, workflow.IsFatal(err))
			assert.Nil(t, run)
		})
	}

	assert.Zero(t, h.executionCount(t))
	assert.Empty(t, h.events.types())
}

func TestExecuteWorkflow_CancelledContext(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	wf := h.save(t, active("cancel",
		[]*models.Node{manualTrigger("t", "x"), display("o")},
		link("t", "o")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, run)

	list, err := h.store.ExecutionRepository().Executions(context.Background(), persistence.ListExecutionsOptions{})
	require.NoError(t, err)
	require.Len(t, list.Executions, 1)

	record := list.Executions[0]
	assert.Equal(t, models.ExecutionStatusError, record.Status)
	assert.Contains(t, messages(record), "Execution interrupted: context canceled")
	assert.Contains(t, h.events.types(), events.ExecutionFailedEvent)
}

func TestExecuteWorkflow_Resume(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("existing record", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		wf := h.save(t, active("resume", []*models.Node{manualTrigger("t", "x")}))

		require.NoError(t, h.store.ExecutionRepository().CreateExecution(ctx, &models.Execution{
			ID:         "exec-1",
			WorkflowID: wf.ID,
			Status:     models.ExecutionStatusScheduled,
			OutputData: []models.StatusEntry{{Status: models.ExecutionStatusScheduled, Message: "waiting"}},
		}))

		run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "exec-1")
		require.NoError(t, err)

		assert.Equal(t, "exec-1", run.ExecutionID)
		assert.Equal(t, models.ExecutionStatusCompleted, run.Status)

		record := h.execution(t, "exec-1")
		assert.Equal(t, []string{"waiting", "Execution resumed", "Executed trigger node"}, messages(record))
		assert.Equal(t, int64(1), h.executionCount(t))
	})

	t.Run("terminated record", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		wf := h.save(t, active("resume", []*models.Node{manualTrigger("t", "x")}))

		require.NoError(t, h.store.ExecutionRepository().CreateExecution(ctx, &models.Execution{
			ID:         "exec-2",
			WorkflowID: wf.ID,
			Status:     models.ExecutionStatusTerminated,
		}))

		_, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "exec-2")
		require.ErrorIs(t, err, workflow.ErrExecutionTerminated)
	})

	t.Run("record of another workflow", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		wf := h.save(t, active("resume", []*models.Node{manualTrigger("t", "x")}))

		require.NoError(t, h.store.ExecutionRepository().CreateExecution(ctx, &models.Execution{
			ID:         "exec-3",
			WorkflowID: "other-workflow",
			Status:     models.ExecutionStatusScheduled,
			OutputData: []models.StatusEntry{{Status: models.ExecutionStatusScheduled, Message: "waiting"}},
		}))

		_, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "exec-3")
		require.ErrorIs(t, err, workflow.ErrExecutionMismatch)

		record := h.execution(t, "exec-3")
		assert.Equal(t, models.ExecutionStatusScheduled, record.Status)
		assert.Equal(t, []string{"waiting"}, messages(record))
	})

	t.Run("unknown id creates the record", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		wf := h.save(t, active("resume", []*models.Node{manualTrigger("t", "x")}))

		run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "fresh-id")
		require.NoError(t, err)

		assert.Equal(t, "fresh-id", run.ExecutionID)
		assert.Equal(t, "Execution started", h.execution(t, "fresh-id").OutputData[0].Message)
	})
}

func TestResumeDelayedOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("later",
		[]*models.Node{manualTrigger("t", "report"), delayedWebhook("o")},
		link("t", "o")))

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)

	due, err := h.scheduler.Due(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)

	h.webhooks.On("PostJSON", mock.Anything, "https://hooks.example.com/out", map[string]any{"output": "report"}, output.WebhookTimeout).
		Return(200, nil).Once()

	require.NoError(t, h.executor.Dispatch(ctx, due[0]))

	record := h.execution(t, run.ExecutionID)
	assert.Equal(t, models.ExecutionStatusCompleted, record.Status)

	last := record.OutputData[len(record.OutputData)-1]
	assert.Equal(t, "Delayed output delivered", last.Message)
	assert.Equal(t, "o", last.NodeID)

	saved, err := h.store.OutputRepository().LatestOutput(ctx, "o")
	require.NoError(t, err)
	assert.Equal(t, models.ResultStatusSuccess, saved.Status)

	assert.Contains(t, h.events.types(), events.OutputDeliveredEvent)
}

func TestResumeDelayedOutput_WaitsForOtherDeferrals(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("twice later",
		[]*models.Node{manualTrigger("t", "report"), delayedWebhook("o1"), delayedWebhook("o2")},
		link("t", "o1"), link("t", "o2")))

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusScheduled, run.Status)

	pending := h.scheduler.Pending()
	require.Len(t, pending, 2)

	h.webhooks.On("PostJSON", mock.Anything, "https://hooks.example.com/out", mock.Anything, output.WebhookTimeout).
		Return(200, nil).Once()

	require.NoError(t, h.executor.ResumeDelayedOutput(ctx, pending[0]))
	assert.Equal(t, models.ExecutionStatusScheduled, h.execution(t, run.ExecutionID).Status)

	require.NoError(t, h.executor.Terminate(ctx, run.ExecutionID))
	assert.Equal(t, models.ExecutionStatusTerminated, h.execution(t, run.ExecutionID).Status)
	assert.Empty(t, h.scheduler.Pending())
}

func TestResumeDelayedOutput_LastDeferralCompletes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("twice later",
		[]*models.Node{manualTrigger("t", "report"), delayedWebhook("o1"), delayedWebhook("o2")},
		link("t", "o1"), link("t", "o2")))

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)

	h.webhooks.On("PostJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(200, nil).Twice()

	due, err := h.scheduler.Due(ctx, now.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 2)

	require.NoError(t, h.executor.Dispatch(ctx, due[0]))
	require.NoError(t, h.executor.Dispatch(ctx, due[1]))

	assert.Equal(t, models.ExecutionStatusCompleted, h.execution(t, run.ExecutionID).Status)
}

func TestResumeDelayedOutput_WebhookFailure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("later",
		[]*models.Node{manualTrigger("t", "report"), delayedWebhook("o")},
		link("t", "o")))

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)

	h.webhooks.On("PostJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(0, assert.AnError).Once()

	require.NoError(t, h.executor.ResumeDelayedOutput(ctx, h.scheduler.Pending()[0]))

	record := h.execution(t, run.ExecutionID)
	last := record.OutputData[len(record.OutputData)-1]
	assert.Equal(t, models.ExecutionStatusError, last.Status)
	assert.Contains(t, last.Message, "Webhook request failed")
}

func TestResumeDelayedOutput_RejectsOtherContinuations(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	err := h.executor.ResumeDelayedOutput(context.Background(), models.Continuation{
		Kind:       models.ContinuationScheduledWorkflow,
		WorkflowID: "wf",
	})
	require.ErrorIs(t, err, workflow.ErrInvalidContinuation)
}

func TestTerminate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("later",
		[]*models.Node{manualTrigger("t", "report"), delayedWebhook("o")},
		link("t", "o")))

	run, err := h.executor.ExecuteWorkflow(ctx, wf.ID, nil, "")
	require.NoError(t, err)

	continuation := h.scheduler.Pending()[0]

	require.NoError(t, h.executor.Terminate(ctx, run.ExecutionID))

	record := h.execution(t, run.ExecutionID)
	assert.Equal(t, models.ExecutionStatusTerminated, record.Status)
	assert.Equal(t, "Execution terminated", record.OutputData[len(record.OutputData)-1].Message)
	assert.Empty(t, h.scheduler.Pending())
	assert.Contains(t, h.events.types(), events.ExecutionTerminatedEvent)

	// A continuation claimed before the cancel is dropped on delivery.
	require.NoError(t, h.executor.ResumeDelayedOutput(ctx, continuation))
	h.webhooks.AssertNotCalled(t, "PostJSON", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	entries := len(h.execution(t, run.ExecutionID).OutputData)

	require.NoError(t, h.executor.Terminate(ctx, run.ExecutionID))
	assert.Len(t, h.execution(t, run.ExecutionID).OutputData, entries, "terminating twice is a no-op")
}

func TestTerminate_UnknownExecution(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	err := h.executor.Terminate(context.Background(), "missing")
	assert.True(t, persistence.IsExecutionNotFound(err))
}

func TestDispatch_ReceivedWebhook(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()

	wf := h.save(t, active("hook",
		[]*models.Node{
			{ID: "t", Type: models.NodeTypeTrigger, Data: &models.TriggerData{TriggerType: models.TriggerTypeWebhook}},
			display("o"),
		},
		link("t", "o")))

	payload := map[string]any{"output": "from outside"}

	require.NoError(t, h.executor.Dispatch(ctx, models.Continuation{
		Kind:       models.ContinuationScheduledWorkflow,
		WorkflowID: wf.ID,
		Payload:    payload,
	}))

	saved, err := h.store.OutputRepository().LatestOutput(ctx, "o")
	require.NoError(t, err)
	assert.Equal(t, "from outside", saved.Content)

	record := h.execution(t, saved.ExecutionID)
	assert.Equal(t, payload, record.InputData)
}

func TestDispatch_UnknownKind(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	err := h.executor.Dispatch(context.Background(), models.Continuation{Kind: "bogus", WorkflowID: "wf"})
	require.ErrorIs(t, err, workflow.ErrInvalidContinuation)
}

func TestRunScheduled(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("arms the next run", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		wf := active("hourly", []*models.Node{manualTrigger("t", "tick")})
		wf.Schedule = &models.Schedule{Enabled: true, Interval: 1, Unit: models.ScheduleUnitHour}
		h.save(t, wf)

		require.NoError(t, h.executor.Dispatch(ctx, models.Continuation{
			Kind:       models.ContinuationScheduledWorkflow,
			WorkflowID: wf.ID,
			Recurring:  true,
		}))

		assert.Equal(t, int64(1), h.executionCount(t))

		pending := h.scheduler.Pending()
		require.Len(t, pending, 1)
		assert.True(t, pending[0].Recurring)
		assert.True(t, pending[0].FireAt.Equal(now.Add(time.Hour)))
	})

	t.Run("end date stops the schedule", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		end := now.Add(30 * time.Minute)
		wf := active("ending", []*models.Node{manualTrigger("t", "tick")})
		wf.Schedule = &models.Schedule{Enabled: true, Interval: 1, Unit: models.ScheduleUnitHour, EndDate: &end}
		h.save(t, wf)

		run, err := h.executor.RunScheduled(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ExecutionStatusCompleted, run.Status)
		assert.Empty(t, h.scheduler.Pending())
	})

	t.Run("no enabled schedule", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		wf := h.save(t, active("manual", []*models.Node{manualTrigger("t", "tick")}))

		_, err := h.executor.RunScheduled(ctx, wf.ID)
		require.ErrorIs(t, err, workflow.ErrInvalidSchedule)
		assert.Zero(t, h.executionCount(t))
	})
}

func TestArmSchedule(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	h := newHarness(t)

	wf := active("cron", []*models.Node{manualTrigger("t", "tick")})
	wf.Schedule = &models.Schedule{Enabled: true, Cron: "0 9 * * *"}
	h.save(t, wf)

	require.NoError(t, h.executor.ArmSchedule(ctx, wf))
	require.NoError(t, h.executor.ArmSchedule(ctx, wf))

	pending := h.scheduler.Pending()
	require.Len(t, pending, 1, "re-arming replaces the pending run")
	assert.True(t, pending[0].FireAt.Equal(time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)))

	wf.Schedule.Enabled = false
	require.NoError(t, h.executor.ArmSchedule(ctx, wf))
	assert.Empty(t, h.scheduler.Pending())

	wf.Schedule = &models.Schedule{Enabled: true, Unit: models.ScheduleUnitDay}
	require.ErrorIs(t, h.executor.ArmSchedule(ctx, wf), workflow.ErrInvalidSchedule)

	wf.Schedule = &models.Schedule{Enabled: true, Interval: 1, Unit: models.ScheduleUnitDay}
	wf.Status = models.WorkflowStatusInactive
	require.NoError(t, h.executor.ArmSchedule(ctx, wf))
	assert.Empty(t, h.scheduler.Pending())
}
