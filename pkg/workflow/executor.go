// Package workflow runs workflow graphs and the continuations they defer.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/aiflow/pkg/eventbus"
	"github.com/dukex/aiflow/pkg/events"
	"github.com/dukex/aiflow/pkg/graph"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/nodes/condition"
	"github.com/dukex/aiflow/pkg/nodes/output"
	"github.com/dukex/aiflow/pkg/otelhelper"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/registry"
	"github.com/dukex/aiflow/pkg/scheduler"
	"github.com/dukex/aiflow/pkg/template"
)

var ErrExecutionTerminated = errors.New("execution was terminated")

// ErrExecutionMismatch is returned when a resumed execution belongs to another workflow.
var ErrExecutionMismatch = errors.New("execution belongs to another workflow")

// WorkflowStore is the part of the store the executor reads and annotates.
type WorkflowStore interface {
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
}

// Executor runs workflows synchronously, one node at a time. Runs share no
// state, and the post-run annotation of the stored workflow is last writer
// wins: concurrent runs of one workflow may overwrite each other's executed
// flags.
type Executor struct {
	logger     *slog.Logger
	workflows  WorkflowStore
	executions persistence.ExecutionRepository
	executors  map[models.NodeType]protocol.NodeExecutor
	outputs    *output.OutputNode
	scheduler  scheduler.Scheduler
	events     eventbus.EventPublisher
	tracer     trace.Tracer
	now        func() time.Time
}

// NewExecutor builds one executor per registered node type. Output and
// content repositories default to the ones of store.
func NewExecutor(logger *slog.Logger, store persistence.Persistence, reg *registry.Registry, deps protocol.Dependencies) *Executor {
	if deps.Logger == nil {
		deps.Logger = logger
	}

	if deps.Outputs == nil {
		deps.Outputs = store.OutputRepository()
	}

	if deps.Content == nil {
		deps.Content = store.ContentRepository()
	}

	return &Executor{
		logger:     logger.With("module", "workflow_executor"),
		workflows:  store,
		executions: store.ExecutionRepository(),
		executors:  reg.Executors(deps),
		outputs:    output.NewOutputNode(deps),
		scheduler:  deps.Scheduler,
		events:     eventbus.NoopPublisher{},
		tracer:     otelhelper.NoopTracer(),
		now:        deps.Clock,
	}
}

func (e *Executor) WithEventPublisher(publisher eventbus.EventPublisher) *Executor {
	e.events = publisher

	return e
}

func (e *Executor) WithTracer(tracer trace.Tracer) *Executor {
	e.tracer = tracer

	return e
}

// ExecuteWorkflow runs the workflow once. trigger is handed to trigger nodes
// as the run's payload. A non-empty resumeExecutionID continues that record
// instead of creating a new one.
//
// Fatal errors (missing or inactive workflow, cyclic graph) are returned before
// any node runs. Node failures are recorded as error results and never stop
// the walk.
func (e *Executor) ExecuteWorkflow(ctx context.Context, workflowID string, trigger any, resumeExecutionID string) (*models.Run, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.execute",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	logger := e.logger.With("workflow_id", workflowID)

	workflow, ordered, err := e.prepare(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)
		logger.WarnContext(ctx, "Workflow cannot run", "error", err)

		return nil, err
	}

	execution, err := e.openExecution(ctx, workflow, trigger, resumeExecutionID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	span.SetAttributes(
		attribute.String(otelhelper.ExecutionIDKey, execution.ID),
		attribute.String(otelhelper.WorkflowNameKey, workflow.Name))

	logger = logger.With("execution_id", execution.ID)
	logger.InfoContext(ctx, "Starting workflow execution", "nodes", len(ordered))

	e.publish(ctx, workflowID, events.ExecutionStarted{
		BaseEvent:    events.NewBaseEvent(events.ExecutionStartedEvent, workflowID),
		ExecutionID:  execution.ID,
		WorkflowName: workflow.Name,
		Resumed:      resumeExecutionID != "",
	})

	started := e.now()
	r := &run{
		executor: e,
		logger:   logger,
		workflow: workflow,
		exec:     protocol.Execution{ID: execution.ID, WorkflowID: workflowID, Trigger: trigger},
		results:  models.NewResultMap(),
		skip:     graph.NewSkipSet(),
	}

	err = r.walk(ctx, ordered)
	if err != nil {
		return nil, e.abort(ctx, span, logger, r, err)
	}

	status := e.finalize(ctx, logger, r, models.ExecutionStatusCompleted)
	e.annotate(ctx, logger, workflow, r.results)

	span.SetAttributes(attribute.String(otelhelper.ExecutionStateKey, string(status)))
	logger.InfoContext(ctx, "Workflow execution finished",
		"status", status,
		"executed", r.results.Len(),
		"skipped", r.skip.Len())

	e.publish(ctx, workflowID, events.ExecutionFinished{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFinishedEvent, workflowID),
		ExecutionID: execution.ID,
		Status:      status,
		NodeCount:   r.results.Len(),
		Skipped:     r.skip.Len(),
		Duration:    e.now().Sub(started),
	})

	return &models.Run{
		ExecutionID: execution.ID,
		WorkflowID:  workflowID,
		Status:      status,
		Results:     r.results,
	}, nil
}

func (e *Executor) prepare(ctx context.Context, workflowID string) (*models.Workflow, []*models.Node, error) {
	workflow, err := e.workflows.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	if !workflow.IsActive() {
		return nil, nil, fmt.Errorf("%w: %s", ErrWorkflowInactive, workflowID)
	}

	ordered, err := graph.Order(workflow.Nodes, workflow.Edges)
	if err != nil {
		return nil, nil, fmt.Errorf("workflow %s: %w", workflowID, err)
	}

	return workflow, ordered, nil
}

// openExecution reuses the record named by resumeExecutionID when it exists,
// otherwise it creates one, under that id when given.
func (e *Executor) openExecution(ctx context.Context, workflow *models.Workflow, trigger any, resumeExecutionID string) (*models.Execution, error) {
	now := e.now().UTC()

	if resumeExecutionID != "" {
		existing, err := e.executions.ExecutionByID(ctx, resumeExecutionID)

		switch {
		case err == nil:
			if existing.WorkflowID != workflow.ID {
				return nil, fmt.Errorf("%w: execution %s of workflow %s", ErrExecutionMismatch, resumeExecutionID, existing.WorkflowID)
			}

			if existing.Status == models.ExecutionStatusTerminated {
				return nil, fmt.Errorf("%w: %s", ErrExecutionTerminated, resumeExecutionID)
			}

			err = e.executions.SetStatus(ctx, existing.ID, models.ExecutionStatusProcessing, nil)
			if err != nil {
				return nil, fmt.Errorf("resume execution %s: %w", existing.ID, err)
			}

			err = e.executions.AppendStatus(ctx, existing.ID, models.StatusEntry{
				Status:    models.ExecutionStatusProcessing,
				Message:   "Execution resumed",
				Timestamp: now,
			})
			if err != nil {
				return nil, fmt.Errorf("resume execution %s: %w", existing.ID, err)
			}

			return existing, nil
		case !persistence.IsExecutionNotFound(err):
			return nil, fmt.Errorf("load execution %s: %w", resumeExecutionID, err)
		}
	}

	execution := &models.Execution{
		ID:           resumeExecutionID,
		WorkflowID:   workflow.ID,
		WorkflowName: workflow.Name,
		Status:       models.ExecutionStatusProcessing,
		InputData:    trigger,
		OutputData: []models.StatusEntry{{
			Status:    models.ExecutionStatusProcessing,
			Message:   "Execution started",
			Timestamp: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := e.executions.CreateExecution(ctx, execution)
	if err != nil {
		return nil, fmt.Errorf("create execution: %w", err)
	}

	return execution, nil
}

// abort closes a run interrupted by its context. Storage calls outlive the
// cancelled context.
func (e *Executor) abort(ctx context.Context, span trace.Span, logger *slog.Logger, r *run, cause error) error {
	otelhelper.SetError(span, cause)
	logger.ErrorContext(ctx, "Workflow execution interrupted", "error", cause)

	storeCtx := context.WithoutCancel(ctx)

	err := e.executions.AppendStatus(storeCtx, r.exec.ID, models.StatusEntry{
		Status:    models.ExecutionStatusError,
		Message:   "Execution interrupted: " + cause.Error(),
		Timestamp: e.now().UTC(),
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to append status", "error", err)
	}

	e.finalize(storeCtx, logger, r, models.ExecutionStatusError)

	e.publish(storeCtx, r.exec.WorkflowID, events.ExecutionFailed{
		BaseEvent:   events.NewBaseEvent(events.ExecutionFailedEvent, r.exec.WorkflowID),
		ExecutionID: r.exec.ID,
		Error:       cause.Error(),
	})

	return fmt.Errorf("execution %s: %w", r.exec.ID, cause)
}

// finalize stores the results and returns the status the record ended with.
// A record that was scheduled or terminated during the run keeps that status.
func (e *Executor) finalize(ctx context.Context, logger *slog.Logger, r *run, status models.ExecutionStatus) models.ExecutionStatus {
	err := e.executions.FinalizeExecution(ctx, r.exec.ID, status, r.results)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to finalize execution", "error", err)
	}

	record, err := e.executions.ExecutionByID(ctx, r.exec.ID)
	if err != nil {
		if r.scheduled {
			return models.ExecutionStatusScheduled
		}

		return status
	}

	return record.Status
}

// annotate marks which nodes ran and what they produced on the stored
// workflow.
func (e *Executor) annotate(ctx context.Context, logger *slog.Logger, workflow *models.Workflow, results *models.ResultMap) {
	for _, node := range workflow.Nodes {
		result, ok := results.Get(node.ID)
		node.Executed = ok
		node.Output = nil

		if ok {
			node.Output = result.Content
		}
	}

	now := e.now().UTC()
	workflow.LastExecuted = &now

	err := e.workflows.SaveWorkflow(ctx, workflow)
	if err != nil {
		logger.WarnContext(ctx, "Failed to annotate workflow", "error", err)
	}
}

// ResumeDelayedOutput applies the side effect of an output node whose
// delivery was deferred. No other node runs.
func (e *Executor) ResumeDelayedOutput(ctx context.Context, continuation models.Continuation) error {
	node := continuation.Node
	if continuation.Kind != models.ContinuationDelayedOutput || node == nil || node.Type != models.NodeTypeOutput {
		return fmt.Errorf("%w: expected a delayed output node", ErrInvalidContinuation)
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.delayed_output",
		attribute.String(otelhelper.WorkflowIDKey, continuation.WorkflowID),
		attribute.String(otelhelper.ExecutionIDKey, continuation.ExecutionID),
		attribute.String(otelhelper.NodeIDKey, node.ID))
	defer span.End()

	logger := e.logger.With(
		"workflow_id", continuation.WorkflowID,
		"execution_id", continuation.ExecutionID,
		"node_id", node.ID)

	var record *models.Execution

	if continuation.ExecutionID != "" {
		existing, err := e.executions.ExecutionByID(ctx, continuation.ExecutionID)
		if err == nil {
			record = existing
		} else {
			logger.WarnContext(ctx, "Execution record not found for delayed output", "error", err)
		}
	}

	if record != nil && record.Status == models.ExecutionStatusTerminated {
		logger.InfoContext(ctx, "Dropping delayed output of terminated execution")

		return nil
	}

	result := e.outputs.Deliver(ctx, node, continuation.Content, protocol.Execution{
		ID:         continuation.ExecutionID,
		WorkflowID: continuation.WorkflowID,
	})

	logger.InfoContext(ctx, "Delayed output delivered", "status", result.Status)

	if record != nil {
		entry := models.StatusEntry{
			Status:    models.ExecutionStatusCompleted,
			Message:   "Delayed output delivered",
			NodeID:    node.ID,
			Timestamp: e.now().UTC(),
		}

		if result.Status != models.ResultStatusSuccess {
			entry.Message += ": " + result.Message
		}

		if result.Status == models.ResultStatusError {
			entry.Status = models.ExecutionStatusError
		}

		err := e.executions.AppendStatus(ctx, record.ID, entry)
		if err != nil {
			logger.WarnContext(ctx, "Failed to append status", "error", err)
		}

		if record.Status == models.ExecutionStatusScheduled && e.deferralsSettled(ctx, logger, continuation) {
			err = e.executions.SetStatus(ctx, record.ID, models.ExecutionStatusCompleted, nil)
			if err != nil {
				logger.WarnContext(ctx, "Failed to complete execution", "error", err)
			}
		}
	}

	e.publish(ctx, continuation.WorkflowID, events.OutputDelivered{
		BaseEvent:   events.NewBaseEvent(events.OutputDeliveredEvent, continuation.WorkflowID),
		ExecutionID: continuation.ExecutionID,
		NodeID:      node.ID,
		Status:      result.Status,
		Message:     result.Message,
	})

	return nil
}

// deferralsSettled reports whether no other delayed output of the execution is
// still waiting in the scheduler. Lookup failures keep the execution scheduled.
func (e *Executor) deferralsSettled(ctx context.Context, logger *slog.Logger, continuation models.Continuation) bool {
	if e.scheduler == nil {
		return true
	}

	pending, err := e.scheduler.PendingFor(ctx, continuation.WorkflowID, models.ContinuationDelayedOutput)
	if err != nil {
		logger.WarnContext(ctx, "Failed to list pending delayed outputs", "error", err)

		return false
	}

	remaining := 0

	for _, other := range pending {
		if other.ExecutionID == continuation.ExecutionID && other.ID != continuation.ID {
			remaining++
		}
	}

	if remaining > 0 {
		logger.DebugContext(ctx, "Execution still has delayed outputs pending", "pending", remaining)

		return false
	}

	return true
}

// Terminate stops an active execution and drops every pending continuation
// of its workflow. Nodes already running are not interrupted.
func (e *Executor) Terminate(ctx context.Context, executionID string) error {
	record, err := e.executions.ExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}

	logger := e.logger.With("workflow_id", record.WorkflowID, "execution_id", executionID)

	if !record.Status.IsActive() {
		logger.DebugContext(ctx, "Execution already finished", "status", record.Status)

		return nil
	}

	err = e.executions.SetStatus(ctx, executionID, models.ExecutionStatusTerminated, nil)
	if err != nil {
		return err
	}

	err = e.executions.AppendStatus(ctx, executionID, models.StatusEntry{
		Status:    models.ExecutionStatusTerminated,
		Message:   "Execution terminated",
		Timestamp: e.now().UTC(),
	})
	if err != nil {
		logger.WarnContext(ctx, "Failed to append status", "error", err)
	}

	if e.scheduler != nil {
		err = e.scheduler.CancelAllFor(ctx, record.WorkflowID)
		if err != nil {
			return fmt.Errorf("cancel continuations of workflow %s: %w", record.WorkflowID, err)
		}
	}

	logger.InfoContext(ctx, "Execution terminated")

	e.publish(ctx, record.WorkflowID, events.ExecutionTerminated{
		BaseEvent:   events.NewBaseEvent(events.ExecutionTerminatedEvent, record.WorkflowID),
		ExecutionID: executionID,
	})

	return nil
}

// ArmSchedule replaces the pending recurring run of the workflow. Disabled
// schedules and inactive workflows are only disarmed.
func (e *Executor) ArmSchedule(ctx context.Context, workflow *models.Workflow) error {
	if e.scheduler == nil {
		return nil
	}

	err := e.scheduler.CancelAllFor(ctx, workflow.ID, models.ContinuationScheduledWorkflow)
	if err != nil {
		return err
	}

	if workflow.Schedule == nil || !workflow.Schedule.Enabled || !workflow.IsActive() {
		return nil
	}

	return e.scheduleNext(ctx, workflow)
}

func (e *Executor) scheduleNext(ctx context.Context, workflow *models.Workflow) error {
	if e.scheduler == nil {
		return nil
	}

	next, err := workflow.Schedule.NextRun(e.now())
	if err != nil {
		return fmt.Errorf("workflow %s: %w", workflow.ID, err)
	}

	err = e.scheduler.ScheduleAt(ctx, next, models.Continuation{
		Kind:       models.ContinuationScheduledWorkflow,
		WorkflowID: workflow.ID,
		Recurring:  true,
	})
	if err != nil {
		return err
	}

	e.logger.InfoContext(ctx, "Workflow scheduled", "workflow_id", workflow.ID, "next_run", next)

	return nil
}

// RunScheduled executes a recurring run and arms the next one. A schedule
// whose next run falls past its end date simply stops.
func (e *Executor) RunScheduled(ctx context.Context, workflowID string) (*models.Run, error) {
	workflow, err := e.workflows.WorkflowByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("load workflow %s: %w", workflowID, err)
	}

	if workflow.Schedule == nil || !workflow.Schedule.Enabled {
		return nil, fmt.Errorf("%w: workflow %s has no enabled schedule", ErrInvalidSchedule, workflowID)
	}

	result, runErr := e.ExecuteWorkflow(ctx, workflowID, nil, "")
	if errors.Is(runErr, ErrWorkflowNotFound) || errors.Is(runErr, ErrWorkflowInactive) {
		return nil, runErr
	}

	err = e.scheduleNext(ctx, workflow)
	if errors.Is(err, ErrInvalidSchedule) {
		e.logger.InfoContext(ctx, "Schedule finished", "workflow_id", workflowID)

		err = nil
	}

	return result, errors.Join(runErr, err)
}

// Dispatch routes a due continuation to its handler. It matches
// scheduler.Handler.
func (e *Executor) Dispatch(ctx context.Context, continuation models.Continuation) error {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.dispatch",
		attribute.String(otelhelper.ContinuationKey, string(continuation.Kind)),
		attribute.String(otelhelper.WorkflowIDKey, continuation.WorkflowID))
	defer span.End()

	var err error

	switch continuation.Kind {
	case models.ContinuationDelayedOutput:
		err = e.ResumeDelayedOutput(ctx, continuation)
	case models.ContinuationScheduledWorkflow:
		if continuation.Recurring {
			_, err = e.RunScheduled(ctx, continuation.WorkflowID)
		} else {
			_, err = e.ExecuteWorkflow(ctx, continuation.WorkflowID, continuation.Payload, continuation.ExecutionID)
		}
	default:
		err = fmt.Errorf("%w: unknown kind %q", ErrInvalidContinuation, continuation.Kind)
	}

	if err != nil {
		otelhelper.SetError(span, err)
	}

	return err
}

func (e *Executor) publish(ctx context.Context, key string, event eventbus.Event) {
	err := e.events.Publish(ctx, key, event)
	if err != nil {
		e.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// run is the state of one walk over an ordered workflow.
type run struct {
	executor  *Executor
	logger    *slog.Logger
	workflow  *models.Workflow
	exec      protocol.Execution
	results   *models.ResultMap
	skip      *graph.SkipSet
	scheduled bool
}

// walk executes the entry trigger first, then every other node in order
// unless a condition pruned it.
func (r *run) walk(ctx context.Context, ordered []*models.Node) error {
	entry := r.workflow.EntryTrigger()
	if entry != nil {
		r.step(ctx, entry)
	}

	for _, node := range ordered {
		if entry != nil && node.ID == entry.ID {
			continue
		}

		err := ctx.Err()
		if err != nil {
			return err
		}

		if r.skip.Has(node.ID) {
			r.logger.DebugContext(ctx, "Skipping pruned node", "node_id", node.ID)

			continue
		}

		r.step(ctx, node)
	}

	return nil
}

func (r *run) step(ctx context.Context, node *models.Node) {
	e := r.executor

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "workflow.node",
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.NodeTypeKey, string(node.Type)))
	defer span.End()

	started := e.now()
	result := r.dispatch(ctx, node, r.inputsFor(node.ID))

	err := r.results.Set(node.ID, result)
	if err != nil {
		r.logger.WarnContext(ctx, "Node result already recorded", "node_id", node.ID)

		return
	}

	if result.IsError() {
		otelhelper.SetError(span, errors.New(template.Stringify(result.Content)))
	}

	r.record(ctx, node, result)

	if node.Type == models.NodeTypeCondition {
		dead := condition.HandleTrue
		if condition.Outcome(result) {
			dead = condition.HandleFalse
		}

		r.skip.Add(graph.Downstream(node.ID, r.workflow.Edges, dead)...)
	}

	e.publish(ctx, r.exec.WorkflowID, events.NodeExecuted{
		BaseEvent:   events.NewBaseEvent(events.NodeExecutedEvent, r.exec.WorkflowID),
		ExecutionID: r.exec.ID,
		NodeID:      node.ID,
		NodeType:    node.Type,
		ResultType:  result.Type,
		Status:      result.Status,
		Duration:    e.now().Sub(started),
	})
}

func (r *run) dispatch(ctx context.Context, node *models.Node, inputs *models.ResultMap) models.NodeResult {
	executor, ok := r.executor.executors[node.Type]
	if !ok {
		r.logger.WarnContext(ctx, "Unsupported node type", "node_id", node.ID, "node_type", node.Type)

		return models.ErrorResult(fmt.Sprintf("Unsupported node type: %s", node.Type))
	}

	return executor.Execute(ctx, node, inputs, r.exec)
}

// inputsFor collects the results of the node's predecessors in edge order.
func (r *run) inputsFor(nodeID string) *models.ResultMap {
	inputs := models.NewResultMap()

	for _, edge := range r.workflow.Edges {
		if edge.Target != nodeID || inputs.Has(edge.Source) {
			continue
		}

		result, ok := r.results.Get(edge.Source)
		if !ok {
			continue
		}

		_ = inputs.Set(edge.Source, result)
	}

	return inputs
}

// record appends the node's line to the status log. A deferred output moves
// the execution to scheduled.
func (r *run) record(ctx context.Context, node *models.Node, result models.NodeResult) {
	e := r.executor
	entry := models.StatusEntry{NodeID: node.ID, Timestamp: e.now().UTC()}

	switch {
	case result.IsError():
		entry.Status = models.ExecutionStatusError
		entry.Message = result.Message

		if entry.Message == "" {
			entry.Message = template.Stringify(result.Content)
		}

		r.logger.WarnContext(ctx, "Node failed", "node_id", node.ID, "error", entry.Message)
	case result.Status == models.ResultStatusScheduled:
		entry.Status = models.ExecutionStatusScheduled
		entry.Message = result.Message
		r.scheduled = true

		err := e.executions.SetStatus(ctx, r.exec.ID, models.ExecutionStatusScheduled, result.ScheduledAt)
		if err != nil {
			r.logger.WarnContext(ctx, "Failed to mark execution scheduled", "error", err)
		}
	default:
		entry.Status = models.ExecutionStatusProcessing
		entry.Message = fmt.Sprintf("Executed %s node", node.Type)
	}

	err := e.executions.AppendStatus(ctx, r.exec.ID, entry)
	if err != nil {
		r.logger.WarnContext(ctx, "Failed to append status", "node_id", node.ID, "error", err)
	}
}
