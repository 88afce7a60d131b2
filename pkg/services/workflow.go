package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/aiflow/pkg/eventbus"
	"github.com/dukex/aiflow/pkg/events"
	"github.com/dukex/aiflow/pkg/graph"
	"github.com/dukex/aiflow/pkg/models"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/scheduler"
)

// ScheduleArmer replaces the pending recurring run of a workflow.
type ScheduleArmer interface {
	ArmSchedule(ctx context.Context, workflow *models.Workflow) error
}

type Workflow struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	validate    *validator.Validate
	armer       ScheduleArmer
	scheduler   scheduler.Scheduler
	events      eventbus.EventPublisher
	now         func() time.Time
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(logger *slog.Logger, persistence persistence.Persistence, armer ScheduleArmer, sched scheduler.Scheduler) *Workflow {
	return &Workflow{
		logger:      logger.With("module", "workflow_service"),
		persistence: persistence,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		armer:       armer,
		scheduler:   sched,
		events:      eventbus.NoopPublisher{},
		now:         time.Now,
	}
}

func (w *Workflow) WithEventPublisher(publisher eventbus.EventPublisher) *Workflow {
	w.events = publisher

	return w
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (w *Workflow) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := w.persistence.Workflows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	return workflows, nil
}

func (w *Workflow) FetchByID(ctx context.Context, id string) (*models.Workflow, error) {
	return w.persistence.WorkflowByID(ctx, id)
}

// Create stores a new workflow and arms its schedule. The status defaults to active.
func (w *Workflow) Create(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	workflow.ID = ""
	workflow.CreatedAt = time.Time{}
	workflow.LastExecuted = nil

	return w.save(ctx, "Create", workflow)
}

// Update replaces the workflow definition, keeping its creation time, its
// last execution time and the webhook keys of trigger nodes the new definition
// leaves empty. The schedule is re-armed.
func (w *Workflow) Update(ctx context.Context, id string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow == nil {
		return nil, ErrWorkflowNil
	}

	existing, err := w.persistence.WorkflowByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.ID = id
	workflow.CreatedAt = existing.CreatedAt
	workflow.LastExecuted = existing.LastExecuted

	keepWebhookKeys(existing, workflow)

	return w.save(ctx, "Update", workflow)
}

// Delete removes the workflow and drops its pending continuations.
func (w *Workflow) Delete(ctx context.Context, id string) error {
	err := w.persistence.DeleteWorkflow(ctx, id)
	if err != nil {
		return err
	}

	if w.scheduler != nil {
		err = w.scheduler.CancelAllFor(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to cancel continuations of workflow %s: %w", id, err)
		}
	}

	w.logger.InfoContext(ctx, "Workflow deleted", "workflow_id", id)

	w.publish(ctx, id, events.WorkflowDeleted{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id),
	})

	return nil
}

func (w *Workflow) save(ctx context.Context, op string, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.Status == "" {
		workflow.Status = models.WorkflowStatusActive
	}

	err := w.check(op, workflow)
	if err != nil {
		return nil, err
	}

	err = w.persistence.SaveWorkflow(ctx, workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to save workflow: %w", err)
	}

	scheduled := false

	if w.armer != nil {
		err = w.armer.ArmSchedule(ctx, workflow)
		if err != nil {
			return nil, fmt.Errorf("failed to arm schedule of workflow %s: %w", workflow.ID, err)
		}

		scheduled = workflow.IsActive() && workflow.Schedule != nil && workflow.Schedule.Enabled
	}

	w.logger.InfoContext(ctx, "Workflow saved", "workflow_id", workflow.ID, "scheduled", scheduled)

	w.publish(ctx, workflow.ID, events.WorkflowSaved{
		BaseEvent: events.NewBaseEvent(events.WorkflowSavedEvent, workflow.ID),
		Name:      workflow.Name,
		Status:    workflow.Status,
		Scheduled: scheduled,
	})

	return workflow, nil
}

// check rejects workflows the executor could not run: invalid fields or node
// data, edges to unknown nodes, cycles and schedules without a next run.
func (w *Workflow) check(op string, workflow *models.Workflow) error {
	err := models.ValidateWorkflow(w.validate, workflow)
	if err != nil {
		return NewValidationError(op, "invalid_workflow", err.Error(), err)
	}

	for _, edge := range workflow.Edges {
		for _, end := range []string{edge.Source, edge.Target} {
			if workflow.NodeByID(end) == nil {
				err = fmt.Errorf("%w: edge %s references %s", ErrNodeNotFound, edge.ID, end)

				return NewValidationError(op, "unknown_node", err.Error(), err)
			}
		}
	}

	err = graph.Validate(workflow.Nodes, workflow.Edges)
	if err != nil {
		return NewValidationError(op, "cyclic_graph", err.Error(), err)
	}

	if workflow.Schedule != nil && workflow.Schedule.Enabled {
		_, err = workflow.Schedule.NextRun(w.now())
		if err != nil {
			return NewValidationError(op, "invalid_schedule", err.Error(), err)
		}
	}

	return nil
}

func (w *Workflow) publish(ctx context.Context, key string, event eventbus.Event) {
	err := w.events.Publish(ctx, key, event)
	if err != nil {
		w.logger.WarnContext(ctx, "Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func keepWebhookKeys(existing, updated *models.Workflow) {
	for _, node := range updated.Nodes {
		data, ok := node.Data.(*models.TriggerData)
		if !ok || data.WebhookKey != "" {
			continue
		}

		previous := existing.NodeByID(node.ID)
		if previous == nil {
			continue
		}

		if previousData, ok := previous.Data.(*models.TriggerData); ok {
			data.WebhookKey = previousData.WebhookKey
		}
	}
}
