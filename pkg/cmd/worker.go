package cmd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dukex/aiflow/pkg/events"
	"github.com/dukex/aiflow/pkg/scheduler"
)

const DefaultPollInterval = time.Second

// Worker dispatches due continuations to the engine's executor and logs the
// lifecycle events published on the bus.
type Worker struct {
	logger *slog.Logger
	engine *Engine
	poller *scheduler.Poller
}

func NewWorker(logger *slog.Logger, engine *Engine, interval time.Duration) *Worker {
	return &Worker{
		logger: logger,
		engine: engine,
		poller: scheduler.NewPoller(logger, engine.Scheduler, engine.Executor.Dispatch, interval),
	}
}

// Start subscribes to lifecycle events and starts polling. It returns once
// both are running.
func (w *Worker) Start(ctx context.Context) error {
	for _, eventType := range []events.EventType{
		events.ExecutionFinishedEvent,
		events.ExecutionFailedEvent,
		events.ExecutionTerminatedEvent,
	} {
		err := w.engine.EventBus.Handle(eventType, w.logEvent)
		if err != nil {
			return err
		}
	}

	err := w.engine.EventBus.Subscribe(ctx)
	if err != nil {
		return err
	}

	err = w.poller.Start(ctx)
	if err != nil {
		return err
	}

	w.logger.InfoContext(ctx, "Worker started")

	return nil
}

func (w *Worker) Stop(ctx context.Context) error {
	return w.poller.Stop(ctx)
}

func (w *Worker) logEvent(ctx context.Context, event any) error {
	switch e := event.(type) {
	case *events.ExecutionFinished:
		w.logger.InfoContext(ctx, "Execution finished",
			"workflow_id", e.WorkflowID,
			"execution_id", e.ExecutionID,
			"status", e.Status,
			"duration", e.Duration)
	case *events.ExecutionFailed:
		w.logger.WarnContext(ctx, "Execution failed",
			"workflow_id", e.WorkflowID,
			"execution_id", e.ExecutionID,
			"error", e.Error)
	case *events.ExecutionTerminated:
		w.logger.InfoContext(ctx, "Execution terminated",
			"workflow_id", e.WorkflowID,
			"execution_id", e.ExecutionID)
	default:
		return errors.New("unexpected event")
	}

	return nil
}
