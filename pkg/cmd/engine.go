package cmd

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/dukex/aiflow/pkg/ai"
	"github.com/dukex/aiflow/pkg/eventbus"
	"github.com/dukex/aiflow/pkg/httpclient"
	"github.com/dukex/aiflow/pkg/otelhelper"
	"github.com/dukex/aiflow/pkg/persistence"
	"github.com/dukex/aiflow/pkg/protocol"
	"github.com/dukex/aiflow/pkg/registry"
	"github.com/dukex/aiflow/pkg/scheduler"
	"github.com/dukex/aiflow/pkg/workflow"
)

// EngineConfig selects the backends shared by the API and the worker.
type EngineConfig struct {
	DatabaseURL   string
	SchedulerURL  string
	EventBus      string
	KafkaBrokers  []string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	PluginsPath   string
	Tracer        trace.Tracer
}

// Engine is the executor with the stores and collaborators it runs against.
type Engine struct {
	Persistence persistence.Persistence
	Scheduler   scheduler.Store
	EventBus    eventbus.EventBus
	Registry    *registry.Registry
	Executor    *workflow.Executor
}

func NewEngine(ctx context.Context, logger *slog.Logger, config EngineConfig) (*Engine, error) {
	reg, err := NewRegistry(logger, config.PluginsPath)
	if err != nil {
		return nil, err
	}

	store, err := NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	sched, err := NewScheduler(ctx, logger, config.SchedulerURL)
	if err != nil {
		_ = store.Close(ctx)

		return nil, err
	}

	bus, err := NewEventBus(config.EventBus, config.KafkaBrokers, logger)
	if err != nil {
		_ = sched.Close()
		_ = store.Close(ctx)

		return nil, err
	}

	var opts []ai.Option
	if config.OpenAIBaseURL != "" {
		opts = append(opts, ai.WithBaseURL(config.OpenAIBaseURL))
	}

	tracer := config.Tracer
	if tracer == nil {
		tracer = otelhelper.NoopTracer()
	}

	executor := workflow.NewExecutor(logger, store, reg, protocol.Dependencies{
		Logger:    logger,
		Completer: ai.NewOpenAIClient(logger, config.OpenAIAPIKey, opts...),
		Webhooks:  httpclient.NewWebhookClient(),
		Scheduler: sched,
	}).WithEventPublisher(bus).WithTracer(tracer)

	return &Engine{
		Persistence: store,
		Scheduler:   sched,
		EventBus:    bus,
		Registry:    reg,
		Executor:    executor,
	}, nil
}

func (e *Engine) Close(ctx context.Context) error {
	return errors.Join(
		e.EventBus.Close(),
		e.Scheduler.Close(),
		e.Persistence.Close(ctx),
	)
}

// ArmSchedules re-arms the recurring runs of every workflow, for schedulers
// that lose their pending continuations on restart.
func (e *Engine) ArmSchedules(ctx context.Context, logger *slog.Logger) error {
	workflows, err := e.Persistence.Workflows(ctx)
	if err != nil {
		return err
	}

	for _, workflow := range workflows {
		err = e.Executor.ArmSchedule(ctx, workflow)
		if err != nil {
			logger.WarnContext(ctx, "Failed to arm schedule", "workflow_id", workflow.ID, "error", err)
		}
	}

	return nil
}
