// Package main provides the aiflow worker, which runs scheduled workflows,
// webhook deliveries and delayed outputs as they fall due.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/dukex/aiflow/pkg/cmd"
	"github.com/dukex/aiflow/pkg/log"
	"github.com/dukex/aiflow/pkg/otelhelper"
)

func main() {
	command := &cli.Command{
		Name:                  "aiflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Dispatch due continuations to the workflow executor",
		Flags: append(cmd.EngineFlags(),
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Usage:   "How often the scheduler is polled for due continuations",
				Value:   cmd.DefaultPollInterval,
				Sources: cli.EnvVars("POLL_INTERVAL"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("aiflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing aiflow worker")

			config := cmd.EngineConfigFrom(command)
			if config.InProcessScheduler() {
				logger.WarnContext(ctx, "The memory scheduler is not shared with the API; only continuations created by this worker will run")
			}

			if command.Bool("tracing") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, "aiflow-worker")
				if err != nil {
					return err
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				config.Tracer = tracer
			}

			engine, err := cmd.NewEngine(ctx, logger, config)
			if err != nil {
				return err
			}

			defer func() {
				if err := engine.Close(context.Background()); err != nil {
					logger.ErrorContext(ctx, "Failed to close engine", "error", err)
				}
			}()

			if config.InProcessScheduler() {
				err = engine.ArmSchedules(ctx, logger)
				if err != nil {
					return err
				}
			}

			worker := cmd.NewWorker(logger, engine, command.Duration("poll-interval"))

			err = worker.Start(ctx)
			if err != nil {
				return err
			}

			<-ctx.Done()

			logger.InfoContext(ctx, "Shutting down worker")

			return worker.Stop(context.Background())
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule("aiflow-worker").Error("aiflow worker stopped", "error", err)
		os.Exit(1)
	}
}
