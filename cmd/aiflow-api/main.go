package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/dukex/aiflow/pkg/cmd"
	"github.com/dukex/aiflow/pkg/log"
	"github.com/dukex/aiflow/pkg/otelhelper"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "aiflow-api",
		Usage:                 "Create, run and manage AI workflows",
		EnableShellCompletion: true,
		Flags: append(cmd.EngineFlags(),
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "base-url",
				Usage:   "Public URL of the API, used in generated webhook URLs",
				Value:   "http://localhost:9091",
				Sources: cli.EnvVars("BASE_URL"),
			},
			&cli.BoolFlag{
				Name:    "worker",
				Usage:   "Also dispatch due continuations in this process (always on with the memory scheduler)",
				Sources: cli.EnvVars("EMBEDDED_WORKER"),
			},
		),
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")

			logger.InfoContext(ctx, "Initializing aiflow API")

			config := cmd.EngineConfigFrom(command)

			if command.Bool("tracing") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, "aiflow-api")
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

			if command.Bool("worker") || config.InProcessScheduler() {
				worker := cmd.NewWorker(logger, engine, cmd.DefaultPollInterval)

				err = worker.Start(ctx)
				if err != nil {
					return err
				}

				defer func() {
					if err := worker.Stop(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to stop worker", "error", err)
					}
				}()
			}

			if config.InProcessScheduler() {
				err = engine.ArmSchedules(ctx, logger)
				if err != nil {
					return err
				}
			}

			api := NewAPI(logger, engine, command.String("base-url"))

			return api.Start(ctx, int(command.Int("port")))
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := command.Run(ctx, os.Args)
	if err != nil {
		log.WithModule("api").Error("aiflow API stopped", "error", err)
		os.Exit(1)
	}
}
