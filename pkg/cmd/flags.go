package cmd

import (
	"strings"

	cli "github.com/urfave/cli/v3"
)

// EngineFlags are the backend flags shared by the API and the worker.
func EngineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "database-url",
			Usage:    "Database connection URL for persistence (path, file://, sqlite://, postgres://)",
			Required: true,
			Sources:  cli.EnvVars("DATABASE_URL"),
		},
		&cli.StringFlag{
			Name:    "scheduler-url",
			Usage:   "Scheduler store (memory or redis://host:port/db)",
			Value:   "memory",
			Sources: cli.EnvVars("SCHEDULER_URL"),
		},
		&cli.StringFlag{
			Name:    "event-bus",
			Usage:   "Event bus type (gochannel, kafka)",
			Value:   "gochannel",
			Sources: cli.EnvVars("EVENT_BUS_TYPE"),
		},
		&cli.StringFlag{
			Name:    "kafka-brokers",
			Usage:   "Comma separated Kafka brokers",
			Sources: cli.EnvVars("KAFKA_BROKERS"),
		},
		&cli.StringFlag{
			Name:    "openai-api-key",
			Usage:   "API key for AI model nodes",
			Sources: cli.EnvVars("OPENAI_API_KEY"),
		},
		&cli.StringFlag{
			Name:    "openai-base-url",
			Usage:   "OpenAI compatible endpoint",
			Sources: cli.EnvVars("OPENAI_BASE_URL"),
		},
		&cli.StringFlag{
			Name:    "plugins-path",
			Usage:   "Path to the directory containing node plugins",
			Sources: cli.EnvVars("PLUGINS_PATH"),
		},
		&cli.BoolFlag{
			Name:    "tracing",
			Usage:   "Export traces over OTLP/HTTP",
			Sources: cli.EnvVars("OTEL_ENABLED"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log level (debug, info, warn, error)",
			Value:   "info",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "Log format (text, json)",
			Value:   "text",
			Sources: cli.EnvVars("LOG_FORMAT"),
		},
	}
}

// EngineConfigFrom reads the values of EngineFlags.
func EngineConfigFrom(command *cli.Command) EngineConfig {
	var brokers []string
	if value := command.String("kafka-brokers"); value != "" {
		brokers = strings.Split(value, ",")
	}

	return EngineConfig{
		DatabaseURL:   command.String("database-url"),
		SchedulerURL:  command.String("scheduler-url"),
		EventBus:      command.String("event-bus"),
		KafkaBrokers:  brokers,
		OpenAIAPIKey:  command.String("openai-api-key"),
		OpenAIBaseURL: command.String("openai-base-url"),
		PluginsPath:   command.String("plugins-path"),
	}
}

// InProcessScheduler reports whether the scheduler lives in this process only.
func (c EngineConfig) InProcessScheduler() bool {
	return c.SchedulerURL == "" || c.SchedulerURL == "memory"
}
