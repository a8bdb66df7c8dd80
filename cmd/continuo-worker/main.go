package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/corvand/continuo/pkg/cmd"
	"github.com/corvand/continuo/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "continuo-worker",
		EnableShellCompletion: true,
		Usage:                 "Start workers to execute workflows and agent runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (file:// or postgres://)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "journal-url",
				Usage:   "Journal store URL (memory://, file://path, redis://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("JOURNAL_URL"),
			},
			&cli.StringFlag{
				Name:    "plugins-path",
				Usage:   "Path to the directory containing node and agent port plugins",
				Value:   "",
				Sources: cli.EnvVars("PLUGINS_PATH"),
			},
			&cli.StringFlag{
				Name:    "agents-path",
				Usage:   "Directory of agent configuration files, one JSON per agent",
				Value:   "./agents",
				Sources: cli.EnvVars("AGENTS_PATH"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("continuo-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Continuo Worker")

			registry := cmd.NewRegistry(ctx, logger, command.String("plugins-path"))

			eventBus := cmd.NewEventBus(command.String("event-bus"), logger)
			defer func() {
				err := eventBus.Close()
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				err := store.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			journal := cmd.NewJournalStore(command.String("journal-url"))
			defer func() {
				err := journal.Close(ctx)
				if err != nil {
					logger.ErrorContext(ctx, "Failed to close journal store", "error", err)
				}
			}()

			agentPorts, err := loadAgentPorts(ctx, logger, command.String("plugins-path"))
			if err != nil {
				return err
			}

			worker := NewWorkerManager(
				workerID,
				store,
				eventBus,
				logger,
				registry,
				journal,
				command.String("agents-path"),
				agentPorts,
			)

			err = worker.Start(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start event-driven worker", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
