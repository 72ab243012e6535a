package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ChrisMoss87/vrtx-sub009/pkg/cmd"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/log"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/otelhelper"
	"github.com/ChrisMoss87/vrtx-sub009/pkg/persistence/memory"
	cli "github.com/urfave/cli/v3"
)

var errInvalidSteps = errors.New("step file has invalid steps")

func schemasCommand() *cli.Command {
	return &cli.Command{
		Name:  "schemas",
		Usage: "Print the configuration schema of every action type",
		Action: func(_ context.Context, command *cli.Command) error {
			reg, err := cmd.NewRegistry(log.WithModule("crmflow"), offlineConfig(log.WithModule("crmflow")))
			if err != nil {
				return err
			}

			return writeJSON(command.Root().Writer, reg.AllConfigSchemas())
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a JSON step list",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the step file",
				Required: true,
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := log.WithModule("crmflow")

			raw, err := os.ReadFile(command.String("file"))
			if err != nil {
				return fmt.Errorf("failed to read step file: %w", err)
			}

			steps, err := cmd.ParseSteps(raw)
			if err != nil {
				return err
			}

			reg, err := cmd.NewRegistry(logger, offlineConfig(logger))
			if err != nil {
				return err
			}

			reports := cmd.ValidateSteps(reg, steps)
			if len(reports) == 0 {
				logger.InfoContext(ctx, "Step file is valid", "steps", len(steps))

				return nil
			}

			if err := writeJSON(command.Root().Writer, reports); err != nil {
				return err
			}

			return fmt.Errorf("%w: %d of %d", errInvalidSteps, len(reports), len(steps))
		},
	}
}

func execCommand() *cli.Command {
	return &cli.Command{
		Name:  "exec",
		Usage: "Run a single action against a stored record",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "type", Usage: "Action type", Required: true},
			&cli.StringFlag{Name: "config", Usage: "Path to the action config JSON", Required: true},
			&cli.Int64Flag{Name: "record-id", Usage: "Triggering record id", Required: true},
			&cli.Int64Flag{Name: "triggered-by", Usage: "User that triggered the workflow"},
		},
		Action: runExec,
	}
}

func runExec(ctx context.Context, command *cli.Command) error {
	logger := log.WithModule("crmflow").With("action_type", command.String("type"))

	config, err := cmd.ReadConfig(command.String("config"))
	if err != nil {
		return err
	}

	tracer := otelhelper.NoopTracer()

	if command.Bool("otel-enabled") {
		var shutdown otelhelper.ShutdownFunc

		tracer, shutdown, err = otelhelper.NewTracer(ctx, "crmflow")
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}

		defer func() {
			if err := shutdown(context.Background()); err != nil {
				logger.ErrorContext(ctx, "Failed to flush traces", "error", err)
			}
		}()
	}

	store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(ctx); err != nil {
			logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
		}
	}()

	coordination, err := cmd.NewCoordination(ctx, command.String("redis-url"))
	if err != nil {
		return err
	}
	defer func() {
		if err := coordination.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close coordination", "error", err)
		}
	}()

	eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	reg, err := cmd.NewRegistry(logger, cmd.RegistryConfig{
		Persistence:  store,
		Coordination: coordination,
		Email: cmd.NewEmailSender(logger, cmd.EmailConfig{
			Addr:     command.String("smtp-addr"),
			From:     command.String("smtp-from"),
			Username: command.String("smtp-username"),
			Password: command.String("smtp-password"),
		}),
		EventBus: eventBus,
		Tracer:   tracer,
	})
	if err != nil {
		return err
	}

	var triggeredBy *int64
	if command.IsSet("triggered-by") {
		user := command.Int64("triggered-by")
		triggeredBy = &user
	}

	execCtx, err := cmd.LoadExecutionContext(ctx, store, command.Int64("record-id"), triggeredBy)
	if err != nil {
		return err
	}

	output, err := reg.Handle(ctx, command.String("type"), config, execCtx)
	if err != nil {
		return err
	}

	return writeJSON(command.Root().Writer, output)
}

// offlineConfig backs commands that never touch a real store.
func offlineConfig(logger *slog.Logger) cmd.RegistryConfig {
	coordination, _ := cmd.NewCoordination(context.Background(), "")

	return cmd.RegistryConfig{
		Persistence:  memory.NewStore(),
		Coordination: coordination,
		Email:        cmd.NewEmailSender(logger, cmd.EmailConfig{}),
	}
}

func writeJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}
