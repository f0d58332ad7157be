// Command registrarctl runs operator tasks against the registrar database:
// schema migrations, waitlist promotion replay, timetable and roster exports
// and token minting for service accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-registrar-api/internal/app"
	"github.com/noah-isme/academic-registrar-api/pkg/config"
	"github.com/noah-isme/academic-registrar-api/pkg/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "registrarctl",
		Short:         "Academic registrar operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(migrateCmd(), promotionsCmd(), calendarCmd(), rosterCmd(), exportsCmd(), tokenCmd())
	return cmd
}

// cliEnv bundles what every subcommand needs.
type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func loadRuntime() (*cliEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return &cliEnv{cfg: cfg, logger: log}, nil
}

// withContainer builds the service container, runs fn and tears everything
// down. SIGINT cancels the context passed to fn.
func withContainer(parent context.Context, fn func(context.Context, *app.Container) error) error {
	rt, err := loadRuntime()
	if err != nil {
		return err
	}
	defer rt.logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	container, err := app.Build(ctx, rt.cfg, rt.logger)
	if err != nil {
		return err
	}
	runErr := fn(ctx, container)
	if err := container.Close(); err != nil {
		rt.logger.Warn("shutdown", zap.Error(err))
	}
	return runErr
}
