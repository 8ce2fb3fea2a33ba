package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/rms/internal/storage/postgres"
	"github.com/vladislavdragonenkov/rms/internal/version"
)

const (
	defaultTimeout = 30 * time.Second
	dsnEnv         = "RMS_POSTGRES_DSN"
)

var errDSNRequired = errors.New(dsnEnv + " (or --dsn) is required")

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd собирает команды up, down и status.
func newRootCmd(out io.Writer) *cobra.Command {
	var (
		dsn       string
		upSteps   int
		downSteps int
	)

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Управление схемой PostgreSQL restaurant-service",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (fallback: "+dsnEnv+")")
	root.SetOut(out)

	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, store *postgres.Store) error) error {
		resolved := strings.TrimSpace(dsn)
		if resolved == "" {
			resolved = strings.TrimSpace(os.Getenv(dsnEnv))
		}
		if resolved == "" {
			return errDSNRequired
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), defaultTimeout)
		defer cancel()

		store, err := postgres.Open(ctx, resolved)
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		defer store.Close()

		return fn(ctx, store)
	}

	report := func(ctx context.Context, store *postgres.Store, prefix string) error {
		status, err := store.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status failed: %w", err)
		}
		_, err = fmt.Fprintf(out, "%s: version=%d applied=%d pending=%d\n", prefix, status.Version, status.Applied, status.Pending)
		return err
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Применить миграции (--steps=0 применяет все)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
				if err := store.MigrateUp(ctx, upSteps); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return report(ctx, store, "migrate up ok")
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "number of migrations to apply")

	down := &cobra.Command{
		Use:   "down",
		Short: "Откатить миграции (по умолчанию одну)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
				if err := store.MigrateDown(ctx, downSteps); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return report(ctx, store, "migrate down ok")
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 1, "number of migrations to roll back")

	status := &cobra.Command{
		Use:   "status",
		Short: "Показать состояние схемы",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, func(ctx context.Context, store *postgres.Store) error {
				return report(ctx, store, "migration status")
			})
		},
	}

	root.AddCommand(up, down, status)
	return root
}
