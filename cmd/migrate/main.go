package main

// Run database migrations:
//   go run ./cmd/migrate up
//   go run ./cmd/migrate down
//   go run ./cmd/migrate version

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"reflection-backend/internal/shared/config"
	"reflection-backend/internal/shared/storage/db"
	"reflection-backend/internal/shared/telemetry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"error": err})
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Manage the generation log schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Bare invocation applies pending migrations.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
				return db.RunMigrations(ctx, sqlDB)
			})
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
					return db.RunMigrations(ctx, sqlDB)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
					return db.RollbackMigration(ctx, sqlDB)
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDB(cmd.Context(), func(ctx context.Context, sqlDB *sql.DB) error {
					v, err := db.MigrationVersion(ctx, sqlDB)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), v)
					return nil
				})
			},
		},
	)
	return root
}

func withDB(ctx context.Context, fn func(context.Context, *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel)
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer sqlDB.Close()
	return fn(ctx, sqlDB)
}
