package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/campus-events/apiserver/config"
	"github.com/campus-events/apiserver/internal/db"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all up migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, func(m *migrate.Migrate) error { return m.Up() })
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the most recent migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, func(m *migrate.Migrate) error { return m.Steps(-1) })
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

func runMigration(cmd *cobra.Command, step func(*migrate.Migrate) error) error {
	cfg := config.LoadConfig()

	// SQLite databases are migrated as part of opening them.
	dbConn, err := db.Open(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}

	migrator, err := db.NewMigrator(dbConn, cfg.Database.Driver)
	if err != nil {
		_ = dbConn.Close()
		return fmt.Errorf("init migrator failed: %w", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := step(migrator); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("no migration to apply")
			return nil
		}
		return fmt.Errorf("%s failed: %w", cmd.CommandPath(), err)
	}

	version, dirty, err := migrator.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	slog.Info("migration complete", "version", version, "dirty", dirty)
	return nil
}
