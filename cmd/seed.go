package cmd

import (
	"fmt"
	"log/slog"

	"github.com/campus-events/apiserver/config"
	"github.com/campus-events/apiserver/internal/clock"
	"github.com/campus-events/apiserver/internal/db"
	"github.com/campus-events/apiserver/internal/store"
	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert sample events and users into empty tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer dbConn.Close()

		storeDB := store.NewDB(dbConn, store.DialectFor(cfg.Database.Driver))
		events, users, err := store.Seed(cmd.Context(), storeDB, clock.NewSystem())
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		slog.Info("database seeded", "events", events, "users", users)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
