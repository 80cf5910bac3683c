package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/astrostocks/pkg/config"
	"github.com/wonny/astrostocks/pkg/database"
	"github.com/wonny/astrostocks/pkg/logger"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	Long: `Creates or updates the cache, transit and market-data tables.
Already applied migrations are skipped.

Example:
  go run ./cmd/astro migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	db, err := database.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(cmd.Context())
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.WithField("applied", len(applied)).Info("Migrations complete")
	if len(applied) == 0 {
		PrintInfo("Schema is up to date")
		return nil
	}
	for _, v := range applied {
		PrintSuccess("Applied " + v)
	}
	return nil
}
