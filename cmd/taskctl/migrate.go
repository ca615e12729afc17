package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yukikurage/taskflow-api/internal/config"
	"github.com/yukikurage/taskflow-api/internal/database"
)

var migrationsDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply table, index and SQL migrations",
	Long:  `Runs AutoMigrate for every table, then (on Postgres) the indexes and the versioned SQL files such as the daily reset procedure.`,
	RunE:  runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "SQL migrations directory (defaults to MIGRATIONS_DIR)")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	if migrationsDir != "" {
		cfg.MigrationsDir = migrationsDir
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	defer sqlDB.Close()

	if err := database.MigrateDatabase(db, cfg.DBDriver, cfg.MigrationsDir); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
	return nil
}
