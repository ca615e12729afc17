package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes to a Postgres database
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"tasks", "idx_tasks_team_order", "team_id, display_order"},
		{"tasks", "idx_tasks_daily_status", "is_daily, status"},
		{"tasks", "idx_tasks_due_date", "due_date"},

		{"team_members", "idx_team_members_user_id", "user_id"},
		{"task_assignments", "idx_task_assignments_user_id", "user_id"},

		{"notifications", "idx_notifications_user_created", "user_id, created_at DESC"},
		{"reminder_jobs", "idx_reminder_jobs_due", "status, fire_at"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Printf("Created index %s on %s(%s)", idx.name, idx.table, idx.columns)
	}

	return nil
}

// RunSQLMigrations applies the versioned SQL files in dir (stored procedures and
// other objects AutoMigrate cannot express). Postgres only.
func RunSQLMigrations(db *gorm.DB, dir string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to init migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("sql migration failed: %w", err)
	}

	log.Println("SQL migrations are up-to-date")
	return nil
}

// MigrateDatabase runs every migration step appropriate for the driver.
func MigrateDatabase(db *gorm.DB, driver, migrationsDir string) error {
	if err := Migrate(db); err != nil {
		return err
	}

	if driver != "postgres" {
		log.Printf("Skipping indexes and SQL migrations for driver %s", driver)
		return nil
	}

	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return RunSQLMigrations(db, migrationsDir)
}
