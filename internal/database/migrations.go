package database

import (
	"fmt"

	"gorm.io/gorm"
)

type compositeIndex struct {
	table   string
	name    string
	columns string
}

// Indexes backing the analytics and reconciliation queries.
var compositeIndexes = []compositeIndex{
	{"tasks", "idx_tasks_user_created", "user_id, created_at"},
	{"tasks", "idx_tasks_user_completed", "user_id, is_completed, due_date"},
	{"task_change_logs", "idx_change_logs_user_type", "user_id, change_type, completed_at"},
	{"notifications", "idx_notifications_dedup", "user_id, task_id, type, created_at"},
}

// AddIndexes adds composite indexes that AutoMigrate cannot express.
func AddIndexes(db *gorm.DB) error {
	migrator := db.Migrator()

	for _, idx := range compositeIndexes {
		if migrator.HasIndex(idx.table, idx.name) {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}

// MigrateDatabase runs all schema work after AutoMigrate.
func MigrateDatabase(db *gorm.DB) error {
	if err := AddIndexes(db); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	return nil
}
