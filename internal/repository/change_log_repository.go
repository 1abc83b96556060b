package repository

import (
	"context"

	"github.com/yukikurage/task-insights-api/internal/models"
	"gorm.io/gorm"
)

// GormChangeLogRepository is a GORM implementation of ChangeLogRepository
type GormChangeLogRepository struct {
	db *gorm.DB
}

// NewChangeLogRepository creates a new ChangeLogRepository
func NewChangeLogRepository(db *gorm.DB) ChangeLogRepository {
	return &GormChangeLogRepository{db: db}
}

// Create appends a log entry
func (r *GormChangeLogRepository) Create(ctx context.Context, entry *models.TaskChangeLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByTask returns a task's history in write order
func (r *GormChangeLogRepository) ListByTask(ctx context.Context, taskID uint64) ([]models.TaskChangeLog, error) {
	var entries []models.TaskChangeLog
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("task_revision ASC").Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListCompletionEvents returns every completion log entry of the user,
// oldest revision first
func (r *GormChangeLogRepository) ListCompletionEvents(ctx context.Context, userID uint64) ([]models.TaskChangeLog, error) {
	var entries []models.TaskChangeLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND change_type IN ? AND completed_at IS NOT NULL", userID,
			[]models.ChangeType{models.ChangeCompleted, models.ChangeDateChanged}).
		Order("task_revision ASC").Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
