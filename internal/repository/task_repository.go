package repository

import (
	"context"
	"time"

	"github.com/yukikurage/task-insights-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Create(task).Error
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.user_id = ?", filter.UserID)

	// Apply filters
	if filter.StatusID != nil {
		query = query.Where("tasks.status_id = ?", *filter.StatusID)
	}
	if filter.CategoryID != nil {
		query = query.Where("tasks.category_id = ?", *filter.CategoryID)
	}
	if filter.IsCompleted != nil {
		query = query.Where("tasks.is_completed = ?", *filter.IsCompleted)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("tasks.created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("tasks.created_at < ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC").Order("tasks.id DESC")
	if filter.Limit > 0 {
		listQuery = listQuery.Offset(filter.Offset).Limit(filter.Limit)
	}

	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// Delete removes the task, drops its notifications and detaches its change
// log so history outlives the fact row.
func (r *GormTaskRepository) Delete(ctx context.Context, userID, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? AND user_id = ?", id, userID).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.TaskChangeLog{}).
			Where("task_id = ? AND user_id = ?", id, userID).
			Update("task_id", nil).Error; err != nil {
			return err
		}

		result := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// ListIDsByStatus returns ids of incomplete tasks in a status
func (r *GormTaskRepository) ListIDsByStatus(ctx context.Context, userID, statusID uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ? AND status_id = ? AND is_completed = ?", userID, statusID, false).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// MarkOverdue bulk-transitions past-due incomplete tasks into the overdue status
func (r *GormTaskRepository) MarkOverdue(ctx context.Context, userID, overdueStatusID uint64, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ? AND is_completed = ? AND due_date IS NOT NULL AND due_date < ? AND status_id <> ?",
			userID, false, now, overdueStatusID).
		Update("status_id", overdueStatusID)
	return result.RowsAffected, result.Error
}

// ListIncomplete returns every incomplete task of the user
func (r *GormTaskRepository) ListIncomplete(ctx context.Context, userID uint64) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ?", userID, false).
		Order("id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListCreatedIn returns tasks created inside the range
func (r *GormTaskRepository) ListCreatedIn(ctx context.Context, userID uint64, dr DateRange) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	query = applyRange(query, "created_at", dr)
	if err := query.Order("created_at ASC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// ListCompletedIn returns completed tasks whose completion falls inside the range
func (r *GormTaskRepository) ListCompletedIn(ctx context.Context, userID uint64, dr DateRange) ([]models.Task, error) {
	var tasks []models.Task
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND is_completed = ? AND completed_at IS NOT NULL", userID, true)
	query = applyRange(query, "completed_at", dr)
	if err := query.Order("completed_at ASC").Order("id ASC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// FirstCreatedAt returns the creation time of the oldest task
func (r *GormTaskRepository) FirstCreatedAt(ctx context.Context, userID uint64) (*time.Time, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(1).
		Find(&task).Error
	if err != nil {
		return nil, err
	}
	if task.ID == 0 {
		return nil, nil
	}
	return &task.CreatedAt, nil
}

// ListUserIDsWithOverdueCandidates returns owners of past-due incomplete tasks
func (r *GormTaskRepository) ListUserIDsWithOverdueCandidates(ctx context.Context, overdueStatusID uint64, now time.Time) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.Task{}).
		Where("is_completed = ? AND due_date IS NOT NULL AND due_date < ? AND status_id <> ?", false, now, overdueStatusID).
		Distinct("user_id").
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

func applyRange(query *gorm.DB, column string, dr DateRange) *gorm.DB {
	if dr.From != nil {
		query = query.Where(column+" >= ?", *dr.From)
	}
	if dr.To != nil {
		query = query.Where(column+" < ?", *dr.To)
	}
	return query
}
