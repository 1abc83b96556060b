package repository

import (
	"context"
	"time"

	"github.com/yukikurage/task-insights-api/internal/models"
)

// DateRange bounds a query on [From, To). Either side may be nil.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Contains reports whether t lies in [From, To).
func (r DateRange) Contains(t time.Time) bool {
	if r.From != nil && t.Before(*r.From) {
		return false
	}
	return r.To == nil || t.Before(*r.To)
}

// IsZero reports whether neither bound is set.
func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID regardless of owner
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update saves every column of the task
	Update(ctx context.Context, task *models.Task) error

	// Delete hard deletes a task owned by userID
	Delete(ctx context.Context, userID, id uint64) error

	// ListIDsByStatus returns ids of the user's incomplete tasks in a status
	ListIDsByStatus(ctx context.Context, userID, statusID uint64) ([]uint64, error)

	// MarkOverdue moves incomplete tasks whose due date is before now into
	// the overdue status in one statement and returns the affected row count
	MarkOverdue(ctx context.Context, userID, overdueStatusID uint64, now time.Time) (int64, error)

	// ListIncomplete returns every incomplete task of the user
	ListIncomplete(ctx context.Context, userID uint64) ([]models.Task, error)

	// ListCreatedIn returns the user's tasks created inside the range
	ListCreatedIn(ctx context.Context, userID uint64, r DateRange) ([]models.Task, error)

	// ListCompletedIn returns the user's completed tasks whose completion falls inside the range
	ListCompletedIn(ctx context.Context, userID uint64, r DateRange) ([]models.Task, error)

	// FirstCreatedAt returns the creation time of the user's oldest task
	FirstCreatedAt(ctx context.Context, userID uint64) (*time.Time, error)

	// ListUserIDsWithOverdueCandidates returns owners of incomplete past-due tasks
	ListUserIDsWithOverdueCandidates(ctx context.Context, overdueStatusID uint64, now time.Time) ([]uint64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	UserID      uint64
	StatusID    *uint64
	CategoryID  *uint64
	IsCompleted *bool
	Priority    *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Offset      int
	Limit       int
}

// ChangeLogRepository defines the interface for the append-only change log
type ChangeLogRepository interface {
	// Create appends a log entry
	Create(ctx context.Context, entry *models.TaskChangeLog) error

	// ListByTask returns a task's history in write order
	ListByTask(ctx context.Context, taskID uint64) ([]models.TaskChangeLog, error)

	// ListCompletionEvents returns completed/date_changed entries carrying a
	// completion timestamp, oldest revision first
	ListCompletionEvents(ctx context.Context, userID uint64) ([]models.TaskChangeLog, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	// Create creates a notification
	Create(ctx context.Context, n *models.Notification) error

	// ExistsSince reports whether a notification of the type exists for the task since the given time
	ExistsSince(ctx context.Context, userID, taskID uint64, typ models.NotificationType, since time.Time) (bool, error)

	// List returns the user's notifications, newest first
	List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]models.Notification, error)

	// CountUnread counts unread notifications
	CountUnread(ctx context.Context, userID uint64) (int64, error)

	// MarkRead marks one of the user's notifications read; it returns
	// gorm.ErrRecordNotFound when the user has no such notification
	MarkRead(ctx context.Context, userID, id uint64) error

	// MarkAllRead marks every unread notification read
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)

	// ListUnreadForTasks returns unread task notifications, newest first
	ListUnreadForTasks(ctx context.Context, userID uint64) ([]models.Notification, error)

	// DeleteByIDs deletes the user's notifications with the given ids
	DeleteByIDs(ctx context.Context, userID uint64, ids []uint64) (int64, error)
}

// StatusRepository defines the interface for the status reference table
type StatusRepository interface {
	// List returns every status ordered by display order
	List(ctx context.Context) ([]models.Status, error)

	// FindByIDs batch-loads statuses
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Status, error)

	// Seed inserts missing default statuses
	Seed(ctx context.Context, statuses []models.Status) error
}

// CategoryRepository defines the interface for the category reference table
type CategoryRepository interface {
	// Create creates a category
	Create(ctx context.Context, category *models.Category) error

	// List returns all categories ordered by name
	List(ctx context.Context) ([]models.Category, error)

	// FindByID finds a category by ID
	FindByID(ctx context.Context, id uint64) (*models.Category, error)

	// FindByIDs batch-loads categories
	FindByIDs(ctx context.Context, ids []uint64) ([]models.Category, error)

	// FindByName finds a category by case-insensitive name
	FindByName(ctx context.Context, name string) (*models.Category, error)
}

// DateDimensionRepository defines the interface for the date dimension
type DateDimensionRepository interface {
	// FindByFullDate finds the row for a YYYY-MM-DD date
	FindByFullDate(ctx context.Context, fullDate string) (*models.DateDimension, error)

	// InsertIfAbsent inserts the row unless one already exists for its date
	InsertIfAbsent(ctx context.Context, dim *models.DateDimension) error

	// FindByIDs batch-loads date rows
	FindByIDs(ctx context.Context, ids []uint64) ([]models.DateDimension, error)

	// CountByFullDate counts rows for a date
	CountByFullDate(ctx context.Context, fullDate string) (int64, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// CreateIfAbsent inserts the user unless its external id is already taken
	CreateIfAbsent(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByExternalID finds a user by external identity
	FindByExternalID(ctx context.Context, externalID string) (*models.User, error)

	// UpdateProfile updates email and display name
	UpdateProfile(ctx context.Context, id uint64, email, displayName string) error

	// ListIDs returns every user id
	ListIDs(ctx context.Context) ([]uint64, error)
}

// AuthAccountRepository defines the interface for local credentials
type AuthAccountRepository interface {
	// Create creates an account
	Create(ctx context.Context, account *models.AuthAccount) error

	// FindByUsername finds an account by username
	FindByUsername(ctx context.Context, username string) (*models.AuthAccount, error)

	// FindByExternalID finds an account by the external id it issued
	FindByExternalID(ctx context.Context, externalID string) (*models.AuthAccount, error)
}
