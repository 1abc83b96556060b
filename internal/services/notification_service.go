package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"gorm.io/gorm"
)

const (
	// NotificationDedupWindow suppresses a repeat (task, type) notification.
	NotificationDedupWindow = 24 * time.Hour
	// DefaultDueWindow is added to the creation time when a task has neither
	// a due date nor an estimate.
	DefaultDueWindow = 7 * 24 * time.Hour
	// UpcomingDays is the largest whole-day distance still reported as upcoming.
	UpcomingDays = 1

	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
	dueDateLayout            = "Jan 2, 2006"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService derives, stores and serves user notifications.
type NotificationService struct {
	repo     repository.NotificationRepository
	taskRepo repository.TaskRepository
	userRepo repository.UserRepository
	log      zerolog.Logger
	clock    Clock
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repository.NotificationRepository, taskRepo repository.TaskRepository, userRepo repository.UserRepository, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		repo:     repo,
		taskRepo: taskRepo,
		userRepo: userRepo,
		log:      logger,
	}
}

// SetClock replaces the time source.
func (s *NotificationService) SetClock(clock Clock) {
	s.clock = clock
}

// NotificationInput describes a notification to store.
type NotificationInput struct {
	UserID  uint64
	TaskID  *uint64
	Type    models.NotificationType
	Title   string
	Message string
}

// Notify stores a notification unconditionally.
func (s *NotificationService) Notify(ctx context.Context, input NotificationInput) (*models.Notification, error) {
	n := &models.Notification{
		UserID:    input.UserID,
		TaskID:    input.TaskID,
		Type:      input.Type,
		Title:     input.Title,
		Message:   input.Message,
		CreatedAt: s.clock.now(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	return n, nil
}

// NotifyOnce stores a task notification unless one of the same type was
// created for the task inside the dedup window. It reports whether a row was written.
func (s *NotificationService) NotifyOnce(ctx context.Context, input NotificationInput) (bool, error) {
	if input.TaskID != nil {
		since := s.clock.now().Add(-NotificationDedupWindow)
		exists, err := s.repo.ExistsSince(ctx, input.UserID, *input.TaskID, input.Type, since)
		if err != nil {
			return false, fmt.Errorf("failed to check notification history: %w", err)
		}
		if exists {
			return false, nil
		}
	}

	if _, err := s.Notify(ctx, input); err != nil {
		return false, err
	}
	return true, nil
}

// TaskCreated announces a new task.
func (s *NotificationService) TaskCreated(ctx context.Context, task *models.Task) error {
	message := fmt.Sprintf("%q was created", task.Title)
	if task.DueDate != nil {
		message = fmt.Sprintf("%q was created, due %s", task.Title, task.DueDate.UTC().Format(dueDateLayout))
	}
	_, err := s.Notify(ctx, NotificationInput{
		UserID:  task.UserID,
		TaskID:  &task.ID,
		Type:    models.NotificationReminder,
		Title:   "Task created",
		Message: message,
	})
	return err
}

// TaskCompleted announces a completion.
func (s *NotificationService) TaskCompleted(ctx context.Context, task *models.Task) error {
	_, err := s.Notify(ctx, NotificationInput{
		UserID:  task.UserID,
		TaskID:  &task.ID,
		Type:    models.NotificationCompleted,
		Title:   "Task completed",
		Message: fmt.Sprintf("%q was completed", task.Title),
	})
	return err
}

// TaskOverdue announces a task that just became overdue.
func (s *NotificationService) TaskOverdue(ctx context.Context, task *models.Task) (bool, error) {
	return s.NotifyOnce(ctx, overdueNotification(task, EffectiveDueDate(task)))
}

// ScanResult summarizes one scan.
type ScanResult struct {
	Scanned  int `json:"scanned"`
	Created  int `json:"created"`
	Overdue  int `json:"overdue"`
	Upcoming int `json:"upcoming"`
}

// Scan classifies every incomplete task of the user by its effective due
// date and emits overdue and upcoming notifications, at most one per
// (task, type) inside the dedup window.
func (s *NotificationService) Scan(ctx context.Context, userID uint64) (*ScanResult, error) {
	tasks, err := s.taskRepo.ListIncomplete(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incomplete tasks: %w", err)
	}

	now := s.clock.now()
	result := &ScanResult{Scanned: len(tasks)}

	for i := range tasks {
		task := &tasks[i]
		due := EffectiveDueDate(task)
		days := DaysUntilDue(due, now)

		var input NotificationInput
		switch {
		case days < 0:
			input = overdueNotification(task, due)
		case days <= UpcomingDays:
			input = NotificationInput{
				UserID:  task.UserID,
				TaskID:  &task.ID,
				Type:    models.NotificationUpcoming,
				Title:   "Task due soon",
				Message: fmt.Sprintf("%q is due %s", task.Title, due.Format(dueDateLayout)),
			}
		default:
			continue
		}

		created, err := s.NotifyOnce(ctx, input)
		if err != nil {
			return nil, err
		}
		if !created {
			continue
		}
		result.Created++
		if input.Type == models.NotificationOverdue {
			result.Overdue++
		} else {
			result.Upcoming++
		}
	}

	return result, nil
}

// ScanAll scans every user. A failing user is logged and skipped.
func (s *NotificationService) ScanAll(ctx context.Context) (int, error) {
	userIDs, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	created := 0
	for _, userID := range userIDs {
		result, err := s.Scan(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Uint64("user_id", userID).Msg("notification scan failed")
			continue
		}
		created += result.Created
	}
	return created, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID uint64, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if limit > maxNotificationLimit {
		limit = maxNotificationLimit
	}

	notifications, err := s.repo.List(ctx, userID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// UnreadCount counts unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one notification read.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id uint64) error {
	if err := s.repo.MarkRead(ctx, userID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks every unread notification read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return count, nil
}

// RemoveDuplicates keeps the newest unread notification per (task, type) and
// deletes the older unread ones.
func (s *NotificationService) RemoveDuplicates(ctx context.Context, userID uint64) (int64, error) {
	unread, err := s.repo.ListUnreadForTasks(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to list unread notifications: %w", err)
	}

	type dedupKey struct {
		taskID uint64
		typ    models.NotificationType
	}
	seen := make(map[dedupKey]struct{}, len(unread))
	var stale []uint64
	for _, n := range unread {
		key := dedupKey{taskID: *n.TaskID, typ: n.Type}
		if _, ok := seen[key]; ok {
			stale = append(stale, n.ID)
			continue
		}
		seen[key] = struct{}{}
	}

	removed, err := s.repo.DeleteByIDs(ctx, userID, stale)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate notifications: %w", err)
	}
	return removed, nil
}

// RemoveDuplicatesAll collapses duplicates for every user.
func (s *NotificationService) RemoveDuplicatesAll(ctx context.Context) (int, error) {
	userIDs, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	var removed int64
	for _, userID := range userIDs {
		n, err := s.RemoveDuplicates(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Uint64("user_id", userID).Msg("notification dedupe failed")
			continue
		}
		removed += n
	}
	return int(removed), nil
}

// EffectiveDueDate returns the explicit due date, else creation time plus the
// estimate, else creation time plus DefaultDueWindow.
func EffectiveDueDate(task *models.Task) time.Time {
	if task.DueDate != nil {
		return task.DueDate.UTC()
	}
	if task.EstimatedHours != nil {
		return task.CreatedAt.UTC().Add(hoursToDuration(*task.EstimatedHours))
	}
	return task.CreatedAt.UTC().Add(DefaultDueWindow)
}

// DaysUntilDue is the floor of the whole days between now and due.
func DaysUntilDue(due, now time.Time) int {
	return int(math.Floor(due.Sub(now).Hours() / 24))
}

func overdueNotification(task *models.Task, due time.Time) NotificationInput {
	return NotificationInput{
		UserID:  task.UserID,
		TaskID:  &task.ID,
		Type:    models.NotificationOverdue,
		Title:   "Task overdue",
		Message: fmt.Sprintf("%q was due %s", task.Title, due.Format(dueDateLayout)),
	}
}

func hoursToDuration(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}
