package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/calendar"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
)

// ChangeEntry describes one field transition on a task.
type ChangeEntry struct {
	TaskID          uint64
	UserID          uint64
	Type            models.ChangeType
	FieldName       *string
	OldValue        *string
	NewValue        *string
	CompletedAt     *time.Time
	CompletedDateID *uint64
	// Revision is the task revision the change produced. Entries are ordered
	// by it, not by when they reach the log.
	Revision uint64
	// OccurredAt is when the change was made. Zero means now.
	OccurredAt time.Time
}

// ChangeLogService appends change records. Appending is best-effort: a
// failure is logged and never surfaces to the mutation that caused it.
type ChangeLogService struct {
	repo     repository.ChangeLogRepository
	calendar *calendar.Resolver
	cache    *cache.Store
	log      zerolog.Logger
	clock    Clock
}

// NewChangeLogService creates a new ChangeLogService.
func NewChangeLogService(repo repository.ChangeLogRepository, resolver *calendar.Resolver, store *cache.Store, logger zerolog.Logger) *ChangeLogService {
	return &ChangeLogService{
		repo:     repo,
		calendar: resolver,
		cache:    store,
		log:      logger,
	}
}

// SetClock replaces the time source.
func (s *ChangeLogService) SetClock(clock Clock) {
	s.clock = clock
}

// Record appends the entry, stamping the date the change occurred on. It
// reports whether the entry was stored.
func (s *ChangeLogService) Record(ctx context.Context, entry ChangeEntry) bool {
	occurredAt := entry.OccurredAt.UTC()
	if entry.OccurredAt.IsZero() {
		occurredAt = s.clock.now()
	}

	loggedDateID, err := s.calendar.Resolve(ctx, occurredAt)
	if err != nil {
		s.log.Error().Err(err).
			Uint64("task_id", entry.TaskID).
			Str("change_type", string(entry.Type)).
			Msg("failed to resolve log date")
		return false
	}

	taskID := entry.TaskID
	row := &models.TaskChangeLog{
		TaskID:          &taskID,
		UserID:          entry.UserID,
		ChangeType:      entry.Type,
		FieldName:       entry.FieldName,
		OldValue:        entry.OldValue,
		NewValue:        entry.NewValue,
		CompletedAt:     entry.CompletedAt,
		CompletedDateID: entry.CompletedDateID,
		LoggedDateID:    loggedDateID,
		TaskRevision:    entry.Revision,
		CreatedAt:       occurredAt,
	}

	if err := s.repo.Create(ctx, row); err != nil {
		s.log.Error().Err(err).
			Uint64("task_id", entry.TaskID).
			Str("change_type", string(entry.Type)).
			Msg("failed to append change log")
		return false
	}

	// Completion analytics read the log, so a new entry stales them.
	s.cache.ClearPrefix(cache.AnalyticsPrefix(entry.UserID))
	return true
}

// History returns a task's change log in write order.
func (s *ChangeLogService) History(ctx context.Context, taskID uint64) ([]models.TaskChangeLog, error) {
	return s.repo.ListByTask(ctx, taskID)
}
