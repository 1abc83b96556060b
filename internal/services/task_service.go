package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/calendar"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"github.com/yukikurage/task-insights-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTaskForbidden          = errors.New("task belongs to another user")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrInvalidPriority        = errors.New("priority must be between 1 and 5")
	ErrInvalidHours           = errors.New("hours cannot be negative")
	ErrCompletedBeforeCreated = errors.New("completion time cannot precede creation")
	ErrCompletedInFuture      = errors.New("completion time cannot be in the future")
	ErrCompletedAtWithoutDone = errors.New("completed_at requires the task to be completed")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAITooManyTasks         = errors.New("AI generated too many tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// completionClockSkew is how far ahead of the server clock a client supplied
// completion time may be.
const completionClockSkew = 5 * time.Minute

// TaskDetails is a task joined with its reference data.
type TaskDetails struct {
	Task          models.Task
	Status        *models.Status
	Category      *models.Category
	CreatedDate   *models.DateDimension
	CompletedDate *models.DateDimension
}

// TaskPage is one page of enriched tasks.
type TaskPage struct {
	Tasks   []TaskDetails
	Total   int64
	Offset  int
	Limit   int
	HasMore bool
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo      repository.TaskRepository
	statuses      *StatusService
	categories    *CategoryService
	calendar      *calendar.Resolver
	changelog     *ChangeLogService
	notifications *NotificationService
	effects       *SideEffects
	cache         *cache.Store
	drafts        TaskDraftGenerator
	log           zerolog.Logger
	clock         Clock
	reconcileMu   keyedMutex
	taskMu        keyedMutex
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	statuses *StatusService,
	categories *CategoryService,
	resolver *calendar.Resolver,
	changelog *ChangeLogService,
	notifications *NotificationService,
	effects *SideEffects,
	store *cache.Store,
	logger zerolog.Logger,
) *TaskService {
	return &TaskService{
		taskRepo:      taskRepo,
		statuses:      statuses,
		categories:    categories,
		calendar:      resolver,
		changelog:     changelog,
		notifications: notifications,
		effects:       effects,
		cache:         store,
		log:           logger,
	}
}

// SetClock replaces the time source.
func (s *TaskService) SetClock(clock Clock) {
	s.clock = clock
}

// SetDraftGenerator enables AI task drafts.
func (s *TaskService) SetDraftGenerator(generator TaskDraftGenerator) {
	s.drafts = generator
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
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

// fingerprint identifies the filter combination inside the user's cache family.
func (in ListTasksInput) fingerprint() string {
	var b strings.Builder
	fmt.Fprintf(&b, "o=%d|l=%d", in.Offset, in.Limit)
	if in.StatusID != nil {
		fmt.Fprintf(&b, "|s=%d", *in.StatusID)
	}
	if in.CategoryID != nil {
		fmt.Fprintf(&b, "|c=%d", *in.CategoryID)
	}
	if in.IsCompleted != nil {
		fmt.Fprintf(&b, "|done=%t", *in.IsCompleted)
	}
	if in.Priority != nil {
		fmt.Fprintf(&b, "|p=%d", *in.Priority)
	}
	if in.CreatedFrom != nil {
		fmt.Fprintf(&b, "|from=%d", in.CreatedFrom.Unix())
	}
	if in.CreatedTo != nil {
		fmt.Fprintf(&b, "|to=%d", in.CreatedTo.Unix())
	}
	return b.String()
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	UserID         uint64
	Title          string
	Description    string
	CategoryID     *uint64
	StatusID       *uint64
	Priority       *int
	EstimatedHours *float64
	DueDate        *time.Time
}

// UpdateTaskInput represents input for updating a task. Nil fields are left
// untouched; the Clear flags reset optional fields.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	CategoryID     *uint64
	ClearCategory  bool
	StatusID       *uint64
	Priority       *int
	ClearPriority  bool
	EstimatedHours *float64
	ActualHours    *float64
	DueDate        *time.Time
	ClearDueDate   bool
	IsCompleted    *bool
	CompletedAt    *time.Time
}

// List returns one page of the user's tasks, newest first. Overdue
// reconciliation runs first so the page reflects current statuses.
func (s *TaskService) List(ctx context.Context, input ListTasksInput) (*TaskPage, error) {
	if _, err := s.ReconcileOverdue(ctx, input.UserID); err != nil {
		s.log.Warn().Err(err).Uint64("user_id", input.UserID).Msg("overdue reconciliation before list failed")
	}

	if input.Limit <= 0 {
		input.Limit = constants.DefaultPageSize
	}
	if input.Limit > constants.MaxPageSize {
		input.Limit = constants.MaxPageSize
	}
	if input.Offset < 0 {
		input.Offset = 0
	}

	key := cache.TaskListKey(input.UserID, input.fingerprint())
	if page, ok := cache.GetAs[*TaskPage](s.cache, key); ok {
		return page, nil
	}

	tasks, total, err := s.taskRepo.List(ctx, repository.TaskFilter{
		UserID:      input.UserID,
		StatusID:    input.StatusID,
		CategoryID:  input.CategoryID,
		IsCompleted: input.IsCompleted,
		Priority:    input.Priority,
		CreatedFrom: input.CreatedFrom,
		CreatedTo:   input.CreatedTo,
		Offset:      input.Offset,
		Limit:       input.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	details, err := s.enrich(ctx, tasks)
	if err != nil {
		return nil, err
	}

	page := &TaskPage{
		Tasks:   details,
		Total:   total,
		Offset:  input.Offset,
		Limit:   input.Limit,
		HasMore: utils.HasMore(input.Offset, len(tasks), total),
	}
	s.cache.Set(key, page, cache.TaskListTTL)
	return page, nil
}

// Get returns one enriched task owned by userID
func (s *TaskService) Get(ctx context.Context, userID, taskID uint64) (*TaskDetails, error) {
	task, err := s.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	return s.enrichOne(ctx, task)
}

// Create creates a new task with validation
func (s *TaskService) Create(ctx context.Context, input CreateTaskInput) (*TaskDetails, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if err := validatePriority(input.Priority); err != nil {
		return nil, err
	}
	if err := validateHours(input.EstimatedHours); err != nil {
		return nil, err
	}
	if input.CategoryID != nil {
		if _, err := s.categories.Get(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
	}

	var status *models.Status
	var err error
	if input.StatusID != nil {
		status, err = s.statuses.Get(ctx, *input.StatusID)
	} else {
		status, err = s.statuses.Default(ctx)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.now()
	createdDateID, err := s.calendar.Resolve(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve creation date: %w", err)
	}

	task := &models.Task{
		UserID:         input.UserID,
		CategoryID:     input.CategoryID,
		StatusID:       status.ID,
		Priority:       input.Priority,
		Title:          title,
		Description:    input.Description,
		EstimatedHours: input.EstimatedHours,
		DueDate:        utcPtr(input.DueDate),
		CreatedDateID:  createdDateID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.invalidate(task.UserID)

	created := *task
	s.effects.Go("notify.task_created", func(ctx context.Context) error {
		return s.notifications.TaskCreated(ctx, &created)
	})

	return s.enrichOne(ctx, task)
}

// Update applies a partial update to a task owned by userID
func (s *TaskService) Update(ctx context.Context, userID, taskID uint64, input UpdateTaskInput) (*TaskDetails, error) {
	// Revisions must be handed out in commit order.
	unlock := s.taskMu.lock(taskID)
	defer unlock()

	task, err := s.findOwned(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.ClearCategory {
		task.CategoryID = nil
	} else if input.CategoryID != nil {
		if _, err := s.categories.Get(ctx, *input.CategoryID); err != nil {
			return nil, err
		}
		task.CategoryID = input.CategoryID
	}
	if input.ClearPriority {
		task.Priority = nil
	} else if input.Priority != nil {
		if err := validatePriority(input.Priority); err != nil {
			return nil, err
		}
		task.Priority = input.Priority
	}
	if input.EstimatedHours != nil {
		if err := validateHours(input.EstimatedHours); err != nil {
			return nil, err
		}
		task.EstimatedHours = input.EstimatedHours
	}
	if input.ActualHours != nil {
		if err := validateHours(input.ActualHours); err != nil {
			return nil, err
		}
		task.ActualHours = input.ActualHours
	}

	var entries []ChangeEntry

	if input.StatusID != nil && *input.StatusID != task.StatusID {
		entry, err := s.statusChange(ctx, task, *input.StatusID)
		if err != nil {
			return nil, err
		}
		task.StatusID = *input.StatusID
		entries = append(entries, entry)
	}

	if input.ClearDueDate || input.DueDate != nil {
		var next *time.Time
		if !input.ClearDueDate {
			next = utcPtr(input.DueDate)
		}
		if !sameTime(task.DueDate, next) {
			entries = append(entries, ChangeEntry{
				TaskID:    task.ID,
				UserID:    task.UserID,
				Type:      models.ChangeOther,
				FieldName: strPtr("due_date"),
				OldValue:  formatTime(task.DueDate),
				NewValue:  formatTime(next),
			})
			task.DueDate = next
		}
	}

	becameComplete := false
	completion, err := s.applyCompletion(ctx, task, input)
	if err != nil {
		return nil, err
	}
	if completion != nil {
		becameComplete = completion.Type == models.ChangeCompleted
		entries = append(entries, *completion)
	}

	task.UpdatedAt = s.clock.now()
	task.Revision++
	for i := range entries {
		entries[i].Revision = task.Revision
		entries[i].OccurredAt = task.UpdatedAt
	}
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	s.invalidate(task.UserID)

	if len(entries) > 0 {
		s.effects.Go("changelog.record", func(ctx context.Context) error {
			for _, entry := range entries {
				s.changelog.Record(ctx, entry)
			}
			return nil
		})
	}
	if becameComplete {
		completed := *task
		s.effects.Go("notify.task_completed", func(ctx context.Context) error {
			return s.notifications.TaskCompleted(ctx, &completed)
		})
	}

	return s.enrichOne(ctx, task)
}

// applyCompletion moves the completion flag, timestamp and date reference
// together and returns the change entry describing the transition, if any.
func (s *TaskService) applyCompletion(ctx context.Context, task *models.Task, input UpdateTaskInput) (*ChangeEntry, error) {
	wantComplete := task.IsCompleted
	if input.IsCompleted != nil {
		wantComplete = *input.IsCompleted
	}

	switch {
	case wantComplete && !task.IsCompleted:
		completedAt := s.clock.now()
		if input.CompletedAt != nil {
			completedAt = input.CompletedAt.UTC().Truncate(time.Second)
		}
		return s.complete(ctx, task, completedAt, models.ChangeCompleted)

	case wantComplete && task.IsCompleted:
		// Already complete: only an explicit timestamp amends the record.
		if input.CompletedAt == nil {
			return nil, nil
		}
		completedAt := input.CompletedAt.UTC().Truncate(time.Second)
		if task.CompletedAt != nil && task.CompletedAt.Equal(completedAt) {
			return nil, nil
		}
		return s.complete(ctx, task, completedAt, models.ChangeDateChanged)

	case !wantComplete && input.CompletedAt != nil:
		return nil, ErrCompletedAtWithoutDone

	case !wantComplete && task.IsCompleted:
		previous := task.CompletedAt
		task.IsCompleted = false
		task.CompletedAt = nil
		task.CompletedDateID = nil
		return &ChangeEntry{
			TaskID:    task.ID,
			UserID:    task.UserID,
			Type:      models.ChangeUncompleted,
			FieldName: strPtr("is_completed"),
			OldValue:  formatTime(previous),
		}, nil
	}

	return nil, nil
}

func (s *TaskService) complete(ctx context.Context, task *models.Task, completedAt time.Time, changeType models.ChangeType) (*ChangeEntry, error) {
	if completedAt.Before(task.CreatedAt) {
		return nil, ErrCompletedBeforeCreated
	}
	if completedAt.After(s.clock.now().Add(completionClockSkew)) {
		return nil, ErrCompletedInFuture
	}
	dateID, err := s.calendar.Resolve(ctx, completedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve completion date: %w", err)
	}

	previous := task.CompletedAt
	task.IsCompleted = true
	task.CompletedAt = &completedAt
	task.CompletedDateID = &dateID

	return &ChangeEntry{
		TaskID:          task.ID,
		UserID:          task.UserID,
		Type:            changeType,
		FieldName:       strPtr("completed_at"),
		OldValue:        formatTime(previous),
		NewValue:        formatTime(&completedAt),
		CompletedAt:     &completedAt,
		CompletedDateID: &dateID,
	}, nil
}

func (s *TaskService) statusChange(ctx context.Context, task *models.Task, nextID uint64) (ChangeEntry, error) {
	found, err := s.statuses.Lookup(ctx, []uint64{task.StatusID, nextID})
	if err != nil {
		return ChangeEntry{}, err
	}
	next, ok := found[nextID]
	if !ok {
		return ChangeEntry{}, ErrStatusNotFound
	}

	entry := ChangeEntry{
		TaskID:    task.ID,
		UserID:    task.UserID,
		Type:      models.ChangeStatusChanged,
		FieldName: strPtr("status"),
		NewValue:  strPtr(next.Name),
	}
	if current, ok := found[task.StatusID]; ok {
		entry.OldValue = strPtr(current.Name)
	}
	return entry, nil
}

// Delete hard deletes a task owned by userID. Its notifications go with it;
// its change log stays behind with the task reference cleared.
func (s *TaskService) Delete(ctx context.Context, userID, taskID uint64) error {
	if _, err := s.findOwned(ctx, userID, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, userID, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.invalidate(userID)
	return nil
}

// ReconcileOverdue moves the user's incomplete past-due tasks into the
// Overdue status and notifies once per task that became overdue in this
// pass. Overlapping calls for one user run one after another.
func (s *TaskService) ReconcileOverdue(ctx context.Context, userID uint64) (int, error) {
	unlock := s.reconcileMu.lock(userID)
	defer unlock()

	overdue, err := s.statuses.ByName(ctx, models.StatusOverdue)
	if err != nil {
		return 0, err
	}

	before, err := s.taskRepo.ListIDsByStatus(ctx, userID, overdue.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot overdue tasks: %w", err)
	}

	affected, err := s.taskRepo.MarkOverdue(ctx, userID, overdue.ID, s.clock.now())
	if err != nil {
		s.log.Warn().Err(err).Uint64("user_id", userID).Msg("bulk overdue update failed")
		return 0, nil
	}
	if affected == 0 {
		return 0, nil
	}

	after, err := s.taskRepo.ListIDsByStatus(ctx, userID, overdue.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot overdue tasks: %w", err)
	}
	s.invalidate(userID)

	known := make(map[uint64]struct{}, len(before))
	for _, id := range before {
		known[id] = struct{}{}
	}
	var newlyOverdue []uint64
	for _, id := range after {
		if _, ok := known[id]; !ok {
			newlyOverdue = append(newlyOverdue, id)
		}
	}

	if len(newlyOverdue) > 0 {
		s.effects.Go("notify.task_overdue", func(ctx context.Context) error {
			var errs []error
			for _, id := range newlyOverdue {
				task, err := s.taskRepo.FindByID(ctx, id)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				if _, err := s.notifications.TaskOverdue(ctx, task); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		})
	}

	return len(newlyOverdue), nil
}

// ReconcileAll reconciles every user with past-due candidates. A failing
// user is logged and skipped.
func (s *TaskService) ReconcileAll(ctx context.Context) (int, error) {
	overdue, err := s.statuses.ByName(ctx, models.StatusOverdue)
	if err != nil {
		return 0, err
	}

	userIDs, err := s.taskRepo.ListUserIDsWithOverdueCandidates(ctx, overdue.ID, s.clock.now())
	if err != nil {
		return 0, fmt.Errorf("failed to list users with overdue tasks: %w", err)
	}

	total := 0
	for _, userID := range userIDs {
		n, err := s.ReconcileOverdue(ctx, userID)
		if err != nil {
			s.log.Error().Err(err).Uint64("user_id", userID).Msg("overdue reconciliation failed")
			continue
		}
		total += n
	}
	return total, nil
}

// GenerateDrafts uses AI to suggest tasks from text. Drafts are not stored.
func (s *TaskService) GenerateDrafts(ctx context.Context, text string) ([]TaskDraft, error) {
	if s.drafts == nil {
		return nil, ErrAIServiceNotConfigured
	}

	now := s.clock.now()
	drafts, err := s.drafts.GenerateTaskDrafts(ctx, text, now)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(drafts) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(drafts) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("%w (max %d)", ErrAITooManyTasks, constants.MaxAIGeneratedTasks)
	}

	valid := make([]TaskDraft, 0, len(drafts))
	cutoff := now.Add(-24 * time.Hour)
	for _, draft := range drafts {
		draft.Title = strings.TrimSpace(draft.Title)
		if draft.Title == "" {
			continue
		}
		if draft.DueDate != nil && draft.DueDate.Before(cutoff) {
			draft.DueDate = nil
		}
		if validatePriority(draft.Priority) != nil {
			draft.Priority = nil
		}
		if validateHours(draft.EstimatedHours) != nil {
			draft.EstimatedHours = nil
		}
		draft.Category = strings.ToUpper(strings.TrimSpace(draft.Category))
		valid = append(valid, draft)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}

	return valid, nil
}

// findOwned loads a task and checks ownership
func (s *TaskService) findOwned(ctx context.Context, userID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task.UserID != userID {
		return nil, ErrTaskForbidden
	}
	return task, nil
}

// invalidate drops every cached view derived from the user's tasks.
func (s *TaskService) invalidate(userID uint64) {
	s.cache.ClearPrefix(cache.TaskListPrefix(userID))
	s.cache.ClearPrefix(cache.AnalyticsPrefix(userID))
}

func (s *TaskService) enrichOne(ctx context.Context, task *models.Task) (*TaskDetails, error) {
	details, err := s.enrich(ctx, []models.Task{*task})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// enrich joins tasks with their status, category and date rows. Each
// reference table is queried at most once for the whole batch.
func (s *TaskService) enrich(ctx context.Context, tasks []models.Task) ([]TaskDetails, error) {
	statusIDs := make([]uint64, 0, len(tasks))
	var categoryIDs, dateIDs []uint64
	for _, t := range tasks {
		statusIDs = append(statusIDs, t.StatusID)
		dateIDs = append(dateIDs, t.CreatedDateID)
		if t.CategoryID != nil {
			categoryIDs = append(categoryIDs, *t.CategoryID)
		}
		if t.CompletedDateID != nil {
			dateIDs = append(dateIDs, *t.CompletedDateID)
		}
	}

	statuses, err := s.statuses.Lookup(ctx, statusIDs)
	if err != nil {
		return nil, err
	}
	categories, err := s.categories.Lookup(ctx, categoryIDs)
	if err != nil {
		return nil, err
	}
	dates, err := s.calendar.Lookup(ctx, dateIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load dates: %w", err)
	}

	details := make([]TaskDetails, len(tasks))
	for i, t := range tasks {
		d := TaskDetails{Task: t}
		if st, ok := statuses[t.StatusID]; ok {
			d.Status = &st
		}
		if t.CategoryID != nil {
			if c, ok := categories[*t.CategoryID]; ok {
				d.Category = &c
			}
		}
		if dim, ok := dates[t.CreatedDateID]; ok {
			d.CreatedDate = &dim
		}
		if t.CompletedDateID != nil {
			if dim, ok := dates[*t.CompletedDateID]; ok {
				d.CompletedDate = &dim
			}
		}
		details[i] = d
	}
	return details, nil
}

func validatePriority(priority *int) error {
	if priority == nil {
		return nil
	}
	if *priority < constants.MinPriority || *priority > constants.MaxPriority {
		return ErrInvalidPriority
	}
	return nil
}

func validateHours(hours *float64) error {
	if hours != nil && *hours < 0 {
		return ErrInvalidHours
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC().Truncate(time.Second)
	return &v
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return strPtr(t.UTC().Format(time.RFC3339))
}

func strPtr(s string) *string {
	return &s
}
