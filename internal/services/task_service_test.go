package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/models"
)

// TaskServiceTestSuite defines the test suite for TaskService
type TaskServiceTestSuite struct {
	suite.Suite
	env  *testEnv
	ctx  context.Context
	user *models.User
}

// SetupTest runs before each test
func (suite *TaskServiceTestSuite) SetupTest() {
	suite.env = newTestEnv(suite.T())
	suite.ctx = context.Background()
	suite.user = suite.env.createUser(suite.T(), "alice")
}

func (suite *TaskServiceTestSuite) assertConsistent(taskID uint64) {
	stored, err := suite.env.taskRepo.FindByID(suite.ctx, taskID)
	suite.Require().NoError(err)
	suite.True(stored.CompletionConsistent(), "completion fields out of sync: %+v", stored)
}

func (suite *TaskServiceTestSuite) TestCreate_Defaults() {
	details, err := suite.env.tasks.Create(suite.ctx, CreateTaskInput{
		UserID: suite.user.ID,
		Title:  "  Write report  ",
	})
	suite.Require().NoError(err)
	suite.env.effects.Wait()

	suite.Equal("Write report", details.Task.Title)
	suite.False(details.Task.IsCompleted)
	suite.Nil(details.Task.CompletedAt)
	suite.Require().NotNil(details.Status)
	suite.Equal(models.StatusPending, details.Status.Name)
	suite.Require().NotNil(details.CreatedDate)
	suite.Equal("2024-01-08", details.CreatedDate.FullDate)
	suite.Equal("Monday", details.CreatedDate.DayName)
	suite.Equal(int64(1), suite.env.countNotifications(suite.T(), suite.user.ID, models.NotificationReminder))
}

func (suite *TaskServiceTestSuite) TestCreate_NotificationMentionsDueDate() {
	due := testStart.Add(72 * time.Hour)
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Ship", DueDate: &due})

	var n models.Notification
	suite.Require().NoError(suite.env.db.Where("type = ?", models.NotificationReminder).First(&n).Error)
	suite.Contains(n.Message, "Jan 11, 2024")
}

func (suite *TaskServiceTestSuite) TestCreate_Validation() {
	_, err := suite.env.tasks.Create(suite.ctx, CreateTaskInput{UserID: suite.user.ID, Title: "   "})
	suite.ErrorIs(err, ErrTitleRequired)

	_, err = suite.env.tasks.Create(suite.ctx, CreateTaskInput{UserID: suite.user.ID, Title: "x", Priority: ptr(6)})
	suite.ErrorIs(err, ErrInvalidPriority)

	_, err = suite.env.tasks.Create(suite.ctx, CreateTaskInput{UserID: suite.user.ID, Title: "x", EstimatedHours: ptr(-1.0)})
	suite.ErrorIs(err, ErrInvalidHours)

	_, err = suite.env.tasks.Create(suite.ctx, CreateTaskInput{UserID: suite.user.ID, Title: "x", CategoryID: ptr(uint64(999))})
	suite.ErrorIs(err, ErrCategoryNotFound)

	_, err = suite.env.tasks.Create(suite.ctx, CreateTaskInput{UserID: suite.user.ID, Title: "x", StatusID: ptr(uint64(999))})
	suite.ErrorIs(err, ErrStatusNotFound)
}

func (suite *TaskServiceTestSuite) TestGet_NotFoundVersusForbidden() {
	other := suite.env.createUser(suite.T(), "bob")
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: other.ID, Title: "Bob's"})

	_, err := suite.env.tasks.Get(suite.ctx, suite.user.ID, task.ID)
	suite.ErrorIs(err, ErrTaskForbidden)

	_, err = suite.env.tasks.Get(suite.ctx, suite.user.ID, task.ID+100)
	suite.ErrorIs(err, ErrTaskNotFound)

	details, err := suite.env.tasks.Get(suite.ctx, other.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal("Bob's", details.Task.Title)
}

func (suite *TaskServiceTestSuite) TestUpdate_CompletionFieldsMoveTogether() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Toggle"})

	suite.env.clock.Advance(2 * time.Hour)
	done := suite.env.complete(suite.T(), suite.user.ID, task.ID)
	suite.True(done.IsCompleted)
	suite.Require().NotNil(done.CompletedAt)
	suite.True(done.CompletedAt.Equal(testStart.Add(2 * time.Hour)))
	suite.NotNil(done.CompletedDateID)
	suite.assertConsistent(task.ID)

	amended := testStart.Add(time.Hour)
	suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{CompletedAt: &amended, IsCompleted: ptr(true)})
	suite.assertConsistent(task.ID)

	undone := suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(false)})
	suite.False(undone.IsCompleted)
	suite.Nil(undone.CompletedAt)
	suite.Nil(undone.CompletedDateID)
	suite.assertConsistent(task.ID)

	logs := suite.env.changeLogs(suite.T(), task.ID)
	suite.Require().Len(logs, 3)
	suite.Equal(models.ChangeCompleted, logs[0].ChangeType)
	suite.Equal(models.ChangeDateChanged, logs[1].ChangeType)
	suite.Require().NotNil(logs[1].CompletedAt)
	suite.True(logs[1].CompletedAt.Equal(amended))
	suite.Equal(models.ChangeUncompleted, logs[2].ChangeType)
}

func (suite *TaskServiceTestSuite) TestUpdate_CompletedNotificationOnlyOnTransition() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Once"})

	suite.env.complete(suite.T(), suite.user.ID, task.ID)
	suite.env.complete(suite.T(), suite.user.ID, task.ID)
	suite.Equal(int64(1), suite.env.countNotifications(suite.T(), suite.user.ID, models.NotificationCompleted))

	suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(false)})
	suite.env.complete(suite.T(), suite.user.ID, task.ID)
	suite.Equal(int64(2), suite.env.countNotifications(suite.T(), suite.user.ID, models.NotificationCompleted))
}

func (suite *TaskServiceTestSuite) TestUpdate_UncompleteKeepsStatus() {
	completed := suite.env.status(suite.T(), models.StatusCompleted)
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Keep"})

	suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{StatusID: &completed.ID, IsCompleted: ptr(true)})
	undone := suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(false)})

	suite.False(undone.IsCompleted)
	suite.Equal(completed.ID, undone.StatusID)
}

func (suite *TaskServiceTestSuite) TestUpdate_LogsStatusAndDueDateChanges() {
	inProgress := suite.env.status(suite.T(), models.StatusInProgress)
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Track"})

	due := testStart.Add(48 * time.Hour)
	suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{StatusID: &inProgress.ID, DueDate: &due})

	logs := suite.env.changeLogs(suite.T(), task.ID)
	suite.Require().Len(logs, 2)

	suite.Equal(models.ChangeStatusChanged, logs[0].ChangeType)
	suite.Require().NotNil(logs[0].OldValue)
	suite.Equal(models.StatusPending, *logs[0].OldValue)
	suite.Equal(models.StatusInProgress, *logs[0].NewValue)

	suite.Equal(models.ChangeOther, logs[1].ChangeType)
	suite.Equal("due_date", *logs[1].FieldName)
	suite.Nil(logs[1].OldValue)
	suite.Equal("2024-01-10T09:00:00Z", *logs[1].NewValue)
	suite.Equal(logs[1].LoggedDateID, logs[0].LoggedDateID)
}

func (suite *TaskServiceTestSuite) TestUpdate_Validation() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Valid"})

	_, err := suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{Title: ptr(" ")})
	suite.ErrorIs(err, ErrTitleEmpty)

	early := testStart.Add(-time.Hour)
	_, err = suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(true), CompletedAt: &early})
	suite.ErrorIs(err, ErrCompletedBeforeCreated)
	suite.assertConsistent(task.ID)

	other := suite.env.createUser(suite.T(), "mallory")
	_, err = suite.env.tasks.Update(suite.ctx, other.ID, task.ID, UpdateTaskInput{Title: ptr("mine")})
	suite.ErrorIs(err, ErrTaskForbidden)
}

func (suite *TaskServiceTestSuite) TestUpdate_RejectsFutureCompletion() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Tomorrow"})

	tomorrow := testStart.Add(24 * time.Hour)
	_, err := suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(true), CompletedAt: &tomorrow})
	suite.ErrorIs(err, ErrCompletedInFuture)
	suite.assertConsistent(task.ID)

	// A client clock slightly ahead of ours is tolerated.
	skewed := testStart.Add(2 * time.Minute)
	done := suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(true), CompletedAt: &skewed})
	suite.Require().NotNil(done.CompletedAt)
	suite.True(done.CompletedAt.Equal(skewed))

	_, err = suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{CompletedAt: &tomorrow})
	suite.ErrorIs(err, ErrCompletedInFuture)

	current, err := suite.env.tasks.Get(suite.ctx, suite.user.ID, task.ID)
	suite.Require().NoError(err)
	suite.Require().NotNil(current.Task.CompletedAt)
	suite.True(current.Task.CompletedAt.Equal(skewed))
}

func (suite *TaskServiceTestSuite) TestUpdate_CompletedAtRequiresCompletion() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Open"})
	at := testStart

	_, err := suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(false), CompletedAt: &at})
	suite.ErrorIs(err, ErrCompletedAtWithoutDone)

	_, err = suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{CompletedAt: &at})
	suite.ErrorIs(err, ErrCompletedAtWithoutDone)
	suite.assertConsistent(task.ID)

	suite.env.complete(suite.T(), suite.user.ID, task.ID)
	_, err = suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(false), CompletedAt: &at})
	suite.ErrorIs(err, ErrCompletedAtWithoutDone)

	current, err := suite.env.tasks.Get(suite.ctx, suite.user.ID, task.ID)
	suite.Require().NoError(err)
	suite.True(current.Task.IsCompleted)
	suite.assertConsistent(task.ID)
	suite.Len(suite.env.changeLogs(suite.T(), task.ID), 1)
}

func (suite *TaskServiceTestSuite) TestUpdate_ChangeLogKeepsMutationOrder() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Quick"})
	suite.env.clock.Advance(time.Hour)
	updatedAt := suite.env.clock.Now()

	first := testStart.Add(10 * time.Minute)
	second := testStart.Add(20 * time.Minute)
	_, err := suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{IsCompleted: ptr(true), CompletedAt: &first})
	suite.Require().NoError(err)
	_, err = suite.env.tasks.Update(suite.ctx, suite.user.ID, task.ID, UpdateTaskInput{CompletedAt: &second})
	suite.Require().NoError(err)

	// Entries are stamped with the mutation time, not the write time.
	suite.env.clock.Advance(48 * time.Hour)
	suite.env.effects.Wait()

	logs := suite.env.changeLogs(suite.T(), task.ID)
	suite.Require().Len(logs, 2)
	suite.Equal(models.ChangeCompleted, logs[0].ChangeType)
	suite.Equal(uint64(1), logs[0].TaskRevision)
	suite.Equal(models.ChangeDateChanged, logs[1].ChangeType)
	suite.Equal(uint64(2), logs[1].TaskRevision)
	suite.Require().NotNil(logs[1].CompletedAt)
	suite.True(logs[1].CompletedAt.Equal(second))
	for _, entry := range logs {
		suite.True(entry.CreatedAt.Equal(updatedAt))
	}
}

func (suite *TaskServiceTestSuite) TestUpdate_ClearsOptionalFields() {
	category, err := suite.env.categories.Create(suite.ctx, CreateCategoryInput{Name: "work"})
	suite.Require().NoError(err)
	due := testStart.Add(24 * time.Hour)
	task := suite.env.createTask(suite.T(), CreateTaskInput{
		UserID:     suite.user.ID,
		Title:      "Clear",
		CategoryID: &category.ID,
		Priority:   ptr(2),
		DueDate:    &due,
	})

	updated := suite.env.update(suite.T(), suite.user.ID, task.ID, UpdateTaskInput{
		ClearCategory: true,
		ClearPriority: true,
		ClearDueDate:  true,
	})
	suite.Nil(updated.CategoryID)
	suite.Nil(updated.Priority)
	suite.Nil(updated.DueDate)
}

func (suite *TaskServiceTestSuite) TestList_PaginationAndEnrichment() {
	category, err := suite.env.categories.Create(suite.ctx, CreateCategoryInput{Name: "home", Color: ptr("#00ff00")})
	suite.Require().NoError(err)
	for i := 0; i < 5; i++ {
		suite.env.clock.Advance(time.Minute)
		suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "t", CategoryID: &category.ID})
	}
	other := suite.env.createUser(suite.T(), "carol")
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: other.ID, Title: "hidden"})

	page, err := suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID, Limit: 2})
	suite.Require().NoError(err)
	suite.Equal(int64(5), page.Total)
	suite.Len(page.Tasks, 2)
	suite.True(page.HasMore)
	suite.True(page.Tasks[0].Task.CreatedAt.After(page.Tasks[1].Task.CreatedAt))
	suite.Require().NotNil(page.Tasks[0].Category)
	suite.Equal("HOME", page.Tasks[0].Category.Name)
	suite.NotNil(page.Tasks[0].Status)

	last, err := suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID, Offset: 4, Limit: 2})
	suite.Require().NoError(err)
	suite.Len(last.Tasks, 1)
	suite.False(last.HasMore)
}

func (suite *TaskServiceTestSuite) TestList_CacheInvalidatedByMutation() {
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "first"})

	page, err := suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(1), page.Total)
	suite.True(suite.env.store.Has(cache.TaskListKey(suite.user.ID, ListTasksInput{Limit: 20}.fingerprint())))

	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "second"})

	page, err = suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID})
	suite.Require().NoError(err)
	suite.Equal(int64(2), page.Total)
}

func (suite *TaskServiceTestSuite) TestList_Filters() {
	inProgress := suite.env.status(suite.T(), models.StatusInProgress)
	a := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "a", Priority: ptr(1)})
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "b", StatusID: &inProgress.ID})
	suite.env.complete(suite.T(), suite.user.ID, a.ID)

	done, err := suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID, IsCompleted: ptr(true)})
	suite.Require().NoError(err)
	suite.Require().Len(done.Tasks, 1)
	suite.Equal(a.ID, done.Tasks[0].Task.ID)

	byStatus, err := suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID, StatusID: &inProgress.ID})
	suite.Require().NoError(err)
	suite.Require().Len(byStatus.Tasks, 1)
	suite.Equal("b", byStatus.Tasks[0].Task.Title)

	byPriority, err := suite.env.tasks.List(suite.ctx, ListTasksInput{UserID: suite.user.ID, Priority: ptr(1)})
	suite.Require().NoError(err)
	suite.Len(byPriority.Tasks, 1)
}

func (suite *TaskServiceTestSuite) TestDelete_DropsNotificationsKeepsHistory() {
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Gone"})
	suite.env.complete(suite.T(), suite.user.ID, task.ID)

	other := suite.env.createUser(suite.T(), "dave")
	suite.ErrorIs(suite.env.tasks.Delete(suite.ctx, other.ID, task.ID), ErrTaskForbidden)

	suite.Require().NoError(suite.env.tasks.Delete(suite.ctx, suite.user.ID, task.ID))
	suite.ErrorIs(suite.env.tasks.Delete(suite.ctx, suite.user.ID, task.ID), ErrTaskNotFound)

	var notifications int64
	suite.Require().NoError(suite.env.db.Model(&models.Notification{}).Where("task_id = ?", task.ID).Count(&notifications).Error)
	suite.Zero(notifications)

	var logs []models.TaskChangeLog
	suite.Require().NoError(suite.env.db.Where("user_id = ?", suite.user.ID).Find(&logs).Error)
	suite.Require().Len(logs, 1)
	suite.Nil(logs[0].TaskID)
}

func (suite *TaskServiceTestSuite) TestReconcileOverdue_NotifiesOnlyNewlyOverdue() {
	overdue := suite.env.status(suite.T(), models.StatusOverdue)
	due := testStart.Add(time.Hour)
	task := suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Late", DueDate: &due})
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Fine", DueDate: ptr(testStart.Add(72 * time.Hour))})

	suite.env.clock.Advance(2 * time.Hour)

	n, err := suite.env.tasks.ReconcileOverdue(suite.ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Equal(1, n)
	suite.env.effects.Wait()

	stored, err := suite.env.taskRepo.FindByID(suite.ctx, task.ID)
	suite.Require().NoError(err)
	suite.Equal(overdue.ID, stored.StatusID)
	suite.Equal(int64(1), suite.env.countNotifications(suite.T(), suite.user.ID, models.NotificationOverdue))

	n, err = suite.env.tasks.ReconcileOverdue(suite.ctx, suite.user.ID)
	suite.Require().NoError(err)
	suite.Zero(n)
	suite.env.effects.Wait()
	suite.Equal(int64(1), suite.env.countNotifications(suite.T(), suite.user.ID, models.NotificationOverdue))
}

func (suite *TaskServiceTestSuite) TestReconcileOverdue_ConcurrentCallsNotifyOnce() {
	due := testStart.Add(time.Hour)
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "Race", DueDate: &due})
	suite.env.clock.Advance(2 * time.Hour)

	results := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func() {
			n, err := suite.env.tasks.ReconcileOverdue(suite.ctx, suite.user.ID)
			suite.NoError(err)
			results <- n
		}()
	}
	total := 0
	for i := 0; i < 4; i++ {
		total += <-results
	}
	suite.env.effects.Wait()

	suite.Equal(1, total)
	suite.Equal(int64(1), suite.env.countNotifications(suite.T(), suite.user.ID, models.NotificationOverdue))
}

func (suite *TaskServiceTestSuite) TestReconcileAll() {
	other := suite.env.createUser(suite.T(), "erin")
	due := testStart.Add(time.Hour)
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: suite.user.ID, Title: "a", DueDate: &due})
	suite.env.createTask(suite.T(), CreateTaskInput{UserID: other.ID, Title: "b", DueDate: &due})
	suite.env.clock.Advance(3 * time.Hour)

	n, err := suite.env.tasks.ReconcileAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(2, n)

	n, err = suite.env.tasks.ReconcileAll(suite.ctx)
	suite.Require().NoError(err)
	suite.Zero(n)
}

type stubDrafts struct {
	drafts []TaskDraft
	err    error
}

func (s stubDrafts) GenerateTaskDrafts(ctx context.Context, text string, now time.Time) ([]TaskDraft, error) {
	return s.drafts, s.err
}

func (suite *TaskServiceTestSuite) TestGenerateDrafts() {
	_, err := suite.env.tasks.GenerateDrafts(suite.ctx, "notes")
	suite.ErrorIs(err, ErrAIServiceNotConfigured)

	stale := testStart.Add(-48 * time.Hour)
	suite.env.tasks.SetDraftGenerator(stubDrafts{drafts: []TaskDraft{
		{Title: "  "},
		{Title: "Call plumber", DueDate: &stale, Priority: ptr(9), EstimatedHours: ptr(1.5), Category: " home "},
	}})
	drafts, err := suite.env.tasks.GenerateDrafts(suite.ctx, "notes")
	suite.Require().NoError(err)
	suite.Require().Len(drafts, 1)
	suite.Nil(drafts[0].DueDate)
	suite.Nil(drafts[0].Priority)
	suite.Equal(1.5, *drafts[0].EstimatedHours)
	suite.Equal("HOME", drafts[0].Category)

	suite.env.tasks.SetDraftGenerator(stubDrafts{})
	_, err = suite.env.tasks.GenerateDrafts(suite.ctx, "notes")
	suite.ErrorIs(err, ErrAINoTasksGenerated)

	suite.env.tasks.SetDraftGenerator(stubDrafts{err: errors.New("boom")})
	_, err = suite.env.tasks.GenerateDrafts(suite.ctx, "notes")
	suite.Error(err)
}

// TestTaskServiceTestSuite runs the test suite
func TestTaskServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TaskServiceTestSuite))
}
