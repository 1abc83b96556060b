package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/calendar"
	"github.com/yukikurage/task-insights-api/internal/database"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Monday 2024-01-08 09:00 UTC
var testStart = time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db    *gorm.DB
	clock *fakeClock
	store *cache.Store

	effects       *SideEffects
	statuses      *StatusService
	categories    *CategoryService
	resolver      *calendar.Resolver
	changelog     *ChangeLogService
	notifications *NotificationService
	tasks         *TaskService
	analytics     *AnalyticsService
	identities    *IdentityService
	auth          *AuthService

	taskRepo repository.TaskRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(context.Background(), db))

	clock := &fakeClock{now: testStart}
	store := cache.NewWithClock(clock.Now)
	log := zerolog.Nop()

	taskRepo := repository.NewTaskRepository(db)
	changeLogRepo := repository.NewChangeLogRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	env := &testEnv{
		db:       db,
		clock:    clock,
		store:    store,
		effects:  NewSideEffects(log),
		taskRepo: taskRepo,
	}
	env.statuses = NewStatusService(repository.NewStatusRepository(db), store)
	env.categories = NewCategoryService(repository.NewCategoryRepository(db), store)
	env.resolver = calendar.NewResolver(repository.NewDateDimensionRepository(db), store)
	env.changelog = NewChangeLogService(changeLogRepo, env.resolver, store, log)
	env.changelog.SetClock(clock.Now)
	env.notifications = NewNotificationService(notificationRepo, taskRepo, userRepo, log)
	env.notifications.SetClock(clock.Now)
	env.tasks = NewTaskService(taskRepo, env.statuses, env.categories, env.resolver,
		env.changelog, env.notifications, env.effects, store, log)
	env.tasks.SetClock(clock.Now)
	env.analytics = NewAnalyticsService(taskRepo, changeLogRepo, env.statuses, env.categories, env.resolver, store)
	env.analytics.SetClock(clock.Now)
	env.identities = NewIdentityService(userRepo, store)
	env.auth = NewAuthService(repository.NewAuthAccountRepository(db))

	t.Cleanup(func() {
		env.effects.Wait()
		sqlDB.Close()
	})
	return env
}

func (e *testEnv) createUser(t *testing.T, externalID string) *models.User {
	t.Helper()
	user, err := e.identities.Resolve(context.Background(), ExternalIdentity{
		ExternalID:  externalID,
		Email:       externalID + "@example.com",
		DisplayName: externalID,
	})
	require.NoError(t, err)
	return user
}

func (e *testEnv) createTask(t *testing.T, input CreateTaskInput) *models.Task {
	t.Helper()
	details, err := e.tasks.Create(context.Background(), input)
	require.NoError(t, err)
	e.effects.Wait()
	return &details.Task
}

func (e *testEnv) update(t *testing.T, userID, taskID uint64, input UpdateTaskInput) *models.Task {
	t.Helper()
	details, err := e.tasks.Update(context.Background(), userID, taskID, input)
	require.NoError(t, err)
	e.effects.Wait()
	return &details.Task
}

func (e *testEnv) complete(t *testing.T, userID, taskID uint64) *models.Task {
	t.Helper()
	done := true
	return e.update(t, userID, taskID, UpdateTaskInput{IsCompleted: &done})
}

func (e *testEnv) status(t *testing.T, name string) *models.Status {
	t.Helper()
	st, err := e.statuses.ByName(context.Background(), name)
	require.NoError(t, err)
	return st
}

func (e *testEnv) countNotifications(t *testing.T, userID uint64, typ models.NotificationType) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", userID, typ).
		Count(&count).Error)
	return count
}

func (e *testEnv) changeLogs(t *testing.T, taskID uint64) []models.TaskChangeLog {
	t.Helper()
	logs, err := e.changelog.History(context.Background(), taskID)
	require.NoError(t, err)
	return logs
}

func ptr[T any](v T) *T {
	return &v
}
