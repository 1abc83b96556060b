package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/calendar"
	"github.com/yukikurage/task-insights-api/internal/config"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/database"
	"github.com/yukikurage/task-insights-api/internal/handlers"
	"github.com/yukikurage/task-insights-api/internal/middleware"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"github.com/yukikurage/task-insights-api/internal/services"
	"gorm.io/gorm"
)

// app holds the wired services shared by every command.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	db     *gorm.DB
	store  *cache.Store

	effects       *services.SideEffects
	statuses      *services.StatusService
	categories    *services.CategoryService
	notifications *services.NotificationService
	tasks         *services.TaskService
	analytics     *services.AnalyticsService
	identities    *services.IdentityService
	auth          *services.AuthService
}

// newApp connects to the database, migrates it and wires the services.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, db); err != nil {
		return nil, err
	}
	if err := database.MigrateDatabase(db); err != nil {
		return nil, err
	}

	store := cache.New()

	taskRepo := repository.NewTaskRepository(db)
	changeLogRepo := repository.NewChangeLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		store:   store,
		effects: services.NewSideEffects(logger),
	}
	resolver := calendar.NewResolver(repository.NewDateDimensionRepository(db), store)
	a.statuses = services.NewStatusService(repository.NewStatusRepository(db), store)
	a.categories = services.NewCategoryService(repository.NewCategoryRepository(db), store)
	changelog := services.NewChangeLogService(changeLogRepo, resolver, store, logger)
	a.notifications = services.NewNotificationService(repository.NewNotificationRepository(db), taskRepo, userRepo, logger)
	a.tasks = services.NewTaskService(taskRepo, a.statuses, a.categories, resolver, changelog, a.notifications, a.effects, store, logger)
	a.analytics = services.NewAnalyticsService(taskRepo, changeLogRepo, a.statuses, a.categories, resolver, store)
	a.identities = services.NewIdentityService(userRepo, store)
	a.auth = services.NewAuthService(repository.NewAuthAccountRepository(db))

	if cfg.OpenAIAPIKey != "" {
		a.tasks.SetDraftGenerator(services.NewAIService(cfg.OpenAIAPIKey))
	}

	return a, nil
}

// close waits for pending side effects and releases the pool.
func (a *app) close() {
	a.effects.Wait()
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}

// router builds the HTTP engine with sessions, auth and rate limiting.
func (a *app) router(ctx context.Context) (*gin.Engine, error) {
	sessionStore, err := a.sessionStore()
	if err != nil {
		return nil, err
	}

	var verifier services.TokenVerifier
	if a.cfg.FirebaseCredentialsJSON != "" {
		firebaseVerifier, err := services.NewFirebaseVerifier(ctx, a.cfg.FirebaseCredentialsJSON)
		if err != nil {
			return nil, err
		}
		verifier = firebaseVerifier
		a.logger.Info().Msg("bearer token authentication enabled")
	}

	limiter := middleware.NewRateLimiter(a.store, map[string]int{
		constants.RateClassRead:  a.cfg.RateLimitRead,
		constants.RateClassWrite: a.cfg.RateLimitWrite,
	}, a.cfg.RateLimitWindow)

	return handlers.NewRouter(handlers.Handlers{
		Auth:         handlers.NewAuthHandler(a.auth, a.identities),
		Task:         handlers.NewTaskHandler(a.tasks),
		Reference:    handlers.NewReferenceHandler(a.statuses, a.categories),
		Notification: handlers.NewNotificationHandler(a.notifications),
		Analytics:    handlers.NewAnalyticsHandler(a.analytics),
	}, handlers.RouterOptions{
		SessionStore: sessionStore,
		Resolver:     a.identities,
		Verifier:     verifier,
		Limiter:      limiter,
		Logger:       a.logger,
	}), nil
}

func (a *app) sessionStore() (sessions.Store, error) {
	options := sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   a.cfg.IsProduction(),
		SameSite: 2, // Lax
	}

	if a.cfg.SessionStore == "cookie" {
		store := cookie.NewStore([]byte(a.cfg.SessionSecret))
		store.Options(options)
		return store, nil
	}

	store, err := redisStore.NewStore(
		10,    // pool size
		"tcp", // network type
		a.cfg.RedisAddr(),
		"", // password
		[]byte(a.cfg.SessionSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis session store: %w", err)
	}
	store.Options(options)
	return store, nil
}

// schedule registers the background jobs.
func (a *app) schedule(scheduler *services.SchedulerService) error {
	if _, err := scheduler.ScheduleInterval("overdue-sweep", a.cfg.OverdueSweepInterval, a.tasks.ReconcileAll); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleInterval("notification-scan", a.cfg.NotificationScanInterval, a.notifications.ScanAll); err != nil {
		return err
	}
	if _, err := scheduler.ScheduleDaily("notification-dedupe", a.cfg.NotificationDedupeAt, a.notifications.RemoveDuplicatesAll); err != nil {
		return err
	}
	_, err := scheduler.ScheduleInterval("cache-evict", 5*time.Minute, func(ctx context.Context) (int, error) {
		return a.store.ClearExpired(), nil
	})
	return err
}

// sweep runs every background job once.
func (a *app) sweep(ctx context.Context) error {
	overdue, err := a.tasks.ReconcileAll(ctx)
	if err != nil {
		return err
	}
	notified, err := a.notifications.ScanAll(ctx)
	if err != nil {
		return err
	}
	removed, err := a.notifications.RemoveDuplicatesAll(ctx)
	if err != nil {
		return err
	}

	a.logger.Info().
		Int("newly_overdue", overdue).
		Int("notifications", notified).
		Int("duplicates_removed", removed).
		Msg("sweep finished")
	return nil
}
