package handlers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/middleware"
	"github.com/yukikurage/task-insights-api/internal/services"
)

// Handlers groups the HTTP handlers mounted by NewRouter.
type Handlers struct {
	Auth         *AuthHandler
	Task         *TaskHandler
	Reference    *ReferenceHandler
	Notification *NotificationHandler
	Analytics    *AnalyticsHandler
}

// RouterOptions carries the cross-cutting middleware dependencies.
type RouterOptions struct {
	SessionStore sessions.Store
	Resolver     middleware.IdentityResolver
	Verifier     services.TokenVerifier
	Limiter      *middleware.RateLimiter
	Logger       zerolog.Logger
}

// NewRouter builds the gin engine with every API route registered.
func NewRouter(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(opts.Logger))
	r.Use(sessions.Sessions(constants.SessionCookieName, opts.SessionStore))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Task Insights API is running",
		})
	})

	requireAuth := middleware.RequireAuth(opts.Resolver, opts.Verifier)
	protected := []gin.HandlerFunc{requireAuth}
	if opts.Limiter != nil {
		protected = append(protected, middleware.RateLimitByMethod(opts.Limiter))
	}
	taskID := middleware.RequireIDParam(constants.ContextKeyTaskID)
	notificationID := middleware.RequireIDParam(constants.ContextKeyNotificationID)

	api := r.Group("/api")
	{
		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Auth.Signup)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", h.Auth.Logout)
			auth.GET("/me", requireAuth, h.Auth.GetCurrentUser)
		}

		tasks := api.Group("/tasks")
		tasks.Use(protected...)
		{
			tasks.GET("", h.Task.ListTasks)
			tasks.POST("", h.Task.CreateTask)
			tasks.POST("/generate", h.Task.GenerateTasks)
			tasks.POST("/reconcile", h.Task.ReconcileTasks)
			tasks.GET("/:id", taskID, h.Task.GetTask)
			tasks.PATCH("/:id", taskID, h.Task.UpdateTask)
			tasks.DELETE("/:id", taskID, h.Task.DeleteTask)
		}

		statuses := api.Group("/statuses")
		statuses.Use(protected...)
		{
			statuses.GET("", h.Reference.ListStatuses)
		}

		categories := api.Group("/categories")
		categories.Use(protected...)
		{
			categories.GET("", h.Reference.ListCategories)
			categories.POST("", h.Reference.CreateCategory)
		}

		notifications := api.Group("/notifications")
		notifications.Use(protected...)
		{
			notifications.GET("", h.Notification.ListNotifications)
			notifications.GET("/unread-count", h.Notification.UnreadCount)
			notifications.POST("/scan", h.Notification.Scan)
			notifications.POST("/read-all", h.Notification.MarkAllRead)
			notifications.POST("/dedupe", h.Notification.RemoveDuplicates)
			notifications.POST("/:id/read", notificationID, h.Notification.MarkRead)
		}

		analytics := api.Group("/analytics")
		analytics.Use(protected...)
		{
			analytics.GET("/completion", h.Analytics.CompletionStats)
			analytics.GET("/day-of-week", h.Analytics.CompletionByDayOfWeek)
			analytics.GET("/on-time", h.Analytics.OnTimeStats)
			analytics.GET("/category-time", h.Analytics.CategoryCompletionTime)
			analytics.GET("/productivity", h.Analytics.Productivity)
		}
	}

	return r
}
