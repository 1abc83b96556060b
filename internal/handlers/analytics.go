package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"github.com/yukikurage/task-insights-api/internal/services"
	"github.com/yukikurage/task-insights-api/internal/utils"
)

type AnalyticsHandler struct {
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

func (h *AnalyticsHandler) CompletionStats(c *gin.Context) {
	serveMetric(c, func(ctx context.Context, userID uint64, dr repository.DateRange) (any, error) {
		return h.analytics.CompletionStats(ctx, userID, dr)
	})
}

func (h *AnalyticsHandler) CompletionByDayOfWeek(c *gin.Context) {
	serveMetric(c, func(ctx context.Context, userID uint64, dr repository.DateRange) (any, error) {
		days, err := h.analytics.CompletionByDayOfWeek(ctx, userID, dr)
		return gin.H{"days": days}, err
	})
}

func (h *AnalyticsHandler) OnTimeStats(c *gin.Context) {
	serveMetric(c, func(ctx context.Context, userID uint64, dr repository.DateRange) (any, error) {
		return h.analytics.OnTimeCompletionStats(ctx, userID, dr)
	})
}

func (h *AnalyticsHandler) CategoryCompletionTime(c *gin.Context) {
	serveMetric(c, func(ctx context.Context, userID uint64, dr repository.DateRange) (any, error) {
		categories, err := h.analytics.CategoryCompletionTime(ctx, userID, dr)
		return gin.H{"categories": categories}, err
	})
}

func (h *AnalyticsHandler) Productivity(c *gin.Context) {
	serveMetric(c, func(ctx context.Context, userID uint64, dr repository.DateRange) (any, error) {
		return h.analytics.ProductivityMetrics(ctx, userID, dr)
	})
}

// serveMetric parses the from/to window and renders one metric.
func serveMetric(c *gin.Context, compute func(ctx context.Context, userID uint64, dr repository.DateRange) (any, error)) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	from, to, err := utils.ParseDateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		apierrors.Validation(c, "Invalid date range", nil)
		return
	}

	result, err := compute(c.Request.Context(), userID, repository.DateRange{From: from, To: to})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, result)
}
