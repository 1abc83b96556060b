package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/dto"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/services"
)

func TestReferenceRoutes(t *testing.T) {
	env := newAPIEnv(t, nil)
	alice := env.signup(t, "alice")

	w := alice.do(t, http.MethodGet, "/api/statuses", nil)
	require.Equal(t, http.StatusOK, w.Code)
	statuses := decode[map[string][]dto.StatusDTO](t, w).Data["statuses"]
	require.Len(t, statuses, 4)
	assert.Equal(t, models.StatusPending, statuses[0].Name)

	w = alice.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "work", "color": "#112233"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	category := decode[dto.CategoryDTO](t, w).Data
	assert.Equal(t, "WORK", category.Name)

	w = alice.do(t, http.MethodPost, "/api/categories", map[string]any{"name": "Work"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = alice.do(t, http.MethodGet, "/api/categories", nil)
	categories := decode[map[string][]dto.CategoryDTO](t, w).Data["categories"]
	require.Len(t, categories, 1)

	w = alice.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Filed", "category_id": category.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	task := decode[dto.TaskDTO](t, w).Data
	require.NotNil(t, task.Category)
	assert.Equal(t, "WORK", task.Category.Name)
}

func TestNotificationRoutes(t *testing.T) {
	env := newAPIEnv(t, nil)
	alice := env.signup(t, "alice")
	bob := env.signup(t, "bob")

	w := alice.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Overdue thing", "due_date": "2000-01-01"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = alice.do(t, http.MethodPost, "/api/notifications/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	scan := decode[services.ScanResult](t, w).Data
	assert.Equal(t, 1, scan.Scanned)
	assert.Equal(t, 1, scan.Overdue)
	assert.Equal(t, 1, scan.Created)

	// A second scan inside the window adds nothing.
	w = alice.do(t, http.MethodPost, "/api/notifications/scan", nil)
	assert.Equal(t, 0, decode[services.ScanResult](t, w).Data.Overdue)

	w = alice.do(t, http.MethodGet, "/api/notifications/unread-count", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(2), decode[map[string]int64](t, w).Data["unread"])

	w = alice.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	items := decode[map[string][]dto.NotificationDTO](t, w).Data["notifications"]
	require.Len(t, items, 2)
	assert.Equal(t, models.NotificationOverdue, items[0].Type)

	path := fmt.Sprintf("/api/notifications/%d/read", items[0].ID)
	w = bob.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = alice.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = alice.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = alice.do(t, http.MethodPost, "/api/notifications/read-all", nil)
	assert.Equal(t, int64(1), decode[map[string]int64](t, w).Data["updated"])

	w = alice.do(t, http.MethodPost, "/api/notifications/dedupe", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = alice.do(t, http.MethodGet, "/api/notifications?limit=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyticsRoutes(t *testing.T) {
	env := newAPIEnv(t, nil)
	alice := env.signup(t, "alice")

	for i := 0; i < 2; i++ {
		w := alice.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": fmt.Sprintf("T%d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
		id := decode[dto.TaskDTO](t, w).Data.ID
		if i == 0 {
			w = alice.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", id), map[string]any{"is_completed": true})
			require.Equal(t, http.StatusOK, w.Code)
		}
	}

	w := alice.do(t, http.MethodGet, "/api/analytics/completion", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.CompletionStats](t, w).Data
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Completed)
	assert.Equal(t, 50.0, stats.CompletionRate)

	w = alice.do(t, http.MethodGet, "/api/analytics/day-of-week", nil)
	require.Equal(t, http.StatusOK, w.Code)
	days := decode[map[string][]services.DayOfWeekCount](t, w).Data["days"]
	require.Len(t, days, 1)
	assert.Equal(t, 1, days[0].Count)

	for _, path := range []string{"/api/analytics/on-time", "/api/analytics/category-time", "/api/analytics/productivity"} {
		w = alice.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = alice.do(t, http.MethodGet, "/api/analytics/completion?from=nonsense", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitedRoutes(t *testing.T) {
	env := newAPIEnv(t, map[string]int{
		constants.RateClassRead:  2,
		constants.RateClassWrite: 1,
	})
	alice := env.signup(t, "alice")

	for i := 0; i < 2; i++ {
		w := alice.do(t, http.MethodGet, "/api/tasks", nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	w := alice.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apierrors.ErrCodeRateLimited, errorCode(t, w))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	// Writes have their own budget.
	w = alice.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "one"})
	assert.Equal(t, http.StatusCreated, w.Code)
	w = alice.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "two"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	// Budgets are per user.
	bob := env.signup(t, "bob")
	w = bob.do(t, http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
