package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/calendar"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/database"
	"github.com/yukikurage/task-insights-api/internal/middleware"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"github.com/yukikurage/task-insights-api/internal/services"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeVerifier struct {
	tokens map[string]services.ExternalIdentity
}

func (v *fakeVerifier) Verify(ctx context.Context, token string) (services.ExternalIdentity, error) {
	identity, ok := v.tokens[token]
	if !ok {
		return services.ExternalIdentity{}, services.ErrInvalidToken
	}
	return identity, nil
}

type apiEnv struct {
	db       *gorm.DB
	router   *gin.Engine
	effects  *services.SideEffects
	auth     *services.AuthService
	users    *services.IdentityService
	tasks    *services.TaskService
	verifier *fakeVerifier
}

func newAPIEnv(t *testing.T, limits map[string]int) *apiEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(context.Background(), db))

	store := cache.New()
	log := zerolog.Nop()

	taskRepo := repository.NewTaskRepository(db)
	changeLogRepo := repository.NewChangeLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	effects := services.NewSideEffects(log)
	statuses := services.NewStatusService(repository.NewStatusRepository(db), store)
	categories := services.NewCategoryService(repository.NewCategoryRepository(db), store)
	resolver := calendar.NewResolver(repository.NewDateDimensionRepository(db), store)
	changelog := services.NewChangeLogService(changeLogRepo, resolver, store, log)
	notifications := services.NewNotificationService(repository.NewNotificationRepository(db), taskRepo, userRepo, log)
	tasks := services.NewTaskService(taskRepo, statuses, categories, resolver, changelog, notifications, effects, store, log)
	analytics := services.NewAnalyticsService(taskRepo, changeLogRepo, statuses, categories, resolver, store)
	users := services.NewIdentityService(userRepo, store)
	auth := services.NewAuthService(repository.NewAuthAccountRepository(db))

	verifier := &fakeVerifier{tokens: map[string]services.ExternalIdentity{}}

	var limiter *middleware.RateLimiter
	if limits != nil {
		limiter = middleware.NewRateLimiter(store, limits, time.Minute)
	}

	router := NewRouter(Handlers{
		Auth:         NewAuthHandler(auth, users),
		Task:         NewTaskHandler(tasks),
		Reference:    NewReferenceHandler(statuses, categories),
		Notification: NewNotificationHandler(notifications),
		Analytics:    NewAnalyticsHandler(analytics),
	}, RouterOptions{
		SessionStore: cookie.NewStore([]byte("test-secret")),
		Resolver:     users,
		Verifier:     verifier,
		Limiter:      limiter,
		Logger:       log,
	})

	env := &apiEnv{
		db:       db,
		router:   router,
		effects:  effects,
		auth:     auth,
		users:    users,
		tasks:    tasks,
		verifier: verifier,
	}
	t.Cleanup(func() {
		effects.Wait()
		sqlDB.Close()
	})
	return env
}

// client carries the session cookies of one signed-in user.
type client struct {
	env     *apiEnv
	cookies []*http.Cookie
	headers map[string]string
}

func (e *apiEnv) anonymous() *client {
	return &client{env: e, headers: map[string]string{}}
}

// signup registers a local account and returns a client holding its session.
func (e *apiEnv) signup(t *testing.T, username string) *client {
	t.Helper()
	c := e.anonymous()
	w := c.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"username": username,
		"password": "supersecret",
		"email":    username + "@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	c.cookies = w.Result().Cookies()
	require.NotEmpty(t, c.cookies, "expected session cookie to be set")
	return c
}

func (c *client) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	c.env.router.ServeHTTP(w, req)
	c.env.effects.Wait()
	return w
}

type envelope[T any] struct {
	Data  T `json:"data"`
	Error *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) envelope[T] {
	t.Helper()
	var env envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	env := decode[json.RawMessage](t, w)
	require.NotNil(t, env.Error, w.Body.String())
	return env.Error.Code
}

// authedContext builds a bare gin context as RequireAuth would leave it.
func authedContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, url, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Set(constants.ContextKeyUserID, userID)
	return c, w
}
