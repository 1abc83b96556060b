package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/constants"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
)

// RateLimitInfo describes the caller's standing in the current window.
type RateLimitInfo struct {
	Class     string    `json:"class"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

type rateWindow struct {
	count int
	start time.Time
}

// RateLimiter counts requests per user and endpoint class in fixed windows
// kept in the cache.
type RateLimiter struct {
	mu     sync.Mutex
	store  *cache.Store
	limits map[string]int
	window time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter with a request budget per class.
func NewRateLimiter(store *cache.Store, limits map[string]int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limits: limits,
		window: window,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (l *RateLimiter) SetClock(now func() time.Time) {
	l.now = now
}

// Allow counts one request and reports whether it fits the budget.
func (l *RateLimiter) Allow(userID uint64, class string) (RateLimitInfo, bool) {
	limit, ok := l.limits[class]
	if !ok || limit <= 0 {
		return RateLimitInfo{Class: class}, true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := cache.RateLimitKey(userID, class)
	w, found := cache.GetAs[rateWindow](l.store, key)
	if !found || now.Sub(w.start) >= l.window {
		w = rateWindow{start: now}
	}

	info := RateLimitInfo{
		Class:   class,
		Limit:   limit,
		ResetAt: w.start.Add(l.window),
	}
	if w.count >= limit {
		return info, false
	}

	w.count++
	l.store.Set(key, w, w.start.Add(l.window).Sub(now))
	info.Remaining = limit - w.count
	return info, true
}

// RateLimit rejects requests over the class budget with 429. It must run
// after RequireAuth.
func RateLimit(limiter *RateLimiter, class string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.Next()
			return
		}

		info, allowed := limiter.Allow(userID, class)
		if info.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
			c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt.Unix(), 10))
		}
		c.Set(constants.ContextKeyRateLimitInfo, info)

		if !allowed {
			apierrors.RateLimited(c, info)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClassFor picks the rate class for an HTTP method.
func ClassFor(method string) string {
	switch method {
	case "GET", "HEAD", "OPTIONS":
		return constants.RateClassRead
	default:
		return constants.RateClassWrite
	}
}

// RateLimitByMethod applies the read budget to safe methods and the write
// budget to everything else.
func RateLimitByMethod(limiter *RateLimiter) gin.HandlerFunc {
	read := RateLimit(limiter, constants.RateClassRead)
	write := RateLimit(limiter, constants.RateClassWrite)
	return func(c *gin.Context) {
		if ClassFor(c.Request.Method) == constants.RateClassRead {
			read(c)
			return
		}
		write(c)
	}
}
