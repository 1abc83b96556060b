package cache

import "fmt"

// Key builders. Every family here must be invalidated at each mutation site
// that can change it.

func TaskListPrefix(userID uint64) string {
	return fmt.Sprintf("tasks:%d:", userID)
}

func TaskListKey(userID uint64, fingerprint string) string {
	return TaskListPrefix(userID) + fingerprint
}

func AnalyticsPrefix(userID uint64) string {
	return fmt.Sprintf("analytics:%d:", userID)
}

func AnalyticsKey(userID uint64, metric, fingerprint string) string {
	return AnalyticsPrefix(userID) + metric + ":" + fingerprint
}

func StatusKey(id uint64) string {
	return fmt.Sprintf("status:%d", id)
}

func CategoryKey(id uint64) string {
	return fmt.Sprintf("category:%d", id)
}

func DateIDKey(fullDate string) string {
	return "date:" + fullDate
}

func DateDimensionKey(id uint64) string {
	return fmt.Sprintf("datedim:%d", id)
}

func IdentityKey(externalID string) string {
	return "user:ext:" + externalID
}

func RateLimitKey(userID uint64, class string) string {
	return fmt.Sprintf("ratelimit:%d:%s", userID, class)
}

const (
	StatusesAllKey   = "statuses:all"
	CategoriesAllKey = "categories:all"
)
