package constants

const (
	// Session
	SessionCookieName        = "task_session"
	SessionKeyExternalID     = "external_id"
	SessionKeyEmail          = "email"
	SessionKeyDisplayName    = "display_name"
	ContextKeyUserID         = "user_id"
	ContextKeyIdentity       = "identity"
	ContextKeyRateLimitInfo  = "rate_limit"
	ContextKeyTaskID         = "task_id"
	ContextKeyNotificationID = "notification_id"

	// Pagination
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	// Validation
	MinPasswordLength = 8
	MinPriority       = 1
	MaxPriority       = 5

	// AI
	MaxAIGeneratedTasks = 20

	// Rate limit classes
	RateClassRead  = "read"
	RateClassWrite = "write"
)
