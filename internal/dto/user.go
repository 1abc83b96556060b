package dto

import (
	"time"

	"github.com/yukikurage/task-insights-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID          uint64 `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// AccountDTO represents a local account in API responses
type AccountDTO struct {
	Username string  `json:"username"`
	User     UserDTO `json:"user"`
}

// NotificationDTO represents a notification in API responses
type NotificationDTO struct {
	ID        uint64                  `json:"id"`
	TaskID    *uint64                 `json:"task_id"`
	Type      models.NotificationType `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message"`
	IsRead    bool                    `json:"is_read"`
	CreatedAt time.Time               `json:"created_at"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}
}

// ToAccountDTO pairs a local account with the user it resolves to
func ToAccountDTO(account models.AuthAccount, user models.User) AccountDTO {
	return AccountDTO{
		Username: account.Username,
		User:     ToUserDTO(user),
	}
}

// ToNotificationDTOs converts notifications to DTOs
func ToNotificationDTOs(notifications []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		items[i] = NotificationDTO{
			ID:        n.ID,
			TaskID:    n.TaskID,
			Type:      n.Type,
			Title:     n.Title,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		}
	}
	return items
}
