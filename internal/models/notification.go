package models

import "time"

type NotificationType string

const (
	NotificationReminder  NotificationType = "reminder"
	NotificationOverdue   NotificationType = "overdue"
	NotificationUpcoming  NotificationType = "upcoming"
	NotificationCompleted NotificationType = "completed"
)

type Notification struct {
	ID        uint64           `gorm:"primarykey" json:"id"`
	UserID    uint64           `gorm:"not null;index" json:"user_id"`
	TaskID    *uint64          `gorm:"index" json:"task_id"`
	Type      NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	Title     string           `gorm:"type:varchar(255);not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	IsRead    bool             `gorm:"not null;default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}
