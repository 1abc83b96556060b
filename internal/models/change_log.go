package models

import "time"

type ChangeType string

const (
	ChangeCompleted     ChangeType = "completed"
	ChangeUncompleted   ChangeType = "uncompleted"
	ChangeDateChanged   ChangeType = "date_changed"
	ChangeStatusChanged ChangeType = "status_changed"
	ChangeOther         ChangeType = "other"
)

// TaskChangeLog is append-only. TaskID is nulled when the task is deleted so
// that history survives the fact row.
type TaskChangeLog struct {
	ID              uint64     `gorm:"primarykey" json:"id"`
	TaskID          *uint64    `gorm:"index" json:"task_id"`
	UserID          uint64     `gorm:"not null;index" json:"user_id"`
	ChangeType      ChangeType `gorm:"type:varchar(20);not null;index" json:"change_type"`
	FieldName       *string    `gorm:"type:varchar(50)" json:"field_name"`
	OldValue        *string    `gorm:"type:text" json:"old_value"`
	NewValue        *string    `gorm:"type:text" json:"new_value"`
	CompletedAt     *time.Time `json:"completed_at"`
	CompletedDateID *uint64    `json:"completed_date_id"`
	LoggedDateID    uint64     `gorm:"not null" json:"logged_date_id"`
	TaskRevision    uint64     `gorm:"not null;default:0" json:"task_revision"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
}

// After reports whether l was written by a later task revision than other.
// Entries of the same revision keep their insertion order.
func (l *TaskChangeLog) After(other *TaskChangeLog) bool {
	if l.TaskRevision != other.TaskRevision {
		return l.TaskRevision > other.TaskRevision
	}
	return l.ID > other.ID
}
