package models

import (
	"time"
)

type Task struct {
	ID              uint64     `gorm:"primarykey" json:"id"`
	UserID          uint64     `gorm:"not null;index" json:"user_id"`
	CategoryID      *uint64    `gorm:"index" json:"category_id"`
	StatusID        uint64     `gorm:"not null;index" json:"status_id"`
	Priority        *int       `json:"priority"`
	Title           string     `gorm:"type:varchar(255);not null" json:"title"`
	Description     string     `gorm:"type:text" json:"description"`
	EstimatedHours  *float64   `json:"estimated_hours"`
	ActualHours     *float64   `json:"actual_hours"`
	DueDate         *time.Time `gorm:"index" json:"due_date"`
	IsCompleted     bool       `gorm:"not null;default:false;index" json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at"`
	CreatedDateID   uint64     `gorm:"not null" json:"created_date_id"`
	CompletedDateID *uint64    `json:"completed_date_id"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	// Revision counts updates; change log entries carry the revision that
	// produced them.
	Revision uint64 `gorm:"not null;default:0" json:"-"`
}

// CompletionConsistent reports whether the completion flag, timestamp and
// date reference agree with each other.
func (t *Task) CompletionConsistent() bool {
	if t.IsCompleted {
		return t.CompletedAt != nil && t.CompletedDateID != nil
	}
	return t.CompletedAt == nil && t.CompletedDateID == nil
}
