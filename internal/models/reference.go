package models

import "time"

// Status names seeded at migration time.
const (
	StatusPending    = "Pending"
	StatusInProgress = "In Progress"
	StatusCompleted  = "Completed"
	StatusOverdue    = "Overdue"
)

// Status is read-mostly reference data.
type Status struct {
	ID           uint64 `gorm:"primarykey" json:"id"`
	Name         string `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	DisplayOrder int    `gorm:"not null" json:"display_order"`
}

// DefaultStatuses is the seed vocabulary, in display order.
func DefaultStatuses() []Status {
	return []Status{
		{Name: StatusPending, DisplayOrder: 1},
		{Name: StatusInProgress, DisplayOrder: 2},
		{Name: StatusCompleted, DisplayOrder: 3},
		{Name: StatusOverdue, DisplayOrder: 4},
	}
}

// Category names are stored upper-cased.
type Category struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null;index" json:"name"`
	Description *string   `gorm:"type:text" json:"description"`
	Color       *string   `gorm:"type:varchar(20)" json:"color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DateDimension has one row per calendar date.
type DateDimension struct {
	ID         uint64 `gorm:"primarykey" json:"id"`
	FullDate   string `gorm:"type:varchar(10);uniqueIndex;not null" json:"full_date"`
	Year       int    `gorm:"not null" json:"year"`
	Quarter    int    `gorm:"not null" json:"quarter"`
	Month      int    `gorm:"not null" json:"month"`
	MonthName  string `gorm:"type:varchar(20);not null" json:"month_name"`
	WeekOfYear int    `gorm:"not null" json:"week_of_year"`
	DayOfMonth int    `gorm:"not null" json:"day_of_month"`
	DayOfWeek  int    `gorm:"not null" json:"day_of_week"`
	DayName    string `gorm:"type:varchar(20);not null" json:"day_name"`
	IsWeekend  bool   `gorm:"not null" json:"is_weekend"`
	IsHoliday  bool   `gorm:"not null;default:false" json:"is_holiday"`
}
