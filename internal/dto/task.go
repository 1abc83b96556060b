package dto

import (
	"time"

	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/services"
	"github.com/yukikurage/task-insights-api/internal/utils"
)

// StatusDTO represents a status in API responses
type StatusDTO struct {
	ID           uint64 `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}

// CategoryDTO represents a category in API responses
type CategoryDTO struct {
	ID          uint64  `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Color       *string `json:"color,omitempty"`
}

// DateDTO is the display slice of a calendar row
type DateDTO struct {
	ID        uint64 `json:"id"`
	FullDate  string `json:"full_date"`
	DayName   string `json:"day_name"`
	DayOfWeek int    `json:"day_of_week"`
	MonthName string `json:"month_name"`
	IsWeekend bool   `json:"is_weekend"`
}

// TaskDTO represents an enriched task in API responses
type TaskDTO struct {
	ID             uint64       `json:"id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	Priority       *int         `json:"priority"`
	EstimatedHours *float64     `json:"estimated_hours"`
	ActualHours    *float64     `json:"actual_hours"`
	DueDate        *time.Time   `json:"due_date"`
	IsCompleted    bool         `json:"is_completed"`
	CompletedAt    *time.Time   `json:"completed_at"`
	StatusID       uint64       `json:"status_id"`
	CategoryID     *uint64      `json:"category_id"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
	Status         *StatusDTO   `json:"status,omitempty"`
	Category       *CategoryDTO `json:"category,omitempty"`
	CreatedDate    *DateDTO     `json:"created_date,omitempty"`
	CompletedDate  *DateDTO     `json:"completed_date,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// TaskDraftListResponse wraps AI generated drafts
type TaskDraftListResponse struct {
	Drafts []services.TaskDraft `json:"drafts"`
}

// Conversion functions

// ToStatusDTO converts a Status model to StatusDTO
func ToStatusDTO(status models.Status) StatusDTO {
	return StatusDTO{
		ID:           status.ID,
		Name:         status.Name,
		DisplayOrder: status.DisplayOrder,
	}
}

// ToCategoryDTO converts a Category model to CategoryDTO
func ToCategoryDTO(category models.Category) CategoryDTO {
	return CategoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
		Color:       category.Color,
	}
}

// ToDateDTO converts a DateDimension model to DateDTO
func ToDateDTO(dim models.DateDimension) DateDTO {
	return DateDTO{
		ID:        dim.ID,
		FullDate:  dim.FullDate,
		DayName:   dim.DayName,
		DayOfWeek: dim.DayOfWeek,
		MonthName: dim.MonthName,
		IsWeekend: dim.IsWeekend,
	}
}

// ToTaskDTO converts enriched task details to TaskDTO
func ToTaskDTO(details services.TaskDetails) TaskDTO {
	task := details.Task
	dto := TaskDTO{
		ID:             task.ID,
		Title:          task.Title,
		Description:    task.Description,
		Priority:       task.Priority,
		EstimatedHours: task.EstimatedHours,
		ActualHours:    task.ActualHours,
		DueDate:        task.DueDate,
		IsCompleted:    task.IsCompleted,
		CompletedAt:    task.CompletedAt,
		StatusID:       task.StatusID,
		CategoryID:     task.CategoryID,
		CreatedAt:      task.CreatedAt,
		UpdatedAt:      task.UpdatedAt,
	}

	if details.Status != nil {
		status := ToStatusDTO(*details.Status)
		dto.Status = &status
	}
	if details.Category != nil {
		category := ToCategoryDTO(*details.Category)
		dto.Category = &category
	}
	if details.CreatedDate != nil {
		created := ToDateDTO(*details.CreatedDate)
		dto.CreatedDate = &created
	}
	if details.CompletedDate != nil {
		completed := ToDateDTO(*details.CompletedDate)
		dto.CompletedDate = &completed
	}

	return dto
}

// ToTaskListResponse converts a page of tasks to TaskListResponse
func ToTaskListResponse(page *services.TaskPage) TaskListResponse {
	items := make([]TaskDTO, len(page.Tasks))
	for i, details := range page.Tasks {
		items[i] = ToTaskDTO(details)
	}

	return TaskListResponse{
		Tasks: items,
		Pagination: utils.PaginationResponse{
			Offset:  page.Offset,
			Limit:   page.Limit,
			Total:   page.Total,
			HasMore: page.HasMore,
		},
	}
}
