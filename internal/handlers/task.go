package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/dto"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/middleware"
	"github.com/yukikurage/task-insights-api/internal/services"
	"github.com/yukikurage/task-insights-api/internal/utils"
)

type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns one page of the current user's tasks
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	input := services.ListTasksInput{UserID: userID}
	var err error
	if input.StatusID, err = optionalUint(c, "status_id"); err != nil {
		apierrors.Validation(c, "Invalid status_id", nil)
		return
	}
	if input.CategoryID, err = optionalUint(c, "category_id"); err != nil {
		apierrors.Validation(c, "Invalid category_id", nil)
		return
	}
	if raw := c.Query("is_completed"); raw != "" {
		done, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.Validation(c, "Invalid is_completed", nil)
			return
		}
		input.IsCompleted = &done
	}
	if raw := c.Query("priority"); raw != "" {
		priority, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.Validation(c, "Invalid priority", nil)
			return
		}
		input.Priority = &priority
	}
	if input.CreatedFrom, input.CreatedTo, err = utils.ParseDateRange(c.Query("from"), c.Query("to")); err != nil {
		apierrors.Validation(c, err.Error(), nil)
		return
	}

	params := utils.GetPaginationParams(c)
	input.Offset = params.Offset
	input.Limit = params.Limit

	page, err := h.taskService.List(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, dto.ToTaskListResponse(page))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	details, err := h.taskService.Get(c.Request.Context(), userID, taskID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, dto.ToTaskDTO(*details))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title          string   `json:"title" binding:"required,max=255"`
		Description    string   `json:"description"`
		CategoryID     *uint64  `json:"category_id"`
		StatusID       *uint64  `json:"status_id"`
		Priority       *int     `json:"priority"`
		EstimatedHours *float64 `json:"estimated_hours"`
		DueDate        *string  `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Validation(c, "Invalid request body", err.Error())
		return
	}

	dueDate, err := optionalTime(req.DueDate)
	if err != nil {
		apierrors.Validation(c, "Invalid due_date", nil)
		return
	}

	details, err := h.taskService.Create(c.Request.Context(), services.CreateTaskInput{
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		StatusID:       req.StatusID,
		Priority:       req.Priority,
		EstimatedHours: req.EstimatedHours,
		DueDate:        dueDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusCreated, dto.ToTaskDTO(*details))
}

// UpdateTask applies a partial update
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title          *string  `json:"title" binding:"omitempty,max=255"`
		Description    *string  `json:"description"`
		CategoryID     *uint64  `json:"category_id"`
		ClearCategory  bool     `json:"clear_category"`
		StatusID       *uint64  `json:"status_id"`
		Priority       *int     `json:"priority"`
		ClearPriority  bool     `json:"clear_priority"`
		EstimatedHours *float64 `json:"estimated_hours"`
		ActualHours    *float64 `json:"actual_hours"`
		DueDate        *string  `json:"due_date"`
		ClearDueDate   bool     `json:"clear_due_date"`
		IsCompleted    *bool    `json:"is_completed"`
		CompletedAt    *string  `json:"completed_at"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Validation(c, "Invalid request body", err.Error())
		return
	}

	dueDate, err := optionalTime(req.DueDate)
	if err != nil {
		apierrors.Validation(c, "Invalid due_date", nil)
		return
	}
	completedAt, err := optionalTime(req.CompletedAt)
	if err != nil {
		apierrors.Validation(c, "Invalid completed_at", nil)
		return
	}

	details, err := h.taskService.Update(c.Request.Context(), userID, taskID, services.UpdateTaskInput{
		Title:          req.Title,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		ClearCategory:  req.ClearCategory,
		StatusID:       req.StatusID,
		Priority:       req.Priority,
		ClearPriority:  req.ClearPriority,
		EstimatedHours: req.EstimatedHours,
		ActualHours:    req.ActualHours,
		DueDate:        dueDate,
		ClearDueDate:   req.ClearDueDate,
		IsCompleted:    req.IsCompleted,
		CompletedAt:    completedAt,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, dto.ToTaskDTO(*details))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, taskID, ok := taskRequest(c)
	if !ok {
		return
	}

	if err := h.taskService.Delete(c.Request.Context(), userID, taskID); err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}

// ReconcileTasks moves past-due tasks to Overdue on demand
func (h *TaskHandler) ReconcileTasks(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.taskService.ReconcileOverdue(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{
		"newly_overdue": count,
	})
}

// GenerateTasks uses AI to draft tasks from text
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}

	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required,max=10000"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Validation(c, "Invalid request body", err.Error())
		return
	}

	drafts, err := h.taskService.GenerateDrafts(c.Request.Context(), req.Text)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, dto.TaskDraftListResponse{Drafts: drafts})
}

func taskRequest(c *gin.Context) (uint64, uint64, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return 0, 0, false
	}
	taskID, ok := middleware.GetIDParam(c, constants.ContextKeyTaskID)
	if !ok {
		apierrors.BadRequest(c, "Invalid task ID")
		return 0, 0, false
	}
	return userID, taskID, true
}

func optionalUint(c *gin.Context, key string) (*uint64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalTime(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := utils.ParseTimeInput(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
