package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/dto"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/services"
)

type ReferenceHandler struct {
	statuses   *services.StatusService
	categories *services.CategoryService
}

func NewReferenceHandler(statuses *services.StatusService, categories *services.CategoryService) *ReferenceHandler {
	return &ReferenceHandler{
		statuses:   statuses,
		categories: categories,
	}
}

// ListStatuses returns the seeded workflow statuses in display order
func (h *ReferenceHandler) ListStatuses(c *gin.Context) {
	statuses, err := h.statuses.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.StatusDTO, len(statuses))
	for i, s := range statuses {
		items[i] = dto.ToStatusDTO(s)
	}
	apierrors.Respond(c, http.StatusOK, gin.H{"statuses": items})
}

// ListCategories returns every category
func (h *ReferenceHandler) ListCategories(c *gin.Context) {
	categories, err := h.categories.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]dto.CategoryDTO, len(categories))
	for i, cat := range categories {
		items[i] = dto.ToCategoryDTO(cat)
	}
	apierrors.Respond(c, http.StatusOK, gin.H{"categories": items})
}

// CreateCategory adds a category
func (h *ReferenceHandler) CreateCategory(c *gin.Context) {
	type CreateCategoryRequest struct {
		Name        string  `json:"name" binding:"required,max=100"`
		Description *string `json:"description"`
		Color       *string `json:"color" binding:"omitempty,max=20"`
	}

	var req CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Validation(c, "Invalid request body", err.Error())
		return
	}

	category, err := h.categories.Create(c.Request.Context(), services.CreateCategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Color:       req.Color,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusCreated, dto.ToCategoryDTO(*category))
}
