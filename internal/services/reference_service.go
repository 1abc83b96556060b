package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/task-insights-api/internal/cache"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrStatusNotFound       = errors.New("status not found")
	ErrNoStatuses           = errors.New("no statuses configured")
	ErrCategoryNotFound     = errors.New("category not found")
	ErrCategoryExists       = errors.New("category already exists")
	ErrCategoryNameRequired = errors.New("category name is required")
)

// StatusService serves the status vocabulary through the cache.
type StatusService struct {
	repo  repository.StatusRepository
	cache *cache.Store
}

// NewStatusService creates a new StatusService.
func NewStatusService(repo repository.StatusRepository, store *cache.Store) *StatusService {
	return &StatusService{repo: repo, cache: store}
}

// List returns every status in display order.
func (s *StatusService) List(ctx context.Context) ([]models.Status, error) {
	if statuses, ok := cache.GetAs[[]models.Status](s.cache, cache.StatusesAllKey); ok {
		return statuses, nil
	}

	statuses, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list statuses: %w", err)
	}

	s.cache.Set(cache.StatusesAllKey, statuses, cache.StatusTTL)
	for _, st := range statuses {
		s.cache.Set(cache.StatusKey(st.ID), st, cache.StatusTTL)
	}
	return statuses, nil
}

// Default returns the status with the lowest display order.
func (s *StatusService) Default(ctx context.Context) (*models.Status, error) {
	statuses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, ErrNoStatuses
	}
	return &statuses[0], nil
}

// ByName returns the status with the given name.
func (s *StatusService) ByName(ctx context.Context, name string) (*models.Status, error) {
	statuses, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range statuses {
		if statuses[i].Name == name {
			return &statuses[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrStatusNotFound, name)
}

// Get returns a single status.
func (s *StatusService) Get(ctx context.Context, id uint64) (*models.Status, error) {
	found, err := s.Lookup(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	st, ok := found[id]
	if !ok {
		return nil, ErrStatusNotFound
	}
	return &st, nil
}

// Lookup batch-resolves statuses: cached entries first, one query for the rest.
func (s *StatusService) Lookup(ctx context.Context, ids []uint64) (map[uint64]models.Status, error) {
	result := make(map[uint64]models.Status, len(ids))
	var missing []uint64
	for _, id := range uniqueUint64(ids) {
		if st, ok := cache.GetAs[models.Status](s.cache, cache.StatusKey(id)); ok {
			result[id] = st
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	statuses, err := s.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	for _, st := range statuses {
		s.cache.Set(cache.StatusKey(st.ID), st, cache.StatusTTL)
		result[st.ID] = st
	}
	return result, nil
}

// CategoryService manages the shared category table.
type CategoryService struct {
	repo  repository.CategoryRepository
	cache *cache.Store
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(repo repository.CategoryRepository, store *cache.Store) *CategoryService {
	return &CategoryService{repo: repo, cache: store}
}

// CreateCategoryInput represents input for creating a category.
type CreateCategoryInput struct {
	Name        string
	Description *string
	Color       *string
}

// Create stores a category under its upper-cased name, rejecting names that
// already exist in any letter case.
func (s *CategoryService) Create(ctx context.Context, input CreateCategoryInput) (*models.Category, error) {
	name := strings.ToUpper(strings.TrimSpace(input.Name))
	if name == "" {
		return nil, ErrCategoryNameRequired
	}

	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return nil, ErrCategoryExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}

	category := &models.Category{
		Name:        name,
		Description: input.Description,
		Color:       input.Color,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	s.cache.Clear(cache.CategoriesAllKey)
	s.cache.Set(cache.CategoryKey(category.ID), *category, cache.CategoryTTL)
	return category, nil
}

// List returns every category ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	if categories, ok := cache.GetAs[[]models.Category](s.cache, cache.CategoriesAllKey); ok {
		return categories, nil
	}

	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	s.cache.Set(cache.CategoriesAllKey, categories, cache.CategoryTTL)
	return categories, nil
}

// Get returns a single category.
func (s *CategoryService) Get(ctx context.Context, id uint64) (*models.Category, error) {
	found, err := s.Lookup(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	category, ok := found[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	return &category, nil
}

// Lookup batch-resolves categories: cached entries first, one query for the rest.
func (s *CategoryService) Lookup(ctx context.Context, ids []uint64) (map[uint64]models.Category, error) {
	result := make(map[uint64]models.Category, len(ids))
	var missing []uint64
	for _, id := range uniqueUint64(ids) {
		if category, ok := cache.GetAs[models.Category](s.cache, cache.CategoryKey(id)); ok {
			result[id] = category
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return result, nil
	}

	categories, err := s.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	for _, category := range categories {
		s.cache.Set(cache.CategoryKey(category.ID), category, cache.CategoryTTL)
		result[category.ID] = category
	}
	return result, nil
}
