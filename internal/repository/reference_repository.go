package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/task-insights-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStatusRepository is a GORM implementation of StatusRepository
type GormStatusRepository struct {
	db *gorm.DB
}

// NewStatusRepository creates a new StatusRepository
func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &GormStatusRepository{db: db}
}

// List returns statuses in display order
func (r *GormStatusRepository) List(ctx context.Context) ([]models.Status, error) {
	var statuses []models.Status
	if err := r.db.WithContext(ctx).Order("display_order ASC").Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// FindByIDs batch-loads statuses
func (r *GormStatusRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Status, error) {
	var statuses []models.Status
	if len(ids) == 0 {
		return statuses, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&statuses).Error; err != nil {
		return nil, err
	}
	return statuses, nil
}

// Seed inserts statuses whose name is not present yet
func (r *GormStatusRepository) Seed(ctx context.Context, statuses []models.Status) error {
	if len(statuses) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&statuses).Error
}

// GormCategoryRepository is a GORM implementation of CategoryRepository
type GormCategoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &GormCategoryRepository{db: db}
}

// Create creates a category
func (r *GormCategoryRepository) Create(ctx context.Context, category *models.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// List returns all categories ordered by name
func (r *GormCategoryRepository) List(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByID finds a category by ID
func (r *GormCategoryRepository) FindByID(ctx context.Context, id uint64) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// FindByIDs batch-loads categories
func (r *GormCategoryRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.Category, error) {
	var categories []models.Category
	if len(ids) == 0 {
		return categories, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

// FindByName finds a category by case-insensitive name
func (r *GormCategoryRepository) FindByName(ctx context.Context, name string) (*models.Category, error) {
	var category models.Category
	if err := r.db.WithContext(ctx).
		Where("UPPER(name) = ?", strings.ToUpper(strings.TrimSpace(name))).
		First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

// GormDateDimensionRepository is a GORM implementation of DateDimensionRepository
type GormDateDimensionRepository struct {
	db *gorm.DB
}

// NewDateDimensionRepository creates a new DateDimensionRepository
func NewDateDimensionRepository(db *gorm.DB) DateDimensionRepository {
	return &GormDateDimensionRepository{db: db}
}

// FindByFullDate finds the row for a date
func (r *GormDateDimensionRepository) FindByFullDate(ctx context.Context, fullDate string) (*models.DateDimension, error) {
	var dim models.DateDimension
	if err := r.db.WithContext(ctx).Where("full_date = ?", fullDate).First(&dim).Error; err != nil {
		return nil, err
	}
	return &dim, nil
}

// InsertIfAbsent relies on the unique full_date index to drop duplicates
func (r *GormDateDimensionRepository) InsertIfAbsent(ctx context.Context, dim *models.DateDimension) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "full_date"}}, DoNothing: true}).
		Create(dim).Error
}

// FindByIDs batch-loads date rows
func (r *GormDateDimensionRepository) FindByIDs(ctx context.Context, ids []uint64) ([]models.DateDimension, error) {
	var dims []models.DateDimension
	if len(ids) == 0 {
		return dims, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&dims).Error; err != nil {
		return nil, err
	}
	return dims, nil
}

// CountByFullDate counts rows for a date
func (r *GormDateDimensionRepository) CountByFullDate(ctx context.Context, fullDate string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DateDimension{}).Where("full_date = ?", fullDate).Count(&count).Error
	return count, err
}
