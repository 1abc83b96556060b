package repository

import (
	"context"

	"github.com/yukikurage/task-insights-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// CreateIfAbsent inserts the user; a concurrent insert for the same external id is ignored
func (r *GormUserRepository) CreateIfAbsent(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_id"}}, DoNothing: true}).
		Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByExternalID finds a user by external identity
func (r *GormUserRepository) FindByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile updates email and display name
func (r *GormUserRepository) UpdateProfile(ctx context.Context, id uint64, email, displayName string) error {
	return r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"email":        email,
			"display_name": displayName,
		}).Error
}

// ListIDs returns every user id
func (r *GormUserRepository) ListIDs(ctx context.Context) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, err
}

// GormAuthAccountRepository is a GORM implementation of AuthAccountRepository
type GormAuthAccountRepository struct {
	db *gorm.DB
}

// NewAuthAccountRepository creates a new AuthAccountRepository
func NewAuthAccountRepository(db *gorm.DB) AuthAccountRepository {
	return &GormAuthAccountRepository{db: db}
}

// Create creates an account
func (r *GormAuthAccountRepository) Create(ctx context.Context, account *models.AuthAccount) error {
	return r.db.WithContext(ctx).Create(account).Error
}

// FindByUsername finds an account by username
func (r *GormAuthAccountRepository) FindByUsername(ctx context.Context, username string) (*models.AuthAccount, error) {
	var account models.AuthAccount
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByExternalID finds an account by the external id it issued
func (r *GormAuthAccountRepository) FindByExternalID(ctx context.Context, externalID string) (*models.AuthAccount, error) {
	var account models.AuthAccount
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
