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
	ErrMissingIdentity = errors.New("external identity is required")
	ErrUserNotFound    = errors.New("user not found")
)

// ExternalIdentity is what an identity provider vouches for.
type ExternalIdentity struct {
	ExternalID  string
	Email       string
	DisplayName string
}

// IdentityService maps external identities onto internal users, creating
// the user on first sight.
type IdentityService struct {
	userRepo repository.UserRepository
	cache    *cache.Store
}

// NewIdentityService creates a new IdentityService.
func NewIdentityService(userRepo repository.UserRepository, store *cache.Store) *IdentityService {
	return &IdentityService{userRepo: userRepo, cache: store}
}

// Resolve returns the internal user for an external identity. Concurrent first
// resolutions of the same identity converge on a single row.
func (s *IdentityService) Resolve(ctx context.Context, identity ExternalIdentity) (*models.User, error) {
	externalID := strings.TrimSpace(identity.ExternalID)
	if externalID == "" {
		return nil, ErrMissingIdentity
	}
	key := cache.IdentityKey(externalID)

	if user, ok := cache.GetAs[models.User](s.cache, key); ok && !profileChanged(&user, identity) {
		return &user, nil
	}

	user, err := s.userRepo.FindByExternalID(ctx, externalID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created := &models.User{
			ExternalID:  externalID,
			Email:       identity.Email,
			DisplayName: identity.DisplayName,
		}
		if err := s.userRepo.CreateIfAbsent(ctx, created); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		user, err = s.userRepo.FindByExternalID(ctx, externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if profileChanged(user, identity) {
		email, name := mergeProfile(user, identity)
		if err := s.userRepo.UpdateProfile(ctx, user.ID, email, name); err != nil {
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}
		user.Email = email
		user.DisplayName = name
	}

	s.cache.Set(key, *user, cache.IdentityTTL)
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *IdentityService) GetUser(ctx context.Context, id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// profileChanged reports whether the provider sent profile values that differ
// from the stored ones. Empty values never overwrite.
func profileChanged(user *models.User, identity ExternalIdentity) bool {
	return (identity.Email != "" && identity.Email != user.Email) ||
		(identity.DisplayName != "" && identity.DisplayName != user.DisplayName)
}

func mergeProfile(user *models.User, identity ExternalIdentity) (string, string) {
	email, name := user.Email, user.DisplayName
	if identity.Email != "" {
		email = identity.Email
	}
	if identity.DisplayName != "" {
		name = identity.DisplayName
	}
	return email, name
}
