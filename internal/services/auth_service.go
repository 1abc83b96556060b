package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LocalIdentityPrefix namespaces external ids issued by the local account store.
const LocalIdentityPrefix = "local:"

var (
	ErrUsernameRequired     = errors.New("username is required")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrAccountNotFound      = errors.New("account not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
)

// AuthService is the local identity provider: username/password accounts
// that vouch for an external id.
type AuthService struct {
	accountRepo repository.AuthAccountRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(accountRepo repository.AuthAccountRepository) *AuthService {
	return &AuthService{
		accountRepo: accountRepo,
	}
}

// SignupInput represents the required information to create a new account.
type SignupInput struct {
	Username    string
	Password    string
	Email       string
	DisplayName string
}

// Signup creates a new local account.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (*models.AuthAccount, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.accountRepo.FindByUsername(ctx, username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	account := &models.AuthAccount{
		ExternalID:   LocalIdentityPrefix + uuid.NewString(),
		Username:     username,
		Email:        strings.TrimSpace(input.Email),
		DisplayName:  displayName,
		PasswordHash: string(hashedPassword),
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, ErrFailedToCreateUser
	}

	return account, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Username string
	Password string
}

// Login verifies credentials and returns the authenticated account.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.AuthAccount, error) {
	account, err := s.accountRepo.FindByUsername(ctx, strings.TrimSpace(input.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return account, nil
}

// GetAccount retrieves an account by the external id it issued.
func (s *AuthService) GetAccount(ctx context.Context, externalID string) (*models.AuthAccount, error) {
	account, err := s.accountRepo.FindByExternalID(ctx, externalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to find account: %w", err)
	}
	return account, nil
}

// IdentityOf returns what the local provider vouches for an account.
func IdentityOf(account *models.AuthAccount) ExternalIdentity {
	return ExternalIdentity{
		ExternalID:  account.ExternalID,
		Email:       account.Email,
		DisplayName: account.DisplayName,
	}
}
