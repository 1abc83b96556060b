package handlers

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/dto"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/models"
	"github.com/yukikurage/task-insights-api/internal/services"
)

// UserDirectory resolves identities and loads users.
type UserDirectory interface {
	Resolve(ctx context.Context, identity services.ExternalIdentity) (*models.User, error)
	GetUser(ctx context.Context, id uint64) (*models.User, error)
}

// AuthHandler coordinates authentication-related HTTP handlers.
type AuthHandler struct {
	authService *services.AuthService
	users       UserDirectory
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, users UserDirectory) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		users:       users,
	}
}

// Signup registers a new local account and signs it in.
func (h *AuthHandler) Signup(c *gin.Context) {
	type SignupRequest struct {
		Username    string `json:"username" binding:"required,min=3,max=50"`
		Password    string `json:"password" binding:"required"`
		Email       string `json:"email" binding:"omitempty,email"`
		DisplayName string `json:"display_name" binding:"max=255"`
	}

	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Validation(c, "Invalid request body", err.Error())
		return
	}

	account, err := h.authService.Signup(c.Request.Context(), services.SignupInput{
		Username:    req.Username,
		Password:    req.Password,
		Email:       req.Email,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.startSession(c, http.StatusCreated, account)
}

// Login authenticates a local account and initializes the session.
func (h *AuthHandler) Login(c *gin.Context) {
	type LoginRequest struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.Validation(c, "Invalid request body", err.Error())
		return
	}

	account, err := h.authService.Login(c.Request.Context(), services.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.startSession(c, http.StatusOK, account)
}

// startSession resolves the account's user and stores the identity in the session.
func (h *AuthHandler) startSession(c *gin.Context, status int, account *models.AuthAccount) {
	identity := services.IdentityOf(account)
	user, err := h.users.Resolve(c.Request.Context(), identity)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	session := sessions.Default(c)
	session.Set(constants.SessionKeyExternalID, identity.ExternalID)
	session.Set(constants.SessionKeyEmail, identity.Email)
	session.Set(constants.SessionKeyDisplayName, identity.DisplayName)
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to save session")
		return
	}

	apierrors.Respond(c, status, dto.ToAccountDTO(*account, *user))
}

// Logout removes the authentication session.
func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	if err := session.Save(); err != nil {
		apierrors.InternalError(c, "Failed to logout")
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{
		"message": "Logged out successfully",
	})
}

// GetCurrentUser returns the authenticated user.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.users.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, dto.ToUserDTO(*user))
}
