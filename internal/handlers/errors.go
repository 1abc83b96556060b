package handlers

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/constants"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/middleware"
	"github.com/yukikurage/task-insights-api/internal/services"
	"github.com/yukikurage/task-insights-api/internal/utils"
)

// respondServiceError translates a service error into the error envelope.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrNotificationNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrAccountNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrTaskForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidPriority),
		errors.Is(err, services.ErrInvalidHours),
		errors.Is(err, services.ErrCompletedBeforeCreated),
		errors.Is(err, services.ErrCompletedInFuture),
		errors.Is(err, services.ErrCompletedAtWithoutDone),
		errors.Is(err, services.ErrCategoryNotFound),
		errors.Is(err, services.ErrStatusNotFound),
		errors.Is(err, services.ErrCategoryNameRequired),
		errors.Is(err, services.ErrUsernameRequired),
		errors.Is(err, utils.ErrInvalidDate):
		apierrors.Validation(c, err.Error(), nil)
	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.Validation(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength), nil)
	case errors.Is(err, services.ErrCategoryExists),
		errors.Is(err, services.ErrUsernameTaken):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, apierrors.StatusFor(apierrors.ErrCodeInvalidCredentials),
			apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, err.Error()))
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	case errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks),
		errors.Is(err, services.ErrAITooManyTasks):
		apierrors.Validation(c, err.Error(), nil)
	default:
		apierrors.Upstream(c, "Request could not be completed")
	}
}

// currentUser returns the authenticated user id or answers 401.
func currentUser(c *gin.Context) (uint64, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
	}
	return userID, ok
}
