package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/task-insights-api/internal/constants"
	"github.com/yukikurage/task-insights-api/internal/dto"
	apierrors "github.com/yukikurage/task-insights-api/internal/errors"
	"github.com/yukikurage/task-insights-api/internal/middleware"
	"github.com/yukikurage/task-insights-api/internal/services"
)

type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// ListNotifications returns the newest notifications first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	unreadOnly := false
	if raw := c.Query("unread"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			apierrors.Validation(c, "Invalid unread", nil)
			return
		}
		unreadOnly = v
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			apierrors.Validation(c, "Invalid limit", nil)
			return
		}
		limit = v
	}

	items, err := h.notifications.List(c.Request.Context(), userID, unreadOnly, limit)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{
		"notifications": dto.ToNotificationDTOs(items),
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{"unread": count})
}

// Scan runs the due-date scan for the current user
func (h *NotificationHandler) Scan(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	result, err := h.notifications.Scan(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, result)
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := middleware.GetIDParam(c, constants.ContextKeyNotificationID)
	if !ok {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), userID, id); err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	updated, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{"updated": updated})
}

// RemoveDuplicates keeps the newest unread notification per task and type
func (h *NotificationHandler) RemoveDuplicates(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	removed, err := h.notifications.RemoveDuplicates(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	apierrors.Respond(c, http.StatusOK, gin.H{"removed": removed})
}
