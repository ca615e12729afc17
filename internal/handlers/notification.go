package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// NotificationHandler serves push registration and the in-app notification feed.
type NotificationHandler struct {
	subscriptions *services.PushSubscriptionService
	notifications *services.NotificationService
}

func NewNotificationHandler(subscriptions *services.PushSubscriptionService, notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		subscriptions: subscriptions,
		notifications: notifications,
	}
}

// Subscribe registers the browser's PushSubscription for the caller
func (h *NotificationHandler) Subscribe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SubscribeRequest struct {
		Endpoint string `json:"endpoint" binding:"required"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid subscription")
		return
	}

	_, err := h.subscriptions.Subscribe(c.Request.Context(), services.SubscribeInput{
		UserID:    userID,
		Endpoint:  req.Endpoint,
		P256dh:    req.Keys.P256dh,
		Auth:      req.Keys.Auth,
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		respondNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Unsubscribe removes one of the caller's endpoints
func (h *NotificationHandler) Unsubscribe(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type UnsubscribeRequest struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}

	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "endpoint is required")
		return
	}

	if err := h.subscriptions.Unsubscribe(c.Request.Context(), userID, req.Endpoint); err != nil {
		respondNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListSubscriptions returns the caller's registered devices
func (h *NotificationHandler) ListSubscriptions(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	subs, err := h.subscriptions.List(c.Request.Context(), userID)
	if err != nil {
		respondNotificationError(c, err)
		return
	}

	items := make([]dto.PushSubscriptionDTO, len(subs))
	for i, sub := range subs {
		items[i] = dto.ToPushSubscriptionDTO(sub)
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": items})
}

// SendNow stores a notification and pushes it to every device of the caller
func (h *NotificationHandler) SendNow(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SendNowRequest struct {
		Title  string  `json:"title" binding:"required"`
		Body   string  `json:"body"`
		TaskID *uint64 `json:"taskId"`
		Type   string  `json:"type"`
	}

	var req SendNowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "title is required")
		return
	}

	count, err := h.notifications.SendNow(c.Request.Context(), services.SendNowInput{
		UserID: userID,
		Title:  req.Title,
		Body:   req.Body,
		TaskID: req.TaskID,
		Type:   req.Type,
	})
	if err != nil {
		respondNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"subscriptionCount": count,
	})
}

// ListNotifications returns the caller's feed, newest first
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	params := utils.GetPaginationParams(c)
	notifications, total, err := h.notifications.List(userID, c.Query("unread") == "true", params)
	if err != nil {
		respondNotificationError(c, err)
		return
	}

	items := make([]dto.NotificationDTO, len(notifications))
	for i, n := range notifications {
		items[i] = dto.ToNotificationDTO(n)
	}

	c.JSON(http.StatusOK, gin.H{
		"notifications": items,
		"pagination":    params.Response(total),
	})
}

// MarkRead marks one notification as read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	notificationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid notification ID")
		return
	}

	if err := h.notifications.MarkRead(userID, notificationID); err != nil {
		respondNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkAllRead marks the whole feed as read
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	updated, err := h.notifications.MarkAllRead(userID)
	if err != nil {
		respondNotificationError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": updated,
	})
}

func respondNotificationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPushEndpoint),
		errors.Is(err, services.ErrMissingPushKeys),
		errors.Is(err, services.ErrNotificationTitleRequired):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrPushSubscriptionNotFound),
		errors.Is(err, services.ErrNotificationNotFound):
		apierrors.NotFound(c, err.Error())
	default:
		log.Printf("[Notifications] unexpected error: %v", err)
		apierrors.InternalError(c, "Failed to process notification request")
	}
}
