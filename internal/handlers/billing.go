package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskflow-api/internal/dto"
	apierrors "github.com/yukikurage/taskflow-api/internal/errors"
	"github.com/yukikurage/taskflow-api/internal/middleware"
	"github.com/yukikurage/taskflow-api/internal/services"
)

// maxWebhookBody bounds the webhook payload read into memory
const maxWebhookBody = 1 << 20

// BillingHandler serves the PayPal flows and the caller's plan summary.
type BillingHandler struct {
	billing *services.BillingService
}

func NewBillingHandler(billing *services.BillingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// SubscriptionSuccess activates the plan the caller just subscribed to
func (h *BillingHandler) SubscriptionSuccess(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type SubscriptionSuccessRequest struct {
		SubscriptionID string `json:"subscriptionId"`
		PlanName       string `json:"planName"`
	}

	var req SubscriptionSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	user, err := h.billing.SubscriptionSuccess(userID, req.SubscriptionID, req.PlanName)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":               true,
		"plan":                  user.Plan,
		"aiCredits":             user.AICredits,
		"subscriptionExpiresAt": user.SubscriptionExpiresAt,
	})
}

// CancelSubscription returns the caller to the free plan
func (h *BillingHandler) CancelSubscription(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	if err := h.billing.CancelSubscription(c.Request.Context(), userID); err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// CaptureOrder completes a one-time credit pack purchase
func (h *BillingHandler) CaptureOrder(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CaptureOrderRequest struct {
		OrderID string `json:"orderId"`
		PackID  string `json:"packId"`
	}

	var req CaptureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	purchased, err := h.billing.CaptureCreditPurchase(c.Request.Context(), userID, req.OrderID, req.PackID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"purchasedCredits": purchased,
	})
}

// Webhook receives PayPal event notifications
func (h *BillingHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)

	if err := h.billing.VerifyWebhook(c.Request.Context(), c.Request); err != nil {
		respondBillingError(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		apierrors.BadRequest(c, "Invalid webhook body")
		return
	}

	var envelope dto.PayPalWebhookEvent
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.ID == "" {
		apierrors.BadRequest(c, "Invalid webhook body")
		return
	}

	var resource dto.PayPalWebhookResource
	if len(envelope.Resource) > 0 {
		if err := json.Unmarshal(envelope.Resource, &resource); err != nil {
			apierrors.BadRequest(c, "Invalid webhook resource")
			return
		}
	}

	event := services.WebhookEvent{
		ID:             envelope.ID,
		EventType:      envelope.EventType,
		ResourceID:     resource.ID,
		SubscriptionID: resource.ID,
	}
	if resource.BillingAgreementID != "" {
		event.SubscriptionID = resource.BillingAgreementID
	}

	if err := h.billing.HandleWebhook(c.Request.Context(), event); err != nil {
		log.Printf("[Billing] webhook %s (%s) failed: %v", event.ID, event.EventType, err)
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// Me returns the caller's plan, capabilities and credit balances
func (h *BillingHandler) Me(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	summary, err := h.billing.Summary(userID)
	if err != nil {
		respondBillingError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

func respondBillingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidPlan),
		errors.Is(err, services.ErrSubscriptionIDRequired),
		errors.Is(err, services.ErrOrderIDRequired),
		errors.Is(err, services.ErrUnknownCreditPack),
		errors.Is(err, services.ErrPaymentNotCompleted):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrWebhookVerificationFailed):
		apierrors.Unauthorized(c, err.Error())
	case errors.Is(err, services.ErrOrderAlreadyCaptured):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrUserNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrBillingNotConfigured):
		apierrors.ServiceUnavailable(c, err.Error())
	default:
		log.Printf("[Billing] unexpected error: %v", err)
		apierrors.InternalError(c, "Billing request failed")
	}
}
