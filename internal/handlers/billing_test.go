package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"gorm.io/gorm"
)

func setupBillingTestEnv(t *testing.T, provider services.BillingProvider) (*gorm.DB, *BillingHandler) {
	t.Helper()

	db := setupHandlerTestDB(t)
	billing := services.NewBillingService(
		repository.NewUserRepository(db),
		repository.NewBillingEventRepository(db),
		provider,
	)
	return db, NewBillingHandler(billing)
}

func reloadUser(t *testing.T, db *gorm.DB, id uint64) models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return user
}

func TestBillingHandler_SubscriptionSuccess(t *testing.T) {
	db, handler := setupBillingTestEnv(t, &stubBillingProvider{})
	user := createHandlerTestUser(t, db, "buyer@example.com")

	body := mustJSON(t, map[string]string{"subscriptionId": "I-SUB1", "planName": "Premium"})
	c, w := handlerTestContext(http.MethodPost, "/api/paypal/subscription-success", body, user.ID)

	handler.SubscriptionSuccess(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"plan":"premium"`)

	stored := reloadUser(t, db, user.ID)
	assert.Equal(t, models.PlanPremium, stored.Plan)
	assert.Equal(t, "I-SUB1", stored.PayPalSubscriptionID)
	assert.Positive(t, stored.AICredits)
	require.NotNil(t, stored.SubscriptionExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 1, 0), *stored.SubscriptionExpiresAt, time.Minute)
}

func TestBillingHandler_SubscriptionSuccess_Invalid(t *testing.T) {
	db, handler := setupBillingTestEnv(t, &stubBillingProvider{})
	user := createHandlerTestUser(t, db, "buyer@example.com")

	tests := []struct {
		name string
		body map[string]string
	}{
		{"free plan", map[string]string{"subscriptionId": "I-SUB1", "planName": "free"}},
		{"unknown plan", map[string]string{"subscriptionId": "I-SUB1", "planName": "gold"}},
		{"missing subscription", map[string]string{"planName": "pro"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := handlerTestContext(http.MethodPost, "/api/paypal/subscription-success", mustJSON(t, tt.body), user.ID)

			handler.SubscriptionSuccess(c)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}

	assert.Equal(t, models.PlanFree, reloadUser(t, db, user.ID).Plan)
}

func TestBillingHandler_CancelSubscription(t *testing.T) {
	db, handler := setupBillingTestEnv(t, &stubBillingProvider{})
	expires := time.Now().AddDate(0, 1, 0)
	user := createHandlerTestUser(t, db, "leaver@example.com", func(u *models.User) {
		u.Plan = models.PlanPro
		u.AICredits = 40
		u.PayPalSubscriptionID = "I-SUB2"
		u.SubscriptionExpiresAt = &expires
	})

	c, w := handlerTestContext(http.MethodPost, "/api/paypal/cancel-subscription", nil, user.ID)

	handler.CancelSubscription(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, models.PlanFree, reloadUser(t, db, user.ID).Plan)
}

func TestBillingHandler_CaptureOrder(t *testing.T) {
	db, handler := setupBillingTestEnv(t, &stubBillingProvider{orderStatus: "COMPLETED"})
	user := createHandlerTestUser(t, db, "packs@example.com")

	body := mustJSON(t, map[string]string{"orderId": "ORDER-1", "packId": "credits_50"})
	c, w := handlerTestContext(http.MethodPost, "/api/paypal/capture-order", body, user.ID)
	handler.CaptureOrder(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"purchasedCredits":50}`, w.Body.String())

	c, w = handlerTestContext(http.MethodPost, "/api/paypal/capture-order", body, user.ID)
	handler.CaptureOrder(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 50, reloadUser(t, db, user.ID).PurchasedCredits)
}

func TestBillingHandler_CaptureOrder_NotCompleted(t *testing.T) {
	db, handler := setupBillingTestEnv(t, &stubBillingProvider{orderStatus: "PENDING"})
	user := createHandlerTestUser(t, db, "packs@example.com")

	body := mustJSON(t, map[string]string{"orderId": "ORDER-2", "packId": "credits_200"})
	c, w := handlerTestContext(http.MethodPost, "/api/paypal/capture-order", body, user.ID)
	handler.CaptureOrder(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, reloadUser(t, db, user.ID).PurchasedCredits)
}

func TestBillingHandler_Webhook_Cancelled(t *testing.T) {
	db, handler := setupBillingTestEnv(t, &stubBillingProvider{})
	expires := time.Now().AddDate(0, 1, 0)
	user := createHandlerTestUser(t, db, "hooked@example.com", func(u *models.User) {
		u.Plan = models.PlanPremium
		u.AICredits = 20
		u.PayPalSubscriptionID = "I-SUB3"
		u.SubscriptionExpiresAt = &expires
	})

	body := mustJSON(t, map[string]interface{}{
		"id":         "WH-1",
		"event_type": services.EventSubscriptionCancelled,
		"resource":   map[string]string{"id": "I-SUB3"},
	})

	c, w := handlerTestContext(http.MethodPost, "/api/paypal/webhook", body, 0)
	handler.Webhook(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"received":true}`, w.Body.String())
	assert.Equal(t, models.PlanFree, reloadUser(t, db, user.ID).Plan)

	// A redelivery after a new subscription must not downgrade again.
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", user.ID).Update("plan", models.PlanPremium).Error)

	c, w = handlerTestContext(http.MethodPost, "/api/paypal/webhook", body, 0)
	handler.Webhook(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.PlanPremium, reloadUser(t, db, user.ID).Plan)
}

func TestBillingHandler_Webhook_Rejected(t *testing.T) {
	body := mustJSON(t, map[string]interface{}{"id": "WH-2", "event_type": services.EventSubscriptionExpired})

	t.Run("verification failure", func(t *testing.T) {
		_, handler := setupBillingTestEnv(t, &stubBillingProvider{verifyErr: services.ErrWebhookVerificationFailed})
		c, w := handlerTestContext(http.MethodPost, "/api/paypal/webhook", body, 0)

		handler.Webhook(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("provider not configured", func(t *testing.T) {
		_, handler := setupBillingTestEnv(t, nil)
		c, w := handlerTestContext(http.MethodPost, "/api/paypal/webhook", body, 0)

		handler.Webhook(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("provider error", func(t *testing.T) {
		_, handler := setupBillingTestEnv(t, &stubBillingProvider{verifyErr: errors.New("paypal down")})
		c, w := handlerTestContext(http.MethodPost, "/api/paypal/webhook", body, 0)

		handler.Webhook(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestBillingHandler_Me(t *testing.T) {
	db, handler := setupBillingTestEnv(t, nil)
	user := createHandlerTestUser(t, db, "me@example.com", func(u *models.User) {
		u.PurchasedCredits = 5
	})

	c, w := handlerTestContext(http.MethodGet, "/api/billing/me", nil, user.ID)
	handler.Me(c)

	require.Equal(t, http.StatusOK, w.Code)

	var summary services.BillingSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, models.PlanFree, summary.Plan)
	assert.Equal(t, 5, summary.PurchasedCredits)
	assert.True(t, summary.CanAccessAI)
}
