package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/plutov/paypal/v4"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrInvalidPlan               = errors.New("plan must be premium or pro")
	ErrSubscriptionIDRequired    = errors.New("subscription id is required")
	ErrOrderIDRequired           = errors.New("order id is required")
	ErrUnknownCreditPack         = errors.New("unknown credit pack")
	ErrPaymentNotCompleted       = errors.New("payment was not completed")
	ErrOrderAlreadyCaptured      = errors.New("order already captured")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
	ErrBillingNotConfigured      = errors.New("billing provider is not configured")
)

// PayPal event types handled by HandleWebhook
const (
	EventSubscriptionCancelled = "BILLING.SUBSCRIPTION.CANCELLED"
	EventSubscriptionExpired   = "BILLING.SUBSCRIPTION.EXPIRED"
	EventSubscriptionSuspended = "BILLING.SUBSCRIPTION.SUSPENDED"
	EventPaymentSaleCompleted  = "PAYMENT.SALE.COMPLETED"
)

const orderStatusCompleted = "COMPLETED"

// BillingProvider is the subset of the payment provider API the service uses
type BillingProvider interface {
	CancelSubscription(ctx context.Context, subscriptionID, reason string) error
	CaptureOrder(ctx context.Context, orderID string) (string, error)
	VerifyWebhook(ctx context.Context, req *http.Request) error
}

// PayPalProvider implements BillingProvider with the PayPal REST API
type PayPalProvider struct {
	client    *paypal.Client
	webhookID string
}

// NewPayPalProvider creates a provider for the sandbox unless mode is "live"
func NewPayPalProvider(clientID, secret, mode, webhookID string) (*PayPalProvider, error) {
	base := paypal.APIBaseSandBox
	if mode == "live" {
		base = paypal.APIBaseLive
	}
	client, err := paypal.NewClient(clientID, secret, base)
	if err != nil {
		return nil, fmt.Errorf("failed to create PayPal client: %w", err)
	}
	return &PayPalProvider{client: client, webhookID: webhookID}, nil
}

func (p *PayPalProvider) CancelSubscription(ctx context.Context, subscriptionID, reason string) error {
	return p.client.CancelSubscription(ctx, subscriptionID, reason)
}

// CaptureOrder captures an approved order and returns its resulting status
func (p *PayPalProvider) CaptureOrder(ctx context.Context, orderID string) (string, error) {
	resp, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

// VerifyWebhook checks the transmission signature headers against PayPal
func (p *PayPalProvider) VerifyWebhook(ctx context.Context, req *http.Request) error {
	resp, err := p.client.VerifyWebhookSignature(ctx, req, p.webhookID)
	if err != nil {
		return fmt.Errorf("verify webhook signature: %w", err)
	}
	if resp.VerificationStatus != "SUCCESS" {
		return ErrWebhookVerificationFailed
	}
	return nil
}

// WebhookEvent is the part of a PayPal webhook the service acts on
type WebhookEvent struct {
	ID             string
	EventType      string
	ResourceID     string
	SubscriptionID string
}

// BillingSummary is the caller's plan state
type BillingSummary struct {
	Plan                  models.Plan         `json:"plan"`
	Capabilities          policy.Capabilities `json:"capabilities"`
	AICredits             int                 `json:"aiCredits"`
	AICreditsMonthly      int                 `json:"aiCreditsMonthly"`
	PurchasedCredits      int                 `json:"purchasedCredits"`
	CanAccessAI           bool                `json:"canAccessAI"`
	SubscriptionExpiresAt *time.Time          `json:"subscriptionExpiresAt"`
}

// BillingService applies subscription and purchase events to user rows.
type BillingService struct {
	userRepo  repository.UserRepository
	eventRepo repository.BillingEventRepository
	provider  BillingProvider
	now       func() time.Time
}

// NewBillingService creates a new BillingService. provider may be nil when PayPal is not configured.
func NewBillingService(userRepo repository.UserRepository, eventRepo repository.BillingEventRepository, provider BillingProvider) *BillingService {
	return &BillingService{
		userRepo:  userRepo,
		eventRepo: eventRepo,
		provider:  provider,
		now:       time.Now,
	}
}

// SubscriptionSuccess activates a paid plan for one month with a full credit allotment.
func (s *BillingService) SubscriptionSuccess(userID uint64, subscriptionID, planName string) (*models.User, error) {
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return nil, ErrSubscriptionIDRequired
	}
	if !policy.IsPaidTier(planName) {
		return nil, ErrInvalidPlan
	}
	plan := policy.NormalizeTier(planName)

	if err := s.activate(userID, plan, subscriptionID); err != nil {
		return nil, err
	}
	return s.userRepo.FindByID(userID)
}

// CancelSubscription returns the user to the free tier. The upstream cancel is best effort.
func (s *BillingService) CancelSubscription(ctx context.Context, userID uint64) error {
	user, err := s.findUser(userID)
	if err != nil {
		return err
	}

	if user.PayPalSubscriptionID != "" {
		if s.provider == nil {
			log.Printf("[Billing] no provider configured, skipping upstream cancel of %s", user.PayPalSubscriptionID)
		} else if err := s.provider.CancelSubscription(ctx, user.PayPalSubscriptionID, "Cancelled by user"); err != nil {
			log.Printf("[Billing] upstream cancel of %s failed: %v", user.PayPalSubscriptionID, err)
		}
	}

	if err := s.userRepo.UpdateFields(userID, downgradeFields()); err != nil {
		return fmt.Errorf("failed to cancel subscription: %w", err)
	}
	return nil
}

// CaptureCreditPurchase captures a one-time order and adds the pack's credits.
func (s *BillingService) CaptureCreditPurchase(ctx context.Context, userID uint64, orderID, packID string) (int, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return 0, ErrOrderIDRequired
	}
	credits, ok := policy.CreditPacks[packID]
	if !ok {
		return 0, ErrUnknownCreditPack
	}
	if s.provider == nil {
		return 0, ErrBillingNotConfigured
	}
	if _, err := s.findUser(userID); err != nil {
		return 0, err
	}

	status, err := s.provider.CaptureOrder(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to capture order: %w", err)
	}
	if status != orderStatusCompleted {
		return 0, ErrPaymentNotCompleted
	}

	fresh, err := s.eventRepo.Record(ctx, &models.BillingEvent{
		ID:         "order:" + orderID,
		EventType:  "ORDER.CAPTURED",
		ResourceID: orderID,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to record order: %w", err)
	}
	if !fresh {
		return 0, ErrOrderAlreadyCaptured
	}

	if err := s.userRepo.AddPurchasedCredits(userID, credits); err != nil {
		return 0, fmt.Errorf("failed to add purchased credits: %w", err)
	}

	user, err := s.findUser(userID)
	if err != nil {
		return 0, err
	}
	return user.PurchasedCredits, nil
}

// VerifyWebhook authenticates a webhook delivery with the provider
func (s *BillingService) VerifyWebhook(ctx context.Context, req *http.Request) error {
	if s.provider == nil {
		return ErrBillingNotConfigured
	}
	return s.provider.VerifyWebhook(ctx, req)
}

// HandleWebhook applies a verified event once; redeliveries are acknowledged and ignored.
func (s *BillingService) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	fresh, err := s.eventRepo.Record(ctx, &models.BillingEvent{
		ID:         event.ID,
		EventType:  event.EventType,
		ResourceID: event.ResourceID,
		ReceivedAt: s.now(),
	})
	if err != nil {
		return fmt.Errorf("failed to record webhook event: %w", err)
	}
	if !fresh {
		log.Printf("[Billing] duplicate webhook %s ignored", event.ID)
		return nil
	}

	if err := s.applyWebhook(event); err != nil {
		if forgetErr := s.eventRepo.Forget(ctx, event.ID); forgetErr != nil {
			log.Printf("[Billing] could not release webhook %s for redelivery: %v", event.ID, forgetErr)
		}
		return err
	}
	return nil
}

func (s *BillingService) applyWebhook(event WebhookEvent) error {
	switch event.EventType {
	case EventSubscriptionCancelled, EventSubscriptionExpired, EventSubscriptionSuspended:
		user, ok, err := s.findBySubscription(event.SubscriptionID)
		if err != nil || !ok {
			return err
		}
		if err := s.userRepo.UpdateFields(user.ID, downgradeFields()); err != nil {
			return fmt.Errorf("failed to downgrade user %d: %w", user.ID, err)
		}
		log.Printf("[Billing] user %d downgraded by %s", user.ID, event.EventType)

	case EventPaymentSaleCompleted:
		user, ok, err := s.findBySubscription(event.SubscriptionID)
		if err != nil || !ok {
			return err
		}
		plan := policy.NormalizeTier(string(user.Plan))
		if plan == models.PlanFree {
			log.Printf("[Billing] payment for %s on a free account, ignoring", event.SubscriptionID)
			return nil
		}
		if err := s.activate(user.ID, plan, event.SubscriptionID); err != nil {
			return err
		}

	default:
		log.Printf("[Billing] unhandled webhook type %s", event.EventType)
	}
	return nil
}

// Summary returns the caller's plan, capabilities and balances
func (s *BillingService) Summary(userID uint64) (*BillingSummary, error) {
	user, err := s.findUser(userID)
	if err != nil {
		return nil, err
	}

	tier := EffectiveTier(user, s.now())
	return &BillingSummary{
		Plan:                  tier,
		Capabilities:          policy.CapabilitiesFor(string(tier)),
		AICredits:             user.AICredits,
		AICreditsMonthly:      user.AICreditsMonthly,
		PurchasedCredits:      user.PurchasedCredits,
		CanAccessAI:           policy.CanAccessAI(string(tier), user.PurchasedCredits),
		SubscriptionExpiresAt: user.SubscriptionExpiresAt,
	}, nil
}

func (s *BillingService) activate(userID uint64, plan models.Plan, subscriptionID string) error {
	now := s.now()
	allotment := policy.GetAICredits(string(plan))
	err := s.userRepo.UpdateFields(userID, map[string]interface{}{
		"plan":                    plan,
		"subscription_expires_at": now.AddDate(0, 1, 0),
		"ai_credits":              allotment,
		"ai_credits_monthly":      allotment,
		"last_credit_reset_at":    now,
		"paypal_subscription_id":  subscriptionID,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to activate subscription: %w", err)
	}
	return nil
}

func (s *BillingService) findUser(userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// findBySubscription reports ok=false for subscriptions no user holds anymore
func (s *BillingService) findBySubscription(subscriptionID string) (*models.User, bool, error) {
	if subscriptionID == "" {
		return nil, false, nil
	}
	user, err := s.userRepo.FindByPayPalSubscriptionID(subscriptionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Billing] no user holds subscription %s", subscriptionID)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to find subscription owner: %w", err)
	}
	return user, true, nil
}
