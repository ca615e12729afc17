package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

var (
	ErrInvalidPushEndpoint      = errors.New("push endpoint must be an https URL")
	ErrMissingPushKeys          = errors.New("push subscription keys are required")
	ErrPushSubscriptionNotFound = errors.New("push subscription not found")
)

// PushSubscriptionService manages the browser endpoints a user has opted in with.
type PushSubscriptionService struct {
	repo repository.PushSubscriptionRepository
}

// NewPushSubscriptionService creates a new PushSubscriptionService
func NewPushSubscriptionService(repo repository.PushSubscriptionRepository) *PushSubscriptionService {
	return &PushSubscriptionService{repo: repo}
}

// SubscribeInput is a PushSubscription as serialized by the browser
type SubscribeInput struct {
	UserID    uint64
	Endpoint  string
	P256dh    string
	Auth      string
	UserAgent string
}

// Subscribe registers an endpoint; an endpoint already on file takes the new owner and keys.
func (s *PushSubscriptionService) Subscribe(ctx context.Context, input SubscribeInput) (*models.PushSubscription, error) {
	endpoint := strings.TrimSpace(input.Endpoint)
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" || u.Host == "" {
		return nil, ErrInvalidPushEndpoint
	}
	if strings.TrimSpace(input.P256dh) == "" || strings.TrimSpace(input.Auth) == "" {
		return nil, ErrMissingPushKeys
	}

	userAgent := input.UserAgent
	if len(userAgent) > 255 {
		userAgent = userAgent[:255]
	}

	sub := &models.PushSubscription{
		UserID:    input.UserID,
		Endpoint:  endpoint,
		P256dh:    input.P256dh,
		Auth:      input.Auth,
		UserAgent: userAgent,
	}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to save push subscription: %w", err)
	}
	return sub, nil
}

// Unsubscribe removes one of the caller's endpoints
func (s *PushSubscriptionService) Unsubscribe(ctx context.Context, userID uint64, endpoint string) error {
	deleted, err := s.repo.DeleteForUser(ctx, userID, strings.TrimSpace(endpoint))
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	if deleted == 0 {
		return ErrPushSubscriptionNotFound
	}
	return nil
}

// List returns the caller's registered endpoints
func (s *PushSubscriptionService) List(ctx context.Context, userID uint64) ([]models.PushSubscription, error) {
	subs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}
