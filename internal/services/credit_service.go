package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrAIAccessDenied      = errors.New("current plan does not include AI features")
	ErrInsufficientCredits = errors.New("no AI credits left")
)

// CreditService enforces the plan policy on the server side before any AI call.
type CreditService struct {
	userRepo repository.UserRepository
	now      func() time.Time
}

// NewCreditService creates a new CreditService
func NewCreditService(userRepo repository.UserRepository) *CreditService {
	return &CreditService{
		userRepo: userRepo,
		now:      time.Now,
	}
}

// Consume spends one credit for userID or explains why it cannot.
func (s *CreditService) Consume(userID uint64) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	tier := EffectiveTier(user, s.now())
	if !policy.CanAccessAI(string(tier), user.PurchasedCredits) {
		return ErrAIAccessDenied
	}

	ok, err := s.userRepo.ConsumeCredit(userID)
	if err != nil {
		return fmt.Errorf("failed to consume credit: %w", err)
	}
	if !ok {
		return ErrInsufficientCredits
	}
	return nil
}

// EffectiveTier is the user's plan, or free once a paid subscription has lapsed.
func EffectiveTier(user *models.User, now time.Time) models.Plan {
	tier := policy.NormalizeTier(string(user.Plan))
	if tier != models.PlanFree && user.SubscriptionExpiresAt != nil && !now.Before(*user.SubscriptionExpiresAt) {
		return models.PlanFree
	}
	return tier
}
