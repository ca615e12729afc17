package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/policy"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

// MaintenanceService runs the periodic jobs triggered by the external scheduler.
type MaintenanceService struct {
	maintRepo repository.MaintenanceRepository
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	now       func() time.Time
}

// NewMaintenanceService creates a new MaintenanceService
func NewMaintenanceService(maintRepo repository.MaintenanceRepository, userRepo repository.UserRepository, notifRepo repository.NotificationRepository) *MaintenanceService {
	return &MaintenanceService{
		maintRepo: maintRepo,
		userRepo:  userRepo,
		notifRepo: notifRepo,
		now:       time.Now,
	}
}

// ResetDailyTasks resets completed daily tasks whose owner has crossed local midnight.
// A *repository.RateLimitError is returned unchanged so callers can ask for a retry.
func (s *MaintenanceService) ResetDailyTasks(ctx context.Context) (int64, error) {
	affected, err := s.maintRepo.ResetDailyTasksByTimezone(ctx)
	if err != nil {
		return 0, fmt.Errorf("daily task reset: %w", err)
	}
	return affected, nil
}

// ResetMonthlyCredits refills paid users whose last refill is at least a month old.
// Users whose subscription lapsed are moved back to the free tier instead.
func (s *MaintenanceService) ResetMonthlyCredits(ctx context.Context) (int, error) {
	now := s.now()
	users, err := s.userRepo.ListDueForCreditReset(ctx, now.AddDate(0, -1, 0))
	if err != nil {
		return 0, fmt.Errorf("failed to list users due for credit reset: %w", err)
	}

	refilled := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return refilled, ctx.Err()
		}

		var fields map[string]interface{}
		if tier := EffectiveTier(&user, now); tier == models.PlanFree {
			fields = downgradeFields()
		} else {
			allotment := policy.GetAICredits(string(tier))
			fields = map[string]interface{}{
				"ai_credits":           allotment,
				"ai_credits_monthly":   allotment,
				"last_credit_reset_at": now,
			}
		}

		if err := s.userRepo.UpdateFields(user.ID, fields); err != nil {
			log.Printf("[Maintenance] credit reset for user %d failed: %v", user.ID, err)
			continue
		}
		refilled++
	}

	return refilled, nil
}

// PurgeReadNotifications deletes read notifications older than retention
func (s *MaintenanceService) PurgeReadNotifications(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := s.notifRepo.DeleteReadBefore(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	return removed, nil
}

// downgradeFields is the column set of a user without a paid subscription
func downgradeFields() map[string]interface{} {
	return map[string]interface{}{
		"plan":                    models.PlanFree,
		"subscription_expires_at": nil,
		"paypal_subscription_id":  "",
		"ai_credits":              0,
		"ai_credits_monthly":      0,
	}
}
