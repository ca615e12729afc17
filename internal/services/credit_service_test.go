package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
)

func TestCreditService_Consume(t *testing.T) {
	db := setupServiceTestDB(t)
	svc := NewCreditService(repository.NewUserRepository(db))

	free := createServiceTestUser(t, db, "free@example.com")
	require.ErrorIs(t, svc.Consume(free.ID), ErrAIAccessDenied)

	buyer := createServiceTestUser(t, db, "buyer@example.com", func(u *models.User) { u.PurchasedCredits = 1 })
	require.NoError(t, svc.Consume(buyer.ID))
	require.ErrorIs(t, svc.Consume(buyer.ID), ErrAIAccessDenied)

	future := time.Now().Add(24 * time.Hour)
	premium := createServiceTestUser(t, db, "premium@example.com", func(u *models.User) {
		u.Plan = models.PlanPremium
		u.AICredits = 1
		u.SubscriptionExpiresAt = &future
	})
	require.NoError(t, svc.Consume(premium.ID))
	require.ErrorIs(t, svc.Consume(premium.ID), ErrInsufficientCredits)

	require.ErrorIs(t, svc.Consume(99999), ErrUserNotFound)
}

func TestEffectiveTier(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.Equal(t, models.PlanPro, EffectiveTier(&models.User{Plan: models.PlanPro}, now))
	assert.Equal(t, models.PlanPro, EffectiveTier(&models.User{Plan: models.PlanPro, SubscriptionExpiresAt: &future}, now))
	assert.Equal(t, models.PlanFree, EffectiveTier(&models.User{Plan: models.PlanPro, SubscriptionExpiresAt: &past}, now))
	assert.Equal(t, models.PlanFree, EffectiveTier(&models.User{Plan: "gold"}, now))
}
