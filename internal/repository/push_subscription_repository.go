package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPushSubscriptionRepository is a GORM implementation of PushSubscriptionRepository
type GormPushSubscriptionRepository struct {
	db *gorm.DB
}

// NewPushSubscriptionRepository creates a new PushSubscriptionRepository
func NewPushSubscriptionRepository(db *gorm.DB) PushSubscriptionRepository {
	return &GormPushSubscriptionRepository{db: db}
}

// Upsert keys the row on endpoint: a re-registered endpoint moves to the new owner and keys.
func (r *GormPushSubscriptionRepository) Upsert(ctx context.Context, sub *models.PushSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth", "user_agent"}),
		}).
		Create(sub).Error
}

func (r *GormPushSubscriptionRepository) ListByUser(ctx context.Context, userID uint64) ([]models.PushSubscription, error) {
	var subs []models.PushSubscription
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id ASC").
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *GormPushSubscriptionRepository) DeleteForUser(ctx context.Context, userID uint64, endpoint string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND endpoint = ?", userID, endpoint).
		Delete(&models.PushSubscription{})
	return result.RowsAffected, result.Error
}

func (r *GormPushSubscriptionRepository) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	return r.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&models.PushSubscription{}).Error
}

func (r *GormPushSubscriptionRepository) TouchLastUsed(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PushSubscription{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
