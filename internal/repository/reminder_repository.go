package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// claimTimeout is how long a claimed job may stay unfinished before it is
// given up as failed. Claimed jobs are never handed to a second worker: the
// first one may already have delivered the push.
const claimTimeout = 5 * time.Minute

// staleClaimReason is recorded on jobs whose worker never confirmed the outcome
const staleClaimReason = "claim expired before delivery was confirmed"

// GormReminderRepository is a GORM implementation of ReminderRepository
type GormReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository creates a new ReminderRepository
func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &GormReminderRepository{db: db}
}

func (r *GormReminderRepository) ReplacePending(ctx context.Context, job *models.ReminderJob) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? AND status = ?", job.TaskID, models.ReminderPending).
			Delete(&models.ReminderJob{}).Error; err != nil {
			return err
		}
		return tx.Create(job).Error
	})
}

func (r *GormReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ReminderJob, error) {
	var jobs []models.ReminderJob
	err := r.db.WithContext(ctx).
		Where("status = ? AND fire_at <= ? AND claim_token IS NULL", models.ReminderPending, now).
		Order("fire_at ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim is a conditional update: exactly one caller wins a given pending job.
func (r *GormReminderRepository) Claim(ctx context.Context, id uint64, token string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReminderJob{}).
		Where("id = ? AND status = ? AND claim_token IS NULL", id, models.ReminderPending).
		Updates(map[string]interface{}{
			"claim_token": token,
			"attempts":    gorm.Expr("attempts + 1"),
			"updated_at":  time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ExpireStaleClaims fails pending jobs whose claim is older than claimTimeout
func (r *GormReminderRepository) ExpireStaleClaims(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ReminderJob{}).
		Where("status = ? AND claim_token IS NOT NULL AND updated_at < ?", models.ReminderPending, now.Add(-claimTimeout)).
		Updates(map[string]interface{}{"status": models.ReminderFailed, "last_error": staleClaimReason})
	return result.RowsAffected, result.Error
}

func (r *GormReminderRepository) MarkSent(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).
		Model(&models.ReminderJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.ReminderSent, "last_error": ""}).Error
}

func (r *GormReminderRepository) MarkFailed(ctx context.Context, id uint64, reason string) error {
	return r.db.WithContext(ctx).
		Model(&models.ReminderJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": models.ReminderFailed, "last_error": reason}).Error
}

func (r *GormReminderRepository) DeletePendingForTask(ctx context.Context, taskID uint64) error {
	return r.db.WithContext(ctx).
		Where("task_id = ? AND status = ?", taskID, models.ReminderPending).
		Delete(&models.ReminderJob{}).Error
}
