package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormMaintenanceRepository runs maintenance procedures through GORM
type GormMaintenanceRepository struct {
	db         *gorm.DB
	retryAfter time.Duration
}

// NewMaintenanceRepository creates a new MaintenanceRepository
func NewMaintenanceRepository(db *gorm.DB, retryAfter time.Duration) MaintenanceRepository {
	return &GormMaintenanceRepository{db: db, retryAfter: retryAfter}
}

// ResetDailyTasksByTimezone calls the stored procedure; all buckets reset in its single transaction.
func (r *GormMaintenanceRepository) ResetDailyTasksByTimezone(ctx context.Context) (int64, error) {
	var affected int64
	err := r.db.WithContext(ctx).
		Raw("SELECT reset_daily_tasks_by_timezone()").
		Scan(&affected).Error
	if err != nil {
		return 0, classifyError(err, r.retryAfter)
	}
	return affected, nil
}

// GormBillingEventRepository is a GORM implementation of BillingEventRepository
type GormBillingEventRepository struct {
	db *gorm.DB
}

// NewBillingEventRepository creates a new BillingEventRepository
func NewBillingEventRepository(db *gorm.DB) BillingEventRepository {
	return &GormBillingEventRepository{db: db}
}

func (r *GormBillingEventRepository) Record(ctx context.Context, event *models.BillingEvent) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *GormBillingEventRepository) Forget(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BillingEvent{}).Error
}
