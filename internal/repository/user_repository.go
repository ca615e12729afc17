package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

var (
	// ErrCreateUser is returned when creating a user fails inside the signup transaction.
	ErrCreateUser = errors.New("user repository: create user failed")
	// ErrCreateTeam is returned when creating the personal team fails inside the signup transaction.
	ErrCreateTeam = errors.New("user repository: create team failed")
	// ErrCreateTeamMember is returned when creating the owner membership fails inside the signup transaction.
	ErrCreateTeamMember = errors.New("user repository: create team member failed")
	// ErrResetTokenConsumed is returned when a reset token was used concurrently.
	ErrResetTokenConsumed = errors.New("user repository: reset token already used")
)

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// CreateWithPersonalTeam creates a user, a personal team, and the owner membership atomically.
func (r *GormUserRepository) CreateWithPersonalTeam(user *models.User, team *models.Team, member *models.TeamMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateUser, err)
		}

		if err := tx.Create(team).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateTeam, err)
		}

		member.TeamID = team.ID
		member.UserID = user.ID

		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("%w: %v", ErrCreateTeamMember, err)
		}

		return nil
	})
}

func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) FindByPayPalSubscriptionID(subscriptionID string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("paypal_subscription_id = ?", subscriptionID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) UpdateFields(id uint64, fields map[string]interface{}) error {
	result := r.db.Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ConsumeCredit spends one credit with conditional updates so the balance never goes negative.
func (r *GormUserRepository) ConsumeCredit(id uint64) (bool, error) {
	result := r.db.Model(&models.User{}).
		Where("id = ? AND ai_credits > 0", id).
		Update("ai_credits", gorm.Expr("ai_credits - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	result = r.db.Model(&models.User{}).
		Where("id = ? AND purchased_credits > 0", id).
		Update("purchased_credits", gorm.Expr("purchased_credits - 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *GormUserRepository) AddPurchasedCredits(id uint64, credits int) error {
	result := r.db.Model(&models.User{}).
		Where("id = ?", id).
		Update("purchased_credits", gorm.Expr("purchased_credits + ?", credits))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormUserRepository) ListDueForCreditReset(ctx context.Context, cutoff time.Time) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Where("plan IN ?", []models.Plan{models.PlanPremium, models.PlanPro}).
		Where("(last_credit_reset_at IS NULL OR last_credit_reset_at <= ?)", cutoff).
		Find(&users).Error
	return users, err
}

func (r *GormUserRepository) CreatePasswordReset(token *models.PasswordResetToken) error {
	return r.db.Create(token).Error
}

func (r *GormUserRepository) FindPasswordReset(tokenHash string, now time.Time) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	if err := r.db.
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&token).Error; err != nil {
		return nil, err
	}
	return &token, nil
}

// ResetPassword consumes the token and updates the password hash in one transaction.
func (r *GormUserRepository) ResetPassword(tokenID, userID uint64, passwordHash string, now time.Time) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.PasswordResetToken{}).
			Where("id = ? AND used_at IS NULL", tokenID).
			Update("used_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrResetTokenConsumed
		}

		return tx.Model(&models.User{}).
			Where("id = ?", userID).
			Update("password_hash", passwordHash).Error
	})
}
