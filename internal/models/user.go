package models

import (
	"time"

	"gorm.io/gorm"
)

// Plan is a subscription tier.
type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
	PlanPro     Plan = "pro"
)

type User struct {
	ID           uint64 `gorm:"primarykey" json:"id"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(255);not null" json:"-"`

	Plan                  Plan       `gorm:"type:varchar(20);not null;default:'free'" json:"plan"`
	AICredits             int        `gorm:"not null;default:0;check:ai_credits >= 0" json:"ai_credits"`
	AICreditsMonthly      int        `gorm:"not null;default:0" json:"ai_credits_monthly"`
	PurchasedCredits      int        `gorm:"not null;default:0;check:purchased_credits >= 0" json:"purchased_credits"`
	LastCreditResetAt     *time.Time `json:"last_credit_reset_at"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at"`
	PayPalSubscriptionID  string     `gorm:"column:paypal_subscription_id;type:varchar(64);index" json:"-"`

	Timezone string `gorm:"type:varchar(64);not null;default:'UTC'" json:"timezone"`
	Theme    string `gorm:"type:varchar(32);not null;default:'system'" json:"theme"`
	Language string `gorm:"type:varchar(16);not null;default:'en'" json:"language"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	CreatedTasks []Task           `gorm:"foreignKey:CreatorID" json:"-"`
	Assignments  []TaskAssignment `gorm:"foreignKey:UserID" json:"-"`
	Teams        []TeamMember     `gorm:"foreignKey:UserID" json:"-"`
}
