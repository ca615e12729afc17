package models

import "time"

type PasswordResetToken struct {
	ID        uint64    `gorm:"primarykey"`
	UserID    uint64    `gorm:"not null;index"`
	TokenHash string    `gorm:"type:varchar(64);uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	UsedAt    *time.Time
	CreatedAt time.Time
}
