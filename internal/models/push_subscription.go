package models

import "time"

// PushSubscription is a browser push endpoint registered by a user.
type PushSubscription struct {
	ID         uint64     `gorm:"primarykey" json:"id"`
	UserID     uint64     `gorm:"not null;index" json:"user_id"`
	Endpoint   string     `gorm:"type:varchar(768);uniqueIndex;not null" json:"endpoint"`
	P256dh     string     `gorm:"column:p256dh;type:varchar(255);not null" json:"-"`
	Auth       string     `gorm:"type:varchar(255);not null" json:"-"`
	UserAgent  string     `gorm:"type:varchar(255)" json:"user_agent"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}
