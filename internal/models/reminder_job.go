package models

import "time"

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

// ReminderJob is a persisted due-date reminder waiting for the reminder worker.
type ReminderJob struct {
	ID         uint64         `gorm:"primarykey" json:"id"`
	UserID     uint64         `gorm:"not null;index" json:"user_id"`
	TaskID     uint64         `gorm:"not null;index" json:"task_id"`
	Title      string         `gorm:"type:varchar(255);not null" json:"title"`
	FireAt     time.Time      `gorm:"not null;index" json:"fire_at"`
	Status     ReminderStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	ClaimToken *string        `gorm:"type:varchar(64)" json:"-"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	LastError  string         `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}
