package models

import "time"

type Notification struct {
	ID        uint64     `gorm:"primarykey" json:"id"`
	UserID    uint64     `gorm:"not null;index" json:"user_id"`
	TaskID    *uint64    `json:"task_id"`
	Title     string     `gorm:"type:varchar(255);not null" json:"title"`
	Body      string     `gorm:"type:text" json:"body"`
	Type      string     `gorm:"type:varchar(50);not null" json:"type"`
	Read      bool       `gorm:"column:is_read;not null;default:false;index" json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}
