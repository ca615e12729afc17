package models

import (
	"time"

	"gorm.io/gorm"
)

type TaskStatus string

const (
	TaskStatusTodo TaskStatus = "TODO"
	TaskStatusDone TaskStatus = "DONE"
)

type Task struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	Title        string         `gorm:"not null" json:"title"`
	Description  string         `gorm:"type:text" json:"description"`
	Status       TaskStatus     `gorm:"type:varchar(20);not null;default:'TODO'" json:"status"`
	DueDate      *time.Time     `json:"due_date"`
	DisplayOrder int            `gorm:"not null;default:0" json:"display_order"`
	IsDaily      bool           `gorm:"not null;default:false" json:"is_daily"`
	CompletedAt  *time.Time     `json:"completed_at"`
	LastResetAt  *time.Time     `json:"last_reset_at"`
	CreatorID    uint64         `gorm:"not null" json:"creator_id"`
	TeamID       uint64         `gorm:"not null" json:"team_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Creator     User             `gorm:"foreignKey:CreatorID" json:"creator,omitempty"`
	Team        Team             `gorm:"foreignKey:TeamID" json:"team,omitempty"`
	Assignments []TaskAssignment `gorm:"foreignKey:TaskID" json:"assignments,omitempty"`
}
