package dto

import (
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
)

// ProfileDTO is the authenticated user's own view of their account
type ProfileDTO struct {
	ID                    uint64      `json:"id"`
	Email                 string      `json:"email"`
	Plan                  models.Plan `json:"plan"`
	AICredits             int         `json:"ai_credits"`
	PurchasedCredits      int         `json:"purchased_credits"`
	SubscriptionExpiresAt *time.Time  `json:"subscription_expires_at"`
	Timezone              string      `json:"timezone"`
	Theme                 string      `json:"theme"`
	Language              string      `json:"language"`
	CreatedAt             time.Time   `json:"created_at"`
}

// LoginResponse carries the profile plus a bearer token for non-browser clients
type LoginResponse struct {
	User        ProfileDTO `json:"user"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// NotificationDTO represents a stored notification
type NotificationDTO struct {
	ID        uint64     `json:"id"`
	TaskID    *uint64    `json:"task_id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Type      string     `json:"type"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// PushSubscriptionDTO represents a registered push endpoint without its keys
type PushSubscriptionDTO struct {
	ID         uint64     `json:"id"`
	Endpoint   string     `json:"endpoint"`
	UserAgent  string     `json:"user_agent"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// ToProfileDTO converts a User model to ProfileDTO
func ToProfileDTO(user models.User) ProfileDTO {
	return ProfileDTO{
		ID:                    user.ID,
		Email:                 user.Email,
		Plan:                  user.Plan,
		AICredits:             user.AICredits,
		PurchasedCredits:      user.PurchasedCredits,
		SubscriptionExpiresAt: user.SubscriptionExpiresAt,
		Timezone:              user.Timezone,
		Theme:                 user.Theme,
		Language:              user.Language,
		CreatedAt:             user.CreatedAt,
	}
}

func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        n.ID,
		TaskID:    n.TaskID,
		Title:     n.Title,
		Body:      n.Body,
		Type:      n.Type,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func ToPushSubscriptionDTO(sub models.PushSubscription) PushSubscriptionDTO {
	return PushSubscriptionDTO{
		ID:         sub.ID,
		Endpoint:   sub.Endpoint,
		UserAgent:  sub.UserAgent,
		LastUsedAt: sub.LastUsedAt,
		CreatedAt:  sub.CreatedAt,
	}
}
