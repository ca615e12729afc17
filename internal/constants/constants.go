package constants

import "time"

// Context and session keys
const (
	ContextKeyUserID  = "user_id"
	ContextKeyTeam    = "team"
	ContextKeyMember  = "team_member"
	ContextKeyTask    = "task"
	SessionCookieName = "task_session"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Validation limits
const (
	MinPasswordLength   = 8
	MaxAIGeneratedTasks = 20
	MaxStudyPlanDays    = 30
	MaxReorderItems     = 200
)

// Reminders and notifications
const (
	// ReminderHorizon is the exclusive upper bound on how far ahead a due reminder may be scheduled.
	ReminderHorizon         = 24 * time.Hour
	DefaultReminderPoll     = 15 * time.Second
	ReminderClaimBatch      = 50
	ReminderMarkAttempts    = 3
	ReminderMarkBackoff     = 200 * time.Millisecond
	PushTTLSeconds          = 24 * 60 * 60
	DefaultNotificationType = "reminder"
)

// Auth tokens
const (
	AccessTokenTTL   = 72 * time.Hour
	PasswordResetTTL = time.Hour
)

// Cron
const (
	DefaultRetryAfter = 60 * time.Second
	// CronMinInterval throttles the maintenance endpoints in-process.
	CronMinInterval = 30 * time.Second
	CronBurst       = 2
)
