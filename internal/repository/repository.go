package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// UpdateDisplayOrder sets the display order of a single task within a team
	UpdateDisplayOrder(ctx context.Context, taskID, teamID uint64, order int) error

	// Delete soft deletes a task
	Delete(id uint64) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(taskID, assignedBy uint64, userIDs []uint64) error

	// UnassignUsers removes user assignments from a task
	UnassignUsers(taskID uint64, userIDs []uint64) error

	// FindAssignment finds a specific task assignment
	FindAssignment(taskID, userID uint64) (*models.TaskAssignment, error)

	// CountUsersByIDs counts how many of the given user IDs are members of the team
	CountUsersByIDs(userIDs []uint64, teamID uint64) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TeamIDs        []uint64
	Status         *models.TaskStatus
	CreatorID      *uint64
	AssignedUserID *uint64
	DailyOnly      bool
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
	SortByDueDate  bool
	Page           int
	PageSize       int
}

// TeamRepository defines the interface for team data access
type TeamRepository interface {
	Create(team *models.Team) error
	FindByID(id uint64) (*models.Team, error)
	FindByInviteCode(code string) (*models.Team, error)
	Update(team *models.Team) error

	// Delete deletes a team and all related data
	Delete(id uint64) error

	AddMember(member *models.TeamMember) error
	RemoveMember(teamID, userID uint64) error
	UpdateMemberRole(teamID, userID uint64, role models.TeamRole) error
	FindMember(teamID, userID uint64) (*models.TeamMember, error)

	// ListMembersByUserID lists all teams a user is a member of
	ListMembersByUserID(userID uint64) ([]models.TeamMember, error)

	// ListMembers lists all members of a team
	ListMembers(teamID uint64) ([]models.TeamMember, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	Create(user *models.User) error

	// CreateWithPersonalTeam creates a user, their personal team,
	// and corresponding membership within a single transaction.
	CreateWithPersonalTeam(user *models.User, team *models.Team, member *models.TeamMember) error

	FindByID(id uint64) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByPayPalSubscriptionID(subscriptionID string) (*models.User, error)

	// UpdateFields applies a partial column update to a single user row
	UpdateFields(id uint64, fields map[string]interface{}) error

	// ConsumeCredit atomically spends one AI credit, preferring the monthly
	// balance over purchased credits. It returns false when none is left.
	ConsumeCredit(id uint64) (bool, error)

	// AddPurchasedCredits atomically increments purchased credits
	AddPurchasedCredits(id uint64, credits int) error

	// ListDueForCreditReset lists paid users whose last credit reset is before cutoff
	ListDueForCreditReset(ctx context.Context, cutoff time.Time) ([]models.User, error)

	// CreatePasswordReset stores a hashed password reset token
	CreatePasswordReset(token *models.PasswordResetToken) error

	// FindPasswordReset finds an unused, unexpired reset token by hash
	FindPasswordReset(tokenHash string, now time.Time) (*models.PasswordResetToken, error)

	// ResetPassword sets a new password hash and consumes the token atomically
	ResetPassword(tokenID, userID uint64, passwordHash string, now time.Time) error
}

// PushSubscriptionRepository stores browser push endpoints
type PushSubscriptionRepository interface {
	// Upsert inserts the subscription or replaces owner and keys of an existing endpoint
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	ListByUser(ctx context.Context, userID uint64) ([]models.PushSubscription, error)
	DeleteForUser(ctx context.Context, userID uint64, endpoint string) (int64, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	TouchLastUsed(ctx context.Context, id uint64, at time.Time) error
}

// NotificationRepository stores in-app notifications
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(userID uint64, unreadOnly bool, page utils.PaginationParams) ([]models.Notification, int64, error)
	MarkRead(userID, id uint64, at time.Time) (int64, error)
	MarkAllRead(userID uint64, at time.Time) (int64, error)
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// ReminderRepository persists due-date reminder jobs
type ReminderRepository interface {
	// ReplacePending removes any pending job for the task and inserts job
	ReplacePending(ctx context.Context, job *models.ReminderJob) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ReminderJob, error)

	// Claim marks an unclaimed pending job as owned by token; false if someone else got it first
	Claim(ctx context.Context, id uint64, token string) (bool, error)
	// ExpireStaleClaims fails claimed jobs that never reported an outcome
	ExpireStaleClaims(ctx context.Context, now time.Time) (int64, error)
	MarkSent(ctx context.Context, id uint64) error
	MarkFailed(ctx context.Context, id uint64, reason string) error
	DeletePendingForTask(ctx context.Context, taskID uint64) error
}

// MaintenanceRepository runs server-side maintenance procedures
type MaintenanceRepository interface {
	// ResetDailyTasksByTimezone invokes the reset stored procedure once
	ResetDailyTasksByTimezone(ctx context.Context) (int64, error)
}

// BillingEventRepository records processed webhook events
type BillingEventRepository interface {
	// Record stores the event and reports whether it was new
	Record(ctx context.Context, event *models.BillingEvent) (bool, error)

	// Forget removes a recorded event so a failed delivery can be processed again
	Forget(ctx context.Context, id string) error
}
