package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrNotTaskCreator         = errors.New("only the task creator can perform this action")
	ErrTaskPermissionDenied   = errors.New("user does not have permission to modify this task")
	ErrNoUserIDsProvided      = errors.New("at least one user ID is required")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrInvalidTaskAssignee    = errors.New("one or more users do not exist or are not members of the team")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
	ErrAITooManyTasks         = errors.New("AI generated too many tasks")
	ErrAITextRequired         = errors.New("text is required")
	ErrNoReorderItems         = errors.New("at least one task order is required")
	ErrTooManyReorderItems    = errors.New("too many tasks to reorder at once")
	ErrReorderPartial         = errors.New("some tasks could not be reordered")
)

// CompletionNotifier is told when a task moves to done
type CompletionNotifier interface {
	NotifyTaskCompleted(ctx context.Context, task *models.Task, actorID uint64)
}

// ReminderCanceller drops pending reminders of a task
type ReminderCanceller interface {
	CancelForTask(ctx context.Context, taskID uint64) error
}

// CreditSpender charges one AI credit
type CreditSpender interface {
	Consume(userID uint64) error
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo  repository.TaskRepository
	teamRepo  repository.TeamRepository
	generator TaskGenerator
	credits   CreditSpender
	notifier  CompletionNotifier
	reminders ReminderCanceller
	now       func() time.Time
}

// NewTaskService creates a new TaskService. generator may be nil when AI is not configured.
func NewTaskService(taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, generator TaskGenerator, credits CreditSpender) *TaskService {
	return &TaskService{
		taskRepo:  taskRepo,
		teamRepo:  teamRepo,
		generator: generator,
		credits:   credits,
		now:       time.Now,
	}
}

// WithNotifications wires completion notices and reminder cleanup into status changes
func (s *TaskService) WithNotifications(notifier CompletionNotifier, reminders ReminderCanceller) *TaskService {
	s.notifier = notifier
	s.reminders = reminders
	return s
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	UserID        uint64
	TeamID        *uint64
	AssignedToMe  bool
	DueToday      bool
	DailyOnly     bool
	Status        *models.TaskStatus
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	DueDate     *time.Time
	IsDaily     bool
	TeamID      uint64
	CreatorID   uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
	IsDaily      *bool
}

// AssignUsersInput represents input for assigning users to a task
type AssignUsersInput struct {
	TaskID  uint64
	ActorID uint64
	UserIDs []uint64
}

// ListTasks returns tasks accessible to a user based on the provided filters
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	teamIDs, err := s.resolveAccessibleTeamIDs(input.UserID, input.TeamID)
	if err != nil {
		return nil, 0, err
	}

	if len(teamIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	filter := repository.TaskFilter{
		TeamIDs:       teamIDs,
		DailyOnly:     input.DailyOnly,
		Page:          input.Page,
		PageSize:      input.PageSize,
		SortByDueDate: input.SortByDueDate,
	}

	if input.Status != nil {
		filter.Status = input.Status
	}
	if input.AssignedToMe {
		filter.AssignedUserID = &input.UserID
	}
	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Team", "Assignments", "Assignments.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a new task with validation and assigns the creator
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}

	if err := s.ensureTeamMember(input.TeamID, input.CreatorID); err != nil {
		return nil, err
	}

	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		IsDaily:     input.IsDaily,
		TeamID:      input.TeamID,
		CreatorID:   input.CreatorID,
	}
	s.setStatus(task, input.Status)

	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := s.taskRepo.AssignUsers(task.ID, input.CreatorID, []uint64{input.CreatorID}); err != nil {
		return nil, fmt.Errorf("failed to assign creator to task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Team", "Assignments", "Assignments.User")
}

// UpdateTask updates an existing task
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		s.setStatus(task, *input.Status)
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}
	if input.IsDaily != nil {
		task.IsDaily = *input.IsDaily
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Team", "Assignments", "Assignments.User")
}

// DeleteTask deletes a task if the actor is the creator
func (s *TaskService) DeleteTask(ctx context.Context, taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		return ErrNotTaskCreator
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.cancelReminders(ctx, taskID)
	return nil
}

// AssignUsers assigns multiple users to a task with validation
func (s *TaskService) AssignUsers(input AssignUsersInput) error {
	if len(input.UserIDs) == 0 {
		return ErrNoUserIDsProvided
	}

	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != input.ActorID {
		return ErrNotTaskCreator
	}

	userIDs := uniqueUint64(input.UserIDs)

	count, err := s.taskRepo.CountUsersByIDs(userIDs, task.TeamID)
	if err != nil {
		return fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(userIDs) {
		return ErrInvalidTaskAssignee
	}

	if err := s.taskRepo.AssignUsers(task.ID, input.ActorID, userIDs); err != nil {
		return fmt.Errorf("failed to assign users: %w", err)
	}

	return nil
}

// UnassignUsers removes user assignments from a task
func (s *TaskService) UnassignUsers(taskID, actorID uint64, userIDs []uint64) error {
	if len(userIDs) == 0 {
		return ErrNoUserIDsProvided
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		return ErrNotTaskCreator
	}

	uniqueIDs := uniqueUint64(userIDs)

	if err := s.taskRepo.UnassignUsers(taskID, uniqueIDs); err != nil {
		return fmt.Errorf("failed to unassign users: %w", err)
	}

	return nil
}

// ToggleTaskStatus toggles a task between todo and done
func (s *TaskService) ToggleTaskStatus(ctx context.Context, taskID, actorID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Assignments")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		// Ensure the actor is assigned to the task
		permitted := false
		for _, assignment := range task.Assignments {
			if assignment.UserID == actorID {
				permitted = true
				break
			}
		}
		if !permitted {
			return nil, ErrTaskPermissionDenied
		}
	}

	if task.Status == models.TaskStatusDone {
		s.setStatus(task, models.TaskStatusTodo)
	} else {
		s.setStatus(task, models.TaskStatusDone)
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to toggle status: %w", err)
	}

	if task.Status == models.TaskStatusDone {
		s.cancelReminders(ctx, task.ID)
		if s.notifier != nil {
			s.notifier.NotifyTaskCompleted(ctx, task, actorID)
		}
	}

	return task, nil
}

// setStatus records when a task entered DONE; the daily reset keys off that instant
func (s *TaskService) setStatus(task *models.Task, status models.TaskStatus) {
	if task.Status == status && (status != models.TaskStatusDone || task.CompletedAt != nil) {
		return
	}
	task.Status = status
	if status == models.TaskStatusDone {
		completedAt := s.now()
		task.CompletedAt = &completedAt
	} else {
		task.CompletedAt = nil
	}
}

// DailyResetDue reports whether a daily task completed at completedAt should be
// reopened at now: only once the owner's local calendar date has moved past the
// completion date. The reset_daily_tasks_by_timezone procedure applies the same rule.
func DailyResetDue(completedAt *time.Time, now time.Time, loc *time.Location) bool {
	if completedAt == nil {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}
	cy, cm, cd := completedAt.In(loc).Date()
	ny, nm, nd := now.In(loc).Date()
	return time.Date(cy, cm, cd, 0, 0, 0, 0, time.UTC).Before(time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC))
}

// ReorderItem is the requested position of one task
type ReorderItem struct {
	TaskID       uint64
	DisplayOrder int
}

// Reorder applies each position as an independent concurrent update. On failure
// some rows may already be updated; the caller only learns that not all succeeded.
func (s *TaskService) Reorder(ctx context.Context, teamID, actorID uint64, items []ReorderItem) error {
	if len(items) == 0 {
		return ErrNoReorderItems
	}
	if len(items) > constants.MaxReorderItems {
		return ErrTooManyReorderItems
	}
	if err := s.ensureTeamMember(teamID, actorID); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, item := range items {
		item := item
		g.Go(func() error {
			return s.taskRepo.UpdateDisplayOrder(gctx, item.TaskID, teamID, item.DisplayOrder)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("[Tasks] reorder in team %d incomplete: %v", teamID, err)
		return ErrReorderPartial
	}
	return nil
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text      string
	CreatorID uint64
}

// GenerateTasks spends one AI credit and returns task suggestions extracted from text
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, ErrAITextRequired
	}

	if err := s.credits.Consume(input.CreatorID); err != nil {
		return nil, err
	}

	aiTasks, err := s.generator.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, ErrAITooManyTasks
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}

		if aiTask.DueDate != nil {
			if aiTask.DueDate.Before(cutoff) {
				aiTask.DueDate = nil
			}
		}

		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

// resolveAccessibleTeamIDs returns the team IDs the user can access
func (s *TaskService) resolveAccessibleTeamIDs(userID uint64, teamID *uint64) ([]uint64, error) {
	if teamID != nil {
		if err := s.ensureTeamMember(*teamID, userID); err != nil {
			return nil, err
		}
		return []uint64{*teamID}, nil
	}

	memberships, err := s.teamRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch team memberships: %w", err)
	}

	teamIDs := make([]uint64, 0, len(memberships))
	for _, m := range memberships {
		teamIDs = append(teamIDs, m.TeamID)
	}

	return teamIDs, nil
}

// ensureTeamMember verifies that a user belongs to a team
func (s *TaskService) ensureTeamMember(teamID, userID uint64) error {
	_, err := s.teamRepo.FindMember(teamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotTeamMember
		}
		return fmt.Errorf("failed to verify team membership: %w", err)
	}
	return nil
}

func (s *TaskService) cancelReminders(ctx context.Context, taskID uint64) {
	if s.reminders == nil {
		return
	}
	if err := s.reminders.CancelForTask(ctx, taskID); err != nil {
		log.Printf("[Tasks] %v", err)
	}
}

// uniqueUint64 removes duplicate values from a slice of uint64
func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))

	for _, v := range values {
		if _, exists := seen[v]; exists {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}

	return result
}
