package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"gorm.io/gorm"
)

// ErrInvalidScheduleWindow rejects reminders that are already due or more than a day away.
var ErrInvalidScheduleWindow = errors.New("reminder must be due within the next 24 hours")

// Notifier persists and delivers a notification
type Notifier interface {
	SendNow(ctx context.Context, input SendNowInput) (int, error)
}

// ReminderService schedules due-date reminders as persisted jobs and fires them.
type ReminderService struct {
	repo     repository.ReminderRepository
	taskRepo repository.TaskRepository
	teamRepo repository.TeamRepository
	notifier Notifier
	now      func() time.Time
	backoff  time.Duration
}

// NewReminderService creates a new ReminderService
func NewReminderService(repo repository.ReminderRepository, taskRepo repository.TaskRepository, teamRepo repository.TeamRepository, notifier Notifier) *ReminderService {
	return &ReminderService{
		repo:     repo,
		taskRepo: taskRepo,
		teamRepo: teamRepo,
		notifier: notifier,
		now:      time.Now,
		backoff:  constants.ReminderMarkBackoff,
	}
}

// ScheduleReminderInput identifies the task to remind about
type ScheduleReminderInput struct {
	UserID uint64
	TaskID uint64
	Title  string
	DueAt  time.Time
}

// ScheduleDueReminder stores a reminder firing at DueAt. Only 0 < DueAt-now < 24h is accepted.
func (s *ReminderService) ScheduleDueReminder(ctx context.Context, input ScheduleReminderInput) (time.Time, error) {
	delay := input.DueAt.Sub(s.now())
	if delay <= 0 || delay >= constants.ReminderHorizon {
		return time.Time{}, ErrInvalidScheduleWindow
	}

	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ErrTaskNotFound
		}
		return time.Time{}, fmt.Errorf("failed to find task: %w", err)
	}
	if _, err := s.teamRepo.FindMember(task.TeamID, input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, ErrTaskNotFound
		}
		return time.Time{}, fmt.Errorf("failed to verify team membership: %w", err)
	}

	title := input.Title
	if title == "" {
		title = task.Title
	}

	job := &models.ReminderJob{
		UserID: input.UserID,
		TaskID: input.TaskID,
		Title:  title,
		FireAt: input.DueAt,
		Status: models.ReminderPending,
	}
	if err := s.repo.ReplacePending(ctx, job); err != nil {
		return time.Time{}, fmt.Errorf("failed to store reminder: %w", err)
	}

	return job.FireAt, nil
}

// ProcessDue fires every due reminder this instance manages to claim and returns how many fired.
func (s *ReminderService) ProcessDue(ctx context.Context) (int, error) {
	now := s.now()
	if expired, err := s.repo.ExpireStaleClaims(ctx, now); err != nil {
		log.Printf("[Reminders] expiring stale claims failed: %v", err)
	} else if expired > 0 {
		log.Printf("[Reminders] gave up on %d unconfirmed jobs", expired)
	}

	jobs, err := s.repo.ListDue(ctx, now, constants.ReminderClaimBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}

	fired := 0
	for _, job := range jobs {
		if ctx.Err() != nil {
			return fired, ctx.Err()
		}

		won, err := s.repo.Claim(ctx, job.ID, uuid.NewString())
		if err != nil {
			log.Printf("[Reminders] claim of job %d failed: %v", job.ID, err)
			continue
		}
		if !won {
			continue
		}

		taskID := job.TaskID
		_, sendErr := s.notifier.SendNow(ctx, SendNowInput{
			UserID: job.UserID,
			Title:  job.Title,
			Body:   "Due " + job.FireAt.UTC().Format(time.RFC3339),
			TaskID: &taskID,
			Type:   constants.DefaultNotificationType,
		})
		if sendErr != nil {
			log.Printf("[Reminders] job %d failed: %v", job.ID, sendErr)
			if err := s.repo.MarkFailed(ctx, job.ID, sendErr.Error()); err != nil {
				log.Printf("[Reminders] marking job %d failed: %v", job.ID, err)
			}
			continue
		}

		if err := s.markSent(ctx, job.ID); err != nil {
			log.Printf("[Reminders] marking job %d sent: %v", job.ID, err)
		}
		fired++
	}

	return fired, nil
}

// markSent retries the sent mark; a delivered job is never released for another claim
func (s *ReminderService) markSent(ctx context.Context, id uint64) error {
	var err error
	for attempt := 1; attempt <= constants.ReminderMarkAttempts; attempt++ {
		if err = s.repo.MarkSent(ctx, id); err == nil {
			return nil
		}
		if attempt == constants.ReminderMarkAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * s.backoff):
		}
	}
	return err
}

// CancelForTask drops the pending reminder of a task, if any
func (s *ReminderService) CancelForTask(ctx context.Context, taskID uint64) error {
	if err := s.repo.DeletePendingForTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel reminder: %w", err)
	}
	return nil
}
