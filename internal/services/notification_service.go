package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

var (
	ErrNotificationTitleRequired = errors.New("notification title is required")
	ErrNotificationNotFound      = errors.New("notification not found")
)

// PushMessage is the JSON payload the service worker receives
type PushMessage struct {
	Title  string  `json:"title"`
	Body   string  `json:"body"`
	Type   string  `json:"type"`
	TaskID *uint64 `json:"taskId,omitempty"`
}

// NotificationDispatcher fans a message out to every push endpoint of a user.
type NotificationDispatcher struct {
	subRepo repository.PushSubscriptionRepository
	sender  PushSender
	now     func() time.Time
}

// NewNotificationDispatcher creates a dispatcher. A nil sender disables delivery.
func NewNotificationDispatcher(subRepo repository.PushSubscriptionRepository, sender PushSender) *NotificationDispatcher {
	return &NotificationDispatcher{
		subRepo: subRepo,
		sender:  sender,
		now:     time.Now,
	}
}

// Dispatch sends msg to all endpoints of userID and returns how many were targeted,
// including when delivery is disabled and every endpoint is skipped.
// Delivery is best effort: only a failure to load the endpoints is returned.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, userID uint64, msg PushMessage) (int, error) {
	subs, err := d.subRepo.ListByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to load push subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}
	if d.sender == nil {
		log.Printf("[Dispatcher] push delivery disabled, skipping %d endpoint(s) for user %d", len(subs), userID)
		return len(subs), nil
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return 0, fmt.Errorf("failed to encode push payload: %w", err)
	}

	var group multierror.Group
	for _, sub := range subs {
		sub := sub
		group.Go(func() error {
			return d.deliver(ctx, sub, payload)
		})
	}

	if merr := group.Wait(); merr.ErrorOrNil() != nil {
		log.Printf("[Dispatcher] partial delivery for user %d: %v", userID, merr)
	}

	return len(subs), nil
}

func (d *NotificationDispatcher) deliver(ctx context.Context, sub models.PushSubscription, payload []byte) error {
	if err := d.sender.Send(ctx, sub, payload); err != nil {
		if errors.Is(err, ErrSubscriptionGone) {
			if delErr := d.subRepo.DeleteByEndpoint(ctx, sub.Endpoint); delErr != nil {
				return fmt.Errorf("subscription %d gone, delete failed: %w", sub.ID, delErr)
			}
			log.Printf("[Dispatcher] removed expired subscription %d", sub.ID)
			return nil
		}
		return fmt.Errorf("subscription %d: %w", sub.ID, err)
	}

	if err := d.subRepo.TouchLastUsed(ctx, sub.ID, d.now()); err != nil {
		return fmt.Errorf("subscription %d delivered, touch failed: %w", sub.ID, err)
	}
	return nil
}

// NotificationService stores in-app notifications and pushes them to devices.
type NotificationService struct {
	repo       repository.NotificationRepository
	dispatcher *NotificationDispatcher
	now        func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(repo repository.NotificationRepository, dispatcher *NotificationDispatcher) *NotificationService {
	return &NotificationService{
		repo:       repo,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// SendNowInput describes an immediate notification
type SendNowInput struct {
	UserID uint64
	Title  string
	Body   string
	TaskID *uint64
	Type   string
}

// SendNow persists the notification and dispatches it. It returns the number of endpoints attempted.
func (s *NotificationService) SendNow(ctx context.Context, input SendNowInput) (int, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return 0, ErrNotificationTitleRequired
	}
	if input.Type == "" {
		input.Type = constants.DefaultNotificationType
	}

	notification := &models.Notification{
		UserID: input.UserID,
		TaskID: input.TaskID,
		Title:  title,
		Body:   input.Body,
		Type:   input.Type,
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return 0, fmt.Errorf("failed to store notification: %w", err)
	}

	return s.dispatcher.Dispatch(ctx, input.UserID, PushMessage{
		Title:  title,
		Body:   input.Body,
		Type:   input.Type,
		TaskID: input.TaskID,
	})
}

// List returns a page of notifications for a user
func (s *NotificationService) List(userID uint64, unreadOnly bool, page utils.PaginationParams) ([]models.Notification, int64, error) {
	notifications, total, err := s.repo.ListByUser(userID, unreadOnly, page)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead flips the read flag of one notification
func (s *NotificationService) MarkRead(userID, notificationID uint64) error {
	affected, err := s.repo.MarkRead(userID, notificationID, s.now())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of a user as read
func (s *NotificationService) MarkAllRead(userID uint64) (int64, error) {
	affected, err := s.repo.MarkAllRead(userID, s.now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return affected, nil
}

// NotifyTaskCompleted tells the creator and assignees, except the actor, that a task is done.
func (s *NotificationService) NotifyTaskCompleted(ctx context.Context, task *models.Task, actorID uint64) {
	recipients := []uint64{task.CreatorID}
	for _, a := range task.Assignments {
		recipients = append(recipients, a.UserID)
	}

	taskID := task.ID
	for _, userID := range uniqueUint64(recipients) {
		if userID == actorID {
			continue
		}
		if _, err := s.SendNow(ctx, SendNowInput{
			UserID: userID,
			Title:  "Task completed",
			Body:   task.Title,
			TaskID: &taskID,
			Type:   "task_completed",
		}); err != nil {
			log.Printf("[Notifications] task %d completion notice to user %d failed: %v", task.ID, userID, err)
		}
	}
}
