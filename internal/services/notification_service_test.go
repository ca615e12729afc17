package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
)

func TestDispatch_NoSubscriptions(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createServiceTestUser(t, db, "lonely@example.com")

	sender := &fakePushSender{}
	dispatcher := NewNotificationDispatcher(repository.NewPushSubscriptionRepository(db), sender)

	attempted, err := dispatcher.Dispatch(context.Background(), user.ID, PushMessage{Title: "hi"})
	require.NoError(t, err)
	assert.Zero(t, attempted)
	assert.Zero(t, sender.count())
}

func TestDispatch_BestEffortFanOut(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createServiceTestUser(t, db, "devices@example.com")
	subRepo := repository.NewPushSubscriptionRepository(db)
	ctx := context.Background()

	for _, endpoint := range []string{"https://push.example/ok", "https://push.example/gone", "https://push.example/broken"} {
		require.NoError(t, subRepo.Upsert(ctx, &models.PushSubscription{UserID: user.ID, Endpoint: endpoint, P256dh: "k", Auth: "a"}))
	}

	sender := &fakePushSender{failures: map[string]error{
		"https://push.example/gone":   ErrSubscriptionGone,
		"https://push.example/broken": errors.New("connection reset"),
	}}
	dispatcher := NewNotificationDispatcher(subRepo, sender)

	attempted, err := dispatcher.Dispatch(ctx, user.ID, PushMessage{Title: "Standup", Body: "in 5 minutes"})
	require.NoError(t, err)
	assert.Equal(t, 3, attempted)
	assert.Equal(t, 3, sender.count())

	remaining, err := subRepo.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	for _, sub := range remaining {
		switch sub.Endpoint {
		case "https://push.example/ok":
			assert.NotNil(t, sub.LastUsedAt)
		case "https://push.example/broken":
			assert.Nil(t, sub.LastUsedAt)
		default:
			t.Fatalf("unexpected endpoint %s", sub.Endpoint)
		}
	}
}

func TestDispatch_DisabledSender(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createServiceTestUser(t, db, "nopush@example.com")
	subRepo := repository.NewPushSubscriptionRepository(db)
	require.NoError(t, subRepo.Upsert(context.Background(), &models.PushSubscription{UserID: user.ID, Endpoint: "https://push.example/x", P256dh: "k", Auth: "a"}))

	attempted, err := NewNotificationDispatcher(subRepo, nil).Dispatch(context.Background(), user.ID, PushMessage{Title: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 1, attempted)

	subs, err := subRepo.ListByUser(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Nil(t, subs[0].LastUsedAt)
}

func TestNotificationService_SendNowAndRead(t *testing.T) {
	db := setupServiceTestDB(t)
	user := createServiceTestUser(t, db, "inbox@example.com")
	subRepo := repository.NewPushSubscriptionRepository(db)
	require.NoError(t, subRepo.Upsert(context.Background(), &models.PushSubscription{UserID: user.ID, Endpoint: "https://push.example/1", P256dh: "k", Auth: "a"}))

	sender := &fakePushSender{}
	svc := NewNotificationService(repository.NewNotificationRepository(db), NewNotificationDispatcher(subRepo, sender))

	_, err := svc.SendNow(context.Background(), SendNowInput{UserID: user.ID, Title: "   "})
	require.ErrorIs(t, err, ErrNotificationTitleRequired)

	count, err := svc.SendNow(context.Background(), SendNowInput{UserID: user.ID, Title: "Water plants", Body: "now"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	page := utils.PaginationParams{Page: 1, Limit: 20}
	list, total, err := svc.List(user.ID, true, page)
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	assert.Equal(t, "reminder", list[0].Type)

	require.ErrorIs(t, svc.MarkRead(user.ID+1, list[0].ID), ErrNotificationNotFound)
	require.NoError(t, svc.MarkRead(user.ID, list[0].ID))

	var stored models.Notification
	require.NoError(t, db.First(&stored, list[0].ID).Error)
	assert.True(t, stored.Read)
	assert.Equal(t, "Water plants", stored.Title)
	assert.Equal(t, "now", stored.Body)
}

func TestNotificationService_NotifyTaskCompleted(t *testing.T) {
	db := setupServiceTestDB(t)
	creator := createServiceTestUser(t, db, "creator@example.com")
	assignee := createServiceTestUser(t, db, "assignee@example.com")

	svc := NewNotificationService(repository.NewNotificationRepository(db), NewNotificationDispatcher(repository.NewPushSubscriptionRepository(db), &fakePushSender{}))

	task := &models.Task{
		ID:          9,
		Title:       "Ship it",
		CreatorID:   creator.ID,
		Assignments: []models.TaskAssignment{{UserID: creator.ID}, {UserID: assignee.ID}},
	}
	svc.NotifyTaskCompleted(context.Background(), task, assignee.ID)

	var notes []models.Notification
	require.NoError(t, db.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, creator.ID, notes[0].UserID)
	assert.Equal(t, "task_completed", notes[0].Type)
}
