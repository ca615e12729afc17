package services

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every new connection to :memory: would see an empty database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
}

func createServiceTestUser(t *testing.T, db *gorm.DB, email string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hashed", Plan: models.PlanFree, Timezone: "UTC"}
	for _, m := range mutate {
		m(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createServiceTestTeam(t *testing.T, db *gorm.DB, name string, members map[uint64]models.TeamRole) *models.Team {
	t.Helper()
	team := &models.Team{Name: name, InviteCode: name + "-code"}
	require.NoError(t, db.Create(team).Error)
	for userID, role := range members {
		require.NoError(t, db.Create(&models.TeamMember{TeamID: team.ID, UserID: userID, Role: role, JoinedAt: time.Now()}).Error)
	}
	return team
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakePushSender struct {
	mu       sync.Mutex
	sent     []string
	failures map[string]error
}

func (f *fakePushSender) Send(_ context.Context, sub models.PushSubscription, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	return f.failures[sub.Endpoint]
}

func (f *fakePushSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type fakeNotifier struct {
	mu     sync.Mutex
	inputs []SendNowInput
	err    error
}

func (f *fakeNotifier) SendNow(_ context.Context, input SendNowInput) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	return 1, f.err
}

type fakeBillingProvider struct {
	cancelled   []string
	cancelErr   error
	orderStatus string
	verifyErr   error
}

func (f *fakeBillingProvider) CancelSubscription(_ context.Context, subscriptionID, _ string) error {
	f.cancelled = append(f.cancelled, subscriptionID)
	return f.cancelErr
}

func (f *fakeBillingProvider) CaptureOrder(_ context.Context, _ string) (string, error) {
	return f.orderStatus, nil
}

func (f *fakeBillingProvider) VerifyWebhook(_ context.Context, _ *http.Request) error {
	return f.verifyErr
}

type sentMail struct {
	to, subject, text string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) Send(_ context.Context, to, subject, plainText, _ string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, text: plainText})
	return nil
}

type fakeGenerator struct {
	tasks []GeneratedTask
	plan  []StudyPlanItem
	calls int
}

func (f *fakeGenerator) GenerateTasksFromText(_ context.Context, _ string) ([]GeneratedTask, error) {
	f.calls++
	return f.tasks, nil
}

func (f *fakeGenerator) GenerateStudyPlan(_ context.Context, _ string, _ int) ([]StudyPlanItem, error) {
	f.calls++
	return f.plan, nil
}
