package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/database"
	"github.com/yukikurage/taskflow-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	require.NoError(t, db.AutoMigrate(database.AllModels()...))
	return db
}

func handlerTestContext(method, url string, body []byte, userID uint64) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if userID != 0 {
		c.Set(constants.ContextKeyUserID, userID)
	}

	return c, w
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return body
}

func createHandlerTestUser(t *testing.T, db *gorm.DB, email string, mutate ...func(*models.User)) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "hashed", Plan: models.PlanFree, Timezone: "UTC"}
	for _, m := range mutate {
		m(user)
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createHandlerTestTeam(t *testing.T, db *gorm.DB, name string, members map[uint64]models.TeamRole) *models.Team {
	t.Helper()
	team := &models.Team{Name: name, InviteCode: name + "-code"}
	require.NoError(t, db.Create(team).Error)
	for userID, role := range members {
		require.NoError(t, db.Create(&models.TeamMember{TeamID: team.ID, UserID: userID, Role: role, JoinedAt: time.Now()}).Error)
	}
	return team
}

type recordingPushSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingPushSender) Send(_ context.Context, sub models.PushSubscription, _ []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sub.Endpoint)
	return nil
}

type recordingMailer struct {
	mu sync.Mutex
	to []string
}

func (m *recordingMailer) Send(_ context.Context, to, _, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.to = append(m.to, to)
	return nil
}

type stubBillingProvider struct {
	orderStatus string
	verifyErr   error
}

func (s *stubBillingProvider) CancelSubscription(context.Context, string, string) error {
	return nil
}

func (s *stubBillingProvider) CaptureOrder(context.Context, string) (string, error) {
	return s.orderStatus, nil
}

func (s *stubBillingProvider) VerifyWebhook(context.Context, *http.Request) error {
	return s.verifyErr
}
