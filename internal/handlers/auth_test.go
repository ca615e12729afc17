package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/taskflow-api/internal/auth"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/dto"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/services"
	"gorm.io/gorm"
)

type authTestEnv struct {
	db          *gorm.DB
	handler     *AuthHandler
	authService *services.AuthService
	tokens      *auth.TokenIssuer
	mailer      *recordingMailer
}

func setupAuthTestEnv(t *testing.T) authTestEnv {
	t.Helper()

	db := setupHandlerTestDB(t)

	mailer := &recordingMailer{}
	tokens := auth.NewTokenIssuer("test-jwt-secret", time.Hour)
	userRepo := repository.NewUserRepository(db)
	authService := services.NewAuthService(userRepo, mailer, "https://app.example.com")

	return authTestEnv{
		db:          db,
		handler:     NewAuthHandler(authService, tokens),
		authService: authService,
		tokens:      tokens,
		mailer:      mailer,
	}
}

func newSessionRouter() *gin.Engine {
	r := gin.New()
	store := cookie.NewStore([]byte("secret"))
	r.Use(sessions.Sessions(constants.SessionCookieName, store))
	return r
}

func postJSON(r http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	env := setupAuthTestEnv(t)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	payload := map[string]string{
		"email":    "New.User@Example.com",
		"password": "supersecret",
	}
	w := postJSON(r, "/api/auth/signup", mustJSON(t, payload))

	require.Equal(t, http.StatusCreated, w.Code)

	var response dto.ProfileDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "new.user@example.com", response.Email)
	require.Equal(t, models.PlanFree, response.Plan)
	require.Equal(t, "UTC", response.Timezone)

	var teams int64
	require.NoError(t, env.db.Model(&models.TeamMember{}).Where("user_id = ? AND role = ?", response.ID, models.RoleOwner).Count(&teams).Error)
	require.Equal(t, int64(1), teams)
}

func TestAuthHandler_Signup_Errors(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{Email: "taken@example.com", Password: "supersecret"})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/signup", env.handler.Signup)

	tests := []struct {
		name    string
		payload map[string]string
		want    int
	}{
		{"short password", map[string]string{"email": "a@example.com", "password": "short"}, http.StatusBadRequest},
		{"bad email", map[string]string{"email": "not-an-email", "password": "supersecret"}, http.StatusBadRequest},
		{"duplicate email", map[string]string{"email": "taken@example.com", "password": "supersecret"}, http.StatusConflict},
		{"missing fields", map[string]string{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(r, "/api/auth/signup", mustJSON(t, tt.payload))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.authService.Signup(services.SignupInput{
		Email:    "existing@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	w := postJSON(r, "/api/auth/login", mustJSON(t, map[string]string{
		"email":    "existing@example.com",
		"password": "supersecret",
	}))

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.ID, response.User.ID)
	require.NotEmpty(t, response.AccessToken)

	tokenUserID, err := env.tokens.Verify(response.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, tokenUserID)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies, "expected session cookie to be set")
}

func TestAuthHandler_Login_WrongPassword(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{Email: "existing@example.com", Password: "supersecret"})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/login", env.handler.Login)

	w := postJSON(r, "/api/auth/login", mustJSON(t, map[string]string{
		"email":    "existing@example.com",
		"password": "wrong-password",
	}))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_GetCurrentUser(t *testing.T) {
	env := setupAuthTestEnv(t)

	user, err := env.authService.Signup(services.SignupInput{
		Email:    "current@example.com",
		Password: "supersecret",
	})
	require.NoError(t, err)

	c, w := handlerTestContext(http.MethodGet, "/api/auth/me", nil, user.ID)

	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.ProfileDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, user.Email, response.Email)
}

func TestAuthHandler_GetCurrentUser_Unauthenticated(t *testing.T) {
	env := setupAuthTestEnv(t)

	c, w := handlerTestContext(http.MethodGet, "/api/auth/me", nil, 0)
	env.handler.GetCurrentUser(c)

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	env := setupAuthTestEnv(t)

	user := createHandlerTestUser(t, env.db, "prefs@example.com")

	c, w := handlerTestContext(http.MethodPatch, "/api/auth/profile", mustJSON(t, map[string]string{
		"timezone": "Asia/Tokyo",
		"theme":    "dark",
	}), user.ID)
	env.handler.UpdateProfile(c)

	require.Equal(t, http.StatusOK, w.Code)

	var response dto.ProfileDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Equal(t, "Asia/Tokyo", response.Timezone)
	require.Equal(t, "dark", response.Theme)

	c, w = handlerTestContext(http.MethodPatch, "/api/auth/profile", mustJSON(t, map[string]string{
		"timezone": "Mars/Olympus_Mons",
	}), user.ID)
	env.handler.UpdateProfile(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_ForgotPassword_SameBodyForUnknownEmail(t *testing.T) {
	env := setupAuthTestEnv(t)

	_, err := env.authService.Signup(services.SignupInput{Email: "known@example.com", Password: "supersecret"})
	require.NoError(t, err)

	r := newSessionRouter()
	r.POST("/api/auth/forgot-password", env.handler.ForgotPassword)

	known := postJSON(r, "/api/auth/forgot-password", mustJSON(t, map[string]string{"email": "known@example.com"}))
	unknown := postJSON(r, "/api/auth/forgot-password", mustJSON(t, map[string]string{"email": "nobody@example.com"}))

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())

	require.Equal(t, []string{"known@example.com"}, env.mailer.to)

	var tokens int64
	require.NoError(t, env.db.Model(&models.PasswordResetToken{}).Count(&tokens).Error)
	require.Equal(t, int64(1), tokens)
}

func TestAuthHandler_ResetPassword_InvalidToken(t *testing.T) {
	env := setupAuthTestEnv(t)

	r := newSessionRouter()
	r.POST("/api/auth/reset-password", env.handler.ResetPassword)

	w := postJSON(r, "/api/auth/reset-password", mustJSON(t, map[string]string{
		"token":    "does-not-exist",
		"password": "another-secret",
	}))
	require.Equal(t, http.StatusBadRequest, w.Code)
}
