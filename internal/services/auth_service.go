package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow-api/internal/constants"
	"github.com/yukikurage/taskflow-api/internal/models"
	"github.com/yukikurage/taskflow-api/internal/repository"
	"github.com/yukikurage/taskflow-api/internal/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidEmail         = errors.New("invalid email address")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrUserNotFound         = errors.New("user not found")
	ErrFailedToHashPassword = errors.New("failed to hash password")
	ErrFailedToCreateUser   = errors.New("failed to create user")
	ErrFailedToCreateTeam   = errors.New("failed to create team")
	ErrFailedToAddMember    = errors.New("failed to add user to team")
	ErrInvalidTimezone      = errors.New("unknown timezone")
	ErrInvalidTheme         = errors.New("unknown theme")
	ErrInvalidLanguage      = errors.New("unsupported language")
	ErrInvalidResetToken    = errors.New("reset token is invalid or expired")
)

var (
	allowedThemes    = map[string]bool{"light": true, "dark": true, "system": true}
	allowedLanguages = map[string]bool{"en": true, "ja": true, "es": true, "fr": true, "de": true}
)

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo   repository.UserRepository
	mailer     Mailer
	appBaseURL string
	now        func() time.Time
}

// NewAuthService creates a new AuthService. mailer may be nil, in which case reset mail is only logged.
func NewAuthService(userRepo repository.UserRepository, mailer Mailer, appBaseURL string) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		mailer:     mailer,
		appBaseURL: strings.TrimRight(appBaseURL, "/"),
		now:        time.Now,
	}
}

// SignupInput represents the required information to create a new user.
type SignupInput struct {
	Email    string
	Password string
}

// Signup creates a new user along with a personal team.
func (s *AuthService) Signup(input SignupInput) (*models.User, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		Plan:         models.PlanFree,
		Timezone:     "UTC",
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrFailedToCreateTeam
	}

	team := &models.Team{
		Name:       fmt.Sprintf("%s's team", strings.SplitN(email, "@", 2)[0]),
		InviteCode: inviteCode,
	}

	member := &models.TeamMember{
		Role:     models.RoleOwner,
		JoinedAt: s.now(),
	}

	if err := s.userRepo.CreateWithPersonalTeam(user, team, member); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateUser):
			return nil, ErrFailedToCreateUser
		case errors.Is(err, repository.ErrCreateTeam):
			return nil, ErrFailedToCreateTeam
		case errors.Is(err, repository.ErrCreateTeamMember):
			return nil, ErrFailedToAddMember
		default:
			return nil, fmt.Errorf("failed to complete signup: %w", err)
		}
	}

	return user, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated user.
func (s *AuthService) Login(input LoginInput) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(input.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(id uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return user, nil
}

// UpdateProfileInput holds optional preference changes
type UpdateProfileInput struct {
	Timezone *string
	Theme    *string
	Language *string
}

// UpdateProfile validates and stores the user's display preferences.
func (s *AuthService) UpdateProfile(userID uint64, input UpdateProfileInput) (*models.User, error) {
	fields := map[string]interface{}{}

	if input.Timezone != nil {
		tz := strings.TrimSpace(*input.Timezone)
		if tz == "" || strings.EqualFold(tz, "local") {
			return nil, ErrInvalidTimezone
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return nil, ErrInvalidTimezone
		}
		fields["timezone"] = tz
	}
	if input.Theme != nil {
		if !allowedThemes[*input.Theme] {
			return nil, ErrInvalidTheme
		}
		fields["theme"] = *input.Theme
	}
	if input.Language != nil {
		if !allowedLanguages[*input.Language] {
			return nil, ErrInvalidLanguage
		}
		fields["language"] = *input.Language
	}

	if len(fields) > 0 {
		if err := s.userRepo.UpdateFields(userID, fields); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUserNotFound
			}
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	return s.GetUser(userID)
}

// RequestPasswordReset mails a one-hour reset link when the email is registered.
// The outcome is never reported to the caller so accounts cannot be enumerated.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) {
	user, err := s.userRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Auth] password reset lookup failed: %v", err)
		}
		return
	}

	token, err := randomToken()
	if err != nil {
		log.Printf("[Auth] password reset token generation failed: %v", err)
		return
	}

	reset := &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: hashToken(token),
		ExpiresAt: s.now().Add(constants.PasswordResetTTL),
	}
	if err := s.userRepo.CreatePasswordReset(reset); err != nil {
		log.Printf("[Auth] storing password reset for user %d failed: %v", user.ID, err)
		return
	}

	link := fmt.Sprintf("%s/reset-password?token=%s", s.appBaseURL, token)
	if s.mailer == nil {
		log.Printf("[Auth] mail disabled, reset link for user %d not sent", user.ID)
		return
	}

	text := fmt.Sprintf("Use this link within one hour to choose a new password:\n\n%s\n\nIf you did not ask for this, ignore this email.", link)
	html := fmt.Sprintf(`<p>Use this link within one hour to choose a new password:</p><p><a href="%s">Reset password</a></p><p>If you did not ask for this, ignore this email.</p>`, link)
	if err := s.mailer.Send(ctx, user.Email, "Reset your password", text, html); err != nil {
		log.Printf("[Auth] reset mail to user %d failed: %v", user.ID, err)
	}
}

// ResetPassword consumes a reset token and sets a new password.
func (s *AuthService) ResetPassword(token, newPassword string) error {
	if len(newPassword) < constants.MinPasswordLength {
		return ErrPasswordTooShort
	}
	if token == "" {
		return ErrInvalidResetToken
	}

	now := s.now()
	reset, err := s.userRepo.FindPasswordReset(hashToken(token), now)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to find reset token: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return ErrFailedToHashPassword
	}

	if err := s.userRepo.ResetPassword(reset.ID, reset.UserID, string(hashedPassword), now); err != nil {
		if errors.Is(err, repository.ErrResetTokenConsumed) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to reset password: %w", err)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil || addr.Address != strings.TrimSpace(raw) {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// randomToken returns a random v4 UUID without dashes
func randomToken() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
