package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REMINDER_POLL_SECONDS", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, 15*time.Second, cfg.ReminderPollInterval)
	assert.Equal(t, "https://api.groq.com/openai/v1", cfg.GroqBaseURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("GIN_MODE", "release")
	t.Setenv("REMINDER_POLL_SECONDS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg := Load()

	assert.Equal(t, "mysql", cfg.DBDriver)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 5*time.Second, cfg.ReminderPollInterval)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORSOrigins)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("NOTIFICATION_RETENTION_HOURS", "soon")

	cfg := Load()

	assert.Equal(t, 24*30, cfg.NotificationRetentionHours)
}
