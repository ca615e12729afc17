package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RedisHost     string
	RedisPort     string
	SessionSecret string
	AuthJWTSecret string
	GinMode       string
	Port          string
	CORSOrigins   []string

	GroqAPIKey  string
	GroqBaseURL string
	GroqModel   string

	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubject    string

	PayPalClientID     string
	PayPalClientSecret string
	PayPalMode         string
	PayPalWebhookID    string

	SendGridAPIKey string
	MailFrom       string
	AppBaseURL     string

	CronSecret    string
	MigrationsDir string

	ReminderPollInterval       time.Duration
	NotificationRetentionHours int
}

// Load reads configuration from the environment, after applying an optional .env file.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on process environment")
	}

	return &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "taskuser"),
		DBPassword: getEnv("DB_PASSWORD", "taskpassword"),
		DBName:     getEnv("DB_NAME", "taskflow"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		SessionSecret: getEnv("SESSION_SECRET", "default-secret-key-change-me"),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", "default-jwt-secret-change-me"),
		GinMode:       getEnv("GIN_MODE", "debug"),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:   getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubject:    getEnv("VAPID_SUBJECT", "mailto:support@example.com"),

		PayPalClientID:     getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalClientSecret: getEnv("PAYPAL_CLIENT_SECRET", ""),
		PayPalMode:         getEnv("PAYPAL_MODE", "sandbox"),
		PayPalWebhookID:    getEnv("PAYPAL_WEBHOOK_ID", ""),

		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		MailFrom:       getEnv("MAIL_FROM", "no-reply@example.com"),
		AppBaseURL:     getEnv("APP_BASE_URL", "http://localhost:3000"),

		CronSecret:    getEnv("CRON_SECRET", ""),
		MigrationsDir: getEnv("MIGRATIONS_DIR", "db/migrations"),

		ReminderPollInterval:       time.Duration(getEnvInt("REMINDER_POLL_SECONDS", 15)) * time.Second,
		NotificationRetentionHours: getEnvInt("NOTIFICATION_RETENTION_HOURS", 24*30),
	}
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		log.Printf("Ignoring invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
