package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	SMTP     SMTPConfig
	Engine   EngineConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
}

// AppConfig holds application configuration
type AppConfig struct {
	Port        int
	Env         string
	LogLevel    string
	FrontendURL string
}

// SMTPConfig holds outbound mail configuration. An empty Host disables
// delivery; the dispatcher logs and skips instead of failing.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// EngineConfig tunes the attendance session engine.
type EngineConfig struct {
	// StaleSessionWindow is how long a session may stay open before the
	// reaper force-closes it.
	StaleSessionWindow time.Duration

	// DailyOvertimeThreshold is the worked minutes per day beyond which
	// overtime accrues.
	DailyOvertimeThresholdMinutes int

	// NotifyMaxAttempts bounds external notification delivery retries.
	NotifyMaxAttempts int

	// NotifyAttemptTimeout is the hard per-attempt delivery timeout.
	NotifyAttemptTimeout time.Duration

	// DispatchClaimTTL is how long an in_progress ledger claim blocks a
	// concurrent duplicate attempt.
	DispatchClaimTTL time.Duration
}

func Load() (*Config, error) {
	// A missing .env is fine in production; env vars take over.
	_ = godotenv.Load()

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "worktrack"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Port:        appPort,
		Env:         getEnv("APP_ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
	}

	// SMTP configuration
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "587"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	config.SMTP = SMTPConfig{
		Host:     getEnv("SMTP_HOST", ""),
		Port:     smtpPort,
		Username: getEnv("SMTP_USERNAME", ""),
		Password: getEnv("SMTP_PASSWORD", ""),
		From:     getEnv("SMTP_FROM", "no-reply@worktrack.local"),
		FromName: getEnv("SMTP_FROM_NAME", "WorkTrack"),
	}

	// Engine configuration
	staleWindow, err := time.ParseDuration(getEnv("STALE_SESSION_WINDOW", "14h"))
	if err != nil {
		return nil, fmt.Errorf("invalid STALE_SESSION_WINDOW: %w", err)
	}

	overtimeThreshold, err := strconv.Atoi(getEnv("DAILY_OVERTIME_THRESHOLD_MINUTES", "480"))
	if err != nil {
		return nil, fmt.Errorf("invalid DAILY_OVERTIME_THRESHOLD_MINUTES: %w", err)
	}

	notifyAttempts, err := strconv.Atoi(getEnv("NOTIFY_MAX_ATTEMPTS", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_MAX_ATTEMPTS: %w", err)
	}

	notifyTimeout, err := time.ParseDuration(getEnv("NOTIFY_ATTEMPT_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_ATTEMPT_TIMEOUT: %w", err)
	}

	claimTTL, err := time.ParseDuration(getEnv("DISPATCH_CLAIM_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DISPATCH_CLAIM_TTL: %w", err)
	}

	config.Engine = EngineConfig{
		StaleSessionWindow:            staleWindow,
		DailyOvertimeThresholdMinutes: overtimeThreshold,
		NotifyMaxAttempts:             notifyAttempts,
		NotifyAttemptTimeout:          notifyTimeout,
		DispatchClaimTTL:              claimTTL,
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	if c.Engine.StaleSessionWindow <= 0 {
		return fmt.Errorf("STALE_SESSION_WINDOW must be positive")
	}
	if c.Engine.NotifyMaxAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
