package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

const defaultRoleDeleteReason = "The date became old and was ultimately cleaned up"

// Window is a half-open [StartHour, EndHour) range of local hours.
type Window struct {
	StartHour int
	EndHour   int
}

// Contains reports whether t falls inside the window, in t's own location.
func (w Window) Contains(t time.Time) bool {
	h := t.Hour()
	return h >= w.StartHour && h < w.EndHour
}

func (w Window) String() string {
	return fmt.Sprintf("[%02d:00, %02d:00)", w.StartHour, w.EndHour)
}

// AppConfig holds all configuration for the application
type AppConfig struct {
	DiscordToken string
	DatabaseURL  string
	LogLevel     string
	Environment  string
	Location     *time.Location

	MentionInterval          time.Duration
	MentionWindow            Window
	DepartureCleanupInterval time.Duration
	RunOnStart               bool

	NotifyAfterDays        int // Days between a mention's date and its delivery
	MentionRetentionDays   int // Days after which a mention and its role are purged
	DepartureRetentionDays int

	MessageDeleteDelay time.Duration
	RoleDeleteReason   string
	WelcomeMessage     string // Sent by DM on join when non-empty
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// Attempt to load .env file. Errors are ignored if the file doesn't exist.
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DiscordToken = os.Getenv("DISCORD_TOKEN")
	if cfg.DiscordToken == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN is not set")
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info" // Default log level
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development" // Default environment
	}

	tz := os.Getenv("TIMEZONE")
	if tz == "" {
		tz = "Local"
	}
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if cfg.MentionInterval, err = durationEnv("MENTION_INTERVAL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MentionWindow.StartHour, err = intEnv("MENTION_WINDOW_START_HOUR", 12); err != nil {
		return nil, err
	}
	if cfg.MentionWindow.EndHour, err = intEnv("MENTION_WINDOW_END_HOUR", 14); err != nil {
		return nil, err
	}
	if cfg.DepartureCleanupInterval, err = durationEnv("DEPARTURE_CLEANUP_INTERVAL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RunOnStart, err = boolEnv("RUN_ON_START", true); err != nil {
		return nil, err
	}

	if cfg.NotifyAfterDays, err = intEnv("NOTIFY_AFTER_DAYS", 8); err != nil {
		return nil, err
	}
	if cfg.MentionRetentionDays, err = intEnv("MENTION_RETENTION_DAYS", 9); err != nil {
		return nil, err
	}
	if cfg.DepartureRetentionDays, err = intEnv("DEPARTURE_RETENTION_DAYS", 30); err != nil {
		return nil, err
	}

	if cfg.MessageDeleteDelay, err = durationEnv("MESSAGE_DELETE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}

	cfg.RoleDeleteReason = os.Getenv("ROLE_DELETE_REASON")
	if cfg.RoleDeleteReason == "" {
		cfg.RoleDeleteReason = defaultRoleDeleteReason
	}
	cfg.WelcomeMessage = os.Getenv("WELCOME_MESSAGE")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	w := c.MentionWindow
	if w.StartHour < 0 || w.EndHour > 24 || w.StartHour >= w.EndHour {
		return fmt.Errorf("invalid mention window %s", w)
	}
	if c.MentionInterval <= 0 {
		return fmt.Errorf("MENTION_INTERVAL must be positive")
	}
	if c.DepartureCleanupInterval <= 0 {
		return fmt.Errorf("DEPARTURE_CLEANUP_INTERVAL must be positive")
	}
	if c.NotifyAfterDays < 0 || c.DepartureRetentionDays < 0 {
		return fmt.Errorf("retention periods must not be negative")
	}
	// A mention must be delivered before its record is purged.
	if c.MentionRetentionDays <= c.NotifyAfterDays {
		return fmt.Errorf("MENTION_RETENTION_DAYS (%d) must be greater than NOTIFY_AFTER_DAYS (%d)",
			c.MentionRetentionDays, c.NotifyAfterDays)
	}
	if c.MessageDeleteDelay < 0 {
		return fmt.Errorf("MESSAGE_DELETE_DELAY must not be negative")
	}
	return nil
}

func intEnv(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
