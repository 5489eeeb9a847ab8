package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds the configuration for the application.
type Config struct {
	BackendBaseURL string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64

	// Local persistence
	DatabasePath string

	// Planning defaults sent to the backend
	UserName     string
	UserEmail    string
	PlanningDays int
	UserTimezone string

	// LegacyBatchConsent reviews all proposals in one consent instead of
	// day by day.
	LegacyBatchConsent bool
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	backendURL := os.Getenv("BACKEND_BASE_URL")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_BASE_URL environment variable not set")
	}
	backendURL = strings.TrimRight(backendURL, "/")

	telegramBotToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	if telegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}

	telegramWebhookURL := os.Getenv("TELEGRAM_WEBHOOK_URL")
	if telegramWebhookURL == "" {
		return nil, fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}

	allowedIDs, err := ParseAllowedIDs(os.Getenv("TELEGRAM_ALLOWED_USER_IDS"))
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_ALLOWED_USER_IDS: %w", err)
	}

	databasePath := os.Getenv("DATABASE_PATH")
	if databasePath == "" {
		databasePath = "data/wellness.db"
	}

	planningDays := 7
	if v := os.Getenv("PLANNING_DAYS"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 1 {
			return nil, fmt.Errorf("invalid PLANNING_DAYS: %q", v)
		}
		planningDays = d
	}

	userTimezone := os.Getenv("USER_TIMEZONE")
	if userTimezone == "" {
		userTimezone = "Asia/Singapore"
	}

	return &Config{
		BackendBaseURL:         backendURL,
		TelegramBotToken:       telegramBotToken,
		TelegramWebhookURL:     telegramWebhookURL,
		TelegramAllowedUserIDs: allowedIDs,
		DatabasePath:           databasePath,
		UserName:               os.Getenv("USER_NAME"),
		UserEmail:              os.Getenv("USER_EMAIL"),
		PlanningDays:           planningDays,
		UserTimezone:           userTimezone,
		LegacyBatchConsent:     os.Getenv("LEGACY_BATCH_CONSENT") == "true",
	}, nil
}

// ParseAllowedIDs parses a comma-separated list of Telegram user IDs.
func ParseAllowedIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("not a user id: %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
