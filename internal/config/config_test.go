package config

import (
	"os"
	"testing"
)

func TestNewFromEnv(t *testing.T) {
	setAll := func(t *testing.T) {
		t.Helper()
		t.Setenv("BACKEND_BASE_URL", "http://localhost:8081")
		t.Setenv("TELEGRAM_BOT_TOKEN", "bot_token")
		t.Setenv("TELEGRAM_WEBHOOK_URL", "https://bot.test/webhook")
	}

	t.Run("Success", func(t *testing.T) {
		setAll(t)
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "123, 456")
		t.Setenv("PLANNING_DAYS", "5")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.BackendBaseURL != "http://localhost:8081" {
			t.Errorf("Expected BackendBaseURL 'http://localhost:8081', got '%s'", cfg.BackendBaseURL)
		}
		if len(cfg.TelegramAllowedUserIDs) != 2 || cfg.TelegramAllowedUserIDs[1] != 456 {
			t.Errorf("Expected allowed IDs [123 456], got %v", cfg.TelegramAllowedUserIDs)
		}
		if cfg.PlanningDays != 5 {
			t.Errorf("Expected PlanningDays 5, got %d", cfg.PlanningDays)
		}
	})

	t.Run("TrailingSlashTrimmed", func(t *testing.T) {
		setAll(t)
		t.Setenv("BACKEND_BASE_URL", "http://localhost:8081/")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.BackendBaseURL != "http://localhost:8081" {
			t.Errorf("Expected trailing slash trimmed, got '%s'", cfg.BackendBaseURL)
		}
	})

	t.Run("Defaults", func(t *testing.T) {
		setAll(t)

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if cfg.DatabasePath != "data/wellness.db" {
			t.Errorf("Expected default database path, got '%s'", cfg.DatabasePath)
		}
		if cfg.PlanningDays != 7 {
			t.Errorf("Expected default planning days 7, got %d", cfg.PlanningDays)
		}
		if cfg.UserTimezone != "Asia/Singapore" {
			t.Errorf("Expected default timezone, got '%s'", cfg.UserTimezone)
		}
		if cfg.LegacyBatchConsent {
			t.Error("Expected legacy batch consent to default to false")
		}
	})

	t.Run("LegacyBatchConsent", func(t *testing.T) {
		setAll(t)
		t.Setenv("LEGACY_BATCH_CONSENT", "true")

		cfg, err := NewFromEnv()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if !cfg.LegacyBatchConsent {
			t.Error("Expected legacy batch consent to be enabled")
		}
	})

	t.Run("MissingBackendURL", func(t *testing.T) {
		setAll(t)
		os.Unsetenv("BACKEND_BASE_URL")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing BACKEND_BASE_URL, got nil")
		}
		expectedError := "BACKEND_BASE_URL environment variable not set"
		if err.Error() != expectedError {
			t.Errorf("Expected error '%s', got '%s'", expectedError, err.Error())
		}
	})

	t.Run("MissingBotToken", func(t *testing.T) {
		setAll(t)
		os.Unsetenv("TELEGRAM_BOT_TOKEN")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for missing TELEGRAM_BOT_TOKEN, got nil")
		}
	})

	t.Run("BadAllowedIDs", func(t *testing.T) {
		setAll(t)
		t.Setenv("TELEGRAM_ALLOWED_USER_IDS", "123,abc")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for malformed allowed IDs, got nil")
		}
	})

	t.Run("BadPlanningDays", func(t *testing.T) {
		setAll(t)
		t.Setenv("PLANNING_DAYS", "0")

		_, err := NewFromEnv()
		if err == nil {
			t.Fatal("Expected an error for PLANNING_DAYS=0, got nil")
		}
	})
}
