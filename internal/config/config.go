package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath    string
	RecordStorePath string // file-based fallback when no database is used
	DefaultPlatform string
	Timezone        *time.Location

	// Caption generation (optional: captions are skipped when neither key
	// is set; Gemini wins when both are)
	GeminiAPIKey string
	GroqAPIKey   string

	// Publishing API (optional: publishing is skipped when unset)
	PublishAPIURL   string
	PublishAdminKey string // "id:secret" pair, hex secret

	// Posting window overrides, e.g. "instagram=09:00-18:00,linkedin=07:00-16:00"
	PostingWindows map[string][2]string

	// Telegram Config (required for the bot binary only)
	TelegramBotToken    string
	TelegramWebhookURL  string
	TelegramAllowUserID int64
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	dbPath := os.Getenv("DATABASE_PATH")
	storePath := os.Getenv("RECORD_STORE_PATH")
	if dbPath == "" && storePath == "" {
		return nil, fmt.Errorf("neither DATABASE_PATH nor RECORD_STORE_PATH environment variable is set")
	}

	platform := os.Getenv("DEFAULT_PLATFORM")
	if platform == "" {
		platform = "instagram"
	}

	tzName := os.Getenv("BUSINESS_TIMEZONE")
	if tzName == "" {
		tzName = "America/New_York"
	}
	tz, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("invalid BUSINESS_TIMEZONE %q: %w", tzName, err)
	}

	windows, err := parseWindowOverrides(os.Getenv("POSTING_WINDOWS"))
	if err != nil {
		return nil, err
	}

	// Telegram Config (optional for CLI, required for Bot)
	var telegramAllowUserID int64
	if raw := os.Getenv("TELEGRAM_ALLOW_USER_ID"); raw != "" {
		telegramAllowUserID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_ALLOW_USER_ID %q: %w", raw, err)
		}
	}

	return &Config{
		DatabasePath:        dbPath,
		RecordStorePath:     storePath,
		DefaultPlatform:     platform,
		Timezone:            tz,
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GroqAPIKey:          os.Getenv("GROQ_API_KEY"),
		PublishAPIURL:       os.Getenv("PUBLISH_API_URL"),
		PublishAdminKey:     os.Getenv("PUBLISH_ADMIN_KEY"),
		PostingWindows:      windows,
		TelegramBotToken:    os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL:  os.Getenv("TELEGRAM_WEBHOOK_URL"),
		TelegramAllowUserID: telegramAllowUserID,
	}, nil
}

// parseWindowOverrides parses "platform=HH:MM-HH:MM" pairs separated by
// commas.
func parseWindowOverrides(raw string) (map[string][2]string, error) {
	out := make(map[string][2]string)
	if raw == "" {
		return out, nil
	}
	for _, pair := range strings.Split(raw, ",") {
		name, span, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return nil, fmt.Errorf("invalid POSTING_WINDOWS entry %q", pair)
		}
		earliest, latest, ok := strings.Cut(span, "-")
		if !ok {
			return nil, fmt.Errorf("invalid POSTING_WINDOWS span %q for %q", span, name)
		}
		out[strings.TrimSpace(name)] = [2]string{strings.TrimSpace(earliest), strings.TrimSpace(latest)}
	}
	return out, nil
}
