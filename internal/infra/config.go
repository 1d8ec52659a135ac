package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
// Only bootstrap concerns live here; operator-tunable values and third-party
// credentials are kept in the app_settings row and managed over the API.
type Config struct {
	AppEnv        string
	Port          string
	DatabaseURL   string
	RedisURL      string
	APIBaseURL    string
	EncryptionKey string

	// Env fallbacks used to seed the default settings row on first boot.
	OpenAIAPIKey            string
	GoFileToken             string
	QStashToken             string
	QStashCurrentSigningKey string
	QStashNextSigningKey    string
	QStashBaseURL           string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:                  getEnv("APP_ENV", "development"),
		Port:                    getEnv("PORT", "3001"),
		DatabaseURL:             os.Getenv("DATABASE_URL"),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379/0"),
		APIBaseURL:              getEnv("API_URL", "http://localhost:3001"),
		EncryptionKey:           os.Getenv("ENCRYPTION_KEY"),
		OpenAIAPIKey:            os.Getenv("OPENAI_API_KEY"),
		GoFileToken:             os.Getenv("GOFILE_API_TOKEN"),
		QStashToken:             os.Getenv("QSTASH_TOKEN"),
		QStashCurrentSigningKey: os.Getenv("QSTASH_CURRENT_SIGNING_KEY"),
		QStashNextSigningKey:    os.Getenv("QSTASH_NEXT_SIGNING_KEY"),
		QStashBaseURL:           getEnv("QSTASH_URL", "https://qstash.upstash.io"),
		HTTPReadTimeout:         time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:        time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 60)),
		HTTPIdleTimeout:         time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.EncryptionKey == "" && cfg.AppEnv != "development" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required outside development")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
