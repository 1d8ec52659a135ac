package domain

import "time"

// SettingsID is the key of the singleton app_settings row.
const SettingsID = "default"

// AppSettings is the process-wide configuration record. Secret fields are
// stored encrypted at rest; the settings service decrypts them on read.
type AppSettings struct {
	ID string

	OpenAIAPIKey      string
	OpenAIModel       string
	OpenAIMaxTokens   int
	OpenAITemperature float64

	GoFileToken      string
	GoFileRootFolder string

	QStashToken             string
	QStashCurrentSigningKey string
	QStashNextSigningKey    string

	RateLimitPerHour  int
	MaxConcurrentJobs int
	JobTimeoutMinutes int
	JobRetryAttempts  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppSettingsPatch carries a partial settings update. Nil fields are left
// untouched; non-nil empty secret strings clear the stored value.
type AppSettingsPatch struct {
	OpenAIAPIKey      *string
	OpenAIModel       *string
	OpenAIMaxTokens   *int
	OpenAITemperature *float64

	GoFileToken      *string
	GoFileRootFolder *string

	QStashToken             *string
	QStashCurrentSigningKey *string
	QStashNextSigningKey    *string

	RateLimitPerHour  *int
	MaxConcurrentJobs *int
	JobTimeoutMinutes *int
	JobRetryAttempts  *int
}

// DefaultSettings returns the seed row written on first boot. Secrets default
// to the provided env fallbacks (already encrypted by the caller when set).
func DefaultSettings(openAIKey, gofileToken, qstashToken, qstashCurrentKey, qstashNextKey string) *AppSettings {
	return &AppSettings{
		ID:                      SettingsID,
		OpenAIAPIKey:            openAIKey,
		OpenAIModel:             "gpt-4o",
		OpenAIMaxTokens:         2000,
		OpenAITemperature:       0.7,
		GoFileToken:             gofileToken,
		GoFileRootFolder:        "CREVID_Content",
		QStashToken:             qstashToken,
		QStashCurrentSigningKey: qstashCurrentKey,
		QStashNextSigningKey:    qstashNextKey,
		RateLimitPerHour:        100,
		MaxConcurrentJobs:       5,
		JobTimeoutMinutes:       10,
		JobRetryAttempts:        3,
	}
}
