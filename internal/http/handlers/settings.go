package handlers

import (
	"net/http"

	"crevid/internal/domain"
)

type settingsView struct {
	OpenAIModel       string  `json:"openai_model"`
	OpenAIMaxTokens   int     `json:"openai_max_tokens"`
	OpenAITemperature float64 `json:"openai_temperature"`
	GoFileRootFolder  string  `json:"gofile_root_folder"`
	RateLimitPerHour  int     `json:"rate_limit_per_hour"`
	MaxConcurrentJobs int     `json:"max_concurrent_jobs"`
	JobTimeoutMinutes int     `json:"job_timeout_minutes"`
	JobRetryAttempts  int     `json:"job_retry_attempts"`

	// Credentials are never echoed back; only their presence is reported.
	OpenAIConfigured bool `json:"openai_configured"`
	GoFileConfigured bool `json:"gofile_configured"`
	QStashConfigured bool `json:"qstash_configured"`
}

func settingsViewOf(s *domain.AppSettings) settingsView {
	return settingsView{
		OpenAIModel:       s.OpenAIModel,
		OpenAIMaxTokens:   s.OpenAIMaxTokens,
		OpenAITemperature: s.OpenAITemperature,
		GoFileRootFolder:  s.GoFileRootFolder,
		RateLimitPerHour:  s.RateLimitPerHour,
		MaxConcurrentJobs: s.MaxConcurrentJobs,
		JobTimeoutMinutes: s.JobTimeoutMinutes,
		JobRetryAttempts:  s.JobRetryAttempts,
		OpenAIConfigured:  s.OpenAIAPIKey != "",
		GoFileConfigured:  s.GoFileToken != "",
		QStashConfigured:  s.QStashToken != "",
	}
}

// GetSettings returns the current settings with credentials masked.
func (a *App) GetSettings(w http.ResponseWriter, r *http.Request) {
	row, err := a.Settings.Get(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, settingsViewOf(row))
}

type updateSettingsRequest struct {
	OpenAIAPIKey      *string  `json:"openai_api_key"`
	OpenAIModel       *string  `json:"openai_model"`
	OpenAIMaxTokens   *int     `json:"openai_max_tokens"`
	OpenAITemperature *float64 `json:"openai_temperature"`

	GoFileToken      *string `json:"gofile_token"`
	GoFileRootFolder *string `json:"gofile_root_folder"`

	QStashToken             *string `json:"qstash_token"`
	QStashCurrentSigningKey *string `json:"qstash_current_signing_key"`
	QStashNextSigningKey    *string `json:"qstash_next_signing_key"`

	RateLimitPerHour  *int `json:"rate_limit_per_hour"`
	MaxConcurrentJobs *int `json:"max_concurrent_jobs"`
	JobTimeoutMinutes *int `json:"job_timeout_minutes"`
	JobRetryAttempts  *int `json:"job_retry_attempts"`
}

// UpdateSettings applies a partial settings change.
func (a *App) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req updateSettingsRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}

	updated, err := a.Settings.Update(r.Context(), domain.AppSettingsPatch{
		OpenAIAPIKey:            req.OpenAIAPIKey,
		OpenAIModel:             req.OpenAIModel,
		OpenAIMaxTokens:         req.OpenAIMaxTokens,
		OpenAITemperature:       req.OpenAITemperature,
		GoFileToken:             req.GoFileToken,
		GoFileRootFolder:        req.GoFileRootFolder,
		QStashToken:             req.QStashToken,
		QStashCurrentSigningKey: req.QStashCurrentSigningKey,
		QStashNextSigningKey:    req.QStashNextSigningKey,
		RateLimitPerHour:        req.RateLimitPerHour,
		MaxConcurrentJobs:       req.MaxConcurrentJobs,
		JobTimeoutMinutes:       req.JobTimeoutMinutes,
		JobRetryAttempts:        req.JobRetryAttempts,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, settingsViewOf(updated))
}

// ResetSettings restores defaults, reseeding credentials from the process
// environment.
func (a *App) ResetSettings(w http.ResponseWriter, r *http.Request) {
	defaults := domain.DefaultSettings(
		a.Config.OpenAIAPIKey,
		a.Config.GoFileToken,
		a.Config.QStashToken,
		a.Config.QStashCurrentSigningKey,
		a.Config.QStashNextSigningKey,
	)
	if err := a.Settings.Reset(r.Context(), defaults); err != nil {
		a.fail(w, err)
		return
	}
	row, err := a.Settings.Get(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, settingsViewOf(row))
}
