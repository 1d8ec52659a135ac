package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crevid/internal/domain"
)

// SettingsRepositoryPG implements domain.SettingsRepository over the singleton
// app_settings row.
type SettingsRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository creates a new settings repository backed by PostgreSQL.
func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepositoryPG {
	return &SettingsRepositoryPG{pool: pool}
}

const settingsColumns = `id, openai_api_key, openai_model, openai_max_tokens, openai_temperature,
gofile_token, gofile_root_folder, qstash_token, qstash_current_signing_key, qstash_next_signing_key,
rate_limit_per_hour, max_concurrent_jobs, job_timeout_minutes, job_retry_attempts, created_at, updated_at`

// Get returns the settings row.
func (r *SettingsRepositoryPG) Get(ctx context.Context) (*domain.AppSettings, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM app_settings WHERE id = $1;`, domain.SettingsID)
	return scanSettings(row)
}

// Update applies a partial update and returns the new row. Nil patch fields
// keep the stored value.
func (r *SettingsRepositoryPG) Update(ctx context.Context, patch domain.AppSettingsPatch) (*domain.AppSettings, error) {
	query := `
UPDATE app_settings
SET openai_api_key = COALESCE($2, openai_api_key),
    openai_model = COALESCE($3, openai_model),
    openai_max_tokens = COALESCE($4, openai_max_tokens),
    openai_temperature = COALESCE($5, openai_temperature),
    gofile_token = COALESCE($6, gofile_token),
    gofile_root_folder = COALESCE($7, gofile_root_folder),
    qstash_token = COALESCE($8, qstash_token),
    qstash_current_signing_key = COALESCE($9, qstash_current_signing_key),
    qstash_next_signing_key = COALESCE($10, qstash_next_signing_key),
    rate_limit_per_hour = COALESCE($11, rate_limit_per_hour),
    max_concurrent_jobs = COALESCE($12, max_concurrent_jobs),
    job_timeout_minutes = COALESCE($13, job_timeout_minutes),
    job_retry_attempts = COALESCE($14, job_retry_attempts),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + settingsColumns + `;
`
	row := r.pool.QueryRow(ctx, query,
		domain.SettingsID,
		patch.OpenAIAPIKey,
		patch.OpenAIModel,
		patch.OpenAIMaxTokens,
		patch.OpenAITemperature,
		patch.GoFileToken,
		patch.GoFileRootFolder,
		patch.QStashToken,
		patch.QStashCurrentSigningKey,
		patch.QStashNextSigningKey,
		patch.RateLimitPerHour,
		patch.MaxConcurrentJobs,
		patch.JobTimeoutMinutes,
		patch.JobRetryAttempts,
	)
	return scanSettings(row)
}

// Replace overwrites the whole row, used by the settings reset operation.
func (r *SettingsRepositoryPG) Replace(ctx context.Context, s *domain.AppSettings) error {
	query := `
UPDATE app_settings
SET openai_api_key = $2,
    openai_model = $3,
    openai_max_tokens = $4,
    openai_temperature = $5,
    gofile_token = $6,
    gofile_root_folder = $7,
    qstash_token = $8,
    qstash_current_signing_key = $9,
    qstash_next_signing_key = $10,
    rate_limit_per_hour = $11,
    max_concurrent_jobs = $12,
    job_timeout_minutes = $13,
    job_retry_attempts = $14,
    updated_at = NOW()
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		domain.SettingsID,
		s.OpenAIAPIKey,
		s.OpenAIModel,
		s.OpenAIMaxTokens,
		s.OpenAITemperature,
		s.GoFileToken,
		s.GoFileRootFolder,
		s.QStashToken,
		s.QStashCurrentSigningKey,
		s.QStashNextSigningKey,
		s.RateLimitPerHour,
		s.MaxConcurrentJobs,
		s.JobTimeoutMinutes,
		s.JobRetryAttempts,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EnsureDefault seeds the singleton row when it does not exist yet.
func (r *SettingsRepositoryPG) EnsureDefault(ctx context.Context, defaults *domain.AppSettings) error {
	query := `
INSERT INTO app_settings (
    id, openai_api_key, openai_model, openai_max_tokens, openai_temperature,
    gofile_token, gofile_root_folder, qstash_token, qstash_current_signing_key, qstash_next_signing_key,
    rate_limit_per_hour, max_concurrent_jobs, job_timeout_minutes, job_retry_attempts
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (id) DO NOTHING;
`
	_, err := r.pool.Exec(ctx, query,
		defaults.ID,
		defaults.OpenAIAPIKey,
		defaults.OpenAIModel,
		defaults.OpenAIMaxTokens,
		defaults.OpenAITemperature,
		defaults.GoFileToken,
		defaults.GoFileRootFolder,
		defaults.QStashToken,
		defaults.QStashCurrentSigningKey,
		defaults.QStashNextSigningKey,
		defaults.RateLimitPerHour,
		defaults.MaxConcurrentJobs,
		defaults.JobTimeoutMinutes,
		defaults.JobRetryAttempts,
	)
	return err
}

func scanSettings(row pgx.Row) (*domain.AppSettings, error) {
	var s domain.AppSettings
	if err := row.Scan(
		&s.ID,
		&s.OpenAIAPIKey,
		&s.OpenAIModel,
		&s.OpenAIMaxTokens,
		&s.OpenAITemperature,
		&s.GoFileToken,
		&s.GoFileRootFolder,
		&s.QStashToken,
		&s.QStashCurrentSigningKey,
		&s.QStashNextSigningKey,
		&s.RateLimitPerHour,
		&s.MaxConcurrentJobs,
		&s.JobTimeoutMinutes,
		&s.JobRetryAttempts,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
