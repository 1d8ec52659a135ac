package settings

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"crevid/internal/domain"
	"crevid/internal/infra/secrets"
)

type memSettingsRepo struct {
	row  *domain.AppSettings
	gets int
}

func (m *memSettingsRepo) Get(ctx context.Context) (*domain.AppSettings, error) {
	m.gets++
	if m.row == nil {
		return nil, domain.ErrNotFound
	}
	out := *m.row
	return &out, nil
}

func (m *memSettingsRepo) Update(ctx context.Context, patch domain.AppSettingsPatch) (*domain.AppSettings, error) {
	if patch.OpenAIAPIKey != nil {
		m.row.OpenAIAPIKey = *patch.OpenAIAPIKey
	}
	if patch.OpenAIModel != nil {
		m.row.OpenAIModel = *patch.OpenAIModel
	}
	if patch.OpenAIMaxTokens != nil {
		m.row.OpenAIMaxTokens = *patch.OpenAIMaxTokens
	}
	if patch.RateLimitPerHour != nil {
		m.row.RateLimitPerHour = *patch.RateLimitPerHour
	}
	out := *m.row
	return &out, nil
}

func (m *memSettingsRepo) Replace(ctx context.Context, s *domain.AppSettings) error {
	row := *s
	m.row = &row
	return nil
}

func (m *memSettingsRepo) EnsureDefault(ctx context.Context, defaults *domain.AppSettings) error {
	if m.row == nil {
		row := *defaults
		m.row = &row
	}
	return nil
}

func newTestService(t *testing.T, row *domain.AppSettings) (*Service, *memSettingsRepo) {
	t.Helper()
	box, err := secrets.NewBox("settings-test-key")
	require.NoError(t, err)
	repo := &memSettingsRepo{row: row}
	return NewService(repo, box, zerolog.New(io.Discard)), repo
}

func baseRow() *domain.AppSettings {
	return domain.DefaultSettings("", "", "", "", "")
}

func TestGetCachesUntilInvalidated(t *testing.T) {
	svc, repo := newTestService(t, baseRow())
	ctx := context.Background()

	first, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "gpt-4o", first.OpenAIModel)

	for i := 0; i < 5; i++ {
		_, err := svc.Get(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, 1, repo.gets)

	svc.Invalidate()
	_, err = svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, repo.gets)
}

func TestUpdateEncryptsSecretsAndRefreshesCache(t *testing.T) {
	svc, repo := newTestService(t, baseRow())
	ctx := context.Background()

	key := "sk-live-key"
	model := "gpt-4o-mini"
	out, err := svc.Update(ctx, domain.AppSettingsPatch{OpenAIAPIKey: &key, OpenAIModel: &model})
	require.NoError(t, err)

	// Stored encrypted, returned decrypted.
	require.NotEqual(t, key, repo.row.OpenAIAPIKey)
	require.Contains(t, repo.row.OpenAIAPIKey, ":")
	require.Equal(t, key, out.OpenAIAPIKey)
	require.Equal(t, model, out.OpenAIModel)

	cached, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, key, cached.OpenAIAPIKey)
}

func TestUpdateValidation(t *testing.T) {
	svc, _ := newTestService(t, baseRow())
	ctx := context.Background()

	tooMany := 9001
	_, err := svc.Update(ctx, domain.AppSettingsPatch{OpenAIMaxTokens: &tooMany})
	require.ErrorIs(t, err, domain.ErrValidation)

	badTemp := 2.5
	_, err = svc.Update(ctx, domain.AppSettingsPatch{OpenAITemperature: &badTemp})
	require.ErrorIs(t, err, domain.ErrValidation)

	zero := 0
	_, err = svc.Update(ctx, domain.AppSettingsPatch{RateLimitPerHour: &zero})
	require.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.Update(ctx, domain.AppSettingsPatch{MaxConcurrentJobs: &zero})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestResetReplacesRow(t *testing.T) {
	row := baseRow()
	row.OpenAIModel = "gpt-3.5-turbo"
	row.RateLimitPerHour = 7
	svc, repo := newTestService(t, row)
	ctx := context.Background()

	require.NoError(t, svc.Reset(ctx, domain.DefaultSettings("sk-env-key", "", "", "", "")))

	require.Equal(t, "gpt-4o", repo.row.OpenAIModel)
	require.Equal(t, 100, repo.row.RateLimitPerHour)
	require.NotEqual(t, "sk-env-key", repo.row.OpenAIAPIKey)

	out, err := svc.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "sk-env-key", out.OpenAIAPIKey)
}
