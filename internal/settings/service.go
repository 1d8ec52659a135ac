// Package settings exposes the singleton app settings through an in-memory
// cache that is invalidated on every write, so collaborators do not hit
// storage on each call.
package settings

import (
	"context"
	"fmt"
	"sync"

	"crevid/internal/domain"
	"crevid/internal/infra"
)

// Cipher is the reversible secret wrapper used for credential fields.
type Cipher interface {
	Encrypt(plain string) (string, error)
	Decrypt(token string) string
}

// Service mediates all reads and writes of the app settings row. Reads return
// decrypted credentials; writes encrypt them before storage.
type Service struct {
	repo   domain.SettingsRepository
	box    Cipher
	logger infra.Logger

	mu     sync.RWMutex
	cached *domain.AppSettings
}

// NewService creates a settings service.
func NewService(repo domain.SettingsRepository, box Cipher, logger infra.Logger) *Service {
	return &Service{repo: repo, box: box, logger: logger}
}

// Get returns the current settings with secrets decrypted. The result is a
// copy; callers may not mutate shared state through it.
func (s *Service) Get(ctx context.Context) (*domain.AppSettings, error) {
	s.mu.RLock()
	if s.cached != nil {
		out := *s.cached
		s.mu.RUnlock()
		return &out, nil
	}
	s.mu.RUnlock()

	stored, err := s.repo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	decrypted := *stored
	decrypted.OpenAIAPIKey = s.box.Decrypt(stored.OpenAIAPIKey)
	decrypted.GoFileToken = s.box.Decrypt(stored.GoFileToken)
	decrypted.QStashToken = s.box.Decrypt(stored.QStashToken)
	decrypted.QStashCurrentSigningKey = s.box.Decrypt(stored.QStashCurrentSigningKey)
	decrypted.QStashNextSigningKey = s.box.Decrypt(stored.QStashNextSigningKey)

	s.mu.Lock()
	s.cached = &decrypted
	s.mu.Unlock()

	out := decrypted
	return &out, nil
}

// Update validates and applies a partial settings update, encrypting any
// secret fields present, then drops the cached copy.
func (s *Service) Update(ctx context.Context, patch domain.AppSettingsPatch) (*domain.AppSettings, error) {
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	if err := s.encryptPatch(&patch); err != nil {
		return nil, fmt.Errorf("encrypt settings: %w", err)
	}

	if _, err := s.repo.Update(ctx, patch); err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	s.Invalidate()
	s.logger.Info().Msg("settings updated")
	return s.Get(ctx)
}

// Reset overwrites the row with the given defaults (secrets encrypted here)
// and drops the cached copy.
func (s *Service) Reset(ctx context.Context, defaults *domain.AppSettings) error {
	row := *defaults
	var err error
	if row.OpenAIAPIKey, err = s.encryptIfSet(row.OpenAIAPIKey); err != nil {
		return err
	}
	if row.GoFileToken, err = s.encryptIfSet(row.GoFileToken); err != nil {
		return err
	}
	if row.QStashToken, err = s.encryptIfSet(row.QStashToken); err != nil {
		return err
	}
	if row.QStashCurrentSigningKey, err = s.encryptIfSet(row.QStashCurrentSigningKey); err != nil {
		return err
	}
	if row.QStashNextSigningKey, err = s.encryptIfSet(row.QStashNextSigningKey); err != nil {
		return err
	}

	if err := s.repo.Replace(ctx, &row); err != nil {
		return fmt.Errorf("reset settings: %w", err)
	}
	s.Invalidate()
	s.logger.Info().Msg("settings reset to defaults")
	return nil
}

// EnsureDefault seeds the settings row on first boot.
func (s *Service) EnsureDefault(ctx context.Context, defaults *domain.AppSettings) error {
	row := *defaults
	var err error
	if row.OpenAIAPIKey, err = s.encryptIfSet(row.OpenAIAPIKey); err != nil {
		return err
	}
	if row.GoFileToken, err = s.encryptIfSet(row.GoFileToken); err != nil {
		return err
	}
	if row.QStashToken, err = s.encryptIfSet(row.QStashToken); err != nil {
		return err
	}
	if row.QStashCurrentSigningKey, err = s.encryptIfSet(row.QStashCurrentSigningKey); err != nil {
		return err
	}
	if row.QStashNextSigningKey, err = s.encryptIfSet(row.QStashNextSigningKey); err != nil {
		return err
	}
	return s.repo.EnsureDefault(ctx, &row)
}

// Invalidate drops the in-memory copy; the next Get reloads from storage.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

func (s *Service) encryptPatch(patch *domain.AppSettingsPatch) error {
	for _, field := range []**string{
		&patch.OpenAIAPIKey,
		&patch.GoFileToken,
		&patch.QStashToken,
		&patch.QStashCurrentSigningKey,
		&patch.QStashNextSigningKey,
	} {
		if *field == nil || **field == "" {
			continue
		}
		token, err := s.box.Encrypt(**field)
		if err != nil {
			return err
		}
		*field = &token
	}
	return nil
}

func (s *Service) encryptIfSet(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	return s.box.Encrypt(v)
}

func validatePatch(patch domain.AppSettingsPatch) error {
	if patch.OpenAIMaxTokens != nil && (*patch.OpenAIMaxTokens < 1 || *patch.OpenAIMaxTokens > 8000) {
		return fmt.Errorf("%w: max tokens must be between 1 and 8000", domain.ErrValidation)
	}
	if patch.OpenAITemperature != nil && (*patch.OpenAITemperature < 0 || *patch.OpenAITemperature > 2) {
		return fmt.Errorf("%w: temperature must be between 0 and 2", domain.ErrValidation)
	}
	if patch.RateLimitPerHour != nil && *patch.RateLimitPerHour < 1 {
		return fmt.Errorf("%w: rate limit must be at least 1 request per hour", domain.ErrValidation)
	}
	if patch.MaxConcurrentJobs != nil && *patch.MaxConcurrentJobs < 1 {
		return fmt.Errorf("%w: max concurrent jobs must be at least 1", domain.ErrValidation)
	}
	if patch.JobTimeoutMinutes != nil && *patch.JobTimeoutMinutes < 1 {
		return fmt.Errorf("%w: job timeout must be at least 1 minute", domain.ErrValidation)
	}
	if patch.JobRetryAttempts != nil && *patch.JobRetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts must not be negative", domain.ErrValidation)
	}
	return nil
}
