package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"crevid/internal/domain"
	"crevid/internal/infra"
	"crevid/internal/retry"
)

const qstashDefaultTimeout = 15 * time.Second

// Settings supplies the dispatcher credentials at call time, so token rotation
// through the settings API takes effect without a restart.
type Settings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// Options controls how the QStash client is configured.
type Options struct {
	BaseURL    string
	TargetURL  string
	Settings   Settings
	HTTPClient *http.Client
	Logger     infra.Logger
	Backoff    retry.Backoff
}

// QStashClient implements Dispatcher against the QStash HTTP API. Messages
// are published to {TargetURL}{endpoint}, which QStash later POSTs back to
// with at-least-once delivery.
type QStashClient struct {
	baseURL   string
	targetURL string
	settings  Settings
	client    *http.Client
	logger    infra.Logger
	backoff   retry.Backoff
}

// NewQStashClient constructs a QStash dispatcher client.
func NewQStashClient(opts Options) (*QStashClient, error) {
	if opts.Settings == nil {
		return nil, errors.New("dispatch: settings source is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://qstash.upstash.io"
	}
	targetURL := strings.TrimRight(opts.TargetURL, "/")
	if targetURL == "" {
		return nil, errors.New("dispatch: target url is required")
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: qstashDefaultTimeout}
	}
	backoff := opts.Backoff
	if backoff.Attempts == 0 {
		backoff = retry.Backoff{Attempts: 2, BaseDelay: time.Second}
	}
	return &QStashClient{
		baseURL:   baseURL,
		targetURL: targetURL,
		settings:  opts.Settings,
		client:    client,
		logger:    opts.Logger,
		backoff:   backoff,
	}, nil
}

type publishResponse struct {
	MessageID string `json:"messageId"`
}

// Publish enqueues payload for delivery to endpoint on this service.
func (q *QStashClient) Publish(ctx context.Context, endpoint string, payload any, opts PublishOptions) (*Result, error) {
	settings, err := q.settings.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("dispatch: load settings: %w", err)
	}
	token := strings.TrimSpace(settings.QStashToken)
	if token == "" {
		return nil, fmt.Errorf("%w: dispatch token not configured", domain.ErrCollaborator)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("dispatch: encode payload: %w", err)
	}

	q.logger.Info().
		Str("endpoint", endpoint).
		Int("delay_seconds", opts.DelaySeconds).
		Int("retries", opts.Retries).
		Msg("publishing job to dispatcher")

	result, err := retry.Do(ctx, q.backoff, func(ctx context.Context) (*Result, error) {
		return q.publishOnce(ctx, token, endpoint, body, opts)
	})
	if err != nil {
		q.logger.Error().Err(err).Str("endpoint", endpoint).Msg("dispatch publish failed")
		return nil, err
	}

	q.logger.Info().Str("message_id", result.MessageID).Msg("job published")
	return result, nil
}

func (q *QStashClient) publishOnce(ctx context.Context, token, endpoint string, body []byte, opts PublishOptions) (*Result, error) {
	url := fmt.Sprintf("%s/v2/publish/%s%s", q.baseURL, q.targetURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	if opts.DelaySeconds > 0 {
		req.Header.Set("Upstash-Delay", strconv.Itoa(opts.DelaySeconds)+"s")
	}
	if opts.Retries > 0 {
		req.Header.Set("Upstash-Retries", strconv.Itoa(opts.Retries))
	}

	resp, err := q.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCollaborator, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: dispatcher status %d: %s", domain.ErrCollaborator, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed publishResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode dispatcher response: %v", domain.ErrCollaborator, err)
	}
	if parsed.MessageID == "" {
		return nil, fmt.Errorf("%w: dispatcher returned no message id", domain.ErrCollaborator)
	}
	return &Result{MessageID: parsed.MessageID}, nil
}

// Cancel asks the queue to drop a pending message. In-flight deliveries may
// still land; callers only get a boolean so cancel flows never fail on queue
// trouble.
func (q *QStashClient) Cancel(ctx context.Context, messageID string) bool {
	settings, err := q.settings.Get(ctx)
	if err != nil {
		q.logger.Warn().Err(err).Msg("dispatch cancel: load settings failed")
		return false
	}
	token := strings.TrimSpace(settings.QStashToken)
	if token == "" {
		return false
	}

	url := fmt.Sprintf("%s/v2/messages/%s", q.baseURL, messageID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := q.client.Do(req)
	if err != nil {
		q.logger.Warn().Err(err).Str("message_id", messageID).Msg("dispatch cancel failed")
		return false
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 300 {
		q.logger.Warn().Int("status", resp.StatusCode).Str("message_id", messageID).Msg("dispatch cancel rejected")
		return false
	}
	return true
}
