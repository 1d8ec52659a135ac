package dispatch

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"crevid/internal/domain"
	"crevid/internal/retry"
)

type staticSettings struct {
	token string
	err   error
}

func (s *staticSettings) Get(ctx context.Context) (*domain.AppSettings, error) {
	if s.err != nil {
		return nil, s.err
	}
	row := domain.DefaultSettings("", "", s.token, "", "")
	return row, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, serverURL, token string) *QStashClient {
	t.Helper()
	client, err := NewQStashClient(Options{
		BaseURL:   serverURL,
		TargetURL: "http://api.internal:3001",
		Settings:  &staticSettings{token: token},
		Logger:    zerolog.New(io.Discard),
		Backoff:   retry.Backoff{Attempts: 2, BaseDelay: time.Millisecond, Sleep: noSleep},
	})
	require.NoError(t, err)
	return client
}

func TestPublishSendsEndpointAndOptions(t *testing.T) {
	var gotPath, gotAuth, gotDelay, gotRetries string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotDelay = r.Header.Get("Upstash-Delay")
		gotRetries = r.Header.Get("Upstash-Retries")
		gotBody, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"messageId":"msg-123"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "qstash-token")
	result, err := client.Publish(context.Background(), "/api/workers/media-generation",
		map[string]any{"job_id": "j1"}, PublishOptions{DelaySeconds: 2, Retries: 3})
	require.NoError(t, err)
	require.Equal(t, "msg-123", result.MessageID)

	require.Equal(t, "/v2/publish/http://api.internal:3001/api/workers/media-generation", gotPath)
	require.Equal(t, "Bearer qstash-token", gotAuth)
	require.Equal(t, "2s", gotDelay)
	require.Equal(t, "3", gotRetries)
	require.JSONEq(t, `{"job_id":"j1"}`, string(gotBody))
}

func TestPublishWithoutTokenFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not reach the queue without a token")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "")
	_, err := client.Publish(context.Background(), "/api/workers/media-generation", nil, PublishOptions{})
	require.ErrorIs(t, err, domain.ErrCollaborator)
}

func TestPublishRetriesTransportErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"messageId":"msg-retry"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "qstash-token")
	result, err := client.Publish(context.Background(), "/api/workers/tts-generation", nil, PublishOptions{})
	require.NoError(t, err)
	require.Equal(t, "msg-retry", result.MessageID)
	require.Equal(t, 2, calls)
}

func TestPublishExhaustedPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "qstash-token")
	_, err := client.Publish(context.Background(), "/api/workers/tts-generation", nil, PublishOptions{})
	require.ErrorIs(t, err, domain.ErrCollaborator)
}

func TestCancel(t *testing.T) {
	var gotMethod, gotPath string
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(status)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "qstash-token")
	require.True(t, client.Cancel(context.Background(), "msg-123"))
	require.Equal(t, http.MethodDelete, gotMethod)
	require.Equal(t, "/v2/messages/msg-123", gotPath)

	status = http.StatusNotFound
	require.False(t, client.Cancel(context.Background(), "msg-404"))
}

func TestCancelWithoutTokenReturnsFalse(t *testing.T) {
	client := newTestClient(t, "http://unused", "")
	require.False(t, client.Cancel(context.Background(), "msg-123"))
}
