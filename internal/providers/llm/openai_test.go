package llm

import (
	"context"
	"encoding/json"
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
	apiKey string
}

func (s *staticSettings) Get(ctx context.Context) (*domain.AppSettings, error) {
	return domain.DefaultSettings(s.apiKey, "", "", "", ""), nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newTestClient(t *testing.T, serverURL, apiKey string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(Options{
		BaseURL:  serverURL,
		Settings: &staticSettings{apiKey: apiKey},
		Logger:   zerolog.New(io.Discard),
		Backoff:  retry.Backoff{Attempts: 2, BaseDelay: time.Millisecond, Sleep: noSleep},
	})
	require.NoError(t, err)
	return client
}

func chatReply(content string) string {
	body, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"content": content}},
		},
	})
	return string(body)
}

func TestGenerateContentParsesStructuredReply(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		io.WriteString(w, chatReply(`{
			"title": "Five Deep Sea Facts",
			"description": "Dive in. #ocean",
			"scenes": [
				{"id": 1, "text": "The abyss begins.", "mediaPrompt": "dark ocean descent"},
				{"text": "Anglerfish glow."}
			]
		}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "sk-test")
	got, err := client.GenerateContent(context.Background(), ContentRequest{Mode: "topic", Input: "deep sea"})
	require.NoError(t, err)

	require.Equal(t, "gpt-4o", gotReq.Model)
	require.Equal(t, 2000, gotReq.MaxTokens)
	require.NotNil(t, gotReq.ResponseFormat)
	require.Equal(t, "json_object", gotReq.ResponseFormat.Type)

	require.Equal(t, "Five Deep Sea Facts", got.Title)
	require.Len(t, got.Scenes, 2)
	// missing scene fields are normalized from position and narration text
	require.Equal(t, 2, got.Scenes[1].ID)
	require.Equal(t, "Anglerfish glow.", got.Scenes[1].MediaPrompt)
}

func TestGenerateContentRejectsIncompleteReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatReply(`{"title": "Only a title"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "sk-test")
	_, err := client.GenerateContent(context.Background(), ContentRequest{Mode: "topic", Input: "x"})
	require.ErrorIs(t, err, domain.ErrCollaborator)
}

func TestGenerateContentRetriesServerErrors(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		io.WriteString(w, chatReply(`{"title":"T","description":"D","scenes":[{"id":1,"text":"s"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "sk-test")
	got, err := client.GenerateContent(context.Background(), ContentRequest{Mode: "topic", Input: "x"})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
	require.Equal(t, "T", got.Title)
}

func TestGenerateContentWithoutKeyFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("should not reach the model without an api key")
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "")
	_, err := client.GenerateContent(context.Background(), ContentRequest{Mode: "topic", Input: "x"})
	require.ErrorIs(t, err, domain.ErrCollaborator)
}

func TestGenerateMediaPrompt(t *testing.T) {
	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		io.WriteString(w, chatReply("  cinematic wide shot of a glowing reef  "))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "sk-test")
	prompt, err := client.GenerateMediaPrompt(context.Background(), "The reef glows at night.", "cinematic")
	require.NoError(t, err)
	require.Equal(t, "cinematic wide shot of a glowing reef", prompt)
	require.Equal(t, mediaPromptModel, gotReq.Model)
	require.Nil(t, gotReq.ResponseFormat)
}

func TestGenerateMediaPromptFallsBackToSceneText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatReply("   "))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL, "sk-test")
	prompt, err := client.GenerateMediaPrompt(context.Background(), "The reef glows at night.", "")
	require.NoError(t, err)
	require.Equal(t, "The reef glows at night.", prompt)
}
