package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"crevid/internal/domain"
	"crevid/internal/infra"
	"crevid/internal/retry"
)

const (
	openAIDefaultTimeout = 60 * time.Second
	mediaPromptModel     = "gpt-3.5-turbo"
)

// Settings supplies credentials and generation tunables at call time.
type Settings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// Options controls how the OpenAI client is configured.
type Options struct {
	BaseURL    string
	Settings   Settings
	HTTPClient *http.Client
	Logger     infra.Logger
	Backoff    retry.Backoff
}

// OpenAIClient implements Generator against the chat completions API.
type OpenAIClient struct {
	baseURL  string
	settings Settings
	client   *http.Client
	logger   infra.Logger
	backoff  retry.Backoff
}

// NewOpenAIClient constructs an OpenAI-backed generator.
func NewOpenAIClient(opts Options) (*OpenAIClient, error) {
	if opts.Settings == nil {
		return nil, errors.New("llm: settings source is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: openAIDefaultTimeout}
	}
	backoff := opts.Backoff
	if backoff.Attempts == 0 {
		backoff = retry.Backoff{Attempts: 3, BaseDelay: 2 * time.Second}
	}
	return &OpenAIClient{
		baseURL:  baseURL,
		settings: opts.Settings,
		client:   client,
		logger:   opts.Logger,
		backoff:  backoff,
	}, nil
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	Temperature    float64       `json:"temperature,omitempty"`
	ResponseFormat *chatFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateContent asks the model for a full structured script and fails when
// no parseable structure comes back.
func (o *OpenAIClient) GenerateContent(ctx context.Context, req ContentRequest) (*GeneratedContent, error) {
	return retry.Do(ctx, o.backoff, func(ctx context.Context) (*GeneratedContent, error) {
		settings, err := o.settings.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("llm: load settings: %w", err)
		}
		apiKey := strings.TrimSpace(settings.OpenAIAPIKey)
		if apiKey == "" {
			return nil, fmt.Errorf("%w: openai api key not configured", domain.ErrCollaborator)
		}

		model := settings.OpenAIModel
		if model == "" {
			model = "gpt-4o"
		}

		o.logger.Info().
			Str("model", model).
			Str("mode", req.Mode).
			Int("max_tokens", settings.OpenAIMaxTokens).
			Msg("generating content")

		payload := chatRequest{
			Model:       model,
			MaxTokens:   settings.OpenAIMaxTokens,
			Temperature: settings.OpenAITemperature,
			ResponseFormat: &chatFormat{
				Type: "json_object",
			},
			Messages: []chatMessage{
				{Role: "system", Content: contentSystemPrompt(req.Presets)},
				{Role: "user", Content: contentUserPrompt(req)},
			},
		}

		raw, err := o.complete(ctx, apiKey, payload)
		if err != nil {
			return nil, err
		}

		var parsed GeneratedContent
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			return nil, fmt.Errorf("%w: invalid json from model: %v", domain.ErrCollaborator, err)
		}
		return normalizeContent(&parsed)
	})
}

// GenerateMediaPrompt turns one scene's narration into a short visual prompt.
// An empty model answer falls back to the scene text itself.
func (o *OpenAIClient) GenerateMediaPrompt(ctx context.Context, sceneText, presets string) (string, error) {
	backoff := retry.Backoff{Attempts: 2, BaseDelay: time.Second, Sleep: o.backoff.Sleep}
	return retry.Do(ctx, backoff, func(ctx context.Context) (string, error) {
		settings, err := o.settings.Get(ctx)
		if err != nil {
			return "", fmt.Errorf("llm: load settings: %w", err)
		}
		apiKey := strings.TrimSpace(settings.OpenAIAPIKey)
		if apiKey == "" {
			return "", fmt.Errorf("%w: openai api key not configured", domain.ErrCollaborator)
		}

		payload := chatRequest{
			Model:       mediaPromptModel,
			MaxTokens:   150,
			Temperature: 0.8,
			Messages: []chatMessage{
				{Role: "system", Content: mediaPromptSystemPrompt(presets)},
				{Role: "user", Content: fmt.Sprintf("Create a visual prompt for this scene: %q", sceneText)},
			},
		}

		raw, err := o.complete(ctx, apiKey, payload)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(raw) == "" {
			return sceneText, nil
		}
		return strings.TrimSpace(raw), nil
	})
}

func (o *OpenAIClient) complete(ctx context.Context, apiKey string, payload chatRequest) (string, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return "", fmt.Errorf("llm: encode request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/chat/completions", o.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCollaborator, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("%w: model status %d: %s", domain.ErrCollaborator, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode model response: %v", domain.ErrCollaborator, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: model returned no choices", domain.ErrCollaborator)
	}
	return parsed.Choices[0].Message.Content, nil
}

func normalizeContent(c *GeneratedContent) (*GeneratedContent, error) {
	if c.Title == "" || c.Description == "" || len(c.Scenes) == 0 {
		return nil, fmt.Errorf("%w: model response missing title, description or scenes", domain.ErrCollaborator)
	}
	for i := range c.Scenes {
		if c.Scenes[i].ID == 0 {
			c.Scenes[i].ID = i + 1
		}
		if c.Scenes[i].MediaPrompt == "" {
			c.Scenes[i].MediaPrompt = c.Scenes[i].Text
		}
	}
	return c, nil
}

func contentSystemPrompt(presets string) string {
	base := `You are CREVID, an assistant specialized in creating engaging YouTube content.
Always respond with valid JSON in this exact format:
{
  "title": "Engaging YouTube title",
  "description": "Complete video description with hashtags",
  "scenes": [
    {"id": 1, "text": "Scene narration text", "mediaPrompt": "Visual description for this scene"}
  ]
}`
	if presets != "" {
		return base + "\n\nAdditional Guidelines:\n" + presets
	}
	return base
}

func contentUserPrompt(req ContentRequest) string {
	if req.Mode == "topic" {
		return fmt.Sprintf("Create YouTube content about this topic: %q\nGenerate 5-7 scenes.", req.Input)
	}
	return fmt.Sprintf("Create YouTube content based on this reference material: %q\nAnalyze the content and create 5-7 scenes with a unique perspective.", req.Input)
}

func mediaPromptSystemPrompt(presets string) string {
	base := `You are an expert at creating detailed visual prompts for AI image and video generation.
Create a detailed, specific prompt based on the scene text and style preferences.
Focus on visual elements, composition, lighting, and style.
Keep it concise but descriptive (max 200 characters).`
	if presets != "" {
		return base + "\nStyle Guidelines: " + presets
	}
	return base
}
