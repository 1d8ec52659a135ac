// Package llm wraps the language-model collaborator that turns a topic or
// reference text into a structured video script, and single scene texts into
// visual generation prompts.
package llm

import "context"

// Scene is one narrated segment of a generated script.
type Scene struct {
	ID          int    `json:"id"`
	Text        string `json:"text"`
	MediaPrompt string `json:"mediaPrompt"`
}

// GeneratedContent is the structured result of a content generation call.
type GeneratedContent struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Scenes      []Scene `json:"scenes"`
}

// ContentRequest describes what to generate. Mode is "topic" or "reference";
// Input is the topic phrase or the reference material; Presets carries
// optional free-form style guidelines.
type ContentRequest struct {
	Mode    string
	Input   string
	Presets string
}

// Generator is the collaborator contract consumed by the worker handlers.
type Generator interface {
	GenerateContent(ctx context.Context, req ContentRequest) (*GeneratedContent, error)
	GenerateMediaPrompt(ctx context.Context, sceneText, presets string) (string, error)
}
