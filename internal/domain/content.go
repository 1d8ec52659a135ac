package domain

import "time"

// ContentStatus enumerates content lifecycle states.
type ContentStatus string

const (
	ContentStatusDraft      ContentStatus = "draft"
	ContentStatusProcessing ContentStatus = "processing"
	ContentStatusCompleted  ContentStatus = "completed"
)

// Content is a generated or hand-saved video script with its metadata.
// Scene texts are joined with blank lines into Script; ScenesCount keeps the
// original scene count so media/TTS jobs can address scenes by index.
type Content struct {
	ID          string
	Title       string
	Description string
	Script      string
	Status      ContentStatus
	ScenesCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContentPatch carries the mutable fields of a content update. Nil fields are
// left untouched.
type ContentPatch struct {
	Title       *string
	Description *string
	Script      *string
}
