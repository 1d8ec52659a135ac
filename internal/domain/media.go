package domain

import "time"

// MediaType enumerates the kinds of hosted artifacts a worker can produce.
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
	MediaTypeAudio MediaType = "audio"
)

// MediaFile records one uploaded artifact on the file host. JobID is nilable
// because deleting a job keeps its artifacts around.
type MediaFile struct {
	ID        string
	ContentID string
	JobID     *string
	Type      MediaType
	Filename  string
	HostedURL string
	SceneID   *int
	FileSize  *int64
	CreatedAt time.Time
}

// StorageFolder is the per-content grouping folder on the file host, created
// lazily by the first media or TTS job for that content.
type StorageFolder struct {
	ID         string
	ContentID  string
	JobID      *string
	FolderID   string
	FolderURL  string
	FolderName string
	CreatedAt  time.Time
}
