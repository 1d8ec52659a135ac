package domain

import "context"

// ContentRepository defines persistence for content entities.
type ContentRepository interface {
	Create(ctx context.Context, content *Content) error
	GetByID(ctx context.Context, id string) (*Content, error)
	List(ctx context.Context) ([]Content, error)
	Update(ctx context.Context, id string, patch ContentPatch) (*Content, error)
	Delete(ctx context.Context, id string) error
}

// JobFilter narrows job listings. A nil Status/Type matches everything;
// Limit <= 0 falls back to the repository default.
type JobFilter struct {
	Status *JobStatus
	Type   *JobType
	Limit  int
}

// JobRepository defines persistence for job entities. Status-mutating methods
// are deliberately narrow so the lifecycle manager is the only place that can
// express a transition.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, filter JobFilter) ([]Job, error)
	ListByContent(ctx context.Context, contentID string) ([]Job, error)
	SetDispatchMessageID(ctx context.Context, id, messageID string) error
	MarkProcessing(ctx context.Context, id string, progress int) error
	SetProgress(ctx context.Context, id string, progress int) error
	Complete(ctx context.Context, id string, result []byte) error
	Fail(ctx context.Context, id, message string) error
	Requeue(ctx context.Context, id string) error
}

// MediaFileRepository handles persistence for hosted artifacts.
type MediaFileRepository interface {
	Create(ctx context.Context, file *MediaFile) error
	ListByContent(ctx context.Context, contentID string) ([]MediaFile, error)
	ListByJob(ctx context.Context, jobID string) ([]MediaFile, error)
}

// StorageFolderRepository handles persistence for per-content hosting folders.
type StorageFolderRepository interface {
	Create(ctx context.Context, folder *StorageFolder) error
	GetByContent(ctx context.Context, contentID string) (*StorageFolder, error)
}

// SettingsRepository handles the singleton settings row.
type SettingsRepository interface {
	Get(ctx context.Context) (*AppSettings, error)
	Update(ctx context.Context, patch AppSettingsPatch) (*AppSettings, error)
	Replace(ctx context.Context, settings *AppSettings) error
	EnsureDefault(ctx context.Context, defaults *AppSettings) error
}
