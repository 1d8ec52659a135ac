// Package jobs owns the asynchronous job lifecycle: creation, dispatch to the
// message queue, worker-driven progress, and the cancel/retry controls.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"crevid/internal/cache"
	"crevid/internal/dispatch"
	"crevid/internal/domain"
	"crevid/internal/infra"
)

// snapshotTTL bounds how long a stale job snapshot can be served after the
// last write-through.
const snapshotTTL = 30 * time.Minute

// workerEndpoints maps a job type to the callback route the queue delivers to.
var workerEndpoints = map[domain.JobType]string{
	domain.JobTypeContentGeneration: "/api/workers/content-generation",
	domain.JobTypeMediaGeneration:   "/api/workers/media-generation",
	domain.JobTypeTTSGeneration:     "/api/workers/tts-generation",
	domain.JobTypeBatchOperation:    "/api/workers/batch-operation",
}

// Settings supplies dispatch tunables at call time.
type Settings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// Manager coordinates job state between postgres, the dispatcher and the
// snapshot cache. Postgres is always the source of truth; the cache is a
// best-effort read accelerator for the poll endpoint.
type Manager struct {
	repo       domain.JobRepository
	dispatcher dispatch.Dispatcher
	cache      cache.Cache
	settings   Settings
	logger     infra.Logger
}

// NewManager wires the job lifecycle manager. cache may be nil when redis is
// not configured.
func NewManager(repo domain.JobRepository, dispatcher dispatch.Dispatcher, c cache.Cache, settings Settings, logger infra.Logger) *Manager {
	return &Manager{
		repo:       repo,
		dispatcher: dispatcher,
		cache:      c,
		settings:   settings,
		logger:     logger,
	}
}

// StatusSnapshot is the poll-endpoint view of a job.
type StatusSnapshot struct {
	JobID        string          `json:"job_id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	ResultData   json.RawMessage `json:"result_data,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
}

// Create persists a new queued job. It does not dispatch; callers follow up
// with Dispatch so a creation failure never leaves an orphan queue message.
func (m *Manager) Create(ctx context.Context, jobType domain.JobType, contentID *string, inputData json.RawMessage) (*domain.Job, error) {
	if !domain.ValidJobType(jobType) {
		return nil, fmt.Errorf("%w: unknown job type %q", domain.ErrValidation, jobType)
	}
	job := &domain.Job{
		ID:        uuid.NewString(),
		ContentID: contentID,
		Type:      jobType,
		Status:    domain.JobStatusQueued,
		InputData: inputData,
		Progress:  0,
	}
	if err := m.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	m.logger.Info().Str("job_id", job.ID).Str("type", string(jobType)).Msg("job created")
	return job, nil
}

// Dispatch hands the job to the queue for asynchronous execution. The payload
// is the job's input data with the job id injected, so the worker callback can
// load its own record. A publish failure propagates to the caller with the job
// left queued.
func (m *Manager) Dispatch(ctx context.Context, job *domain.Job, delaySeconds int) (string, error) {
	endpoint, ok := workerEndpoints[job.Type]
	if !ok {
		return "", fmt.Errorf("%w: no worker endpoint for job type %q", domain.ErrValidation, job.Type)
	}

	payload := map[string]any{}
	if len(job.InputData) > 0 {
		if err := json.Unmarshal(job.InputData, &payload); err != nil {
			return "", fmt.Errorf("jobs: decode input data: %w", err)
		}
	}
	payload["job_id"] = job.ID

	retries := 3
	if settings, err := m.settings.Get(ctx); err == nil && settings.JobRetryAttempts > 0 {
		retries = settings.JobRetryAttempts
	}

	result, err := m.dispatcher.Publish(ctx, endpoint, payload, dispatch.PublishOptions{
		DelaySeconds: delaySeconds,
		Retries:      retries,
	})
	if err != nil {
		return "", err
	}

	if err := m.repo.SetDispatchMessageID(ctx, job.ID, result.MessageID); err != nil {
		// The message is already in flight; losing the handle only costs us
		// the ability to cancel it queue-side.
		m.logger.Warn().Err(err).Str("job_id", job.ID).Msg("could not record dispatch message id")
	}
	job.DispatchMessageID = &result.MessageID
	return result.MessageID, nil
}

// Get loads one job by id.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Job, error) {
	return m.repo.GetByID(ctx, id)
}

// List returns jobs matching filter, most recent first.
func (m *Manager) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	return m.repo.List(ctx, filter)
}

// ListByContent returns all jobs attached to one content item.
func (m *Manager) ListByContent(ctx context.Context, contentID string) ([]domain.Job, error) {
	return m.repo.ListByContent(ctx, contentID)
}

// Cancel marks a non-terminal job failed with a user-attributed message and
// best-effort revokes the pending queue message. Cancelling a job the worker
// already finished is rejected.
func (m *Manager) Cancel(ctx context.Context, id string) (*domain.Job, error) {
	job, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: job is already %s", domain.ErrInvalidState, job.Status)
	}

	if err := m.repo.Fail(ctx, id, "cancelled by user"); err != nil {
		return nil, err
	}

	if job.DispatchMessageID != nil {
		if !m.dispatcher.Cancel(ctx, *job.DispatchMessageID) {
			m.logger.Warn().Str("job_id", id).Msg("queue message not revoked; delivery may still arrive")
		}
	}

	updated, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.writeSnapshot(ctx, updated)
	m.logger.Info().Str("job_id", id).Msg("job cancelled")
	return updated, nil
}

// Retry requeues a failed job and dispatches it again. Only failed jobs can
// be retried; the endpoint is resolved before any state is touched so a job
// with an unknown type stays failed.
func (m *Manager) Retry(ctx context.Context, id string) (*domain.Job, error) {
	job, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed {
		return nil, fmt.Errorf("%w: only failed jobs can be retried, job is %s", domain.ErrInvalidState, job.Status)
	}
	if _, ok := workerEndpoints[job.Type]; !ok {
		return nil, fmt.Errorf("%w: no worker endpoint for job type %q", domain.ErrValidation, job.Type)
	}

	if err := m.repo.Requeue(ctx, id); err != nil {
		return nil, err
	}
	requeued, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := m.Dispatch(ctx, requeued, 0); err != nil {
		return nil, err
	}
	m.writeSnapshot(ctx, requeued)
	m.logger.Info().Str("job_id", id).Msg("job requeued")
	return requeued, nil
}

// Start records that a worker picked the job up.
func (m *Manager) Start(ctx context.Context, id string, progress int) error {
	if err := m.repo.MarkProcessing(ctx, id, progress); err != nil {
		return err
	}
	m.refreshSnapshot(ctx, id)
	return nil
}

// Progress records a worker checkpoint.
func (m *Manager) Progress(ctx context.Context, id string, progress int) error {
	if err := m.repo.SetProgress(ctx, id, progress); err != nil {
		return err
	}
	m.refreshSnapshot(ctx, id)
	return nil
}

// Complete records a successful worker run with its result document.
func (m *Manager) Complete(ctx context.Context, id string, result []byte) error {
	if err := m.repo.Complete(ctx, id, result); err != nil {
		return err
	}
	m.refreshSnapshot(ctx, id)
	m.logger.Info().Str("job_id", id).Msg("job completed")
	return nil
}

// Fail records a worker failure with a human-readable message.
func (m *Manager) Fail(ctx context.Context, id, message string) error {
	if err := m.repo.Fail(ctx, id, message); err != nil {
		return err
	}
	m.refreshSnapshot(ctx, id)
	m.logger.Warn().Str("job_id", id).Str("reason", message).Msg("job failed")
	return nil
}

// Status serves the poll endpoint: snapshot from cache when fresh, otherwise
// postgres with a write-through. Cache trouble degrades to a plain DB read.
func (m *Manager) Status(ctx context.Context, id string) (*StatusSnapshot, error) {
	if m.cache != nil {
		if raw, ok, err := m.cache.GetJob(ctx, id); err == nil && ok {
			var snap StatusSnapshot
			if json.Unmarshal(raw, &snap) == nil {
				return &snap, nil
			}
		}
	}

	job, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	snap := snapshotOf(job)
	m.writeSnapshot(ctx, job)
	return snap, nil
}

func snapshotOf(job *domain.Job) *StatusSnapshot {
	return &StatusSnapshot{
		JobID:        job.ID,
		Status:       string(job.Status),
		Progress:     job.Progress,
		ResultData:   job.ResultData,
		ErrorMessage: job.ErrorMessage,
	}
}

func (m *Manager) writeSnapshot(ctx context.Context, job *domain.Job) {
	if m.cache == nil {
		return
	}
	raw, err := json.Marshal(snapshotOf(job))
	if err != nil {
		return
	}
	if err := m.cache.SetJob(ctx, job.ID, raw, snapshotTTL); err != nil {
		m.logger.Debug().Err(err).Str("job_id", job.ID).Msg("snapshot write skipped")
	}
}

func (m *Manager) refreshSnapshot(ctx context.Context, id string) {
	if m.cache == nil {
		return
	}
	job, err := m.repo.GetByID(ctx, id)
	if err != nil {
		return
	}
	m.writeSnapshot(ctx, job)
}
