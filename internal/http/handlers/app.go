// Package handlers implements the admin-facing REST API: content CRUD, job
// submission and control, and settings management.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"crevid/internal/domain"
	"crevid/internal/infra"
	"crevid/internal/jobs"
)

// JobService is the lifecycle-manager surface the API consumes.
type JobService interface {
	Create(ctx context.Context, jobType domain.JobType, contentID *string, inputData json.RawMessage) (*domain.Job, error)
	Dispatch(ctx context.Context, job *domain.Job, delaySeconds int) (string, error)
	Get(ctx context.Context, id string) (*domain.Job, error)
	List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error)
	ListByContent(ctx context.Context, contentID string) ([]domain.Job, error)
	Cancel(ctx context.Context, id string) (*domain.Job, error)
	Retry(ctx context.Context, id string) (*domain.Job, error)
	Status(ctx context.Context, id string) (*jobs.StatusSnapshot, error)
}

// SettingsService is the settings surface the API consumes.
type SettingsService interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
	Update(ctx context.Context, patch domain.AppSettingsPatch) (*domain.AppSettings, error)
	Reset(ctx context.Context, defaults *domain.AppSettings) error
}

// App bundles the API handlers and their collaborators.
type App struct {
	Contents domain.ContentRepository
	Media    domain.MediaFileRepository
	Folders  domain.StorageFolderRepository
	Jobs     JobService
	Settings SettingsService
	Config   *infra.Config
	Logger   infra.Logger
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (a *App) ok(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

// fail maps domain errors onto HTTP statuses. Collaborator failures surface
// as 502 so callers can distinguish them from our own faults.
func (a *App) fail(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidState):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrCollaborator):
		status = http.StatusBadGateway
	}
	if status == http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg("request failed")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: err.Error()})
}

func (a *App) badRequest(w http.ResponseWriter, msg string) {
	a.fail(w, fmt.Errorf("%w: %s", domain.ErrValidation, msg))
}

func decodeBody(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", domain.ErrValidation, err)
	}
	return nil
}

// estimatedTime projects a human-readable duration for a freshly queued job.
func estimatedTime(jobType domain.JobType, scenes int) string {
	seconds := 0
	switch jobType {
	case domain.JobTypeContentGeneration:
		seconds = 30
	case domain.JobTypeMediaGeneration:
		if scenes < 1 {
			scenes = 1
		}
		seconds = 120 * scenes
	case domain.JobTypeTTSGeneration:
		seconds = 60
	case domain.JobTypeBatchOperation:
		seconds = 300
	}
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", seconds)
	}
	minutes := (seconds + 59) / 60
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}

type queuedJobView struct {
	JobID         string `json:"job_id"`
	Status        string `json:"status"`
	EstimatedTime string `json:"estimated_time"`
}

// submit creates, dispatches and presents one job.
func (a *App) submit(w http.ResponseWriter, r *http.Request, jobType domain.JobType, contentID *string, input any, delaySeconds, scenes int) {
	raw, err := json.Marshal(input)
	if err != nil {
		a.fail(w, err)
		return
	}

	job, err := a.Jobs.Create(r.Context(), jobType, contentID, raw)
	if err != nil {
		a.fail(w, err)
		return
	}
	if _, err := a.Jobs.Dispatch(r.Context(), job, delaySeconds); err != nil {
		a.fail(w, err)
		return
	}

	a.ok(w, http.StatusAccepted, queuedJobView{
		JobID:         job.ID,
		Status:        string(job.Status),
		EstimatedTime: estimatedTime(jobType, scenes),
	})
}
