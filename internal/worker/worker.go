// Package worker hosts the queue-invoked callback endpoints. Each handler
// loads its job, executes one generation pipeline with progress checkpoints,
// and records the outcome. Delivery is at-least-once, so a redelivered
// message simply re-runs the pipeline and the last write wins.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"crevid/internal/domain"
	"crevid/internal/infra"
	"crevid/internal/providers/filehost"
	"crevid/internal/providers/llm"
)

// JobControl is the slice of the job lifecycle manager the workers need.
type JobControl interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
	Start(ctx context.Context, id string, progress int) error
	Progress(ctx context.Context, id string, progress int) error
	Complete(ctx context.Context, id string, result []byte) error
	Fail(ctx context.Context, id, message string) error
}

// Settings supplies pipeline tunables at call time.
type Settings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// Handlers bundles the worker endpoints and their collaborators.
type Handlers struct {
	Jobs     JobControl
	Contents domain.ContentRepository
	Media    domain.MediaFileRepository
	Folders  domain.StorageFolderRepository
	LLM      llm.Generator
	Files    filehost.Host
	Settings Settings
	Logger   infra.Logger
}

type workerResponse struct {
	Success bool   `json:"success"`
	JobID   string `json:"job_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handlers) respond(w http.ResponseWriter, status int, body workerResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handlers) badRequest(w http.ResponseWriter, msg string) {
	h.respond(w, http.StatusBadRequest, workerResponse{Success: false, Error: msg})
}

// failJob records the failure on the job and answers 500 so the queue knows
// the delivery did not succeed.
func (h *Handlers) failJob(ctx context.Context, w http.ResponseWriter, jobID string, err error) {
	h.Logger.Error().Err(err).Str("job_id", jobID).Msg("worker pipeline failed")
	if failErr := h.Jobs.Fail(ctx, jobID, err.Error()); failErr != nil {
		h.Logger.Error().Err(failErr).Str("job_id", jobID).Msg("could not record job failure")
	}
	h.respond(w, http.StatusInternalServerError, workerResponse{Success: false, JobID: jobID, Error: err.Error()})
}

func decodePayload(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: malformed payload: %v", domain.ErrValidation, err)
	}
	return nil
}

// ensureFolder returns the content's hosting folder, creating and recording
// it on first use.
func (h *Handlers) ensureFolder(ctx context.Context, content *domain.Content, jobID string) (*domain.StorageFolder, error) {
	existing, err := h.Folders.GetByContent(ctx, content.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	parentID := ""
	if settings, sErr := h.Settings.Get(ctx); sErr == nil {
		parentID = settings.GoFileRootFolder
	}

	name := filehost.SanitizeFilename(content.Title)
	if name == "" {
		name = "content"
	}
	name = name + "_" + shortID(content.ID)

	created, err := h.Files.CreateFolder(ctx, name, parentID)
	if err != nil {
		return nil, err
	}

	folder := &domain.StorageFolder{
		ID:         uuid.NewString(),
		ContentID:  content.ID,
		JobID:      &jobID,
		FolderID:   created.ID,
		FolderURL:  created.URL,
		FolderName: created.Name,
	}
	if err := h.Folders.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// sceneTexts splits a stored script back into its narration segments.
func sceneTexts(script string) []string {
	parts := strings.Split(script, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
