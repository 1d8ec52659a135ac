package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"crevid/internal/domain"
)

type jobView struct {
	ID                string          `json:"id"`
	ContentID         *string         `json:"content_id,omitempty"`
	Type              string          `json:"type"`
	Status            string          `json:"status"`
	DispatchMessageID *string         `json:"dispatch_message_id,omitempty"`
	InputData         json.RawMessage `json:"input_data,omitempty"`
	ResultData        json.RawMessage `json:"result_data,omitempty"`
	ErrorMessage      *string         `json:"error_message,omitempty"`
	Progress          int             `json:"progress"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func jobViewOf(j *domain.Job) jobView {
	return jobView{
		ID:                j.ID,
		ContentID:         j.ContentID,
		Type:              string(j.Type),
		Status:            string(j.Status),
		DispatchMessageID: j.DispatchMessageID,
		InputData:         j.InputData,
		ResultData:        j.ResultData,
		ErrorMessage:      j.ErrorMessage,
		Progress:          j.Progress,
		StartedAt:         j.StartedAt,
		CompletedAt:       j.CompletedAt,
		CreatedAt:         j.CreatedAt,
	}
}

// ListJobs returns jobs filtered by optional status, type and limit query
// parameters.
func (a *App) ListJobs(w http.ResponseWriter, r *http.Request) {
	var filter domain.JobFilter

	if raw := r.URL.Query().Get("status"); raw != "" {
		status := domain.JobStatus(raw)
		if !domain.ValidJobStatus(status) {
			a.badRequest(w, "unknown status filter")
			return
		}
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("type"); raw != "" {
		jobType := domain.JobType(raw)
		if !domain.ValidJobType(jobType) {
			a.badRequest(w, "unknown type filter")
			return
		}
		filter.Type = &jobType
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			a.badRequest(w, "limit must be a number")
			return
		}
		// limit is advisory: out-of-range values are clamped, not rejected
		if limit < 1 {
			limit = 1
		}
		if limit > 200 {
			limit = 200
		}
		filter.Limit = limit
	}

	rows, err := a.Jobs.List(r.Context(), filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	views := make([]jobView, 0, len(rows))
	for i := range rows {
		views = append(views, jobViewOf(&rows[i]))
	}
	a.ok(w, http.StatusOK, views)
}

type jobStatusView struct {
	JobID        string          `json:"job_id"`
	Status       string          `json:"status"`
	Progress     int             `json:"progress"`
	ResultData   json.RawMessage `json:"result_data,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	Files        []mediaFileView `json:"files,omitempty"`
	Folder       *folderView     `json:"folder,omitempty"`
}

// GetJob is the poll endpoint. Completed jobs are enriched with their hosted
// artifacts; enrichment failures degrade to the bare snapshot.
func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	snap, err := a.Jobs.Status(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}

	view := jobStatusView{
		JobID:        snap.JobID,
		Status:       snap.Status,
		Progress:     snap.Progress,
		ResultData:   snap.ResultData,
		ErrorMessage: snap.ErrorMessage,
	}

	if snap.Status == string(domain.JobStatusCompleted) {
		if files, err := a.Media.ListByJob(r.Context(), id); err == nil {
			for _, f := range files {
				view.Files = append(view.Files, mediaFileView{
					ID:        f.ID,
					Type:      string(f.Type),
					Filename:  f.Filename,
					HostedURL: f.HostedURL,
					SceneID:   f.SceneID,
					FileSize:  f.FileSize,
				})
				if view.Folder == nil {
					if folder, fErr := a.Folders.GetByContent(r.Context(), f.ContentID); fErr == nil {
						view.Folder = &folderView{
							FolderID:   folder.FolderID,
							FolderURL:  folder.FolderURL,
							FolderName: folder.FolderName,
						}
					}
				}
			}
		}
	}

	a.ok(w, http.StatusOK, view)
}

// ListContentJobs returns the job history of one content item.
func (a *App) ListContentJobs(w http.ResponseWriter, r *http.Request) {
	contentID := chi.URLParam(r, "id")
	if _, err := a.Contents.GetByID(r.Context(), contentID); err != nil {
		a.fail(w, err)
		return
	}

	rows, err := a.Jobs.ListByContent(r.Context(), contentID)
	if err != nil {
		a.fail(w, err)
		return
	}
	views := make([]jobView, 0, len(rows))
	for i := range rows {
		views = append(views, jobViewOf(&rows[i]))
	}
	a.ok(w, http.StatusOK, views)
}

// CancelJob stops a queued or processing job.
func (a *App) CancelJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, jobViewOf(job))
}

// RetryJob requeues a failed job.
func (a *App) RetryJob(w http.ResponseWriter, r *http.Request) {
	job, err := a.Jobs.Retry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, jobViewOf(job))
}
