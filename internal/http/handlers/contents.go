package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"crevid/internal/domain"
)

type generateContentRequest struct {
	Mode    string `json:"mode"`
	Input   string `json:"input"`
	Presets string `json:"presets"`
}

// GenerateContent queues a script generation job.
func (a *App) GenerateContent(w http.ResponseWriter, r *http.Request) {
	var req generateContentRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if strings.TrimSpace(req.Input) == "" {
		a.badRequest(w, "input is required")
		return
	}
	if req.Mode == "" {
		req.Mode = "topic"
	}
	if req.Mode != "topic" && req.Mode != "reference" {
		a.badRequest(w, "mode must be topic or reference")
		return
	}

	a.submit(w, r, domain.JobTypeContentGeneration, nil, map[string]string{
		"mode":    req.Mode,
		"input":   req.Input,
		"presets": req.Presets,
	}, 0, 0)
}

type saveContentRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Script      string `json:"script"`
}

type contentView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Script      string    `json:"script"`
	Status      string    `json:"status"`
	ScenesCount int       `json:"scenes_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func viewOf(c *domain.Content) contentView {
	return contentView{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Script:      c.Script,
		Status:      string(c.Status),
		ScenesCount: c.ScenesCount,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// SaveContent stores a hand-written draft.
func (a *App) SaveContent(w http.ResponseWriter, r *http.Request) {
	var req saveContentRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Script) == "" {
		a.badRequest(w, "title and script are required")
		return
	}

	content := &domain.Content{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Script:      req.Script,
		Status:      domain.ContentStatusDraft,
		ScenesCount: len(splitScenes(req.Script)),
	}
	if err := a.Contents.Create(r.Context(), content); err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusCreated, viewOf(content))
}

type contentListItem struct {
	contentView
	HasMedia  bool    `json:"has_media"`
	HasAudio  bool    `json:"has_audio"`
	FolderURL *string `json:"folder_url,omitempty"`
}

// ListContents returns all content with artifact availability flags.
func (a *App) ListContents(w http.ResponseWriter, r *http.Request) {
	rows, err := a.Contents.List(r.Context())
	if err != nil {
		a.fail(w, err)
		return
	}

	items := make([]contentListItem, 0, len(rows))
	for i := range rows {
		item := contentListItem{contentView: viewOf(&rows[i])}

		files, err := a.Media.ListByContent(r.Context(), rows[i].ID)
		if err == nil {
			for _, f := range files {
				if f.Type == domain.MediaTypeAudio {
					item.HasAudio = true
				} else {
					item.HasMedia = true
				}
			}
		}
		if folder, err := a.Folders.GetByContent(r.Context(), rows[i].ID); err == nil {
			item.FolderURL = &folder.FolderURL
		}
		items = append(items, item)
	}
	a.ok(w, http.StatusOK, items)
}

type contentDetail struct {
	contentView
	Files  []mediaFileView `json:"files"`
	Folder *folderView     `json:"folder,omitempty"`
}

type mediaFileView struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Filename  string `json:"filename"`
	HostedURL string `json:"hosted_url"`
	SceneID   *int   `json:"scene_id,omitempty"`
	FileSize  *int64 `json:"file_size,omitempty"`
}

type folderView struct {
	FolderID   string `json:"folder_id"`
	FolderURL  string `json:"folder_url"`
	FolderName string `json:"folder_name"`
}

// GetContent returns one content item with its hosted artifacts.
func (a *App) GetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	content, err := a.Contents.GetByID(r.Context(), id)
	if err != nil {
		a.fail(w, err)
		return
	}

	detail := contentDetail{contentView: viewOf(content), Files: []mediaFileView{}}
	files, err := a.Media.ListByContent(r.Context(), id)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		a.fail(w, err)
		return
	}
	for _, f := range files {
		detail.Files = append(detail.Files, mediaFileView{
			ID:        f.ID,
			Type:      string(f.Type),
			Filename:  f.Filename,
			HostedURL: f.HostedURL,
			SceneID:   f.SceneID,
			FileSize:  f.FileSize,
		})
	}
	if folder, err := a.Folders.GetByContent(r.Context(), id); err == nil {
		detail.Folder = &folderView{
			FolderID:   folder.FolderID,
			FolderURL:  folder.FolderURL,
			FolderName: folder.FolderName,
		}
	}
	a.ok(w, http.StatusOK, detail)
}

type updateContentRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Script      *string `json:"script"`
}

// UpdateContent applies a partial edit.
func (a *App) UpdateContent(w http.ResponseWriter, r *http.Request) {
	var req updateContentRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.Title == nil && req.Description == nil && req.Script == nil {
		a.badRequest(w, "no fields to update")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		a.badRequest(w, "title must not be empty")
		return
	}

	updated, err := a.Contents.Update(r.Context(), chi.URLParam(r, "id"), domain.ContentPatch{
		Title:       req.Title,
		Description: req.Description,
		Script:      req.Script,
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, viewOf(updated))
}

// DeleteContent removes a content item; its jobs cascade away with it.
func (a *App) DeleteContent(w http.ResponseWriter, r *http.Request) {
	if err := a.Contents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.fail(w, err)
		return
	}
	a.ok(w, http.StatusOK, map[string]string{"deleted": chi.URLParam(r, "id")})
}

func splitScenes(script string) []string {
	parts := strings.Split(script, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}
