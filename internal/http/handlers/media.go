package handlers

import (
	"net/http"

	"crevid/internal/domain"
)

type generateMediaRequest struct {
	ContentID string `json:"contentId"`
	SceneIDs  []int  `json:"sceneIds"`
	MediaType string `json:"mediaType"`
	Presets   string `json:"presets"`
}

// GenerateMedia queues visual generation for selected scenes, or all scenes
// when none are named.
func (a *App) GenerateMedia(w http.ResponseWriter, r *http.Request) {
	var req generateMediaRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.ContentID == "" {
		a.badRequest(w, "contentId is required")
		return
	}
	if req.MediaType != "" && req.MediaType != string(domain.MediaTypeImage) && req.MediaType != string(domain.MediaTypeVideo) {
		a.badRequest(w, "mediaType must be image or video")
		return
	}

	content, err := a.Contents.GetByID(r.Context(), req.ContentID)
	if err != nil {
		a.fail(w, err)
		return
	}

	scenes := len(req.SceneIDs)
	if scenes == 0 {
		scenes = content.ScenesCount
	}

	a.submit(w, r, domain.JobTypeMediaGeneration, &content.ID, map[string]any{
		"contentId": req.ContentID,
		"sceneIds":  req.SceneIDs,
		"mediaType": req.MediaType,
		"presets":   req.Presets,
	}, 2, scenes)
}

type generateTTSRequest struct {
	ContentID string `json:"contentId"`
}

// GenerateTTS queues narration generation for one content item.
func (a *App) GenerateTTS(w http.ResponseWriter, r *http.Request) {
	var req generateTTSRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.ContentID == "" {
		a.badRequest(w, "contentId is required")
		return
	}

	content, err := a.Contents.GetByID(r.Context(), req.ContentID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if content.Script == "" {
		a.badRequest(w, "content has no script to narrate")
		return
	}

	a.submit(w, r, domain.JobTypeTTSGeneration, &content.ID, map[string]any{
		"contentId": req.ContentID,
	}, 3, 0)
}

type mediaBatchRequest struct {
	ContentID string `json:"contentId"`
	MediaType string `json:"mediaType"`
	Presets   string `json:"presets"`
}

// GenerateMediaBatch queues visuals for every scene of one content item as a
// batch job.
func (a *App) GenerateMediaBatch(w http.ResponseWriter, r *http.Request) {
	var req mediaBatchRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.ContentID == "" {
		a.badRequest(w, "contentId is required")
		return
	}

	content, err := a.Contents.GetByID(r.Context(), req.ContentID)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.submit(w, r, domain.JobTypeBatchOperation, &content.ID, map[string]any{
		"contentId":  req.ContentID,
		"operations": []string{"media"},
		"mediaType":  req.MediaType,
		"presets":    req.Presets,
	}, 5, content.ScenesCount)
}

// GenerateTTSBatch queues narration for one content item as a batch job.
func (a *App) GenerateTTSBatch(w http.ResponseWriter, r *http.Request) {
	var req generateTTSRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.ContentID == "" {
		a.badRequest(w, "contentId is required")
		return
	}

	content, err := a.Contents.GetByID(r.Context(), req.ContentID)
	if err != nil {
		a.fail(w, err)
		return
	}
	if content.Script == "" {
		a.badRequest(w, "content has no script to narrate")
		return
	}

	a.submit(w, r, domain.JobTypeBatchOperation, &content.ID, map[string]any{
		"contentId":  req.ContentID,
		"operations": []string{"tts"},
	}, 5, content.ScenesCount)
}

type batchRequest struct {
	ContentID  string   `json:"contentId"`
	Operations []string `json:"operations"`
	MediaType  string   `json:"mediaType"`
	Presets    string   `json:"presets"`
}

// GenerateBatch queues several pipelines for one content item as a single
// job.
func (a *App) GenerateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(r, &req); err != nil {
		a.fail(w, err)
		return
	}
	if req.ContentID == "" {
		a.badRequest(w, "contentId is required")
		return
	}
	if len(req.Operations) == 0 {
		req.Operations = []string{"media", "tts"}
	}
	for _, op := range req.Operations {
		if op != "media" && op != "tts" {
			a.badRequest(w, "operations may only contain media and tts")
			return
		}
	}

	content, err := a.Contents.GetByID(r.Context(), req.ContentID)
	if err != nil {
		a.fail(w, err)
		return
	}

	a.submit(w, r, domain.JobTypeBatchOperation, &content.ID, map[string]any{
		"contentId":  req.ContentID,
		"operations": req.Operations,
		"mediaType":  req.MediaType,
		"presets":    req.Presets,
	}, 5, content.ScenesCount)
}
