package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"crevid/internal/domain"
)

type mediaPayload struct {
	JobID     string `json:"job_id"`
	ContentID string `json:"contentId"`
	SceneIDs  []int  `json:"sceneIds"`
	MediaType string `json:"mediaType"`
	Presets   string `json:"presets"`
}

type mediaFileResult struct {
	SceneID  int    `json:"scene_id"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Prompt   string `json:"prompt"`
}

type mediaResult struct {
	Files     []mediaFileResult `json:"files"`
	Generated int               `json:"generated"`
	Failed    int               `json:"failed"`
	FolderURL string            `json:"folder_url"`
}

// HandleMediaGeneration produces one visual artifact per requested scene.
// Scene failures are isolated: the job only fails when every scene fails.
func (h *Handlers) HandleMediaGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload mediaPayload
	if err := decodePayload(r, &payload); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if payload.JobID == "" || payload.ContentID == "" {
		h.badRequest(w, "job_id and contentId are required")
		return
	}

	if _, err := h.Jobs.Get(ctx, payload.JobID); err != nil {
		h.badRequest(w, "unknown job")
		return
	}
	if err := h.Jobs.Start(ctx, payload.JobID, 5); err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}

	content, err := h.Contents.GetByID(ctx, payload.ContentID)
	if err != nil {
		h.failJob(ctx, w, payload.JobID, fmt.Errorf("load content: %w", err))
		return
	}

	result, err := h.runMedia(ctx, payload.JobID, content, payload.SceneIDs, payload.MediaType, payload.Presets, func(p int) {
		_ = h.Jobs.Progress(ctx, payload.JobID, p)
	})
	if err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}
	if err := h.Jobs.Complete(ctx, payload.JobID, raw); err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}

	h.Logger.Info().
		Str("job_id", payload.JobID).
		Int("generated", result.Generated).
		Int("failed", result.Failed).
		Msg("media generation finished")
	h.respond(w, http.StatusOK, workerResponse{Success: true, JobID: payload.JobID})
}

// runMedia is the media pipeline body, shared with the batch worker. The
// progress callback receives absolute percentages on this job's 5..100 scale;
// batch remaps them onto its own scale.
func (h *Handlers) runMedia(ctx context.Context, jobID string, content *domain.Content, sceneIDs []int, mediaType, presets string, progress func(int)) (*mediaResult, error) {
	if mediaType == "" {
		mediaType = string(domain.MediaTypeImage)
	}
	if mediaType != string(domain.MediaTypeImage) && mediaType != string(domain.MediaTypeVideo) {
		return nil, fmt.Errorf("%w: unsupported media type %q", domain.ErrValidation, mediaType)
	}

	folder, err := h.ensureFolder(ctx, content, jobID)
	if err != nil {
		return nil, fmt.Errorf("prepare hosting folder: %w", err)
	}
	progress(20)

	texts := sceneTexts(content.Script)
	if len(sceneIDs) == 0 {
		count := content.ScenesCount
		if count == 0 {
			count = len(texts)
		}
		for i := 1; i <= count; i++ {
			sceneIDs = append(sceneIDs, i)
		}
	}
	if len(sceneIDs) == 0 {
		return nil, fmt.Errorf("%w: content has no scenes", domain.ErrValidation)
	}

	result := &mediaResult{FolderURL: folder.FolderURL}
	for i, sceneID := range sceneIDs {
		file, sceneErr := h.generateScene(ctx, jobID, content, folder, texts, sceneID, mediaType, presets)
		if sceneErr != nil {
			h.Logger.Warn().Err(sceneErr).Int("scene_id", sceneID).Str("job_id", jobID).Msg("scene generation failed")
			result.Failed++
		} else {
			result.Files = append(result.Files, *file)
			result.Generated++
		}
		progress(20 + 70*(i+1)/len(sceneIDs))
	}

	if result.Generated == 0 {
		return nil, errors.New("no media files were generated successfully")
	}
	return result, nil
}

func (h *Handlers) generateScene(ctx context.Context, jobID string, content *domain.Content, folder *domain.StorageFolder, texts []string, sceneID int, mediaType, presets string) (*mediaFileResult, error) {
	text := content.Title
	if sceneID >= 1 && sceneID <= len(texts) {
		text = texts[sceneID-1]
	}

	prompt, err := h.LLM.GenerateMediaPrompt(ctx, text, presets)
	if err != nil {
		return nil, fmt.Errorf("media prompt: %w", err)
	}

	ext := "png"
	if mediaType == string(domain.MediaTypeVideo) {
		ext = "mp4"
	}
	filename := fmt.Sprintf("scene_%d_%s.%s", sceneID, mediaType, ext)

	// The generation backend is prompt-driven; until a renderer is wired the
	// uploaded artifact carries the prompt itself.
	upload, err := h.Files.UploadFile(ctx, []byte(prompt), filename, folder.FolderID)
	if err != nil {
		return nil, fmt.Errorf("upload scene %d: %w", sceneID, err)
	}

	size := upload.Size
	record := &domain.MediaFile{
		ID:        uuid.NewString(),
		ContentID: content.ID,
		JobID:     &jobID,
		Type:      domain.MediaType(mediaType),
		Filename:  upload.FileName,
		HostedURL: upload.DownloadPage,
		SceneID:   &sceneID,
		FileSize:  &size,
	}
	if err := h.Media.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("record scene %d: %w", sceneID, err)
	}

	return &mediaFileResult{
		SceneID:  sceneID,
		Type:     mediaType,
		Filename: upload.FileName,
		URL:      upload.DownloadPage,
		Prompt:   prompt,
	}, nil
}
