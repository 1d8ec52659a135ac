package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"crevid/internal/domain"
)

// voiceSettings are the narration defaults attached to every TTS result.
// They are informational until a speech backend is wired.
type voiceSettings struct {
	Voice           string  `json:"voice"`
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
	Language        string  `json:"language"`
}

func defaultVoiceSettings() voiceSettings {
	return voiceSettings{
		Voice:           "Aria",
		Stability:       0.5,
		SimilarityBoost: 0.75,
		Style:           0,
		Speed:           1,
		Language:        "id-ID",
	}
}

type ttsPayload struct {
	JobID     string `json:"job_id"`
	ContentID string `json:"contentId"`
}

type ttsFileResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type ttsResult struct {
	Files             []ttsFileResult `json:"files"`
	EstimatedDuration string          `json:"estimated_duration"`
	VoiceSettings     voiceSettings   `json:"voice_settings"`
	FolderURL         string          `json:"folder_url"`
}

// HandleTTSGeneration produces the narration artifacts for a content item:
// one full-script audio file, plus a per-scene breakdown archive for
// multi-scene scripts.
func (h *Handlers) HandleTTSGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload ttsPayload
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
	if err := h.Jobs.Start(ctx, payload.JobID, 10); err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}

	content, err := h.Contents.GetByID(ctx, payload.ContentID)
	if err != nil {
		h.failJob(ctx, w, payload.JobID, fmt.Errorf("load content: %w", err))
		return
	}
	if strings.TrimSpace(content.Script) == "" {
		h.failJob(ctx, w, payload.JobID, fmt.Errorf("%w: content has no script", domain.ErrValidation))
		return
	}

	result, err := h.runTTS(ctx, payload.JobID, content, func(p int) {
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
		Str("duration", result.EstimatedDuration).
		Msg("tts generation finished")
	h.respond(w, http.StatusOK, workerResponse{Success: true, JobID: payload.JobID})
}

// runTTS is the narration pipeline body, shared with the batch worker.
func (h *Handlers) runTTS(ctx context.Context, jobID string, content *domain.Content, progress func(int)) (*ttsResult, error) {
	folder, err := h.ensureFolder(ctx, content, jobID)
	if err != nil {
		return nil, fmt.Errorf("prepare hosting folder: %w", err)
	}
	progress(30)

	result := &ttsResult{
		EstimatedDuration: estimateDuration(content.Script),
		VoiceSettings:     defaultVoiceSettings(),
		FolderURL:         folder.FolderURL,
	}

	// Synthesis backend pending; the artifact carries the narration text.
	full, err := h.Files.UploadFile(ctx, []byte(content.Script), "full_script_audio.mp3", folder.FolderID)
	if err != nil {
		return nil, fmt.Errorf("upload narration: %w", err)
	}
	progress(60)

	if err := h.recordAudio(ctx, jobID, content.ID, full.FileName, full.DownloadPage, full.Size); err != nil {
		return nil, err
	}
	result.Files = append(result.Files, ttsFileResult{Filename: full.FileName, URL: full.DownloadPage})
	progress(80)

	if content.ScenesCount > 1 {
		breakdown := strings.Join(sceneTexts(content.Script), "\n---\n")
		scenes, err := h.Files.UploadFile(ctx, []byte(breakdown), "scene_breakdown_audio.zip", folder.FolderID)
		if err != nil {
			return nil, fmt.Errorf("upload scene breakdown: %w", err)
		}
		if err := h.recordAudio(ctx, jobID, content.ID, scenes.FileName, scenes.DownloadPage, scenes.Size); err != nil {
			return nil, err
		}
		result.Files = append(result.Files, ttsFileResult{Filename: scenes.FileName, URL: scenes.DownloadPage})
	}

	return result, nil
}

func (h *Handlers) recordAudio(ctx context.Context, jobID, contentID, filename, url string, size int64) error {
	record := &domain.MediaFile{
		ID:        uuid.NewString(),
		ContentID: contentID,
		JobID:     &jobID,
		Type:      domain.MediaTypeAudio,
		Filename:  filename,
		HostedURL: url,
		FileSize:  &size,
	}
	if err := h.Media.Create(ctx, record); err != nil {
		return fmt.Errorf("record audio artifact: %w", err)
	}
	return nil
}

// estimateDuration projects narration length at 150 spoken words per minute,
// formatted m:ss.
func estimateDuration(script string) string {
	words := len(strings.Fields(script))
	totalSeconds := (words*60 + 149) / 150
	return fmt.Sprintf("%d:%02d", totalSeconds/60, totalSeconds%60)
}
