package worker

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"crevid/internal/domain"
	"crevid/internal/providers/llm"
)

type contentPayload struct {
	JobID   string `json:"job_id"`
	Mode    string `json:"mode"`
	Input   string `json:"input"`
	Presets string `json:"presets"`
}

type contentResult struct {
	ContentID   string      `json:"content_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Scenes      []llm.Scene `json:"scenes"`
	ScenesCount int         `json:"scenes_count"`
}

// HandleContentGeneration runs the script pipeline: generate a structured
// script with the language model, persist it as a completed content row, and
// attach the summary to the job.
func (h *Handlers) HandleContentGeneration(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload contentPayload
	if err := decodePayload(r, &payload); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if payload.JobID == "" || payload.Input == "" {
		h.badRequest(w, "job_id and input are required")
		return
	}
	if payload.Mode != "topic" && payload.Mode != "reference" {
		h.badRequest(w, fmt.Sprintf("unknown generation mode %q", payload.Mode))
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

	generated, err := h.LLM.GenerateContent(ctx, llm.ContentRequest{
		Mode:    payload.Mode,
		Input:   payload.Input,
		Presets: payload.Presets,
	})
	if err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}
	_ = h.Jobs.Progress(ctx, payload.JobID, 70)

	content := &domain.Content{
		ID:          uuid.NewString(),
		Title:       generated.Title,
		Description: generated.Description,
		Script:      joinScenes(generated.Scenes),
		Status:      domain.ContentStatusCompleted,
		ScenesCount: len(generated.Scenes),
	}
	if err := h.Contents.Create(ctx, content); err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}
	_ = h.Jobs.Progress(ctx, payload.JobID, 90)

	result, err := json.Marshal(contentResult{
		ContentID:   content.ID,
		Title:       content.Title,
		Description: content.Description,
		Scenes:      generated.Scenes,
		ScenesCount: content.ScenesCount,
	})
	if err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}
	if err := h.Jobs.Complete(ctx, payload.JobID, result); err != nil {
		h.failJob(ctx, w, payload.JobID, err)
		return
	}

	h.Logger.Info().Str("job_id", payload.JobID).Str("content_id", content.ID).Msg("content generated")
	h.respond(w, http.StatusOK, workerResponse{Success: true, JobID: payload.JobID})
}

func joinScenes(scenes []llm.Scene) string {
	texts := make([]string, 0, len(scenes))
	for _, s := range scenes {
		texts = append(texts, strings.TrimSpace(s.Text))
	}
	return strings.Join(texts, "\n\n")
}
