package worker

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"crevid/internal/domain"
)

type batchPayload struct {
	JobID      string   `json:"job_id"`
	ContentID  string   `json:"contentId"`
	Operations []string `json:"operations"`
	MediaType  string   `json:"mediaType"`
	Presets    string   `json:"presets"`
}

type batchOperationResult struct {
	Operation string          `json:"operation"`
	Success   bool            `json:"success"`
	Error     string          `json:"error,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
}

type batchResult struct {
	Operations []batchOperationResult `json:"operations"`
	Succeeded  int                    `json:"succeeded"`
	Failed     int                    `json:"failed"`
}

// HandleBatchOperation runs several pipelines for one content item inside a
// single job. Operation failures are isolated; the job only fails when every
// operation fails.
func (h *Handlers) HandleBatchOperation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload batchPayload
	if err := decodePayload(r, &payload); err != nil {
		h.badRequest(w, err.Error())
		return
	}
	if payload.JobID == "" || payload.ContentID == "" {
		h.badRequest(w, "job_id and contentId are required")
		return
	}
	if len(payload.Operations) == 0 {
		h.badRequest(w, "operations list is empty")
		return
	}
	for _, op := range payload.Operations {
		if op != "media" && op != "tts" {
			h.badRequest(w, fmt.Sprintf("unknown batch operation %q", op))
			return
		}
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
	_ = h.Jobs.Progress(ctx, payload.JobID, 10)

	result := &batchResult{}
	total := len(payload.Operations)
	for done, op := range payload.Operations {
		opResult := h.runBatchOperation(r, payload, content, op)
		result.Operations = append(result.Operations, opResult)
		if opResult.Success {
			result.Succeeded++
		} else {
			result.Failed++
		}
		_ = h.Jobs.Progress(ctx, payload.JobID, 10+80*(done+1)/total)
	}

	if result.Succeeded == 0 {
		h.failJob(ctx, w, payload.JobID, errors.New("all batch operations failed"))
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
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("batch operation finished")
	h.respond(w, http.StatusOK, workerResponse{Success: true, JobID: payload.JobID})
}

func (h *Handlers) runBatchOperation(r *http.Request, payload batchPayload, content *domain.Content, op string) batchOperationResult {
	ctx := r.Context()
	noProgress := func(int) {}

	var (
		out any
		err error
	)
	switch op {
	case "media":
		out, err = h.runMedia(ctx, payload.JobID, content, nil, payload.MediaType, payload.Presets, noProgress)
	case "tts":
		out, err = h.runTTS(ctx, payload.JobID, content, noProgress)
	}
	if err != nil {
		return batchOperationResult{Operation: op, Success: false, Error: err.Error()}
	}

	raw, marshalErr := json.Marshal(out)
	if marshalErr != nil {
		return batchOperationResult{Operation: op, Success: false, Error: marshalErr.Error()}
	}
	return batchOperationResult{Operation: op, Success: true, Result: raw}
}
