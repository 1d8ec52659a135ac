package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"crevid/internal/domain"
	"crevid/internal/providers/filehost"
	"crevid/internal/providers/llm"
)

type memJobs struct {
	jobs        map[string]*domain.Job
	checkpoints map[string][]int
}

func newMemJobs() *memJobs {
	return &memJobs{jobs: map[string]*domain.Job{}, checkpoints: map[string][]int{}}
}

func (m *memJobs) add(id string, jobType domain.JobType) {
	m.jobs[id] = &domain.Job{ID: id, Type: jobType, Status: domain.JobStatusQueued}
}

func (m *memJobs) Get(ctx context.Context, id string) (*domain.Job, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (m *memJobs) Start(ctx context.Context, id string, progress int) error {
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusProcessing
	job.Progress = progress
	m.checkpoints[id] = append(m.checkpoints[id], progress)
	return nil
}

func (m *memJobs) Progress(ctx context.Context, id string, progress int) error {
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Progress = progress
	m.checkpoints[id] = append(m.checkpoints[id], progress)
	return nil
}

func (m *memJobs) Complete(ctx context.Context, id string, result []byte) error {
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusCompleted
	job.Progress = 100
	job.ResultData = result
	return nil
}

func (m *memJobs) Fail(ctx context.Context, id, message string) error {
	job, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusFailed
	job.ErrorMessage = &message
	return nil
}

type memContents struct {
	rows map[string]*domain.Content
}

func newMemContents() *memContents { return &memContents{rows: map[string]*domain.Content{}} }

func (m *memContents) Create(ctx context.Context, content *domain.Content) error {
	clone := *content
	m.rows[content.ID] = &clone
	return nil
}

func (m *memContents) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

func (m *memContents) List(ctx context.Context) ([]domain.Content, error) { return nil, nil }

func (m *memContents) Update(ctx context.Context, id string, patch domain.ContentPatch) (*domain.Content, error) {
	return nil, domain.ErrNotFound
}

func (m *memContents) Delete(ctx context.Context, id string) error { return domain.ErrNotFound }

type memMedia struct {
	rows []domain.MediaFile
}

func (m *memMedia) Create(ctx context.Context, file *domain.MediaFile) error {
	m.rows = append(m.rows, *file)
	return nil
}

func (m *memMedia) ListByContent(ctx context.Context, contentID string) ([]domain.MediaFile, error) {
	return m.rows, nil
}

func (m *memMedia) ListByJob(ctx context.Context, jobID string) ([]domain.MediaFile, error) {
	return m.rows, nil
}

type memFolders struct {
	rows map[string]*domain.StorageFolder
}

func newMemFolders() *memFolders { return &memFolders{rows: map[string]*domain.StorageFolder{}} }

func (m *memFolders) Create(ctx context.Context, folder *domain.StorageFolder) error {
	clone := *folder
	m.rows[folder.ContentID] = &clone
	return nil
}

func (m *memFolders) GetByContent(ctx context.Context, contentID string) (*domain.StorageFolder, error) {
	row, ok := m.rows[contentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *row
	return &clone, nil
}

type fakeLLM struct {
	content       *llm.GeneratedContent
	contentErr    error
	promptErr     map[string]error
	promptCalls   int
	failAllScenes bool
}

func (f *fakeLLM) GenerateContent(ctx context.Context, req llm.ContentRequest) (*llm.GeneratedContent, error) {
	if f.contentErr != nil {
		return nil, f.contentErr
	}
	return f.content, nil
}

func (f *fakeLLM) GenerateMediaPrompt(ctx context.Context, sceneText, presets string) (string, error) {
	f.promptCalls++
	if f.failAllScenes {
		return "", errors.New("model unavailable")
	}
	if err, ok := f.promptErr[sceneText]; ok {
		return "", err
	}
	return "prompt for " + sceneText, nil
}

type fakeHost struct {
	uploads   []string
	folderErr error
	uploadErr map[string]error
}

func (f *fakeHost) CreateFolder(ctx context.Context, name, parentID string) (*filehost.Folder, error) {
	if f.folderErr != nil {
		return nil, f.folderErr
	}
	return &filehost.Folder{ID: "folder-1", Name: name, URL: "https://gofile.io/d/Test"}, nil
}

func (f *fakeHost) UploadFile(ctx context.Context, data []byte, filename, folderID string) (*filehost.Upload, error) {
	if err, ok := f.uploadErr[filename]; ok {
		return nil, err
	}
	f.uploads = append(f.uploads, filename)
	return &filehost.Upload{
		FileID:       "file-" + strconv.Itoa(len(f.uploads)),
		FileName:     filename,
		DownloadPage: "https://gofile.io/d/" + filename,
		Size:         int64(len(data)),
	}, nil
}

func (f *fakeHost) UploadFromURL(ctx context.Context, sourceURL, filename, folderID string) (*filehost.Upload, error) {
	return f.UploadFile(ctx, []byte(sourceURL), filename, folderID)
}

type staticSettings struct{}

func (staticSettings) Get(ctx context.Context) (*domain.AppSettings, error) {
	return domain.DefaultSettings("", "", "", "", ""), nil
}

type fixture struct {
	handlers *Handlers
	jobs     *memJobs
	contents *memContents
	media    *memMedia
	folders  *memFolders
	llm      *fakeLLM
	host     *fakeHost
}

func newFixture() *fixture {
	f := &fixture{
		jobs:     newMemJobs(),
		contents: newMemContents(),
		media:    &memMedia{},
		folders:  newMemFolders(),
		llm:      &fakeLLM{},
		host:     &fakeHost{},
	}
	f.handlers = &Handlers{
		Jobs:     f.jobs,
		Contents: f.contents,
		Media:    f.media,
		Folders:  f.folders,
		LLM:      f.llm,
		Files:    f.host,
		Settings: staticSettings{},
		Logger:   zerolog.New(io.Discard),
	}
	return f
}

func (f *fixture) seedContent(scenes int) *domain.Content {
	script := ""
	for i := 1; i <= scenes; i++ {
		if i > 1 {
			script += "\n\n"
		}
		script += fmt.Sprintf("Scene %d narration.", i)
	}
	content := &domain.Content{
		ID:          "content-1",
		Title:       "Deep Sea Facts",
		Description: "desc",
		Script:      script,
		Status:      domain.ContentStatusCompleted,
		ScenesCount: scenes,
	}
	f.contents.rows[content.ID] = content
	return content
}

func post(t *testing.T, handler http.HandlerFunc, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestContentGenerationCreatesCompletedContent(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-1", domain.JobTypeContentGeneration)
	f.llm.content = &llm.GeneratedContent{
		Title:       "Five Deep Sea Facts",
		Description: "Dive in.",
		Scenes: []llm.Scene{
			{ID: 1, Text: "The abyss begins.", MediaPrompt: "dark descent"},
			{ID: 2, Text: "Anglerfish glow.", MediaPrompt: "glowing lure"},
		},
	}

	rec := post(t, f.handlers.HandleContentGeneration, map[string]string{
		"job_id": "job-1", "mode": "topic", "input": "deep sea",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	job := f.jobs.jobs["job-1"]
	require.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Equal(t, 100, job.Progress)
	require.Equal(t, []int{10, 70, 90}, f.jobs.checkpoints["job-1"])

	var result contentResult
	require.NoError(t, json.Unmarshal(job.ResultData, &result))
	require.Equal(t, 2, result.ScenesCount)
	require.Len(t, result.Scenes, 2)
	require.Equal(t, "The abyss begins.", result.Scenes[0].Text)
	require.Equal(t, "glowing lure", result.Scenes[1].MediaPrompt)

	created := f.contents.rows[result.ContentID]
	require.NotNil(t, created)
	require.Equal(t, domain.ContentStatusCompleted, created.Status)
	require.Equal(t, "The abyss begins.\n\nAnglerfish glow.", created.Script)
}

func TestContentGenerationModelFailureFailsJob(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-1", domain.JobTypeContentGeneration)
	f.llm.contentErr = fmt.Errorf("%w: model down", domain.ErrCollaborator)

	rec := post(t, f.handlers.HandleContentGeneration, map[string]string{
		"job_id": "job-1", "mode": "topic", "input": "deep sea",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	job := f.jobs.jobs["job-1"]
	require.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	require.Contains(t, *job.ErrorMessage, "model down")
}

func TestContentGenerationRejectsBadMode(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-1", domain.JobTypeContentGeneration)

	rec := post(t, f.handlers.HandleContentGeneration, map[string]string{
		"job_id": "job-1", "mode": "dream", "input": "x",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, domain.JobStatusQueued, f.jobs.jobs["job-1"].Status)
}

func TestMediaGenerationAllScenesSucceed(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-m", domain.JobTypeMediaGeneration)
	f.seedContent(3)

	rec := post(t, f.handlers.HandleMediaGeneration, map[string]any{
		"job_id": "job-m", "contentId": "content-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	job := f.jobs.jobs["job-m"]
	require.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Equal(t, []int{5, 20, 43, 66, 90}, f.jobs.checkpoints["job-m"])

	var result mediaResult
	require.NoError(t, json.Unmarshal(job.ResultData, &result))
	require.Equal(t, 3, result.Generated)
	require.Equal(t, 0, result.Failed)
	require.Len(t, f.media.rows, 3)
	require.Equal(t, "https://gofile.io/d/Test", result.FolderURL)

	// the folder was created once and recorded against the content
	folder, err := f.folders.GetByContent(context.Background(), "content-1")
	require.NoError(t, err)
	require.Equal(t, "folder-1", folder.FolderID)
}

func TestMediaGenerationPartialFailureStillCompletes(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-m", domain.JobTypeMediaGeneration)
	f.seedContent(3)
	f.llm.promptErr = map[string]error{
		"Scene 2 narration.": errors.New("scene rejected"),
	}

	rec := post(t, f.handlers.HandleMediaGeneration, map[string]any{
		"job_id": "job-m", "contentId": "content-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	job := f.jobs.jobs["job-m"]
	require.Equal(t, domain.JobStatusCompleted, job.Status)

	var result mediaResult
	require.NoError(t, json.Unmarshal(job.ResultData, &result))
	require.Equal(t, 2, result.Generated)
	require.Equal(t, 1, result.Failed)
	require.Len(t, f.media.rows, 2)
}

func TestMediaGenerationAllScenesFailFailsJob(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-m", domain.JobTypeMediaGeneration)
	f.seedContent(2)
	f.llm.failAllScenes = true

	rec := post(t, f.handlers.HandleMediaGeneration, map[string]any{
		"job_id": "job-m", "contentId": "content-1",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	job := f.jobs.jobs["job-m"]
	require.Equal(t, domain.JobStatusFailed, job.Status)
	require.NotNil(t, job.ErrorMessage)
	require.Contains(t, *job.ErrorMessage, "no media files were generated successfully")
	require.Empty(t, f.media.rows)
}

func TestMediaGenerationReusesExistingFolder(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-m", domain.JobTypeMediaGeneration)
	f.seedContent(1)
	jobID := "earlier-job"
	f.folders.rows["content-1"] = &domain.StorageFolder{
		ContentID: "content-1",
		JobID:     &jobID,
		FolderID:  "existing-folder",
		FolderURL: "https://gofile.io/d/Existing",
	}
	f.host.folderErr = errors.New("should not create a second folder")

	rec := post(t, f.handlers.HandleMediaGeneration, map[string]any{
		"job_id": "job-m", "contentId": "content-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result mediaResult
	require.NoError(t, json.Unmarshal(f.jobs.jobs["job-m"].ResultData, &result))
	require.Equal(t, "https://gofile.io/d/Existing", result.FolderURL)
}

func TestMediaGenerationDuplicateDeliveryLastWriteWins(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-m", domain.JobTypeMediaGeneration)
	f.seedContent(2)

	payload := map[string]any{"job_id": "job-m", "contentId": "content-1"}
	first := post(t, f.handlers.HandleMediaGeneration, payload)
	require.Equal(t, http.StatusOK, first.Code)
	second := post(t, f.handlers.HandleMediaGeneration, payload)
	require.Equal(t, http.StatusOK, second.Code)

	job := f.jobs.jobs["job-m"]
	require.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Equal(t, 100, job.Progress)
	// artifacts from both runs are kept; the job record reflects the last run
	require.Len(t, f.media.rows, 4)
}

func TestTTSGenerationMultiScene(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-t", domain.JobTypeTTSGeneration)
	f.seedContent(3)

	rec := post(t, f.handlers.HandleTTSGeneration, map[string]any{
		"job_id": "job-t", "contentId": "content-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	job := f.jobs.jobs["job-t"]
	require.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Equal(t, []int{10, 30, 60, 80}, f.jobs.checkpoints["job-t"])

	var result ttsResult
	require.NoError(t, json.Unmarshal(job.ResultData, &result))
	require.Len(t, result.Files, 2)
	require.Equal(t, "full_script_audio.mp3", result.Files[0].Filename)
	require.Equal(t, "scene_breakdown_audio.zip", result.Files[1].Filename)
	require.Equal(t, "Aria", result.VoiceSettings.Voice)

	for _, row := range f.media.rows {
		require.Equal(t, domain.MediaTypeAudio, row.Type)
	}
}

func TestTTSGenerationSingleSceneSkipsBreakdown(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-t", domain.JobTypeTTSGeneration)
	f.seedContent(1)

	rec := post(t, f.handlers.HandleTTSGeneration, map[string]any{
		"job_id": "job-t", "contentId": "content-1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result ttsResult
	require.NoError(t, json.Unmarshal(f.jobs.jobs["job-t"].ResultData, &result))
	require.Len(t, result.Files, 1)
}

func TestTTSGenerationEmptyScriptFailsJob(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-t", domain.JobTypeTTSGeneration)
	content := f.seedContent(1)
	content.Script = "   "
	f.contents.rows[content.ID] = content

	rec := post(t, f.handlers.HandleTTSGeneration, map[string]any{
		"job_id": "job-t", "contentId": "content-1",
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, domain.JobStatusFailed, f.jobs.jobs["job-t"].Status)
}

func TestEstimateDuration(t *testing.T) {
	// 300 words at 150 wpm is exactly two minutes
	script := ""
	for i := 0; i < 300; i++ {
		script += "word "
	}
	require.Equal(t, "2:00", estimateDuration(script))
	require.Equal(t, "0:01", estimateDuration("one"))
	require.Equal(t, "0:00", estimateDuration(""))
}

func TestBatchOperationPartialFailureCompletes(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-b", domain.JobTypeBatchOperation)
	f.seedContent(2)
	f.llm.failAllScenes = true // media fails, tts still succeeds

	rec := post(t, f.handlers.HandleBatchOperation, map[string]any{
		"job_id": "job-b", "contentId": "content-1", "operations": []string{"media", "tts"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	job := f.jobs.jobs["job-b"]
	require.Equal(t, domain.JobStatusCompleted, job.Status)
	require.Equal(t, []int{5, 10, 50, 90}, f.jobs.checkpoints["job-b"])

	var result batchResult
	require.NoError(t, json.Unmarshal(job.ResultData, &result))
	require.Equal(t, 1, result.Succeeded)
	require.Equal(t, 1, result.Failed)
	require.Equal(t, "media", result.Operations[0].Operation)
	require.False(t, result.Operations[0].Success)
	require.True(t, result.Operations[1].Success)
}

func TestBatchOperationAllFailFailsJob(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-b", domain.JobTypeBatchOperation)
	f.seedContent(2)
	f.host.folderErr = errors.New("host down")

	rec := post(t, f.handlers.HandleBatchOperation, map[string]any{
		"job_id": "job-b", "contentId": "content-1", "operations": []string{"media", "tts"},
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, domain.JobStatusFailed, f.jobs.jobs["job-b"].Status)
}

func TestBatchOperationRejectsUnknownOperation(t *testing.T) {
	f := newFixture()
	f.jobs.add("job-b", domain.JobTypeBatchOperation)
	f.seedContent(1)

	rec := post(t, f.handlers.HandleBatchOperation, map[string]any{
		"job_id": "job-b", "contentId": "content-1", "operations": []string{"transcode"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, domain.JobStatusQueued, f.jobs.jobs["job-b"].Status)
}
