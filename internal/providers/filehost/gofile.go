package filehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"regexp"
	"strings"
	"time"

	"crevid/internal/domain"
	"crevid/internal/infra"
	"crevid/internal/retry"
)

const (
	gofileDefaultTimeout = 2 * time.Minute
	downloadPageBase     = "https://gofile.io/d/"
)

// Settings supplies the hosting token at call time.
type Settings interface {
	Get(ctx context.Context) (*domain.AppSettings, error)
}

// Options controls how the GoFile client is configured.
type Options struct {
	BaseURL    string
	Settings   Settings
	HTTPClient *http.Client
	Logger     infra.Logger
	Backoff    retry.Backoff
}

// GoFileClient implements Host against the GoFile store API.
type GoFileClient struct {
	baseURL  string
	settings Settings
	client   *http.Client
	logger   infra.Logger
	backoff  retry.Backoff
}

// NewGoFileClient constructs a GoFile-backed host.
func NewGoFileClient(opts Options) (*GoFileClient, error) {
	if opts.Settings == nil {
		return nil, errors.New("filehost: settings source is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://store1.gofile.io"
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: gofileDefaultTimeout}
	}
	backoff := opts.Backoff
	if backoff.Attempts == 0 {
		backoff = retry.Backoff{Attempts: 3, BaseDelay: 2 * time.Second}
	}
	return &GoFileClient{
		baseURL:  baseURL,
		settings: opts.Settings,
		client:   client,
		logger:   opts.Logger,
		backoff:  backoff,
	}, nil
}

type apiEnvelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type folderData struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type uploadData struct {
	FileID       string `json:"fileId"`
	FileName     string `json:"fileName"`
	DownloadPage string `json:"downloadPage"`
}

// CreateFolder makes a remote folder for one content item's artifacts.
func (g *GoFileClient) CreateFolder(ctx context.Context, name, parentID string) (*Folder, error) {
	if parentID == "" {
		parentID = "root"
	}
	return retry.Do(ctx, g.backoff, func(ctx context.Context) (*Folder, error) {
		token, err := g.token(ctx)
		if err != nil {
			return nil, err
		}

		body, err := json.Marshal(map[string]string{
			"parentFolderId": parentID,
			"folderName":     name,
		})
		if err != nil {
			return nil, fmt.Errorf("filehost: encode folder request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/createFolder", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		var data folderData
		if err := g.do(req, &data); err != nil {
			return nil, err
		}

		folder := &Folder{
			ID:   data.ID,
			Name: data.Name,
			URL:  downloadPageBase + data.Code,
		}
		g.logger.Info().Str("folder_id", folder.ID).Str("name", folder.Name).Msg("hosting folder created")
		return folder, nil
	})
}

// UploadFile stores one artifact's bytes into folderID. Filenames are
// sanitized so scene titles never produce hostile path characters.
func (g *GoFileClient) UploadFile(ctx context.Context, data []byte, filename, folderID string) (*Upload, error) {
	filename = SanitizeFilename(filename)
	backoff := retry.Backoff{Attempts: 5, BaseDelay: 1500 * time.Millisecond, Sleep: g.backoff.Sleep}
	return retry.Do(ctx, backoff, func(ctx context.Context) (*Upload, error) {
		token, err := g.token(ctx)
		if err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		form := multipart.NewWriter(&buf)
		part, err := form.CreateFormFile("file", filename)
		if err != nil {
			return nil, fmt.Errorf("filehost: build form: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, fmt.Errorf("filehost: build form: %w", err)
		}
		if folderID != "" {
			if err := form.WriteField("folderId", folderID); err != nil {
				return nil, fmt.Errorf("filehost: build form: %w", err)
			}
		}
		if err := form.Close(); err != nil {
			return nil, fmt.Errorf("filehost: build form: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/uploadFile", &buf)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", form.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)

		var parsed uploadData
		if err := g.do(req, &parsed); err != nil {
			return nil, err
		}

		upload := &Upload{
			FileID:       parsed.FileID,
			FileName:     parsed.FileName,
			DownloadPage: parsed.DownloadPage,
			Size:         int64(len(data)),
		}
		if upload.FileName == "" {
			upload.FileName = filename
		}
		g.logger.Info().Str("file_id", upload.FileID).Str("name", upload.FileName).Msg("artifact uploaded")
		return upload, nil
	})
}

// UploadFromURL fetches sourceURL and stores the bytes under filename. Used
// when a generation collaborator hands back a hosted asset instead of bytes.
func (g *GoFileClient) UploadFromURL(ctx context.Context, sourceURL, filename, folderID string) (*Upload, error) {
	data, err := retry.Do(ctx, g.backoff, func(ctx context.Context) ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
		if err != nil {
			return nil, err
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCollaborator, err)
		}
		defer func() {
			_ = resp.Body.Close()
		}()
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("%w: fetch source status %d", domain.ErrCollaborator, resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, err
	}
	return g.UploadFile(ctx, data, filename, folderID)
}

func (g *GoFileClient) token(ctx context.Context) (string, error) {
	settings, err := g.settings.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("filehost: load settings: %w", err)
	}
	token := strings.TrimSpace(settings.GoFileToken)
	if token == "" {
		return "", fmt.Errorf("%w: hosting token not configured", domain.ErrCollaborator)
	}
	return token, nil
}

func (g *GoFileClient) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCollaborator, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: hosting status %d: %s", domain.ErrCollaborator, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("%w: decode hosting response: %v", domain.ErrCollaborator, err)
	}
	if envelope.Status != "ok" {
		return fmt.Errorf("%w: hosting status %q", domain.ErrCollaborator, envelope.Status)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: decode hosting data: %v", domain.ErrCollaborator, err)
	}
	return nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9.-]+`)

// SanitizeFilename lowercases the name and collapses anything outside
// [a-z0-9.-] into single underscores.
func SanitizeFilename(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}
