// Package filehost wraps the external file-hosting collaborator that stores
// generated media and audio artifacts in per-content folders.
package filehost

import "context"

// Folder is a remote directory that groups one content item's artifacts.
type Folder struct {
	ID   string
	Name string
	URL  string
}

// Upload is the hosting record for one stored artifact.
type Upload struct {
	FileID       string
	FileName     string
	DownloadPage string
	Size         int64
}

// Host is the storage contract consumed by the worker handlers.
type Host interface {
	CreateFolder(ctx context.Context, name, parentID string) (*Folder, error)
	UploadFile(ctx context.Context, data []byte, filename, folderID string) (*Upload, error)
	UploadFromURL(ctx context.Context, sourceURL, filename, folderID string) (*Upload, error)
}
