package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crevid/internal/domain"
)

// StorageFolderRepositoryPG implements domain.StorageFolderRepository.
type StorageFolderRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewStorageFolderRepository creates a new storage folder repository backed by PostgreSQL.
func NewStorageFolderRepository(pool *pgxpool.Pool) *StorageFolderRepositoryPG {
	return &StorageFolderRepositoryPG{pool: pool}
}

// Create inserts a new storage folder record.
func (r *StorageFolderRepositoryPG) Create(ctx context.Context, folder *domain.StorageFolder) error {
	query := `
INSERT INTO storage_folders (id, content_id, job_id, folder_id, folder_url, folder_name)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		folder.ID,
		folder.ContentID,
		folder.JobID,
		folder.FolderID,
		folder.FolderURL,
		folder.FolderName,
	)
	return err
}

// GetByContent fetches the folder for a content item, if one was created.
func (r *StorageFolderRepositoryPG) GetByContent(ctx context.Context, contentID string) (*domain.StorageFolder, error) {
	query := `
SELECT id, content_id, job_id, folder_id, folder_url, folder_name, created_at
FROM storage_folders
WHERE content_id = $1
LIMIT 1;
`
	row := r.pool.QueryRow(ctx, query, contentID)
	var f domain.StorageFolder
	if err := row.Scan(
		&f.ID,
		&f.ContentID,
		&f.JobID,
		&f.FolderID,
		&f.FolderURL,
		&f.FolderName,
		&f.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}
