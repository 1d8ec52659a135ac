package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crevid/internal/domain"
)

// MediaFileRepositoryPG implements domain.MediaFileRepository.
type MediaFileRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewMediaFileRepository creates a new media file repository backed by PostgreSQL.
func NewMediaFileRepository(pool *pgxpool.Pool) *MediaFileRepositoryPG {
	return &MediaFileRepositoryPG{pool: pool}
}

const mediaFileColumns = `id, content_id, job_id, type, filename, hosted_url, scene_id, file_size, created_at`

// Create inserts a new media file record.
func (r *MediaFileRepositoryPG) Create(ctx context.Context, file *domain.MediaFile) error {
	query := `
INSERT INTO media_files (id, content_id, job_id, type, filename, hosted_url, scene_id, file_size)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
`
	_, err := r.pool.Exec(ctx, query,
		file.ID,
		file.ContentID,
		file.JobID,
		file.Type,
		file.Filename,
		file.HostedURL,
		file.SceneID,
		file.FileSize,
	)
	return err
}

// ListByContent returns all hosted artifacts for a content item.
func (r *MediaFileRepositoryPG) ListByContent(ctx context.Context, contentID string) ([]domain.MediaFile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mediaFileColumns+` FROM media_files WHERE content_id = $1 ORDER BY created_at;`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMediaFiles(rows)
}

// ListByJob returns the artifacts a single job produced.
func (r *MediaFileRepositoryPG) ListByJob(ctx context.Context, jobID string) ([]domain.MediaFile, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+mediaFileColumns+` FROM media_files WHERE job_id = $1 ORDER BY created_at;`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectMediaFiles(rows)
}

func collectMediaFiles(rows pgx.Rows) ([]domain.MediaFile, error) {
	var items []domain.MediaFile
	for rows.Next() {
		var f domain.MediaFile
		if err := rows.Scan(
			&f.ID,
			&f.ContentID,
			&f.JobID,
			&f.Type,
			&f.Filename,
			&f.HostedURL,
			&f.SceneID,
			&f.FileSize,
			&f.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
