package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crevid/internal/domain"
)

// ContentRepositoryPG implements domain.ContentRepository.
type ContentRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewContentRepository creates a new content repository backed by PostgreSQL.
func NewContentRepository(pool *pgxpool.Pool) *ContentRepositoryPG {
	return &ContentRepositoryPG{pool: pool}
}

const contentColumns = `id, title, description, script, status, scenes_count, created_at, updated_at`

// Create inserts a new content record.
func (r *ContentRepositoryPG) Create(ctx context.Context, content *domain.Content) error {
	query := `
INSERT INTO contents (id, title, description, script, status, scenes_count)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		content.ID,
		content.Title,
		content.Description,
		content.Script,
		content.Status,
		content.ScenesCount,
	)
	return err
}

// GetByID fetches a content record by its identifier.
func (r *ContentRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Content, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = $1;`, id)
	return scanContent(row)
}

// List returns all contents, most recent first.
func (r *ContentRepositoryPG) List(ctx context.Context) ([]domain.Content, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+contentColumns+` FROM contents ORDER BY created_at DESC;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []domain.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

// Update applies a partial update and returns the new row.
func (r *ContentRepositoryPG) Update(ctx context.Context, id string, patch domain.ContentPatch) (*domain.Content, error) {
	query := `
UPDATE contents
SET title = COALESCE($2, title),
    description = COALESCE($3, description),
    script = COALESCE($4, script),
    updated_at = NOW()
WHERE id = $1
RETURNING ` + contentColumns + `;
`
	row := r.pool.QueryRow(ctx, query, id, patch.Title, patch.Description, patch.Script)
	return scanContent(row)
}

// Delete removes a content record; dependent jobs, files and folders cascade.
func (r *ContentRepositoryPG) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contents WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanContent(row pgx.Row) (*domain.Content, error) {
	var c domain.Content
	if err := row.Scan(
		&c.ID,
		&c.Title,
		&c.Description,
		&c.Script,
		&c.Status,
		&c.ScenesCount,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}
