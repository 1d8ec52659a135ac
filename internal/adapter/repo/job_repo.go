package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"crevid/internal/domain"
)

const defaultJobListLimit = 50

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, content_id, type, status, dispatch_message_id, input_data, result_data, error_message, progress, started_at, completed_at, created_at`

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, content_id, type, status, input_data, progress)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.ContentID,
		job.Type,
		job.Status,
		job.InputData,
		job.Progress,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1;`, id)
	return scanJob(row)
}

// List returns jobs matching the filter, most recent first.
func (r *JobRepositoryPG) List(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	var conds []string
	var args []any

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Type != nil {
		args = append(args, *filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultJobListLimit
	}
	args = append(args, limit)

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d;", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListByContent returns all jobs for a content item, most recent first.
func (r *JobRepositoryPG) ListByContent(ctx context.Context, contentID string) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE content_id = $1 ORDER BY created_at DESC;`, contentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// SetDispatchMessageID records the dispatcher handle returned at publish time.
func (r *JobRepositoryPG) SetDispatchMessageID(ctx context.Context, id, messageID string) error {
	return r.exec(ctx, `UPDATE jobs SET dispatch_message_id = $2 WHERE id = $1;`, id, messageID)
}

// MarkProcessing moves a job into processing and stamps started_at.
func (r *JobRepositoryPG) MarkProcessing(ctx context.Context, id string, progress int) error {
	query := `
UPDATE jobs
SET status = $2,
    started_at = NOW(),
    progress = $3
WHERE id = $1;
`
	return r.exec(ctx, query, id, domain.JobStatusProcessing, progress)
}

// SetProgress updates the progress checkpoint.
func (r *JobRepositoryPG) SetProgress(ctx context.Context, id string, progress int) error {
	return r.exec(ctx, `UPDATE jobs SET progress = $2 WHERE id = $1;`, id, progress)
}

// Complete finalizes a job with its result payload.
func (r *JobRepositoryPG) Complete(ctx context.Context, id string, result []byte) error {
	query := `
UPDATE jobs
SET status = $2,
    progress = 100,
    result_data = $3,
    completed_at = NOW()
WHERE id = $1;
`
	return r.exec(ctx, query, id, domain.JobStatusCompleted, nullableBytes(result))
}

// Fail finalizes a job with an error message.
func (r *JobRepositoryPG) Fail(ctx context.Context, id, message string) error {
	query := `
UPDATE jobs
SET status = $2,
    error_message = $3,
    completed_at = NOW()
WHERE id = $1;
`
	return r.exec(ctx, query, id, domain.JobStatusFailed, message)
}

// Requeue resets a failed job back to queued ahead of a retry dispatch.
func (r *JobRepositoryPG) Requeue(ctx context.Context, id string) error {
	query := `
UPDATE jobs
SET status = $2,
    error_message = NULL,
    progress = 0,
    started_at = NULL,
    completed_at = NULL
WHERE id = $1;
`
	return r.exec(ctx, query, id, domain.JobStatusQueued)
}

func (r *JobRepositoryPG) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var j domain.Job
	if err := row.Scan(
		&j.ID,
		&j.ContentID,
		&j.Type,
		&j.Status,
		&j.DispatchMessageID,
		&j.InputData,
		&j.ResultData,
		&j.ErrorMessage,
		&j.Progress,
		&j.StartedAt,
		&j.CompletedAt,
		&j.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	var items []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *j)
	}
	return items, rows.Err()
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
