package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dreamboard/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job history repository.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record at submission acceptance.
func (r *JobRepositoryPG) Create(ctx context.Context, record *domain.JobRecord) error {
	query := `
INSERT INTO generation_jobs (id, session_id, prompt, status, output, detail)
VALUES ($1, $2, $3, $4, $5, $6);
`
	_, err := r.pool.Exec(ctx, query,
		record.ID,
		record.SessionID,
		record.Prompt,
		record.Status,
		record.Output,
		record.Detail,
	)
	return err
}

// UpdateStatus records the latest reported status and output for a job.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, output []string, detail string) error {
	query := `
UPDATE generation_jobs
SET status = $2,
    output = $3,
    detail = $4,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, status, output, detail)
	return err
}

// GetByID fetches a job record by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.JobRecord, error) {
	query := `
SELECT id, session_id, prompt, status, output, detail, created_at, updated_at
FROM generation_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// ListRecent returns the newest records for a session, newest first.
func (r *JobRepositoryPG) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.JobRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
SELECT id, session_id, prompt, status, output, detail, created_at, updated_at
FROM generation_jobs
WHERE session_id = $1
ORDER BY created_at DESC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.JobRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

func scanRecord(row pgx.Row) (*domain.JobRecord, error) {
	var record domain.JobRecord
	if err := row.Scan(
		&record.ID,
		&record.SessionID,
		&record.Prompt,
		&record.Status,
		&record.Output,
		&record.Detail,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &record, nil
}
