package domain

import "context"

// JobRepository defines persistence for job history rows.
type JobRepository interface {
	Create(ctx context.Context, record *JobRecord) error
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, output []string, detail string) error
	GetByID(ctx context.Context, jobID string) (*JobRecord, error)
	ListRecent(ctx context.Context, sessionID string, limit int) ([]JobRecord, error)
}
