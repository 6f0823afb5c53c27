package repository

import (
	"context"
	"fmt"
	"time"

	"paeshift-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// JobRepository handles database operations for jobs
type JobRepository struct {
	db *pgxpool.Pool
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *pgxpool.Pool) *JobRepository {
	return &JobRepository{db: db}
}

// Create creates a new job
func (r *JobRepository) Create(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO jobs (id, owner_id, title, description, latitude, longitude, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		job.ID, job.OwnerID, job.Title, job.Description,
		job.Latitude, job.Longitude, job.Status, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// GetByID retrieves a job by ID
func (r *JobRepository) GetByID(ctx context.Context, id string) (*models.Job, error) {
	query := `
		SELECT id, owner_id, title, description, latitude, longitude, status, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`
	var job models.Job
	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.OwnerID, &job.Title, &job.Description,
		&job.Latitude, &job.Longitude, &job.Status, &job.CreatedAt, &job.CompletedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("job not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

// ListOpen retrieves open jobs, newest first, with pagination
func (r *JobRepository) ListOpen(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	query := `
		SELECT id, owner_id, title, description, latitude, longitude, status, created_at, completed_at
		FROM jobs
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, models.JobStatusOpen, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list open jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(
			&job.ID, &job.OwnerID, &job.Title, &job.Description,
			&job.Latitude, &job.Longitude, &job.Status, &job.CreatedAt, &job.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, &job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return jobs, nil
}

// UpdateStatus moves a job from one status to another. Returns an error
// if the job is not currently in the expected status.
func (r *JobRepository) UpdateStatus(ctx context.Context, jobID, from, to string) error {
	query := `UPDATE jobs SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.Exec(ctx, query, to, jobID, from)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job is not %s", from)
	}
	return nil
}

// MarkCompleted moves a job to completed and stamps the completion time
func (r *JobRepository) MarkCompleted(ctx context.Context, jobID string, at time.Time) error {
	query := `
		UPDATE jobs SET status = $1, completed_at = $2
		WHERE id = $3 AND status IN ($4, $5)
	`
	result, err := r.db.Exec(ctx, query,
		models.JobStatusCompleted, at, jobID, models.JobStatusAssigned, models.JobStatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job cannot be completed from its current status")
	}
	return nil
}
