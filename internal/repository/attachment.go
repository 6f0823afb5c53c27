package repository

import (
	"context"
	"fmt"

	"paeshift-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AttachmentRepository handles database operations for job attachments
type AttachmentRepository struct {
	db *pgxpool.Pool
}

// NewAttachmentRepository creates a new attachment repository
func NewAttachmentRepository(db *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

// Create creates a new attachment record
func (r *AttachmentRepository) Create(ctx context.Context, att *models.Attachment) error {
	query := `
		INSERT INTO attachments (id, job_id, user_id, s3_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, att.ID, att.JobID, att.UserID, att.S3URL, att.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

// UpdateS3URL updates the S3 URL after a confirmed upload
func (r *AttachmentRepository) UpdateS3URL(ctx context.Context, attachmentID, s3URL string) error {
	query := `UPDATE attachments SET s3_url = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, s3URL, attachmentID)
	if err != nil {
		return fmt.Errorf("failed to update attachment url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("attachment not found")
	}
	return nil
}

// ListByJob retrieves a job's attachments in upload order
func (r *AttachmentRepository) ListByJob(ctx context.Context, jobID string) ([]*models.Attachment, error) {
	query := `
		SELECT id, job_id, user_id, s3_url, created_at
		FROM attachments
		WHERE job_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	defer rows.Close()

	var attachments []*models.Attachment
	for rows.Next() {
		var att models.Attachment
		if err := rows.Scan(&att.ID, &att.JobID, &att.UserID, &att.S3URL, &att.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan attachment: %w", err)
		}
		attachments = append(attachments, &att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attachments: %w", err)
	}
	return attachments, nil
}
