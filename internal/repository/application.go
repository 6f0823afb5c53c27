package repository

import (
	"context"
	"fmt"

	"paeshift-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationRepository handles database operations for applications
type ApplicationRepository struct {
	db *pgxpool.Pool
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

// Create creates a new application
func (r *ApplicationRepository) Create(ctx context.Context, app *models.Application) error {
	query := `
		INSERT INTO applications (id, job_id, applicant_id, accepted, submitted_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		app.ID, app.JobID, app.ApplicantID, app.Accepted, app.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `
		SELECT id, job_id, applicant_id, accepted, submitted_at
		FROM applications
		WHERE id = $1
	`
	var app models.Application
	err := r.db.QueryRow(ctx, query, id).Scan(
		&app.ID, &app.JobID, &app.ApplicantID, &app.Accepted, &app.SubmittedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("application not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return &app, nil
}

// HasApplied checks if a user has already applied to a job
func (r *ApplicationRepository) HasApplied(ctx context.Context, jobID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE job_id = $1 AND applicant_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, jobID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check application existence: %w", err)
	}
	return exists, nil
}

// HasAccepted checks if a user holds the accepted application for a job
func (r *ApplicationRepository) HasAccepted(ctx context.Context, jobID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM applications WHERE job_id = $1 AND applicant_id = $2 AND accepted)`
	var exists bool
	err := r.db.QueryRow(ctx, query, jobID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check accepted application: %w", err)
	}
	return exists, nil
}

// GetAcceptedForJob retrieves the accepted application for a job, if any
func (r *ApplicationRepository) GetAcceptedForJob(ctx context.Context, jobID string) (*models.Application, error) {
	query := `
		SELECT id, job_id, applicant_id, accepted, submitted_at
		FROM applications
		WHERE job_id = $1 AND accepted
		LIMIT 1
	`
	var app models.Application
	err := r.db.QueryRow(ctx, query, jobID).Scan(
		&app.ID, &app.JobID, &app.ApplicantID, &app.Accepted, &app.SubmittedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no accepted application: %w", err)
		}
		return nil, fmt.Errorf("failed to get accepted application: %w", err)
	}
	return &app, nil
}

// Accept marks an application as accepted. The guard subquery keeps at
// most one accepted application per job even under concurrent accepts.
func (r *ApplicationRepository) Accept(ctx context.Context, applicationID, jobID string) error {
	query := `
		UPDATE applications SET accepted = TRUE
		WHERE id = $1
		  AND NOT accepted
		  AND NOT EXISTS (
			SELECT 1 FROM applications WHERE job_id = $2 AND accepted
		  )
	`
	result, err := r.db.Exec(ctx, query, applicationID, jobID)
	if err != nil {
		return fmt.Errorf("failed to accept application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job already has an accepted application")
	}
	return nil
}

// ListPendingWithProfiles retrieves pending applications for a job joined
// with each applicant's last known location and rating aggregates. The
// aggregates are derived on read and never stored.
func (r *ApplicationRepository) ListPendingWithProfiles(ctx context.Context, jobID string) ([]models.PendingApplicant, error) {
	query := `
		SELECT
			a.id, a.job_id, a.applicant_id, a.accepted, a.submitted_at,
			u.username,
			loc.latitude, loc.longitude,
			agg.avg_score,
			COALESCE(done.completed_jobs, 0)
		FROM applications a
		JOIN users u ON u.id = a.applicant_id
		LEFT JOIN LATERAL (
			SELECT latitude, longitude
			FROM location_samples
			WHERE user_id = a.applicant_id
			ORDER BY recorded_at DESC
			LIMIT 1
		) loc ON TRUE
		LEFT JOIN LATERAL (
			SELECT AVG(score)::float8 AS avg_score
			FROM ratings
			WHERE ratee_id = a.applicant_id
		) agg ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS completed_jobs
			FROM applications done
			JOIN jobs j ON j.id = done.job_id
			WHERE done.applicant_id = a.applicant_id
			  AND done.accepted
			  AND j.status = 'completed'
		) done ON TRUE
		WHERE a.job_id = $1 AND NOT a.accepted
		ORDER BY a.submitted_at ASC
	`
	rows, err := r.db.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending applicants: %w", err)
	}
	defer rows.Close()

	var out []models.PendingApplicant
	for rows.Next() {
		var p models.PendingApplicant
		if err := rows.Scan(
			&p.Application.ID, &p.Application.JobID, &p.Application.ApplicantID,
			&p.Application.Accepted, &p.Application.SubmittedAt,
			&p.Username,
			&p.LastLatitude, &p.LastLongitude,
			&p.AverageRating,
			&p.CompletedJobs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan pending applicant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pending applicants: %w", err)
	}
	return out, nil
}
