package repository

import (
	"context"
	"fmt"

	"paeshift-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RatingRepository handles database operations for ratings
type RatingRepository struct {
	db *pgxpool.Pool
}

// NewRatingRepository creates a new rating repository
func NewRatingRepository(db *pgxpool.Pool) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create creates a new rating
func (r *RatingRepository) Create(ctx context.Context, rating *models.Rating) error {
	query := `
		INSERT INTO ratings (id, job_id, rater_id, ratee_id, score, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.Exec(ctx, query,
		rating.ID, rating.JobID, rating.RaterID, rating.RateeID,
		rating.Score, rating.Comment, rating.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rating: %w", err)
	}
	return nil
}

// HasRated checks if a user already rated a counterpart on a job
func (r *RatingRepository) HasRated(ctx context.Context, jobID, raterID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ratings WHERE job_id = $1 AND rater_id = $2)`
	var exists bool
	err := r.db.QueryRow(ctx, query, jobID, raterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check rating existence: %w", err)
	}
	return exists, nil
}

// AverageForUser computes a user's average received score on read.
// Returns nil when the user has never been rated.
func (r *RatingRepository) AverageForUser(ctx context.Context, userID string) (*float64, error) {
	query := `SELECT AVG(score)::float8 FROM ratings WHERE ratee_id = $1`
	var avg *float64
	err := r.db.QueryRow(ctx, query, userID).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to compute average rating: %w", err)
	}
	return avg, nil
}
