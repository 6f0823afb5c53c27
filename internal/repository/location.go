package repository

import (
	"context"
	"fmt"
	"time"

	"paeshift-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationRepository handles database operations for location samples
type LocationRepository struct {
	db *pgxpool.Pool
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{db: db}
}

// Record stores a location sample under the stationary-retention policy:
// the first two samples at a given (user, lat, lon) tuple insert distinct
// rows; from the third on, the most recent row's timestamp and address
// are updated in place. The whole decision runs as one SQL statement so
// concurrent reports cannot interleave a read-then-write.
// Returns true when a new row was inserted.
func (r *LocationRepository) Record(ctx context.Context, sample *models.LocationSample) (bool, error) {
	query := `
		WITH recent AS (
			SELECT id, recorded_at
			FROM location_samples
			WHERE job_id = $2 AND user_id = $3 AND latitude = $4 AND longitude = $5
			ORDER BY recorded_at DESC
			LIMIT 2
		), touched AS (
			UPDATE location_samples
			SET recorded_at = $7, address = $6
			WHERE id = (SELECT id FROM recent ORDER BY recorded_at DESC LIMIT 1)
			  AND (SELECT COUNT(*) FROM recent) >= 2
			RETURNING id
		)
		INSERT INTO location_samples (id, job_id, user_id, latitude, longitude, address, recorded_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE NOT EXISTS (SELECT 1 FROM touched)
	`
	result, err := r.db.Exec(ctx, query,
		sample.ID, sample.JobID, sample.UserID,
		sample.Latitude, sample.Longitude, sample.Address, sample.RecordedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record location sample: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListByJobUser retrieves a user's samples for a job, newest first
func (r *LocationRepository) ListByJobUser(ctx context.Context, jobID, userID string, limit int) ([]*models.LocationSample, error) {
	query := `
		SELECT id, job_id, user_id, latitude, longitude, address, recorded_at
		FROM location_samples
		WHERE job_id = $1 AND user_id = $2
		ORDER BY recorded_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, jobID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list location samples: %w", err)
	}
	defer rows.Close()

	var samples []*models.LocationSample
	for rows.Next() {
		var s models.LocationSample
		if err := rows.Scan(
			&s.ID, &s.JobID, &s.UserID, &s.Latitude, &s.Longitude, &s.Address, &s.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location sample: %w", err)
		}
		samples = append(samples, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read location samples: %w", err)
	}
	return samples, nil
}

// PruneOlderThan deletes samples recorded before the cutoff and returns
// the number of rows removed.
func (r *LocationRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM location_samples WHERE recorded_at < $1`
	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune location samples: %w", err)
	}
	return result.RowsAffected(), nil
}
