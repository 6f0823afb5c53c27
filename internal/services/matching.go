package services

import (
	"context"
	"fmt"
	"sort"

	"paeshift-backend/internal/geo"
	"paeshift-backend/internal/models"
)

// MatchingJobStore is the job lookup the matching engine needs
type MatchingJobStore interface {
	GetByID(ctx context.Context, id string) (*models.Job, error)
}

// MatchingApplicationStore is the applicant lookup the matching engine needs
type MatchingApplicationStore interface {
	ListPendingWithProfiles(ctx context.Context, jobID string) ([]models.PendingApplicant, error)
}

// MatchingService ranks pending applicants for a job by distance and
// rating. It is a pure read-and-rank component: no writes, safe to call
// repeatedly and concurrently.
type MatchingService struct {
	jobs          MatchingJobStore
	applications  MatchingApplicationStore
	maxDistanceKm float64
}

// NewMatchingService creates a new matching service. maxDistanceKm is
// the default radius used when a caller passes a non-positive one.
func NewMatchingService(jobs MatchingJobStore, applications MatchingApplicationStore, maxDistanceKm float64) *MatchingService {
	return &MatchingService{
		jobs:          jobs,
		applications:  applications,
		maxDistanceKm: maxDistanceKm,
	}
}

// FindBestApplicants returns the job's pending applications within
// maxDistanceKm of the job's location, ordered by distance ascending
// with ties broken by descending average rating. A job without
// coordinates yields an empty result, not an error. Applicants with no
// location on file are skipped; an applicant who has never been rated
// ranks with a rating of 0.
func (s *MatchingService) FindBestApplicants(ctx context.Context, jobID string, maxDistanceKm float64) ([]models.RankedApplication, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if !job.HasLocation() {
		return []models.RankedApplication{}, nil
	}
	if maxDistanceKm <= 0 {
		maxDistanceKm = s.maxDistanceKm
	}

	pending, err := s.applications.ListPendingWithProfiles(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending applicants: %w", err)
	}

	ranked := make([]models.RankedApplication, 0, len(pending))
	for _, p := range pending {
		if p.LastLatitude == nil || p.LastLongitude == nil {
			continue
		}
		distance := geo.HaversineKm(*job.Latitude, *job.Longitude, *p.LastLatitude, *p.LastLongitude)
		if distance > maxDistanceKm {
			continue
		}
		rating := 0.0
		if p.AverageRating != nil {
			rating = *p.AverageRating
		}
		ranked = append(ranked, models.RankedApplication{
			Application:   p.Application,
			Username:      p.Username,
			DistanceKm:    distance,
			AverageRating: rating,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].DistanceKm != ranked[j].DistanceKm {
			return ranked[i].DistanceKm < ranked[j].DistanceKm
		}
		return ranked[i].AverageRating > ranked[j].AverageRating
	})

	return ranked, nil
}
