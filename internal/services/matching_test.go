package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"paeshift-backend/internal/models"
	"paeshift-backend/internal/services"
)

type fakeJobStore struct {
	jobs map[string]*models.Job
}

func (f *fakeJobStore) GetByID(_ context.Context, id string) (*models.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found")
	}
	return job, nil
}

type fakePendingStore struct {
	pending map[string][]models.PendingApplicant
}

func (f *fakePendingStore) ListPendingWithProfiles(_ context.Context, jobID string) ([]models.PendingApplicant, error) {
	return f.pending[jobID], nil
}

func f64(v float64) *float64 { return &v }

func pendingApplicant(id string, lat, lon, rating *float64) models.PendingApplicant {
	return models.PendingApplicant{
		Application: models.Application{
			ID:          id,
			JobID:       "job-1",
			ApplicantID: "user-" + id,
			SubmittedAt: time.Now(),
		},
		Username:      "user-" + id,
		LastLatitude:  lat,
		LastLongitude: lon,
		AverageRating: rating,
	}
}

func newMatcher(job *models.Job, pending []models.PendingApplicant) *services.MatchingService {
	jobs := &fakeJobStore{jobs: map[string]*models.Job{job.ID: job}}
	apps := &fakePendingStore{pending: map[string][]models.PendingApplicant{job.ID: pending}}
	return services.NewMatchingService(jobs, apps, 50)
}

func lagosJob() *models.Job {
	return &models.Job{
		ID:        "job-1",
		OwnerID:   "owner",
		Status:    models.JobStatusOpen,
		Latitude:  f64(6.5),
		Longitude: f64(3.3),
	}
}

// About 0.0899 degrees of latitude per 10 km.
const degPer10Km = 10.0 / 111.195

func TestFindBestApplicants_DistanceThenRating(t *testing.T) {
	// A and B sit at the same point ~10 km north of the job; C is ~60 km
	// out. Radius 50 excludes C, and the 10 km tie goes to B's higher
	// rating.
	pending := []models.PendingApplicant{
		pendingApplicant("A", f64(6.5+degPer10Km), f64(3.3), f64(4.0)),
		pendingApplicant("B", f64(6.5+degPer10Km), f64(3.3), f64(4.5)),
		pendingApplicant("C", f64(6.5+6*degPer10Km), f64(3.3), f64(5.0)),
	}
	m := newMatcher(lagosJob(), pending)

	ranked, err := m.FindBestApplicants(context.Background(), "job-1", 50)
	if err != nil {
		t.Fatalf("FindBestApplicants returned error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Application.ID != "B" || ranked[1].Application.ID != "A" {
		t.Errorf("got order [%s %s], want [B A]", ranked[0].Application.ID, ranked[1].Application.ID)
	}
	if ranked[0].DistanceKm != ranked[1].DistanceKm {
		t.Errorf("A and B should be equidistant, got %v and %v", ranked[0].DistanceKm, ranked[1].DistanceKm)
	}
}

func TestFindBestApplicants_JobWithoutCoordinates(t *testing.T) {
	job := lagosJob()
	job.Latitude = nil
	job.Longitude = nil
	pending := []models.PendingApplicant{
		pendingApplicant("A", f64(6.5), f64(3.3), f64(5.0)),
	}
	m := newMatcher(job, pending)

	ranked, err := m.FindBestApplicants(context.Background(), "job-1", 50)
	if err != nil {
		t.Fatalf("FindBestApplicants returned error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %d results for a job without coordinates, want 0", len(ranked))
	}
}

func TestFindBestApplicants_NoPendingApplicants(t *testing.T) {
	m := newMatcher(lagosJob(), nil)

	ranked, err := m.FindBestApplicants(context.Background(), "job-1", 50)
	if err != nil {
		t.Fatalf("FindBestApplicants returned error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %d results, want 0", len(ranked))
	}
}

func TestFindBestApplicants_SkipsApplicantsWithoutLocation(t *testing.T) {
	pending := []models.PendingApplicant{
		pendingApplicant("A", nil, nil, f64(5.0)),
		pendingApplicant("B", f64(6.5+degPer10Km), f64(3.3), f64(1.0)),
	}
	m := newMatcher(lagosJob(), pending)

	ranked, err := m.FindBestApplicants(context.Background(), "job-1", 50)
	if err != nil {
		t.Fatalf("FindBestApplicants returned error: %v", err)
	}
	if len(ranked) != 1 || ranked[0].Application.ID != "B" {
		t.Errorf("got %v, want just B", ranked)
	}
}

func TestFindBestApplicants_UnratedRanksLowest(t *testing.T) {
	// Same point, one applicant never rated: the rated one wins the tie.
	pending := []models.PendingApplicant{
		pendingApplicant("A", f64(6.5+degPer10Km), f64(3.3), nil),
		pendingApplicant("B", f64(6.5+degPer10Km), f64(3.3), f64(0.5)),
	}
	m := newMatcher(lagosJob(), pending)

	ranked, err := m.FindBestApplicants(context.Background(), "job-1", 50)
	if err != nil {
		t.Fatalf("FindBestApplicants returned error: %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("got %d results, want 2", len(ranked))
	}
	if ranked[0].Application.ID != "B" {
		t.Errorf("rated applicant should rank above unrated, got %s first", ranked[0].Application.ID)
	}
	if ranked[1].AverageRating != 0 {
		t.Errorf("unrated applicant should carry rating 0, got %v", ranked[1].AverageRating)
	}
}

func TestFindBestApplicants_DefaultRadius(t *testing.T) {
	// ~60 km out: excluded under the configured default of 50 km when
	// the caller passes no radius.
	pending := []models.PendingApplicant{
		pendingApplicant("C", f64(6.5+6*degPer10Km), f64(3.3), f64(5.0)),
	}
	m := newMatcher(lagosJob(), pending)

	ranked, err := m.FindBestApplicants(context.Background(), "job-1", 0)
	if err != nil {
		t.Fatalf("FindBestApplicants returned error: %v", err)
	}
	if len(ranked) != 0 {
		t.Errorf("got %d results, want 0", len(ranked))
	}
}
