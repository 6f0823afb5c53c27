package services

import (
	"context"
	"fmt"
	"time"

	"paeshift-backend/internal/models"
	"paeshift-backend/internal/repository"

	"github.com/google/uuid"
)

// JobService handles the job lifecycle, applications and ratings
type JobService struct {
	jobRepo    *repository.JobRepository
	appRepo    *repository.ApplicationRepository
	ratingRepo *repository.RatingRepository
}

// NewJobService creates a new job service
func NewJobService(jobRepo *repository.JobRepository, appRepo *repository.ApplicationRepository, ratingRepo *repository.RatingRepository) *JobService {
	return &JobService{
		jobRepo:    jobRepo,
		appRepo:    appRepo,
		ratingRepo: ratingRepo,
	}
}

// CreateJob posts a new open job. Coordinates are optional; a job
// without them cannot be matched until they are set.
func (s *JobService) CreateJob(ctx context.Context, ownerID, title, description string, lat, lon *float64) (*models.Job, error) {
	if (lat == nil) != (lon == nil) {
		return nil, fmt.Errorf("latitude and longitude must be provided together")
	}

	job := &models.Job{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Latitude:    lat,
		Longitude:   lon,
		Status:      models.JobStatusOpen,
		CreatedAt:   time.Now(),
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	return job, nil
}

// GetJob retrieves a job by ID
func (s *JobService) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	return s.jobRepo.GetByID(ctx, jobID)
}

// ListOpenJobs retrieves open jobs with pagination
func (s *JobService) ListOpenJobs(ctx context.Context, limit, offset int) ([]*models.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	jobs, err := s.jobRepo.ListOpen(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []*models.Job{}
	}
	return jobs, nil
}

// Apply submits an application to an open job
func (s *JobService) Apply(ctx context.Context, jobID, applicantID string) (*models.Application, error) {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	if job.Status != models.JobStatusOpen {
		return nil, fmt.Errorf("job is not open")
	}
	if job.OwnerID == applicantID {
		return nil, fmt.Errorf("cannot apply to your own job")
	}

	applied, err := s.appRepo.HasApplied(ctx, jobID, applicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing application: %w", err)
	}
	if applied {
		return nil, fmt.Errorf("already applied to this job")
	}

	app := &models.Application{
		ID:          uuid.New().String(),
		JobID:       jobID,
		ApplicantID: applicantID,
		SubmittedAt: time.Now(),
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return app, nil
}

// Accept marks an application as accepted and moves the job to
// assigned. Only the job owner may accept, and a job accepts at most
// one application.
func (s *JobService) Accept(ctx context.Context, applicationID, ownerID string) (*models.Application, error) {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("application not found: %w", err)
	}

	job, err := s.jobRepo.GetByID(ctx, app.JobID)
	if err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	if job.OwnerID != ownerID {
		return nil, fmt.Errorf("only the job owner can accept applications")
	}
	if job.Status != models.JobStatusOpen {
		return nil, fmt.Errorf("job is not open")
	}

	if err := s.appRepo.Accept(ctx, applicationID, app.JobID); err != nil {
		return nil, err
	}
	if err := s.jobRepo.UpdateStatus(ctx, app.JobID, models.JobStatusOpen, models.JobStatusAssigned); err != nil {
		return nil, err
	}

	app.Accepted = true
	return app, nil
}

// Start moves an assigned job to active when the shift begins
func (s *JobService) Start(ctx context.Context, jobID, ownerID string) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job not found: %w", err)
	}
	if job.OwnerID != ownerID {
		return fmt.Errorf("only the job owner can start the job")
	}
	return s.jobRepo.UpdateStatus(ctx, jobID, models.JobStatusAssigned, models.JobStatusActive)
}

// Complete finishes a job. Completed jobs are immutable.
func (s *JobService) Complete(ctx context.Context, jobID, ownerID string) error {
	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job not found: %w", err)
	}
	if job.OwnerID != ownerID {
		return fmt.Errorf("only the job owner can complete the job")
	}
	return s.jobRepo.MarkCompleted(ctx, jobID, time.Now())
}

// RateCounterpart records a rating between the two participants of a
// completed job: the owner rates the accepted applicant or vice versa.
func (s *JobService) RateCounterpart(ctx context.Context, jobID, raterID string, score int, comment string) (*models.Rating, error) {
	if score < 1 || score > 5 {
		return nil, fmt.Errorf("score must be between 1 and 5")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job not found: %w", err)
	}
	if job.Status != models.JobStatusCompleted {
		return nil, fmt.Errorf("job is not completed")
	}

	accepted, err := s.appRepo.GetAcceptedForJob(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("job has no accepted application: %w", err)
	}

	var rateeID string
	switch raterID {
	case job.OwnerID:
		rateeID = accepted.ApplicantID
	case accepted.ApplicantID:
		rateeID = job.OwnerID
	default:
		return nil, fmt.Errorf("only job participants can rate")
	}

	rated, err := s.ratingRepo.HasRated(ctx, jobID, raterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing rating: %w", err)
	}
	if rated {
		return nil, fmt.Errorf("already rated this job")
	}

	rating := &models.Rating{
		ID:        uuid.New().String(),
		JobID:     jobID,
		RaterID:   raterID,
		RateeID:   rateeID,
		Score:     score,
		Comment:   comment,
		CreatedAt: time.Now(),
	}
	if err := s.ratingRepo.Create(ctx, rating); err != nil {
		return nil, fmt.Errorf("failed to create rating: %w", err)
	}
	return rating, nil
}
