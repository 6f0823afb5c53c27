package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"paeshift-backend/internal/middleware"
	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	jobService      *services.JobService
	matchingService *services.MatchingService
	validate        *validator.Validate
}

// NewJobHandler creates a new job handler
func NewJobHandler(jobService *services.JobService, matchingService *services.MatchingService) *JobHandler {
	return &JobHandler{
		jobService:      jobService,
		matchingService: matchingService,
		validate:        validator.New(),
	}
}

// CreateJobRequest represents the request body for creating a job
type CreateJobRequest struct {
	Title       string   `json:"title" validate:"required,min=3,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// CreateJob handles POST /api/v1/jobs
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	job, err := h.jobService.CreateJob(ctx, userID, req.Title, req.Description, req.Latitude, req.Longitude)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to create job")
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	log.Info().Str("job_id", job.ID).Str("owner_id", userID).Msg("Job created")
	respondJSON(w, job, http.StatusCreated)
}

// GetJob handles GET /api/v1/jobs/{job_id}
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	job, err := h.jobService.GetJob(ctx, jobID)
	if err != nil {
		respondError(w, "Job not found", http.StatusNotFound)
		return
	}
	respondJSON(w, job, http.StatusOK)
}

// ListOpenJobs handles GET /api/v1/jobs
func (h *JobHandler) ListOpenJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePagination(r)

	jobs, err := h.jobService.ListOpenJobs(ctx, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list open jobs")
		respondError(w, "Failed to list jobs", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{"jobs": jobs}, http.StatusOK)
}

// GetMatches handles GET /api/v1/jobs/{job_id}/matches. The optional
// max_distance_km query parameter overrides the configured radius.
func (h *JobHandler) GetMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	job, err := h.jobService.GetJob(ctx, jobID)
	if err != nil {
		respondError(w, "Job not found", http.StatusNotFound)
		return
	}
	if job.OwnerID != userID {
		respondError(w, "Only the job owner can view matches", http.StatusForbidden)
		return
	}

	maxDistance := 0.0
	if raw := r.URL.Query().Get("max_distance_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 {
			respondError(w, "max_distance_km must be a positive number", http.StatusBadRequest)
			return
		}
		maxDistance = parsed
	}

	matches, err := h.matchingService.FindBestApplicants(ctx, jobID, maxDistance)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to rank applicants")
		respondError(w, "Failed to rank applicants", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{"matches": matches}, http.StatusOK)
}

// StartJob handles POST /api/v1/jobs/{job_id}/start
func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	if err := h.jobService.Start(ctx, jobID, userID); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Failed to start job")

		statusCode := http.StatusBadRequest
		if err.Error() == "only the job owner can start the job" {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().Str("job_id", jobID).Msg("Job started")
	w.WriteHeader(http.StatusNoContent)
}

// CompleteJob handles POST /api/v1/jobs/{job_id}/complete
func (h *JobHandler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	if err := h.jobService.Complete(ctx, jobID, userID); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Failed to complete job")

		statusCode := http.StatusBadRequest
		if err.Error() == "only the job owner can complete the job" {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().Str("job_id", jobID).Msg("Job completed")
	w.WriteHeader(http.StatusNoContent)
}

// RateRequest represents the request body for rating a counterpart
type RateRequest struct {
	Score   int    `json:"score" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=1000"`
}

// RateJob handles POST /api/v1/jobs/{job_id}/ratings
func (h *JobHandler) RateJob(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	rating, err := h.jobService.RateCounterpart(ctx, jobID, userID, req.Score, req.Comment)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Failed to rate")

		statusCode := http.StatusBadRequest
		if err.Error() == "only job participants can rate" {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().Str("job_id", jobID).Str("rater_id", userID).Int("score", req.Score).Msg("Rating recorded")
	respondJSON(w, rating, http.StatusCreated)
}

func parsePagination(r *http.Request) (int, int) {
	limit := 50
	offset := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			offset = parsed
		}
	}
	return limit, offset
}
