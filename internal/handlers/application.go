package handlers

import (
	"net/http"

	"paeshift-backend/internal/middleware"
	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ApplicationHandler handles application-related HTTP requests
type ApplicationHandler struct {
	jobService *services.JobService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(jobService *services.JobService) *ApplicationHandler {
	return &ApplicationHandler{jobService: jobService}
}

// Apply handles POST /api/v1/jobs/{job_id}/applications
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	app, err := h.jobService.Apply(ctx, jobID, userID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Failed to apply")

		statusCode := http.StatusBadRequest
		switch err.Error() {
		case "already applied to this job":
			statusCode = http.StatusConflict
		case "cannot apply to your own job":
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().Str("job_id", jobID).Str("applicant_id", userID).Msg("Application submitted")
	respondJSON(w, app, http.StatusCreated)
}

// Accept handles POST /api/v1/applications/{application_id}/accept
func (h *ApplicationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	applicationID := chi.URLParam(r, "application_id")

	app, err := h.jobService.Accept(ctx, applicationID, userID)
	if err != nil {
		log.Error().Err(err).Str("application_id", applicationID).Str("user_id", userID).Msg("Failed to accept application")

		statusCode := http.StatusBadRequest
		switch err.Error() {
		case "only the job owner can accept applications":
			statusCode = http.StatusForbidden
		case "job already has an accepted application":
			statusCode = http.StatusConflict
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().
		Str("application_id", applicationID).
		Str("job_id", app.JobID).
		Str("applicant_id", app.ApplicantID).
		Msg("Application accepted")
	respondJSON(w, app, http.StatusOK)
}
