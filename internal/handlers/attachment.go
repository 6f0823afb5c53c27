package handlers

import (
	"encoding/json"
	"net/http"

	"paeshift-backend/internal/middleware"
	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

// AttachmentHandler handles job-attachment HTTP requests
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
	validate          *validator.Validate
}

// NewAttachmentHandler creates a new attachment handler
func NewAttachmentHandler(attachmentService *services.AttachmentService) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		validate:          validator.New(),
	}
}

// UploadRequest represents the request body for an upload URL
type UploadRequest struct {
	ContentType string `json:"content_type"`
}

// Upload handles POST /api/v1/jobs/{job_id}/attachments/upload
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.GetUserID(ctx)
	jobID := chi.URLParam(r, "job_id")

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ContentType == "" {
		req.ContentType = "image/jpeg"
	}

	response, err := h.attachmentService.GetPreSignedURL(ctx, userID, jobID, req.ContentType)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Failed to generate upload URL")

		statusCode := http.StatusBadRequest
		if err.Error() == "only the job owner can attach images" {
			statusCode = http.StatusForbidden
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	log.Info().Str("job_id", jobID).Str("attachment_id", response.AttachmentID).Msg("Upload URL generated")
	respondJSON(w, response, http.StatusOK)
}

// ConfirmRequest represents the request body for confirming an upload
type ConfirmRequest struct {
	S3URL string `json:"s3_url" validate:"required,url"`
}

// Confirm handles PUT /api/v1/attachments/{attachment_id}
func (h *AttachmentHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	attachmentID := chi.URLParam(r, "attachment_id")

	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.attachmentService.ConfirmUpload(ctx, attachmentID, req.S3URL); err != nil {
		statusCode := http.StatusInternalServerError
		if err.Error() == "attachment not found" {
			statusCode = http.StatusNotFound
		}
		respondError(w, err.Error(), statusCode)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/jobs/{job_id}/attachments
func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	attachments, err := h.attachmentService.ListByJob(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to list attachments")
		respondError(w, "Failed to list attachments", http.StatusInternalServerError)
		return
	}
	respondJSON(w, map[string]interface{}{"attachments": attachments}, http.StatusOK)
}
