package handlers

import (
	"net/http"

	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

// ChatHandler handles chat-history HTTP requests
type ChatHandler struct {
	chatService *services.ChatService
	jobService  *services.JobService
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chatService *services.ChatService, jobService *services.JobService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		jobService:  jobService,
	}
}

// History handles GET /api/v1/jobs/{job_id}/messages. The order query
// parameter selects "asc" (conversation replay, the default) or "desc"
// (newest first, for display).
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	if _, err := h.jobService.GetJob(ctx, jobID); err != nil {
		respondError(w, "Job not found", http.StatusNotFound)
		return
	}

	limit, offset := parsePagination(r)

	var err error
	var messages interface{}
	if r.URL.Query().Get("order") == "desc" {
		messages, err = h.chatService.Recent(ctx, jobID, limit, offset)
	} else {
		messages, err = h.chatService.History(ctx, jobID, limit, offset)
	}
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to load chat history")
		respondError(w, "Failed to load chat history", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]interface{}{"messages": messages}, http.StatusOK)
}
