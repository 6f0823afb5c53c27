package handlers

import (
	"net/http"

	"paeshift-backend/internal/middleware"
	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ChatWSHandler handles the per-job chat WebSocket endpoint
type ChatWSHandler struct {
	hub         *services.RoomHub
	authService *services.AuthService
	jobService  *services.JobService
	chatService *services.ChatService
}

// NewChatWSHandler creates a new chat WebSocket handler
func NewChatWSHandler(hub *services.RoomHub, authService *services.AuthService, jobService *services.JobService, chatService *services.ChatService) *ChatWSHandler {
	return &ChatWSHandler{
		hub:         hub,
		authService: authService,
		jobService:  jobService,
		chatService: chatService,
	}
}

// Handle handles GET /ws/jobs/{job_id}/chat
func (h *ChatWSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	userID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.authService)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}
	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Unknown jobs are rejected before the upgrade rather than failing
	// mid-connection.
	job, err := h.jobService.GetJob(ctx, jobID)
	if err != nil {
		respondError(w, "job not found", http.StatusNotFound)
		return
	}

	allowed, err := h.chatService.CanJoin(ctx, job, userID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Chat admission check failed")
		respondError(w, "admission check failed", http.StatusInternalServerError)
		return
	}
	if !allowed {
		respondError(w, "not a participant of this job", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade chat connection")
		return
	}
	defer conn.Close()

	client := services.NewRoomClient(userID, user.Username)
	room := services.ChatRoom(jobID)

	h.hub.Join(room, client)
	defer func() {
		h.hub.Leave(room, client)
		client.Close()
	}()

	go writePump(conn, client)

	log.Info().Str("job_id", jobID).Str("user_id", userID).Msg("Chat connection established")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("Chat connection error")
			}
			break
		}
		if err := h.chatService.HandleInbound(ctx, job, client, raw); err != nil {
			// Contained to this message: the connection stays up.
			log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Failed to handle chat message")
		}
	}
}
