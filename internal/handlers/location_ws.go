package handlers

import (
	"net/http"

	"paeshift-backend/internal/middleware"
	"paeshift-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// LocationWSHandler handles the per-job location WebSocket endpoint
type LocationWSHandler struct {
	hub             *services.RoomHub
	authService     *services.AuthService
	jobService      *services.JobService
	locationService *services.LocationService
}

// NewLocationWSHandler creates a new location WebSocket handler
func NewLocationWSHandler(hub *services.RoomHub, authService *services.AuthService, jobService *services.JobService, locationService *services.LocationService) *LocationWSHandler {
	return &LocationWSHandler{
		hub:             hub,
		authService:     authService,
		jobService:      jobService,
		locationService: locationService,
	}
}

// Handle handles GET /ws/jobs/{job_id}/location. Only the job owner or
// the accepted applicant is admitted; everyone else is rejected before
// the upgrade with no payload.
func (h *LocationWSHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "job_id")

	userID, err := middleware.ValidateWebSocketToken(r.URL.Query().Get("token"), h.authService)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	user, err := h.authService.GetUser(ctx, userID)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	job, err := h.jobService.GetJob(ctx, jobID)
	if err != nil {
		respondError(w, "job not found", http.StatusNotFound)
		return
	}

	authorized, err := h.locationService.Authorize(ctx, job, userID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Str("user_id", userID).Msg("Location admission check failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !authorized {
		log.Info().Str("job_id", jobID).Str("user_id", userID).Msg("Location connection rejected")
		w.WriteHeader(http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade location connection")
		return
	}
	defer conn.Close()

	client := services.NewRoomClient(userID, user.Username)
	room := services.LocationRoom(jobID)
	session := h.locationService.NewSession(job, client)

	h.hub.Join(room, client)
	defer func() {
		h.hub.Leave(room, client)
		session.Close()
		client.Close()
	}()

	go writePump(conn, client)

	log.Info().Str("job_id", jobID).Str("user_id", userID).Msg("Location connection established")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("Location connection error")
			}
			break
		}
		session.Handle(raw)
	}
}
