package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"paeshift-backend/internal/config"
	"paeshift-backend/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ChatMessageStore persists and replays chat messages
type ChatMessageStore interface {
	Create(ctx context.Context, msg *models.ChatMessage) error
	ListByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error)
	ListRecentByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error)
}

// AcceptanceStore answers room-admission questions about applications
type AcceptanceStore interface {
	HasAccepted(ctx context.Context, jobID, userID string) (bool, error)
	GetAcceptedForJob(ctx context.Context, jobID string) (*models.Application, error)
}

// PushTokenStore looks up users for offline push delivery
type PushTokenStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// ChatPusher delivers a push notification for a chat message
type ChatPusher interface {
	PushChatMessage(deviceToken, sender, preview string)
}

// chatPayload is the fixed inbound schema of the chat channel
type chatPayload struct {
	Message string `json:"message" validate:"required"`
}

// ChatEvent is the frame fanned out to a job's chat room
type ChatEvent struct {
	Type     string    `json:"type"`
	Message  string    `json:"message"`
	Username string    `json:"username"`
	SenderID string    `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

// ChatService runs the per-job chat rooms: admission policy, persistence
// and fan-out. Messages are persisted first, then broadcast to every
// member of the room including the sender.
type ChatService struct {
	hub          *RoomHub
	messages     ChatMessageStore
	applications AcceptanceStore
	users        PushTokenStore
	pusher       ChatPusher
	access       string
	validate     *validator.Validate
	now          func() time.Time
}

// NewChatService creates a new chat service. pusher may be nil when
// push notifications are not configured.
func NewChatService(hub *RoomHub, messages ChatMessageStore, applications AcceptanceStore, users PushTokenStore, pusher ChatPusher, access string) *ChatService {
	return &ChatService{
		hub:          hub,
		messages:     messages,
		applications: applications,
		users:        users,
		pusher:       pusher,
		access:       access,
		validate:     validator.New(),
		now:          time.Now,
	}
}

// CanJoin reports whether a user may join a job's chat room under the
// configured access policy.
func (s *ChatService) CanJoin(ctx context.Context, job *models.Job, userID string) (bool, error) {
	if s.access != config.ChatAccessAccepted {
		return true, nil
	}
	if job.OwnerID == userID {
		return true, nil
	}
	accepted, err := s.applications.HasAccepted(ctx, job.ID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check chat admission: %w", err)
	}
	return accepted, nil
}

// HandleInbound processes one raw frame from a joined chat connection.
// Malformed or empty payloads are dropped without a reply; a failure to
// persist is contained to this one message.
func (s *ChatService) HandleInbound(ctx context.Context, job *models.Job, sender *RoomClient, raw []byte) error {
	var payload chatPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Debug().Str("job_id", job.ID).Str("user_id", sender.UserID).Msg("Dropped malformed chat payload")
		return nil
	}
	if err := s.validate.Struct(&payload); err != nil {
		log.Debug().Str("job_id", job.ID).Str("user_id", sender.UserID).Msg("Dropped empty chat payload")
		return nil
	}
	if sender.UserID == "" {
		log.Debug().Str("job_id", job.ID).Msg("Dropped chat payload from unauthenticated sender")
		return nil
	}

	msg := &models.ChatMessage{
		ID:       uuid.New().String(),
		JobID:    job.ID,
		SenderID: sender.UserID,
		Username: sender.Username,
		Content:  payload.Message,
		SentAt:   s.now(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return fmt.Errorf("failed to persist chat message: %w", err)
	}

	event := ChatEvent{
		Type:     "chat",
		Message:  msg.Content,
		Username: msg.Username,
		SenderID: msg.SenderID,
		SentAt:   msg.SentAt,
	}
	if err := s.hub.Broadcast(ChatRoom(job.ID), event); err != nil {
		return fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	s.notifyOffline(ctx, job, msg)
	return nil
}

// History returns a job's messages in conversation order (ascending)
func (s *ChatService) History(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := s.messages.ListByJob(ctx, jobID, limit, offset)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	return msgs, nil
}

// Recent returns a job's messages newest first, for display
func (s *ChatService) Recent(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := s.messages.ListRecentByJob(ctx, jobID, limit, offset)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*models.ChatMessage{}
	}
	return msgs, nil
}

// notifyOffline pushes the message to job participants who are not
// currently in the room. Best-effort: push failures only log.
func (s *ChatService) notifyOffline(ctx context.Context, job *models.Job, msg *models.ChatMessage) {
	if s.pusher == nil {
		return
	}

	recipients := map[string]struct{}{job.OwnerID: {}}
	if accepted, err := s.applications.GetAcceptedForJob(ctx, job.ID); err == nil {
		recipients[accepted.ApplicantID] = struct{}{}
	}
	delete(recipients, msg.SenderID)

	room := ChatRoom(job.ID)
	for userID := range recipients {
		if s.hub.IsMember(room, userID) {
			continue
		}
		user, err := s.users.GetByID(ctx, userID)
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("Failed to look up push recipient")
			continue
		}
		if user.PushToken == nil || *user.PushToken == "" {
			continue
		}
		s.pusher.PushChatMessage(*user.PushToken, msg.Username, msg.Content)
	}
}
