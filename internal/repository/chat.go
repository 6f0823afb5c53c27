package repository

import (
	"context"
	"fmt"

	"paeshift-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChatRepository handles database operations for chat messages
type ChatRepository struct {
	db *pgxpool.Pool
}

// NewChatRepository creates a new chat repository
func NewChatRepository(db *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create persists a chat message
func (r *ChatRepository) Create(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (id, job_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query, msg.ID, msg.JobID, msg.SenderID, msg.Content, msg.SentAt)
	if err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

// ListByJob retrieves a job's messages in conversation order (ascending)
func (r *ChatRepository) ListByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	query := `
		SELECT m.id, m.job_id, m.sender_id, u.username, m.content, m.sent_at
		FROM chat_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.job_id = $1
		ORDER BY m.sent_at ASC
		LIMIT $2 OFFSET $3
	`
	return r.listMessages(ctx, query, jobID, limit, offset)
}

// ListRecentByJob retrieves a job's messages newest first, for display
func (r *ChatRepository) ListRecentByJob(ctx context.Context, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	query := `
		SELECT m.id, m.job_id, m.sender_id, u.username, m.content, m.sent_at
		FROM chat_messages m
		JOIN users u ON u.id = m.sender_id
		WHERE m.job_id = $1
		ORDER BY m.sent_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.listMessages(ctx, query, jobID, limit, offset)
}

func (r *ChatRepository) listMessages(ctx context.Context, query, jobID string, limit, offset int) ([]*models.ChatMessage, error) {
	rows, err := r.db.Query(ctx, query, jobID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(
			&msg.ID, &msg.JobID, &msg.SenderID, &msg.Username, &msg.Content, &msg.SentAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read chat messages: %w", err)
	}
	return messages, nil
}
