package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

type chatRepository struct {
	BaseRepository
}

func NewChatRepository(base BaseRepository) repository.ChatRepository {
	return &chatRepository{base}
}

func (r *chatRepository) Create(ctx context.Context, msg *model.ChatMessage) error {
	query := `
		INSERT INTO chat_messages (
			id, patient_id, sender_role, sender_id, message, priority, is_read, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.Priority == "" {
		msg.Priority = model.PriorityNormal
	}
	msg.IsRead = false
	msg.CreatedAt = time.Now()

	_, err := r.ext(ctx).ExecContext(ctx, query,
		msg.ID,
		msg.PatientID,
		msg.SenderRole,
		msg.SenderID,
		msg.Message,
		msg.Priority,
		msg.IsRead,
		msg.CreatedAt,
	)
	if err != nil {
		return wrapErr("create chat message", err)
	}
	return nil
}

func (r *chatRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ChatMessageView, error) {
	query := `
		SELECT m.id, m.patient_id, m.sender_role, m.sender_id, m.message,
			   m.priority, m.is_read, m.created_at,
			   s.name AS staff_name
		FROM chat_messages m
		LEFT JOIN staff s ON s.id = m.sender_id AND m.sender_role = 'staff'
		WHERE m.patient_id = $1
		ORDER BY m.created_at ASC
	`
	messages := []*model.ChatMessageView{}
	if err := r.selectRows(ctx, &messages, query, patientID); err != nil {
		return nil, wrapErr("list chat messages", err)
	}
	return messages, nil
}

// MarkRead flips every unread message from senderRole in the patient's thread.
// Calling it again affects zero rows.
func (r *chatRepository) MarkRead(ctx context.Context, patientID uuid.UUID, senderRole model.SenderRole) (int64, error) {
	query := `
		UPDATE chat_messages SET is_read = true
		WHERE patient_id = $1 AND sender_role = $2 AND is_read = false
	`
	result, err := r.ext(ctx).ExecContext(ctx, query, patientID, senderRole)
	if err != nil {
		return 0, wrapErr("mark messages read", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, wrapErr("mark messages read", err)
	}
	return n, nil
}

func (r *chatRepository) UnreadCount(ctx context.Context, patientID uuid.UUID, senderRole model.SenderRole) (int, error) {
	query := `
		SELECT COUNT(*) FROM chat_messages
		WHERE patient_id = $1 AND sender_role = $2 AND is_read = false
	`
	var count int
	if err := r.get(ctx, &count, query, patientID, senderRole); err != nil {
		return 0, wrapErr("count unread messages", err)
	}
	return count, nil
}

func (r *chatRepository) TotalUnread(ctx context.Context, senderRole model.SenderRole) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM chat_messages WHERE sender_role = $1 AND is_read = false`
	if err := r.get(ctx, &count, query, senderRole); err != nil {
		return 0, wrapErr("count total unread", err)
	}
	return count, nil
}

// Conversations lists one row per patient with chat history, most urgent
// unread threads first, then most recent.
func (r *chatRepository) Conversations(ctx context.Context) ([]*model.Conversation, error) {
	query := `
		SELECT p.id AS patient_id, p.name AS patient_name, p.patient_code,
			   last.message AS last_message, last.created_at AS last_message_at,
			   COALESCE(unread.cnt, 0) AS unread_count,
			   unread.top_priority
		FROM patients p
		JOIN LATERAL (
			SELECT message, created_at FROM chat_messages
			WHERE patient_id = p.id
			ORDER BY created_at DESC LIMIT 1
		) last ON true
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS cnt,
				   (ARRAY_AGG(priority ORDER BY
						CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1
									  WHEN 'normal' THEN 2 ELSE 3 END))[1] AS top_priority
			FROM chat_messages
			WHERE patient_id = p.id AND sender_role = 'patient' AND is_read = false
		) unread ON true
		ORDER BY
			CASE unread.top_priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1
									 WHEN 'normal' THEN 2 WHEN 'low' THEN 3 ELSE 4 END,
			last.created_at DESC
	`
	conversations := []*model.Conversation{}
	if err := r.selectRows(ctx, &conversations, query); err != nil {
		return nil, wrapErr("list conversations", err)
	}
	return conversations, nil
}
