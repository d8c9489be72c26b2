package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

type ChatService interface {
	Append(ctx context.Context, msg AppendInput) (*model.ChatMessage, error)
	Transcript(ctx context.Context, patientID uuid.UUID) ([]*model.ChatMessageView, error)
	MarkRead(ctx context.Context, patientID uuid.UUID, role model.SenderRole) (int64, error)
	UnreadCount(ctx context.Context, patientID uuid.UUID, role model.SenderRole) (int, error)
	UnreadForPatient(ctx context.Context, patientID uuid.UUID) (int, error)
	TotalUnread(ctx context.Context) (int, error)
	Conversations(ctx context.Context) ([]*model.Conversation, error)
}

// AppendInput is one message to add to a patient's thread. SenderID must be
// nil for patient messages and set for staff messages.
type AppendInput struct {
	PatientID  uuid.UUID
	SenderRole model.SenderRole
	SenderID   *uuid.UUID
	Message    string
	Priority   model.Priority
}

type Service struct {
	repo   repository.ChatRepository
	outbox repository.OutboxRepository
	tx     repository.Transactor
}

func NewService(repo repository.ChatRepository, outbox repository.OutboxRepository, tx repository.Transactor) *Service {
	return &Service{
		repo:   repo,
		outbox: outbox,
		tx:     tx,
	}
}

func (in AppendInput) validate() error {
	if in.PatientID == uuid.Nil {
		return apperrors.NewBadRequest("patient_id is required", nil)
	}
	if strings.TrimSpace(in.Message) == "" {
		return apperrors.NewBadRequest("message is required", nil)
	}
	if !in.Priority.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("invalid priority %q", in.Priority), nil)
	}
	switch in.SenderRole {
	case model.SenderPatient:
		if in.SenderID != nil {
			return apperrors.NewBadRequest("patient messages cannot carry a sender_id", nil)
		}
	case model.SenderStaff:
		if in.SenderID == nil || *in.SenderID == uuid.Nil {
			return apperrors.NewBadRequest("staff messages require a sender_id", nil)
		}
	default:
		return apperrors.NewBadRequest(fmt.Sprintf("invalid sender_role %q", in.SenderRole), nil)
	}
	return nil
}

// Append stores a message and its outbox event together. When ctx already
// carries a transaction both writes join it.
func (s *Service) Append(ctx context.Context, in AppendInput) (*model.ChatMessage, error) {
	if in.Priority == "" {
		in.Priority = model.PriorityNormal
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	msg := &model.ChatMessage{
		PatientID:  in.PatientID,
		SenderRole: in.SenderRole,
		SenderID:   in.SenderID,
		Message:    in.Message,
		Priority:   in.Priority,
	}

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, msg); err != nil {
			return err
		}
		event, err := model.NewOutboxEvent(model.EventChatMessage, msg.PatientID, map[string]interface{}{
			"message_id":  msg.ID,
			"patient_id":  msg.PatientID,
			"sender_role": msg.SenderRole,
			"priority":    msg.Priority,
		})
		if err != nil {
			return err
		}
		return s.outbox.Create(ctx, event)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append chat message: %w", err)
	}
	return msg, nil
}

func (s *Service) Transcript(ctx context.Context, patientID uuid.UUID) ([]*model.ChatMessageView, error) {
	msgs, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}
	return msgs, nil
}

// MarkRead flips every unread message sent by role in the thread. Calling
// it again is a no-op that reports zero rows.
func (s *Service) MarkRead(ctx context.Context, patientID uuid.UUID, role model.SenderRole) (int64, error) {
	if !role.Valid() {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("invalid sender_role %q", role), nil)
	}
	n, err := s.repo.MarkRead(ctx, patientID, role)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, patientID uuid.UUID, role model.SenderRole) (int, error) {
	if !role.Valid() {
		return 0, apperrors.NewBadRequest(fmt.Sprintf("invalid sender_role %q", role), nil)
	}
	n, err := s.repo.UnreadCount(ctx, patientID, role)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

// UnreadForPatient returns how many staff messages the patient had not seen
// and marks them read.
func (s *Service) UnreadForPatient(ctx context.Context, patientID uuid.UUID) (int, error) {
	var count int
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		n, err := s.repo.UnreadCount(ctx, patientID, model.SenderStaff)
		if err != nil {
			return err
		}
		count = n
		if n == 0 {
			return nil
		}
		_, err = s.repo.MarkRead(ctx, patientID, model.SenderStaff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read staff messages: %w", err)
	}
	return count, nil
}

// TotalUnread counts patient messages staff have not read yet.
func (s *Service) TotalUnread(ctx context.Context) (int, error) {
	n, err := s.repo.TotalUnread(ctx, model.SenderPatient)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return n, nil
}

func (s *Service) Conversations(ctx context.Context) ([]*model.Conversation, error) {
	convs, err := s.repo.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return convs, nil
}

var _ ChatService = (*Service)(nil)
