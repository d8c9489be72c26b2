package model

import (
	"time"

	"github.com/google/uuid"
)

type SenderRole string

const (
	SenderPatient SenderRole = "patient"
	SenderStaff   SenderRole = "staff"
)

func (r SenderRole) Valid() bool {
	return r == SenderPatient || r == SenderStaff
}

type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow:
		return true
	}
	return false
}

type ChatMessage struct {
	Base
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	SenderRole SenderRole `db:"sender_role" json:"sender_role"`
	SenderID   *uuid.UUID `db:"sender_id" json:"sender_id,omitempty"`
	Message    string     `db:"message" json:"message"`
	Priority   Priority   `db:"priority" json:"priority"`
	IsRead     bool       `db:"is_read" json:"is_read"`
}

// ChatMessageView adds the staff sender's name for transcripts.
type ChatMessageView struct {
	ChatMessage
	StaffName *string `db:"staff_name" json:"staff_name,omitempty"`
}

// Conversation summarises one patient's thread for the staff inbox.
type Conversation struct {
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	PatientName   string     `db:"patient_name" json:"patient_name"`
	PatientCode   string     `db:"patient_code" json:"patient_code"`
	LastMessage   *string    `db:"last_message" json:"last_message,omitempty"`
	LastMessageAt *time.Time `db:"last_message_at" json:"last_message_at,omitempty"`
	UnreadCount   int        `db:"unread_count" json:"unread_count"`
	TopPriority   *Priority  `db:"top_priority" json:"top_priority,omitempty"`
}

type SendMessageRequest struct {
	Message  string   `json:"message" binding:"required"`
	Priority Priority `json:"priority"`
}
