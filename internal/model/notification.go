package model

import (
	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// NotificationLog is one row per dispatch attempt.
type NotificationLog struct {
	Base
	PatientID uuid.UUID          `db:"patient_id" json:"patient_id"`
	Type      string             `db:"type" json:"type"`
	Title     string             `db:"title" json:"title"`
	Message   string             `db:"message" json:"message"`
	Status    NotificationStatus `db:"status" json:"status"`
}
