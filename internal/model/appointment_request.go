package model

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

// A request moves from pending to exactly one of approved or rejected.
const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

type AppointmentRequest struct {
	Base
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	DoctorID      *uuid.UUID    `db:"doctor_id" json:"doctor_id,omitempty"`
	RequestedDate string        `db:"requested_date" json:"requested_date"`
	RequestedTime string        `db:"requested_time" json:"requested_time"`
	Reason        string        `db:"reason" json:"reason"`
	Status        RequestStatus `db:"status" json:"status"`
	HandledBy     *uuid.UUID    `db:"handled_by" json:"handled_by,omitempty"`
	HandledAt     *time.Time    `db:"handled_at" json:"handled_at,omitempty"`
	ChatMessageID *uuid.UUID    `db:"chat_message_id" json:"chat_message_id,omitempty"`
}

// PendingRequest is a request joined with the names staff need to triage it.
type PendingRequest struct {
	AppointmentRequest
	PatientName          string  `db:"patient_name" json:"patient_name"`
	PatientCode          string  `db:"patient_code" json:"patient_code"`
	DoctorName           *string `db:"doctor_name" json:"doctor_name,omitempty"`
	DoctorSpecialization *string `db:"doctor_specialization" json:"doctor_specialization,omitempty"`
}

type SubmitRequestInput struct {
	PatientID     uuid.UUID  `json:"-" validate:"required"`
	DoctorID      *uuid.UUID `json:"doctor_id"`
	RequestedDate string     `json:"requested_date" binding:"required" validate:"required,datetime=2006-01-02"`
	RequestedTime string     `json:"requested_time" binding:"required" validate:"required,datetime=15:04"`
	Reason        string     `json:"reason"`
}

type RejectRequestInput struct {
	Reason string `json:"reason"`
}
