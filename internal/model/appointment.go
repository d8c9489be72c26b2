package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no-show"
)

// AppointmentTypeConsultation is used for appointments created from requests.
const AppointmentTypeConsultation = "consultation"

type Appointment struct {
	Base
	PatientID uuid.UUID         `db:"patient_id" json:"patient_id"`
	DoctorID  *uuid.UUID        `db:"doctor_id" json:"doctor_id,omitempty"`
	Date      string            `db:"appointment_date" json:"appointment_date"`
	Time      string            `db:"appointment_time" json:"appointment_time"`
	Type      string            `db:"type" json:"type"`
	Notes     string            `db:"notes" json:"notes"`
	Status    AppointmentStatus `db:"status" json:"status"`
	UpdatedAt time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentDetail is an appointment joined with patient and doctor names.
type AppointmentDetail struct {
	Appointment
	PatientName string  `db:"patient_name" json:"patient_name"`
	PatientCode string  `db:"patient_code" json:"patient_code"`
	DoctorName  *string `db:"doctor_name" json:"doctor_name,omitempty"`
}

type AppointmentFilter struct {
	PatientID *uuid.UUID `form:"patient_id"`
	DoctorID  *uuid.UUID `form:"doctor_id"`
	Status    string     `form:"status"`
	Date      string     `form:"date"`
	Pagination
}

type CreateAppointmentRequest struct {
	PatientID uuid.UUID  `json:"patient_id" binding:"required" validate:"required"`
	DoctorID  *uuid.UUID `json:"doctor_id"`
	Date      string     `json:"appointment_date" binding:"required" validate:"required,datetime=2006-01-02"`
	Time      string     `json:"appointment_time" binding:"required" validate:"required,datetime=15:04"`
	Type      string     `json:"type"`
	Notes     string     `json:"notes"`
}

type UpdateAppointmentRequest struct {
	DoctorID *uuid.UUID         `json:"doctor_id"`
	Date     *string            `json:"appointment_date" validate:"omitempty,datetime=2006-01-02"`
	Time     *string            `json:"appointment_time" validate:"omitempty,datetime=15:04"`
	Type     *string            `json:"type"`
	Notes    *string            `json:"notes"`
	Status   *AppointmentStatus `json:"status" validate:"omitempty,oneof=scheduled confirmed completed cancelled no-show"`
}
