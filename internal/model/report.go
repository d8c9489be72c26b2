package model

import (
	"github.com/google/uuid"
)

type Report struct {
	Base
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID        *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	ReportType      string     `db:"report_type" json:"report_type"`
	Title           string     `db:"title" json:"title"`
	Description     *string    `db:"description" json:"description,omitempty"`
	Findings        *string    `db:"findings" json:"findings,omitempty"`
	Recommendations *string    `db:"recommendations" json:"recommendations,omitempty"`
	FilePath        *string    `db:"file_path" json:"file_path,omitempty"`
	Status          string     `db:"status" json:"status"`
}

type CreateReportRequest struct {
	PatientID       uuid.UUID  `json:"patient_id" binding:"required" validate:"required"`
	DoctorID        *uuid.UUID `json:"doctor_id"`
	ReportType      string     `json:"report_type" binding:"required" validate:"required"`
	Title           string     `json:"title" binding:"required" validate:"required"`
	Description     *string    `json:"description"`
	Findings        *string    `json:"findings"`
	Recommendations *string    `json:"recommendations"`
	FilePath        *string    `json:"file_path"`
	Status          string     `json:"status"`
}

type ReportFilter struct {
	PatientID *uuid.UUID `form:"patient_id"`
	DoctorID  *uuid.UUID `form:"doctor_id"`
	Status    string     `form:"status"`
	Pagination
}
