package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	Base
	PatientCode           string    `db:"patient_code" json:"patient_code"`
	Name                  string    `db:"name" json:"name"`
	Email                 *string   `db:"email" json:"email,omitempty"`
	Phone                 string    `db:"phone" json:"phone"`
	DateOfBirth           *string   `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender                *string   `db:"gender" json:"gender,omitempty"`
	BloodGroup            *string   `db:"blood_group" json:"blood_group,omitempty"`
	Address               *string   `db:"address" json:"address,omitempty"`
	EmergencyContactName  *string   `db:"emergency_contact_name" json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone *string   `db:"emergency_contact_phone" json:"emergency_contact_phone,omitempty"`
	FCMToken              *string   `db:"fcm_token" json:"-"`
	PortalPassword        *string   `db:"portal_password" json:"-"`
	IsActive              bool      `db:"is_active" json:"is_active"`
	UpdatedAt             time.Time `db:"updated_at" json:"updated_at"`
}

func (p *Patient) PushToken() string {
	if p.FCMToken == nil {
		return ""
	}
	return *p.FCMToken
}

func (p *Patient) EmailAddress() string {
	if p.Email == nil {
		return ""
	}
	return *p.Email
}

type CreatePatientRequest struct {
	Name                  string  `json:"name" binding:"required" validate:"required"`
	Email                 *string `json:"email" binding:"omitempty,email" validate:"omitempty,email"`
	Phone                 string  `json:"phone" binding:"required" validate:"required"`
	DateOfBirth           *string `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender                *string `json:"gender" validate:"omitempty,oneof=male female other"`
	BloodGroup            *string `json:"blood_group"`
	Address               *string `json:"address"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	PortalPassword        string  `json:"portal_password"`
}

type UpdatePatientRequest struct {
	Name                  *string `json:"name"`
	Email                 *string `json:"email" binding:"omitempty,email"`
	Phone                 *string `json:"phone"`
	DateOfBirth           *string `json:"date_of_birth"`
	Gender                *string `json:"gender"`
	BloodGroup            *string `json:"blood_group"`
	Address               *string `json:"address"`
	EmergencyContactName  *string `json:"emergency_contact_name"`
	EmergencyContactPhone *string `json:"emergency_contact_phone"`
	PortalPassword        *string `json:"portal_password"`
}

type PatientFilter struct {
	Search string `form:"search"`
	Pagination
}

type RegisterPushTokenRequest struct {
	PatientID uuid.UUID `json:"patient_id" binding:"required"`
	FCMToken  string    `json:"fcm_token" binding:"required"`
}
