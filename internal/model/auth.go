package model

import "time"

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type PortalLoginRequest struct {
	PatientCode string `json:"patient_code" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// TokenResponse is returned by both login flows.
type TokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      interface{} `json:"user"`
}
