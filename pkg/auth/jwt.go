package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role names carried in tokens. Everything except RolePatient is staff.
const (
	RolePatient      = "patient"
	RoleDoctor       = "doctor"
	RoleNurse        = "nurse"
	RoleReceptionist = "receptionist"
	RoleAdmin        = "admin"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims identifies the caller of a request.
type Claims struct {
	UserID      uuid.UUID `json:"uid"`
	Role        string    `json:"role"`
	Name        string    `json:"name,omitempty"`
	Email       string    `json:"email,omitempty"`
	PatientCode string    `json:"patient_code,omitempty"`
	jwt.RegisteredClaims
}

// IsStaff reports whether the claims belong to a staff member.
func (c *Claims) IsStaff() bool {
	return c.Role != "" && c.Role != RolePatient
}

type JWTService interface {
	Generate(claims Claims, ttl time.Duration) (string, error)
	Validate(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
}

func NewJWTService(secret, issuer string) JWTService {
	return &jwtService{secret: []byte(secret), issuer: issuer}
}

func (s *jwtService) Generate(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID.String(),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(s.issuer))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == uuid.Nil || claims.Role == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
