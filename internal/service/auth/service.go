package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/auth"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
	PortalLogin(ctx context.Context, patientCode, password string) (*model.TokenResponse, error)
}

type Service struct {
	staff    repository.StaffRepository
	patients repository.PatientRepository
	jwtSvc   auth.JWTService
	hasher   security.PasswordHasher
	ttl      time.Duration
	log      *logger.Logger
}

func NewService(
	staff repository.StaffRepository,
	patients repository.PatientRepository,
	jwtSvc auth.JWTService,
	hasher security.PasswordHasher,
	ttl time.Duration,
	log *logger.Logger,
) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		staff:    staff,
		patients: patients,
		jwtSvc:   jwtSvc,
		hasher:   hasher,
		ttl:      ttl,
		log:      log,
	}
}

// Login authenticates an active staff member by email and password.
func (s *Service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	member, err := s.staff.GetActiveByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Warn("staff login rejected", "reason", "unknown email")
			return nil, apperrors.Unauthorized(ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to look up staff: %w", err)
	}

	if err := s.hasher.Compare(member.PasswordHash, password); err != nil {
		s.log.Warn("staff login rejected", "staff_id", member.ID.String(), "reason", "bad password")
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	return s.issue(auth.Claims{
		UserID: member.ID,
		Role:   member.Role,
		Name:   member.Name,
		Email:  member.Email,
	}, member)
}

// PortalLogin authenticates a patient by display code and portal password.
func (s *Service) PortalLogin(ctx context.Context, patientCode, password string) (*model.TokenResponse, error) {
	patient, err := s.patients.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(patientCode)))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.Unauthorized(ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to look up patient: %w", err)
	}

	if patient.PortalPassword == nil {
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}
	if err := s.hasher.Compare(*patient.PortalPassword, password); err != nil {
		s.log.Warn("portal login rejected", "patient_id", patient.ID.String())
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	return s.issue(auth.Claims{
		UserID:      patient.ID,
		Role:        auth.RolePatient,
		Name:        patient.Name,
		Email:       patient.EmailAddress(),
		PatientCode: patient.PatientCode,
	}, patient)
}

func (s *Service) issue(claims auth.Claims, user interface{}) (*model.TokenResponse, error) {
	token, err := s.jwtSvc.Generate(claims, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &model.TokenResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.ttl),
		User:      user,
	}, nil
}

var _ AuthService = (*Service)(nil)
