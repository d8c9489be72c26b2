package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/security"
	"github.com/jwalitptl/medicare-api/pkg/validator"
)

const defaultPageSize = 20

type PatientService interface {
	CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	ListPatients(ctx context.Context, filter *model.PatientFilter) (*model.Page[*model.Patient], error)
	UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error)
	DeletePatient(ctx context.Context, id uuid.UUID) error
	RegisterPushToken(ctx context.Context, id uuid.UUID, token string) error
}

type Service struct {
	repo      repository.PatientRepository
	hasher    security.PasswordHasher
	notifier  notification.Notifier
	validator validator.Validator
}

func NewService(repo repository.PatientRepository, hasher security.PasswordHasher, notifier notification.Notifier) *Service {
	return &Service{
		repo:      repo,
		hasher:    hasher,
		notifier:  notifier,
		validator: validator.New(),
	}
}

// CreatePatient registers a patient, assigns the next MED#### code and
// sends the welcome notification.
func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient := &model.Patient{
		Name:                  strings.TrimSpace(req.Name),
		Email:                 normalizeEmail(req.Email),
		Phone:                 req.Phone,
		DateOfBirth:           req.DateOfBirth,
		Gender:                req.Gender,
		BloodGroup:            req.BloodGroup,
		Address:               req.Address,
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
	}

	if req.PortalPassword != "" {
		hash, err := s.hashPassword(req.PortalPassword)
		if err != nil {
			return nil, err
		}
		patient.PortalPassword = &hash
	}

	if err := s.repo.Create(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("a patient with this email already exists", err)
		}
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Enqueue(patient, notification.PatientRegistered{})
	}
	return patient, nil
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context, filter *model.PatientFilter) (*model.Page[*model.Patient], error) {
	if filter == nil {
		filter = &model.PatientFilter{}
	}
	filter.Normalize(defaultPageSize)
	filter.Search = strings.TrimSpace(filter.Search)

	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return page, nil
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}

	if req.Name != nil {
		patient.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		patient.Email = normalizeEmail(req.Email)
	}
	if req.Phone != nil {
		patient.Phone = *req.Phone
	}
	if req.DateOfBirth != nil {
		patient.DateOfBirth = req.DateOfBirth
	}
	if req.Gender != nil {
		patient.Gender = req.Gender
	}
	if req.BloodGroup != nil {
		patient.BloodGroup = req.BloodGroup
	}
	if req.Address != nil {
		patient.Address = req.Address
	}
	if req.EmergencyContactName != nil {
		patient.EmergencyContactName = req.EmergencyContactName
	}
	if req.EmergencyContactPhone != nil {
		patient.EmergencyContactPhone = req.EmergencyContactPhone
	}
	if req.PortalPassword != nil && *req.PortalPassword != "" {
		hash, err := s.hashPassword(*req.PortalPassword)
		if err != nil {
			return nil, err
		}
		patient.PortalPassword = &hash
	}

	if patient.Name == "" || patient.Phone == "" {
		return nil, apperrors.NewBadRequest("name and phone are required", nil)
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("a patient with this email already exists", err)
		}
		return nil, notFound(err)
	}
	return patient, nil
}

// DeletePatient deactivates the patient; history is kept.
func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Service) RegisterPushToken(ctx context.Context, id uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.NewBadRequest("fcm_token is required", nil)
	}
	if err := s.repo.UpdatePushToken(ctx, id, token); err != nil {
		return notFound(err)
	}
	return nil
}

func (s *Service) hashPassword(password string) (string, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		if errors.Is(err, security.ErrPasswordTooShort) {
			return "", apperrors.NewBadRequest(fmt.Sprintf("portal_password must be at least %d characters", security.MinPasswordLen), err)
		}
		return "", fmt.Errorf("failed to hash portal password: %w", err)
	}
	return hash, nil
}

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("patient", err)
	}
	return fmt.Errorf("patient operation failed: %w", err)
}

var _ PatientService = (*Service)(nil)
