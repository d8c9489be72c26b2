package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/validator"
)

const defaultPageSize = 20

type AppointmentService interface {
	CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.AppointmentDetail, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
	ListAppointments(ctx context.Context, filter *model.AppointmentFilter) (*model.Page[*model.AppointmentDetail], error)
	UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.AppointmentDetail, error)
}

// Service handles appointments scheduled directly by staff.
type Service struct {
	repo      repository.AppointmentRepository
	patients  repository.PatientRepository
	staff     repository.StaffRepository
	notifier  notification.Notifier
	validator validator.Validator
	log       *logger.Logger
}

func NewService(
	repo repository.AppointmentRepository,
	patients repository.PatientRepository,
	staff repository.StaffRepository,
	notifier notification.Notifier,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		patients:  patients,
		staff:     staff,
		notifier:  notifier,
		validator: validator.New(),
		log:       log,
	}
}

func (s *Service) CreateAppointment(ctx context.Context, req *model.CreateAppointmentRequest) (*model.AppointmentDetail, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, notFound("patient", err)
	}
	if req.DoctorID != nil {
		if _, err := s.staff.GetDoctor(ctx, *req.DoctorID); err != nil {
			return nil, notFound("doctor", err)
		}
	}

	apt := &model.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		Time:      req.Time,
		Type:      req.Type,
		Notes:     req.Notes,
		Status:    model.AppointmentStatusScheduled,
	}
	if apt.Type == "" {
		apt.Type = model.AppointmentTypeConsultation
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.notify(patient, notification.AppointmentScheduled{Date: apt.Date, Time: apt.Time})
	return s.GetAppointment(ctx, apt.ID)
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFound("appointment", err)
	}
	return apt, nil
}

func (s *Service) ListAppointments(ctx context.Context, filter *model.AppointmentFilter) (*model.Page[*model.AppointmentDetail], error) {
	if filter == nil {
		filter = &model.AppointmentFilter{}
	}
	filter.Normalize(defaultPageSize)

	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return page, nil
}

// UpdateAppointment applies the non-nil fields of req. Moving an
// appointment to cancelled notifies the patient.
func (s *Service) UpdateAppointment(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest) (*model.AppointmentDetail, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, notFound("appointment", err)
	}

	apt := current.Appointment
	wasCancelled := apt.Status == model.AppointmentStatusCancelled

	if req.DoctorID != nil {
		if _, err := s.staff.GetDoctor(ctx, *req.DoctorID); err != nil {
			return nil, notFound("doctor", err)
		}
		apt.DoctorID = req.DoctorID
	}
	if req.Date != nil {
		apt.Date = *req.Date
	}
	if req.Time != nil {
		apt.Time = *req.Time
	}
	if req.Type != nil {
		apt.Type = *req.Type
	}
	if req.Notes != nil {
		apt.Notes = *req.Notes
	}
	if req.Status != nil {
		apt.Status = *req.Status
	}

	if err := s.repo.Update(ctx, &apt); err != nil {
		return nil, notFound("appointment", err)
	}

	if !wasCancelled && apt.Status == model.AppointmentStatusCancelled {
		patient, err := s.patients.Get(ctx, apt.PatientID)
		if err != nil {
			s.log.Error(err, "failed to load patient for cancellation notice", "appointment_id", id.String())
		} else {
			s.notify(patient, notification.AppointmentCancelled{Date: apt.Date, Time: apt.Time})
		}
	}

	return s.GetAppointment(ctx, id)
}

func (s *Service) notify(p *model.Patient, e notification.Event) {
	if s.notifier != nil {
		s.notifier.Enqueue(p, e)
	}
}

func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, err)
	}
	return fmt.Errorf("failed to load %s: %w", resource, err)
}

var _ AppointmentService = (*Service)(nil)
