package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/validator"
)

type ReportService interface {
	CreateReport(ctx context.Context, req *model.CreateReportRequest) (*model.Report, error)
	GetReport(ctx context.Context, id uuid.UUID) (*model.Report, error)
	ListReports(ctx context.Context, filter *model.ReportFilter) (*model.Page[*model.Report], error)
}

type Service struct {
	repo      repository.ReportRepository
	patients  repository.PatientRepository
	notifier  notification.Notifier
	validator validator.Validator
}

func NewService(repo repository.ReportRepository, patients repository.PatientRepository, notifier notification.Notifier) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		notifier:  notifier,
		validator: validator.New(),
	}
}

func (s *Service) CreateReport(ctx context.Context, req *model.CreateReportRequest) (*model.Report, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("patient", err)
		}
		return nil, fmt.Errorf("failed to load patient: %w", err)
	}

	report := &model.Report{
		PatientID:       req.PatientID,
		DoctorID:        req.DoctorID,
		ReportType:      req.ReportType,
		Title:           req.Title,
		Description:     req.Description,
		Findings:        req.Findings,
		Recommendations: req.Recommendations,
		FilePath:        req.FilePath,
		Status:          req.Status,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if s.notifier != nil {
		s.notifier.Enqueue(patient, notification.ReportReady{ReportType: report.ReportType, Title: report.Title})
	}
	return report, nil
}

func (s *Service) GetReport(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	report, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("report", err)
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return report, nil
}

func (s *Service) ListReports(ctx context.Context, filter *model.ReportFilter) (*model.Page[*model.Report], error) {
	if filter == nil {
		filter = &model.ReportFilter{}
	}
	filter.Normalize(20)

	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	return page, nil
}

var _ ReportService = (*Service)(nil)
