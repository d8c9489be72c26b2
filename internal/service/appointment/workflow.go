package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/internal/service/chat"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/logger"
	"github.com/jwalitptl/medicare-api/pkg/metrics"
	"github.com/jwalitptl/medicare-api/pkg/validator"
)

var tracer = otel.Tracer("medicare-api/appointment")

const (
	defaultRejectReason  = "No slot available at the requested time."
	defaultRequestReason = "General consultation"
	fallbackDoctorName   = "Your Doctor"
)

type WorkflowService interface {
	Submit(ctx context.Context, in *model.SubmitRequestInput) (*model.AppointmentRequest, error)
	Approve(ctx context.Context, requestID, staffID uuid.UUID) (*model.Appointment, error)
	Reject(ctx context.Context, requestID, staffID uuid.UUID, reason string) error
	ListPending(ctx context.Context) ([]*model.PendingRequest, error)
}

type messageAppender interface {
	Append(ctx context.Context, in chat.AppendInput) (*model.ChatMessage, error)
}

// Workflow moves appointment requests from pending to approved or rejected.
// Each transition is one transaction that starts with a conditional update,
// so at most one handler wins per request.
type Workflow struct {
	tx           repository.Transactor
	requests     repository.AppointmentRequestRepository
	appointments repository.AppointmentRepository
	patients     repository.PatientRepository
	staff        repository.StaffRepository
	outbox       repository.OutboxRepository
	chat         messageAppender
	notifier     notification.Notifier
	validator    validator.Validator
	log          *logger.Logger
	metrics      *metrics.Metrics
}

type WorkflowDeps struct {
	Tx           repository.Transactor
	Requests     repository.AppointmentRequestRepository
	Appointments repository.AppointmentRepository
	Patients     repository.PatientRepository
	Staff        repository.StaffRepository
	Outbox       repository.OutboxRepository
	Chat         messageAppender
	Notifier     notification.Notifier
	Logger       *logger.Logger
	Metrics      *metrics.Metrics
}

func NewWorkflow(deps WorkflowDeps) *Workflow {
	w := &Workflow{
		tx:           deps.Tx,
		requests:     deps.Requests,
		appointments: deps.Appointments,
		patients:     deps.Patients,
		staff:        deps.Staff,
		outbox:       deps.Outbox,
		chat:         deps.Chat,
		notifier:     deps.Notifier,
		validator:    validator.New(),
		log:          deps.Logger,
		metrics:      deps.Metrics,
	}
	if w.log == nil {
		w.log = logger.Nop()
	}
	if w.metrics == nil {
		w.metrics = metrics.NewNop()
	}
	return w
}

// Submit records a patient's request together with the chat message that
// announces it to staff.
func (w *Workflow) Submit(ctx context.Context, in *model.SubmitRequestInput) (*model.AppointmentRequest, error) {
	ctx, span := tracer.Start(ctx, "appointment.Submit")
	defer span.End()
	span.SetAttributes(attribute.String("patient.id", in.PatientID.String()))

	if err := w.validator.Validate(in); err != nil {
		return nil, err
	}

	doctorLine := "Any available"
	if in.DoctorID != nil {
		doctor, err := w.staff.GetDoctor(ctx, *in.DoctorID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, apperrors.NewNotFound("doctor", err)
			}
			return nil, fmt.Errorf("failed to look up doctor: %w", err)
		}
		doctorLine = doctor.DisplayName()
	}

	reason := in.Reason
	if reason == "" {
		reason = defaultRequestReason
	}
	text := fmt.Sprintf("📅 Appointment Request\nDoctor: %s\nDate: %s\nTime: %s\nReason: %s",
		doctorLine, in.RequestedDate, in.RequestedTime, reason)

	req := &model.AppointmentRequest{
		PatientID:     in.PatientID,
		DoctorID:      in.DoctorID,
		RequestedDate: in.RequestedDate,
		RequestedTime: in.RequestedTime,
		Reason:        in.Reason,
	}

	err := w.tx.WithTx(ctx, func(ctx context.Context) error {
		msg, err := w.chat.Append(ctx, chat.AppendInput{
			PatientID:  in.PatientID,
			SenderRole: model.SenderPatient,
			Message:    text,
			Priority:   model.PriorityHigh,
		})
		if err != nil {
			return err
		}
		req.ChatMessageID = &msg.ID

		if err := w.requests.Create(ctx, req); err != nil {
			return err
		}
		return w.writeEvent(ctx, model.EventRequestSubmitted, req.ID, req)
	})
	if err != nil {
		w.record("submit", err)
		span.RecordError(err)
		return nil, fmt.Errorf("failed to submit appointment request: %w", err)
	}

	w.record("submit", nil)
	w.log.Info("appointment request submitted", "request_id", req.ID.String(), "patient_id", req.PatientID.String())
	return req, nil
}

// Approve turns a pending request into a scheduled consultation. It returns
// an AlreadyHandled error when the request is missing or no longer pending.
func (w *Workflow) Approve(ctx context.Context, requestID, staffID uuid.UUID) (*model.Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointment.Approve")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", requestID.String()),
		attribute.String("staff.id", staffID.String()),
	)

	var (
		req         *model.AppointmentRequest
		appointment *model.Appointment
	)
	err := w.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = w.resolve(ctx, requestID, model.RequestStatusApproved, staffID)
		if err != nil {
			return err
		}

		appointment = &model.Appointment{
			PatientID: req.PatientID,
			DoctorID:  req.DoctorID,
			Date:      req.RequestedDate,
			Time:      req.RequestedTime,
			Type:      model.AppointmentTypeConsultation,
			Notes:     req.Reason,
			Status:    model.AppointmentStatusScheduled,
		}
		if err := w.appointments.Create(ctx, appointment); err != nil {
			return err
		}

		doctorName, err := w.doctorName(ctx, req.DoctorID)
		if err != nil {
			return err
		}
		text := fmt.Sprintf("Your appointment has been CONFIRMED!\nDoctor: %s\nDate: %s\nTime: %s\nPlease arrive 10 minutes early.",
			doctorName, req.RequestedDate, req.RequestedTime)
		if _, err := w.chat.Append(ctx, chat.AppendInput{
			PatientID:  req.PatientID,
			SenderRole: model.SenderStaff,
			SenderID:   &staffID,
			Message:    text,
			Priority:   model.PriorityNormal,
		}); err != nil {
			return err
		}

		return w.writeEvent(ctx, model.EventRequestApproved, req.ID, map[string]interface{}{
			"request_id":     req.ID,
			"appointment_id": appointment.ID,
			"patient_id":     req.PatientID,
			"handled_by":     staffID,
		})
	})
	if err != nil {
		w.record("approve", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, w.transitionErr("approve", err)
	}

	w.record("approve", nil)
	w.log.Info("appointment request approved",
		"request_id", requestID.String(),
		"appointment_id", appointment.ID.String(),
		"staff_id", staffID.String(),
	)

	w.notify(ctx, req.PatientID, notification.AppointmentScheduled{Date: appointment.Date, Time: appointment.Time})
	return appointment, nil
}

// Reject declines a pending request. No appointment is created.
func (w *Workflow) Reject(ctx context.Context, requestID, staffID uuid.UUID, reason string) error {
	ctx, span := tracer.Start(ctx, "appointment.Reject")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", requestID.String()),
		attribute.String("staff.id", staffID.String()),
	)

	if reason == "" {
		reason = defaultRejectReason
	}

	var req *model.AppointmentRequest
	err := w.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		req, err = w.resolve(ctx, requestID, model.RequestStatusRejected, staffID)
		if err != nil {
			return err
		}

		text := fmt.Sprintf("Your appointment request for %s at %s has been declined.\nReason: %s\nPlease request a different time.",
			req.RequestedDate, req.RequestedTime, reason)
		if _, err := w.chat.Append(ctx, chat.AppendInput{
			PatientID:  req.PatientID,
			SenderRole: model.SenderStaff,
			SenderID:   &staffID,
			Message:    text,
			Priority:   model.PriorityNormal,
		}); err != nil {
			return err
		}

		return w.writeEvent(ctx, model.EventRequestRejected, req.ID, map[string]interface{}{
			"request_id": req.ID,
			"patient_id": req.PatientID,
			"handled_by": staffID,
			"reason":     reason,
		})
	})
	if err != nil {
		w.record("reject", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return w.transitionErr("reject", err)
	}

	w.record("reject", nil)
	w.log.Info("appointment request rejected", "request_id", requestID.String(), "staff_id", staffID.String())

	w.notify(ctx, req.PatientID, notification.AppointmentDeclined{
		Date:   req.RequestedDate,
		Time:   req.RequestedTime,
		Reason: reason,
	})
	return nil
}

func (w *Workflow) ListPending(ctx context.Context) ([]*model.PendingRequest, error) {
	reqs, err := w.requests.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	return reqs, nil
}

func (w *Workflow) resolve(ctx context.Context, id uuid.UUID, status model.RequestStatus, staffID uuid.UUID) (*model.AppointmentRequest, error) {
	req, err := w.requests.Resolve(ctx, id, status, staffID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewAlreadyHandled("request")
		}
		return nil, err
	}
	return req, nil
}

func (w *Workflow) doctorName(ctx context.Context, doctorID *uuid.UUID) (string, error) {
	if doctorID == nil {
		return fallbackDoctorName, nil
	}
	doctor, err := w.staff.Get(ctx, *doctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fallbackDoctorName, nil
		}
		return "", err
	}
	return doctor.DisplayName(), nil
}

func (w *Workflow) writeEvent(ctx context.Context, eventType string, aggregateID uuid.UUID, payload interface{}) error {
	event, err := model.NewOutboxEvent(eventType, aggregateID, payload)
	if err != nil {
		return err
	}
	return w.outbox.Create(ctx, event)
}

// notify runs after commit; failures here never affect the transition.
func (w *Workflow) notify(ctx context.Context, patientID uuid.UUID, event notification.Event) {
	if w.notifier == nil {
		return
	}
	// The decision is committed; a cancelled request must not skip the notice.
	patient, err := w.patients.Get(context.WithoutCancel(ctx), patientID)
	if err != nil {
		w.log.Error(err, "failed to load patient for notification", "patient_id", patientID.String())
		return
	}
	w.notifier.Enqueue(patient, event)
}

func (w *Workflow) transitionErr(action string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return fmt.Errorf("failed to %s appointment request: %w", action, err)
}

func (w *Workflow) record(action string, err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, apperrors.AlreadyHandledError):
		result = "already_handled"
	default:
		result = "error"
	}
	w.metrics.WorkflowTransitions.WithLabelValues(action, result).Inc()
}

var _ WorkflowService = (*Workflow)(nil)
