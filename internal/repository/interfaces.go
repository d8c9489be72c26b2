package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
)

var (
	// ErrNotFound is returned when a lookup or conditional update matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a unique constraint violation.
	ErrDuplicate = errors.New("duplicate record")
	// ErrEmailTaken is returned when another patient already uses the email,
	// compared case-insensitively.
	ErrEmailTaken = errors.New("email already registered")
)

type (
	// Transactor runs fn inside one database transaction. Repositories called
	// with the ctx passed to fn join that transaction.
	Transactor interface {
		WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByCode(ctx context.Context, code string) (*model.Patient, error)
		List(ctx context.Context, filter *model.PatientFilter) (*model.Page[*model.Patient], error)
		Update(ctx context.Context, patient *model.Patient) error
		Deactivate(ctx context.Context, id uuid.UUID) error
		UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error
	}

	StaffRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Staff, error)
		GetActiveByEmail(ctx context.Context, email string) (*model.Staff, error)
		GetDoctor(ctx context.Context, id uuid.UUID) (*model.Staff, error)
		ListDoctors(ctx context.Context) ([]*model.Staff, error)
	}

	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error)
		List(ctx context.Context, filter *model.AppointmentFilter) (*model.Page[*model.AppointmentDetail], error)
		Update(ctx context.Context, appointment *model.Appointment) error
	}

	AppointmentRequestRepository interface {
		Create(ctx context.Context, req *model.AppointmentRequest) error
		Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error)
		ListPending(ctx context.Context) ([]*model.PendingRequest, error)
		// Resolve atomically moves a pending request to status. It returns
		// ErrNotFound when no pending row with that id exists.
		Resolve(ctx context.Context, id uuid.UUID, status model.RequestStatus, handledBy uuid.UUID) (*model.AppointmentRequest, error)
	}

	ChatRepository interface {
		Create(ctx context.Context, msg *model.ChatMessage) error
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.ChatMessageView, error)
		MarkRead(ctx context.Context, patientID uuid.UUID, senderRole model.SenderRole) (int64, error)
		UnreadCount(ctx context.Context, patientID uuid.UUID, senderRole model.SenderRole) (int, error)
		TotalUnread(ctx context.Context, senderRole model.SenderRole) (int, error)
		Conversations(ctx context.Context) ([]*model.Conversation, error)
	}

	NotificationLogRepository interface {
		Create(ctx context.Context, log *model.NotificationLog) error
		List(ctx context.Context, patientID *uuid.UUID, limit int) ([]*model.NotificationLog, error)
	}

	BillRepository interface {
		Create(ctx context.Context, bill *model.Bill) error
		Get(ctx context.Context, id uuid.UUID) (*model.Bill, error)
		List(ctx context.Context, filter *model.BillFilter) (*model.Page[*model.Bill], error)
		UpdatePayment(ctx context.Context, id uuid.UUID, paid float64, method *string, status model.BillStatus) error
	}

	ReportRepository interface {
		Create(ctx context.Context, report *model.Report) error
		Get(ctx context.Context, id uuid.UUID) (*model.Report, error)
		List(ctx context.Context, filter *model.ReportFilter) (*model.Page[*model.Report], error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		GetPendingEventsWithLock(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)
