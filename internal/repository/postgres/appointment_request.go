package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

const requestColumns = `
	r.id, r.patient_id, r.doctor_id,
	to_char(r.requested_date, 'YYYY-MM-DD') AS requested_date,
	to_char(r.requested_time, 'HH24:MI') AS requested_time,
	COALESCE(r.reason, '') AS reason,
	r.status, r.handled_by, r.handled_at, r.chat_message_id, r.created_at`

type appointmentRequestRepository struct {
	BaseRepository
}

func NewAppointmentRequestRepository(base BaseRepository) repository.AppointmentRequestRepository {
	return &appointmentRequestRepository{base}
}

func (r *appointmentRequestRepository) Create(ctx context.Context, req *model.AppointmentRequest) error {
	query := `
		INSERT INTO appointment_requests (
			id, patient_id, doctor_id, requested_date, requested_time,
			reason, status, chat_message_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	req.Status = model.RequestStatusPending
	req.CreatedAt = time.Now()

	_, err := r.ext(ctx).ExecContext(ctx, query,
		req.ID,
		req.PatientID,
		req.DoctorID,
		req.RequestedDate,
		req.RequestedTime,
		req.Reason,
		req.Status,
		req.ChatMessageID,
		req.CreatedAt,
	)
	if err != nil {
		return wrapErr("create appointment request", err)
	}
	return nil
}

func (r *appointmentRequestRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM appointment_requests r WHERE r.id = $1`

	var req model.AppointmentRequest
	if err := r.get(ctx, &req, query, id); err != nil {
		return nil, wrapErr("get appointment request", err)
	}
	return &req, nil
}

func (r *appointmentRequestRepository) ListPending(ctx context.Context) ([]*model.PendingRequest, error) {
	query := `
		SELECT ` + requestColumns + `,
			p.name AS patient_name, p.patient_code,
			s.name AS doctor_name, s.specialization AS doctor_specialization
		FROM appointment_requests r
		JOIN patients p ON p.id = r.patient_id
		LEFT JOIN staff s ON s.id = r.doctor_id
		WHERE r.status = 'pending'
		ORDER BY r.created_at DESC
	`
	requests := []*model.PendingRequest{}
	if err := r.selectRows(ctx, &requests, query); err != nil {
		return nil, wrapErr("list pending requests", err)
	}
	return requests, nil
}

// Resolve is a single compare-and-swap on status: the row only changes while
// it is still pending, so concurrent callers cannot both win.
func (r *appointmentRequestRepository) Resolve(ctx context.Context, id uuid.UUID, status model.RequestStatus, handledBy uuid.UUID) (*model.AppointmentRequest, error) {
	if status == model.RequestStatusPending {
		return nil, fmt.Errorf("cannot resolve request to %q", status)
	}

	query := `
		UPDATE appointment_requests r
		SET status = $2, handled_by = $3, handled_at = NOW()
		WHERE r.id = $1 AND r.status = 'pending'
		RETURNING ` + requestColumns

	var req model.AppointmentRequest
	if err := r.get(ctx, &req, query, id, status, handledBy); err != nil {
		return nil, wrapErr("resolve appointment request", err)
	}
	return &req, nil
}
