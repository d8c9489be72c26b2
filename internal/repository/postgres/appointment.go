package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

const appointmentDetailSelect = `
	SELECT a.id, a.patient_id, a.doctor_id,
		   to_char(a.appointment_date, 'YYYY-MM-DD') AS appointment_date,
		   to_char(a.appointment_time, 'HH24:MI') AS appointment_time,
		   a.type, COALESCE(a.notes, '') AS notes, a.status,
		   a.created_at, a.updated_at,
		   p.name AS patient_name, p.patient_code,
		   s.name AS doctor_name
	FROM appointments a
	JOIN patients p ON p.id = a.patient_id
	LEFT JOIN staff s ON s.id = a.doctor_id`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, appointment_time,
			type, notes, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	if appointment.Status == "" {
		appointment.Status = model.AppointmentStatusScheduled
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.ext(ctx).ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Date,
		appointment.Time,
		appointment.Type,
		appointment.Notes,
		appointment.Status,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return wrapErr("create appointment", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.AppointmentDetail, error) {
	query := appointmentDetailSelect + ` WHERE a.id = $1`

	var appointment model.AppointmentDetail
	if err := r.get(ctx, &appointment, query, id); err != nil {
		return nil, wrapErr("get appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) List(ctx context.Context, filter *model.AppointmentFilter) (*model.Page[*model.AppointmentDetail], error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argCount := 1

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("a.patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}
	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("a.doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("a.status = $%d", argCount))
		args = append(args, filter.Status)
		argCount++
	}
	if filter.Date != "" {
		conditions = append(conditions, fmt.Sprintf("a.appointment_date = $%d", argCount))
		args = append(args, filter.Date)
		argCount++
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.get(ctx, &total, `SELECT COUNT(*) FROM appointments a`+where, args...); err != nil {
		return nil, wrapErr("count appointments", err)
	}

	query := appointmentDetailSelect + where +
		fmt.Sprintf(" ORDER BY a.appointment_date DESC, a.appointment_time DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset())

	rows := []*model.AppointmentDetail{}
	if err := r.selectRows(ctx, &rows, query, args...); err != nil {
		return nil, wrapErr("list appointments", err)
	}
	return &model.Page[*model.AppointmentDetail]{Rows: rows, Total: total}, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET doctor_id = $1, appointment_date = $2, appointment_time = $3,
			type = $4, notes = $5, status = $6, updated_at = $7
		WHERE id = $8
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.ext(ctx).ExecContext(ctx, query,
		appointment.DoctorID,
		appointment.Date,
		appointment.Time,
		appointment.Type,
		appointment.Notes,
		appointment.Status,
		appointment.UpdatedAt,
		appointment.ID,
	)
	if err != nil {
		return wrapErr("update appointment", err)
	}
	return checkRowsAffected("update appointment", result)
}
