package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

type notificationLogRepository struct {
	BaseRepository
}

func NewNotificationLogRepository(base BaseRepository) repository.NotificationLogRepository {
	return &notificationLogRepository{base}
}

func (r *notificationLogRepository) Create(ctx context.Context, log *model.NotificationLog) error {
	query := `
		INSERT INTO notification_logs (id, patient_id, type, title, message, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}

	_, err := r.ext(ctx).ExecContext(ctx, query,
		log.ID, log.PatientID, log.Type, log.Title, log.Message, log.Status, log.CreatedAt,
	)
	if err != nil {
		return wrapErr("create notification log", err)
	}
	return nil
}

func (r *notificationLogRepository) List(ctx context.Context, patientID *uuid.UUID, limit int) ([]*model.NotificationLog, error) {
	logs := []*model.NotificationLog{}
	if patientID != nil {
		query := `
			SELECT id, patient_id, type, title, message, status, created_at
			FROM notification_logs WHERE patient_id = $1
			ORDER BY created_at DESC LIMIT $2
		`
		if err := r.selectRows(ctx, &logs, query, *patientID, limit); err != nil {
			return nil, wrapErr("list notification logs", err)
		}
		return logs, nil
	}

	query := `
		SELECT id, patient_id, type, title, message, status, created_at
		FROM notification_logs
		ORDER BY created_at DESC LIMIT $1
	`
	if err := r.selectRows(ctx, &logs, query, limit); err != nil {
		return nil, wrapErr("list notification logs", err)
	}
	return logs, nil
}
