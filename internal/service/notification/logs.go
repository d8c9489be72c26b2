package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

const (
	recentLogsLimit  = 100
	patientLogsLimit = 50
)

// LogService reads back the notification history.
type LogService struct {
	repo repository.NotificationLogRepository
}

func NewLogService(repo repository.NotificationLogRepository) *LogService {
	return &LogService{repo: repo}
}

// List returns the newest log rows, optionally for one patient only.
func (s *LogService) List(ctx context.Context, patientID *uuid.UUID) ([]*model.NotificationLog, error) {
	limit := recentLogsLimit
	if patientID != nil {
		limit = patientLogsLimit
	}
	logs, err := s.repo.List(ctx, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification logs: %w", err)
	}
	return logs, nil
}
