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

const reportColumns = `
	id, patient_id, doctor_id, report_type, title, description, findings,
	recommendations, file_path, status, created_at`

type reportRepository struct {
	BaseRepository
}

func NewReportRepository(base BaseRepository) repository.ReportRepository {
	return &reportRepository{base}
}

func (r *reportRepository) Create(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (
			id, patient_id, doctor_id, report_type, title, description,
			findings, recommendations, file_path, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.Status == "" {
		report.Status = "completed"
	}
	report.CreatedAt = time.Now()

	_, err := r.ext(ctx).ExecContext(ctx, query,
		report.ID,
		report.PatientID,
		report.DoctorID,
		report.ReportType,
		report.Title,
		report.Description,
		report.Findings,
		report.Recommendations,
		report.FilePath,
		report.Status,
		report.CreatedAt,
	)
	if err != nil {
		return wrapErr("create report", err)
	}
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	var report model.Report
	if err := r.get(ctx, &report, `SELECT `+reportColumns+` FROM reports WHERE id = $1`, id); err != nil {
		return nil, wrapErr("get report", err)
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter *model.ReportFilter) (*model.Page[*model.Report], error) {
	conditions := []string{"1=1"}
	args := []interface{}{}
	argCount := 1

	if filter.PatientID != nil {
		conditions = append(conditions, fmt.Sprintf("patient_id = $%d", argCount))
		args = append(args, *filter.PatientID)
		argCount++
	}
	if filter.DoctorID != nil {
		conditions = append(conditions, fmt.Sprintf("doctor_id = $%d", argCount))
		args = append(args, *filter.DoctorID)
		argCount++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argCount))
		args = append(args, filter.Status)
		argCount++
	}
	where := " WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.get(ctx, &total, `SELECT COUNT(*) FROM reports`+where, args...); err != nil {
		return nil, wrapErr("count reports", err)
	}

	query := `SELECT ` + reportColumns + ` FROM reports` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset())

	reports := []*model.Report{}
	if err := r.selectRows(ctx, &reports, query, args...); err != nil {
		return nil, wrapErr("list reports", err)
	}
	return &model.Page[*model.Report]{Rows: reports, Total: total}, nil
}
