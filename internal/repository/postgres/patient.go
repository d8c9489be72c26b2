package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

const patientColumns = `
	id, patient_code, name, email, phone,
	to_char(date_of_birth, 'YYYY-MM-DD') AS date_of_birth,
	gender, blood_group, address, emergency_contact_name, emergency_contact_phone,
	fcm_token, portal_password, is_active, created_at, updated_at`

const (
	// First issued code is MED1001.
	patientCodeBase     = 1000
	patientCodeAttempts = 3

	patientCodeKey    = "patients_patient_code_key"
	patientEmailIndex = "idx_patients_email"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

// Create assigns the next MED#### code. Two concurrent creates can read the
// same MAX, so a patient_code collision is retried with a fresh code unless
// ctx carries a transaction, which the failed insert has already aborted.
func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}
	patient.IsActive = true
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = patient.CreatedAt

	for attempt := 1; ; attempt++ {
		err := r.insert(ctx, patient)
		if err == nil {
			return nil
		}
		constraint, dup := violatedUnique(err)
		switch {
		case dup && constraint == patientEmailIndex:
			return fmt.Errorf("failed to create patient: %w", repository.ErrEmailTaken)
		case dup && constraint == patientCodeKey && attempt < patientCodeAttempts && !inTx(ctx):
			continue
		default:
			return wrapErr("create patient", err)
		}
	}
}

func (r *patientRepository) insert(ctx context.Context, patient *model.Patient) error {
	var next int
	codeQuery := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(patient_code FROM 4) AS INTEGER)), $1) + 1
		FROM patients
	`
	if err := r.get(ctx, &next, codeQuery, patientCodeBase); err != nil {
		return err
	}
	patient.PatientCode = fmt.Sprintf("MED%04d", next)

	query := `
		INSERT INTO patients (
			id, patient_code, name, email, phone, date_of_birth, gender,
			blood_group, address, emergency_contact_name, emergency_contact_phone,
			portal_password, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.ext(ctx).ExecContext(ctx, query,
		patient.ID,
		patient.PatientCode,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.BloodGroup,
		patient.Address,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.PortalPassword,
		patient.IsActive,
		patient.CreatedAt,
		patient.UpdatedAt,
	)
	return err
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	var patient model.Patient
	if err := r.get(ctx, &patient, query, id); err != nil {
		return nil, wrapErr("get patient", err)
	}
	return &patient, nil
}

func (r *patientRepository) GetByCode(ctx context.Context, code string) (*model.Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE patient_code = $1 AND is_active = true`

	var patient model.Patient
	if err := r.get(ctx, &patient, query, code); err != nil {
		return nil, wrapErr("get patient by code", err)
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, filter *model.PatientFilter) (*model.Page[*model.Patient], error) {
	where := ` WHERE is_active = true`
	args := []interface{}{}
	argCount := 1

	if filter.Search != "" {
		where += fmt.Sprintf(` AND (name ILIKE $%d OR patient_code ILIKE $%d OR phone ILIKE $%d)`, argCount, argCount, argCount)
		args = append(args, "%"+filter.Search+"%")
		argCount++
	}

	var total int
	if err := r.get(ctx, &total, `SELECT COUNT(*) FROM patients`+where, args...); err != nil {
		return nil, wrapErr("count patients", err)
	}

	query := `SELECT ` + patientColumns + ` FROM patients` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, argCount, argCount+1)
	args = append(args, filter.Limit, filter.Offset())

	patients := []*model.Patient{}
	if err := r.selectRows(ctx, &patients, query, args...); err != nil {
		return nil, wrapErr("list patients", err)
	}
	return &model.Page[*model.Patient]{Rows: patients, Total: total}, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, email = $2, phone = $3, date_of_birth = $4, gender = $5,
			blood_group = $6, address = $7, emergency_contact_name = $8,
			emergency_contact_phone = $9, portal_password = $10, updated_at = $11
		WHERE id = $12 AND is_active = true
	`
	patient.UpdatedAt = time.Now()

	result, err := r.ext(ctx).ExecContext(ctx, query,
		patient.Name,
		patient.Email,
		patient.Phone,
		patient.DateOfBirth,
		patient.Gender,
		patient.BloodGroup,
		patient.Address,
		patient.EmergencyContactName,
		patient.EmergencyContactPhone,
		patient.PortalPassword,
		patient.UpdatedAt,
		patient.ID,
	)
	if err != nil {
		if constraint, ok := violatedUnique(err); ok && constraint == patientEmailIndex {
			return fmt.Errorf("failed to update patient: %w", repository.ErrEmailTaken)
		}
		return wrapErr("update patient", err)
	}
	return checkRowsAffected("update patient", result)
}

func (r *patientRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE patients SET is_active = false, updated_at = NOW() WHERE id = $1 AND is_active = true`

	result, err := r.ext(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return wrapErr("deactivate patient", err)
	}
	return checkRowsAffected("deactivate patient", result)
}

func (r *patientRepository) UpdatePushToken(ctx context.Context, id uuid.UUID, token string) error {
	query := `UPDATE patients SET fcm_token = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.ext(ctx).ExecContext(ctx, query, token, id)
	if err != nil {
		return wrapErr("update push token", err)
	}
	return checkRowsAffected("update push token", result)
}
