package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

const staffColumns = `id, name, email, password_hash, role, specialization, phone, is_active, created_at`

type staffRepository struct {
	BaseRepository
}

func NewStaffRepository(base BaseRepository) repository.StaffRepository {
	return &staffRepository{base}
}

func (r *staffRepository) Get(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	var staff model.Staff
	if err := r.get(ctx, &staff, `SELECT `+staffColumns+` FROM staff WHERE id = $1`, id); err != nil {
		return nil, wrapErr("get staff", err)
	}
	return &staff, nil
}

func (r *staffRepository) GetActiveByEmail(ctx context.Context, email string) (*model.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE LOWER(email) = LOWER($1) AND is_active = true`

	var staff model.Staff
	if err := r.get(ctx, &staff, query, email); err != nil {
		return nil, wrapErr("get staff by email", err)
	}
	return &staff, nil
}

func (r *staffRepository) GetDoctor(ctx context.Context, id uuid.UUID) (*model.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE id = $1 AND role = 'doctor'`

	var staff model.Staff
	if err := r.get(ctx, &staff, query, id); err != nil {
		return nil, wrapErr("get doctor", err)
	}
	return &staff, nil
}

func (r *staffRepository) ListDoctors(ctx context.Context) ([]*model.Staff, error) {
	query := `SELECT ` + staffColumns + ` FROM staff WHERE role = 'doctor' AND is_active = true ORDER BY name`

	doctors := []*model.Staff{}
	if err := r.selectRows(ctx, &doctors, query); err != nil {
		return nil, wrapErr("list doctors", err)
	}
	return doctors, nil
}
