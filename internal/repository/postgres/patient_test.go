package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository"
)

func TestPatientRepository_CreateAssignsCode(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewPatientRepository(base)

	mock.ExpectQuery("SELECT COALESCE\\(MAX\\(CAST\\(SUBSTRING\\(patient_code").
		WithArgs(patientCodeBase).
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1001))
	mock.ExpectExec("INSERT INTO patients").WillReturnResult(sqlmock.NewResult(0, 1))

	patient := &model.Patient{Name: "Asha Rao", Phone: "9876543210"}
	require.NoError(t, repo.Create(context.Background(), patient))
	assert.Equal(t, "MED1001", patient.PatientCode)
	assert.True(t, patient.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

const nextCodeQuery = "SELECT COALESCE\\(MAX\\(CAST\\(SUBSTRING\\(patient_code"

func nextCodeRows(n int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"next"}).AddRow(n)
}

func TestPatientRepository_CreateDuplicateEmail(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewPatientRepository(base)

	mock.ExpectQuery(nextCodeQuery).WillReturnRows(nextCodeRows(1002))
	mock.ExpectExec("INSERT INTO patients").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: patientEmailIndex})

	email := "asha@example.com"
	err := repo.Create(context.Background(), &model.Patient{Name: "Asha Rao", Phone: "9876543210", Email: &email})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_CreateRetriesCodeCollision(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewPatientRepository(base)

	mock.ExpectQuery(nextCodeQuery).WillReturnRows(nextCodeRows(1002))
	mock.ExpectExec("INSERT INTO patients").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: patientCodeKey})
	mock.ExpectQuery(nextCodeQuery).WillReturnRows(nextCodeRows(1003))
	mock.ExpectExec("INSERT INTO patients").WillReturnResult(sqlmock.NewResult(0, 1))

	patient := &model.Patient{Name: "Ravi Kumar", Phone: "9876543211"}
	require.NoError(t, repo.Create(context.Background(), patient))
	assert.Equal(t, "MED1003", patient.PatientCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_CreateGivesUpOnCodeCollisions(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewPatientRepository(base)

	for i := 0; i < patientCodeAttempts; i++ {
		mock.ExpectQuery(nextCodeQuery).WillReturnRows(nextCodeRows(1002))
		mock.ExpectExec("INSERT INTO patients").
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: patientCodeKey})
	}

	err := repo.Create(context.Background(), &model.Patient{Name: "Ravi Kumar", Phone: "9876543211"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	assert.NotErrorIs(t, err, repository.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPatientRepository_UpdateDuplicateEmail(t *testing.T) {
	base, mock := newMockBase(t)
	repo := NewPatientRepository(base)

	mock.ExpectExec("UPDATE patients").
		WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: patientEmailIndex})

	email := "ravi@example.com"
	err := repo.Update(context.Background(), &model.Patient{Base: model.Base{ID: uuid.New()}, Name: "Asha Rao", Phone: "1", Email: &email})
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}
