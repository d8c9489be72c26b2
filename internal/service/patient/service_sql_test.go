package patient

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/medicare-api/internal/model"
	pgrepo "github.com/jwalitptl/medicare-api/internal/repository/postgres"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
	"github.com/jwalitptl/medicare-api/pkg/security"
)

func newSQLService(t *testing.T) (*Service, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	n := &recordingNotifier{}
	repos := pgrepo.NewRepositories(sqlx.NewDb(db, "postgres"))
	return NewService(repos.Patients, security.NewBcryptHasher(bcrypt.MinCost), n), mock, n
}

func TestCreatePatient_SQL_DuplicateEmailIsConflict(t *testing.T) {
	svc, mock, notifier := newSQLService(t)

	mock.ExpectQuery("SELECT COALESCE").
		WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1002))
	mock.ExpectExec("INSERT INTO patients").
		WillReturnError(&pq.Error{Code: "23505", Constraint: "idx_patients_email"})

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{
		Name:  "Asha Rao",
		Phone: "9000000001",
		Email: strPtr("Asha@Example.com"),
	})
	assert.ErrorIs(t, err, apperrors.ConflictError)
	assert.Empty(t, notifier.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePatient_SQL_CodeCollisionIsNotReportedAsEmail(t *testing.T) {
	svc, mock, _ := newSQLService(t)

	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT COALESCE").
			WillReturnRows(sqlmock.NewRows([]string{"next"}).AddRow(1002))
		mock.ExpectExec("INSERT INTO patients").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "patients_patient_code_key"})
	}

	_, err := svc.CreatePatient(context.Background(), &model.CreatePatientRequest{Name: "Ravi Kumar", Phone: "9000000002"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ConflictError)
	assert.NotContains(t, err.Error(), "email")
	assert.NoError(t, mock.ExpectationsWereMet())
}
