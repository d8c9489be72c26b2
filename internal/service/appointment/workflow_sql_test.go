package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
	pgrepo "github.com/jwalitptl/medicare-api/internal/repository/postgres"
	"github.com/jwalitptl/medicare-api/internal/service/chat"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

func newSQLWorkflow(t *testing.T, notifier *recordingNotifier) (*Workflow, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repos := pgrepo.NewRepositories(sqlx.NewDb(db, "postgres"))
	return NewWorkflow(WorkflowDeps{
		Tx:           repos.Tx,
		Requests:     repos.AppointmentRequests,
		Appointments: repos.Appointments,
		Patients:     repos.Patients,
		Staff:        repos.Staff,
		Outbox:       repos.Outbox,
		Chat:         chat.NewService(repos.Chat, repos.Outbox, repos.Tx),
		Notifier:     notifier,
	}), mock
}

var resolvedColumns = []string{
	"id", "patient_id", "doctor_id", "requested_date", "requested_time", "reason",
	"status", "handled_by", "handled_at", "chat_message_id", "created_at",
}

func TestApprove_SQL_RollsBackWhenAppointmentInsertFails(t *testing.T) {
	notifier := &recordingNotifier{accept: true}
	w, mock := newSQLWorkflow(t, notifier)

	requestID, patientID, staffID := uuid.New(), uuid.New(), uuid.New()
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE appointment_requests r\s+SET status = \$2.*WHERE r.id = \$1 AND r.status = 'pending'`).
		WithArgs(requestID, model.RequestStatusApproved, staffID).
		WillReturnRows(sqlmock.NewRows(resolvedColumns).AddRow(
			requestID.String(), patientID.String(), nil, "2025-03-01", "10:00", "checkup",
			"approved", staffID.String(), now, nil, now,
		))
	mock.ExpectExec(`INSERT INTO appointments`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := w.Approve(context.Background(), requestID, staffID)
	require.Error(t, err)
	assert.Empty(t, notifier.all())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReject_SQL_LostRaceIsAlreadyHandled(t *testing.T) {
	notifier := &recordingNotifier{accept: true}
	w, mock := newSQLWorkflow(t, notifier)

	requestID, staffID := uuid.New(), uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE appointment_requests r`).
		WithArgs(requestID, model.RequestStatusRejected, staffID).
		WillReturnRows(sqlmock.NewRows(resolvedColumns))
	mock.ExpectRollback()

	err := w.Reject(context.Background(), requestID, staffID, "fully booked")
	assert.ErrorIs(t, err, apperrors.AlreadyHandledError)
	assert.Empty(t, notifier.all())
	assert.NoError(t, mock.ExpectationsWereMet())
}
