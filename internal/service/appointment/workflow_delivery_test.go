package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/email"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/push"
	"github.com/jwalitptl/medicare-api/internal/repository"
	"github.com/jwalitptl/medicare-api/internal/repository/repotest"
	"github.com/jwalitptl/medicare-api/internal/service/chat"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

type downPush struct{}

func (downPush) Send(context.Context, push.Notification) error { return errors.New("push down") }

type downEmail struct{}

func (downEmail) Send(context.Context, email.Message) error { return errors.New("smtp down") }

// newDeliveryFixture wires the workflow to a running dispatcher whose push
// and email channels always fail.
func newDeliveryFixture(t *testing.T) (*fixture, *notification.Dispatcher) {
	t.Helper()
	store := repotest.NewStore()
	token, addr := "device-1", "asha@example.com"

	d := notification.NewDispatcher(store.NotificationLogs(), downPush{}, downEmail{},
		notification.Options{Workers: 1, QueueSize: 4, DeliveryTimeout: time.Second}, nil, nil)
	d.Start()

	f := &fixture{
		store:   store,
		patient: store.AddPatient(model.Patient{Name: "Asha Rao", Phone: "9000000001", Email: &addr, FCMToken: &token}),
		doctor:  store.AddStaff(model.Staff{Name: "Dr. Mehta", Role: "doctor"}),
		staff:   store.AddStaff(model.Staff{Name: "Priya", Role: "receptionist"}),
	}
	f.workflow = NewWorkflow(WorkflowDeps{
		Tx:           store,
		Requests:     store.Requests(),
		Appointments: store.Appointments(),
		Patients:     store.Patients(),
		Staff:        store.Staff(),
		Outbox:       store.Outbox(),
		Chat:         chat.NewService(store.Chat(), store.Outbox(), store),
		Notifier:     d,
	})
	return f, d
}

func drain(t *testing.T, d *notification.Dispatcher) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
}

func TestApprove_FailedDeliveryIsLogged(t *testing.T) {
	f, d := newDeliveryFixture(t)
	ctx := context.Background()
	req := f.submit(t, "checkup")

	appt, err := f.workflow.Approve(ctx, req.ID, f.staff.ID)
	require.NoError(t, err)
	require.NotNil(t, appt)
	drain(t, d)

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, notification.TypeAppointment, logs[0].Type)
	assert.Equal(t, model.NotificationStatusFailed, logs[0].Status)
	assert.Equal(t, f.patient.ID, logs[0].PatientID)

	stored, err := f.store.Requests().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, stored.Status)
	assert.Len(t, f.store.AppointmentsFor(f.patient.ID), 1)
	assert.Len(t, f.store.MessagesFor(f.patient.ID), 2)

	_, err = f.workflow.Approve(ctx, req.ID, f.staff.ID)
	assert.ErrorIs(t, err, apperrors.AlreadyHandledError)
}

func TestReject_FailedDeliveryIsLogged(t *testing.T) {
	f, d := newDeliveryFixture(t)
	ctx := context.Background()
	req := f.submit(t, "checkup")

	require.NoError(t, f.workflow.Reject(ctx, req.ID, f.staff.ID, "fully booked"))
	drain(t, d)

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, notification.TypeAppointmentDeclined, logs[0].Type)
	assert.Equal(t, model.NotificationStatusFailed, logs[0].Status)

	stored, err := f.store.Requests().Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, stored.Status)
	assert.Empty(t, f.store.AppointmentsFor(f.patient.ID))
	assert.Len(t, f.store.MessagesFor(f.patient.ID), 2)
}

// cancellingOutbox cancels the caller's context once the decision's outbox
// event is written, so the context is already done when the workflow commits.
type cancellingOutbox struct {
	repository.OutboxRepository
	cancel context.CancelFunc
}

func (o cancellingOutbox) Create(ctx context.Context, e *model.OutboxEvent) error {
	err := o.OutboxRepository.Create(ctx, e)
	if e.EventType == model.EventRequestApproved {
		o.cancel()
	}
	return err
}

type contextAwarePatients struct {
	repository.PatientRepository
}

func (p contextAwarePatients) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.PatientRepository.Get(ctx, id)
}

func TestApprove_NotifiesAfterCallerCancels(t *testing.T) {
	store := repotest.NewStore()
	notifier := &recordingNotifier{accept: true}
	patient := store.AddPatient(model.Patient{Name: "Asha Rao", Phone: "9000000001"})
	doctor := store.AddStaff(model.Staff{Name: "Dr. Mehta", Role: "doctor"})
	staff := store.AddStaff(model.Staff{Name: "Priya", Role: "receptionist"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWorkflow(WorkflowDeps{
		Tx:           store,
		Requests:     store.Requests(),
		Appointments: store.Appointments(),
		Patients:     contextAwarePatients{store.Patients()},
		Staff:        store.Staff(),
		Outbox:       cancellingOutbox{OutboxRepository: store.Outbox(), cancel: cancel},
		Chat:         chat.NewService(store.Chat(), store.Outbox(), store),
		Notifier:     notifier,
	})

	req, err := w.Submit(context.Background(), &model.SubmitRequestInput{
		PatientID:     patient.ID,
		DoctorID:      &doctor.ID,
		RequestedDate: "2025-03-01",
		RequestedTime: "10:00",
	})
	require.NoError(t, err)

	_, err = w.Approve(ctx, req.ID, staff.ID)
	require.NoError(t, err)
	require.Error(t, ctx.Err())

	sent := notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, patient.ID, sent[0].patient.ID)
}
