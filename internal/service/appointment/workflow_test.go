package appointment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository/repotest"
	"github.com/jwalitptl/medicare-api/internal/service/chat"
	"github.com/jwalitptl/medicare-api/internal/service/notification"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

type enqueued struct {
	patient *model.Patient
	event   notification.Event
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []enqueued
	accept bool
}

func (n *recordingNotifier) Enqueue(p *model.Patient, e notification.Event) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, enqueued{patient: p, event: e})
	return n.accept
}

func (n *recordingNotifier) all() []enqueued {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]enqueued(nil), n.events...)
}

type fixture struct {
	store    *repotest.Store
	workflow *Workflow
	notifier *recordingNotifier
	patient  *model.Patient
	doctor   *model.Staff
	staff    *model.Staff
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.NewStore()
	cardiology := "Cardiology"
	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{accept: true},
		patient:  store.AddPatient(model.Patient{Name: "Asha Rao", Phone: "9000000001"}),
		doctor:   store.AddStaff(model.Staff{Name: "Dr. Mehta", Role: "doctor", Specialization: &cardiology}),
		staff:    store.AddStaff(model.Staff{Name: "Priya", Role: "receptionist"}),
	}
	f.workflow = NewWorkflow(WorkflowDeps{
		Tx:           store,
		Requests:     store.Requests(),
		Appointments: store.Appointments(),
		Patients:     store.Patients(),
		Staff:        store.Staff(),
		Outbox:       store.Outbox(),
		Chat:         chat.NewService(store.Chat(), store.Outbox(), store),
		Notifier:     f.notifier,
	})
	return f
}

func (f *fixture) submit(t *testing.T, reason string) *model.AppointmentRequest {
	t.Helper()
	req, err := f.workflow.Submit(context.Background(), &model.SubmitRequestInput{
		PatientID:     f.patient.ID,
		DoctorID:      &f.doctor.ID,
		RequestedDate: "2025-03-01",
		RequestedTime: "10:00",
		Reason:        reason,
	})
	require.NoError(t, err)
	return req
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	req := f.submit(t, "checkup")

	assert.Equal(t, model.RequestStatusPending, req.Status)
	require.NotNil(t, req.ChatMessageID)

	msgs := f.store.MessagesFor(f.patient.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, *req.ChatMessageID, msgs[0].ID)
	assert.Equal(t, model.SenderPatient, msgs[0].SenderRole)
	assert.Equal(t, model.PriorityHigh, msgs[0].Priority)
	assert.Equal(t,
		"📅 Appointment Request\nDoctor: Dr. Mehta (Cardiology)\nDate: 2025-03-01\nTime: 10:00\nReason: checkup",
		msgs[0].Message)

	pending, err := f.workflow.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Asha Rao", pending[0].PatientName)
}

func TestSubmit_DefaultReasonInMessage(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "")

	msgs := f.store.MessagesFor(f.patient.ID)
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasSuffix(msgs[0].Message, "Reason: General consultation"))
}

func TestSubmit_UnknownDoctor(t *testing.T) {
	f := newFixture(t)
	unknown := uuid.New()

	_, err := f.workflow.Submit(context.Background(), &model.SubmitRequestInput{
		PatientID:     f.patient.ID,
		DoctorID:      &unknown,
		RequestedDate: "2025-03-01",
		RequestedTime: "10:00",
	})
	assert.ErrorIs(t, err, apperrors.NotFoundError)
	assert.Empty(t, f.store.MessagesFor(f.patient.ID))
}

func TestSubmit_InvalidDate(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.Submit(context.Background(), &model.SubmitRequestInput{
		PatientID:     f.patient.ID,
		RequestedDate: "01/03/2025",
		RequestedTime: "10:00",
	})
	assert.ErrorIs(t, err, apperrors.ValidationError)
}

func TestSubmit_RequestFailureRollsBackMessage(t *testing.T) {
	f := newFixture(t)
	f.store.FailOn["requests.Create"] = errors.New("insert failed")

	_, err := f.workflow.Submit(context.Background(), &model.SubmitRequestInput{
		PatientID:     f.patient.ID,
		DoctorID:      &f.doctor.ID,
		RequestedDate: "2025-03-01",
		RequestedTime: "10:00",
	})
	require.Error(t, err)
	assert.Empty(t, f.store.MessagesFor(f.patient.ID))
	assert.Empty(t, f.store.OutboxEvents())
}

func TestApprove(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "checkup")

	appt, err := f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.NoError(t, err)

	assert.Equal(t, "2025-03-01", appt.Date)
	assert.Equal(t, "10:00", appt.Time)
	assert.Equal(t, model.AppointmentTypeConsultation, appt.Type)
	assert.Equal(t, "checkup", appt.Notes)
	assert.Equal(t, model.AppointmentStatusScheduled, appt.Status)

	stored, err := f.store.Requests().Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, stored.Status)
	require.NotNil(t, stored.HandledBy)
	assert.Equal(t, f.staff.ID, *stored.HandledBy)
	assert.NotNil(t, stored.HandledAt)

	msgs := f.store.MessagesFor(f.patient.ID)
	require.Len(t, msgs, 2)
	reply := msgs[1]
	assert.Equal(t, model.SenderStaff, reply.SenderRole)
	require.NotNil(t, reply.SenderID)
	assert.Equal(t, f.staff.ID, *reply.SenderID)
	assert.Contains(t, reply.Message, "Dr. Mehta (Cardiology)")
	assert.Contains(t, reply.Message, "Please arrive 10 minutes early.")

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.AppointmentScheduled{Date: "2025-03-01", Time: "10:00"}, sent[0].event)
	assert.Equal(t, f.patient.ID, sent[0].patient.ID)

	var types []string
	for _, e := range f.store.OutboxEvents() {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, model.EventRequestSubmitted)
	assert.Contains(t, types, model.EventRequestApproved)
}

func TestApprove_WithoutDoctorUsesFallbackName(t *testing.T) {
	f := newFixture(t)
	req, err := f.workflow.Submit(context.Background(), &model.SubmitRequestInput{
		PatientID:     f.patient.ID,
		RequestedDate: "2025-03-01",
		RequestedTime: "10:00",
	})
	require.NoError(t, err)

	_, err = f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.NoError(t, err)

	msgs := f.store.MessagesFor(f.patient.ID)
	assert.Contains(t, msgs[len(msgs)-1].Message, "Doctor: Your Doctor")
}

func TestApprove_Twice(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "checkup")

	_, err := f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.NoError(t, err)

	_, err = f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.AlreadyHandledError)
	assert.Equal(t, "request already processed", apperrors.As(err).Message)
	assert.Len(t, f.store.AppointmentsFor(f.patient.ID), 1)
	assert.Len(t, f.notifier.all(), 1)
}

func TestApprove_MissingRequest(t *testing.T) {
	f := newFixture(t)

	_, err := f.workflow.Approve(context.Background(), uuid.New(), f.staff.ID)
	assert.ErrorIs(t, err, apperrors.AlreadyHandledError)
}

func TestApprove_AppointmentFailureKeepsRequestPending(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "checkup")
	f.store.FailOn["appointments.Create"] = errors.New("insert failed")

	_, err := f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.Error(t, err)

	stored, err := f.store.Requests().Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusPending, stored.Status)
	assert.Nil(t, stored.HandledBy)
	assert.Empty(t, f.notifier.all())
}

func TestApprove_DroppedNotificationStillSucceeds(t *testing.T) {
	f := newFixture(t)
	f.notifier.accept = false
	req := f.submit(t, "checkup")

	appt, err := f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.NoError(t, err)
	assert.NotNil(t, appt)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "checkup")

	require.NoError(t, f.workflow.Reject(context.Background(), req.ID, f.staff.ID, "fully booked"))

	stored, err := f.store.Requests().Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusRejected, stored.Status)
	assert.Empty(t, f.store.AppointmentsFor(f.patient.ID))

	msgs := f.store.MessagesFor(f.patient.ID)
	require.Len(t, msgs, 2)
	assert.Equal(t,
		"Your appointment request for 2025-03-01 at 10:00 has been declined.\nReason: fully booked\nPlease request a different time.",
		msgs[1].Message)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, notification.AppointmentDeclined{Date: "2025-03-01", Time: "10:00", Reason: "fully booked"}, sent[0].event)
}

func TestReject_DefaultReason(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "")

	require.NoError(t, f.workflow.Reject(context.Background(), req.ID, f.staff.ID, ""))

	msgs := f.store.MessagesFor(f.patient.ID)
	assert.Contains(t, msgs[len(msgs)-1].Message, "Reason: No slot available at the requested time.")
}

func TestReject_AfterApprove(t *testing.T) {
	f := newFixture(t)
	req := f.submit(t, "checkup")

	_, err := f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
	require.NoError(t, err)

	err = f.workflow.Reject(context.Background(), req.ID, f.staff.ID, "")
	assert.ErrorIs(t, err, apperrors.AlreadyHandledError)

	stored, err := f.store.Requests().Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, stored.Status)
}

func TestConcurrentHandlers_ExactlyOneWins(t *testing.T) {
	for _, mix := range []string{"approve/approve", "approve/reject"} {
		t.Run(mix, func(t *testing.T) {
			f := newFixture(t)
			req := f.submit(t, "checkup")

			const handlers = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				successes int
				handled   int
			)
			for i := 0; i < handlers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					var err error
					if mix == "approve/reject" && i%2 == 1 {
						err = f.workflow.Reject(context.Background(), req.ID, f.staff.ID, "")
					} else {
						_, err = f.workflow.Approve(context.Background(), req.ID, f.staff.ID)
					}
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						successes++
					} else if errors.Is(err, apperrors.AlreadyHandledError) {
						handled++
					}
				}(i)
			}
			wg.Wait()

			assert.Equal(t, 1, successes)
			assert.Equal(t, handlers-1, handled)
			assert.LessOrEqual(t, len(f.store.AppointmentsFor(f.patient.ID)), 1)
			assert.Len(t, f.notifier.all(), 1)
		})
	}
}
