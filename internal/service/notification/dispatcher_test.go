package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/email"
	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/push"
)

type memoryLogs struct {
	mu   sync.Mutex
	rows []*model.NotificationLog
}

func (m *memoryLogs) Create(ctx context.Context, l *model.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = uuid.New()
	m.rows = append(m.rows, l)
	return nil
}

func (m *memoryLogs) List(ctx context.Context, patientID *uuid.UUID, limit int) ([]*model.NotificationLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*model.NotificationLog(nil), m.rows...), nil
}

func (m *memoryLogs) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type stubPush struct {
	mu   sync.Mutex
	err  error
	sent []push.Notification
}

func (s *stubPush) Send(ctx context.Context, n push.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

type stubEmail struct {
	mu   sync.Mutex
	err  error
	sent []email.Message
}

func (s *stubEmail) Send(ctx context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

func strPtr(s string) *string { return &s }

func testPatient(withToken, withEmail bool) *model.Patient {
	p := &model.Patient{
		Base:        model.Base{ID: uuid.New()},
		PatientCode: "MED1001",
		Name:        "Asha Rao",
	}
	if withToken {
		p.FCMToken = strPtr("device-token")
	}
	if withEmail {
		p.Email = strPtr("asha@example.com")
	}
	return p
}

func TestRender(t *testing.T) {
	p := testPatient(false, false)

	tests := []struct {
		name     string
		event    Event
		wantType string
		wantBody string
	}{
		{"registration", PatientRegistered{}, TypeRegistration,
			"Hello Asha Rao! Your account (ID: MED1001) is ready. Log in to the patient portal with your ID."},
		{"scheduled", AppointmentScheduled{Date: "2025-03-01", Time: "10:00"}, TypeAppointment,
			"Your appointment is on 2025-03-01 at 10:00. Please arrive 10 min early."},
		{"cancelled", AppointmentCancelled{Date: "2025-03-01", Time: "10:00"}, TypeAppointmentCancelled,
			"Your appointment on 2025-03-01 at 10:00 has been cancelled. Contact us to reschedule."},
		{"report", ReportReady{ReportType: "lab", Title: "CBC"}, TypeReport,
			`Your lab report "CBC" is ready. Log in to download it.`},
		{"bill", BillGenerated{BillNumber: "BILL000001", Total: 1500}, TypeBill,
			"A bill of ₹1500.00 (BILL000001) has been generated. Log in to view and pay."},
		{"payment", PaymentReceived{BillNumber: "BILL000001", PaidAmount: 500}, TypePayment,
			"Payment of ₹500.00 received for BILL000001. Thank you!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Render(p, tt.event)
			assert.Equal(t, tt.wantType, c.Type)
			assert.Equal(t, tt.wantBody, c.Body)
			assert.NotEmpty(t, c.Title)
		})
	}
}

func TestRender_DeclinedIncludesReason(t *testing.T) {
	c := Render(testPatient(false, false), AppointmentDeclined{Date: "2025-03-01", Time: "10:00", Reason: "fully booked"})
	assert.Equal(t, TypeAppointmentDeclined, c.Type)
	assert.Contains(t, c.Body, "fully booked")
}

func TestNotify_NoChannelsLogsPending(t *testing.T) {
	logs := &memoryLogs{}
	d := NewDispatcher(logs, &stubPush{}, &stubEmail{}, Options{}, nil, nil)

	entry := d.Notify(context.Background(), testPatient(false, false), AppointmentScheduled{Date: "2025-03-01", Time: "10:00"})

	assert.Equal(t, model.NotificationStatusPending, entry.Status)
	assert.Equal(t, TypeAppointment, entry.Type)
	assert.Equal(t, 1, logs.count())
}

func TestNotify_PushDecidesStatus(t *testing.T) {
	t.Run("push succeeds, email fails", func(t *testing.T) {
		logs := &memoryLogs{}
		pusher := &stubPush{}
		mailer := &stubEmail{err: errors.New("smtp down")}
		d := NewDispatcher(logs, pusher, mailer, Options{}, nil, nil)

		entry := d.Notify(context.Background(), testPatient(true, true), PatientRegistered{})

		assert.Equal(t, model.NotificationStatusSent, entry.Status)
		require.Len(t, pusher.sent, 1)
		assert.Equal(t, "device-token", pusher.sent[0].Token)
		assert.Equal(t, TypeRegistration, pusher.sent[0].Data["type"])
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, 1, logs.count())
	})

	t.Run("push fails", func(t *testing.T) {
		logs := &memoryLogs{}
		d := NewDispatcher(logs, &stubPush{err: errors.New("unregistered")}, &stubEmail{}, Options{}, nil, nil)

		entry := d.Notify(context.Background(), testPatient(true, false), PatientRegistered{})
		assert.Equal(t, model.NotificationStatusFailed, entry.Status)
		assert.Equal(t, 1, logs.count())
	})

	t.Run("push not configured", func(t *testing.T) {
		logs := &memoryLogs{}
		d := NewDispatcher(logs, &stubPush{err: push.ErrPushNotConfigured}, &stubEmail{}, Options{}, nil, nil)

		entry := d.Notify(context.Background(), testPatient(true, false), PatientRegistered{})
		assert.Equal(t, model.NotificationStatusFailed, entry.Status)
	})

	t.Run("email only stays pending", func(t *testing.T) {
		logs := &memoryLogs{}
		mailer := &stubEmail{}
		d := NewDispatcher(logs, &stubPush{}, mailer, Options{}, nil, nil)

		entry := d.Notify(context.Background(), testPatient(false, true), ReportReady{ReportType: "lab", Title: "CBC"})
		assert.Equal(t, model.NotificationStatusPending, entry.Status)
		require.Len(t, mailer.sent, 1)
		assert.Equal(t, "📋 Medical Report Ready", mailer.sent[0].Subject)
		assert.Contains(t, mailer.sent[0].HTML, "Dear <b style=\"color:#1a73e8;\">Asha Rao</b>")
	})
}

func TestNotify_WritesLogAfterCallerCancels(t *testing.T) {
	logs := &memoryLogs{}
	d := NewDispatcher(logs, &stubPush{}, &stubEmail{}, Options{}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d.Notify(ctx, testPatient(false, false), PatientRegistered{})
	assert.Equal(t, 1, logs.count())
}

func TestDispatcher_EnqueueAndDrain(t *testing.T) {
	logs := &memoryLogs{}
	d := NewDispatcher(logs, &stubPush{}, &stubEmail{}, Options{Workers: 3, QueueSize: 50}, nil, nil)
	d.Start()

	for i := 0; i < 20; i++ {
		require.True(t, d.Enqueue(testPatient(true, true), AppointmentScheduled{Date: "2025-03-01", Time: "10:00"}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 20, logs.count())

	assert.False(t, d.Enqueue(testPatient(false, false), PatientRegistered{}))
	assert.ErrorIs(t, d.Close(ctx), ErrDispatcherClosed)
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	logs := &memoryLogs{}
	d := NewDispatcher(logs, &stubPush{}, &stubEmail{}, Options{Workers: 1, QueueSize: 1}, nil, nil)

	assert.True(t, d.Enqueue(testPatient(false, false), PatientRegistered{}))
	assert.False(t, d.Enqueue(testPatient(false, false), PatientRegistered{}))

	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, logs.count())
}

func TestDispatcher_EnqueueCopiesPatient(t *testing.T) {
	logs := &memoryLogs{}
	d := NewDispatcher(logs, &stubPush{}, &stubEmail{}, Options{QueueSize: 1}, nil, nil)

	p := testPatient(false, false)
	require.True(t, d.Enqueue(p, PatientRegistered{}))
	p.Name = "changed"

	require.NoError(t, d.Close(context.Background()))
	rows, _ := logs.List(context.Background(), nil, 10)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].Message, "Asha Rao")
}
