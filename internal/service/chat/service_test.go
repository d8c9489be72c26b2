package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medicare-api/internal/model"
	"github.com/jwalitptl/medicare-api/internal/repository/repotest"
	apperrors "github.com/jwalitptl/medicare-api/pkg/errors"
)

func setup(t *testing.T) (*Service, *repotest.Store, *model.Patient) {
	t.Helper()
	store := repotest.NewStore()
	p := store.AddPatient(model.Patient{Name: "Asha Rao", Phone: "9000000001"})
	return NewService(store.Chat(), store.Outbox(), store), store, p
}

func TestAppend_SenderRules(t *testing.T) {
	svc, _, p := setup(t)
	staffID := uuid.New()

	tests := []struct {
		name    string
		in      AppendInput
		wantErr bool
	}{
		{"patient without sender", AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: "hi"}, false},
		{"staff with sender", AppendInput{PatientID: p.ID, SenderRole: model.SenderStaff, SenderID: &staffID, Message: "hello"}, false},
		{"patient with sender", AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, SenderID: &staffID, Message: "hi"}, true},
		{"staff without sender", AppendInput{PatientID: p.ID, SenderRole: model.SenderStaff, Message: "hello"}, true},
		{"unknown role", AppendInput{PatientID: p.ID, SenderRole: "admin", Message: "hello"}, true},
		{"blank message", AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: "  "}, true},
		{"bad priority", AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: "hi", Priority: "critical"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := svc.Append(context.Background(), tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, apperrors.ValidationError)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.PriorityNormal, msg.Priority)
			assert.False(t, msg.IsRead)
		})
	}
}

func TestAppend_WritesOutboxEvent(t *testing.T) {
	svc, store, p := setup(t)

	msg, err := svc.Append(context.Background(), AppendInput{
		PatientID:  p.ID,
		SenderRole: model.SenderPatient,
		Message:    "my knee hurts",
		Priority:   model.PriorityUrgent,
	})
	require.NoError(t, err)

	events := store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, model.EventChatMessage, events[0].EventType)
	assert.Equal(t, p.ID, events[0].AggregateID)
	assert.Contains(t, string(events[0].Payload), msg.ID.String())
}

func TestAppend_OutboxFailureRollsBackMessage(t *testing.T) {
	svc, store, p := setup(t)
	store.FailOn["outbox.Create"] = errors.New("outbox unavailable")

	_, err := svc.Append(context.Background(), AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: "hi"})
	require.Error(t, err)
	assert.Empty(t, store.MessagesFor(p.ID))
}

func TestMarkRead_Idempotent(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Append(ctx, AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: "ping"})
		require.NoError(t, err)
	}

	unread, err := svc.UnreadCount(ctx, p.ID, model.SenderPatient)
	require.NoError(t, err)
	assert.Equal(t, 3, unread)

	n, err := svc.MarkRead(ctx, p.ID, model.SenderPatient)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	n, err = svc.MarkRead(ctx, p.ID, model.SenderPatient)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	unread, err = svc.UnreadCount(ctx, p.ID, model.SenderPatient)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestMarkRead_OnlyTouchesGivenRole(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()
	staffID := uuid.New()

	_, err := svc.Append(ctx, AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: "question"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendInput{PatientID: p.ID, SenderRole: model.SenderStaff, SenderID: &staffID, Message: "answer"})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, p.ID, model.SenderStaff)
	require.NoError(t, err)

	unread, err := svc.UnreadCount(ctx, p.ID, model.SenderPatient)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)
}

func TestUnreadForPatient(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()
	staffID := uuid.New()

	for i := 0; i < 2; i++ {
		_, err := svc.Append(ctx, AppendInput{PatientID: p.ID, SenderRole: model.SenderStaff, SenderID: &staffID, Message: "update"})
		require.NoError(t, err)
	}

	n, err := svc.UnreadForPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = svc.UnreadForPatient(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestConversations_OrderedByUnreadPriority(t *testing.T) {
	svc, store, calm := setup(t)
	ctx := context.Background()
	urgent := store.AddPatient(model.Patient{Name: "Ravi Kumar", Phone: "9000000002"})

	_, err := svc.Append(ctx, AppendInput{PatientID: calm.ID, SenderRole: model.SenderPatient, Message: "thanks", Priority: model.PriorityLow})
	require.NoError(t, err)
	_, err = svc.Append(ctx, AppendInput{PatientID: urgent.ID, SenderRole: model.SenderPatient, Message: "chest pain", Priority: model.PriorityUrgent})
	require.NoError(t, err)

	convs, err := svc.Conversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, urgent.ID, convs[0].PatientID)
	assert.Equal(t, 1, convs[0].UnreadCount)

	total, err := svc.TotalUnread(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestTranscript_Ascending(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	for _, text := range []string{"first", "second"} {
		_, err := svc.Append(ctx, AppendInput{PatientID: p.ID, SenderRole: model.SenderPatient, Message: text})
		require.NoError(t, err)
	}

	msgs, err := svc.Transcript(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Message)
	assert.Equal(t, "second", msgs[1].Message)
}
