package approvalnotify

import (
	"context"
	"testing"
	"time"

	"approvals-backend/lib/directory"
	connectionhub "approvals-backend/lib/ws/hub/connection-hub"
	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	wsmodels "approvals-backend/models/ws"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type sentMail struct {
	to, subject, message string
}

type fakeSender struct {
	sent []sentMail
}

func (f *fakeSender) SendEMail(_ context.Context, to, subject, message string) error {
	f.sent = append(f.sent, sentMail{to: to, subject: subject, message: message})
	return nil
}

type senderFunc func(ctx context.Context, to, subject, message string) error

func (f senderFunc) SendEMail(ctx context.Context, to, subject, message string) error {
	return f(ctx, to, subject, message)
}

type fakeDirectory map[string]directory.User

func (f fakeDirectory) ResolveUsers(_ context.Context, ids []string) ([]directory.User, error) {
	var result []directory.User
	for _, id := range ids {
		if user, ok := f[id]; ok {
			result = append(result, user)
			continue
		}
		result = append(result, directory.Placeholder(id))
	}
	return result, nil
}

type fakeHub struct {
	connectionhub.Provider
	messages []wsmodels.ServerMessage
}

func (f *fakeHub) SendMessage(msg wsmodels.ServerMessage) bool {
	f.messages = append(f.messages, msg)
	return true
}

type notifierFunc func(ctx context.Context, event Event) error

func (f notifierFunc) ApprovalChanged(ctx context.Context, event Event) error {
	return f(ctx, event)
}

func testEvent(action models.HistoryAction, actor string, to models.ApprovalStatus) Event {
	details := dbmodels.ApprovalDetails{
		Approval: dbmodels.Approval{
			BaseModel:   dbmodels.BaseModel{ID: "ap-1"},
			EntityType:  models.EntityTypeForm,
			EntityID:    "42",
			RequesterID: "R",
			Status:      to,
		},
		Approvers: []dbmodels.ApprovalApprover{{ApproverID: "A"}, {ApproverID: "B"}},
	}
	return NewEvent(details, action, actor, models.ApprovalStatusDraft)
}

func TestEvent(t *testing.T) {
	event := testEvent(models.HistorySubmitted, "R", models.ApprovalStatusSubmitted)
	require.NotEmpty(t, event.ID)
	require.Equal(t, []string{"A", "B"}, event.Recipients())

	event = testEvent(models.HistoryResponded, "A", models.ApprovalStatusApproved)
	require.Equal(t, []string{"R", "B"}, event.Recipients())

	event = testEvent(models.HistoryApproversRemoved, "R", models.ApprovalStatusSubmitted)
	event.Changed = []string{"C"}
	require.Equal(t, []string{"A", "B", "C"}, event.Recipients())
}

func TestMulti(t *testing.T) {
	calls := 0
	ok := notifierFunc(func(context.Context, Event) error {
		calls++
		return nil
	})
	failing := notifierFunc(func(context.Context, Event) error {
		calls++
		return errors.New("broker down")
	})
	err := NewMulti(failing, ok, NewLogNotifier()).ApprovalChanged(context.Background(), Event{})
	require.EqualError(t, err, "broker down")
	require.Equal(t, 2, calls)

	require.Nil(t, NewMulti().ApprovalChanged(context.Background(), Event{}))
}

func TestEmailNotifier(t *testing.T) {
	ctx := context.Background()
	users := fakeDirectory{
		"R": {ID: "R", DisplayName: "Rita", Email: "rita@example.com", Found: true},
		"A": {ID: "A", DisplayName: "Anna", Email: "anna@example.com", Found: true},
	}

	t.Run(`approvers are asked to review`, func(t *testing.T) {
		sender := &fakeSender{}
		notifier := NewEmailNotifier(sender, users)
		require.Nil(t, notifier.ApprovalChanged(ctx, testEvent(models.HistorySubmitted, "R", models.ApprovalStatusSubmitted)))
		require.Len(t, sender.sent, 1)
		require.Equal(t, "anna@example.com", sender.sent[0].to)
		require.Equal(t, "Form 42: approval requested", sender.sent[0].subject)
		require.Equal(t, "Rita asks you to review Form 42.", sender.sent[0].message)
	})

	t.Run(`requester learns the decision`, func(t *testing.T) {
		sender := &fakeSender{}
		notifier := NewEmailNotifier(sender, users)
		event := testEvent(models.HistoryResponded, "A", models.ApprovalStatusDeclined)
		event.Comment = "missing signature"
		require.Nil(t, notifier.ApprovalChanged(ctx, event))
		require.Len(t, sender.sent, 1)
		require.Equal(t, "rita@example.com", sender.sent[0].to)
		require.Equal(t, "Form 42: Declined", sender.sent[0].subject)
		require.Contains(t, sender.sent[0].message, "Comment: missing signature")
	})

	t.Run(`comments send no email`, func(t *testing.T) {
		sender := &fakeSender{}
		notifier := NewEmailNotifier(sender, users)
		require.Nil(t, notifier.ApprovalChanged(ctx, testEvent(models.HistoryCommented, "A", models.ApprovalStatusSubmitted)))
		require.Empty(t, sender.sent)
	})

	t.Run(`sender sees the deadline of the event`, func(t *testing.T) {
		var deadline bool
		sender := senderFunc(func(ctx context.Context, _, _, _ string) error {
			_, deadline = ctx.Deadline()
			return ctx.Err()
		})
		notifier := NewEmailNotifier(sender, users)
		ctx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		require.Nil(t, notifier.ApprovalChanged(ctx, testEvent(models.HistorySubmitted, "R", models.ApprovalStatusSubmitted)))
		require.True(t, deadline)

		cancel()
		err := notifier.ApprovalChanged(ctx, testEvent(models.HistorySubmitted, "R", models.ApprovalStatusSubmitted))
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestPushNotifier(t *testing.T) {
	hub := &fakeHub{}
	notifier := NewPushNotifier(hub)
	require.Nil(t, notifier.ApprovalChanged(context.Background(), testEvent(models.HistoryResponded, "A", models.ApprovalStatusApproved)))
	require.Len(t, hub.messages, 2)
	require.Equal(t, "R", hub.messages[0].ToUserID)
	require.Equal(t, wsmodels.ApprovalChangedCode, hub.messages[0].Code)
	require.Equal(t, "Form approval is Approved", hub.messages[0].Msg)
}
