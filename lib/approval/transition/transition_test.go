package transition

import (
	"testing"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	"github.com/stretchr/testify/require"
)

func TestNext(t *testing.T) {
	expected := map[models.ApprovalStatus]map[Event]models.ApprovalStatus{
		models.ApprovalStatusDraft: {
			EventSubmit: models.ApprovalStatusSubmitted,
		},
		models.ApprovalStatusSubmitted: {
			EventApprove:         models.ApprovalStatusApproved,
			EventDecline:         models.ApprovalStatusDeclined,
			EventRequestRevision: models.ApprovalStatusRevisionRequested,
		},
		models.ApprovalStatusRevisionRequested: {
			EventSubmit: models.ApprovalStatusSubmitted,
		},
	}
	events := []Event{EventSubmit, EventApprove, EventDecline, EventRequestRevision}

	for _, from := range models.AllApprovalStatuses() {
		for _, event := range events {
			to, err := Next(from, event)
			want, defined := expected[from][event]
			if defined {
				require.Nil(t, err, "%v + %v", from, event)
				require.Equal(t, want, to)
				require.True(t, CanFire(from, event))
				continue
			}
			require.Error(t, err, "%v + %v", from, event)
			require.True(t, apperrors.IsInvalidTransition(err))
			require.Equal(t, models.ApprovalStatus(""), to)
			require.False(t, CanFire(from, event))
		}
	}

	t.Run(`terminal states allow nothing`, func(t *testing.T) {
		require.Empty(t, Allowed(models.ApprovalStatusApproved))
		require.Empty(t, Allowed(models.ApprovalStatusDeclined))
	})

	t.Run(`allowed events`, func(t *testing.T) {
		require.Equal(t, []Event{EventSubmit}, Allowed(models.ApprovalStatusDraft))
		require.Equal(t, []Event{EventApprove, EventDecline, EventRequestRevision}, Allowed(models.ApprovalStatusSubmitted))
		require.Equal(t, []Event{EventSubmit}, Allowed(models.ApprovalStatusRevisionRequested))
	})

	t.Run(`invalid transition message`, func(t *testing.T) {
		_, err := Next(models.ApprovalStatusApproved, EventDecline)
		require.Equal(t, "approval is already Approved, it can no longer decline", err.Error())

		_, err = Next(models.ApprovalStatusSubmitted, EventSubmit)
		require.Equal(t, "approval cannot be submitted while it is Awaiting review", err.Error())
	})
}

func TestAggregate(t *testing.T) {
	t.Run(`decision maps onto status`, func(t *testing.T) {
		status, err := Aggregate(models.ApprovalStatusSubmitted, models.ResponseApproved)
		require.Nil(t, err)
		require.Equal(t, models.ApprovalStatusApproved, status)

		status, err = Aggregate(models.ApprovalStatusSubmitted, models.ResponseDeclined)
		require.Nil(t, err)
		require.Equal(t, models.ApprovalStatusDeclined, status)

		status, err = Aggregate(models.ApprovalStatusSubmitted, models.ResponseRevisionRequested)
		require.Nil(t, err)
		require.Equal(t, models.ApprovalStatusRevisionRequested, status)
	})

	t.Run(`second response after resolution is rejected`, func(t *testing.T) {
		_, err := Aggregate(models.ApprovalStatusDeclined, models.ResponseApproved)
		require.True(t, apperrors.IsInvalidTransition(err))
	})

	t.Run(`unknown decision`, func(t *testing.T) {
		_, err := Aggregate(models.ApprovalStatusSubmitted, "maybe")
		require.True(t, apperrors.IsValidation(err))
	})
}
