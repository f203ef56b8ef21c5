package approvalmemorystore

import (
	"context"
	"testing"
	"time"

	approvalstore "approvals-backend/lib/approval/store"
	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func newApproval(t *testing.T, store *Store, approvers ...string) *dbmodels.Approval {
	rec, err := store.CreateApproval(context.Background(), dbmodels.Approval{
		ProjectID:   "p-1",
		EntityType:  models.EntityTypeForm,
		EntityID:    "42",
		RequesterID: "R",
	}, approvers)
	require.Nil(t, err)
	return rec
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run(`create requires approvers`, func(t *testing.T) {
		store := New()
		_, err := store.CreateApproval(ctx, dbmodels.Approval{EntityType: models.EntityTypeForm, EntityID: "1"}, nil)
		require.True(t, apperrors.IsValidation(err))
		_, err = store.CreateApproval(ctx, dbmodels.Approval{EntityType: models.EntityTypeForm, EntityID: "1"}, []string{" ", ""})
		require.True(t, apperrors.IsValidation(err))

		rec := newApproval(t, store, "A", "B", "A")
		require.Equal(t, models.ApprovalStatusDraft, rec.Status)
		approvers, err := store.ListApprovers(ctx, rec.ID)
		require.Nil(t, err)
		require.Len(t, approvers, 2)
	})

	t.Run(`unknown approval`, func(t *testing.T) {
		store := New()
		_, err := store.GetByID(ctx, "missing")
		require.True(t, apperrors.IsNotFound(err))
		_, err = store.UpdateStatus(ctx, "missing", models.ApprovalStatusSubmitted)
		require.True(t, apperrors.IsNotFound(err))
		_, err = store.GetApprovalWithDetails(ctx, "missing")
		require.True(t, apperrors.IsNotFound(err))
	})

	t.Run(`status update bumps last updated`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A")
		updated, err := store.UpdateStatus(ctx, rec.ID, models.ApprovalStatusSubmitted)
		require.Nil(t, err)
		require.Equal(t, models.ApprovalStatusSubmitted, updated.Status)
		require.True(t, updated.LastUpdated.After(rec.LastUpdated))
	})

	t.Run(`response upsert`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A", "B")
		_, err := store.RecordResponse(ctx, rec.ID, "A", models.ResponseApproved, "")
		require.Nil(t, err)
		response, err := store.RecordResponse(ctx, rec.ID, "A", models.ResponseDeclined, "missing signature")
		require.Nil(t, err)
		require.Equal(t, models.ResponseDeclined, response.Status)
		require.Equal(t, 1, store.ResponseRows(rec.ID, "A"))

		_, err = store.RecordResponse(ctx, rec.ID, "C", models.ResponseApproved, "")
		require.True(t, apperrors.IsValidation(err))
	})

	t.Run(`removing an approver drops the response`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A", "B")
		_, err := store.RecordResponse(ctx, rec.ID, "B", models.ResponseApproved, "")
		require.Nil(t, err)

		added, removed, err := store.SyncApprovers(ctx, rec.ID, []string{"A", "C"})
		require.Nil(t, err)
		require.Equal(t, []string{"C"}, added)
		require.Equal(t, []string{"B"}, removed)

		details, err := store.GetApprovalWithDetails(ctx, rec.ID)
		require.Nil(t, err)
		require.Equal(t, []string{"A", "C"}, details.ApproverIDs())
		require.Nil(t, details.ResponseOf("B"))

		_, _, err = store.SyncApprovers(ctx, rec.ID, nil)
		require.True(t, apperrors.IsValidation(err))
	})

	t.Run(`add and remove are diff based`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A")
		added, err := store.AddApprovers(ctx, rec.ID, []string{"A", "B"})
		require.Nil(t, err)
		require.Equal(t, []string{"B"}, added)
		removed, err := store.RemoveApprovers(ctx, rec.ID, []string{"B", "X"})
		require.Nil(t, err)
		require.Equal(t, []string{"B"}, removed)
	})

	t.Run(`latest approval for entity`, func(t *testing.T) {
		store := New()
		found, err := store.FindLatestApprovalForEntity(ctx, models.EntityTypeForm, "42")
		require.Nil(t, err)
		require.Nil(t, found)

		newApproval(t, store, "A")
		second := newApproval(t, store, "B")
		found, err = store.FindLatestApprovalForEntity(ctx, models.EntityTypeForm, "42")
		require.Nil(t, err)
		require.Equal(t, second.ID, found.ID)
	})

	t.Run(`transaction rolls back`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A")
		err := store.Transaction(ctx, func(tx approvalstore.Provider) error {
			if _, err := tx.UpdateStatus(ctx, rec.ID, models.ApprovalStatusSubmitted); err != nil {
				return err
			}
			if _, err := tx.AppendComment(ctx, rec.ID, "R", "hello"); err != nil {
				return err
			}
			return apperrors.NewInvalidTransition("submitted", "submit", "nope")
		})
		require.True(t, apperrors.IsInvalidTransition(err))

		details, err := store.GetApprovalWithDetails(ctx, rec.ID)
		require.Nil(t, err)
		require.Equal(t, models.ApprovalStatusDraft, details.Approval.Status)
		require.Empty(t, details.Comments)
	})

	t.Run(`reads outside a transaction wait for it`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A")
		_, err := store.UpdateStatus(ctx, rec.ID, models.ApprovalStatusSubmitted)
		require.Nil(t, err)

		inside := make(chan struct{})
		release := make(chan struct{})
		committed := make(chan error, 1)
		go func() {
			committed <- store.Transaction(ctx, func(tx approvalstore.Provider) error {
				if _, err := tx.RecordResponse(ctx, rec.ID, "A", models.ResponseApproved, ""); err != nil {
					return err
				}
				close(inside)
				<-release
				_, err := tx.UpdateStatus(ctx, rec.ID, models.ApprovalStatusApproved)
				return err
			})
		}()
		<-inside

		read := make(chan *dbmodels.ApprovalDetails, 1)
		go func() {
			details, err := store.GetApprovalWithDetails(ctx, rec.ID)
			if err != nil {
				details = nil
			}
			read <- details
		}()
		select {
		case <-read:
			t.Fatal("read finished while the transaction was still open")
		case <-time.After(50 * time.Millisecond):
		}

		close(release)
		require.Nil(t, <-committed)
		details := <-read
		require.NotNil(t, details)
		require.Equal(t, models.ApprovalStatusApproved, details.Approval.Status)
		require.Len(t, details.Responses, 1)
	})

	t.Run(`writes outside a transaction survive its rollback`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A")

		inside := make(chan struct{})
		release := make(chan struct{})
		rolledBack := make(chan error, 1)
		go func() {
			rolledBack <- store.Transaction(ctx, func(tx approvalstore.Provider) error {
				close(inside)
				<-release
				return errors.New("abort")
			})
		}()
		<-inside

		written := make(chan error, 1)
		go func() {
			_, err := store.AppendComment(ctx, rec.ID, "R", "hello")
			written <- err
		}()
		time.Sleep(20 * time.Millisecond)
		close(release)
		require.NotNil(t, <-rolledBack)
		require.Nil(t, <-written)

		details, err := store.GetApprovalWithDetails(ctx, rec.ID)
		require.Nil(t, err)
		require.Len(t, details.Comments, 1)
	})

	t.Run(`injected failures`, func(t *testing.T) {
		store := New()
		rec := newApproval(t, store, "A")
		store.FailNext("GetApprovalWithDetails", context.DeadlineExceeded)
		_, err := store.GetApprovalWithDetails(ctx, rec.ID)
		require.True(t, apperrors.IsTransient(err))
		_, err = store.GetApprovalWithDetails(ctx, rec.ID)
		require.Nil(t, err)

		store.FailNext("AppendComment", errors.New("disk full"))
		_, err = store.AppendComment(ctx, rec.ID, "R", "hello")
		require.True(t, apperrors.IsStorage(err))
		require.False(t, apperrors.IsTransient(err))
	})

	t.Run(`list for user`, func(t *testing.T) {
		store := New()
		mine := newApproval(t, store, "A")
		other, err := store.CreateApproval(ctx, dbmodels.Approval{
			ProjectID:   "p-2",
			EntityType:  models.EntityTypeTask,
			EntityID:    "7",
			RequesterID: "X",
		}, []string{"Y"})
		require.Nil(t, err)

		list, count, err := store.ListForUser(ctx, "R", nil, approvalapimodels.ApprovalFilter{})
		require.Nil(t, err)
		require.Equal(t, int64(1), count)
		require.Equal(t, mine.ID, list[0].ID)

		list, count, err = store.ListForUser(ctx, "A", nil, approvalapimodels.ApprovalFilter{Role: approvalapimodels.ParticipationRequested})
		require.Nil(t, err)
		require.Equal(t, int64(0), count)
		require.Empty(t, list)

		list, count, err = store.ListForUser(ctx, "ADMIN", []string{"p-2"}, approvalapimodels.ApprovalFilter{})
		require.Nil(t, err)
		require.Equal(t, int64(1), count)
		require.Equal(t, other.ID, list[0].ID)

		_, count, err = store.ListForUser(ctx, "ADMIN", []string{"p-1", "p-2"}, approvalapimodels.ApprovalFilter{EntityType: models.EntityTypeTask})
		require.Nil(t, err)
		require.Equal(t, int64(1), count)
	})
}
