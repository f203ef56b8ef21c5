package approvalstore

import (
	"context"
	"os"
	"sync"
	"testing"

	"approvals-backend/db"
	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	dbmodels "approvals-backend/models/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func getTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := os.Getenv("APPROVALS_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("APPROVALS_TEST_DB_DSN is not set")
	}
	gdb, err := db.Open(dsn)
	require.Nil(t, err)
	require.Nil(t, db.AutoMigrateDB(gdb))
	t.Cleanup(func() { db.Close(gdb) })
	return gdb
}

func TestStoreIntegration(t *testing.T) {
	gdb := getTestDB(t)
	store := NewInstance(gdb)
	ctx := context.Background()
	entityID := uuid.NewString()

	rec, err := store.CreateApproval(ctx, dbmodels.Approval{
		ProjectID:   "p-1",
		EntityType:  models.EntityTypeForm,
		EntityID:    entityID,
		RequesterID: "R",
	}, []string{"A", "B"})
	require.Nil(t, err)
	require.Equal(t, models.ApprovalStatusDraft, rec.Status)

	t.Run(`response upsert keeps one row`, func(t *testing.T) {
		_, err := store.RecordResponse(ctx, rec.ID, "A", models.ResponseApproved, "")
		require.Nil(t, err)
		_, err = store.RecordResponse(ctx, rec.ID, "A", models.ResponseDeclined, "missing signature")
		require.Nil(t, err)

		var count int64
		require.Nil(t, gdb.Model(&dbmodels.ApprovalResponse{}).
			Where("approval_id = ? and approver_id = ?", rec.ID, "A").
			Count(&count).Error)
		require.Equal(t, int64(1), count)
	})

	t.Run(`sync approvers cascades to responses`, func(t *testing.T) {
		added, removed, err := store.SyncApprovers(ctx, rec.ID, []string{"B", "C"})
		require.Nil(t, err)
		require.Equal(t, []string{"C"}, added)
		require.Equal(t, []string{"A"}, removed)

		details, err := store.GetApprovalWithDetails(ctx, rec.ID)
		require.Nil(t, err)
		require.ElementsMatch(t, []string{"B", "C"}, details.ApproverIDs())
		require.Nil(t, details.ResponseOf("A"))
	})

	t.Run(`latest approval for entity`, func(t *testing.T) {
		second, err := store.CreateApproval(ctx, dbmodels.Approval{
			ProjectID:   "p-1",
			EntityType:  models.EntityTypeForm,
			EntityID:    entityID,
			RequesterID: "R",
		}, []string{"A"})
		require.Nil(t, err)
		latest, err := store.FindLatestApprovalForEntity(ctx, models.EntityTypeForm, entityID)
		require.Nil(t, err)
		require.Equal(t, second.ID, latest.ID)
	})

	t.Run(`locked writers are serialized`, func(t *testing.T) {
		_, err := store.UpdateStatus(ctx, rec.ID, models.ApprovalStatusSubmitted)
		require.Nil(t, err)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for idx, approver := range []string{"B", "C"} {
			wg.Add(1)
			go func(idx int, approver string) {
				defer wg.Done()
				results[idx] = store.Transaction(ctx, func(tx Provider) error {
					locked, err := tx.LockByID(ctx, rec.ID)
					if err != nil {
						return err
					}
					if locked.Status != models.ApprovalStatusSubmitted {
						return apperrors.NewInvalidTransition(string(locked.Status), "approve", "already resolved")
					}
					if _, err = tx.RecordResponse(ctx, rec.ID, approver, models.ResponseApproved, ""); err != nil {
						return err
					}
					_, err = tx.UpdateStatus(ctx, rec.ID, models.ApprovalStatusApproved)
					return err
				})
			}(idx, approver)
		}
		wg.Wait()

		failed := 0
		for _, err := range results {
			if err != nil {
				require.True(t, apperrors.IsInvalidTransition(err))
				failed++
			}
		}
		require.Equal(t, 1, failed)
	})

	t.Run(`list for user`, func(t *testing.T) {
		list, count, err := store.ListForUser(ctx, "B", nil, approvalapimodels.ApprovalFilter{
			Role:       approvalapimodels.ParticipationAssigned,
			EntityType: models.EntityTypeForm,
		})
		require.Nil(t, err)
		require.GreaterOrEqual(t, count, int64(1))
		require.NotEmpty(t, list)
	})

	t.Run(`unknown approval`, func(t *testing.T) {
		_, err := store.GetByID(ctx, uuid.NewString())
		require.True(t, apperrors.IsNotFound(err))
	})
}

func TestDiffApprovers(t *testing.T) {
	toAdd, toRemove := DiffApprovers([]string{"A", "B"}, []string{"B", "C", "C", " "})
	require.Equal(t, []string{"C"}, toAdd)
	require.Equal(t, []string{"A"}, toRemove)

	toAdd, toRemove = DiffApprovers(nil, []string{"A"})
	require.Equal(t, []string{"A"}, toAdd)
	require.Empty(t, toRemove)
}
