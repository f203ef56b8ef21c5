package xlsexport

import (
	"testing"
	"time"

	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportApprovalList(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	list := []approvalapimodels.ApprovalView{
		{
			Entity:     approvalapimodels.EntityView{TypeName: "Form", Title: "Safety inspection"},
			StatusName: models.ApprovalStatusDeclined.ToHuman(),
			Requester:  approvalapimodels.UserView{Name: "Rita"},
			Approvers: []approvalapimodels.ApproverView{
				{User: approvalapimodels.UserView{Name: "Anna"}},
				{User: approvalapimodels.UserView{Name: "Boris"}},
			},
			Responses: []approvalapimodels.ResponseView{
				{Approver: approvalapimodels.UserView{Name: "Anna"}, StatusName: "Approved", RespondedAt: created.Add(time.Hour)},
				{Approver: approvalapimodels.UserView{Name: "Boris"}, StatusName: "Declined", RespondedAt: created.Add(2 * time.Hour)},
			},
			CreatedAt:   created,
			LastUpdated: created.Add(2 * time.Hour),
		},
	}

	t.Run(`rows follow the header`, func(t *testing.T) {
		buf, err := NewExporter().ExportApprovalList(list)
		require.Nil(t, err)
		f, err := excelize.OpenReader(buf)
		require.Nil(t, err)
		defer f.Close()

		rows, err := f.GetRows(SheetName)
		require.Nil(t, err)
		require.Len(t, rows, 2)
		require.Equal(t, approvalHeaders, rows[0])
		require.Equal(t, []string{
			"Form",
			"Safety inspection",
			"Declined",
			"Rita",
			"Anna, Boris",
			"Declined (Boris)",
			"01.03.2026 09:30",
			"01.03.2026 11:30",
		}, rows[1])
	})

	t.Run(`empty list has only the header`, func(t *testing.T) {
		buf, err := NewExporter().ExportApprovalList(nil)
		require.Nil(t, err)
		f, err := excelize.OpenReader(buf)
		require.Nil(t, err)
		defer f.Close()

		rows, err := f.GetRows(SheetName)
		require.Nil(t, err)
		require.Len(t, rows, 1)
	})
}
