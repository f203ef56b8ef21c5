package xlsexport

import (
	"bytes"
	"strings"

	approvalapimodels "approvals-backend/models/api/approval"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

const dateLayout = "02.01.2006 15:04"

type Provider interface {
	ExportApprovalList(list []approvalapimodels.ApprovalView) (*bytes.Buffer, error)
}

func NewExporter() Provider {
	return impl{}
}

type impl struct{}

var approvalHeaders = []string{"Entity", "Title", "Status", "Requester", "Approvers", "Latest decision", "Created", "Last updated"}

func (i impl) ExportApprovalList(list []approvalapimodels.ApprovalView) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.WithError(err).Error("failed to close xlsx file")
		}
	}()
	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, errors.Wrap(err, "failed to rename xlsx sheet")
	}
	sheet := SheetName
	row, err := writeHeader(f, sheet, 0, approvalHeaders)
	if err != nil {
		return nil, errors.Wrap(err, "failed to write xlsx header")
	}
	if len(list) != 0 {
		_, err = writeApprovalData(f, sheet, list, row)
		if err != nil {
			return nil, errors.Wrap(err, "failed to write xlsx rows")
		}
	}
	return f.WriteToBuffer()
}

const SheetName = "Approvals"

func writeApprovalData(f *excelize.File, sheet string, list []approvalapimodels.ApprovalView, row int) (int, error) {
	if err := applyDataCellStyle(f, sheet, 1, row+1, len(approvalHeaders), row+len(list)); err != nil {
		return row, err
	}
	for _, item := range list {
		row++
		values := []interface{}{
			item.Entity.TypeName,
			item.Entity.Title,
			item.StatusName,
			item.Requester.Name,
			approverNames(item.Approvers),
			latestDecision(item.Responses),
			item.CreatedAt.Format(dateLayout),
			item.LastUpdated.Format(dateLayout),
		}
		for idx, value := range values {
			if err := writeColumn(f, sheet, idx+1, row, value); err != nil {
				return row, err
			}
		}
	}
	return row, nil
}

func approverNames(approvers []approvalapimodels.ApproverView) string {
	names := make([]string, 0, len(approvers))
	for _, approver := range approvers {
		names = append(names, approver.User.Name)
	}
	return strings.Join(names, ", ")
}

func latestDecision(responses []approvalapimodels.ResponseView) string {
	var latest *approvalapimodels.ResponseView
	for idx := range responses {
		if latest == nil || responses[idx].RespondedAt.After(latest.RespondedAt) {
			latest = &responses[idx]
		}
	}
	if latest == nil {
		return ""
	}
	return latest.StatusName + " (" + latest.Approver.Name + ")"
}
