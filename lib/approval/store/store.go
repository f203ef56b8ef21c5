package approvalstore

import (
	"context"
	"database/sql"
	"time"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Provider interface {
	// Transaction runs fn against a store bound to one database transaction.
	Transaction(ctx context.Context, fn func(tx Provider) error) error
	CreateApproval(ctx context.Context, rec dbmodels.Approval, approverIDs []string) (*dbmodels.Approval, error)
	GetByID(ctx context.Context, id string) (*dbmodels.Approval, error)
	// LockByID reads the approval with a row lock held until the enclosing transaction ends.
	LockByID(ctx context.Context, id string) (*dbmodels.Approval, error)
	UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) (*dbmodels.Approval, error)
	ListApprovers(ctx context.Context, approvalID string) ([]dbmodels.ApprovalApprover, error)
	AddApprovers(ctx context.Context, approvalID string, userIDs []string) (added []string, err error)
	// RemoveApprovers deletes the assignments and the responses of the removed approvers.
	RemoveApprovers(ctx context.Context, approvalID string, userIDs []string) (removed []string, err error)
	// SyncApprovers brings the approver set to userIDs touching only the delta.
	SyncApprovers(ctx context.Context, approvalID string, userIDs []string) (added, removed []string, err error)
	RecordResponse(ctx context.Context, approvalID, approverID string, status models.ResponseStatus, comment string) (*dbmodels.ApprovalResponse, error)
	AppendComment(ctx context.Context, approvalID, authorID, body string) (*dbmodels.ApprovalComment, error)
	AppendHistory(ctx context.Context, rec dbmodels.ApprovalHistory) error
	GetApprovalWithDetails(ctx context.Context, approvalID string) (*dbmodels.ApprovalDetails, error)
	// FindLatestApprovalForEntity returns nil when the entity has no approval.
	FindLatestApprovalForEntity(ctx context.Context, entityType models.EntityType, entityID string) (*dbmodels.Approval, error)
	ListForUser(ctx context.Context, userID string, adminProjectIDs []string, filter approvalapimodels.ApprovalFilter) (list []dbmodels.Approval, rowCount int64, err error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) Transaction(ctx context.Context, fn func(tx Provider) error) error {
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewInstance(tx))
	})
	return apperrors.NewStorageError("transaction", err)
}

func (i impl) CreateApproval(ctx context.Context, rec dbmodels.Approval, approverIDs []string) (*dbmodels.Approval, error) {
	approverIDs = approvalapimodels.NormalizeIDs(approverIDs)
	if len(approverIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one approver is required")
	}
	if rec.Status == "" {
		rec.Status = models.ApprovalStatusDraft
	}
	rec.LastUpdated = time.Now()
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Create(&rec).Error
		if err != nil {
			return err
		}
		approvers := make([]dbmodels.ApprovalApprover, 0, len(approverIDs))
		for _, approverID := range approverIDs {
			approvers = append(approvers, dbmodels.ApprovalApprover{
				ApprovalID: rec.ID,
				ApproverID: approverID,
			})
		}
		return tx.Omit("Approval").Create(&approvers).Error
	})
	if err != nil {
		return nil, apperrors.NewStorageError("create approval", err)
	}
	return &rec, nil
}

func (i impl) GetByID(ctx context.Context, id string) (*dbmodels.Approval, error) {
	return i.first(i.db.WithContext(ctx), id)
}

func (i impl) LockByID(ctx context.Context, id string) (*dbmodels.Approval, error) {
	return i.first(i.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (i impl) first(tx *gorm.DB, id string) (*dbmodels.Approval, error) {
	rec := dbmodels.Approval{}
	err := tx.
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFound("approval", id)
		}
		return nil, apperrors.NewStorageError("get approval", err)
	}
	return &rec, nil
}

func (i impl) UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) (*dbmodels.Approval, error) {
	updMap := map[string]interface{}{
		"status":       status,
		"last_updated": time.Now(),
	}
	res := i.db.WithContext(ctx).
		Model(&dbmodels.Approval{}).
		Where("id = ?", id).
		Updates(updMap)
	if res.Error != nil {
		return nil, apperrors.NewStorageError("update status", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.NewNotFound("approval", id)
	}
	return i.GetByID(ctx, id)
}

func (i impl) ListApprovers(ctx context.Context, approvalID string) (list []dbmodels.ApprovalApprover, err error) {
	err = i.db.WithContext(ctx).
		Where("approval_id = ?", approvalID).
		Order("created_at").
		Find(&list).
		Error
	if err != nil {
		return nil, apperrors.NewStorageError("list approvers", err)
	}
	return list, nil
}

func (i impl) AddApprovers(ctx context.Context, approvalID string, userIDs []string) (added []string, err error) {
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		added, txErr = addApprovers(tx, approvalID, userIDs)
		return txErr
	})
	if err != nil {
		return nil, apperrors.NewStorageError("add approvers", err)
	}
	return added, nil
}

func (i impl) RemoveApprovers(ctx context.Context, approvalID string, userIDs []string) (removed []string, err error) {
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		removed, txErr = removeApprovers(tx, approvalID, userIDs)
		return txErr
	})
	if err != nil {
		return nil, apperrors.NewStorageError("remove approvers", err)
	}
	return removed, nil
}

func (i impl) SyncApprovers(ctx context.Context, approvalID string, userIDs []string) (added, removed []string, err error) {
	userIDs = approvalapimodels.NormalizeIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, nil, apperrors.NewValidationError("at least one approver is required")
	}
	err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, txErr := currentApproverIDs(tx, approvalID)
		if txErr != nil {
			return txErr
		}
		toAdd, toRemove := DiffApprovers(current, userIDs)
		removed, txErr = removeApprovers(tx, approvalID, toRemove)
		if txErr != nil {
			return txErr
		}
		added, txErr = addApprovers(tx, approvalID, toAdd)
		return txErr
	})
	if err != nil {
		return nil, nil, apperrors.NewStorageError("sync approvers", err)
	}
	return added, removed, nil
}

func currentApproverIDs(tx *gorm.DB, approvalID string) (ids []string, err error) {
	err = tx.
		Model(&dbmodels.ApprovalApprover{}).
		Where("approval_id = ?", approvalID).
		Pluck("approver_id", &ids).
		Error
	return ids, err
}

func addApprovers(tx *gorm.DB, approvalID string, userIDs []string) ([]string, error) {
	current, err := currentApproverIDs(tx, approvalID)
	if err != nil {
		return nil, err
	}
	toAdd, _ := DiffApprovers(current, append(current, userIDs...))
	if len(toAdd) == 0 {
		return nil, nil
	}
	approvers := make([]dbmodels.ApprovalApprover, 0, len(toAdd))
	for _, userID := range toAdd {
		approvers = append(approvers, dbmodels.ApprovalApprover{
			ApprovalID: approvalID,
			ApproverID: userID,
		})
	}
	err = tx.
		Omit("Approval").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&approvers).
		Error
	if err != nil {
		return nil, err
	}
	return toAdd, nil
}

func removeApprovers(tx *gorm.DB, approvalID string, userIDs []string) ([]string, error) {
	userIDs = approvalapimodels.NormalizeIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, nil
	}
	var removed []string
	err := tx.
		Model(&dbmodels.ApprovalApprover{}).
		Where("approval_id = ?", approvalID).
		Where("approver_id in (?)", userIDs).
		Pluck("approver_id", &removed).
		Error
	if err != nil || len(removed) == 0 {
		return nil, err
	}
	err = tx.
		Where("approval_id = ?", approvalID).
		Where("approver_id in (?)", removed).
		Delete(&dbmodels.ApprovalResponse{}).
		Error
	if err != nil {
		return nil, err
	}
	err = tx.
		Where("approval_id = ?", approvalID).
		Where("approver_id in (?)", removed).
		Delete(&dbmodels.ApprovalApprover{}).
		Error
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func (i impl) RecordResponse(ctx context.Context, approvalID, approverID string, status models.ResponseStatus, comment string) (*dbmodels.ApprovalResponse, error) {
	db := i.db.WithContext(ctx)
	var count int64
	err := db.
		Model(&dbmodels.ApprovalApprover{}).
		Where("approval_id = ?", approvalID).
		Where("approver_id = ?", approverID).
		Count(&count).
		Error
	if err != nil {
		return nil, apperrors.NewStorageError("record response", err)
	}
	if count == 0 {
		return nil, apperrors.NewValidationErrorf("user %s is not an approver of approval %s", approverID, approvalID)
	}
	rec := dbmodels.ApprovalResponse{
		ApprovalID:  approvalID,
		ApproverID:  approverID,
		Status:      status,
		Comment:     comment,
		RespondedAt: time.Now(),
	}
	err = db.
		Omit("Approval").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "approval_id"}, {Name: "approver_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "comment", "responded_at", "updated_at"}),
		}).
		Create(&rec).
		Error
	if err != nil {
		return nil, apperrors.NewStorageError("record response", err)
	}
	stored := dbmodels.ApprovalResponse{}
	err = db.
		Where("approval_id = ?", approvalID).
		Where("approver_id = ?", approverID).
		First(&stored).
		Error
	if err != nil {
		return nil, apperrors.NewStorageError("record response", err)
	}
	return &stored, nil
}

func (i impl) AppendComment(ctx context.Context, approvalID, authorID, body string) (*dbmodels.ApprovalComment, error) {
	rec := dbmodels.ApprovalComment{
		ApprovalID: approvalID,
		AuthorID:   authorID,
		Body:       body,
	}
	err := i.db.WithContext(ctx).
		Omit("Approval").
		Create(&rec).
		Error
	if err != nil {
		return nil, apperrors.NewStorageError("append comment", err)
	}
	return &rec, nil
}

func (i impl) AppendHistory(ctx context.Context, rec dbmodels.ApprovalHistory) error {
	err := i.db.WithContext(ctx).
		Omit("Approval").
		Create(&rec).
		Error
	return apperrors.NewStorageError("append history", err)
}

func (i impl) GetApprovalWithDetails(ctx context.Context, approvalID string) (*dbmodels.ApprovalDetails, error) {
	details := dbmodels.ApprovalDetails{}
	err := i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := i.first(tx, approvalID)
		if err != nil {
			return err
		}
		details.Approval = *rec
		err = tx.Where("approval_id = ?", approvalID).Order("created_at").Find(&details.Approvers).Error
		if err != nil {
			return err
		}
		err = tx.Where("approval_id = ?", approvalID).Order("responded_at").Find(&details.Responses).Error
		if err != nil {
			return err
		}
		err = tx.Where("approval_id = ?", approvalID).Order("created_at").Find(&details.Comments).Error
		if err != nil {
			return err
		}
		return tx.Where("approval_id = ?", approvalID).Order("created_at").Find(&details.History).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, apperrors.NewStorageError("get approval details", err)
	}
	return &details, nil
}

func (i impl) FindLatestApprovalForEntity(ctx context.Context, entityType models.EntityType, entityID string) (*dbmodels.Approval, error) {
	var list []dbmodels.Approval
	err := i.db.WithContext(ctx).
		Where("entity_type = ?", entityType).
		Where("entity_id = ?", entityID).
		Order("created_at desc").
		Limit(1).
		Find(&list).
		Error
	if err != nil {
		return nil, apperrors.NewStorageError("find approval for entity", err)
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

func (i impl) ListForUser(ctx context.Context, userID string, adminProjectIDs []string, filter approvalapimodels.ApprovalFilter) (list []dbmodels.Approval, rowCount int64, err error) {
	db := i.db.WithContext(ctx)
	assigned := db.
		Model(&dbmodels.ApprovalApprover{}).
		Select("approval_id").
		Where("approver_id = ?", userID)

	tx := db.Model(&dbmodels.Approval{})
	switch filter.Role {
	case approvalapimodels.ParticipationRequested:
		tx = tx.Where("requester_id = ?", userID)
	case approvalapimodels.ParticipationAssigned:
		tx = tx.Where("id in (?)", assigned)
	default:
		visible := db.Where("requester_id = ?", userID).Or("id in (?)", assigned)
		if len(adminProjectIDs) != 0 {
			visible = visible.Or("project_id in (?)", adminProjectIDs)
		}
		tx = tx.Where(visible)
	}
	if filter.EntityType != "" {
		tx = tx.Where("entity_type = ?", filter.EntityType)
	}
	if filter.Status != "" {
		tx = tx.Where("status = ?", filter.Status)
	}
	if filter.ProjectID != "" {
		tx = tx.Where("project_id = ?", filter.ProjectID)
	}
	err = tx.Session(&gorm.Session{}).Count(&rowCount).Error
	if err != nil {
		return nil, 0, apperrors.NewStorageError("list approvals", err)
	}
	page, limit := filter.GetPage()
	err = tx.
		Order("last_updated desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&list).
		Error
	if err != nil {
		return nil, 0, apperrors.NewStorageError("list approvals", err)
	}
	return list, rowCount, nil
}

// DiffApprovers returns the ids to insert and to delete to turn current into target.
func DiffApprovers(current, target []string) (toAdd, toRemove []string) {
	diff := map[string]int{}
	for _, id := range current {
		diff[id] = -1
	}
	for _, id := range approvalapimodels.NormalizeIDs(target) {
		if _, ok := diff[id]; ok {
			diff[id] = 0
			continue
		}
		diff[id] = 1
		toAdd = append(toAdd, id)
	}
	for _, id := range current {
		if diff[id] == -1 {
			toRemove = append(toRemove, id)
			diff[id] = 0
		}
	}
	return toAdd, toRemove
}
