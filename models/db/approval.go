package dbmodels

import (
	"approvals-backend/models"
	"time"
)

// Approval is one review request against exactly one target entity.
type Approval struct {
	BaseModel
	ProjectID   string                `gorm:"type:varchar(36);index"`
	EntityType  models.EntityType     `gorm:"type:varchar(32);index:idx_approval_entity,priority:1"`
	EntityID    string                `gorm:"type:varchar(64);index:idx_approval_entity,priority:2"`
	RequesterID string                `gorm:"type:varchar(36);index"`
	Status      models.ApprovalStatus `gorm:"type:varchar(32);index"`
	LastUpdated time.Time
}

func (Approval) TableName() string {
	return "approvals"
}

type ApprovalApprover struct {
	BaseModel
	ApprovalID string    `gorm:"type:varchar(36);uniqueIndex:idx_approval_approver,priority:1"`
	ApproverID string    `gorm:"type:varchar(36);uniqueIndex:idx_approval_approver,priority:2;index"`
	Approval   *Approval `gorm:"foreignKey:ApprovalID;constraint:OnDelete:CASCADE"`
}

func (ApprovalApprover) TableName() string {
	return "approval_approvers"
}

type ApprovalResponse struct {
	BaseModel
	ApprovalID  string                `gorm:"type:varchar(36);uniqueIndex:idx_approval_response,priority:1"`
	ApproverID  string                `gorm:"type:varchar(36);uniqueIndex:idx_approval_response,priority:2"`
	Status      models.ResponseStatus `gorm:"type:varchar(32)"`
	Comment     string                `gorm:"type:text"`
	RespondedAt time.Time
	Approval    *Approval `gorm:"foreignKey:ApprovalID;constraint:OnDelete:CASCADE"`
}

func (ApprovalResponse) TableName() string {
	return "approval_responses"
}

type ApprovalComment struct {
	BaseModel
	ApprovalID string    `gorm:"type:varchar(36);index"`
	AuthorID   string    `gorm:"type:varchar(36)"`
	Body       string    `gorm:"type:varchar(1000)"`
	Approval   *Approval `gorm:"foreignKey:ApprovalID;constraint:OnDelete:CASCADE"`
}

func (ApprovalComment) TableName() string {
	return "approval_comments"
}

type ApprovalHistory struct {
	BaseModel
	ApprovalID string                `gorm:"type:varchar(36);index"`
	ActorID    string                `gorm:"type:varchar(36)"`
	Action     models.HistoryAction  `gorm:"type:varchar(32)"`
	FromStatus models.ApprovalStatus `gorm:"type:varchar(32)"`
	ToStatus   models.ApprovalStatus `gorm:"type:varchar(32)"`
	Comment    string                `gorm:"type:text"`
	Changes    EntityChanges         `gorm:"type:jsonb"`
	Approval   *Approval             `gorm:"foreignKey:ApprovalID;constraint:OnDelete:CASCADE"`
}

func (ApprovalHistory) TableName() string {
	return "approval_history"
}

// ApprovalDetails is one consistent snapshot of an approval and its children.
type ApprovalDetails struct {
	Approval  Approval
	Approvers []ApprovalApprover
	Responses []ApprovalResponse
	Comments  []ApprovalComment
	History   []ApprovalHistory
}

func (d ApprovalDetails) ApproverIDs() []string {
	ids := make([]string, 0, len(d.Approvers))
	for _, approver := range d.Approvers {
		ids = append(ids, approver.ApproverID)
	}
	return ids
}

func (d ApprovalDetails) HasApprover(userID string) bool {
	for _, approver := range d.Approvers {
		if approver.ApproverID == userID {
			return true
		}
	}
	return false
}

func (d ApprovalDetails) ResponseOf(userID string) *ApprovalResponse {
	for idx := range d.Responses {
		if d.Responses[idx].ApproverID == userID {
			return &d.Responses[idx]
		}
	}
	return nil
}

// ParticipantIDs returns the requester and every approver, without duplicates.
func (d ApprovalDetails) ParticipantIDs() []string {
	seen := map[string]bool{}
	result := []string{}
	for _, id := range append([]string{d.Approval.RequesterID}, d.ApproverIDs()...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}
