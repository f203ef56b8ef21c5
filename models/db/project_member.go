package dbmodels

import "approvals-backend/models"

// ProjectMember is a read-only row of the membership service.
type ProjectMember struct {
	ProjectID string             `gorm:"type:varchar(36);primaryKey"`
	UserID    string             `gorm:"type:varchar(36);primaryKey"`
	Role      models.ProjectRole `gorm:"type:varchar(32)"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}
