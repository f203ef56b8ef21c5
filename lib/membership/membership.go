package membership

import (
	"context"
	"sort"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Provider answers who belongs to which project and in what role.
type Provider interface {
	// RoleOf returns an empty role for users outside the project.
	RoleOf(ctx context.Context, userID, projectID string) (models.ProjectRole, error)
	// AdminProjects lists the projects where the user is owner or admin.
	AdminProjects(ctx context.Context, userID string) ([]string, error)
}

func NewInstance(DB *gorm.DB) Provider {
	return &impl{
		db: DB,
	}
}

type impl struct {
	db *gorm.DB
}

func (i impl) RoleOf(ctx context.Context, userID, projectID string) (models.ProjectRole, error) {
	if userID == "" || projectID == "" {
		return "", nil
	}
	rec := dbmodels.ProjectMember{}
	err := i.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Where("user_id = ?", userID).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", apperrors.NewGatewayError("membership", err)
	}
	return rec.Role, nil
}

func (i impl) AdminProjects(ctx context.Context, userID string) ([]string, error) {
	var projectIDs []string
	err := i.db.WithContext(ctx).
		Model(&dbmodels.ProjectMember{}).
		Where("user_id = ?", userID).
		Where("role in (?)", models.ProjectAdminRoles()).
		Pluck("project_id", &projectIDs).
		Error
	if err != nil {
		return nil, apperrors.NewGatewayError("membership", err)
	}
	return projectIDs, nil
}

// Static is an in-process membership table keyed by project then user.
type Static map[string]map[string]models.ProjectRole

func (s Static) RoleOf(_ context.Context, userID, projectID string) (models.ProjectRole, error) {
	return s[projectID][userID], nil
}

func (s Static) AdminProjects(_ context.Context, userID string) ([]string, error) {
	var result []string
	for projectID, members := range s {
		if members[userID].IsProjectAdmin() {
			result = append(result, projectID)
		}
	}
	sort.Strings(result)
	return result, nil
}
