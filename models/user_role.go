package models

type ProjectRole string

const (
	ProjectOwnerRole  ProjectRole = "owner"
	ProjectAdminRole  ProjectRole = "admin"
	ProjectMemberRole ProjectRole = "member"
	ProjectViewerRole ProjectRole = "viewer"
)

var roleHumanName = map[ProjectRole]string{
	ProjectOwnerRole:  "Owner",
	ProjectAdminRole:  "Administrator",
	ProjectMemberRole: "Member",
	ProjectViewerRole: "Viewer",
}

func (r ProjectRole) ToHuman() string {
	if human, exist := roleHumanName[r]; exist {
		return human
	}
	return string(r)
}

// IsProjectAdmin is true for roles allowed to see and manage every approval of the project.
func (r ProjectRole) IsProjectAdmin() bool {
	return r == ProjectOwnerRole || r == ProjectAdminRole
}

func ProjectAdminRoles() []ProjectRole {
	return []ProjectRole{ProjectOwnerRole, ProjectAdminRole}
}

const SystemUser = "system"
