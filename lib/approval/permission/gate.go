package permission

import (
	"context"
	"fmt"

	"approvals-backend/lib/membership"
	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	log "github.com/sirupsen/logrus"
)

// Actor is a user together with their role in one project. The role only counts for
// approvals of that project.
type Actor struct {
	UserID    string
	ProjectID string
	Role      models.ProjectRole
}

func (a Actor) isProjectAdmin(rec dbmodels.Approval) bool {
	return a.UserID != "" && a.ProjectID == rec.ProjectID && a.Role.IsProjectAdmin()
}

// Provider decides what a user may do with one approval. ResolveActor is the only call
// that leaves the process; every other answer is derived from the actor and the snapshot.
type Provider interface {
	// ResolveActor looks up the project role of the user. A failed lookup yields no role.
	ResolveActor(ctx context.Context, userID, projectID string) Actor
	CanView(actor Actor, details dbmodels.ApprovalDetails) bool
	CanComment(actor Actor, details dbmodels.ApprovalDetails) bool
	CanSubmit(actor Actor, details dbmodels.ApprovalDetails) bool
	CanRespond(actor Actor, details dbmodels.ApprovalDetails) bool
	CanManageApprovers(actor Actor, details dbmodels.ApprovalDetails) bool
	// Require returns PermissionDenied when the user has no right to the action and
	// InvalidTransition when the right exists but the current status forbids it.
	Require(action models.ApprovalAction, actor Actor, details dbmodels.ApprovalDetails) error
}

func NewGate(members membership.Provider) Provider {
	return &impl{
		members: members,
	}
}

type impl struct {
	members membership.Provider
}

func (i impl) ResolveActor(ctx context.Context, userID, projectID string) Actor {
	actor := Actor{UserID: userID, ProjectID: projectID}
	if i.members == nil || userID == "" || projectID == "" {
		return actor
	}
	role, err := i.members.RoleOf(ctx, userID, projectID)
	if err != nil {
		log.
			WithField("project_id", projectID).
			WithField("user_id", userID).
			WithError(err).
			Warn("membership lookup failed, access denied")
		return actor
	}
	actor.Role = role
	return actor
}

func (i impl) CanView(actor Actor, details dbmodels.ApprovalDetails) bool {
	return isParticipant(actor.UserID, details) || actor.isProjectAdmin(details.Approval)
}

func (i impl) CanComment(actor Actor, details dbmodels.ApprovalDetails) bool {
	return i.CanView(actor, details)
}

func (i impl) CanSubmit(actor Actor, details dbmodels.ApprovalDetails) bool {
	return isRequester(actor.UserID, details.Approval) && details.Approval.Status.AllowSubmit()
}

func (i impl) CanRespond(actor Actor, details dbmodels.ApprovalDetails) bool {
	return details.HasApprover(actor.UserID) && details.Approval.Status.AwaitsResponse()
}

func (i impl) CanManageApprovers(actor Actor, details dbmodels.ApprovalDetails) bool {
	return isRequester(actor.UserID, details.Approval) || actor.isProjectAdmin(details.Approval)
}

func (i impl) Require(action models.ApprovalAction, actor Actor, details dbmodels.ApprovalDetails) error {
	status := details.Approval.Status
	switch action {
	case models.ActionView:
		if !i.CanView(actor, details) {
			return denied(action, "you do not have access to this approval")
		}
	case models.ActionComment:
		if !i.CanComment(actor, details) {
			return denied(action, "only participants of this approval can comment on it")
		}
	case models.ActionSubmit:
		if !isRequester(actor.UserID, details.Approval) {
			return denied(action, "only the requester can submit this approval")
		}
		if !i.CanSubmit(actor, details) {
			return apperrors.NewInvalidTransition(string(status), string(action),
				fmt.Sprintf("approval cannot be submitted while it is %s", status.ToHuman()))
		}
	case models.ActionRespond:
		if !details.HasApprover(actor.UserID) {
			return denied(action, "you are not an approver on this request")
		}
		if !i.CanRespond(actor, details) {
			return apperrors.NewInvalidTransition(string(status), string(action),
				fmt.Sprintf("approval is %s and does not accept responses", status.ToHuman()))
		}
	case models.ActionManageApprovers:
		if !i.CanManageApprovers(actor, details) {
			return denied(action, "only the requester or a project administrator can change approvers")
		}
		if status.IsTerminal() {
			return apperrors.NewInvalidTransition(string(status), string(action),
				fmt.Sprintf("approvers cannot be changed once the approval is %s", status.ToHuman()))
		}
	default:
		return denied(action, fmt.Sprintf("unknown action %q", action))
	}
	return nil
}

func isParticipant(userID string, details dbmodels.ApprovalDetails) bool {
	return isRequester(userID, details.Approval) || details.HasApprover(userID)
}

func isRequester(userID string, rec dbmodels.Approval) bool {
	return userID != "" && rec.RequesterID == userID
}

func denied(action models.ApprovalAction, message string) error {
	return apperrors.NewPermissionDenied(string(action), message)
}
