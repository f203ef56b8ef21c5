package approvalhandler

import (
	"context"

	"approvals-backend/lib/approval/permission"
	"approvals-backend/lib/approval/transition"
	"approvals-backend/lib/directory"
	"approvals-backend/lib/entity"
	"approvals-backend/lib/utils/helpers"
	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	dbmodels "approvals-backend/models/db"
	log "github.com/sirupsen/logrus"
)

func (i impl) enrichOne(ctx context.Context, actor permission.Actor, details dbmodels.ApprovalDetails) approvalapimodels.ApprovalView {
	return i.enrich(ctx, actor.UserID, []dbmodels.ApprovalDetails{details}, actor)[0]
}

// enrich builds the read model of every approval. Directory and entity failures degrade to
// placeholders and never fail the read. The caller's role is looked up once per project;
// known actors are reused as they are.
func (i impl) enrich(ctx context.Context, userID string, list []dbmodels.ApprovalDetails, known ...permission.Actor) []approvalapimodels.ApprovalView {
	result := make([]approvalapimodels.ApprovalView, 0, len(list))
	if len(list) == 0 {
		return result
	}
	actors := make(map[string]permission.Actor, len(known))
	for _, actor := range known {
		actors[actor.ProjectID] = actor
	}
	users := i.resolveUsers(ctx, userIDsOf(list))
	for _, details := range list {
		projectID := details.Approval.ProjectID
		actor, ok := actors[projectID]
		if !ok {
			actor = i.resolveActor(ctx, userID, projectID)
			actors[projectID] = actor
		}
		view := approvalapimodels.ApprovalConvert(details, i.resolveEntity(ctx, details.Approval), users)
		view.AllowedActions = i.allowedActions(actor, details)
		result = append(result, view)
	}
	return result
}

func userIDsOf(list []dbmodels.ApprovalDetails) []string {
	var ids []string
	for _, details := range list {
		ids = append(ids, details.ParticipantIDs()...)
		for _, response := range details.Responses {
			ids = append(ids, response.ApproverID)
		}
		for _, comment := range details.Comments {
			ids = append(ids, comment.AuthorID)
		}
		for _, rec := range details.History {
			ids = append(ids, rec.ActorID)
		}
	}
	return ids
}

func (i impl) resolveUsers(ctx context.Context, ids []string) approvalapimodels.UserLookup {
	users, err := helpers.WithTimeout(ctx, i.cfg.GatewayTimeout, func(ctx context.Context) ([]directory.User, error) {
		return i.users.ResolveUsers(ctx, ids)
	})
	if err != nil {
		log.WithError(err).Warn("directory lookup failed, unknown users are shown as placeholders")
	}
	index := directory.Index(users)
	return func(userID string) approvalapimodels.UserView {
		user, ok := index[userID]
		if !ok || !user.Found {
			return approvalapimodels.PlaceholderUser(userID)
		}
		return approvalapimodels.UserView{
			ID:    user.ID,
			Name:  user.DisplayName,
			Email: user.Email,
			Known: true,
		}
	}
}

func (i impl) resolveEntity(ctx context.Context, rec dbmodels.Approval) approvalapimodels.EntityView {
	preview, err := helpers.WithTimeout(ctx, i.cfg.GatewayTimeout, func(ctx context.Context) (entity.Preview, error) {
		return i.entities.ResolveEntity(ctx, rec.EntityType, rec.EntityID)
	})
	if err != nil {
		log.
			WithField("approval_id", rec.ID).
			WithField("entity_type", rec.EntityType).
			WithField("entity_id", rec.EntityID).
			WithError(err).
			Warn("entity lookup failed, showing a placeholder")
		preview = entity.NotFound(rec.EntityType, rec.EntityID)
	}
	return approvalapimodels.EntityView{
		Type:     rec.EntityType,
		TypeName: rec.EntityType.ToHuman(),
		ID:       rec.EntityID,
		Title:    preview.Title,
		Preview:  preview.Payload,
		Found:    preview.Found,
	}
}

// allowedActions lists what the caller may do right now: the gate must permit the action
// and the state machine must accept the matching event.
func (i impl) allowedActions(actor permission.Actor, details dbmodels.ApprovalDetails) []models.ApprovalAction {
	status := details.Approval.Status
	actions := []models.ApprovalAction{}
	if !i.gate.CanView(actor, details) {
		return actions
	}
	actions = append(actions, models.ActionView)
	if i.gate.CanComment(actor, details) {
		actions = append(actions, models.ActionComment)
	}
	if i.gate.CanSubmit(actor, details) && transition.CanFire(status, transition.EventSubmit) {
		actions = append(actions, models.ActionSubmit)
	}
	if i.gate.CanRespond(actor, details) && transition.CanFire(status, transition.EventApprove) {
		actions = append(actions, models.ActionRespond)
	}
	if !status.IsTerminal() && i.gate.CanManageApprovers(actor, details) {
		actions = append(actions, models.ActionManageApprovers)
	}
	return actions
}
