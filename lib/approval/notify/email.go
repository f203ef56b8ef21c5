package approvalnotify

import (
	"context"
	"fmt"

	"approvals-backend/lib/directory"
	"approvals-backend/lib/smtp"
	"approvals-backend/models"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewEmailNotifier mails approvers when a review is requested and the requester
// when a decision is made.
func NewEmailNotifier(sender smtp.Provider, users directory.Provider) Provider {
	return &emailNotifier{
		sender: sender,
		users:  users,
	}
}

type emailNotifier struct {
	sender smtp.Provider
	users  directory.Provider
}

func (n emailNotifier) ApprovalChanged(ctx context.Context, event Event) error {
	recipients := n.recipients(event)
	if len(recipients) == 0 {
		return nil
	}
	users, err := n.users.ResolveUsers(ctx, append(recipients, event.ActorID))
	if err != nil {
		log.WithError(err).Warn("directory lookup failed, some approval emails are skipped")
	}
	index := directory.Index(users)
	actor := index[event.ActorID]
	if !actor.Found {
		actor = directory.Placeholder(event.ActorID)
	}
	subject, message := EmailText(event, actor.DisplayName)

	var sendErr error
	for _, id := range recipients {
		user := index[id]
		if !user.Found || user.Email == "" {
			continue
		}
		if err = n.sender.SendEMail(ctx, user.Email, subject, message); err != nil {
			sendErr = errors.Wrapf(err, "send approval email to %s", id)
			if ctx.Err() != nil {
				break
			}
		}
	}
	return sendErr
}

func (n emailNotifier) recipients(event Event) []string {
	var ids []string
	switch event.Action {
	case models.HistoryCreated, models.HistorySubmitted:
		if event.ToStatus == models.ApprovalStatusSubmitted {
			ids = event.ApproverIDs
		}
	case models.HistoryResponded:
		ids = []string{event.RequesterID}
	case models.HistoryApproversAdded:
		if event.ToStatus == models.ApprovalStatusSubmitted {
			ids = event.Changed
		}
	}
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && id != event.ActorID {
			result = append(result, id)
		}
	}
	return result
}

func EmailText(event Event, actorName string) (subject, message string) {
	target := fmt.Sprintf("%s %s", event.EntityType.ToHuman(), event.EntityID)
	switch event.Action {
	case models.HistoryResponded:
		subject = fmt.Sprintf("%s: %s", target, event.ToStatus.ToHuman())
		message = fmt.Sprintf("%s responded to your approval request for %s. Current status: %s.",
			actorName, target, event.ToStatus.ToHuman())
		if event.Comment != "" {
			message += "\r\nComment: " + event.Comment
		}
	default:
		subject = fmt.Sprintf("%s: approval requested", target)
		message = fmt.Sprintf("%s asks you to review %s.", actorName, target)
	}
	return subject, message
}
