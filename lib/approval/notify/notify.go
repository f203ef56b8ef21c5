package approvalnotify

import (
	"context"
	"time"

	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Event is the "approval changed" signal emitted after every committed write.
type Event struct {
	ID          string                `json:"id"`
	ApprovalID  string                `json:"approval_id"`
	ProjectID   string                `json:"project_id"`
	EntityType  models.EntityType     `json:"entity_type"`
	EntityID    string                `json:"entity_id"`
	Action      models.HistoryAction  `json:"action"`
	ActorID     string                `json:"actor_id"`
	FromStatus  models.ApprovalStatus `json:"from_status,omitempty"`
	ToStatus    models.ApprovalStatus `json:"to_status"`
	RequesterID string                `json:"requester_id"`
	ApproverIDs []string              `json:"approver_ids"`
	Changed     []string              `json:"changed,omitempty"` // approvers added or removed by the write
	Comment     string                `json:"comment,omitempty"`
	OccurredAt  time.Time             `json:"occurred_at"`
}

func NewEvent(details dbmodels.ApprovalDetails, action models.HistoryAction, actorID string, from models.ApprovalStatus) Event {
	return Event{
		ID:          uuid.NewString(),
		ApprovalID:  details.Approval.ID,
		ProjectID:   details.Approval.ProjectID,
		EntityType:  details.Approval.EntityType,
		EntityID:    details.Approval.EntityID,
		Action:      action,
		ActorID:     actorID,
		FromStatus:  from,
		ToStatus:    details.Approval.Status,
		RequesterID: details.Approval.RequesterID,
		ApproverIDs: details.ApproverIDs(),
		OccurredAt:  time.Now(),
	}
}

// Recipients are the participants other than the actor. Removed approvers are included
// so they learn about the removal.
func (e Event) Recipients() []string {
	seen := map[string]bool{e.ActorID: true}
	var result []string
	candidates := append([]string{e.RequesterID}, e.ApproverIDs...)
	if e.Action == models.HistoryApproversRemoved {
		candidates = append(candidates, e.Changed...)
	}
	for _, id := range candidates {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

type Provider interface {
	ApprovalChanged(ctx context.Context, event Event) error
}

// NewMulti fans an event out to every notifier. All of them are called; the
// errors are joined.
func NewMulti(notifiers ...Provider) Provider {
	return multi(notifiers)
}

type multi []Provider

func (m multi) ApprovalChanged(ctx context.Context, event Event) error {
	var result error
	for _, notifier := range m {
		if err := notifier.ApprovalChanged(ctx, event); err != nil {
			if result == nil {
				result = err
				continue
			}
			result = errors.Errorf("%v; %v", result, err)
		}
	}
	return result
}

func NewLogNotifier() Provider {
	return logNotifier{}
}

type logNotifier struct{}

func (logNotifier) ApprovalChanged(_ context.Context, event Event) error {
	log.
		WithField("approval_id", event.ApprovalID).
		WithField("action", event.Action).
		WithField("actor_id", event.ActorID).
		WithField("from_status", event.FromStatus).
		WithField("to_status", event.ToStatus).
		Info("approval changed")
	return nil
}
