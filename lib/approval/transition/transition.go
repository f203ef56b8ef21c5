package transition

import (
	"fmt"
	"sort"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
)

type Event string

const (
	EventSubmit          Event = "submit"
	EventApprove         Event = "approve"
	EventDecline         Event = "decline"
	EventRequestRevision Event = "request_revision"
)

var eventHumanName = map[Event]string{
	EventSubmit:          "submit",
	EventApprove:         "approve",
	EventDecline:         "decline",
	EventRequestRevision: "request a revision",
}

func (e Event) ToHuman() string {
	if human, exist := eventHumanName[e]; exist {
		return human
	}
	return string(e)
}

// EventForDecision maps an approver decision onto the event it fires.
func EventForDecision(decision models.ResponseStatus) (Event, error) {
	switch decision {
	case models.ResponseApproved:
		return EventApprove, nil
	case models.ResponseDeclined:
		return EventDecline, nil
	case models.ResponseRevisionRequested:
		return EventRequestRevision, nil
	}
	return "", apperrors.NewValidationErrorf("unsupported decision: %v", decision)
}

type rule struct {
	from  models.ApprovalStatus
	event Event
}

var rules = map[rule]models.ApprovalStatus{
	{models.ApprovalStatusDraft, EventSubmit}:              models.ApprovalStatusSubmitted,
	{models.ApprovalStatusSubmitted, EventApprove}:         models.ApprovalStatusApproved,
	{models.ApprovalStatusSubmitted, EventDecline}:         models.ApprovalStatusDeclined,
	{models.ApprovalStatusSubmitted, EventRequestRevision}: models.ApprovalStatusRevisionRequested,
	{models.ApprovalStatusRevisionRequested, EventSubmit}:  models.ApprovalStatusSubmitted,
}

// Next returns the status reached by firing event from the given status.
// Anything outside the table is an InvalidTransition.
func Next(from models.ApprovalStatus, event Event) (models.ApprovalStatus, error) {
	if to, ok := rules[rule{from, event}]; ok {
		return to, nil
	}
	return "", apperrors.NewInvalidTransition(string(from), string(event), invalidMessage(from, event))
}

func invalidMessage(from models.ApprovalStatus, event Event) string {
	switch {
	case from.IsTerminal():
		return fmt.Sprintf("approval is already %s, it can no longer %s", from.ToHuman(), event.ToHuman())
	case event == EventSubmit:
		return fmt.Sprintf("approval cannot be submitted while it is %s", from.ToHuman())
	case from == models.ApprovalStatusDraft:
		return "approval has not been submitted yet"
	case from == models.ApprovalStatusRevisionRequested:
		return "approval is waiting for the requester to resubmit"
	}
	return fmt.Sprintf("cannot %s an approval that is %s", event.ToHuman(), from.ToHuman())
}

func CanFire(from models.ApprovalStatus, event Event) bool {
	_, ok := rules[rule{from, event}]
	return ok
}

// Allowed lists the events defined from a status.
func Allowed(from models.ApprovalStatus) []Event {
	var events []Event
	for r := range rules {
		if r.from == from {
			events = append(events, r.event)
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}

// Aggregate applies a recorded approver decision to the aggregate status.
// The most recently recorded response wins; there is no quorum.
func Aggregate(current models.ApprovalStatus, decision models.ResponseStatus) (models.ApprovalStatus, error) {
	event, err := EventForDecision(decision)
	if err != nil {
		return "", err
	}
	return Next(current, event)
}
