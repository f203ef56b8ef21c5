package models

type ApprovalStatus string

const (
	ApprovalStatusDraft             ApprovalStatus = "draft"
	ApprovalStatusSubmitted         ApprovalStatus = "submitted"
	ApprovalStatusApproved          ApprovalStatus = "approved"
	ApprovalStatusDeclined          ApprovalStatus = "declined"
	ApprovalStatusRevisionRequested ApprovalStatus = "revision_requested"
)

var approvalStatusHumanName = map[ApprovalStatus]string{
	ApprovalStatusDraft:             "Draft",
	ApprovalStatusSubmitted:         "Awaiting review",
	ApprovalStatusApproved:          "Approved",
	ApprovalStatusDeclined:          "Declined",
	ApprovalStatusRevisionRequested: "Revision requested",
}

func (s ApprovalStatus) ToHuman() string {
	if human, exist := approvalStatusHumanName[s]; exist {
		return human
	}
	return string(s)
}

func (s ApprovalStatus) IsValid() bool {
	_, ok := approvalStatusHumanName[s]
	return ok
}

// IsTerminal reports whether no further transition is defined from s.
func (s ApprovalStatus) IsTerminal() bool {
	return s == ApprovalStatusApproved || s == ApprovalStatusDeclined
}

// AwaitsResponse reports whether approvers may act on the approval.
func (s ApprovalStatus) AwaitsResponse() bool {
	return s == ApprovalStatusSubmitted || s == ApprovalStatusRevisionRequested
}

// AllowSubmit reports whether the requester may (re)submit from s.
func (s ApprovalStatus) AllowSubmit() bool {
	return s == ApprovalStatusDraft || s == ApprovalStatusRevisionRequested
}

func AllApprovalStatuses() []ApprovalStatus {
	return []ApprovalStatus{
		ApprovalStatusDraft,
		ApprovalStatusSubmitted,
		ApprovalStatusApproved,
		ApprovalStatusDeclined,
		ApprovalStatusRevisionRequested,
	}
}

type ResponseStatus string

const (
	ResponseApproved          ResponseStatus = "approved"
	ResponseDeclined          ResponseStatus = "declined"
	ResponseRevisionRequested ResponseStatus = "revision_requested"
)

var responseStatusHumanName = map[ResponseStatus]string{
	ResponseApproved:          "Approved",
	ResponseDeclined:          "Declined",
	ResponseRevisionRequested: "Requested changes",
}

func (r ResponseStatus) ToHuman() string {
	if human, exist := responseStatusHumanName[r]; exist {
		return human
	}
	return string(r)
}

func (r ResponseStatus) IsValid() bool {
	_, ok := responseStatusHumanName[r]
	return ok
}

// CommentRequired reports whether a response with this decision must explain itself.
func (r ResponseStatus) CommentRequired() bool {
	return r == ResponseDeclined || r == ResponseRevisionRequested
}

type EntityType string

const (
	EntityTypeForm      EntityType = "form"
	EntityTypeSiteDiary EntityType = "site_diary"
	EntityTypeEntry     EntityType = "entry"
	EntityTypeTask      EntityType = "task"
)

var entityTypeHumanName = map[EntityType]string{
	EntityTypeForm:      "Form",
	EntityTypeSiteDiary: "Site diary",
	EntityTypeEntry:     "Entry",
	EntityTypeTask:      "Task",
}

func (e EntityType) ToHuman() string {
	if human, exist := entityTypeHumanName[e]; exist {
		return human
	}
	return string(e)
}

func (e EntityType) IsValid() bool {
	_, ok := entityTypeHumanName[e]
	return ok
}

type HistoryAction string

const (
	HistoryCreated          HistoryAction = "created"
	HistorySubmitted        HistoryAction = "submitted"
	HistoryResponded        HistoryAction = "responded"
	HistoryApproversAdded   HistoryAction = "approvers_added"
	HistoryApproversRemoved HistoryAction = "approvers_removed"
	HistoryCommented        HistoryAction = "commented"
)

// ApprovalAction is a caller capability on a single approval.
type ApprovalAction string

const (
	ActionView            ApprovalAction = "view"
	ActionComment         ApprovalAction = "comment"
	ActionSubmit          ApprovalAction = "submit"
	ActionRespond         ApprovalAction = "respond"
	ActionManageApprovers ApprovalAction = "manage_approvers"
)

// CommentMaxLength is the size of the approval_comments.body column.
const CommentMaxLength = 1000

const UnknownUserName = "Unknown user"
