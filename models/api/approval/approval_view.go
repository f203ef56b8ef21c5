package approvalapimodels

import (
	"time"

	"approvals-backend/models"
	dbmodels "approvals-backend/models/db"
)

type UserView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Known bool   `json:"known"` // false when the directory could not resolve the user
}

type EntityView struct {
	Type     models.EntityType `json:"type"`
	TypeName string            `json:"type_name"`
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Preview  map[string]any    `json:"preview,omitempty"`
	Found    bool              `json:"found"` // false when the target was deleted or is unavailable
}

type ResponseView struct {
	Approver    UserView              `json:"approver"`
	Status      models.ResponseStatus `json:"status"`
	StatusName  string                `json:"status_name"`
	Comment     string                `json:"comment,omitempty"`
	RespondedAt time.Time             `json:"responded_at"`
}

type ApproverView struct {
	User     UserView      `json:"user"`
	Response *ResponseView `json:"response,omitempty"`
}

type CommentView struct {
	ID        string    `json:"id"`
	Author    UserView  `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryView struct {
	Actor      UserView               `json:"actor"`
	Action     models.HistoryAction   `json:"action"`
	FromStatus models.ApprovalStatus  `json:"from_status,omitempty"`
	ToStatus   models.ApprovalStatus  `json:"to_status,omitempty"`
	Comment    string                 `json:"comment,omitempty"`
	Changes    dbmodels.EntityChanges `json:"changes"`
	CreatedAt  time.Time              `json:"created_at"`
}

type ApprovalView struct {
	ID             string                  `json:"id"`
	ProjectID      string                  `json:"project_id"`
	Entity         EntityView              `json:"entity"`
	Status         models.ApprovalStatus   `json:"status"`
	StatusName     string                  `json:"status_name"`
	Requester      UserView                `json:"requester"`
	Approvers      []ApproverView          `json:"approvers"`
	Responses      []ResponseView          `json:"responses"`
	Comments       []CommentView           `json:"comments"`
	History        []HistoryView           `json:"history"`
	AllowedActions []models.ApprovalAction `json:"allowed_actions"`
	CreatedAt      time.Time               `json:"created_at"`
	LastUpdated    time.Time               `json:"last_updated"`
}

// UserLookup returns the view of a user id; callers fill it from the directory.
type UserLookup func(userID string) UserView

func PlaceholderUser(userID string) UserView {
	return UserView{
		ID:   userID,
		Name: models.UnknownUserName,
	}
}

func ApprovalConvert(details dbmodels.ApprovalDetails, entity EntityView, users UserLookup) ApprovalView {
	if users == nil {
		users = PlaceholderUser
	}
	rec := details.Approval
	view := ApprovalView{
		ID:             rec.ID,
		ProjectID:      rec.ProjectID,
		Entity:         entity,
		Status:         rec.Status,
		StatusName:     rec.Status.ToHuman(),
		Requester:      users(rec.RequesterID),
		Approvers:      make([]ApproverView, 0, len(details.Approvers)),
		Responses:      make([]ResponseView, 0, len(details.Responses)),
		Comments:       make([]CommentView, 0, len(details.Comments)),
		History:        make([]HistoryView, 0, len(details.History)),
		AllowedActions: []models.ApprovalAction{},
		CreatedAt:      rec.CreatedAt,
		LastUpdated:    rec.LastUpdated,
	}
	for _, response := range details.Responses {
		view.Responses = append(view.Responses, ResponseConvert(response, users))
	}
	for _, approver := range details.Approvers {
		item := ApproverView{User: users(approver.ApproverID)}
		if response := details.ResponseOf(approver.ApproverID); response != nil {
			responseView := ResponseConvert(*response, users)
			item.Response = &responseView
		}
		view.Approvers = append(view.Approvers, item)
	}
	for _, comment := range details.Comments {
		view.Comments = append(view.Comments, CommentView{
			ID:        comment.ID,
			Author:    users(comment.AuthorID),
			Body:      comment.Body,
			CreatedAt: comment.CreatedAt,
		})
	}
	for _, rec := range details.History {
		view.History = append(view.History, HistoryView{
			Actor:      users(rec.ActorID),
			Action:     rec.Action,
			FromStatus: rec.FromStatus,
			ToStatus:   rec.ToStatus,
			Comment:    rec.Comment,
			Changes:    rec.Changes,
			CreatedAt:  rec.CreatedAt,
		})
	}
	return view
}

func ResponseConvert(rec dbmodels.ApprovalResponse, users UserLookup) ResponseView {
	return ResponseView{
		Approver:    users(rec.ApproverID),
		Status:      rec.Status,
		StatusName:  rec.Status.ToHuman(),
		Comment:     rec.Comment,
		RespondedAt: rec.RespondedAt,
	}
}

// ApprovalListResult is one page of approvals visible to a user.
type ApprovalListResult struct {
	Items    []ApprovalView
	RowCount int64
}
