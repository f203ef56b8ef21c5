package approvalapimodels

import (
	"strings"
	"unicode/utf8"

	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	apimodels "approvals-backend/models/api"
)

type ApprovalCreateData struct {
	ProjectID   string            `json:"project_id"`
	EntityType  models.EntityType `json:"entity_type"`
	EntityID    string            `json:"entity_id"`
	ApproverIDs []string          `json:"approver_ids"`
	Submit      bool              `json:"submit"` // create directly in the submitted status
}

func (d ApprovalCreateData) Validate() error {
	if strings.TrimSpace(d.ProjectID) == "" {
		return apperrors.NewValidationError("project is not specified")
	}
	if !d.EntityType.IsValid() {
		return apperrors.NewValidationErrorf("unsupported entity type: %v", d.EntityType)
	}
	if strings.TrimSpace(d.EntityID) == "" {
		return apperrors.NewValidationError("entity is not specified")
	}
	return ValidateApproverIDs(d.ApproverIDs)
}

type ApprovalRespondData struct {
	Decision models.ResponseStatus `json:"decision"`
	Comment  string                `json:"comment"`
}

func (d ApprovalRespondData) Validate(maxLength int) error {
	if !d.Decision.IsValid() {
		return apperrors.NewValidationErrorf("unsupported decision: %v", d.Decision)
	}
	comment := strings.TrimSpace(d.Comment)
	if d.Decision.CommentRequired() && comment == "" {
		return apperrors.NewValidationErrorf("a comment is required to %v", decisionVerb(d.Decision))
	}
	return checkCommentLength(comment, maxLength)
}

func decisionVerb(decision models.ResponseStatus) string {
	switch decision {
	case models.ResponseDeclined:
		return "decline"
	case models.ResponseRevisionRequested:
		return "request a revision"
	}
	return "approve"
}

type ApprovalCommentData struct {
	Body string `json:"body"`
}

func (d ApprovalCommentData) Validate(maxLength int) error {
	body := strings.TrimSpace(d.Body)
	if body == "" {
		return apperrors.NewValidationError("comment is empty")
	}
	return checkCommentLength(body, maxLength)
}

// CommentLimit clamps a configured comment length to what the comment columns hold.
func CommentLimit(maxLength int) int {
	if maxLength <= 0 || maxLength > models.CommentMaxLength {
		return models.CommentMaxLength
	}
	return maxLength
}

// checkCommentLength counts characters of the trimmed text, the way it is stored.
func checkCommentLength(text string, maxLength int) error {
	maxLength = CommentLimit(maxLength)
	if utf8.RuneCountInString(text) > maxLength {
		return apperrors.NewValidationErrorf("comment must not exceed %d characters", maxLength)
	}
	return nil
}

type ApprovalApproversData struct {
	ApproverIDs []string `json:"approver_ids"`
}

func (d ApprovalApproversData) Validate() error {
	return ValidateApproverIDs(d.ApproverIDs)
}

func ValidateApproverIDs(ids []string) error {
	if len(ids) == 0 {
		return apperrors.NewValidationError("at least one approver is required")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return apperrors.NewValidationError("approver identifier is empty")
		}
	}
	return nil
}

// NormalizeIDs trims ids and drops blanks and duplicates, keeping the first occurrence order.
func NormalizeIDs(ids []string) []string {
	seen := map[string]bool{}
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
	}
	return result
}

type ParticipationRole string

const (
	ParticipationAll       ParticipationRole = ""
	ParticipationRequested ParticipationRole = "requested" // caller is the requester
	ParticipationAssigned  ParticipationRole = "assigned"  // caller is an approver
)

type ApprovalFilter struct {
	apimodels.Pagination
	EntityType models.EntityType     `json:"entity_type"`
	Status     models.ApprovalStatus `json:"status"`
	ProjectID  string                `json:"project_id"`
	Role       ParticipationRole     `json:"role"`
}

func (f ApprovalFilter) Validate() error {
	if f.EntityType != "" && !f.EntityType.IsValid() {
		return apperrors.NewValidationErrorf("unsupported entity type: %v", f.EntityType)
	}
	if f.Status != "" && !f.Status.IsValid() {
		return apperrors.NewValidationErrorf("unsupported status: %v", f.Status)
	}
	switch f.Role {
	case ParticipationAll, ParticipationRequested, ParticipationAssigned:
	default:
		return apperrors.NewValidationErrorf("unsupported role filter: %v", f.Role)
	}
	return nil
}
