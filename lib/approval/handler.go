package approvalhandler

import (
	"bytes"
	"context"
	"strings"
	"time"

	approvalnotify "approvals-backend/lib/approval/notify"
	"approvals-backend/lib/approval/permission"
	approvalstore "approvals-backend/lib/approval/store"
	"approvals-backend/lib/approval/transition"
	"approvals-backend/lib/directory"
	"approvals-backend/lib/entity"
	xlsexport "approvals-backend/lib/export/xls"
	"approvals-backend/lib/membership"
	"approvals-backend/lib/tracing"
	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/lib/utils/helpers"
	initchecker "approvals-backend/lib/utils/init-checker"
	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	dbmodels "approvals-backend/models/db"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Provider interface {
	Create(ctx context.Context, userID string, data approvalapimodels.ApprovalCreateData) (*approvalapimodels.ApprovalView, error)
	Submit(ctx context.Context, approvalID, userID string) (*approvalapimodels.ApprovalView, error)
	Respond(ctx context.Context, approvalID, userID string, data approvalapimodels.ApprovalRespondData) (*approvalapimodels.ApprovalView, error)
	AddComment(ctx context.Context, approvalID, userID string, data approvalapimodels.ApprovalCommentData) (*approvalapimodels.ApprovalView, error)
	UpdateApprovers(ctx context.Context, approvalID, userID string, data approvalapimodels.ApprovalApproversData) (*approvalapimodels.ApprovalView, error)
	GetDetails(ctx context.Context, approvalID, userID string) (*approvalapimodels.ApprovalView, error)
	GetForEntity(ctx context.Context, entityType models.EntityType, entityID, userID string) (*approvalapimodels.ApprovalView, error)
	ListForUser(ctx context.Context, userID string, filter approvalapimodels.ApprovalFilter) (*approvalapimodels.ApprovalListResult, error)
	ExportForUser(ctx context.Context, userID string, filter approvalapimodels.ApprovalFilter) (*bytes.Buffer, error)
}

// Deps are the collaborators of the service. Store, Gate, Users, Entities and Members are required.
type Deps struct {
	Store    approvalstore.Provider
	Gate     permission.Provider
	Users    directory.Provider
	Entities entity.Provider
	Members  membership.Provider
	Notifier approvalnotify.Provider
	Exporter xlsexport.Provider
}

type Config struct {
	StoreTimeout   time.Duration
	GatewayTimeout time.Duration
	// NotifyTimeout bounds how long a committed write waits for its notifications.
	NotifyTimeout time.Duration
	// CommentMaxLength is clamped to models.CommentMaxLength.
	CommentMaxLength int
}

const (
	DefaultStoreTimeout   = 5 * time.Second
	DefaultGatewayTimeout = 3 * time.Second
	DefaultNotifyTimeout  = 5 * time.Second
)

func NewHandler(deps Deps, cfg Config) Provider {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	cfg.CommentMaxLength = approvalapimodels.CommentLimit(cfg.CommentMaxLength)
	if deps.Notifier == nil {
		deps.Notifier = approvalnotify.NewLogNotifier()
	}
	if deps.Exporter == nil {
		deps.Exporter = xlsexport.NewExporter()
	}
	initchecker.CheckInit(
		"store", deps.Store,
		"gate", deps.Gate,
		"users", deps.Users,
		"entities", deps.Entities,
		"members", deps.Members,
	)
	return &impl{
		store:    deps.Store,
		gate:     deps.Gate,
		users:    deps.Users,
		entities: deps.Entities,
		members:  deps.Members,
		notifier: deps.Notifier,
		exporter: deps.Exporter,
		cfg:      cfg,
	}
}

type impl struct {
	store    approvalstore.Provider
	gate     permission.Provider
	users    directory.Provider
	entities entity.Provider
	members  membership.Provider
	notifier approvalnotify.Provider
	exporter xlsexport.Provider
	cfg      Config
}

func (i impl) GetLogger(approvalID, userID string) *log.Entry {
	logger := log.
		WithField("approval_id", approvalID).
		WithField("user_id", userID)
	return logger
}

// writeResult is what a committed write hands to the post-commit phase.
type writeResult struct {
	actor   permission.Actor
	details dbmodels.ApprovalDetails
	events  []approvalnotify.Event
}

type writeFunc func(ctx context.Context, tx approvalstore.Provider, actor permission.Actor, details dbmodels.ApprovalDetails) ([]approvalnotify.Event, error)

// write runs fn inside one store transaction bounded by the store timeout. fn receives the
// approval locked for update and its details read under the same lock. The project of an
// approval never changes, so the caller's role is resolved before the lock is taken and no
// external call happens while it is held. Writes are never retried.
func (i impl) write(ctx context.Context, approvalID, userID string, fn writeFunc) (*writeResult, error) {
	rec, err := helpers.ReadWithRetry(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (*dbmodels.Approval, error) {
		return i.store.GetByID(ctx, approvalID)
	})
	if err != nil {
		return nil, err
	}
	actor := i.resolveActor(ctx, userID, rec.ProjectID)

	return helpers.WithTimeout(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (*writeResult, error) {
		result := &writeResult{actor: actor}
		err := i.store.Transaction(ctx, func(tx approvalstore.Provider) error {
			if _, err := tx.LockByID(ctx, approvalID); err != nil {
				return err
			}
			details, err := tx.GetApprovalWithDetails(ctx, approvalID)
			if err != nil {
				return err
			}
			result.events, err = fn(ctx, tx, actor, *details)
			if err != nil {
				return err
			}
			details, err = tx.GetApprovalWithDetails(ctx, approvalID)
			if err != nil {
				return err
			}
			result.details = *details
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

// resolveActor asks the membership service for the caller's role, bounded by the gateway timeout.
func (i impl) resolveActor(ctx context.Context, userID, projectID string) permission.Actor {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.GatewayTimeout)
	defer cancel()
	return i.gate.ResolveActor(ctx, userID, projectID)
}

// commit finishes a write: events go out first, then the view is assembled for the caller.
func (i impl) commit(ctx context.Context, result *writeResult) *approvalapimodels.ApprovalView {
	for idx := range result.events {
		// the event snapshot is the committed state
		result.events[idx].ToStatus = result.details.Approval.Status
		result.events[idx].ApproverIDs = result.details.ApproverIDs()
	}
	i.notify(ctx, result.events)
	view := i.enrichOne(ctx, result.actor, result.details)
	return &view
}

// notify hands the events of one write to the notifiers and waits at most the notify timeout.
// The write is already committed, so a cancelled request does not stop its notifications, and
// a notifier still running at the deadline is left to finish in the background.
func (i impl) notify(ctx context.Context, events []approvalnotify.Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), i.cfg.NotifyTimeout)
	defer cancel()

	type failure struct {
		event approvalnotify.Event
		err   error
	}
	done := make(chan []failure, 1)
	go func() {
		var failures []failure
		for _, event := range events {
			if err := i.notifier.ApprovalChanged(ctx, event); err != nil {
				failures = append(failures, failure{event: event, err: err})
			}
		}
		done <- failures
	}()

	select {
	case failures := <-done:
		for _, f := range failures {
			i.GetLogger(f.event.ApprovalID, f.event.ActorID).
				WithField("action", f.event.Action).
				WithError(f.err).
				Warn("approval change notification failed")
		}
	case <-ctx.Done():
		i.GetLogger(events[0].ApprovalID, events[0].ActorID).
			WithField("timeout", i.cfg.NotifyTimeout).
			Warn("approval change notifications did not finish in time")
	}
}

func (i impl) Create(ctx context.Context, userID string, data approvalapimodels.ApprovalCreateData) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Create")
	span.WithAttributes(map[string]string{"user_id": userID, "entity_type": string(data.EntityType), "entity_id": data.EntityID})
	defer func() { tracing.EndSpan(span, err) }()

	if err = data.Validate(); err != nil {
		return nil, err
	}
	projectID := strings.TrimSpace(data.ProjectID)
	role, err := helpers.WithTimeout(ctx, i.cfg.GatewayTimeout, func(ctx context.Context) (models.ProjectRole, error) {
		return i.members.RoleOf(ctx, userID, projectID)
	})
	if err != nil {
		return nil, err
	}
	if role == "" {
		return nil, apperrors.NewPermissionDenied("create", "you are not a member of this project")
	}
	if err = i.checkEntity(ctx, data.EntityType, strings.TrimSpace(data.EntityID)); err != nil {
		return nil, err
	}

	status := models.ApprovalStatusDraft
	if data.Submit {
		if status, err = transition.Next(status, transition.EventSubmit); err != nil {
			return nil, err
		}
	}
	rec := dbmodels.Approval{
		ProjectID:   projectID,
		EntityType:  data.EntityType,
		EntityID:    strings.TrimSpace(data.EntityID),
		RequesterID: userID,
		Status:      status,
	}
	result, err := helpers.WithTimeout(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (*writeResult, error) {
		result := &writeResult{actor: permission.Actor{UserID: userID, ProjectID: projectID, Role: role}}
		err := i.store.Transaction(ctx, func(tx approvalstore.Provider) error {
			created, err := tx.CreateApproval(ctx, rec, data.ApproverIDs)
			if err != nil {
				return err
			}
			err = tx.AppendHistory(ctx, dbmodels.ApprovalHistory{
				ApprovalID: created.ID,
				ActorID:    userID,
				Action:     models.HistoryCreated,
				ToStatus:   created.Status,
			})
			if err != nil {
				return err
			}
			details, err := tx.GetApprovalWithDetails(ctx, created.ID)
			if err != nil {
				return err
			}
			result.details = *details
			result.events = []approvalnotify.Event{approvalnotify.NewEvent(*details, models.HistoryCreated, userID, "")}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	i.GetLogger(result.details.Approval.ID, userID).
		WithField("status", result.details.Approval.Status).
		Info("approval created")
	return i.commit(ctx, result), nil
}

// checkEntity rejects unknown entity kinds and missing targets. An unavailable entity
// gateway does not block creation.
func (i impl) checkEntity(ctx context.Context, entityType models.EntityType, entityID string) error {
	preview, err := helpers.WithTimeout(ctx, i.cfg.GatewayTimeout, func(ctx context.Context) (entity.Preview, error) {
		return i.entities.ResolveEntity(ctx, entityType, entityID)
	})
	if err != nil {
		if apperrors.IsValidation(err) {
			return err
		}
		log.
			WithField("entity_type", entityType).
			WithField("entity_id", entityID).
			WithError(err).
			Warn("entity lookup failed, creating approval without target check")
		return nil
	}
	if !preview.Found {
		return apperrors.NewNotFound(string(entityType), entityID)
	}
	return nil
}

func (i impl) Submit(ctx context.Context, approvalID, userID string) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Submit")
	span.WithAttributes(map[string]string{"approval_id": approvalID, "user_id": userID})
	defer func() { tracing.EndSpan(span, err) }()

	result, err := i.write(ctx, approvalID, userID, func(ctx context.Context, tx approvalstore.Provider, actor permission.Actor, details dbmodels.ApprovalDetails) ([]approvalnotify.Event, error) {
		if err := i.gate.Require(models.ActionSubmit, actor, details); err != nil {
			return nil, err
		}
		from := details.Approval.Status
		to, err := transition.Next(from, transition.EventSubmit)
		if err != nil {
			return nil, err
		}
		if _, err = tx.UpdateStatus(ctx, approvalID, to); err != nil {
			return nil, err
		}
		err = tx.AppendHistory(ctx, dbmodels.ApprovalHistory{
			ApprovalID: approvalID,
			ActorID:    userID,
			Action:     models.HistorySubmitted,
			FromStatus: from,
			ToStatus:   to,
		})
		if err != nil {
			return nil, err
		}
		return []approvalnotify.Event{approvalnotify.NewEvent(details, models.HistorySubmitted, userID, from)}, nil
	})
	if err != nil {
		return nil, err
	}
	i.GetLogger(approvalID, userID).Info("approval submitted")
	return i.commit(ctx, result), nil
}

func (i impl) Respond(ctx context.Context, approvalID, userID string, data approvalapimodels.ApprovalRespondData) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.Respond")
	span.WithAttributes(map[string]string{"approval_id": approvalID, "user_id": userID, "decision": string(data.Decision)})
	defer func() { tracing.EndSpan(span, err) }()

	if err = data.Validate(i.cfg.CommentMaxLength); err != nil {
		return nil, err
	}
	comment := strings.TrimSpace(data.Comment)
	result, err := i.write(ctx, approvalID, userID, func(ctx context.Context, tx approvalstore.Provider, actor permission.Actor, details dbmodels.ApprovalDetails) ([]approvalnotify.Event, error) {
		if err := i.gate.Require(models.ActionRespond, actor, details); err != nil {
			return nil, err
		}
		from := details.Approval.Status
		to, err := transition.Aggregate(from, data.Decision)
		if err != nil {
			return nil, err
		}
		if _, err = tx.RecordResponse(ctx, approvalID, userID, data.Decision, comment); err != nil {
			return nil, err
		}
		if _, err = tx.UpdateStatus(ctx, approvalID, to); err != nil {
			return nil, err
		}
		err = tx.AppendHistory(ctx, dbmodels.ApprovalHistory{
			ApprovalID: approvalID,
			ActorID:    userID,
			Action:     models.HistoryResponded,
			FromStatus: from,
			ToStatus:   to,
			Comment:    comment,
		})
		if err != nil {
			return nil, err
		}
		event := approvalnotify.NewEvent(details, models.HistoryResponded, userID, from)
		event.Comment = comment
		return []approvalnotify.Event{event}, nil
	})
	if err != nil {
		return nil, err
	}
	i.GetLogger(approvalID, userID).
		WithField("decision", data.Decision).
		WithField("status", result.details.Approval.Status).
		Info("approval response recorded")
	return i.commit(ctx, result), nil
}

func (i impl) AddComment(ctx context.Context, approvalID, userID string, data approvalapimodels.ApprovalCommentData) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.AddComment")
	span.WithAttributes(map[string]string{"approval_id": approvalID, "user_id": userID})
	defer func() { tracing.EndSpan(span, err) }()

	if err = data.Validate(i.cfg.CommentMaxLength); err != nil {
		return nil, err
	}
	body := strings.TrimSpace(data.Body)
	result, err := i.write(ctx, approvalID, userID, func(ctx context.Context, tx approvalstore.Provider, actor permission.Actor, details dbmodels.ApprovalDetails) ([]approvalnotify.Event, error) {
		if err := i.gate.Require(models.ActionComment, actor, details); err != nil {
			return nil, err
		}
		if _, err := tx.AppendComment(ctx, approvalID, userID, body); err != nil {
			return nil, err
		}
		event := approvalnotify.NewEvent(details, models.HistoryCommented, userID, details.Approval.Status)
		event.Comment = body
		return []approvalnotify.Event{event}, nil
	})
	if err != nil {
		return nil, err
	}
	return i.commit(ctx, result), nil
}

func (i impl) UpdateApprovers(ctx context.Context, approvalID, userID string, data approvalapimodels.ApprovalApproversData) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.UpdateApprovers")
	span.WithAttributes(map[string]string{"approval_id": approvalID, "user_id": userID})
	defer func() { tracing.EndSpan(span, err) }()

	if err = data.Validate(); err != nil {
		return nil, err
	}
	target := approvalapimodels.NormalizeIDs(data.ApproverIDs)
	if len(target) == 0 {
		return nil, apperrors.NewValidationError("at least one approver is required")
	}
	result, err := i.write(ctx, approvalID, userID, func(ctx context.Context, tx approvalstore.Provider, actor permission.Actor, details dbmodels.ApprovalDetails) ([]approvalnotify.Event, error) {
		if err := i.gate.Require(models.ActionManageApprovers, actor, details); err != nil {
			return nil, err
		}
		status := details.Approval.Status
		added, removed, err := tx.SyncApprovers(ctx, approvalID, target)
		if err != nil {
			return nil, err
		}
		var events []approvalnotify.Event
		if len(removed) != 0 {
			err = tx.AppendHistory(ctx, dbmodels.ApprovalHistory{
				ApprovalID: approvalID,
				ActorID:    userID,
				Action:     models.HistoryApproversRemoved,
				FromStatus: status,
				ToStatus:   status,
				Changes:    dbmodels.ApproverChanges("approvers removed", nil, removed),
			})
			if err != nil {
				return nil, err
			}
			event := approvalnotify.NewEvent(details, models.HistoryApproversRemoved, userID, status)
			event.Changed = removed
			events = append(events, event)
		}
		if len(added) != 0 {
			err = tx.AppendHistory(ctx, dbmodels.ApprovalHistory{
				ApprovalID: approvalID,
				ActorID:    userID,
				Action:     models.HistoryApproversAdded,
				FromStatus: status,
				ToStatus:   status,
				Changes:    dbmodels.ApproverChanges("approvers added", added, nil),
			})
			if err != nil {
				return nil, err
			}
			event := approvalnotify.NewEvent(details, models.HistoryApproversAdded, userID, status)
			event.Changed = added
			events = append(events, event)
		}
		return events, nil
	})
	if err != nil {
		return nil, err
	}
	if len(result.events) != 0 {
		i.GetLogger(approvalID, userID).
			WithField("approvers", result.details.ApproverIDs()).
			Info("approvers updated")
	}
	return i.commit(ctx, result), nil
}

func (i impl) GetDetails(ctx context.Context, approvalID, userID string) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.GetDetails")
	span.WithAttributes(map[string]string{"approval_id": approvalID, "user_id": userID})
	defer func() { tracing.EndSpan(span, err) }()

	details, err := helpers.ReadWithRetry(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (*dbmodels.ApprovalDetails, error) {
		return i.store.GetApprovalWithDetails(ctx, approvalID)
	})
	if err != nil {
		return nil, err
	}
	actor := i.resolveActor(ctx, userID, details.Approval.ProjectID)
	if err = i.gate.Require(models.ActionView, actor, *details); err != nil {
		return nil, err
	}
	result := i.enrichOne(ctx, actor, *details)
	return &result, nil
}

func (i impl) GetForEntity(ctx context.Context, entityType models.EntityType, entityID, userID string) (view *approvalapimodels.ApprovalView, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.GetForEntity")
	span.WithAttributes(map[string]string{"entity_type": string(entityType), "entity_id": entityID, "user_id": userID})
	defer func() { tracing.EndSpan(span, err) }()

	if !entityType.IsValid() {
		return nil, apperrors.NewValidationErrorf("unsupported entity type: %v", entityType)
	}
	rec, err := helpers.ReadWithRetry(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (*dbmodels.Approval, error) {
		return i.store.FindLatestApprovalForEntity(ctx, entityType, entityID)
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, apperrors.NewNotFound("approval for "+string(entityType), entityID)
	}
	return i.GetDetails(ctx, rec.ID, userID)
}

func (i impl) ListForUser(ctx context.Context, userID string, filter approvalapimodels.ApprovalFilter) (result *approvalapimodels.ApprovalListResult, err error) {
	ctx, span := tracing.StartSpan(ctx, "approval.ListForUser")
	span.WithAttributes(map[string]string{"user_id": userID, "role": string(filter.Role)})
	defer func() { tracing.EndSpan(span, err) }()

	if err = filter.Validate(); err != nil {
		return nil, err
	}
	adminProjects, err := helpers.WithTimeout(ctx, i.cfg.GatewayTimeout, func(ctx context.Context) ([]string, error) {
		return i.members.AdminProjects(ctx, userID)
	})
	if err != nil {
		log.WithField("user_id", userID).
			WithError(err).
			Warn("membership lookup failed, listing only own approvals")
		adminProjects = nil
	}

	type page struct {
		list     []dbmodels.Approval
		rowCount int64
	}
	found, err := helpers.ReadWithRetry(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (page, error) {
		list, rowCount, err := i.store.ListForUser(ctx, userID, adminProjects, filter)
		return page{list: list, rowCount: rowCount}, err
	})
	if err != nil {
		return nil, err
	}

	detailsList := make([]dbmodels.ApprovalDetails, 0, len(found.list))
	for _, rec := range found.list {
		details, err := helpers.ReadWithRetry(ctx, i.cfg.StoreTimeout, func(ctx context.Context) (*dbmodels.ApprovalDetails, error) {
			return i.store.GetApprovalWithDetails(ctx, rec.ID)
		})
		if err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
		detailsList = append(detailsList, *details)
	}
	return &approvalapimodels.ApprovalListResult{
		Items:    i.enrich(ctx, userID, detailsList),
		RowCount: found.rowCount,
	}, nil
}

func (i impl) ExportForUser(ctx context.Context, userID string, filter approvalapimodels.ApprovalFilter) (*bytes.Buffer, error) {
	list, err := i.ListForUser(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	buf, err := i.exporter.ExportApprovalList(list.Items)
	if err != nil {
		return nil, errors.Wrap(err, "failed to export approvals")
	}
	return buf, nil
}
