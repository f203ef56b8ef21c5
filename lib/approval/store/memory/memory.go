package approvalmemorystore

import (
	"context"
	"sort"
	"sync"
	"time"

	approvalstore "approvals-backend/lib/approval/store"
	apperrors "approvals-backend/lib/utils/app-errors"
	"approvals-backend/models"
	approvalapimodels "approvals-backend/models/api/approval"
	dbmodels "approvals-backend/models/db"
	"github.com/google/uuid"
)

var (
	_ approvalstore.Provider = (*Store)(nil)
	_ approvalstore.Provider = (*txStore)(nil)
)

// Store is an in-process approval store. Transactions are serialized and roll back
// on error, which is enough to stand in for the database in service tests. Calls made
// outside a transaction wait for the running one, so they never see its partial writes.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex
	data state
	last time.Time
	// failures are returned, in order, by the next calls of the named operation.
	failures map[string][]error
}

type state struct {
	approvals map[string]dbmodels.Approval
	approvers []dbmodels.ApprovalApprover
	responses []dbmodels.ApprovalResponse
	comments  []dbmodels.ApprovalComment
	history   []dbmodels.ApprovalHistory
}

func (s state) clone() state {
	approvals := make(map[string]dbmodels.Approval, len(s.approvals))
	for id, rec := range s.approvals {
		approvals[id] = rec
	}
	return state{
		approvals: approvals,
		approvers: append([]dbmodels.ApprovalApprover(nil), s.approvers...),
		responses: append([]dbmodels.ApprovalResponse(nil), s.responses...),
		comments:  append([]dbmodels.ApprovalComment(nil), s.comments...),
		history:   append([]dbmodels.ApprovalHistory(nil), s.history...),
	}
}

func New() *Store {
	return &Store{
		data:     state{approvals: map[string]dbmodels.Approval{}},
		failures: map[string][]error{},
	}
}

// FailNext makes the next call of op return err instead of touching the data.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], err)
}

// ResponseRows returns the number of stored responses of one approver.
func (s *Store) ResponseRows(approvalID, approverID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.data.responses {
		if rec.ApprovalID == approvalID && rec.ApproverID == approverID {
			count++
		}
	}
	return count
}

func (s *txStore) injected(op string) error {
	queue := s.failures[op]
	if len(queue) == 0 {
		return nil
	}
	s.failures[op] = queue[1:]
	return queue[0]
}

// now is strictly increasing so that ordering by time matches call order.
func (s *txStore) now() time.Time {
	now := time.Now()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func (s *Store) Transaction(ctx context.Context, fn func(tx approvalstore.Provider) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError("transaction", err)
	}
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	err := fn(s.tx())
	if err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return apperrors.NewStorageError("transaction", err)
	}
	return nil
}

// txStore is the store as seen from inside a transaction. It shares the data of its Store
// but never waits for txMu; nested transactions join the outer one.
type txStore Store

func (s *Store) tx() *txStore {
	return (*txStore)(s)
}

func (s *txStore) Transaction(_ context.Context, fn func(tx approvalstore.Provider) error) error {
	return fn(s)
}

func (s *txStore) CreateApproval(ctx context.Context, rec dbmodels.Approval, approverIDs []string) (*dbmodels.Approval, error) {
	approverIDs = approvalapimodels.NormalizeIDs(approverIDs)
	if len(approverIDs) == 0 {
		return nil, apperrors.NewValidationError("at least one approver is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "CreateApproval"); err != nil {
		return nil, err
	}
	now := s.now()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = models.ApprovalStatusDraft
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.LastUpdated = now
	s.data.approvals[rec.ID] = rec
	for _, approverID := range approverIDs {
		s.data.approvers = append(s.data.approvers, newApprover(rec.ID, approverID, s.now()))
	}
	return &rec, nil
}

func newApprover(approvalID, approverID string, now time.Time) dbmodels.ApprovalApprover {
	return dbmodels.ApprovalApprover{
		BaseModel:  dbmodels.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		ApprovalID: approvalID,
		ApproverID: approverID,
	}
}

func (s *txStore) check(ctx context.Context, op string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError(op, err)
	}
	return apperrors.NewStorageError(op, s.injected(op))
}

func (s *txStore) GetByID(ctx context.Context, id string) (*dbmodels.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "GetByID"); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *txStore) LockByID(ctx context.Context, id string) (*dbmodels.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "LockByID"); err != nil {
		return nil, err
	}
	return s.get(id)
}

func (s *txStore) get(id string) (*dbmodels.Approval, error) {
	rec, ok := s.data.approvals[id]
	if !ok {
		return nil, apperrors.NewNotFound("approval", id)
	}
	return &rec, nil
}

func (s *txStore) UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) (*dbmodels.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "UpdateStatus"); err != nil {
		return nil, err
	}
	rec, ok := s.data.approvals[id]
	if !ok {
		return nil, apperrors.NewNotFound("approval", id)
	}
	now := s.now()
	rec.Status = status
	rec.LastUpdated = now
	rec.UpdatedAt = now
	s.data.approvals[id] = rec
	return &rec, nil
}

func (s *txStore) ListApprovers(ctx context.Context, approvalID string) ([]dbmodels.ApprovalApprover, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "ListApprovers"); err != nil {
		return nil, err
	}
	return s.approversOf(approvalID), nil
}

func (s *txStore) approversOf(approvalID string) []dbmodels.ApprovalApprover {
	var result []dbmodels.ApprovalApprover
	for _, rec := range s.data.approvers {
		if rec.ApprovalID == approvalID {
			result = append(result, rec)
		}
	}
	return result
}

func (s *txStore) approverIDs(approvalID string) []string {
	var ids []string
	for _, rec := range s.approversOf(approvalID) {
		ids = append(ids, rec.ApproverID)
	}
	return ids
}

func (s *txStore) AddApprovers(ctx context.Context, approvalID string, userIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "AddApprovers"); err != nil {
		return nil, err
	}
	return s.add(approvalID, userIDs), nil
}

func (s *txStore) add(approvalID string, userIDs []string) []string {
	current := s.approverIDs(approvalID)
	toAdd, _ := approvalstore.DiffApprovers(current, append(current, userIDs...))
	for _, userID := range toAdd {
		s.data.approvers = append(s.data.approvers, newApprover(approvalID, userID, s.now()))
	}
	return toAdd
}

func (s *txStore) RemoveApprovers(ctx context.Context, approvalID string, userIDs []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "RemoveApprovers"); err != nil {
		return nil, err
	}
	return s.remove(approvalID, userIDs), nil
}

func (s *txStore) remove(approvalID string, userIDs []string) []string {
	drop := map[string]bool{}
	for _, id := range userIDs {
		drop[id] = true
	}
	var removed []string
	approvers := s.data.approvers[:0:0]
	for _, rec := range s.data.approvers {
		if rec.ApprovalID == approvalID && drop[rec.ApproverID] {
			removed = append(removed, rec.ApproverID)
			continue
		}
		approvers = append(approvers, rec)
	}
	s.data.approvers = approvers

	responses := s.data.responses[:0:0]
	for _, rec := range s.data.responses {
		if rec.ApprovalID == approvalID && drop[rec.ApproverID] {
			continue
		}
		responses = append(responses, rec)
	}
	s.data.responses = responses
	return removed
}

func (s *txStore) SyncApprovers(ctx context.Context, approvalID string, userIDs []string) (added, removed []string, err error) {
	userIDs = approvalapimodels.NormalizeIDs(userIDs)
	if len(userIDs) == 0 {
		return nil, nil, apperrors.NewValidationError("at least one approver is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "SyncApprovers"); err != nil {
		return nil, nil, err
	}
	toAdd, toRemove := approvalstore.DiffApprovers(s.approverIDs(approvalID), userIDs)
	removed = s.remove(approvalID, toRemove)
	added = s.add(approvalID, toAdd)
	return added, removed, nil
}

func (s *txStore) RecordResponse(ctx context.Context, approvalID, approverID string, status models.ResponseStatus, comment string) (*dbmodels.ApprovalResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "RecordResponse"); err != nil {
		return nil, err
	}
	isApprover := false
	for _, id := range s.approverIDs(approvalID) {
		isApprover = isApprover || id == approverID
	}
	if !isApprover {
		return nil, apperrors.NewValidationErrorf("user %s is not an approver of approval %s", approverID, approvalID)
	}
	now := s.now()
	for idx, rec := range s.data.responses {
		if rec.ApprovalID == approvalID && rec.ApproverID == approverID {
			rec.Status = status
			rec.Comment = comment
			rec.RespondedAt = now
			rec.UpdatedAt = now
			s.data.responses[idx] = rec
			return &rec, nil
		}
	}
	rec := dbmodels.ApprovalResponse{
		BaseModel:   dbmodels.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		ApprovalID:  approvalID,
		ApproverID:  approverID,
		Status:      status,
		Comment:     comment,
		RespondedAt: now,
	}
	s.data.responses = append(s.data.responses, rec)
	return &rec, nil
}

func (s *txStore) AppendComment(ctx context.Context, approvalID, authorID, body string) (*dbmodels.ApprovalComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "AppendComment"); err != nil {
		return nil, err
	}
	now := s.now()
	rec := dbmodels.ApprovalComment{
		BaseModel:  dbmodels.BaseModel{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now},
		ApprovalID: approvalID,
		AuthorID:   authorID,
		Body:       body,
	}
	s.data.comments = append(s.data.comments, rec)
	return &rec, nil
}

func (s *txStore) AppendHistory(ctx context.Context, rec dbmodels.ApprovalHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "AppendHistory"); err != nil {
		return err
	}
	now := s.now()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.data.history = append(s.data.history, rec)
	return nil
}

func (s *txStore) GetApprovalWithDetails(ctx context.Context, approvalID string) (*dbmodels.ApprovalDetails, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "GetApprovalWithDetails"); err != nil {
		return nil, err
	}
	rec, err := s.get(approvalID)
	if err != nil {
		return nil, err
	}
	details := dbmodels.ApprovalDetails{
		Approval:  *rec,
		Approvers: s.approversOf(approvalID),
	}
	for _, response := range s.data.responses {
		if response.ApprovalID == approvalID {
			details.Responses = append(details.Responses, response)
		}
	}
	sort.SliceStable(details.Responses, func(i, j int) bool {
		return details.Responses[i].RespondedAt.Before(details.Responses[j].RespondedAt)
	})
	for _, comment := range s.data.comments {
		if comment.ApprovalID == approvalID {
			details.Comments = append(details.Comments, comment)
		}
	}
	for _, history := range s.data.history {
		if history.ApprovalID == approvalID {
			details.History = append(details.History, history)
		}
	}
	return &details, nil
}

func (s *txStore) FindLatestApprovalForEntity(ctx context.Context, entityType models.EntityType, entityID string) (*dbmodels.Approval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "FindLatestApprovalForEntity"); err != nil {
		return nil, err
	}
	var latest *dbmodels.Approval
	for _, rec := range s.data.approvals {
		if rec.EntityType != entityType || rec.EntityID != entityID {
			continue
		}
		if latest == nil || rec.CreatedAt.After(latest.CreatedAt) {
			found := rec
			latest = &found
		}
	}
	return latest, nil
}

func (s *txStore) ListForUser(ctx context.Context, userID string, adminProjectIDs []string, filter approvalapimodels.ApprovalFilter) ([]dbmodels.Approval, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(ctx, "ListForUser"); err != nil {
		return nil, 0, err
	}
	admin := map[string]bool{}
	for _, projectID := range adminProjectIDs {
		admin[projectID] = true
	}
	var matched []dbmodels.Approval
	for _, rec := range s.data.approvals {
		requested := rec.RequesterID == userID
		assigned := false
		for _, id := range s.approverIDs(rec.ID) {
			assigned = assigned || id == userID
		}
		switch filter.Role {
		case approvalapimodels.ParticipationRequested:
			if !requested {
				continue
			}
		case approvalapimodels.ParticipationAssigned:
			if !assigned {
				continue
			}
		default:
			if !requested && !assigned && !admin[rec.ProjectID] {
				continue
			}
		}
		if filter.EntityType != "" && rec.EntityType != filter.EntityType {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		if filter.ProjectID != "" && rec.ProjectID != filter.ProjectID {
			continue
		}
		matched = append(matched, rec)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].LastUpdated.After(matched[j].LastUpdated)
	})
	rowCount := int64(len(matched))
	page, limit := filter.GetPage()
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return []dbmodels.Approval{}, rowCount, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], rowCount, nil
}

// serial holds txMu for one call made outside a transaction.
func (s *Store) serial() func() {
	s.txMu.Lock()
	return s.txMu.Unlock
}

func (s *Store) CreateApproval(ctx context.Context, rec dbmodels.Approval, approverIDs []string) (*dbmodels.Approval, error) {
	defer s.serial()()
	return s.tx().CreateApproval(ctx, rec, approverIDs)
}

func (s *Store) GetByID(ctx context.Context, id string) (*dbmodels.Approval, error) {
	defer s.serial()()
	return s.tx().GetByID(ctx, id)
}

func (s *Store) LockByID(ctx context.Context, id string) (*dbmodels.Approval, error) {
	defer s.serial()()
	return s.tx().LockByID(ctx, id)
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status models.ApprovalStatus) (*dbmodels.Approval, error) {
	defer s.serial()()
	return s.tx().UpdateStatus(ctx, id, status)
}

func (s *Store) ListApprovers(ctx context.Context, approvalID string) ([]dbmodels.ApprovalApprover, error) {
	defer s.serial()()
	return s.tx().ListApprovers(ctx, approvalID)
}

func (s *Store) AddApprovers(ctx context.Context, approvalID string, userIDs []string) ([]string, error) {
	defer s.serial()()
	return s.tx().AddApprovers(ctx, approvalID, userIDs)
}

func (s *Store) RemoveApprovers(ctx context.Context, approvalID string, userIDs []string) ([]string, error) {
	defer s.serial()()
	return s.tx().RemoveApprovers(ctx, approvalID, userIDs)
}

func (s *Store) SyncApprovers(ctx context.Context, approvalID string, userIDs []string) (added, removed []string, err error) {
	defer s.serial()()
	return s.tx().SyncApprovers(ctx, approvalID, userIDs)
}

func (s *Store) RecordResponse(ctx context.Context, approvalID, approverID string, status models.ResponseStatus, comment string) (*dbmodels.ApprovalResponse, error) {
	defer s.serial()()
	return s.tx().RecordResponse(ctx, approvalID, approverID, status, comment)
}

func (s *Store) AppendComment(ctx context.Context, approvalID, authorID, body string) (*dbmodels.ApprovalComment, error) {
	defer s.serial()()
	return s.tx().AppendComment(ctx, approvalID, authorID, body)
}

func (s *Store) AppendHistory(ctx context.Context, rec dbmodels.ApprovalHistory) error {
	defer s.serial()()
	return s.tx().AppendHistory(ctx, rec)
}

func (s *Store) GetApprovalWithDetails(ctx context.Context, approvalID string) (*dbmodels.ApprovalDetails, error) {
	defer s.serial()()
	return s.tx().GetApprovalWithDetails(ctx, approvalID)
}

func (s *Store) FindLatestApprovalForEntity(ctx context.Context, entityType models.EntityType, entityID string) (*dbmodels.Approval, error) {
	defer s.serial()()
	return s.tx().FindLatestApprovalForEntity(ctx, entityType, entityID)
}

func (s *Store) ListForUser(ctx context.Context, userID string, adminProjectIDs []string, filter approvalapimodels.ApprovalFilter) ([]dbmodels.Approval, int64, error) {
	defer s.serial()()
	return s.tx().ListForUser(ctx, userID, adminProjectIDs, filter)
}
