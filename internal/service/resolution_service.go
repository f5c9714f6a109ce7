package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/repository"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

type resolutionAssignmentRepository interface {
	TryAssign(ctx context.Context, params repository.AssignParams) (*repository.AssignResult, error)
	OverrideAssign(ctx context.Context, params repository.AssignParams, maxOvercap int) (*repository.AssignResult, error)
	IncreaseCapacityAndAssign(ctx context.Context, params repository.AssignParams, newCapacity int) (*repository.AssignResult, error)
	CloseSection(ctx context.Context, sectionID string) (*models.BlockSection, error)
}

// sessionStore holds pending resolution sessions in memory with TTL
// eviction on read. Sessions are transient by design; a restart simply
// forces staff to re-attempt the assignment.
type sessionStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]*sessionEntry
}

type sessionEntry struct {
	session  models.ResolutionSession
	inFlight bool
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{ttl: ttl, items: make(map[string]*sessionEntry)}
}

func (s *sessionStore) Open(session models.ResolutionSession) models.ResolutionSession {
	now := time.Now().UTC()
	session.ID = uuid.NewString()
	session.OpenedAt = now
	session.ExpiresAt = now.Add(s.ttl)
	session.Status = models.ResolutionStatusPending

	s.mu.Lock()
	s.items[session.ID] = &sessionEntry{session: session}
	s.mu.Unlock()
	return session
}

func (s *sessionStore) Get(id string) (models.ResolutionSession, bool) {
	s.mu.RLock()
	entry, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return models.ResolutionSession{}, false
	}
	if time.Now().UTC().After(entry.session.ExpiresAt) {
		s.Delete(id)
		return models.ResolutionSession{}, false
	}
	return entry.session, true
}

// Delete removes a session, expired or otherwise.
func (s *sessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}

// Begin marks the session's decision in flight. A second concurrent decision
// on the same session is refused until the first settles.
func (s *sessionStore) Begin(id string) (models.ResolutionSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok || time.Now().UTC().After(entry.session.ExpiresAt) {
		delete(s.items, id)
		return models.ResolutionSession{}, appErrors.Clone(appErrors.ErrNotFound, "resolution session not found or expired")
	}
	if entry.inFlight {
		return models.ResolutionSession{}, appErrors.Clone(appErrors.ErrConflict, "a decision for this session is already in flight")
	}
	entry.inFlight = true
	return entry.session, nil
}

// End settles an in-flight decision. Resolved sessions are consumed; failed
// ones return to pending so staff may retry or change the action.
func (s *sessionStore) End(id string, resolved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok {
		return
	}
	if resolved {
		delete(s.items, id)
		return
	}
	entry.inFlight = false
}

// Cancel discards a pending session. A session whose decision is in flight
// refuses cancellation.
func (s *sessionStore) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.items[id]
	if !ok || time.Now().UTC().After(entry.session.ExpiresAt) {
		delete(s.items, id)
		return appErrors.Clone(appErrors.ErrNotFound, "resolution session not found or expired")
	}
	if entry.inFlight {
		return appErrors.Clone(appErrors.ErrConflict, "cannot cancel while a decision is in flight")
	}
	delete(s.items, id)
	return nil
}

func (s *sessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

type decisionApplier func(ctx context.Context, session models.ResolutionSession, decision models.OvercapacityDecision) (*models.DecisionResult, error)

// ResolutionService drives the overcapacity decision workflow: one pending
// session per single-student overcapacity signal, exactly one committed
// decision per session.
type ResolutionService struct {
	store       *sessionStore
	assignments resolutionAssignmentRepository
	groups      groupReader
	sections    sectionReader
	metrics     *MetricsService
	audit       auditRecorder
	summaries   summaryInvalidator
	logger      *zap.Logger

	defaultMaxOvercap int
	appliers          map[models.ResolutionAction]decisionApplier
}

// ResolutionConfig tunes the resolution workflow.
type ResolutionConfig struct {
	SessionTTL        time.Duration
	DefaultMaxOvercap int
}

// NewResolutionService constructs ResolutionService.
func NewResolutionService(assignments resolutionAssignmentRepository, groups groupReader, sections sectionReader, metrics *MetricsService, audit auditRecorder, summaries summaryInvalidator, cfg ResolutionConfig, logger *zap.Logger) *ResolutionService {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ResolutionService{
		store:             newSessionStore(cfg.SessionTTL),
		assignments:       assignments,
		groups:            groups,
		sections:          sections,
		metrics:           metrics,
		audit:             audit,
		summaries:         summaries,
		logger:            logger,
		defaultMaxOvercap: cfg.DefaultMaxOvercap,
	}
	s.appliers = map[models.ResolutionAction]decisionApplier{
		models.ActionTransfer:         s.applyTransfer,
		models.ActionOverride:         s.applyOverride,
		models.ActionIncreaseCapacity: s.applyIncreaseCapacity,
		models.ActionCloseSection:     s.applyCloseSection,
	}
	return s
}

// Open registers a pending session for a single-student overcapacity signal
// and returns it with its ID and expiry populated.
func (s *ResolutionService) Open(session models.ResolutionSession) models.ResolutionSession {
	opened := s.store.Open(session)
	s.metrics.SetOpenResolutionSessions(s.store.Len())
	return opened
}

// Get returns the session snapshot for re-display. Expired or consumed
// sessions behave as not found.
func (s *ResolutionService) Get(ctx context.Context, id string) (*models.ResolutionSession, error) {
	session, ok := s.store.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "resolution session not found or expired")
	}
	return &session, nil
}

// Decide validates and commits exactly one decision against the session.
// Validation failures and repository conflicts leave the session pending.
func (s *ResolutionService) Decide(ctx context.Context, id string, decision models.OvercapacityDecision, actor models.Actor) (*models.DecisionResult, error) {
	session, err := s.store.Begin(id)
	if err != nil {
		return nil, err
	}

	resolved := false
	defer func() {
		s.store.End(id, resolved)
		s.metrics.SetOpenResolutionSessions(s.store.Len())
	}()

	if err := session.ValidateDecision(decision); err != nil {
		return nil, err
	}

	applier := s.appliers[decision.Action]
	result, err := applier(ctx, session, decision)
	if err != nil {
		return nil, err
	}
	resolved = true
	result.SessionID = session.ID
	result.Action = decision.Action

	s.metrics.RecordDecision(decision.Action)
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionDecisionCommit, "block_section", session.SectionID, map[string]interface{}{
			"session_id": session.ID,
			"action":     decision.Action,
			"reason":     decision.Reason,
			"student_id": session.StudentID,
			"target":     decision.TargetSectionID,
			"capacity":   decision.NewCapacity,
		})
	}
	if s.summaries != nil {
		s.summaries.InvalidateGroup(ctx, session.GroupID)
	}
	return result, nil
}

// Cancel discards a pending session without committing a decision.
func (s *ResolutionService) Cancel(ctx context.Context, id string, actor models.Actor) error {
	if err := s.store.Cancel(id); err != nil {
		return err
	}
	s.metrics.SetOpenResolutionSessions(s.store.Len())
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionResolutionCancel, "resolution_session", id, nil)
	}
	return nil
}

func (s *ResolutionService) applyTransfer(ctx context.Context, session models.ResolutionSession, decision models.OvercapacityDecision) (*models.DecisionResult, error) {
	params := repository.AssignParams{
		StudentID:  session.StudentID,
		SectionID:  decision.TargetSectionID,
		Semester:   session.Semester,
		SchoolYear: session.SchoolYear,
	}
	result, err := s.assignments.TryAssign(ctx, params)
	if err != nil {
		// The target state is re-checked under the lock; a section closed
		// since the suggestion was made is a decision-time conflict.
		if err == repository.ErrSectionClosed {
			return nil, appErrors.Clone(appErrors.ErrConflict, "target section is closed")
		}
		return nil, mapAssignError(err, "target section")
	}
	if result.OverCapacity {
		// Concurrent staff consumed the free slot since the suggestion was made.
		return nil, appErrors.Clone(appErrors.ErrConflict, "target section no longer has a free slot")
	}

	target := result.Section.Snapshot()
	decisionResult := &models.DecisionResult{
		Assignment: result.Assignment,
		Target:     &target,
		Message:    fmt.Sprintf("student transferred to %s", result.Section.SectionCode),
	}
	if session.Signal.Section != nil {
		original := *session.Signal.Section
		decisionResult.Section = &original
	}
	return decisionResult, nil
}

func (s *ResolutionService) applyOverride(ctx context.Context, session models.ResolutionSession, decision models.OvercapacityDecision) (*models.DecisionResult, error) {
	group, err := s.groups.FindByID(ctx, session.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block group")
	}
	params := repository.AssignParams{
		StudentID:  session.StudentID,
		SectionID:  session.SectionID,
		Semester:   session.Semester,
		SchoolYear: session.SchoolYear,
	}
	result, err := s.assignments.OverrideAssign(ctx, params, effectiveMaxOvercap(group, s.defaultMaxOvercap))
	if err != nil {
		if err == repository.ErrOvercapExceeded {
			return nil, appErrors.Clone(appErrors.ErrConflict, "override would exceed the allowed overcap ceiling")
		}
		return nil, mapAssignError(err, "section")
	}

	snapshot := result.Section.Snapshot()
	return &models.DecisionResult{
		Assignment: result.Assignment,
		Section:    &snapshot,
		Message:    fmt.Sprintf("capacity override committed for %s (%d/%d)", result.Section.SectionCode, result.Section.CurrentPopulation, result.Section.Capacity),
	}, nil
}

func (s *ResolutionService) applyIncreaseCapacity(ctx context.Context, session models.ResolutionSession, decision models.OvercapacityDecision) (*models.DecisionResult, error) {
	params := repository.AssignParams{
		StudentID:  session.StudentID,
		SectionID:  session.SectionID,
		Semester:   session.Semester,
		SchoolYear: session.SchoolYear,
	}
	result, err := s.assignments.IncreaseCapacityAndAssign(ctx, params, decision.NewCapacity)
	if err != nil {
		if err == repository.ErrCapacityTooLow {
			return nil, appErrors.Clone(appErrors.ErrConflict, "new capacity no longer covers the section population")
		}
		return nil, mapAssignError(err, "section")
	}

	snapshot := result.Section.Snapshot()
	return &models.DecisionResult{
		Assignment: result.Assignment,
		Section:    &snapshot,
		Message:    fmt.Sprintf("capacity of %s raised to %d", result.Section.SectionCode, result.Section.Capacity),
	}, nil
}

func (s *ResolutionService) applyCloseSection(ctx context.Context, session models.ResolutionSession, decision models.OvercapacityDecision) (*models.DecisionResult, error) {
	section, err := s.assignments.CloseSection(ctx, session.SectionID)
	if err != nil {
		return nil, mapAssignError(err, "section")
	}

	snapshot := section.Snapshot()
	return &models.DecisionResult{
		Section: &snapshot,
		Message: fmt.Sprintf("section %s closed; student remains assignable", section.SectionCode),
	}, nil
}

// mapAssignError translates repository sentinels into typed API errors.
func mapAssignError(err error, subject string) error {
	switch err {
	case repository.ErrSectionNotFound:
		return appErrors.Clone(appErrors.ErrNotFound, subject+" not found")
	case repository.ErrSectionClosed:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, subject+" is closed")
	case repository.ErrDuplicateAssignment:
		return appErrors.Clone(appErrors.ErrConflict, "student already holds an active assignment in this group")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "assignment transaction failed")
	}
}

// effectiveMaxOvercap resolves the group's overcap policy, falling back to
// the service-wide default when the group does not set one.
func effectiveMaxOvercap(group *models.BlockGroup, fallback int) int {
	if group.MaxOvercap > 0 {
		return group.MaxOvercap
	}
	return fallback
}
