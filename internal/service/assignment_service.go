package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/repository"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

type assignmentRepository interface {
	TryAssign(ctx context.Context, params repository.AssignParams) (*repository.AssignResult, error)
	Remove(ctx context.Context, assignmentID string) (*repository.AssignResult, error)
	FindByID(ctx context.Context, id string) (*models.Assignment, error)
}

type sectionLister interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.BlockSection, error)
}

type studentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// sessionOpener registers a pending resolution session for a single-student
// overcapacity signal.
type sessionOpener interface {
	Open(session models.ResolutionSession) models.ResolutionSession
}

// AssignRequest describes one placement attempt.
type AssignRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	SectionID  string `json:"section_id" validate:"required"`
	Semester   string `json:"semester" validate:"required"`
	SchoolYear int    `json:"school_year" validate:"required,min=2000"`
}

// AssignBatchRequest describes a batch placement attempt.
type AssignBatchRequest struct {
	StudentIDs []string `json:"student_ids" validate:"required,min=1,dive,required"`
	SectionID  string   `json:"section_id" validate:"required"`
	Semester   string   `json:"semester" validate:"required"`
	SchoolYear int      `json:"school_year" validate:"required,min=2000"`
}

// AssignmentService is the assignment engine: it places students into block
// sections under the capacity ceiling and turns refused placements into
// structured overcapacity signals.
type AssignmentService struct {
	assignments assignmentRepository
	groups      groupReader
	sections    sectionLister
	students    studentReader
	resolutions sessionOpener
	metrics     *MetricsService
	audit       auditRecorder
	summaries   summaryInvalidator
	validator   *validator.Validate
	logger      *zap.Logger

	defaultMaxOvercap int
	maxBatchSize      int
}

// AssignmentConfig tunes the assignment engine.
type AssignmentConfig struct {
	DefaultMaxOvercap int
	MaxBatchSize      int
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(assignments assignmentRepository, groups groupReader, sections sectionLister, students studentReader, resolutions sessionOpener, metrics *MetricsService, audit auditRecorder, summaries summaryInvalidator, cfg AssignmentConfig, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 50
	}
	return &AssignmentService{
		assignments:       assignments,
		groups:            groups,
		sections:          sections,
		students:          students,
		resolutions:       resolutions,
		metrics:           metrics,
		audit:             audit,
		summaries:         summaries,
		validator:         validate,
		logger:            logger,
		defaultMaxOvercap: cfg.DefaultMaxOvercap,
		maxBatchSize:      cfg.MaxBatchSize,
	}
}

// Assign attempts one placement. A refused placement returns the
// OVER_CAPACITY outcome with a pending resolution session attached; it is an
// expected outcome, not an error.
func (s *AssignmentService) Assign(ctx context.Context, req AssignRequest, actor models.Actor) (*models.AssignmentOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	semester := models.Semester(strings.ToUpper(req.Semester))
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	if _, err := s.loadStudent(ctx, req.StudentID); err != nil {
		return nil, err
	}

	outcome, err := s.attempt(ctx, repository.AssignParams{
		StudentID:  req.StudentID,
		SectionID:  req.SectionID,
		Semester:   semester,
		SchoolYear: req.SchoolYear,
	}, actor, true)
	if err != nil {
		return nil, err
	}

	if s.audit != nil && outcome.Status == models.OutcomeAssigned {
		s.audit.Record(actor, models.AuditActionAssignmentCreate, "block_assignment", outcome.Assignment.ID, outcome.Assignment)
	}
	return outcome, nil
}

// AssignBatch attempts each student independently, in submission order.
// Members never block each other except through the shared capacity counter;
// per-student failures accumulate into the summary and no resolution session
// is opened.
func (s *AssignmentService) AssignBatch(ctx context.Context, req AssignBatchRequest, actor models.Actor) (*models.BatchAssignSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	if len(req.StudentIDs) > s.maxBatchSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("batch exceeds the maximum of %d students", s.maxBatchSize))
	}
	semester := models.Semester(strings.ToUpper(req.Semester))
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}

	summary := &models.BatchAssignSummary{Requested: len(req.StudentIDs)}
	var lastSection *models.BlockSection

	for _, studentID := range req.StudentIDs {
		student, err := s.loadStudent(ctx, studentID)
		if err != nil {
			summary.Failures = append(summary.Failures, models.BatchFailure{
				StudentID: studentID,
				Kind:      models.BatchFailureNotAssignable,
				Message:   appErrors.FromError(err).Message,
			})
			continue
		}

		outcome, err := s.attempt(ctx, repository.AssignParams{
			StudentID:  studentID,
			SectionID:  req.SectionID,
			Semester:   semester,
			SchoolYear: req.SchoolYear,
		}, actor, false)
		if err != nil {
			summary.Failures = append(summary.Failures, batchFailureFromError(student, err))
			continue
		}

		if outcome.Status == models.OutcomeOverCapacity {
			summary.Failures = append(summary.Failures, models.BatchFailure{
				StudentID:   studentID,
				StudentName: student.FullName(),
				Kind:        models.BatchFailureOverCapacity,
				Message: fmt.Sprintf("section %s is full (%d/%d)",
					outcome.Section.SectionCode, outcome.Section.CurrentPopulation, outcome.Section.Capacity),
			})
			continue
		}

		summary.Assigned = append(summary.Assigned, studentID)
		section := models.BlockSection{
			ID:                outcome.Section.ID,
			SectionCode:       outcome.Section.SectionCode,
			Capacity:          outcome.Section.Capacity,
			CurrentPopulation: outcome.Section.CurrentPopulation,
		}
		lastSection = &section
	}

	if lastSection != nil {
		snapshot := lastSection.Snapshot()
		summary.Section = &snapshot
	}
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionAssignmentBatch, "block_section", req.SectionID, summary)
	}
	return summary, nil
}

// Remove drops an active assignment, decrementing the section population.
func (s *AssignmentService) Remove(ctx context.Context, assignmentID string, actor models.Actor) (*models.BlockSectionDetail, error) {
	result, err := s.assignments.Remove(ctx, assignmentID)
	if err != nil {
		switch {
		case err == sql.ErrNoRows:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		case err == repository.ErrAssignmentNotActive:
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "assignment is no longer active")
		case err == repository.ErrSectionNotFound:
			return nil, appErrors.Clone(appErrors.ErrNotFound, "block section not found")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove assignment")
		}
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionAssignmentRemove, "block_assignment", assignmentID, result.Assignment)
	}
	if s.summaries != nil {
		s.summaries.InvalidateGroup(ctx, result.Section.GroupID)
	}
	detail := models.NewSectionDetail(result.Section)
	return &detail, nil
}

// attempt runs one capacity transaction and folds the result into the
// outcome union. openSession controls whether an overcapacity signal opens a
// resolution session (single-student attempts only).
func (s *AssignmentService) attempt(ctx context.Context, params repository.AssignParams, actor models.Actor, openSession bool) (*models.AssignmentOutcome, error) {
	result, err := s.assignments.TryAssign(ctx, params)
	if err != nil {
		return nil, mapAssignError(err, "block section")
	}

	if !result.OverCapacity {
		s.metrics.RecordAssignmentAttempt(models.OutcomeAssigned)
		if s.summaries != nil {
			s.summaries.InvalidateGroup(ctx, result.Section.GroupID)
		}
		outcome := models.NewAssignedOutcome(*result.Assignment, result.Section)
		return &outcome, nil
	}

	s.metrics.RecordAssignmentAttempt(models.OutcomeOverCapacity)
	s.metrics.RecordOvercapacitySignal()

	group, err := s.groups.FindByID(ctx, result.Section.GroupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block group")
	}
	siblings, err := s.sections.ListByGroup(ctx, group.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}

	actions := allowedActions(result.Section, result.ProjectedPopulation, siblings, effectiveMaxOvercap(group, s.defaultMaxOvercap))
	suggestions := suggestSections(result.Section.ID, siblings)
	outcome := models.NewOverCapacityOutcome(result.Section, result.ProjectedPopulation, actions, suggestions)

	if openSession && s.resolutions != nil {
		session := s.resolutions.Open(models.ResolutionSession{
			StudentID:  params.StudentID,
			SectionID:  params.SectionID,
			GroupID:    group.ID,
			Semester:   params.Semester,
			SchoolYear: params.SchoolYear,
			Signal:     outcome,
			OpenedBy:   actor.UserID,
		})
		outcome.ResolutionID = session.ID
	}
	return &outcome, nil
}

func (s *AssignmentService) loadStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Status != models.StudentStatusActive {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "student is not active")
	}
	return student, nil
}

func batchFailureFromError(student *models.Student, err error) models.BatchFailure {
	failure := models.BatchFailure{
		StudentID:   student.ID,
		StudentName: student.FullName(),
		Kind:        models.BatchFailureError,
		Message:     appErrors.FromError(err).Message,
	}
	if appErr := appErrors.FromError(err); appErr.Code == appErrors.ErrConflict.Code {
		failure.Kind = models.BatchFailureDuplicate
	}
	return failure
}

// allowedActions derives the decision kinds the overcapacity signal offers:
// TRANSFER only when another open section has a free slot, OVERRIDE only
// within the overcap ceiling, CLOSE_SECTION only for populated sections.
func allowedActions(section models.BlockSection, projected int, siblings []models.BlockSection, maxOvercap int) []models.ResolutionAction {
	var actions []models.ResolutionAction

	for _, sibling := range siblings {
		if sibling.ID == section.ID || sibling.Status != models.SectionStatusOpen {
			continue
		}
		if sibling.AvailableSlots() > 0 {
			actions = append(actions, models.ActionTransfer)
			break
		}
	}
	if maxOvercap > 0 && projected-section.Capacity <= maxOvercap {
		actions = append(actions, models.ActionOverride)
	}
	actions = append(actions, models.ActionIncreaseCapacity)
	if section.CurrentPopulation > 0 {
		actions = append(actions, models.ActionCloseSection)
	}
	return actions
}

// suggestSections lists the other OPEN sections of the group in descending
// order of free slots, ties broken by section code.
func suggestSections(sectionID string, siblings []models.BlockSection) []models.SuggestedSection {
	var suggestions []models.SuggestedSection
	for _, sibling := range siblings {
		if sibling.ID == sectionID || sibling.Status != models.SectionStatusOpen {
			continue
		}
		suggestions = append(suggestions, models.SuggestedSection{
			ID:             sibling.ID,
			SectionCode:    sibling.SectionCode,
			AvailableSlots: sibling.AvailableSlots(),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].AvailableSlots != suggestions[j].AvailableSlots {
			return suggestions[i].AvailableSlots > suggestions[j].AvailableSlots
		}
		return suggestions[i].SectionCode < suggestions[j].SectionCode
	})
	return suggestions
}
