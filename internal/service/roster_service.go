package service

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

type assignableStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListAssignableCandidates(ctx context.Context, groupID string, yearLevel int, semester models.Semester, schoolYear int, query string) ([]models.Student, error)
}

type sectionRosterRepository interface {
	ListActiveBySection(ctx context.Context, sectionID string) ([]models.RosterEntry, error)
}

type groupReader interface {
	FindByID(ctx context.Context, id string) (*models.BlockGroup, error)
}

type sectionReader interface {
	FindByID(ctx context.Context, id string) (*models.BlockSection, error)
}

// RosterEntryDetail is one roster row with canonical student fields.
type RosterEntryDetail struct {
	models.StudentDetail
	AssignmentID string `json:"assignment_id"`
}

// RosterService resolves which students may be placed into a group and reads
// section rosters.
type RosterService struct {
	students sectionRosterRepository
	finder   assignableStudentRepository
	groups   groupReader
	sections sectionReader
	logger   *zap.Logger
}

// NewRosterService constructs RosterService.
func NewRosterService(finder assignableStudentRepository, roster sectionRosterRepository, groups groupReader, sections sectionReader, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{finder: finder, students: roster, groups: groups, sections: sections, logger: logger}
}

// ListAssignable returns students eligible for placement into the group:
// matching program and year level, no ACTIVE assignment in the semester and
// school year scope. Program eligibility runs over the normalizer because the
// course field carries ragged input.
func (s *RosterService) ListAssignable(ctx context.Context, filter models.AssignableStudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	if !filter.Semester.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	if filter.SchoolYear <= 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "school year is required")
	}

	group, err := s.groups.FindByID(ctx, filter.GroupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "block group not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block group")
	}

	candidates, err := s.finder.ListAssignableCandidates(ctx, group.ID, group.YearLevel, filter.Semester, filter.SchoolYear, filter.Query)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to search assignable students")
	}

	eligible := make([]models.StudentDetail, 0, len(candidates))
	for _, student := range candidates {
		if student.Program() != group.Program {
			continue
		}
		eligible = append(eligible, models.NewStudentDetail(student))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	total := len(eligible)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return eligible[start:end], pagination, nil
}

// SectionStudents returns the ACTIVE roster of a section.
func (s *RosterService) SectionStudents(ctx context.Context, sectionID string) ([]RosterEntryDetail, error) {
	if _, err := s.sections.FindByID(ctx, sectionID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "block section not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}

	entries, err := s.students.ListActiveBySection(ctx, sectionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section roster")
	}
	details := make([]RosterEntryDetail, 0, len(entries))
	for _, entry := range entries {
		details = append(details, RosterEntryDetail{
			StudentDetail: models.NewStudentDetail(entry.Student),
			AssignmentID:  entry.AssignmentID,
		})
	}
	return details, nil
}
