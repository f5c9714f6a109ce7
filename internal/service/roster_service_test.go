package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/blocks-api/internal/models"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

type stubAssignableRepo struct {
	candidates []models.Student
	lastQuery  string
}

func (s *stubAssignableRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return nil, sql.ErrNoRows
}

func (s *stubAssignableRepo) ListAssignableCandidates(ctx context.Context, groupID string, yearLevel int, semester models.Semester, schoolYear int, query string) ([]models.Student, error) {
	s.lastQuery = query
	return s.candidates, nil
}

type stubRosterRepo struct {
	entries map[string][]models.RosterEntry
}

func (s *stubRosterRepo) ListActiveBySection(ctx context.Context, sectionID string) ([]models.RosterEntry, error) {
	return s.entries[sectionID], nil
}

type stubSectionReader struct {
	sections map[string]*models.BlockSection
}

func (s *stubSectionReader) FindByID(ctx context.Context, id string) (*models.BlockSection, error) {
	if sec, ok := s.sections[id]; ok {
		return sec, nil
	}
	return nil, sql.ErrNoRows
}

func activeStudent(id, lastName, course string) models.Student {
	return models.Student{
		ID:            id,
		StudentNumber: "2024-" + id,
		FirstName:     "Test",
		LastName:      lastName,
		Course:        course,
		YearLevel:     1,
		Status:        models.StudentStatusActive,
	}
}

type rosterFixture struct {
	finder   *stubAssignableRepo
	roster   *stubRosterRepo
	groups   *stubGroupReader
	sections *stubSectionReader
	svc      *RosterService
}

func newRosterFixture() *rosterFixture {
	f := &rosterFixture{
		finder: &stubAssignableRepo{},
		roster: &stubRosterRepo{entries: map[string][]models.RosterEntry{}},
		groups: &stubGroupReader{groups: map[string]*models.BlockGroup{
			"g1": {ID: "g1", Name: "103-1", Program: models.ProgramBSIT, YearLevel: 1},
		}},
		sections: &stubSectionReader{sections: map[string]*models.BlockSection{
			"secA": {ID: "secA", GroupID: "g1", SectionCode: "103-1A", Capacity: 40},
		}},
	}
	f.svc = NewRosterService(f.finder, f.roster, f.groups, f.sections, nil)
	return f
}

func assignableFilter() models.AssignableStudentFilter {
	return models.AssignableStudentFilter{
		GroupID:    "g1",
		Semester:   models.SemesterFirst,
		SchoolYear: 2025,
	}
}

func TestListAssignableFiltersByProgram(t *testing.T) {
	f := newRosterFixture()
	f.finder.candidates = []models.Student{
		activeStudent("1", "Reyes", "BSIT"),
		activeStudent("2", "Santos", "Information Technology"),
		// Wrong program: survives the SQL prefilter but not the normalizer.
		activeStudent("3", "Tan", "Hotel and Restaurant Management"),
	}

	students, pagination, err := f.svc.ListAssignable(context.Background(), assignableFilter())
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "Reyes", students[0].LastName)
	assert.Equal(t, "Santos", students[1].LastName)
	assert.Equal(t, models.ProgramBSIT, students[0].ResolvedProgram)
	assert.NotEmpty(t, students[0].CanonicalNumber)
	assert.Equal(t, 2, pagination.TotalCount)
}

func TestListAssignablePaginatesAfterFiltering(t *testing.T) {
	f := newRosterFixture()
	for i := 0; i < 25; i++ {
		f.finder.candidates = append(f.finder.candidates, activeStudent(fmt.Sprintf("%d", i), "Reyes", "BSIT"))
	}

	students, pagination, err := f.svc.ListAssignable(context.Background(), models.AssignableStudentFilter{
		GroupID: "g1", Semester: models.SemesterFirst, SchoolYear: 2025, Page: 2, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Len(t, students, 10)
	assert.Equal(t, 25, pagination.TotalCount)
	assert.Equal(t, 2, pagination.Page)

	students, _, err = f.svc.ListAssignable(context.Background(), models.AssignableStudentFilter{
		GroupID: "g1", Semester: models.SemesterFirst, SchoolYear: 2025, Page: 3, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Len(t, students, 5)
}

func TestListAssignablePageBeyondEnd(t *testing.T) {
	f := newRosterFixture()
	f.finder.candidates = []models.Student{activeStudent("1", "Reyes", "BSIT")}

	students, pagination, err := f.svc.ListAssignable(context.Background(), models.AssignableStudentFilter{
		GroupID: "g1", Semester: models.SemesterFirst, SchoolYear: 2025, Page: 9, PageSize: 10,
	})
	require.NoError(t, err)
	assert.Empty(t, students)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestListAssignableUnknownGroup(t *testing.T) {
	f := newRosterFixture()
	filter := assignableFilter()
	filter.GroupID = "ghost"

	_, _, err := f.svc.ListAssignable(context.Background(), filter)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestListAssignableRequiresScope(t *testing.T) {
	f := newRosterFixture()

	_, _, err := f.svc.ListAssignable(context.Background(), models.AssignableStudentFilter{GroupID: "g1", Semester: "THIRD", SchoolYear: 2025})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, _, err = f.svc.ListAssignable(context.Background(), models.AssignableStudentFilter{GroupID: "g1", Semester: models.SemesterFirst})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSectionStudents(t *testing.T) {
	f := newRosterFixture()
	f.roster.entries["secA"] = []models.RosterEntry{
		{Student: activeStudent("1", "Reyes", "BSIT"), AssignmentID: "a1"},
		{Student: activeStudent("2", "Santos", "BSIT"), AssignmentID: "a2"},
	}

	entries, err := f.svc.SectionStudents(context.Background(), "secA")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a1", entries[0].AssignmentID)
	assert.Equal(t, models.ProgramBSIT, entries[0].ResolvedProgram)
}

func TestSectionStudentsUnknownSection(t *testing.T) {
	f := newRosterFixture()

	_, err := f.svc.SectionStudents(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
