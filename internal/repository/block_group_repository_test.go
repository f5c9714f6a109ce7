package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/blocks-api/internal/models"
)

func newGroupRepoMock(t *testing.T) (*BlockGroupRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewBlockGroupRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestBlockGroupRepositoryList(t *testing.T) {
	repo, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "program", "year_level", "semester", "school_year", "max_overcap", "created_at", "updated_at"}).
		AddRow("g1", "103-1", "BSIT", 1, "FIRST", 2025, 2, now, now)
	mock.ExpectQuery("FROM block_groups g WHERE g.semester = \\$1 AND g.school_year = \\$2").
		WithArgs(string(models.SemesterFirst), 2025).
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM block_groups g").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	groups, total, err := repo.List(context.Background(), models.BlockGroupFilter{Semester: models.SemesterFirst, SchoolYear: 2025})
	require.NoError(t, err)
	assert.Len(t, groups, 1)
	assert.Equal(t, 1, total)
	assert.Equal(t, models.ProgramBSIT, groups[0].Program)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockGroupRepositoryCreateWithInitialSection(t *testing.T) {
	repo, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO block_groups").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO block_sections").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	group := &models.BlockGroup{Name: "103-1", Program: models.ProgramBSIT, YearLevel: 1, Semester: models.SemesterFirst, SchoolYear: 2025}
	section := &models.BlockSection{SectionCode: "103-1A", Capacity: 40, Status: models.SectionStatusOpen}
	require.NoError(t, repo.Create(context.Background(), group, section))
	assert.NotEmpty(t, group.ID)
	assert.Equal(t, group.ID, section.GroupID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockGroupRepositoryDeleteCascades(t *testing.T) {
	repo, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM block_groups WHERE id = \\$1 FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM block_assignments").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("DELETE FROM block_assignments WHERE group_id = \\$1").
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM block_sections WHERE group_id = \\$1").
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM block_groups WHERE id = \\$1").
		WithArgs("g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Delete(context.Background(), "g1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockGroupRepositoryDeleteRefusedWhileActive(t *testing.T) {
	repo, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM block_groups WHERE id = \\$1 FOR UPDATE").
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM block_assignments").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "g1")
	assert.ErrorIs(t, err, ErrActiveAssignmentsRemain)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockGroupRepositoryDeleteMissing(t *testing.T) {
	repo, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM block_groups WHERE id = \\$1 FOR UPDATE").
		WithArgs("g1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "g1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlockGroupRepositoryExistsByIdentity(t *testing.T) {
	repo, mock, cleanup := newGroupRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT 1 FROM block_groups").
		WithArgs(string(models.ProgramBSIT), 1, string(models.SemesterFirst), 2025).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.ExistsByIdentity(context.Background(), models.ProgramBSIT, 1, models.SemesterFirst, 2025)
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery("SELECT 1 FROM block_groups").
		WillReturnError(sql.ErrNoRows)
	exists, err = repo.ExistsByIdentity(context.Background(), models.ProgramHRM, 2, models.SemesterFirst, 2025)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
