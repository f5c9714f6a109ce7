package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/blocks-api/internal/models"
)

// StudentRepository reads student records. Student ownership lives with the
// registrar system; this service never writes them.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, first_name, last_name, course, year_level, status, student_number, created_at, updated_at
        FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ListAssignableCandidates returns active students of the given year level
// holding no ACTIVE assignment in the (group, semester, school year) scope.
// The query filter matches name or student number substrings. Program
// eligibility is resolved in Go because the course column carries ragged
// free-text values.
func (r *StudentRepository) ListAssignableCandidates(ctx context.Context, groupID string, yearLevel int, semester models.Semester, schoolYear int, query string) ([]models.Student, error) {
	sqlQuery := `SELECT s.id, s.first_name, s.last_name, s.course, s.year_level, s.status, s.student_number, s.created_at, s.updated_at
        FROM students s
        WHERE s.status = $1 AND s.year_level = $2
        AND NOT EXISTS (
            SELECT 1 FROM block_assignments a
            WHERE a.student_id = s.id AND a.group_id = $3 AND a.semester = $4 AND a.school_year = $5 AND a.status = $6
        )`
	args := []interface{}{models.StudentStatusActive, yearLevel, groupID, semester, schoolYear, models.AssignmentStatusActive}

	if query != "" {
		args = append(args, "%"+query+"%")
		sqlQuery += fmt.Sprintf(` AND (s.first_name ILIKE $%d OR s.last_name ILIKE $%d OR s.student_number ILIKE $%d)`,
			len(args), len(args), len(args))
	}
	sqlQuery += " ORDER BY s.last_name ASC, s.first_name ASC"

	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, sqlQuery, args...); err != nil {
		return nil, fmt.Errorf("list assignable candidates: %w", err)
	}
	return students, nil
}
