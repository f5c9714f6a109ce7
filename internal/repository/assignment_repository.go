package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/blocks-api/internal/models"
)

// Sentinel conditions surfaced by capacity transactions. Services translate
// them into typed API errors.
var (
	ErrSectionNotFound     = errors.New("section not found")
	ErrSectionClosed       = errors.New("section is closed")
	ErrDuplicateAssignment = errors.New("student already holds an active assignment")
	ErrOvercapExceeded     = errors.New("override would exceed the overcap ceiling")
	ErrCapacityTooLow      = errors.New("new capacity below required floor")
	ErrAssignmentNotActive = errors.New("assignment is not active")
)

// AssignParams identifies one placement attempt.
type AssignParams struct {
	StudentID  string
	SectionID  string
	Semester   models.Semester
	SchoolYear int
}

// AssignResult reports the outcome of a capacity transaction. OverCapacity
// carries the section snapshot read under the row lock, so the projected
// population is authoritative at commit time.
type AssignResult struct {
	Assignment          *models.Assignment
	Section             models.BlockSection
	OverCapacity        bool
	ProjectedPopulation int
}

// AssignmentRepository is the single code path allowed to mutate
// current_population. Every mutation locks the section row first so the
// capacity check and the increment commit together.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

const lockSectionQuery = `SELECT id, group_id, section_code, capacity, current_population, status, created_at, updated_at
    FROM block_sections WHERE id = $1 FOR UPDATE`

// TryAssign attempts the placement under the capacity ceiling. When the
// projected population exceeds capacity nothing is written and the result
// reports OverCapacity instead.
func (r *AssignmentRepository) TryAssign(ctx context.Context, params AssignParams) (*AssignResult, error) {
	return r.assign(ctx, params, func(section models.BlockSection, projected int) (*AssignResult, error) {
		if projected > section.Capacity {
			return &AssignResult{Section: section, OverCapacity: true, ProjectedPopulation: projected}, nil
		}
		return nil, nil
	}, nil)
}

// OverrideAssign commits the placement beyond capacity, bounded by the
// group's overcap ceiling. The bound is re-checked under the lock because
// another staff member may have consumed it since the signal was issued.
func (r *AssignmentRepository) OverrideAssign(ctx context.Context, params AssignParams, maxOvercap int) (*AssignResult, error) {
	return r.assign(ctx, params, func(section models.BlockSection, projected int) (*AssignResult, error) {
		if projected-section.Capacity > maxOvercap {
			return nil, ErrOvercapExceeded
		}
		return nil, nil
	}, nil)
}

// IncreaseCapacityAndAssign raises the section capacity and commits the
// placement in the same transaction. The new capacity must cover both the
// current capacity and the projected population.
func (r *AssignmentRepository) IncreaseCapacityAndAssign(ctx context.Context, params AssignParams, newCapacity int) (*AssignResult, error) {
	capacityUpdate := func(tx *sqlx.Tx, section *models.BlockSection, projected int) error {
		if newCapacity < section.Capacity || newCapacity < projected {
			return ErrCapacityTooLow
		}
		const query = `UPDATE block_sections SET capacity = $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, query, newCapacity, time.Now().UTC(), section.ID); err != nil {
			return fmt.Errorf("raise section capacity: %w", err)
		}
		section.Capacity = newCapacity
		return nil
	}
	return r.assign(ctx, params, func(section models.BlockSection, projected int) (*AssignResult, error) {
		return nil, nil
	}, capacityUpdate)
}

// assign runs the shared lock-check-insert-increment transaction. The check
// callback decides whether the locked state admits the placement; prepare, if
// set, mutates the section before the insert.
func (r *AssignmentRepository) assign(
	ctx context.Context,
	params AssignParams,
	check func(section models.BlockSection, projected int) (*AssignResult, error),
	prepare func(tx *sqlx.Tx, section *models.BlockSection, projected int) error,
) (result *AssignResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin assignment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var section models.BlockSection
	if err = tx.GetContext(ctx, &section, lockSectionQuery, params.SectionID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrSectionNotFound
		} else {
			err = fmt.Errorf("lock block section: %w", err)
		}
		return nil, err
	}
	if section.Status != models.SectionStatusOpen {
		err = ErrSectionClosed
		return nil, err
	}

	var dup int
	const dupQuery = `SELECT 1 FROM block_assignments
        WHERE student_id = $1 AND group_id = $2 AND semester = $3 AND school_year = $4 AND status = $5 LIMIT 1`
	err = tx.GetContext(ctx, &dup, dupQuery, params.StudentID, section.GroupID, params.Semester, params.SchoolYear, models.AssignmentStatusActive)
	if err == nil {
		err = ErrDuplicateAssignment
		return nil, err
	}
	if err != sql.ErrNoRows {
		err = fmt.Errorf("check duplicate assignment: %w", err)
		return nil, err
	}
	err = nil

	projected := section.CurrentPopulation + 1
	if refused, checkErr := check(section, projected); checkErr != nil {
		err = checkErr
		return nil, err
	} else if refused != nil {
		// Over capacity: roll back without writing anything.
		_ = tx.Rollback()
		return refused, nil
	}

	if prepare != nil {
		if err = prepare(tx, &section, projected); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	assignment := &models.Assignment{
		ID:         uuid.NewString(),
		StudentID:  params.StudentID,
		SectionID:  section.ID,
		GroupID:    section.GroupID,
		Semester:   params.Semester,
		SchoolYear: params.SchoolYear,
		Status:     models.AssignmentStatusActive,
		AssignedAt: now,
	}
	const insertQuery = `INSERT INTO block_assignments (id, student_id, section_id, group_id, semester, school_year, status, assigned_at)
        VALUES (:id, :student_id, :section_id, :group_id, :semester, :school_year, :status, :assigned_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, assignment); err != nil {
		err = fmt.Errorf("insert assignment: %w", err)
		return nil, err
	}

	const incrementQuery = `UPDATE block_sections SET current_population = current_population + 1, updated_at = $1 WHERE id = $2`
	if _, err = tx.ExecContext(ctx, incrementQuery, now, section.ID); err != nil {
		err = fmt.Errorf("increment section population: %w", err)
		return nil, err
	}
	section.CurrentPopulation = projected
	section.UpdatedAt = now

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit assignment: %w", err)
		return nil, err
	}
	return &AssignResult{Assignment: assignment, Section: section, ProjectedPopulation: projected}, nil
}

// CloseSection marks the section CLOSED. No assignment is written; the
// student stays assignable.
func (r *AssignmentRepository) CloseSection(ctx context.Context, sectionID string) (section *models.BlockSection, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin close section transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.BlockSection
	if err = tx.GetContext(ctx, &current, lockSectionQuery, sectionID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrSectionNotFound
		} else {
			err = fmt.Errorf("lock block section: %w", err)
		}
		return nil, err
	}
	if current.Status != models.SectionStatusOpen {
		err = ErrSectionClosed
		return nil, err
	}

	now := time.Now().UTC()
	const query = `UPDATE block_sections SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err = tx.ExecContext(ctx, query, models.SectionStatusClosed, now, sectionID); err != nil {
		err = fmt.Errorf("close block section: %w", err)
		return nil, err
	}
	current.Status = models.SectionStatusClosed
	current.UpdatedAt = now

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit close section: %w", err)
		return nil, err
	}
	return &current, nil
}

// Remove marks an assignment REMOVED and decrements the section population in
// the same transaction, mirroring the increment on assign.
func (r *AssignmentRepository) Remove(ctx context.Context, assignmentID string) (result *AssignResult, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin remove transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var assignment models.Assignment
	const findQuery = `SELECT id, student_id, section_id, group_id, semester, school_year, status, assigned_at, removed_at
        FROM block_assignments WHERE id = $1 FOR UPDATE`
	if err = tx.GetContext(ctx, &assignment, findQuery, assignmentID); err != nil {
		return nil, err
	}
	if assignment.Status != models.AssignmentStatusActive {
		err = ErrAssignmentNotActive
		return nil, err
	}

	var section models.BlockSection
	if err = tx.GetContext(ctx, &section, lockSectionQuery, assignment.SectionID); err != nil {
		if err == sql.ErrNoRows {
			err = ErrSectionNotFound
		} else {
			err = fmt.Errorf("lock block section: %w", err)
		}
		return nil, err
	}

	now := time.Now().UTC()
	const removeQuery = `UPDATE block_assignments SET status = $1, removed_at = $2 WHERE id = $3`
	if _, err = tx.ExecContext(ctx, removeQuery, models.AssignmentStatusRemoved, now, assignmentID); err != nil {
		err = fmt.Errorf("remove assignment: %w", err)
		return nil, err
	}
	const decrementQuery = `UPDATE block_sections SET current_population = GREATEST(current_population - 1, 0), updated_at = $1 WHERE id = $2`
	if _, err = tx.ExecContext(ctx, decrementQuery, now, section.ID); err != nil {
		err = fmt.Errorf("decrement section population: %w", err)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("commit remove: %w", err)
		return nil, err
	}

	assignment.Status = models.AssignmentStatusRemoved
	assignment.RemovedAt = &now
	if section.CurrentPopulation > 0 {
		section.CurrentPopulation--
	}
	section.UpdatedAt = now
	return &AssignResult{Assignment: &assignment, Section: section}, nil
}

// FindByID returns an assignment by its ID.
func (r *AssignmentRepository) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	const query = `SELECT id, student_id, section_id, group_id, semester, school_year, status, assigned_at, removed_at
        FROM block_assignments WHERE id = $1`
	var assignment models.Assignment
	if err := r.db.GetContext(ctx, &assignment, query, id); err != nil {
		return nil, err
	}
	return &assignment, nil
}

// ListActiveBySection returns the ACTIVE roster of a section with student
// details, ordered by student name.
func (r *AssignmentRepository) ListActiveBySection(ctx context.Context, sectionID string) ([]models.RosterEntry, error) {
	const query = `SELECT s.id, s.first_name, s.last_name, s.course, s.year_level, s.status, s.student_number, s.created_at, s.updated_at,
        a.id AS assignment_id, a.assigned_at
        FROM block_assignments a
        JOIN students s ON s.id = a.student_id
        WHERE a.section_id = $1 AND a.status = $2
        ORDER BY s.last_name ASC, s.first_name ASC`
	var entries []models.RosterEntry
	if err := r.db.SelectContext(ctx, &entries, query, sectionID, models.AssignmentStatusActive); err != nil {
		return nil, fmt.Errorf("list section roster: %w", err)
	}
	return entries, nil
}
