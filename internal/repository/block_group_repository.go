package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/blocks-api/internal/models"
)

// ErrActiveAssignmentsRemain is returned when a group delete would orphan
// active assignments.
var ErrActiveAssignmentsRemain = errors.New("group has active assignments")

// BlockGroupRepository handles persistence of block groups.
type BlockGroupRepository struct {
	db *sqlx.DB
}

// NewBlockGroupRepository constructs the repository.
func NewBlockGroupRepository(db *sqlx.DB) *BlockGroupRepository {
	return &BlockGroupRepository{db: db}
}

// List returns block groups filtered by the provided criteria.
func (r *BlockGroupRepository) List(ctx context.Context, filter models.BlockGroupFilter) ([]models.BlockGroup, int, error) {
	base := "FROM block_groups g"
	var conditions []string
	var args []interface{}

	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("g.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.SchoolYear > 0 {
		conditions = append(conditions, fmt.Sprintf("g.school_year = $%d", len(args)+1))
		args = append(args, filter.SchoolYear)
	}
	if filter.Program != models.ProgramUnknown {
		conditions = append(conditions, fmt.Sprintf("g.program = $%d", len(args)+1))
		args = append(args, filter.Program)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT g.id, g.name, g.program, g.year_level, g.semester, g.school_year, g.max_overcap, g.created_at, g.updated_at
        %s ORDER BY g.school_year DESC, g.name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var groups []models.BlockGroup
	if err := r.db.SelectContext(ctx, &groups, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list block groups: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count block groups: %w", err)
	}
	return groups, total, nil
}

// FindByID returns a group by its ID.
func (r *BlockGroupRepository) FindByID(ctx context.Context, id string) (*models.BlockGroup, error) {
	const query = `SELECT id, name, program, year_level, semester, school_year, max_overcap, created_at, updated_at
        FROM block_groups WHERE id = $1`
	var group models.BlockGroup
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// ExistsByIdentity checks whether a group already covers the program,
// year level, semester and school year combination.
func (r *BlockGroupRepository) ExistsByIdentity(ctx context.Context, program models.Program, yearLevel int, semester models.Semester, schoolYear int) (bool, error) {
	const query = `SELECT 1 FROM block_groups
        WHERE program = $1 AND year_level = $2 AND semester = $3 AND school_year = $4 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, program, yearLevel, semester, schoolYear); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check block group identity: %w", err)
	}
	return true, nil
}

// Create persists a new group together with its initial section in one
// transaction.
func (r *BlockGroupRepository) Create(ctx context.Context, group *models.BlockGroup, initial *models.BlockSection) (err error) {
	now := time.Now().UTC()
	if group.ID == "" {
		group.ID = uuid.NewString()
	}
	group.CreatedAt = now
	group.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create group transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const insertGroup = `INSERT INTO block_groups (id, name, program, year_level, semester, school_year, max_overcap, created_at, updated_at)
        VALUES (:id, :name, :program, :year_level, :semester, :school_year, :max_overcap, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, insertGroup, group); err != nil {
		return fmt.Errorf("insert block group: %w", err)
	}

	if initial != nil {
		if initial.ID == "" {
			initial.ID = uuid.NewString()
		}
		initial.GroupID = group.ID
		initial.CreatedAt = now
		initial.UpdatedAt = now
		const insertSection = `INSERT INTO block_sections (id, group_id, section_code, capacity, current_population, status, created_at, updated_at)
            VALUES (:id, :group_id, :section_code, :capacity, :current_population, :status, :created_at, :updated_at)`
		if _, err = tx.NamedExecContext(ctx, insertSection, initial); err != nil {
			return fmt.Errorf("insert initial section: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create group: %w", err)
	}
	return nil
}

// Delete removes the group, its sections and its historical assignments in
// one transaction. The delete is refused while any ACTIVE assignment remains.
func (r *BlockGroupRepository) Delete(ctx context.Context, id string) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete group transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var exists int
	if err = tx.GetContext(ctx, &exists, "SELECT 1 FROM block_groups WHERE id = $1 FOR UPDATE", id); err != nil {
		if err == sql.ErrNoRows {
			return sql.ErrNoRows
		}
		return fmt.Errorf("lock block group: %w", err)
	}

	var active int
	const activeQuery = `SELECT COUNT(*) FROM block_assignments WHERE group_id = $1 AND status = $2`
	if err = tx.GetContext(ctx, &active, activeQuery, id, models.AssignmentStatusActive); err != nil {
		return fmt.Errorf("count active assignments: %w", err)
	}
	if active > 0 {
		err = ErrActiveAssignmentsRemain
		return err
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM block_assignments WHERE group_id = $1", id); err != nil {
		return fmt.Errorf("delete group assignments: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM block_sections WHERE group_id = $1", id); err != nil {
		return fmt.Errorf("delete group sections: %w", err)
	}
	if _, err = tx.ExecContext(ctx, "DELETE FROM block_groups WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete block group: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete group: %w", err)
	}
	return nil
}
