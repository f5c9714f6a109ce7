package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/blocks-api/internal/models"
)

// BlockSectionRepository handles read and create access to block sections.
// Capacity mutation lives in AssignmentRepository so that every population
// change runs under the same row lock discipline.
type BlockSectionRepository struct {
	db *sqlx.DB
}

// NewBlockSectionRepository constructs the repository.
func NewBlockSectionRepository(db *sqlx.DB) *BlockSectionRepository {
	return &BlockSectionRepository{db: db}
}

// ListByGroup returns the sections of a group ordered by section code.
func (r *BlockSectionRepository) ListByGroup(ctx context.Context, groupID string) ([]models.BlockSection, error) {
	const query = `SELECT id, group_id, section_code, capacity, current_population, status, created_at, updated_at
        FROM block_sections WHERE group_id = $1 ORDER BY section_code ASC`
	var sections []models.BlockSection
	if err := r.db.SelectContext(ctx, &sections, query, groupID); err != nil {
		return nil, fmt.Errorf("list block sections: %w", err)
	}
	return sections, nil
}

// FindByID returns a section by its ID.
func (r *BlockSectionRepository) FindByID(ctx context.Context, id string) (*models.BlockSection, error) {
	const query = `SELECT id, group_id, section_code, capacity, current_population, status, created_at, updated_at
        FROM block_sections WHERE id = $1`
	var section models.BlockSection
	if err := r.db.GetContext(ctx, &section, query, id); err != nil {
		return nil, err
	}
	return &section, nil
}

// ExistsByCode checks whether the group already holds a section with the code.
func (r *BlockSectionRepository) ExistsByCode(ctx context.Context, groupID, sectionCode string) (bool, error) {
	const query = `SELECT 1 FROM block_sections WHERE group_id = $1 AND section_code = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, groupID, sectionCode); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check section code: %w", err)
	}
	return true, nil
}

// Create persists a new section.
func (r *BlockSectionRepository) Create(ctx context.Context, section *models.BlockSection) error {
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	section.CreatedAt = now
	section.UpdatedAt = now

	const query = `INSERT INTO block_sections (id, group_id, section_code, capacity, current_population, status, created_at, updated_at)
        VALUES (:id, :group_id, :section_code, :capacity, :current_population, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, section); err != nil {
		return fmt.Errorf("insert block section: %w", err)
	}
	return nil
}
