package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/repository"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

type blockGroupRepository interface {
	List(ctx context.Context, filter models.BlockGroupFilter) ([]models.BlockGroup, int, error)
	FindByID(ctx context.Context, id string) (*models.BlockGroup, error)
	ExistsByIdentity(ctx context.Context, program models.Program, yearLevel int, semester models.Semester, schoolYear int) (bool, error)
	Create(ctx context.Context, group *models.BlockGroup, initial *models.BlockSection) error
	Delete(ctx context.Context, id string) error
}

type blockSectionRepository interface {
	ListByGroup(ctx context.Context, groupID string) ([]models.BlockSection, error)
	FindByID(ctx context.Context, id string) (*models.BlockSection, error)
	ExistsByCode(ctx context.Context, groupID, sectionCode string) (bool, error)
	Create(ctx context.Context, section *models.BlockSection) error
}

// auditRecorder is the consumer-side view of the asynchronous audit service.
type auditRecorder interface {
	Record(actor models.Actor, action, resource string, resourceID string, payload interface{})
}

// summaryInvalidator drops cached utilization figures for a group after a
// mutation in its scope.
type summaryInvalidator interface {
	InvalidateGroup(ctx context.Context, groupID string)
}

// InitialSectionRequest describes the first section created with a group.
type InitialSectionRequest struct {
	Letter   string `json:"letter" validate:"required,len=1,alpha"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

// CreateBlockGroupRequest describes group creation.
type CreateBlockGroupRequest struct {
	Program        string                `json:"program" validate:"required"`
	YearLevel      int                   `json:"year_level" validate:"required,min=1,max=4"`
	Semester       string                `json:"semester" validate:"required"`
	SchoolYear     int                   `json:"school_year" validate:"required,min=2000"`
	MaxOvercap     int                   `json:"max_overcap" validate:"min=0"`
	InitialSection InitialSectionRequest `json:"initial_section" validate:"required"`
}

// CreateSectionRequest describes an additional lettered section.
type CreateSectionRequest struct {
	Letter   string `json:"letter" validate:"required,len=1,alpha"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

// BlockGroupDetail is a group with its sections rendered for responses.
type BlockGroupDetail struct {
	models.BlockGroup
	Sections []models.BlockSectionDetail `json:"sections"`
}

// BlockService is the read-through block directory plus the staff-facing
// group and section lifecycle. Directory reads are never cached or retried;
// callers refresh explicitly.
type BlockService struct {
	groups    blockGroupRepository
	sections  blockSectionRepository
	audit     auditRecorder
	summaries summaryInvalidator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBlockService constructs BlockService.
func NewBlockService(groups blockGroupRepository, sections blockSectionRepository, audit auditRecorder, summaries summaryInvalidator, validate *validator.Validate, logger *zap.Logger) *BlockService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlockService{groups: groups, sections: sections, audit: audit, summaries: summaries, validator: validate, logger: logger}
}

// ListGroups returns block groups with pagination metadata.
func (s *BlockService) ListGroups(ctx context.Context, filter models.BlockGroupFilter) ([]models.BlockGroup, *models.Pagination, error) {
	if filter.Semester != "" && !filter.Semester.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	groups, total, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list block groups")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return groups, pagination, nil
}

// GetGroup returns one group by ID.
func (s *BlockService) GetGroup(ctx context.Context, groupID string) (*models.BlockGroup, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "block group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load block group")
	}
	return group, nil
}

// ListSections returns the group's sections with derived free-slot counts.
func (s *BlockService) ListSections(ctx context.Context, groupID string) ([]models.BlockSectionDetail, error) {
	if _, err := s.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	sections, err := s.sections.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sections")
	}
	details := make([]models.BlockSectionDetail, 0, len(sections))
	for _, section := range sections {
		details = append(details, models.NewSectionDetail(section))
	}
	return details, nil
}

// CreateGroup registers a new block group together with its initial section.
func (s *BlockService) CreateGroup(ctx context.Context, req CreateBlockGroupRequest, actor models.Actor) (*BlockGroupDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	semester := models.Semester(strings.ToUpper(req.Semester))
	if !semester.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown semester")
	}
	program := models.ProgramFromText(req.Program)
	if program == models.ProgramUnknown {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown program")
	}

	exists, err := s.groups.ExistsByIdentity(ctx, program, req.YearLevel, semester, req.SchoolYear)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate group identity")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "a group for this program, year level, semester and school year already exists")
	}

	name := models.BuildGroupName(program, req.YearLevel)
	group := &models.BlockGroup{
		Name:       name,
		Program:    program,
		YearLevel:  req.YearLevel,
		Semester:   semester,
		SchoolYear: req.SchoolYear,
		MaxOvercap: req.MaxOvercap,
	}
	section := &models.BlockSection{
		SectionCode:       models.BuildSectionCode(name, strings.ToUpper(req.InitialSection.Letter)),
		Capacity:          req.InitialSection.Capacity,
		CurrentPopulation: 0,
		Status:            models.SectionStatusOpen,
	}
	if err := s.groups.Create(ctx, group, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create block group")
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionGroupCreate, "block_group", group.ID, group)
	}
	return &BlockGroupDetail{
		BlockGroup: *group,
		Sections:   []models.BlockSectionDetail{models.NewSectionDetail(*section)},
	}, nil
}

// CreateSection adds a lettered section to an existing group.
func (s *BlockService) CreateSection(ctx context.Context, groupID string, req CreateSectionRequest, actor models.Actor) (*models.BlockSectionDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid section payload")
	}
	group, err := s.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}

	code := models.BuildSectionCode(group.Name, strings.ToUpper(req.Letter))
	exists, err := s.sections.ExistsByCode(ctx, groupID, code)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate section code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "section letter already used in this group")
	}

	section := &models.BlockSection{
		GroupID:           groupID,
		SectionCode:       code,
		Capacity:          req.Capacity,
		CurrentPopulation: 0,
		Status:            models.SectionStatusOpen,
	}
	if err := s.sections.Create(ctx, section); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create section")
	}

	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionSectionCreate, "block_section", section.ID, section)
	}
	if s.summaries != nil {
		s.summaries.InvalidateGroup(ctx, groupID)
	}
	detail := models.NewSectionDetail(*section)
	return &detail, nil
}

// DeleteGroup removes a group and its sections. The delete is refused while
// any ACTIVE assignment remains.
func (s *BlockService) DeleteGroup(ctx context.Context, groupID string, actor models.Actor) error {
	if err := s.groups.Delete(ctx, groupID); err != nil {
		switch {
		case err == sql.ErrNoRows:
			return appErrors.Clone(appErrors.ErrNotFound, "block group not found")
		case err == repository.ErrActiveAssignmentsRemain:
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "group still has active assignments")
		default:
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete block group")
		}
	}
	if s.audit != nil {
		s.audit.Record(actor, models.AuditActionGroupDelete, "block_group", groupID, nil)
	}
	if s.summaries != nil {
		s.summaries.InvalidateGroup(ctx, groupID)
	}
	return nil
}
