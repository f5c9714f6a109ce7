package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/service"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
	"github.com/campuskit/blocks-api/pkg/response"
)

type blockDirectoryService interface {
	ListGroups(ctx context.Context, filter models.BlockGroupFilter) ([]models.BlockGroup, *models.Pagination, error)
	ListSections(ctx context.Context, groupID string) ([]models.BlockSectionDetail, error)
	CreateGroup(ctx context.Context, req service.CreateBlockGroupRequest, actor models.Actor) (*service.BlockGroupDetail, error)
	CreateSection(ctx context.Context, groupID string, req service.CreateSectionRequest, actor models.Actor) (*models.BlockSectionDetail, error)
	DeleteGroup(ctx context.Context, groupID string, actor models.Actor) error
}

// BlockHandler exposes the block directory endpoints.
type BlockHandler struct {
	blocks blockDirectoryService
}

// NewBlockHandler constructs BlockHandler.
func NewBlockHandler(blocks blockDirectoryService) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// ListGroups godoc
// @Summary List block groups
// @Tags Blocks
// @Produce json
// @Param semester query string false "Filter by semester"
// @Param year query int false "Filter by school year"
// @Param program query string false "Filter by program"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blocks/groups [get]
func (h *BlockHandler) ListGroups(c *gin.Context) {
	var filter models.BlockGroupFilter
	filter.Semester = models.Semester(strings.ToUpper(c.Query("semester")))
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.SchoolYear = year
	}
	if program := c.Query("program"); program != "" {
		filter.Program = models.ProgramFromText(program)
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	groups, pagination, err := h.blocks.ListGroups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, pagination)
}

// CreateGroup godoc
// @Summary Create a block group with its initial section
// @Tags Blocks
// @Accept json
// @Produce json
// @Param payload body service.CreateBlockGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Router /blocks/groups [post]
func (h *BlockHandler) CreateGroup(c *gin.Context) {
	var req service.CreateBlockGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	group, err := h.blocks.CreateGroup(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, group)
}

// DeleteGroup godoc
// @Summary Delete a block group and its sections
// @Tags Blocks
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 204
// @Router /blocks/groups/{groupId} [delete]
func (h *BlockHandler) DeleteGroup(c *gin.Context) {
	if err := h.blocks.DeleteGroup(c.Request.Context(), c.Param("groupId"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListSections godoc
// @Summary List sections of a group with available slots
// @Tags Blocks
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /blocks/groups/{groupId}/sections [get]
func (h *BlockHandler) ListSections(c *gin.Context) {
	sections, err := h.blocks.ListSections(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sections, nil)
}

// CreateSection godoc
// @Summary Add a lettered section to a group
// @Tags Blocks
// @Accept json
// @Produce json
// @Param groupId path string true "Group ID"
// @Param payload body service.CreateSectionRequest true "Section payload"
// @Success 201 {object} response.Envelope
// @Router /blocks/groups/{groupId}/sections [post]
func (h *BlockHandler) CreateSection(c *gin.Context) {
	var req service.CreateSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	section, err := h.blocks.CreateSection(c.Request.Context(), c.Param("groupId"), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, section)
}
