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

type assignmentEngineService interface {
	Assign(ctx context.Context, req service.AssignRequest, actor models.Actor) (*models.AssignmentOutcome, error)
	AssignBatch(ctx context.Context, req service.AssignBatchRequest, actor models.Actor) (*models.BatchAssignSummary, error)
	Remove(ctx context.Context, assignmentID string, actor models.Actor) (*models.BlockSectionDetail, error)
}

type rosterFinderService interface {
	ListAssignable(ctx context.Context, filter models.AssignableStudentFilter) ([]models.StudentDetail, *models.Pagination, error)
	SectionStudents(ctx context.Context, sectionID string) ([]service.RosterEntryDetail, error)
}

// AssignmentHandler exposes the assignment engine and the assignable-student
// finder.
type AssignmentHandler struct {
	assignments assignmentEngineService
	roster      rosterFinderService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments assignmentEngineService, roster rosterFinderService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, roster: roster}
}

// ListAssignable godoc
// @Summary List students eligible for placement into a group
// @Tags Assignments
// @Produce json
// @Param groupId query string true "Group ID"
// @Param semester query string true "Semester"
// @Param year query int true "School year"
// @Param q query string false "Name or student number filter"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /blocks/assignable-students [get]
func (h *AssignmentHandler) ListAssignable(c *gin.Context) {
	var filter models.AssignableStudentFilter
	filter.GroupID = c.Query("groupId")
	filter.Semester = models.Semester(strings.ToUpper(c.Query("semester")))
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.SchoolYear = year
	}
	filter.Query = c.Query("q")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	if filter.GroupID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "groupId is required"))
		return
	}

	students, pagination, err := h.roster.ListAssignable(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// SectionStudents godoc
// @Summary List the active roster of a section
// @Tags Assignments
// @Produce json
// @Param sectionId path string true "Section ID"
// @Success 200 {object} response.Envelope
// @Router /blocks/sections/{sectionId}/students [get]
func (h *AssignmentHandler) SectionStudents(c *gin.Context) {
	students, err := h.roster.SectionStudents(c.Request.Context(), c.Param("sectionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"students": students}, nil)
}

// Assign godoc
// @Summary Assign one student to a section
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignRequest true "Assignment payload"
// @Success 200 {object} response.Envelope "ASSIGNED or OVER_CAPACITY outcome"
// @Router /blocks/assign-student [post]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	var req service.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.assignments.Assign(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}

// AssignBatch godoc
// @Summary Assign multiple students to a section
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body service.AssignBatchRequest true "Batch payload"
// @Success 200 {object} response.Envelope
// @Router /blocks/assign-students [post]
func (h *AssignmentHandler) AssignBatch(c *gin.Context) {
	var req service.AssignBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	actor := actorFromContext(c)

	// A batch of one degenerates to a single assignment so an overcapacity
	// signal still opens the resolution workflow.
	if len(req.StudentIDs) == 1 {
		outcome, err := h.assignments.Assign(c.Request.Context(), service.AssignRequest{
			StudentID:  req.StudentIDs[0],
			SectionID:  req.SectionID,
			Semester:   req.Semester,
			SchoolYear: req.SchoolYear,
		}, actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, outcome, nil)
		return
	}

	summary, err := h.assignments.AssignBatch(c.Request.Context(), req, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil, map[string]interface{}{"message": summary.Message()})
}

// Remove godoc
// @Summary Remove an active assignment
// @Tags Assignments
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /blocks/assignments/{assignmentId} [delete]
func (h *AssignmentHandler) Remove(c *gin.Context) {
	section, err := h.assignments.Remove(c.Request.Context(), c.Param("assignmentId"), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, section, nil)
}
