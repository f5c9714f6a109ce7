package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/service"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
)

type blockServiceMock struct {
	groups       []models.BlockGroup
	pagination   *models.Pagination
	listErr      error
	lastFilter   models.BlockGroupFilter
	sections     []models.BlockSectionDetail
	sectionsErr  error
	createdGroup *service.BlockGroupDetail
	createErr    error
	section      *models.BlockSectionDetail
	sectionErr   error
	deleteErr    error
	deletedIDs   []string
}

func (m *blockServiceMock) ListGroups(ctx context.Context, filter models.BlockGroupFilter) ([]models.BlockGroup, *models.Pagination, error) {
	m.lastFilter = filter
	return m.groups, m.pagination, m.listErr
}

func (m *blockServiceMock) ListSections(ctx context.Context, groupID string) ([]models.BlockSectionDetail, error) {
	return m.sections, m.sectionsErr
}

func (m *blockServiceMock) CreateGroup(ctx context.Context, req service.CreateBlockGroupRequest, actor models.Actor) (*service.BlockGroupDetail, error) {
	return m.createdGroup, m.createErr
}

func (m *blockServiceMock) CreateSection(ctx context.Context, groupID string, req service.CreateSectionRequest, actor models.Actor) (*models.BlockSectionDetail, error) {
	return m.section, m.sectionErr
}

func (m *blockServiceMock) DeleteGroup(ctx context.Context, groupID string, actor models.Actor) error {
	m.deletedIDs = append(m.deletedIDs, groupID)
	return m.deleteErr
}

func TestListGroupsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockServiceMock{
		groups:     []models.BlockGroup{{ID: "g1", Name: "103-1", Program: models.ProgramBSIT}},
		pagination: &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1},
	}
	h := NewBlockHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/blocks/groups?semester=first&year=2025&program=bsit", nil)
	h.ListGroups(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SemesterFirst, mockSvc.lastFilter.Semester)
	assert.Equal(t, 2025, mockSvc.lastFilter.SchoolYear)
	assert.Equal(t, models.ProgramBSIT, mockSvc.lastFilter.Program)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestCreateGroupHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockServiceMock{createdGroup: &service.BlockGroupDetail{
		BlockGroup: models.BlockGroup{ID: "g-new", Name: "103-1", Program: models.ProgramBSIT},
		Sections: []models.BlockSectionDetail{
			{BlockSection: models.BlockSection{ID: "sec-new", SectionCode: "103-1A", Capacity: 40}, AvailableSlots: 40},
		},
	}}
	h := NewBlockHandler(mockSvc)

	payload, _ := json.Marshal(service.CreateBlockGroupRequest{
		Program:        "BSIT",
		YearLevel:      1,
		Semester:       "FIRST",
		SchoolYear:     2025,
		InitialSection: service.InitialSectionRequest{Letter: "A", Capacity: 40},
	})
	c, w := newGinContext(http.MethodPost, "/blocks/groups", payload)
	withStaffActor(c)
	h.CreateGroup(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "103-1", data["name"])
}

func TestCreateGroupConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockServiceMock{createErr: appErrors.Clone(appErrors.ErrConflict, "a group for this program, year level, semester and school year already exists")}
	h := NewBlockHandler(mockSvc)

	payload, _ := json.Marshal(service.CreateBlockGroupRequest{
		Program:        "BSIT",
		YearLevel:      1,
		Semester:       "FIRST",
		SchoolYear:     2025,
		InitialSection: service.InitialSectionRequest{Letter: "A", Capacity: 40},
	})
	c, w := newGinContext(http.MethodPost, "/blocks/groups", payload)
	h.CreateGroup(c)

	require.Equal(t, http.StatusConflict, w.Code)
}

func TestCreateSectionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	detail := models.NewSectionDetail(models.BlockSection{ID: "sec-new", SectionCode: "103-1B", Capacity: 35})
	mockSvc := &blockServiceMock{section: &detail}
	h := NewBlockHandler(mockSvc)

	payload, _ := json.Marshal(service.CreateSectionRequest{Letter: "B", Capacity: 35})
	c, w := newGinContext(http.MethodPost, "/blocks/groups/g1/sections", payload)
	c.Params = gin.Params{{Key: "groupId", Value: "g1"}}
	withStaffActor(c)
	h.CreateSection(c)

	require.Equal(t, http.StatusCreated, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "103-1B", data["section_code"])
	assert.Equal(t, float64(35), data["available_slots"])
}

func TestListSectionsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockServiceMock{sections: []models.BlockSectionDetail{
		{BlockSection: models.BlockSection{ID: "secA", SectionCode: "103-1A", Capacity: 40, CurrentPopulation: 38}, AvailableSlots: 2},
	}}
	h := NewBlockHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/blocks/groups/g1/sections", nil)
	c.Params = gin.Params{{Key: "groupId", Value: "g1"}}
	h.ListSections(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	sections := env.Data.([]interface{})
	require.Len(t, sections, 1)
	section := sections[0].(map[string]interface{})
	assert.Equal(t, float64(2), section["available_slots"])
}

func TestDeleteGroupHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockServiceMock{}
	h := NewBlockHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/blocks/groups/g1", nil)
	c.Params = gin.Params{{Key: "groupId", Value: "g1"}}
	withStaffActor(c)
	h.DeleteGroup(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"g1"}, mockSvc.deletedIDs)
}

func TestDeleteGroupPreconditionFailed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &blockServiceMock{deleteErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "group still has active assignments")}
	h := NewBlockHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/blocks/groups/g1", nil)
	c.Params = gin.Params{{Key: "groupId", Value: "g1"}}
	h.DeleteGroup(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "PRECONDITION_FAILED", env.Error.Code)
}
