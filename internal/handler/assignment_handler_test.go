package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/blocks-api/internal/middleware"
	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/internal/service"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
	"github.com/campuskit/blocks-api/pkg/response"
)

type assignmentServiceMock struct {
	assignOutcome *models.AssignmentOutcome
	assignErr     error
	assignCalls   []service.AssignRequest
	batchSummary  *models.BatchAssignSummary
	batchErr      error
	batchCalls    []service.AssignBatchRequest
	removeSection *models.BlockSectionDetail
	removeErr     error
}

func (m *assignmentServiceMock) Assign(ctx context.Context, req service.AssignRequest, actor models.Actor) (*models.AssignmentOutcome, error) {
	m.assignCalls = append(m.assignCalls, req)
	return m.assignOutcome, m.assignErr
}

func (m *assignmentServiceMock) AssignBatch(ctx context.Context, req service.AssignBatchRequest, actor models.Actor) (*models.BatchAssignSummary, error) {
	m.batchCalls = append(m.batchCalls, req)
	return m.batchSummary, m.batchErr
}

func (m *assignmentServiceMock) Remove(ctx context.Context, assignmentID string, actor models.Actor) (*models.BlockSectionDetail, error) {
	return m.removeSection, m.removeErr
}

type rosterServiceMock struct {
	students   []models.StudentDetail
	pagination *models.Pagination
	listErr    error
	lastFilter models.AssignableStudentFilter
	roster     []service.RosterEntryDetail
	rosterErr  error
}

func (m *rosterServiceMock) ListAssignable(ctx context.Context, filter models.AssignableStudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	m.lastFilter = filter
	return m.students, m.pagination, m.listErr
}

func (m *rosterServiceMock) SectionStudents(ctx context.Context, sectionID string) ([]service.RosterEntryDetail, error) {
	return m.roster, m.rosterErr
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withStaffActor(c *gin.Context) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleRegistrar})
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func assignedOutcome() *models.AssignmentOutcome {
	return &models.AssignmentOutcome{
		Status:     models.OutcomeAssigned,
		Assignment: &models.Assignment{ID: "a1", StudentID: "s1", SectionID: "secA"},
		Section:    &models.SectionSnapshot{ID: "secA", SectionCode: "103-1A", Capacity: 40, CurrentPopulation: 13},
	}
}

func TestAssignHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &assignmentServiceMock{assignOutcome: assignedOutcome()}
	h := NewAssignmentHandler(mockSvc, &rosterServiceMock{})

	payload, _ := json.Marshal(service.AssignRequest{StudentID: "s1", SectionID: "secA", Semester: "FIRST", SchoolYear: 2025})
	c, w := newGinContext(http.MethodPost, "/blocks/assign-student", payload)
	withStaffActor(c)
	h.Assign(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "ASSIGNED", data["status"])
}

func TestAssignHandlerOverCapacityStillOK(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &assignmentServiceMock{assignOutcome: &models.AssignmentOutcome{
		Status:              models.OutcomeOverCapacity,
		Section:             &models.SectionSnapshot{ID: "secA", SectionCode: "103-1A", Capacity: 40, CurrentPopulation: 40},
		ProjectedPopulation: 41,
		AllowedActions:      []models.ResolutionAction{models.ActionIncreaseCapacity},
		ResolutionID:        "res-1",
	}}
	h := NewAssignmentHandler(mockSvc, &rosterServiceMock{})

	payload, _ := json.Marshal(service.AssignRequest{StudentID: "s1", SectionID: "secA", Semester: "FIRST", SchoolYear: 2025})
	c, w := newGinContext(http.MethodPost, "/blocks/assign-student", payload)
	withStaffActor(c)
	h.Assign(c)

	// Overcapacity is an expected outcome, not an HTTP error.
	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "OVER_CAPACITY", data["status"])
	assert.Equal(t, "res-1", data["resolution_id"])
}

func TestAssignHandlerInvalidJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAssignmentHandler(&assignmentServiceMock{}, &rosterServiceMock{})

	c, w := newGinContext(http.MethodPost, "/blocks/assign-student", []byte("{not json"))
	h.Assign(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestAssignHandlerServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &assignmentServiceMock{assignErr: appErrors.Clone(appErrors.ErrNotFound, "student not found")}
	h := NewAssignmentHandler(mockSvc, &rosterServiceMock{})

	payload, _ := json.Marshal(service.AssignRequest{StudentID: "ghost", SectionID: "secA", Semester: "FIRST", SchoolYear: 2025})
	c, w := newGinContext(http.MethodPost, "/blocks/assign-student", payload)
	h.Assign(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "student not found", env.Error.Message)
}

func TestAssignBatchHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &assignmentServiceMock{batchSummary: &models.BatchAssignSummary{
		Requested: 2,
		Assigned:  []string{"s1", "s2"},
	}}
	h := NewAssignmentHandler(mockSvc, &rosterServiceMock{})

	payload, _ := json.Marshal(service.AssignBatchRequest{StudentIDs: []string{"s1", "s2"}, SectionID: "secA", Semester: "FIRST", SchoolYear: 2025})
	c, w := newGinContext(http.MethodPost, "/blocks/assign-students", payload)
	withStaffActor(c)
	h.AssignBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, mockSvc.batchCalls, 1)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "2 assigned", env.Meta["message"])
}

func TestAssignBatchOfOneDelegatesToSingleAssign(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &assignmentServiceMock{assignOutcome: assignedOutcome()}
	h := NewAssignmentHandler(mockSvc, &rosterServiceMock{})

	payload, _ := json.Marshal(service.AssignBatchRequest{StudentIDs: []string{"s1"}, SectionID: "secA", Semester: "FIRST", SchoolYear: 2025})
	c, w := newGinContext(http.MethodPost, "/blocks/assign-students", payload)
	withStaffActor(c)
	h.AssignBatch(c)

	require.Equal(t, http.StatusOK, w.Code)
	// The single-assignment path ran, so a resolution session could open.
	require.Len(t, mockSvc.assignCalls, 1)
	assert.Equal(t, "s1", mockSvc.assignCalls[0].StudentID)
	assert.Empty(t, mockSvc.batchCalls)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, "ASSIGNED", data["status"])
}

func TestRemoveAssignmentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	detail := models.NewSectionDetail(models.BlockSection{ID: "secA", SectionCode: "103-1A", Capacity: 40, CurrentPopulation: 12})
	mockSvc := &assignmentServiceMock{removeSection: &detail}
	h := NewAssignmentHandler(mockSvc, &rosterServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/blocks/assignments/a1", nil)
	c.Params = gin.Params{{Key: "assignmentId", Value: "a1"}}
	withStaffActor(c)
	h.Remove(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, float64(28), data["available_slots"])
}

func TestListAssignableHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	roster := &rosterServiceMock{
		students:   []models.StudentDetail{{Student: models.Student{ID: "s1", LastName: "Reyes"}}},
		pagination: &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1},
	}
	h := NewAssignmentHandler(&assignmentServiceMock{}, roster)

	c, w := newGinContext(http.MethodGet, "/blocks/assignable-students?groupId=g1&semester=first&year=2025&q=rey", nil)
	h.ListAssignable(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "g1", roster.lastFilter.GroupID)
	assert.Equal(t, models.SemesterFirst, roster.lastFilter.Semester)
	assert.Equal(t, 2025, roster.lastFilter.SchoolYear)
	assert.Equal(t, "rey", roster.lastFilter.Query)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 1, env.Pagination.TotalCount)
}

func TestListAssignableRequiresGroup(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAssignmentHandler(&assignmentServiceMock{}, &rosterServiceMock{})

	c, w := newGinContext(http.MethodGet, "/blocks/assignable-students?semester=first&year=2025", nil)
	h.ListAssignable(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSectionStudentsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	roster := &rosterServiceMock{roster: []service.RosterEntryDetail{
		{StudentDetail: models.StudentDetail{Student: models.Student{ID: "s1"}}, AssignmentID: "a1"},
	}}
	h := NewAssignmentHandler(&assignmentServiceMock{}, roster)

	c, w := newGinContext(http.MethodGet, "/blocks/sections/secA/students", nil)
	c.Params = gin.Params{{Key: "sectionId", Value: "secA"}}
	h.SectionStudents(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	data := env.Data.(map[string]interface{})
	students, ok := data["students"].([]interface{})
	require.True(t, ok)
	assert.Len(t, students, 1)
}
