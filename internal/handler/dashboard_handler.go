package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/blocks-api/internal/models"
	"github.com/campuskit/blocks-api/pkg/response"
)

type groupSummaryService interface {
	GroupSummary(ctx context.Context, groupID string) (*models.GroupSummary, error)
}

// DashboardHandler exposes the cached group utilization summary.
type DashboardHandler struct {
	dashboard groupSummaryService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard groupSummaryService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// GroupSummary godoc
// @Summary Utilization summary for one block group
// @Tags Dashboard
// @Produce json
// @Param groupId path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /blocks/groups/{groupId}/summary [get]
func (h *DashboardHandler) GroupSummary(c *gin.Context) {
	summary, err := h.dashboard.GroupSummary(c.Request.Context(), c.Param("groupId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
