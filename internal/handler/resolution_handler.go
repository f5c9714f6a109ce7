package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/blocks-api/internal/models"
	appErrors "github.com/campuskit/blocks-api/pkg/errors"
	"github.com/campuskit/blocks-api/pkg/response"
)

type resolutionWorkflowService interface {
	Get(ctx context.Context, id string) (*models.ResolutionSession, error)
	Decide(ctx context.Context, id string, decision models.OvercapacityDecision, actor models.Actor) (*models.DecisionResult, error)
	Cancel(ctx context.Context, id string, actor models.Actor) error
}

// DecideRequest is the overcapacity decision payload.
type DecideRequest struct {
	ResolutionID    string                  `json:"resolution_id" binding:"required"`
	Action          models.ResolutionAction `json:"action" binding:"required"`
	Reason          string                  `json:"reason"`
	TargetSectionID string                  `json:"target_section_id"`
	NewCapacity     int                     `json:"new_capacity"`
}

// ResolutionHandler exposes the overcapacity resolution workflow.
type ResolutionHandler struct {
	resolutions resolutionWorkflowService
}

// NewResolutionHandler constructs ResolutionHandler.
func NewResolutionHandler(resolutions resolutionWorkflowService) *ResolutionHandler {
	return &ResolutionHandler{resolutions: resolutions}
}

// Get godoc
// @Summary Fetch a pending resolution session
// @Tags Overcapacity
// @Produce json
// @Param resolutionId path string true "Resolution session ID"
// @Success 200 {object} response.Envelope
// @Router /blocks/overcapacity/{resolutionId} [get]
func (h *ResolutionHandler) Get(c *gin.Context) {
	session, err := h.resolutions.Get(c.Request.Context(), c.Param("resolutionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Decide godoc
// @Summary Submit the staff decision for an overcapacity signal
// @Tags Overcapacity
// @Accept json
// @Produce json
// @Param payload body DecideRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /blocks/overcapacity/decision [post]
func (h *ResolutionHandler) Decide(c *gin.Context) {
	var req DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	decision := models.OvercapacityDecision{
		Action:          req.Action,
		Reason:          req.Reason,
		TargetSectionID: req.TargetSectionID,
		NewCapacity:     req.NewCapacity,
	}
	result, err := h.resolutions.Decide(c.Request.Context(), req.ResolutionID, decision, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Cancel godoc
// @Summary Cancel a pending resolution session
// @Tags Overcapacity
// @Produce json
// @Param resolutionId path string true "Resolution session ID"
// @Success 204
// @Router /blocks/overcapacity/{resolutionId}/cancel [post]
func (h *ResolutionHandler) Cancel(c *gin.Context) {
	if err := h.resolutions.Cancel(c.Request.Context(), c.Param("resolutionId"), actorFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
