package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/labtrack/labtrack-api/internal/service"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
	"github.com/labtrack/labtrack-api/pkg/response"
)

// FeedbackHandler exposes equipment report endpoints.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs FeedbackHandler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Submit godoc
// @Summary Submit equipment report
// @Description File a per-component condition report for a workstation
// @Tags Feedback
// @Accept json
// @Produce json
// @Param payload body service.SubmitFeedbackRequest true "Report payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /feedback [post]
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req service.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.feedback.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// ListPending godoc
// @Summary List pending reports
// @Description Unforwarded equipment reports, oldest first
// @Tags Feedback
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /feedback/pending [get]
func (h *FeedbackHandler) ListPending(c *gin.Context) {
	reports, err := h.feedback.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// Forward godoc
// @Summary Forward report
// @Description Escalate a pending report to the administrator; exactly one concurrent forward wins
// @Tags Feedback
// @Accept json
// @Produce json
// @Param id path string true "Report ID"
// @Param payload body object{notes=string} true "Forward payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /feedback/{id}/forward [put]
func (h *FeedbackHandler) Forward(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Notes *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	req := service.ForwardFeedbackRequest{ActorID: claims.UserID, Notes: payload.Notes}
	report, err := h.feedback.Forward(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
