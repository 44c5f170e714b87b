package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labtrack/labtrack-api/internal/models"
	"github.com/labtrack/labtrack-api/internal/service"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
	"github.com/labtrack/labtrack-api/pkg/response"
)

// SessionHandler exposes workstation login session endpoints.
type SessionHandler struct {
	sessions *service.SessionService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(sessions *service.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Open godoc
// @Summary Open login session
// @Description Start a workstation session; fails with 409 if one is already open
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body service.OpenSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Open(c *gin.Context) {
	var req service.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.sessions.Open(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Close godoc
// @Summary Close login session
// @Description Stamp the logout time on the user's open session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body object{user_id=string} true "Close payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/close [put]
func (h *SessionHandler) Close(c *gin.Context) {
	var payload struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user id required"))
		return
	}
	session, err := h.sessions.Close(c.Request.Context(), payload.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// ListByUser godoc
// @Summary List user sessions
// @Description Sessions of a user ordered by login time, optional from/to range
// @Tags Sessions
// @Produce json
// @Param id path string true "User ID"
// @Param from query string false "Range start (RFC 3339)"
// @Param to query string false "Range end (RFC 3339)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id}/sessions [get]
func (h *SessionHandler) ListByUser(c *gin.Context) {
	var filter models.SessionFilter
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from timestamp"))
			return
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to timestamp"))
			return
		}
		filter.To = &ts
	}

	sessions, err := h.sessions.List(c.Request.Context(), c.Param("id"), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil)
}
