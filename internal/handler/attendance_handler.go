package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/labtrack/labtrack-api/internal/service"
	appErrors "github.com/labtrack/labtrack-api/pkg/errors"
	"github.com/labtrack/labtrack-api/pkg/response"
)

const dateLayout = "2006-01-02"

// AttendanceHandler exposes derived attendance endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Today godoc
// @Summary Get today's attendance
// @Description Derived attendance status for the current date
// @Tags Attendance
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /users/{id}/attendance [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	record, err := h.attendance.Today(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Summary godoc
// @Summary Summarize attendance
// @Description Aggregate derived statuses over an inclusive date range
// @Tags Attendance
// @Produce json
// @Param id path string true "User ID"
// @Param from query string true "Range start (YYYY-MM-DD)"
// @Param to query string true "Range end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/{id}/attendance/summary [get]
func (h *AttendanceHandler) Summary(c *gin.Context) {
	from, err := time.Parse(dateLayout, c.Query("from"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD"))
		return
	}
	to, err := time.Parse(dateLayout, c.Query("to"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD"))
		return
	}

	summary, err := h.attendance.Summarize(c.Request.Context(), c.Param("id"), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
