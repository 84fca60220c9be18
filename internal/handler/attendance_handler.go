package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-engine/internal/service"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
	"github.com/campuskit/attendance-engine/pkg/response"
)

const dateLayout = "2006-01-02"

// AttendanceHandler exposes attendance read queries.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler constructs an attendance handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// List godoc
// @Summary List a person's attendance records
// @Tags Attendance
// @Produce json
// @Param personId query string true "Person ID"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	in := service.ListInput{PersonID: c.Query("personId")}
	if raw := c.Query("from"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid from date"))
			return
		}
		in.DateFrom = &from
	}
	if raw := c.Query("to"); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid to date"))
			return
		}
		in.DateTo = &to
	}

	records, err := h.service.List(c.Request.Context(), in)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// Monthly godoc
// @Summary Monthly attendance summary for a person
// @Tags Attendance
// @Produce json
// @Param personId path string true "Person ID"
// @Param year query int true "Year"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} response.Envelope
// @Router /attendance/monthly/{personId} [get]
func (h *AttendanceHandler) Monthly(c *gin.Context) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid year"))
		return
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid month"))
		return
	}

	summary, err := h.service.MonthlyReport(c.Request.Context(), c.Param("personId"), year, month)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// AbsenceDetails godoc
// @Summary Day's non-present records for the caller's organization
// @Tags Attendance
// @Produce json
// @Param date query string true "Logical date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/absences [get]
func (h *AttendanceHandler) AbsenceDetails(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	date, err := time.Parse(dateLayout, c.Query("date"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}

	details, err := h.service.AbsenceDetails(c.Request.Context(), claims.OrgID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, nil)
}
