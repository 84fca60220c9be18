package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-engine/internal/service"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
	"github.com/campuskit/attendance-engine/pkg/response"
)

// CloseoutHandler lets operators trigger the end-of-day sweep on demand.
type CloseoutHandler struct {
	service *service.CloseoutService
}

// NewCloseoutHandler constructs a closeout handler.
func NewCloseoutHandler(svc *service.CloseoutService) *CloseoutHandler {
	return &CloseoutHandler{service: svc}
}

type closeoutRequest struct {
	Date string `json:"date" binding:"required"`
}

// Run godoc
// @Summary Close open attendance records for a logical date
// @Tags Closeout
// @Accept json
// @Produce json
// @Param payload body closeoutRequest true "Closeout payload"
// @Success 200 {object} response.Envelope
// @Router /closeout/run [post]
func (h *CloseoutHandler) Run(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req closeoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid date"))
		return
	}

	result, err := h.service.RunForOrganization(c.Request.Context(), claims.OrgID, date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
