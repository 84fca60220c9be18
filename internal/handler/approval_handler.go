package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-engine/internal/service"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
	"github.com/campuskit/attendance-engine/pkg/response"
)

// ApprovalHandler exposes absence-request decisions to operators.
type ApprovalHandler struct {
	service *service.ApprovalService
}

// NewApprovalHandler constructs an approval handler.
func NewApprovalHandler(svc *service.ApprovalService) *ApprovalHandler {
	return &ApprovalHandler{service: svc}
}

type decisionRequest struct {
	Comment *string `json:"comment"`
}

// Approve godoc
// @Summary Approve a request and override attendance
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body decisionRequest false "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *ApprovalHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.service.Approve(c.Request.Context(), service.DecisionInput{
		RequestID:  c.Param("id"),
		ApproverID: claims.UserID,
		Comment:    req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Reject godoc
// @Summary Reject a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body decisionRequest false "Decision payload"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *ApprovalHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	request, err := h.service.Reject(c.Request.Context(), service.DecisionInput{
		RequestID:  c.Param("id"),
		ApproverID: claims.UserID,
		Comment:    req.Comment,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// History godoc
// @Summary List a request's approval history
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /requests/{id}/history [get]
func (h *ApprovalHandler) History(c *gin.Context) {
	history, err := h.service.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, history, nil)
}
