package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-engine/internal/service"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
	"github.com/campuskit/attendance-engine/pkg/response"
)

// PairingHandler exposes the card pairing session to its owner.
type PairingHandler struct {
	service *service.PairingService
}

// NewPairingHandler constructs a pairing handler.
func NewPairingHandler(svc *service.PairingService) *PairingHandler {
	return &PairingHandler{service: svc}
}

// Start godoc
// @Summary Start a pairing session
// @Tags Pairing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pairing/start [post]
func (h *PairingHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	status, err := h.service.Start(claims.UserID, claims.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Status godoc
// @Summary Read the pairing session status
// @Tags Pairing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pairing/status [get]
func (h *PairingHandler) Status(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, h.service.Status(claims.UserID), nil)
}

// Confirm godoc
// @Summary Confirm the scanned card and bind it
// @Tags Pairing
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /pairing/confirm [post]
func (h *PairingHandler) Confirm(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	cardID, err := h.service.Confirm(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"card_id": cardID}, nil)
}

// Cancel godoc
// @Summary Cancel the pairing session
// @Tags Pairing
// @Success 204
// @Router /pairing [delete]
func (h *PairingHandler) Cancel(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	h.service.Cancel(claims.UserID)
	response.NoContent(c)
}
