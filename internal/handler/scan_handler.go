package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campuskit/attendance-engine/internal/service"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
	"github.com/campuskit/attendance-engine/pkg/response"
)

// ScanHandler receives scan events from reader devices.
type ScanHandler struct {
	service *service.ScanService
}

// NewScanHandler constructs a scan handler.
func NewScanHandler(svc *service.ScanService) *ScanHandler {
	return &ScanHandler{service: svc}
}

type cardScanRequest struct {
	CardID string `json:"card_id" binding:"required"`
}

type qrScanRequest struct {
	PersonID string `json:"person_id" binding:"required"`
	OrgID    string `json:"org_id" binding:"required"`
}

// Card godoc
// @Summary Resolve a card tap
// @Tags Scans
// @Accept json
// @Produce json
// @Param payload body cardScanRequest true "Card scan payload"
// @Success 200 {object} response.Envelope
// @Router /scans/card [post]
func (h *ScanHandler) Card(c *gin.Context) {
	var req cardScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resolution, err := h.service.HandleCardScan(c.Request.Context(), req.CardID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolution, nil)
}

// QR godoc
// @Summary Record a QR self-scan
// @Tags Scans
// @Accept json
// @Produce json
// @Param payload body qrScanRequest true "QR scan payload"
// @Success 200 {object} response.Envelope
// @Router /scans/qr [post]
func (h *ScanHandler) QR(c *gin.Context) {
	var req qrScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	outcome, err := h.service.RecordQRScan(c.Request.Context(), req.PersonID, req.OrgID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, outcome, nil)
}
