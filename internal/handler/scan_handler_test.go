package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/internal/service"
)

type pairingSlotStub struct {
	consumed bool
}

func (s pairingSlotStub) HandleScan(ctx context.Context, cardID string) (*models.PairingScanResult, bool, error) {
	if !s.consumed {
		return nil, false, nil
	}
	return &models.PairingScanResult{Accepted: true, CardID: cardID}, true, nil
}

type bindingResolverStub struct {
	binding *models.CardBinding
}

func (s bindingResolverStub) Resolve(ctx context.Context, cardID string) (*models.CardBinding, error) {
	return s.binding, nil
}

type scheduleProviderStub struct{}

func (scheduleProviderStub) ConfigFor(ctx context.Context, orgID string) models.ScheduleConfig {
	return models.ScheduleConfig{
		OrgID:                orgID,
		LateToleranceMinutes: 15,
		DayResetTime:         models.MustTimeOfDay("04:00"),
		SchoolStart:          models.MustTimeOfDay("09:00"),
		SchoolEnd:            models.MustTimeOfDay("17:50"),
	}
}

type reconcilerStub struct {
	result *service.ReconcileResult
}

func (s reconcilerStub) Apply(ctx context.Context, in service.ReconcileInput) (*service.ReconcileResult, error) {
	return s.result, nil
}

func newScanRouter(pairing pairingSlotStub, bindings bindingResolverStub, rec reconcilerStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewScanService(pairing, bindings, scheduleProviderStub{}, rec, nil, nil)
	h := NewScanHandler(svc)
	r := gin.New()
	r.POST("/scans/card", h.Card)
	r.POST("/scans/qr", h.QR)
	return r
}

func TestScanHandlerPairingBranch(t *testing.T) {
	r := newScanRouter(pairingSlotStub{consumed: true}, bindingResolverStub{}, reconcilerStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scans/card", strings.NewReader(`{"card_id":"card-9"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"pairing"`)
	assert.NotContains(t, w.Body.String(), `"attendance"`)
}

func TestScanHandlerAttendanceBranch(t *testing.T) {
	r := newScanRouter(
		pairingSlotStub{},
		bindingResolverStub{binding: &models.CardBinding{CardID: "card-9", PersonID: "person-1", OrgID: "org-1", CreatedAt: time.Now()}},
		reconcilerStub{result: &service.ReconcileResult{RecordID: "rec-1", Applied: true, Status: models.AttendanceStatusPresent}},
	)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scans/card", strings.NewReader(`{"card_id":"card-9"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"attendance"`)
	assert.Contains(t, w.Body.String(), `"person_id":"person-1"`)
}

func TestScanHandlerUnknownCard(t *testing.T) {
	r := newScanRouter(pairingSlotStub{}, bindingResolverStub{}, reconcilerStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scans/card", strings.NewReader(`{"card_id":"card-x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "UNKNOWN_CARD")
}

func TestScanHandlerRejectsEmptyPayload(t *testing.T) {
	r := newScanRouter(pairingSlotStub{}, bindingResolverStub{}, reconcilerStub{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scans/card", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanHandlerQR(t *testing.T) {
	r := newScanRouter(pairingSlotStub{}, bindingResolverStub{},
		reconcilerStub{result: &service.ReconcileResult{RecordID: "rec-2", Applied: true, Status: models.AttendanceStatusLate}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/scans/qr", strings.NewReader(`{"person_id":"person-2","org_id":"org-1"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"late"`)
}
