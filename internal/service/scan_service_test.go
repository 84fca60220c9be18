package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-engine/internal/models"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type pairingSlotStub struct {
	result   *models.PairingScanResult
	consumed bool
}

func (s pairingSlotStub) HandleScan(ctx context.Context, cardID string) (*models.PairingScanResult, bool, error) {
	return s.result, s.consumed, nil
}

type bindingResolverStub struct {
	binding *models.CardBinding
}

func (s bindingResolverStub) Resolve(ctx context.Context, cardID string) (*models.CardBinding, error) {
	return s.binding, nil
}

type scheduleProviderStub struct {
	cfg models.ScheduleConfig
}

func (s scheduleProviderStub) ConfigFor(ctx context.Context, orgID string) models.ScheduleConfig {
	return s.cfg
}

type reconcilerStub struct {
	result *ReconcileResult
	input  *ReconcileInput
	calls  int
}

func (s *reconcilerStub) Apply(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	s.calls++
	s.input = &in
	return s.result, nil
}

func newTestScanService(pairing pairingSlotStub, bindings bindingResolverStub, rec *reconcilerStub) *ScanService {
	svc := NewScanService(pairing, bindings, scheduleProviderStub{cfg: testScheduleConfig()}, rec, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 9, 10, 0, 0, time.UTC) }
	return svc
}

func TestScanRoutedToPairingNeverMarksAttendance(t *testing.T) {
	rec := &reconcilerStub{}
	svc := newTestScanService(
		pairingSlotStub{result: &models.PairingScanResult{Accepted: true, CardID: "card-9"}, consumed: true},
		bindingResolverStub{},
		rec,
	)

	resolution, err := svc.HandleCardScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.Equal(t, models.ScanOutcomePairing, resolution.Kind)
	require.NotNil(t, resolution.Pairing)
	assert.Nil(t, resolution.Attendance)
	assert.Equal(t, 0, rec.calls)
}

func TestScanUnknownCard(t *testing.T) {
	rec := &reconcilerStub{}
	svc := newTestScanService(pairingSlotStub{}, bindingResolverStub{binding: nil}, rec)

	_, err := svc.HandleCardScan(context.Background(), "card-unknown")
	assert.True(t, appErrors.Is(err, appErrors.ErrUnknownCard))
	assert.Equal(t, 0, rec.calls)
}

func TestScanMarksAttendanceForBoundCard(t *testing.T) {
	rec := &reconcilerStub{result: &ReconcileResult{RecordID: "rec-1", Applied: true, Status: models.AttendanceStatusPresent}}
	svc := newTestScanService(
		pairingSlotStub{},
		bindingResolverStub{binding: &models.CardBinding{CardID: "card-9", PersonID: "person-1", OrgID: "org-1"}},
		rec,
	)

	resolution, err := svc.HandleCardScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.Equal(t, models.ScanOutcomeAttendance, resolution.Kind)
	require.NotNil(t, resolution.Attendance)
	assert.Nil(t, resolution.Pairing)
	assert.Equal(t, "person-1", resolution.Attendance.PersonID)
	assert.Equal(t, models.AttendanceStatusPresent, resolution.Attendance.Status)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), resolution.Attendance.LogicalDate)

	require.NotNil(t, rec.input)
	assert.Equal(t, models.WriterKindScan, rec.input.Writer)
	require.NotNil(t, rec.input.CheckIn)
}

func TestScanReportsDuplicate(t *testing.T) {
	rec := &reconcilerStub{result: &ReconcileResult{RecordID: "rec-1", AlreadyRecorded: true, Status: models.AttendanceStatusLate}}
	svc := newTestScanService(
		pairingSlotStub{},
		bindingResolverStub{binding: &models.CardBinding{CardID: "card-9", PersonID: "person-1", OrgID: "org-1"}},
		rec,
	)

	resolution, err := svc.HandleCardScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.True(t, resolution.Attendance.AlreadyRecorded)
	assert.Equal(t, models.AttendanceStatusLate, resolution.Attendance.Status)
}

func TestQRScanBypassesCardLayer(t *testing.T) {
	rec := &reconcilerStub{result: &ReconcileResult{RecordID: "rec-1", Applied: true, Status: models.AttendanceStatusPresent}}
	svc := newTestScanService(pairingSlotStub{consumed: true}, bindingResolverStub{}, rec)

	outcome, err := svc.RecordQRScan(context.Background(), "person-2", "org-1")
	require.NoError(t, err)
	assert.Equal(t, "person-2", outcome.PersonID)
	require.NotNil(t, rec.input)
	assert.Equal(t, "person-2", rec.input.PersonID)
	assert.Equal(t, models.WriterKindScan, rec.input.Writer)
}
