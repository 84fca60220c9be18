package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type scanPairingSlot interface {
	HandleScan(ctx context.Context, cardID string) (*models.PairingScanResult, bool, error)
}

type scanBindingResolver interface {
	Resolve(ctx context.Context, cardID string) (*models.CardBinding, error)
}

type scanScheduleProvider interface {
	ConfigFor(ctx context.Context, orgID string) models.ScheduleConfig
}

type scanReconciler interface {
	Apply(ctx context.Context, in ReconcileInput) (*ReconcileResult, error)
}

// ScanService routes every hardware scan to exactly one consumer: a live
// pairing session first, attendance recording otherwise.
type ScanService struct {
	pairing    scanPairingSlot
	bindings   scanBindingResolver
	schedule   scanScheduleProvider
	reconciler scanReconciler
	now        func() time.Time
	logger     *zap.Logger
	metrics    *MetricsService
}

// NewScanService constructs the router. metrics may be nil.
func NewScanService(pairing scanPairingSlot, bindings scanBindingResolver, schedule scanScheduleProvider, reconciler scanReconciler, metrics *MetricsService, logger *zap.Logger) *ScanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScanService{
		pairing:    pairing,
		bindings:   bindings,
		schedule:   schedule,
		reconciler: reconciler,
		now:        time.Now,
		logger:     logger,
		metrics:    metrics,
	}
}

// HandleCardScan resolves one card tap. The pairing slot gets first refusal;
// a scan it consumes never also marks attendance.
func (s *ScanService) HandleCardScan(ctx context.Context, cardID string) (*models.ScanResolution, error) {
	pairingResult, consumed, err := s.pairing.HandleScan(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if consumed {
		if s.metrics != nil {
			s.metrics.IncScan("pairing")
		}
		return &models.ScanResolution{
			Kind:    models.ScanOutcomePairing,
			Pairing: pairingResult,
		}, nil
	}

	binding, err := s.bindings.Resolve(ctx, cardID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "resolve card binding")
	}
	if binding == nil {
		if s.metrics != nil {
			s.metrics.IncScan("unknown_card")
		}
		s.logger.Warn("scan from unregistered card", zap.String("card_id", cardID))
		return nil, appErrors.ErrUnknownCard
	}

	outcome, err := s.recordAttendance(ctx, binding.PersonID, binding.OrgID)
	if err != nil {
		return nil, err
	}
	return &models.ScanResolution{
		Kind:       models.ScanOutcomeAttendance,
		Attendance: outcome,
	}, nil
}

// RecordQRScan marks attendance for a self-identified person, bypassing the
// card layer. QR scans never feed the pairing slot.
func (s *ScanService) RecordQRScan(ctx context.Context, personID, orgID string) (*models.AttendanceOutcome, error) {
	return s.recordAttendance(ctx, personID, orgID)
}

func (s *ScanService) recordAttendance(ctx context.Context, personID, orgID string) (*models.AttendanceOutcome, error) {
	eventTime := s.now()
	cfg := s.schedule.ConfigFor(ctx, orgID)
	resolution := ResolveLogicalTime(eventTime, cfg)

	checkIn := eventTime.UTC()
	result, err := s.reconciler.Apply(ctx, ReconcileInput{
		OrgID:       orgID,
		PersonID:    personID,
		LogicalDate: resolution.LogicalDate,
		Status:      resolution.Status,
		Writer:      models.WriterKindScan,
		CheckIn:     &checkIn,
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		if result.AlreadyRecorded {
			s.metrics.IncScan("duplicate")
		} else {
			s.metrics.IncScan(string(result.Status))
		}
	}
	s.logger.Info("attendance scan resolved",
		zap.String("person_id", personID),
		zap.Time("logical_date", resolution.LogicalDate),
		zap.String("status", string(result.Status)),
		zap.Bool("already_recorded", result.AlreadyRecorded))

	return &models.AttendanceOutcome{
		PersonID:        personID,
		LogicalDate:     resolution.LogicalDate,
		Status:          result.Status,
		PeriodName:      resolution.PeriodName,
		AlreadyRecorded: result.AlreadyRecorded,
		RecordID:        result.RecordID,
	}, nil
}
