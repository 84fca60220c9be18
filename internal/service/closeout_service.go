package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/pkg/config"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type closeoutAttendanceStore interface {
	CloseOpen(ctx context.Context, orgID string, logicalDate time.Time, closedAt time.Time) (int64, error)
}

type closeoutOrgLister interface {
	ListOrganizationIDs(ctx context.Context) ([]string, error)
}

// CloseoutResult summarises one organization's end-of-day sweep.
type CloseoutResult struct {
	OrgID       string    `json:"org_id"`
	LogicalDate time.Time `json:"logical_date"`
	Closed      int64     `json:"closed"`
}

// CloseoutService finalises still-open attendance records at end of day. The
// sweep is a batch writer: its store predicate skips approval-sourced rows,
// so it can never undo an administrative decision.
type CloseoutService struct {
	store    closeoutAttendanceStore
	orgs     closeoutOrgLister
	schedule scanScheduleProvider

	trigger  models.TimeOfDay
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *MetricsService

	mu      sync.Mutex
	lastRun time.Time
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewCloseoutService constructs the sweep. metrics may be nil.
func NewCloseoutService(store closeoutAttendanceStore, orgs closeoutOrgLister, schedule scanScheduleProvider, cfg config.CloseoutConfig, metrics *MetricsService, logger *zap.Logger) (*CloseoutService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	trigger, err := models.ParseTimeOfDay(cfg.TriggerTime)
	if err != nil {
		return nil, fmt.Errorf("closeout trigger time: %w", err)
	}
	interval := cfg.CheckInterval
	if interval <= 0 {
		interval = time.Minute
	}
	return &CloseoutService{
		store:    store,
		orgs:     orgs,
		schedule: schedule,
		trigger:  trigger,
		interval: interval,
		now:      time.Now,
		logger:   logger,
		metrics:  metrics,
	}, nil
}

// RunForOrganization sweeps one organization for the given logical date. The
// sweep is idempotent: a second run finds nothing left to close.
func (s *CloseoutService) RunForOrganization(ctx context.Context, orgID string, logicalDate time.Time) (*CloseoutResult, error) {
	closed, err := s.store.CloseOpen(ctx, orgID, logicalDate, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "close open attendance records")
	}
	if s.metrics != nil {
		s.metrics.AddCloseoutClosed(closed)
	}
	s.logger.Info("end-of-day closeout",
		zap.String("org_id", orgID),
		zap.Time("logical_date", logicalDate),
		zap.Int64("closed", closed))
	return &CloseoutResult{OrgID: orgID, LogicalDate: logicalDate, Closed: closed}, nil
}

// RunAll sweeps every known organization for its current logical date. A
// failing organization is logged and skipped; the rest still close.
func (s *CloseoutService) RunAll(ctx context.Context) ([]CloseoutResult, error) {
	orgIDs, err := s.orgs.ListOrganizationIDs(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "list organizations")
	}

	results := make([]CloseoutResult, 0, len(orgIDs))
	for _, orgID := range orgIDs {
		cfg := s.schedule.ConfigFor(ctx, orgID)
		logicalDate := ResolveLogicalTime(s.now(), cfg).LogicalDate
		result, err := s.RunForOrganization(ctx, orgID, logicalDate)
		if err != nil {
			s.logger.Error("closeout failed for organization", zap.String("org_id", orgID), zap.Error(err))
			continue
		}
		results = append(results, *result)
	}
	return results, nil
}

// Start launches the scheduler goroutine. Every check interval it fires
// RunAll once per calendar day after the trigger time has passed.
func (s *CloseoutService) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.tick(runCtx)
			}
		}
	}()
	s.logger.Info("closeout scheduler started",
		zap.String("trigger", s.trigger.String()), zap.Duration("interval", s.interval))
}

// Stop halts the scheduler and waits for it to exit.
func (s *CloseoutService) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *CloseoutService) tick(ctx context.Context) {
	now := s.now()
	if models.TimeOfDayFrom(now) < s.trigger {
		return
	}

	s.mu.Lock()
	today := dateOnly(now)
	if s.lastRun.Equal(today) {
		s.mu.Unlock()
		return
	}
	s.lastRun = today
	s.mu.Unlock()

	if _, err := s.RunAll(ctx); err != nil {
		s.logger.Error("scheduled closeout run failed", zap.Error(err))
	}
}
