package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/pkg/config"
)

// fallbackPeriods keeps classification available when the settings
// collaborator cannot supply data. Degraded mode, not a failure.
var fallbackPeriods = []models.Period{
	{Index: 1, Name: "period 1", Start: models.MustTimeOfDay("09:00"), End: models.MustTimeOfDay("10:30")},
	{Index: 2, Name: "period 2", Start: models.MustTimeOfDay("10:40"), End: models.MustTimeOfDay("12:10")},
	{Index: 3, Name: "period 3", Start: models.MustTimeOfDay("13:00"), End: models.MustTimeOfDay("14:30")},
	{Index: 4, Name: "period 4", Start: models.MustTimeOfDay("14:40"), End: models.MustTimeOfDay("16:10")},
	{Index: 5, Name: "period 5", Start: models.MustTimeOfDay("16:20"), End: models.MustTimeOfDay("17:50")},
}

type scheduleSettingsStore interface {
	GetScheduleConfig(ctx context.Context, orgID string) (*models.ScheduleConfig, error)
}

// ScheduleService supplies per-organization schedule snapshots and hosts the
// logical-time resolution rules.
type ScheduleService struct {
	settings scheduleSettingsStore
	cache    *redis.Client
	cacheTTL time.Duration
	defaults models.ScheduleConfig
	logger   *zap.Logger
}

// NewScheduleService constructs the service. cache may be nil; the service
// then always reads through to the settings store.
func NewScheduleService(settings scheduleSettingsStore, cache *redis.Client, cfg config.AttendanceConfig, logger *zap.Logger) (*ScheduleService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reset, err := models.ParseTimeOfDay(cfg.DayResetTime)
	if err != nil {
		return nil, fmt.Errorf("attendance day reset time: %w", err)
	}
	start, err := models.ParseTimeOfDay(cfg.SchoolStart)
	if err != nil {
		return nil, fmt.Errorf("attendance school start: %w", err)
	}
	end, err := models.ParseTimeOfDay(cfg.SchoolEnd)
	if err != nil {
		return nil, fmt.Errorf("attendance school end: %w", err)
	}
	defaults := models.ScheduleConfig{
		LateToleranceMinutes: cfg.LateToleranceMinutes,
		DayResetTime:         reset,
		SchoolStart:          start,
		SchoolEnd:            end,
		Periods:              fallbackPeriods,
		Fallback:             true,
	}
	return &ScheduleService{
		settings: settings,
		cache:    cache,
		cacheTTL: cfg.ConfigCacheTTL,
		defaults: defaults,
		logger:   logger,
	}, nil
}

// ConfigFor returns the organization's schedule snapshot. It never fails:
// settings-store outages degrade to the built-in fallback configuration, and
// a cached snapshot may be up to one cache TTL stale.
func (s *ScheduleService) ConfigFor(ctx context.Context, orgID string) models.ScheduleConfig {
	if cached := s.fromCache(ctx, orgID); cached != nil {
		return *cached
	}

	cfg, err := s.settings.GetScheduleConfig(ctx, orgID)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("schedule settings unavailable, using fallback",
				zap.String("org_id", orgID), zap.Error(err))
		}
		fallback := s.defaults
		fallback.OrgID = orgID
		return fallback
	}
	if len(cfg.Periods) == 0 {
		cfg.Periods = fallbackPeriods
	}

	s.toCache(ctx, orgID, *cfg)
	return *cfg
}

func (s *ScheduleService) fromCache(ctx context.Context, orgID string) *models.ScheduleConfig {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, scheduleCacheKey(orgID)).Result()
	if err != nil {
		return nil
	}
	var cfg models.ScheduleConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil
	}
	return &cfg
}

func (s *ScheduleService) toCache(ctx context.Context, orgID string, cfg models.ScheduleConfig) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, scheduleCacheKey(orgID), raw, s.cacheTTL).Err(); err != nil {
		s.logger.Debug("schedule cache write failed", zap.String("org_id", orgID), zap.Error(err))
	}
}

func scheduleCacheKey(orgID string) string {
	return "schedule:config:" + orgID
}

// TimeResolution is the result of attributing an event to a logical day.
type TimeResolution struct {
	LogicalDate time.Time
	PeriodName  *string
	LateLimit   models.TimeOfDay
	Status      models.AttendanceStatus
}

// ResolveLogicalTime attributes an event timestamp to a logical calendar day
// and classifies it against the school-wide lateness gate.
//
// Events earlier than the day reset time belong to the previous logical day,
// so a 00:30 tap counts toward the school day that started the evening
// before. Lateness is judged on wall-clock time of day against
// schoolStart + tolerance, inclusive at the boundary; the matched period is
// informational only.
func ResolveLogicalTime(eventTime time.Time, cfg models.ScheduleConfig) TimeResolution {
	tod := models.TimeOfDayFrom(eventTime)

	logicalDate := dateOnly(eventTime)
	if tod < cfg.DayResetTime {
		logicalDate = logicalDate.AddDate(0, 0, -1)
	}

	var periodName *string
	for _, period := range cfg.Periods {
		if period.Contains(tod) {
			name := period.Name
			periodName = &name
			break
		}
	}

	lateLimit := cfg.LateLimit()
	status := models.AttendanceStatusPresent
	if tod > lateLimit {
		status = models.AttendanceStatusLate
	}

	return TimeResolution{
		LogicalDate: logicalDate,
		PeriodName:  periodName,
		LateLimit:   lateLimit,
		Status:      status,
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
