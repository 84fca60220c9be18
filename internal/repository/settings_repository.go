package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-engine/internal/models"
)

// SettingsRepository reads organization schedule settings owned by the
// settings collaborator.
type SettingsRepository struct {
	db *sqlx.DB
}

// NewSettingsRepository constructs the repository.
func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetScheduleConfig loads the settings snapshot and its ordered period list.
// sql.ErrNoRows is returned when the organization has no stored settings.
func (r *SettingsRepository) GetScheduleConfig(ctx context.Context, orgID string) (*models.ScheduleConfig, error) {
	const settingsQuery = `SELECT org_id, late_tolerance_minutes, day_reset_time, school_start, school_end
FROM organization_settings WHERE org_id = $1`
	var row models.OrganizationSettingsRow
	if err := r.db.GetContext(ctx, &row, settingsQuery, orgID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("load organization settings: %w", err)
	}

	const periodsQuery = `SELECT org_id, idx, name, start_time, end_time
FROM organization_periods WHERE org_id = $1 ORDER BY idx ASC`
	var periodRows []models.OrganizationPeriodRow
	if err := r.db.SelectContext(ctx, &periodRows, periodsQuery, orgID); err != nil {
		return nil, fmt.Errorf("load organization periods: %w", err)
	}

	cfg, err := buildScheduleConfig(row, periodRows)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListOrganizationIDs returns every organization with stored settings; used by
// the end-of-day sweep.
func (r *SettingsRepository) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT org_id FROM organization_settings ORDER BY org_id`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	return ids, nil
}

func buildScheduleConfig(row models.OrganizationSettingsRow, periodRows []models.OrganizationPeriodRow) (*models.ScheduleConfig, error) {
	reset, err := models.ParseTimeOfDay(row.DayResetTime)
	if err != nil {
		return nil, fmt.Errorf("organization %s day_reset_time: %w", row.OrgID, err)
	}
	start, err := models.ParseTimeOfDay(row.SchoolStart)
	if err != nil {
		return nil, fmt.Errorf("organization %s school_start: %w", row.OrgID, err)
	}
	end, err := models.ParseTimeOfDay(row.SchoolEnd)
	if err != nil {
		return nil, fmt.Errorf("organization %s school_end: %w", row.OrgID, err)
	}

	periods := make([]models.Period, 0, len(periodRows))
	for _, p := range periodRows {
		ps, err := models.ParseTimeOfDay(p.StartTime)
		if err != nil {
			return nil, fmt.Errorf("organization %s period %d start: %w", row.OrgID, p.Index, err)
		}
		pe, err := models.ParseTimeOfDay(p.EndTime)
		if err != nil {
			return nil, fmt.Errorf("organization %s period %d end: %w", row.OrgID, p.Index, err)
		}
		periods = append(periods, models.Period{Index: p.Index, Name: p.Name, Start: ps, End: pe})
	}

	return &models.ScheduleConfig{
		OrgID:                row.OrgID,
		LateToleranceMinutes: row.LateToleranceMinutes,
		DayResetTime:         reset,
		SchoolStart:          start,
		SchoolEnd:            end,
		Periods:              periods,
	}, nil
}
