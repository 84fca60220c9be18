package models

import (
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed as seconds since midnight. Keeping
// second precision matters: the lateness boundary is inclusive to the second.
type TimeOfDay int

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(raw string) (TimeOfDay, error) {
	var h, m, s int
	if _, err := fmt.Sscanf(raw, "%d:%d:%d", &h, &m, &s); err != nil {
		s = 0
		if _, err := fmt.Sscanf(raw, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid time of day %q", raw)
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("time of day %q out of range", raw)
	}
	return TimeOfDay(h*3600 + m*60 + s), nil
}

// MustTimeOfDay parses or panics; for fixed built-in values only.
func MustTimeOfDay(raw string) TimeOfDay {
	t, err := ParseTimeOfDay(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// TimeOfDayFrom extracts the time-of-day component of a timestamp.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*3600 + t.Minute()*60 + t.Second())
}

// AddMinutes shifts the time of day, clamped within the same day.
func (t TimeOfDay) AddMinutes(minutes int) TimeOfDay {
	v := int(t) + minutes*60
	if v < 0 {
		v = 0
	}
	if v > 24*3600-1 {
		v = 24*3600 - 1
	}
	return TimeOfDay(v)
}

// Minute truncates to whole minutes; period membership compares at minute
// granularity.
func (t TimeOfDay) Minute() int {
	return int(t) / 60
}

func (t TimeOfDay) String() string {
	v := int(t)
	return fmt.Sprintf("%02d:%02d", v/3600, v%3600/60)
}

// Period is one named slot in an organization's day.
type Period struct {
	Index int       `db:"idx" json:"index"`
	Name  string    `db:"name" json:"name"`
	Start TimeOfDay `db:"-" json:"start"`
	End   TimeOfDay `db:"-" json:"end"`
}

// Contains reports whether the time of day falls within the period,
// inclusive on both ends at minute granularity.
func (p Period) Contains(t TimeOfDay) bool {
	m := t.Minute()
	return m >= p.Start.Minute() && m <= p.End.Minute()
}

// ScheduleConfig is an immutable-per-read snapshot of an organization's
// schedule settings. Staleness is tolerated for one evaluation.
type ScheduleConfig struct {
	OrgID                string    `json:"org_id"`
	LateToleranceMinutes int       `json:"late_tolerance_minutes"`
	DayResetTime         TimeOfDay `json:"day_reset_time"`
	SchoolStart          TimeOfDay `json:"school_start"`
	SchoolEnd            TimeOfDay `json:"school_end"`
	Periods              []Period  `json:"periods"`
	Fallback             bool      `json:"fallback"`
}

// LateLimit is the inclusive present/late boundary.
func (c ScheduleConfig) LateLimit() TimeOfDay {
	return c.SchoolStart.AddMinutes(c.LateToleranceMinutes)
}

// OrganizationSettingsRow is the persisted settings shape.
type OrganizationSettingsRow struct {
	OrgID                string `db:"org_id"`
	LateToleranceMinutes int    `db:"late_tolerance_minutes"`
	DayResetTime         string `db:"day_reset_time"`
	SchoolStart          string `db:"school_start"`
	SchoolEnd            string `db:"school_end"`
}

// OrganizationPeriodRow is one persisted period entry.
type OrganizationPeriodRow struct {
	OrgID     string `db:"org_id"`
	Index     int    `db:"idx"`
	Name      string `db:"name"`
	StartTime string `db:"start_time"`
	EndTime   string `db:"end_time"`
}
