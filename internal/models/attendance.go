package models

import "time"

// AttendanceStatus represents the per-day status of a person.
type AttendanceStatus string

const (
	AttendanceStatusPresent        AttendanceStatus = "present"
	AttendanceStatusLate           AttendanceStatus = "late"
	AttendanceStatusAbsent         AttendanceStatus = "absent"
	AttendanceStatusEarlyDeparture AttendanceStatus = "early_departure"
	AttendanceStatusAutoClosed     AttendanceStatus = "auto_closed"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusLate, AttendanceStatusAbsent,
		AttendanceStatusEarlyDeparture, AttendanceStatusAutoClosed:
		return true
	default:
		return false
	}
}

// WriterKind tags the provenance of an attendance write. Precedence between
// writers is decided by Rank, the single source of truth for conflict
// arbitration.
type WriterKind string

const (
	WriterKindBatch    WriterKind = "batch"
	WriterKindScan     WriterKind = "scan"
	WriterKindApproval WriterKind = "approval_override"
)

// Rank orders writer kinds: higher rank wins on conflict.
func (w WriterKind) Rank() int {
	switch w {
	case WriterKindApproval:
		return 2
	case WriterKindScan:
		return 1
	case WriterKindBatch:
		return 0
	default:
		return -1
	}
}

// Valid returns true when the writer kind is supported.
func (w WriterKind) Valid() bool {
	return w.Rank() >= 0
}

// AttendanceRecord is the authoritative per-person/per-day record. Exactly one
// row exists per (person_id, logical_date) pair.
type AttendanceRecord struct {
	ID          string           `db:"id" json:"id"`
	OrgID       string           `db:"org_id" json:"org_id"`
	PersonID    string           `db:"person_id" json:"person_id"`
	LogicalDate time.Time        `db:"logical_date" json:"logical_date"`
	Status      AttendanceStatus `db:"status" json:"status"`
	CheckIn     *time.Time       `db:"check_in" json:"check_in,omitempty"`
	CheckOut    *time.Time       `db:"check_out" json:"check_out,omitempty"`
	Reason      *string          `db:"reason" json:"reason,omitempty"`
	WriterKind  WriterKind       `db:"writer_kind" json:"writer_kind"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceFilter scopes record listings.
type AttendanceFilter struct {
	PersonID string
	DateFrom *time.Time
	DateTo   *time.Time
}

// MonthlySummary aggregates a person's month of attendance.
type MonthlySummary struct {
	Year               int                `json:"year"`
	Month              int                `json:"month"`
	TotalDays          int                `json:"total_days"`
	PresentDays        int                `json:"present_days"`
	AbsentDays         int                `json:"absent_days"`
	LateDays           int                `json:"late_days"`
	EarlyDepartureDays int                `json:"early_departure_days"`
	AttendanceRate     float64            `json:"attendance_rate"`
	Records            []AttendanceRecord `json:"records"`
}

// AbsenceDetailRow is one person in the per-day absence breakdown.
type AbsenceDetailRow struct {
	PersonID string           `db:"person_id" json:"person_id"`
	Status   AttendanceStatus `db:"status" json:"status"`
	Reason   *string          `db:"reason" json:"reason,omitempty"`
}

// AbsenceDetails groups a day's non-present records by category.
type AbsenceDetails struct {
	Absent         []AbsenceDetailRow `json:"absent"`
	Late           []AbsenceDetailRow `json:"late"`
	EarlyDeparture []AbsenceDetailRow `json:"early_departure"`
}
