package models

import "time"

// ScanOutcomeKind discriminates what consumed an incoming scan. Exactly one
// branch of ScanResolution is populated; the router cannot fire both.
type ScanOutcomeKind string

const (
	ScanOutcomePairing    ScanOutcomeKind = "pairing"
	ScanOutcomeAttendance ScanOutcomeKind = "attendance"
)

// ScanResolution is the tagged union returned for every hardware scan.
type ScanResolution struct {
	Kind       ScanOutcomeKind    `json:"kind"`
	Pairing    *PairingScanResult `json:"pairing,omitempty"`
	Attendance *AttendanceOutcome `json:"attendance,omitempty"`
}

// AttendanceOutcome describes the effect of a scan on the day's record.
type AttendanceOutcome struct {
	PersonID        string           `json:"person_id"`
	LogicalDate     time.Time        `json:"logical_date"`
	Status          AttendanceStatus `json:"status"`
	PeriodName      *string          `json:"period_name,omitempty"`
	AlreadyRecorded bool             `json:"already_recorded"`
	RecordID        string           `json:"record_id,omitempty"`
}
