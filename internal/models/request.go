package models

import "time"

// RequestStatus is the lifecycle state of a leave/lateness request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// ApprovalAction is the decision recorded in the approval history.
type ApprovalAction string

const (
	ApprovalActionApprove ApprovalAction = "approve"
	ApprovalActionReject  ApprovalAction = "reject"
)

// AbsenceRequest is a leave/lateness request awaiting a decision.
type AbsenceRequest struct {
	ID          string        `db:"id" json:"id"`
	OrgID       string        `db:"org_id" json:"org_id"`
	PersonID    string        `db:"person_id" json:"person_id"`
	RequestType string        `db:"request_type" json:"request_type"`
	RequestDate time.Time     `db:"request_date" json:"request_date"`
	Reason      *string       `db:"reason" json:"reason,omitempty"`
	Status      RequestStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

// AttendanceStatusForRequestType maps a request type to the attendance status
// an approval imposes. Unrecognised types default to present.
func AttendanceStatusForRequestType(requestType string) AttendanceStatus {
	switch requestType {
	case "absence", "absent", "official_absence":
		return AttendanceStatusAbsent
	case "late", "official_late":
		return AttendanceStatusLate
	case "early_departure", "early_leave":
		return AttendanceStatusEarlyDeparture
	default:
		return AttendanceStatusPresent
	}
}

// RequestApproval is one immutable entry in a request's approval history.
type RequestApproval struct {
	ID         string         `db:"id" json:"id"`
	RequestID  string         `db:"request_id" json:"request_id"`
	ApproverID string         `db:"approver_id" json:"approver_id"`
	Action     ApprovalAction `db:"action" json:"action"`
	Comment    *string        `db:"comment" json:"comment,omitempty"`
	DecidedAt  time.Time      `db:"decided_at" json:"decided_at"`
}
