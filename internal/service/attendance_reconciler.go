package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

// AttendanceTxStore is the slice of the attendance store the reconciler
// needs. It is satisfied by the attendance repository both on the pooled
// connection and scoped to a transaction.
type AttendanceTxStore interface {
	Find(ctx context.Context, personID string, logicalDate time.Time) (*models.AttendanceRecord, error)
	InsertIfAbsent(ctx context.Context, rec *models.AttendanceRecord) (bool, error)
	Override(ctx context.Context, rec *models.AttendanceRecord) error
}

// ReconcileInput is a proposed attendance write from one of the writers.
type ReconcileInput struct {
	OrgID       string
	PersonID    string
	LogicalDate time.Time
	Status      models.AttendanceStatus
	Writer      models.WriterKind
	Reason      *string
	CheckIn     *time.Time
}

// ReconcileResult reports what the reconciler did with a proposal.
type ReconcileResult struct {
	RecordID        string
	Applied         bool
	AlreadyRecorded bool
	Status          models.AttendanceStatus
}

// AttendanceReconciler is the single gatekeeper for attendance writes.
// Every writer proposes through it; writer rank decides conflicts, so
// precedence lives in exactly one place.
type AttendanceReconciler struct {
	store  AttendanceTxStore
	logger *zap.Logger
}

// NewAttendanceReconciler constructs the reconciler over its default store.
func NewAttendanceReconciler(store AttendanceTxStore, logger *zap.Logger) *AttendanceReconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceReconciler{store: store, logger: logger}
}

// Apply arbitrates a proposal against the default store.
func (r *AttendanceReconciler) Apply(ctx context.Context, in ReconcileInput) (*ReconcileResult, error) {
	return r.ApplyTo(ctx, r.store, in)
}

// ApplyTo arbitrates a proposal against an explicit store, letting callers
// run the write inside their own transaction.
//
// No existing record: the proposal is inserted. An existing record survives
// unless the proposer outranks its writer; a scan that loses keeps the day
// idempotent and reports AlreadyRecorded instead of erroring.
func (r *AttendanceReconciler) ApplyTo(ctx context.Context, store AttendanceTxStore, in ReconcileInput) (*ReconcileResult, error) {
	if !in.Writer.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown writer kind %q", in.Writer))
	}
	if !in.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown attendance status %q", in.Status))
	}

	existing, err := store.Find(ctx, in.PersonID, in.LogicalDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "read attendance record")
	}

	if existing == nil {
		rec := &models.AttendanceRecord{
			OrgID:       in.OrgID,
			PersonID:    in.PersonID,
			LogicalDate: in.LogicalDate,
			Status:      in.Status,
			CheckIn:     in.CheckIn,
			Reason:      in.Reason,
			WriterKind:  in.Writer,
		}
		inserted, err := store.InsertIfAbsent(ctx, rec)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "insert attendance record")
		}
		if inserted {
			return &ReconcileResult{RecordID: rec.ID, Applied: true, Status: rec.Status}, nil
		}
		// Lost the insert race; re-read and arbitrate against the winner.
		existing, err = store.Find(ctx, in.PersonID, in.LogicalDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "re-read attendance record")
		}
		if existing == nil {
			return nil, appErrors.Clone(appErrors.ErrStoreFailure, "attendance record vanished after conflict")
		}
	}

	if !outranks(in.Writer, existing.WriterKind) {
		r.logger.Debug("attendance proposal yielded to existing record",
			zap.String("person_id", in.PersonID),
			zap.Time("logical_date", in.LogicalDate),
			zap.String("proposed_writer", string(in.Writer)),
			zap.String("existing_writer", string(existing.WriterKind)))
		return &ReconcileResult{
			RecordID:        existing.ID,
			Applied:         false,
			AlreadyRecorded: in.Writer == models.WriterKindScan,
			Status:          existing.Status,
		}, nil
	}

	updated := *existing
	updated.Status = in.Status
	updated.Reason = in.Reason
	updated.WriterKind = in.Writer
	if err := store.Override(ctx, &updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "override attendance record")
	}
	return &ReconcileResult{RecordID: updated.ID, Applied: true, Status: updated.Status}, nil
}

// outranks reports whether a proposal may overwrite an existing record.
// Approval overrides always win, including over prior approvals; everything
// else needs a strictly higher rank, so scans never clobber scans and batch
// writes never clobber anything.
func outranks(proposed, existing models.WriterKind) bool {
	if proposed == models.WriterKindApproval {
		return true
	}
	return proposed.Rank() > existing.Rank()
}
