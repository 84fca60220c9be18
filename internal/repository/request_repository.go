package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-engine/internal/models"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

// DecideHook runs inside the decision transaction, after the history entry is
// appended and the status flipped. A non-nil error rolls everything back.
type DecideHook func(ctx context.Context, tx *sqlx.Tx, request *models.AbsenceRequest) error

// RequestRepository persists absence requests and their approval history.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Decide atomically appends the approval-history entry and flips the request
// status, then runs the hook within the same transaction. The guarded UPDATE
// makes a second decision on the same request fail with InvalidState instead
// of double-processing.
func (r *RequestRepository) Decide(ctx context.Context, requestID, approverID string, action models.ApprovalAction, comment *string, hook DecideHook) (*models.AbsenceRequest, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin decision tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const historyQuery = `INSERT INTO request_approvals (id, request_id, approver_id, action, comment, decided_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := tx.ExecContext(ctx, historyQuery,
		uuid.NewString(), requestID, approverID, action, comment, time.Now().UTC()); err != nil {
		return nil, fmt.Errorf("append approval history: %w", err)
	}

	status := models.RequestStatusRejected
	if action == models.ApprovalActionApprove {
		status = models.RequestStatusApproved
	}

	const updateQuery = `UPDATE absence_requests SET status = $1, updated_at = $2
WHERE id = $3 AND status = $4
RETURNING id, org_id, person_id, request_type, request_date, reason, status, created_at, updated_at`
	var request models.AbsenceRequest
	if err := tx.GetContext(ctx, &request, updateQuery, status, time.Now().UTC(), requestID, models.RequestStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return nil, r.classifyDecisionConflict(ctx, requestID)
		}
		return nil, fmt.Errorf("update request status: %w", err)
	}

	if hook != nil {
		if err := hook(ctx, tx, &request); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit decision tx: %w", err)
	}
	committed = true
	return &request, nil
}

func (r *RequestRepository) classifyDecisionConflict(ctx context.Context, requestID string) error {
	const query = `SELECT status FROM absence_requests WHERE id = $1`
	var status models.RequestStatus
	if err := r.db.GetContext(ctx, &status, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return fmt.Errorf("inspect request status: %w", err)
	}
	return appErrors.Clone(appErrors.ErrInvalidState, fmt.Sprintf("request already %s", status))
}

// History returns the approval history for a request, newest first.
func (r *RequestRepository) History(ctx context.Context, requestID string) ([]models.RequestApproval, error) {
	const query = `SELECT id, request_id, approver_id, action, comment, decided_at
FROM request_approvals WHERE request_id = $1 ORDER BY decided_at DESC`
	var rows []models.RequestApproval
	if err := r.db.SelectContext(ctx, &rows, query, requestID); err != nil {
		return nil, fmt.Errorf("list approval history: %w", err)
	}
	return rows, nil
}
