package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campuskit/attendance-engine/internal/models"
)

// AttendanceRepository persists per-person/per-day attendance records. The
// (person_id, logical_date) unique key is enforced by the store so concurrent
// first-scans of the day are race-safe without engine-level locking.
type AttendanceRepository struct {
	ext sqlx.ExtContext
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{ext: db}
}

// WithTx returns a copy of the repository scoped to the given transaction.
func (r *AttendanceRepository) WithTx(tx *sqlx.Tx) *AttendanceRepository {
	return &AttendanceRepository{ext: tx}
}

// Find returns the record for the key, or nil when none exists.
func (r *AttendanceRepository) Find(ctx context.Context, personID string, logicalDate time.Time) (*models.AttendanceRecord, error) {
	const query = `SELECT id, org_id, person_id, logical_date, status, check_in, check_out, reason, writer_kind, created_at, updated_at
FROM attendance_records WHERE person_id = $1 AND logical_date = $2`
	var rec models.AttendanceRecord
	if err := sqlx.GetContext(ctx, r.ext, &rec, query, personID, logicalDate); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &rec, nil
}

// InsertIfAbsent writes a new record unless one already exists for the key.
// Returns false without error when the key was already taken.
func (r *AttendanceRepository) InsertIfAbsent(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	const query = `INSERT INTO attendance_records (id, org_id, person_id, logical_date, status, check_in, check_out, reason, writer_kind, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (person_id, logical_date) DO NOTHING RETURNING id`
	var insertedID string
	err := sqlx.GetContext(ctx, r.ext, &insertedID, query,
		rec.ID, rec.OrgID, rec.PersonID, rec.LogicalDate, rec.Status,
		rec.CheckIn, rec.CheckOut, rec.Reason, rec.WriterKind, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("insert attendance record: %w", err)
	}
	return true, nil
}

// Override rewrites status, reason and provenance of an existing record.
func (r *AttendanceRepository) Override(ctx context.Context, rec *models.AttendanceRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	const query = `UPDATE attendance_records
SET status = $1, reason = COALESCE($2, reason), writer_kind = $3, updated_at = $4
WHERE person_id = $5 AND logical_date = $6`
	if _, err := r.ext.ExecContext(ctx, query,
		rec.Status, rec.Reason, rec.WriterKind, rec.UpdatedAt, rec.PersonID, rec.LogicalDate); err != nil {
		return fmt.Errorf("override attendance record: %w", err)
	}
	return nil
}

// List returns records for a person within an optional date range, newest
// first.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	where := []string{"person_id = $1"}
	args := []interface{}{filter.PersonID}
	if filter.DateFrom != nil {
		where = append(where, fmt.Sprintf("logical_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		where = append(where, fmt.Sprintf("logical_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	query := fmt.Sprintf(`SELECT id, org_id, person_id, logical_date, status, check_in, check_out, reason, writer_kind, created_at, updated_at
FROM attendance_records WHERE %s ORDER BY logical_date DESC`, strings.Join(where, " AND "))
	var rows []models.AttendanceRecord
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return rows, nil
}

// AbsenceDetails returns the day's non-present rows.
func (r *AttendanceRepository) AbsenceDetails(ctx context.Context, orgID string, logicalDate time.Time) ([]models.AbsenceDetailRow, error) {
	const query = `SELECT person_id, status, reason
FROM attendance_records
WHERE org_id = $1 AND logical_date = $2 AND status IN ('absent', 'late', 'early_departure')
ORDER BY person_id`
	var rows []models.AbsenceDetailRow
	if err := sqlx.SelectContext(ctx, r.ext, &rows, query, orgID, logicalDate); err != nil {
		return nil, fmt.Errorf("absence details: %w", err)
	}
	return rows, nil
}

// CloseOpen finalises every record for the logical date that is still present
// or late without a checkout. Approval-sourced records are excluded so the
// batch stays subordinate to administrative decisions by construction.
func (r *AttendanceRepository) CloseOpen(ctx context.Context, orgID string, logicalDate time.Time, closedAt time.Time) (int64, error) {
	const query = `UPDATE attendance_records
SET status = $1, writer_kind = $2, check_out = $3, updated_at = $3
WHERE org_id = $4 AND logical_date = $5
  AND check_out IS NULL
  AND status IN ('present', 'late')
  AND writer_kind <> $6`
	result, err := r.ext.ExecContext(ctx, query,
		models.AttendanceStatusAutoClosed, models.WriterKindBatch, closedAt.UTC(),
		orgID, logicalDate, models.WriterKindApproval)
	if err != nil {
		return 0, fmt.Errorf("close open attendance records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close open attendance records: %w", err)
	}
	return affected, nil
}
