package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-engine/internal/models"
)

type attendanceStoreStub struct {
	existing   *models.AttendanceRecord
	insertOK   bool
	inserted   *models.AttendanceRecord
	overridden *models.AttendanceRecord
	findErr    error
}

func (s *attendanceStoreStub) Find(ctx context.Context, personID string, logicalDate time.Time) (*models.AttendanceRecord, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.existing, nil
}

func (s *attendanceStoreStub) InsertIfAbsent(ctx context.Context, rec *models.AttendanceRecord) (bool, error) {
	if !s.insertOK {
		return false, nil
	}
	rec.ID = "rec-new"
	s.inserted = rec
	return true, nil
}

func (s *attendanceStoreStub) Override(ctx context.Context, rec *models.AttendanceRecord) error {
	s.overridden = rec
	return nil
}

func reconcileDate() time.Time {
	return time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
}

func scanProposal() ReconcileInput {
	return ReconcileInput{
		OrgID:       "org-1",
		PersonID:    "person-1",
		LogicalDate: reconcileDate(),
		Status:      models.AttendanceStatusPresent,
		Writer:      models.WriterKindScan,
	}
}

func existingRecord(writer models.WriterKind, status models.AttendanceStatus) *models.AttendanceRecord {
	return &models.AttendanceRecord{
		ID:          "rec-1",
		OrgID:       "org-1",
		PersonID:    "person-1",
		LogicalDate: reconcileDate(),
		Status:      status,
		WriterKind:  writer,
	}
}

func TestReconcilerInsertsFirstWrite(t *testing.T) {
	store := &attendanceStoreStub{insertOK: true}
	r := NewAttendanceReconciler(store, nil)

	result, err := r.Apply(context.Background(), scanProposal())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.False(t, result.AlreadyRecorded)
	assert.Equal(t, "rec-new", result.RecordID)
	require.NotNil(t, store.inserted)
	assert.Equal(t, models.WriterKindScan, store.inserted.WriterKind)
}

func TestReconcilerDuplicateScanIsIdempotent(t *testing.T) {
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindScan, models.AttendanceStatusLate)}
	r := NewAttendanceReconciler(store, nil)

	result, err := r.Apply(context.Background(), scanProposal())
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.AlreadyRecorded)
	assert.Equal(t, "rec-1", result.RecordID)
	assert.Equal(t, models.AttendanceStatusLate, result.Status)
	assert.Nil(t, store.overridden)
}

func TestReconcilerScanOverwritesBatch(t *testing.T) {
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindBatch, models.AttendanceStatusAutoClosed)}
	r := NewAttendanceReconciler(store, nil)

	result, err := r.Apply(context.Background(), scanProposal())
	require.NoError(t, err)
	assert.True(t, result.Applied)
	require.NotNil(t, store.overridden)
	assert.Equal(t, models.WriterKindScan, store.overridden.WriterKind)
	assert.Equal(t, models.AttendanceStatusPresent, store.overridden.Status)
}

func TestReconcilerScanYieldsToApproval(t *testing.T) {
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindApproval, models.AttendanceStatusAbsent)}
	r := NewAttendanceReconciler(store, nil)

	result, err := r.Apply(context.Background(), scanProposal())
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.AlreadyRecorded)
	assert.Equal(t, models.AttendanceStatusAbsent, result.Status)
	assert.Nil(t, store.overridden)
}

func TestReconcilerApprovalOverwritesScan(t *testing.T) {
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindScan, models.AttendanceStatusPresent)}
	r := NewAttendanceReconciler(store, nil)

	reason := "family emergency"
	in := scanProposal()
	in.Writer = models.WriterKindApproval
	in.Status = models.AttendanceStatusAbsent
	in.Reason = &reason

	result, err := r.Apply(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	require.NotNil(t, store.overridden)
	assert.Equal(t, models.WriterKindApproval, store.overridden.WriterKind)
	assert.Equal(t, models.AttendanceStatusAbsent, store.overridden.Status)
	assert.Equal(t, &reason, store.overridden.Reason)
}

func TestReconcilerApprovalOverwritesApproval(t *testing.T) {
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindApproval, models.AttendanceStatusAbsent)}
	r := NewAttendanceReconciler(store, nil)

	in := scanProposal()
	in.Writer = models.WriterKindApproval
	in.Status = models.AttendanceStatusLate

	result, err := r.Apply(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, result.Applied)
	assert.Equal(t, models.AttendanceStatusLate, store.overridden.Status)
}

func TestReconcilerBatchNeverOverwrites(t *testing.T) {
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindScan, models.AttendanceStatusPresent)}
	r := NewAttendanceReconciler(store, nil)

	in := scanProposal()
	in.Writer = models.WriterKindBatch
	in.Status = models.AttendanceStatusAutoClosed

	result, err := r.Apply(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.False(t, result.AlreadyRecorded)
	assert.Nil(t, store.overridden)
}

func TestReconcilerRejectsUnknownWriter(t *testing.T) {
	r := NewAttendanceReconciler(&attendanceStoreStub{}, nil)

	in := scanProposal()
	in.Writer = models.WriterKind("mystery")
	_, err := r.Apply(context.Background(), in)
	assert.Error(t, err)
}

type racingStoreStub struct {
	attendanceStoreStub
	winner *models.AttendanceRecord
	finds  int
}

func (s *racingStoreStub) Find(ctx context.Context, personID string, logicalDate time.Time) (*models.AttendanceRecord, error) {
	s.finds++
	if s.finds == 1 {
		return nil, nil
	}
	return s.winner, nil
}

func TestReconcilerLostInsertRaceArbitratesAgainstWinner(t *testing.T) {
	store := &racingStoreStub{winner: existingRecord(models.WriterKindScan, models.AttendanceStatusPresent)}
	r := NewAttendanceReconciler(store, nil)

	result, err := r.Apply(context.Background(), scanProposal())
	require.NoError(t, err)
	assert.False(t, result.Applied)
	assert.True(t, result.AlreadyRecorded)
	assert.Equal(t, 2, store.finds)
}
