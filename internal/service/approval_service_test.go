package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/internal/repository"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type requestStoreStub struct {
	request *models.AbsenceRequest
	err     error
	history []models.RequestApproval

	decidedAction models.ApprovalAction
	hookRan       bool
	hookErr       error
}

func (s *requestStoreStub) Decide(ctx context.Context, requestID, approverID string, action models.ApprovalAction, comment *string, hook repository.DecideHook) (*models.AbsenceRequest, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.decidedAction = action
	if hook != nil {
		s.hookRan = true
		if err := hook(ctx, nil, s.request); err != nil {
			s.hookErr = err
			return nil, err
		}
	}
	return s.request, nil
}

func (s *requestStoreStub) History(ctx context.Context, requestID string) ([]models.RequestApproval, error) {
	return s.history, nil
}

type notifierStub struct {
	notified []string
}

func (n *notifierStub) Notify(personID, nType, title, body string, priority models.NotificationPriority) {
	n.notified = append(n.notified, nType)
}

func pendingRequest(requestType string) *models.AbsenceRequest {
	reason := "medical appointment"
	return &models.AbsenceRequest{
		ID:          "6f1b3a84-0b5e-4ad9-9a0c-3f6f2a2b9d01",
		OrgID:       "org-1",
		PersonID:    "person-1",
		RequestType: requestType,
		RequestDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		Reason:      &reason,
		Status:      models.RequestStatusApproved,
	}
}

func newTestApproval(requests *requestStoreStub, store *attendanceStoreStub, notifier *notifierStub) *ApprovalService {
	reconciler := NewAttendanceReconciler(store, nil)
	return NewApprovalService(requests, reconciler,
		func(tx *sqlx.Tx) AttendanceTxStore { return store },
		notifier, nil)
}

func TestApproveOverridesAttendanceInHook(t *testing.T) {
	requests := &requestStoreStub{request: pendingRequest("official_absence")}
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindScan, models.AttendanceStatusPresent)}
	notifier := &notifierStub{}
	svc := newTestApproval(requests, store, notifier)

	request, err := svc.Approve(context.Background(), DecisionInput{
		RequestID:  requests.request.ID,
		ApproverID: "admin-1",
	})
	require.NoError(t, err)
	assert.True(t, requests.hookRan)
	assert.Equal(t, models.ApprovalActionApprove, requests.decidedAction)

	require.NotNil(t, store.overridden)
	assert.Equal(t, models.WriterKindApproval, store.overridden.WriterKind)
	assert.Equal(t, models.AttendanceStatusAbsent, store.overridden.Status)
	assert.Equal(t, request.Reason, store.overridden.Reason)

	assert.Equal(t, []string{"request_approved"}, notifier.notified)
}

func TestApproveCreatesRecordWhenNoneExists(t *testing.T) {
	requests := &requestStoreStub{request: pendingRequest("early_leave")}
	store := &attendanceStoreStub{insertOK: true}
	svc := newTestApproval(requests, store, &notifierStub{})

	_, err := svc.Approve(context.Background(), DecisionInput{
		RequestID:  requests.request.ID,
		ApproverID: "admin-1",
	})
	require.NoError(t, err)
	require.NotNil(t, store.inserted)
	assert.Equal(t, models.AttendanceStatusEarlyDeparture, store.inserted.Status)
	assert.Equal(t, models.WriterKindApproval, store.inserted.WriterKind)
}

func TestApprovePropagatesDecisionConflict(t *testing.T) {
	requests := &requestStoreStub{err: appErrors.Clone(appErrors.ErrInvalidState, "request already approved")}
	svc := newTestApproval(requests, &attendanceStoreStub{}, &notifierStub{})

	_, err := svc.Approve(context.Background(), DecisionInput{
		RequestID:  "6f1b3a84-0b5e-4ad9-9a0c-3f6f2a2b9d01",
		ApproverID: "admin-1",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidState))
}

func TestApproveValidatesInput(t *testing.T) {
	svc := newTestApproval(&requestStoreStub{}, &attendanceStoreStub{}, &notifierStub{})

	_, err := svc.Approve(context.Background(), DecisionInput{RequestID: "not-a-uuid", ApproverID: "admin-1"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestRejectLeavesAttendanceAlone(t *testing.T) {
	request := pendingRequest("late")
	request.Status = models.RequestStatusRejected
	requests := &requestStoreStub{request: request}
	store := &attendanceStoreStub{existing: existingRecord(models.WriterKindScan, models.AttendanceStatusPresent)}
	notifier := &notifierStub{}
	svc := newTestApproval(requests, store, notifier)

	_, err := svc.Reject(context.Background(), DecisionInput{
		RequestID:  request.ID,
		ApproverID: "admin-1",
	})
	require.NoError(t, err)
	assert.False(t, requests.hookRan)
	assert.Nil(t, store.overridden)
	assert.Equal(t, []string{"request_rejected"}, notifier.notified)
}
