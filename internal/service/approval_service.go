package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/internal/repository"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type approvalRequestStore interface {
	Decide(ctx context.Context, requestID, approverID string, action models.ApprovalAction, comment *string, hook repository.DecideHook) (*models.AbsenceRequest, error)
	History(ctx context.Context, requestID string) ([]models.RequestApproval, error)
}

type approvalNotifier interface {
	Notify(personID, nType, title, body string, priority models.NotificationPriority)
}

// ApprovalService decides absence requests. An approval and its attendance
// override commit or roll back together; notifications ride outside the
// transaction and never affect the decision.
type ApprovalService struct {
	requests     approvalRequestStore
	reconciler   *AttendanceReconciler
	attendanceTx func(tx *sqlx.Tx) AttendanceTxStore
	notifier     approvalNotifier
	validate     *validator.Validate
	logger       *zap.Logger
}

// NewApprovalService constructs the service. attendanceTx binds the
// attendance store into the decision transaction; notifier may be nil.
func NewApprovalService(requests approvalRequestStore, reconciler *AttendanceReconciler, attendanceTx func(tx *sqlx.Tx) AttendanceTxStore, notifier approvalNotifier, logger *zap.Logger) *ApprovalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalService{
		requests:     requests,
		reconciler:   reconciler,
		attendanceTx: attendanceTx,
		notifier:     notifier,
		validate:     validator.New(),
		logger:       logger,
	}
}

// DecisionInput identifies a request decision.
type DecisionInput struct {
	RequestID  string `validate:"required,uuid"`
	ApproverID string `validate:"required"`
	Comment    *string
}

// Approve flips the request to approved and writes the attendance override in
// the same transaction. A request that is already decided fails with an
// invalid-state error; nothing is double-processed.
func (s *ApprovalService) Approve(ctx context.Context, in DecisionInput) (*models.AbsenceRequest, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision input")
	}

	hook := func(ctx context.Context, tx *sqlx.Tx, request *models.AbsenceRequest) error {
		status := models.AttendanceStatusForRequestType(request.RequestType)
		result, err := s.reconciler.ApplyTo(ctx, s.attendanceTx(tx), ReconcileInput{
			OrgID:       request.OrgID,
			PersonID:    request.PersonID,
			LogicalDate: dateOnly(request.RequestDate),
			Status:      status,
			Writer:      models.WriterKindApproval,
			Reason:      request.Reason,
		})
		if err != nil {
			return err
		}
		if !result.Applied {
			return fmt.Errorf("approval override not applied for request %s", request.ID)
		}
		return nil
	}

	request, err := s.requests.Decide(ctx, in.RequestID, in.ApproverID, models.ApprovalActionApprove, in.Comment, hook)
	if err != nil {
		return nil, err
	}

	s.logger.Info("request approved",
		zap.String("request_id", request.ID),
		zap.String("person_id", request.PersonID),
		zap.String("approver_id", in.ApproverID))
	if s.notifier != nil {
		s.notifier.Notify(request.PersonID, "request_approved",
			"Request approved",
			fmt.Sprintf("Your %s request for %s was approved.", request.RequestType, request.RequestDate.Format("2006-01-02")),
			models.NotificationPriorityMedium)
	}
	return request, nil
}

// Reject flips the request to rejected. Attendance is untouched.
func (s *ApprovalService) Reject(ctx context.Context, in DecisionInput) (*models.AbsenceRequest, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision input")
	}

	request, err := s.requests.Decide(ctx, in.RequestID, in.ApproverID, models.ApprovalActionReject, in.Comment, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Info("request rejected",
		zap.String("request_id", request.ID),
		zap.String("approver_id", in.ApproverID))
	if s.notifier != nil {
		s.notifier.Notify(request.PersonID, "request_rejected",
			"Request rejected",
			fmt.Sprintf("Your %s request for %s was rejected.", request.RequestType, request.RequestDate.Format("2006-01-02")),
			models.NotificationPriorityHigh)
	}
	return request, nil
}

// History returns a request's approval trail, newest first.
func (s *ApprovalService) History(ctx context.Context, requestID string) ([]models.RequestApproval, error) {
	return s.requests.History(ctx, requestID)
}
