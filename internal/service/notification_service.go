package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/pkg/config"
	"github.com/campuskit/attendance-engine/pkg/jobs"
)

type notificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
}

// NotificationService persists notifications through a background worker
// pool. Delivery is best effort: enqueue failures are logged, never returned,
// so notification trouble cannot fail the operation that triggered it.
type NotificationService struct {
	store  notificationStore
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service and its queue. Call Start
// before notifying.
func NewNotificationService(store notificationStore, cfg config.NotificationsConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{store: store, logger: logger}
	svc.queue = jobs.NewQueue("notifications", svc.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the worker pool.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains the worker pool.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues a notification for the person.
func (s *NotificationService) Notify(personID, nType, title, body string, priority models.NotificationPriority) {
	n := models.Notification{
		ID:       uuid.NewString(),
		PersonID: personID,
		Type:     nType,
		Title:    title,
		Body:     body,
		Priority: priority,
	}
	if err := s.queue.Enqueue(jobs.Job{ID: n.ID, Type: nType, Payload: n}); err != nil {
		s.logger.Warn("notification dropped",
			zap.String("person_id", personID), zap.String("type", nType), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(models.Notification)
	if !ok {
		return fmt.Errorf("unexpected notification payload %T", job.Payload)
	}
	return s.store.Insert(ctx, &n)
}
