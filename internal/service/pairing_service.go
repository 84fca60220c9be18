package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/pkg/config"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type pairingBindingStore interface {
	Exists(ctx context.Context, cardID string) (bool, error)
	Bind(ctx context.Context, binding *models.CardBinding) error
}

type pairingSession struct {
	ownerID   string
	orgID     string
	state     models.PairingState
	cardID    string
	expiresAt time.Time
}

// PairingService owns the single card-pairing slot. One session may be live
// at a time across the whole deployment; expiry is lazy, checked on access
// rather than by a timer.
type PairingService struct {
	mu       sync.Mutex
	session  *pairingSession
	bindings pairingBindingStore
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
	metrics  *MetricsService
}

// NewPairingService constructs the service. metrics may be nil.
func NewPairingService(bindings pairingBindingStore, cfg config.PairingConfig, metrics *MetricsService, logger *zap.Logger) *PairingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PairingService{
		bindings: bindings,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
		metrics:  metrics,
	}
}

// live reports whether the current session exists and has not expired.
// Callers must hold s.mu.
func (s *PairingService) live(now time.Time) bool {
	return s.session != nil && now.Before(s.session.expiresAt)
}

// clear drops the session. Callers must hold s.mu.
func (s *PairingService) clear() {
	s.session = nil
	if s.metrics != nil {
		s.metrics.SetPairingSessionActive(false)
	}
}

// Start claims the pairing slot for the user. Re-starting one's own live
// session returns its current status unchanged; a slot held by someone else
// is a conflict.
func (s *PairingService) Start(userID, orgID string) (*models.PairingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.live(now) {
		if s.session.ownerID == userID {
			return s.statusLocked(), nil
		}
		if s.metrics != nil {
			s.metrics.IncPairingConflict()
		}
		return nil, appErrors.ErrConflict
	}

	s.session = &pairingSession{
		ownerID:   userID,
		orgID:     orgID,
		state:     models.PairingStateWaiting,
		expiresAt: now.Add(s.ttl),
	}
	if s.metrics != nil {
		s.metrics.SetPairingSessionActive(true)
	}
	s.logger.Info("pairing session started",
		zap.String("user_id", userID), zap.Time("expires_at", s.session.expiresAt))
	return s.statusLocked(), nil
}

// Status reports the slot as seen by the given user. Sessions owned by other
// users, or none at all, both read as idle.
func (s *PairingService) Status(userID string) *models.PairingStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live(s.now()) || s.session.ownerID != userID {
		return &models.PairingStatus{State: models.PairingStateIdle}
	}
	return s.statusLocked()
}

// statusLocked builds the owner's view. Callers must hold s.mu with a live
// session.
func (s *PairingService) statusLocked() *models.PairingStatus {
	status := &models.PairingStatus{State: s.session.state}
	expires := s.session.expiresAt
	status.ExpiresAt = &expires
	if s.session.state == models.PairingStateScanned {
		card := s.session.cardID
		status.PairedCardID = &card
	}
	return status
}

// HandleScan offers a hardware scan to the pairing slot. The second return
// reports whether the slot consumed the scan; false means the caller should
// route it as a normal attendance event.
//
// A scan of a card that is already bound is still consumed: it answers the
// waiting session with a rejection rather than silently marking attendance
// for whoever holds the card.
func (s *PairingService) HandleScan(ctx context.Context, cardID string) (*models.PairingScanResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live(s.now()) || s.session.state != models.PairingStateWaiting {
		return nil, false, nil
	}

	bound, err := s.bindings.Exists(ctx, cardID)
	if err != nil {
		return nil, true, appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "check card binding")
	}
	if bound {
		s.logger.Warn("pairing scan rejected, card already bound", zap.String("card_id", cardID))
		return &models.PairingScanResult{
			Accepted: false,
			CardID:   cardID,
			Message:  "card is already registered",
		}, true, nil
	}

	s.session.cardID = cardID
	s.session.state = models.PairingStateScanned
	s.logger.Info("pairing scan captured",
		zap.String("card_id", cardID), zap.String("user_id", s.session.ownerID))
	return &models.PairingScanResult{
		Accepted: true,
		CardID:   cardID,
		Message:  "card captured, awaiting confirmation",
	}, true, nil
}

// Confirm persists the captured card for the session owner and releases the
// slot. A failed write keeps the session alive so the owner can retry before
// expiry.
func (s *PairingService) Confirm(ctx context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.live(now) || s.session.ownerID != userID || s.session.state != models.PairingStateScanned {
		return "", appErrors.ErrInvalidSession
	}

	binding := &models.CardBinding{
		CardID:   s.session.cardID,
		PersonID: s.session.ownerID,
		OrgID:    s.session.orgID,
	}
	if err := s.bindings.Bind(ctx, binding); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrStoreFailure.Code, appErrors.ErrStoreFailure.Status, "persist card binding")
	}

	cardID := s.session.cardID
	s.clear()
	s.logger.Info("card bound", zap.String("card_id", cardID), zap.String("user_id", userID))
	return cardID, nil
}

// Cancel releases the slot if the user owns it. Cancelling a slot one does
// not own is a no-op.
func (s *PairingService) Cancel(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil && s.session.ownerID == userID {
		s.clear()
		s.logger.Info("pairing session cancelled", zap.String("user_id", userID))
	}
}
