package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-engine/internal/models"
	"github.com/campuskit/attendance-engine/pkg/config"
	appErrors "github.com/campuskit/attendance-engine/pkg/errors"
)

type bindingStoreStub struct {
	exists    bool
	existsErr error
	bindErr   error
	bound     *models.CardBinding
}

func (s *bindingStoreStub) Exists(ctx context.Context, cardID string) (bool, error) {
	return s.exists, s.existsErr
}

func (s *bindingStoreStub) Bind(ctx context.Context, binding *models.CardBinding) error {
	if s.bindErr != nil {
		return s.bindErr
	}
	s.bound = binding
	return nil
}

func newTestPairing(store *bindingStoreStub) (*PairingService, *time.Time) {
	svc := NewPairingService(store, config.PairingConfig{SessionTTL: 30 * time.Second}, nil, nil)
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, &now
}

func TestPairingSingleSlot(t *testing.T) {
	svc, _ := newTestPairing(&bindingStoreStub{})

	status, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, models.PairingStateWaiting, status.State)

	_, err = svc.Start("user-2", "org-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))

	// Restarting one's own session is not a conflict.
	status, err = svc.Start("user-1", "org-1")
	require.NoError(t, err)
	assert.Equal(t, models.PairingStateWaiting, status.State)
}

func TestPairingExpiryFreesSlot(t *testing.T) {
	svc, now := newTestPairing(&bindingStoreStub{})

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)

	*now = now.Add(31 * time.Second)

	assert.Equal(t, models.PairingStateIdle, svc.Status("user-1").State)

	status, err := svc.Start("user-2", "org-1")
	require.NoError(t, err)
	assert.Equal(t, models.PairingStateWaiting, status.State)
}

func TestPairingHandleScanConsumesWhenWaiting(t *testing.T) {
	svc, _ := newTestPairing(&bindingStoreStub{})

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)

	result, consumed, err := svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.True(t, result.Accepted)
	assert.Equal(t, "card-9", result.CardID)
	assert.Equal(t, models.PairingStateScanned, svc.Status("user-1").State)

	// A second scan arrives after capture; the slot is no longer waiting.
	_, consumed, err = svc.HandleScan(context.Background(), "card-10")
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestPairingHandleScanIgnoredWhenIdle(t *testing.T) {
	svc, _ := newTestPairing(&bindingStoreStub{})

	_, consumed, err := svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestPairingHandleScanIgnoredWhenExpired(t *testing.T) {
	svc, now := newTestPairing(&bindingStoreStub{})

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)
	*now = now.Add(time.Minute)

	_, consumed, err := svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.False(t, consumed)
}

func TestPairingRejectsBoundCardButConsumesScan(t *testing.T) {
	svc, _ := newTestPairing(&bindingStoreStub{exists: true})

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)

	result, consumed, err := svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)
	assert.True(t, consumed)
	assert.False(t, result.Accepted)
	// Session stays waiting for a different card.
	assert.Equal(t, models.PairingStateWaiting, svc.Status("user-1").State)
}

func TestPairingConfirmBindsAndReleases(t *testing.T) {
	store := &bindingStoreStub{}
	svc, _ := newTestPairing(store)

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)
	_, _, err = svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)

	cardID, err := svc.Confirm(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-9", cardID)
	require.NotNil(t, store.bound)
	assert.Equal(t, "user-1", store.bound.PersonID)
	assert.Equal(t, "org-1", store.bound.OrgID)
	assert.Equal(t, models.PairingStateIdle, svc.Status("user-1").State)
}

func TestPairingConfirmInvalidSession(t *testing.T) {
	svc, now := newTestPairing(&bindingStoreStub{})

	// No session at all.
	_, err := svc.Confirm(context.Background(), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSession))

	// Waiting but nothing scanned yet.
	_, err = svc.Start("user-1", "org-1")
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSession))

	// Someone else's session.
	_, _, err = svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)
	_, err = svc.Confirm(context.Background(), "user-2")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSession))

	// Expired session.
	*now = now.Add(time.Minute)
	_, err = svc.Confirm(context.Background(), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSession))
}

func TestPairingConfirmKeepsSessionOnStoreFailure(t *testing.T) {
	store := &bindingStoreStub{bindErr: errors.New("connection refused")}
	svc, _ := newTestPairing(store)

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)
	_, _, err = svc.HandleScan(context.Background(), "card-9")
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), "user-1")
	assert.True(t, appErrors.Is(err, appErrors.ErrStoreFailure))
	assert.Equal(t, models.PairingStateScanned, svc.Status("user-1").State)

	// Store recovers; retry succeeds.
	store.bindErr = nil
	cardID, err := svc.Confirm(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "card-9", cardID)
}

func TestPairingCancel(t *testing.T) {
	svc, _ := newTestPairing(&bindingStoreStub{})

	_, err := svc.Start("user-1", "org-1")
	require.NoError(t, err)

	// Cancelling someone else's session is a no-op.
	svc.Cancel("user-2")
	assert.Equal(t, models.PairingStateWaiting, svc.Status("user-1").State)

	svc.Cancel("user-1")
	assert.Equal(t, models.PairingStateIdle, svc.Status("user-1").State)

	_, err = svc.Start("user-2", "org-1")
	assert.NoError(t, err)
}
