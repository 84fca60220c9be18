package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuskit/attendance-engine/pkg/config"
)

type closeoutStoreStub struct {
	closed map[string]int64
	errFor string
	calls  []string
}

func (s *closeoutStoreStub) CloseOpen(ctx context.Context, orgID string, logicalDate time.Time, closedAt time.Time) (int64, error) {
	s.calls = append(s.calls, orgID)
	if orgID == s.errFor {
		return 0, errors.New("deadlock detected")
	}
	return s.closed[orgID], nil
}

type orgListerStub struct {
	ids []string
}

func (s orgListerStub) ListOrganizationIDs(ctx context.Context) ([]string, error) {
	return s.ids, nil
}

func newTestCloseout(t *testing.T, store *closeoutStoreStub, orgs orgListerStub) *CloseoutService {
	svc, err := NewCloseoutService(store, orgs, scheduleProviderStub{cfg: testScheduleConfig()},
		config.CloseoutConfig{TriggerTime: "18:00", CheckInterval: time.Minute}, nil, nil)
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 10, 18, 5, 0, 0, time.UTC) }
	return svc
}

func TestCloseoutRunForOrganization(t *testing.T) {
	store := &closeoutStoreStub{closed: map[string]int64{"org-1": 7}}
	svc := newTestCloseout(t, store, orgListerStub{})

	date := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	result, err := svc.RunForOrganization(context.Background(), "org-1", date)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.Closed)
	assert.Equal(t, date, result.LogicalDate)
}

func TestCloseoutRunAllContinuesPastFailures(t *testing.T) {
	store := &closeoutStoreStub{
		closed: map[string]int64{"org-1": 3, "org-3": 2},
		errFor: "org-2",
	}
	svc := newTestCloseout(t, store, orgListerStub{ids: []string{"org-1", "org-2", "org-3"}})

	results, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"org-1", "org-2", "org-3"}, store.calls)
	require.Len(t, results, 2)
	assert.Equal(t, "org-1", results[0].OrgID)
	assert.Equal(t, "org-3", results[1].OrgID)
}

func TestCloseoutRunAllUsesCurrentLogicalDate(t *testing.T) {
	store := &closeoutStoreStub{closed: map[string]int64{"org-1": 1}}
	svc := newTestCloseout(t, store, orgListerStub{ids: []string{"org-1"}})

	results, err := svc.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), results[0].LogicalDate)
}
