package usecase_test

import (
	"context"
	"testing"
	"time"

	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/testutil"
	"secure-auth/internal/auth/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevoke_OwnSession(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	issued := h.login(testutil.ClientFixture{}.Default())

	require.NoError(t, h.comps.Revocation.Revoke(ctx, issued.SessionID, h.user.ID, ""))

	stored := h.stored(issued.SessionID)
	assert.False(t, stored.IsActive)
	assert.Equal(t, model.RevokeReasonManual, stored.RevokedReason)
	require.Len(t, h.observer.revocations, 1)
	assert.True(t, h.observer.revocations[0].Affects(issued.SessionID))
}

func TestRevoke_OtherUsersSessionIsNotFound(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	victim := testutil.NewSessionFixture().ActiveSession("victim-1", "victim", h.clock.Now())
	require.NoError(t, h.sessions.Create(ctx, victim))

	err := h.comps.Revocation.Revoke(ctx, "victim-1", h.user.ID, "")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
	assert.True(t, h.stored("victim-1").IsActive)

	err = h.comps.Revocation.Revoke(ctx, "does-not-exist", h.user.ID, "")
	assert.ErrorIs(t, err, usecase.ErrSessionNotFound)
}

func TestRevoke_IsIdempotent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	issued := h.login(testutil.ClientFixture{}.Default())

	require.NoError(t, h.comps.Revocation.Revoke(ctx, issued.SessionID, h.user.ID, model.RevokeReasonLogout))
	revokedAt := *h.stored(issued.SessionID).RevokedAt

	h.clock.Advance(time.Hour)
	require.NoError(t, h.comps.Revocation.Revoke(ctx, issued.SessionID, h.user.ID, ""))

	stored := h.stored(issued.SessionID)
	assert.Equal(t, model.RevokeReasonLogout, stored.RevokedReason)
	assert.True(t, stored.RevokedAt.Equal(revokedAt))
	assert.Len(t, h.observer.revocations, 1)
}

func TestRevoke_StoreFailure(t *testing.T) {
	h := newHarness()
	issued := h.login(testutil.ClientFixture{}.Default())
	deps := h.deps()
	deps.Sessions = &flakySessions{SessionRepository: h.sessions, failByID: true}
	manager, err := usecase.NewRevocationManager(deps)
	require.NoError(t, err)

	err = manager.Revoke(context.Background(), issued.SessionID, h.user.ID, "")
	assert.ErrorIs(t, err, usecase.ErrStoreUnavailable)
	assert.True(t, h.stored(issued.SessionID).IsActive)
}

func TestRevokeAllOthers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	var ids []string
	for i := 0; i < 4; i++ {
		ids = append(ids, h.login(testutil.ClientFixture{}.Default()).SessionID)
	}
	other := testutil.NewSessionFixture().ActiveSession("other-1", "other-user", h.clock.Now())
	require.NoError(t, h.sessions.Create(ctx, other))

	current := ids[2]
	count, err := h.comps.Revocation.RevokeAllOthers(ctx, h.user.ID, current)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	for _, id := range ids {
		stored := h.stored(id)
		if id == current {
			assert.True(t, stored.IsActive)
			continue
		}
		assert.False(t, stored.IsActive, id)
		assert.Equal(t, model.RevokeReasonLogoutAll, stored.RevokedReason)
	}
	assert.True(t, h.stored("other-1").IsActive)

	require.Len(t, h.observer.revocations, 1)
	rev := h.observer.revocations[0]
	assert.Equal(t, current, rev.AllExcept)
	assert.EqualValues(t, 3, rev.Count)
	assert.False(t, rev.Affects(current))
	assert.True(t, rev.Affects(ids[0]))

	count, err = h.comps.Revocation.RevokeAllOthers(ctx, h.user.ID, current)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, h.observer.revocations, 1)
}

func TestRevokeAllOthers_StoreFailure(t *testing.T) {
	h := newHarness()
	deps := h.deps()
	deps.Sessions = &flakySessions{SessionRepository: h.sessions, failBulk: true}
	manager, err := usecase.NewRevocationManager(deps)
	require.NoError(t, err)

	_, err = manager.RevokeAllOthers(context.Background(), h.user.ID, "current")
	assert.ErrorIs(t, err, usecase.ErrStoreUnavailable)
}

func TestLogout(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	issued := h.login(testutil.ClientFixture{}.Default())

	auth, err := h.comps.Validator.Validate(ctx, issued.Token, testutil.ClientFixture{}.Default())
	require.NoError(t, err)

	require.NoError(t, h.comps.Revocation.Logout(ctx, auth.Session))
	assert.False(t, auth.Session.IsActive)
	assert.Equal(t, model.RevokeReasonLogout, h.stored(issued.SessionID).RevokedReason)

	_, err = h.comps.Validator.Validate(ctx, issued.Token, testutil.ClientFixture{}.Default())
	assert.ErrorIs(t, err, usecase.ErrSessionExpiredOrInvalid)

	assert.ErrorIs(t, h.comps.Revocation.Logout(ctx, nil), usecase.ErrSessionNotFound)
}

func TestSessionQuery_ListActiveMarksCurrent(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	first := h.login(testutil.ClientFixture{}.Default())
	second := h.login(testutil.ClientFixture{}.Default())
	third := h.login(testutil.ClientFixture{}.Default())
	require.NoError(t, h.comps.Revocation.Revoke(ctx, third.SessionID, h.user.ID, ""))

	views, err := h.comps.Query.ListActive(ctx, h.user.ID, first.SessionID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	current := map[string]bool{}
	for _, v := range views {
		current[v.SessionID] = v.IsCurrent
	}
	assert.True(t, current[first.SessionID])
	assert.False(t, current[second.SessionID])
}

func TestSessionQuery_ListHistoryClampsLimit(t *testing.T) {
	h := newHarness(config.WithHistoryLimit(3), config.WithMaxConcurrent(10))
	ctx := context.Background()
	var last string
	for i := 0; i < 5; i++ {
		last = h.login(testutil.ClientFixture{}.Default()).SessionID
	}

	views, err := h.comps.Query.ListHistory(ctx, h.user.ID, last, 100)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, last, views[0].SessionID)
	assert.True(t, views[0].IsCurrent)

	views, err = h.comps.Query.ListHistory(ctx, h.user.ID, last, 0)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, err = h.comps.Query.ListHistory(ctx, h.user.ID, last, 2)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestSessionUsecase_DelegatesToComponents(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	issued := h.login(testutil.ClientFixture{}.Default())

	var uc usecase.SessionUsecaseInterface = h.comps.Usecase()

	auth, err := uc.Validate(ctx, issued.Token, testutil.ClientFixture{}.Default())
	require.NoError(t, err)
	assert.Equal(t, issued.SessionID, auth.Session.SessionID)

	views, err := uc.ListActive(ctx, h.user.ID, issued.SessionID)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	require.NoError(t, uc.Revoke(ctx, issued.SessionID, h.user.ID, ""))
	history, err := uc.ListHistory(ctx, h.user.ID, issued.SessionID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].IsActive)
}
