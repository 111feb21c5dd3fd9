// Package repotest holds behavior checks shared by every SessionRepository implementation.
package repotest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"
	"secure-auth/internal/auth/testutil"

	"github.com/stretchr/testify/suite"
)

// SessionRepositorySuite runs the same assertions against any store. NewRepo must
// return an empty repository on every call.
type SessionRepositorySuite struct {
	suite.Suite
	NewRepo func() repository.SessionRepository

	repo     repository.SessionRepository
	fixtures *testutil.SessionFixture
	base     time.Time
	ctx      context.Context
}

func (s *SessionRepositorySuite) SetupTest() {
	s.repo = s.NewRepo()
	s.fixtures = testutil.NewSessionFixture()
	s.base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	s.ctx = context.Background()
}

func (s *SessionRepositorySuite) create(sessions ...*model.Session) {
	for _, session := range sessions {
		s.Require().NoError(s.repo.Create(s.ctx, session))
	}
}

func (s *SessionRepositorySuite) TestCreate_DuplicateID() {
	session := s.fixtures.ActiveSession("dup", "u1", s.base)
	s.create(session)

	err := s.repo.Create(s.ctx, s.fixtures.ActiveSession("dup", "u2", s.base))
	s.ErrorIs(err, model.ErrSessionExists)
}

func (s *SessionRepositorySuite) TestFindActive_ScopedToOwner() {
	lat, lon := 45.76, 4.83
	session := s.fixtures.ActiveSession("s1", "u1", s.base)
	session.Location = &model.Location{Country: "France", City: "Lyon", Latitude: &lat, Longitude: &lon}
	s.create(session)

	found, err := s.repo.FindActive(s.ctx, "s1", "u1")
	s.Require().NoError(err)
	s.Equal("u1", found.UserID)
	s.Equal(testutil.PublicIP, found.IPAddress)
	s.Equal("Chrome 1", found.DeviceInfo.Browser)
	s.Require().NotNil(found.Location)
	s.Equal("Lyon", found.Location.City)
	s.InDelta(lat, *found.Location.Latitude, 1e-9)
	s.True(found.LoginTime.Equal(s.base))

	_, err = s.repo.FindActive(s.ctx, "s1", "u2")
	s.ErrorIs(err, model.ErrSessionNotFound)

	_, err = s.repo.FindActive(s.ctx, "missing", "u1")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *SessionRepositorySuite) TestFindActive_IgnoresInactive() {
	s.create(s.fixtures.ActiveSession("s1", "u1", s.base))
	ok, err := s.repo.Deactivate(s.ctx, "s1", model.RevokeReasonLogout, s.base.Add(time.Minute))
	s.Require().NoError(err)
	s.True(ok)

	_, err = s.repo.FindActive(s.ctx, "s1", "u1")
	s.ErrorIs(err, model.ErrSessionNotFound)

	found, err := s.repo.FindByID(s.ctx, "s1")
	s.Require().NoError(err)
	s.False(found.IsActive)
	s.Equal(model.RevokeReasonLogout, found.RevokedReason)
	s.Require().NotNil(found.RevokedAt)
	s.True(found.RevokedAt.Equal(s.base.Add(time.Minute)))
}

func (s *SessionRepositorySuite) TestDeactivate_IsMonotonic() {
	s.create(s.fixtures.ActiveSession("s1", "u1", s.base))

	ok, err := s.repo.Deactivate(s.ctx, "s1", model.RevokeReasonExpired, s.base.Add(time.Minute))
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.repo.Deactivate(s.ctx, "s1", model.RevokeReasonManual, s.base.Add(time.Hour))
	s.Require().NoError(err)
	s.False(ok)

	found, err := s.repo.FindByID(s.ctx, "s1")
	s.Require().NoError(err)
	s.Equal(model.RevokeReasonExpired, found.RevokedReason)
	s.True(found.RevokedAt.Equal(s.base.Add(time.Minute)))

	ok, err = s.repo.Deactivate(s.ctx, "missing", model.RevokeReasonManual, s.base)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *SessionRepositorySuite) TestDeactivate_ConcurrentSingleWinner() {
	s.create(s.fixtures.ActiveSession("s1", "u1", s.base))

	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := s.repo.Deactivate(s.ctx, "s1", fmt.Sprintf("reason-%d", i), s.base)
			if err == nil && ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()
	s.Equal(int32(1), wins)
}

func (s *SessionRepositorySuite) TestCountAndOldest() {
	s.create(s.fixtures.SessionsForUser("u1", 3, s.base)...)
	s.create(s.fixtures.ActiveSession("other", "u2", s.base.Add(-time.Hour)))

	n, err := s.repo.CountActive(s.ctx, "u1")
	s.Require().NoError(err)
	s.EqualValues(3, n)

	oldest, err := s.repo.FindOldestActive(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("u1-s1", oldest.SessionID)

	_, err = s.repo.Deactivate(s.ctx, "u1-s1", model.RevokeReasonMaxSessions, s.base)
	s.Require().NoError(err)

	oldest, err = s.repo.FindOldestActive(s.ctx, "u1")
	s.Require().NoError(err)
	s.Equal("u1-s2", oldest.SessionID)

	_, err = s.repo.FindOldestActive(s.ctx, "nobody")
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *SessionRepositorySuite) TestListActive_ByLastActivity() {
	s.create(s.fixtures.SessionsForUser("u1", 3, s.base)...)
	s.Require().NoError(s.repo.TouchActivity(s.ctx, "u1-s1", s.base.Add(time.Hour)))
	_, err := s.repo.Deactivate(s.ctx, "u1-s2", model.RevokeReasonLogout, s.base)
	s.Require().NoError(err)

	list, err := s.repo.ListActive(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("u1-s1", list[0].SessionID)
	s.Equal("u1-s3", list[1].SessionID)
}

func (s *SessionRepositorySuite) TestListHistory_IncludesInactiveAndLimits() {
	s.create(s.fixtures.SessionsForUser("u1", 4, s.base)...)
	_, err := s.repo.Deactivate(s.ctx, "u1-s4", model.RevokeReasonLogout, s.base)
	s.Require().NoError(err)

	list, err := s.repo.ListHistory(s.ctx, "u1", 3)
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("u1-s4", list[0].SessionID)
	s.False(list[0].IsActive)
	s.Equal("u1-s3", list[1].SessionID)
	s.Equal("u1-s2", list[2].SessionID)
}

func (s *SessionRepositorySuite) TestTouchActivity_InactiveFails() {
	s.create(s.fixtures.ActiveSession("s1", "u1", s.base))
	_, err := s.repo.Deactivate(s.ctx, "s1", model.RevokeReasonLogout, s.base)
	s.Require().NoError(err)

	err = s.repo.TouchActivity(s.ctx, "s1", s.base.Add(time.Hour))
	s.ErrorIs(err, model.ErrSessionNotFound)

	err = s.repo.TouchActivity(s.ctx, "missing", s.base)
	s.ErrorIs(err, model.ErrSessionNotFound)
}

func (s *SessionRepositorySuite) TestDeactivateAllExcept() {
	s.create(s.fixtures.SessionsForUser("u1", 4, s.base)...)
	s.create(s.fixtures.ActiveSession("other", "u2", s.base))
	_, err := s.repo.Deactivate(s.ctx, "u1-s2", model.RevokeReasonLogout, s.base)
	s.Require().NoError(err)

	n, err := s.repo.DeactivateAllExcept(s.ctx, "u1", "u1-s3", model.RevokeReasonLogoutAll, s.base.Add(time.Minute))
	s.Require().NoError(err)
	s.EqualValues(2, n)

	list, err := s.repo.ListActive(s.ctx, "u1")
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal("u1-s3", list[0].SessionID)

	prior, err := s.repo.FindByID(s.ctx, "u1-s2")
	s.Require().NoError(err)
	s.Equal(model.RevokeReasonLogout, prior.RevokedReason)

	revoked, err := s.repo.FindByID(s.ctx, "u1-s1")
	s.Require().NoError(err)
	s.Equal(model.RevokeReasonLogoutAll, revoked.RevokedReason)

	_, err = s.repo.FindActive(s.ctx, "other", "u2")
	s.NoError(err)
}

func (s *SessionRepositorySuite) TestReturnedRecordsAreCopies() {
	s.create(s.fixtures.ActiveSession("s1", "u1", s.base))

	found, err := s.repo.FindByID(s.ctx, "s1")
	s.Require().NoError(err)
	found.IsActive = false
	found.IPAddress = "tampered"

	again, err := s.repo.FindActive(s.ctx, "s1", "u1")
	s.Require().NoError(err)
	s.Equal(testutil.PublicIP, again.IPAddress)
}

func (s *SessionRepositorySuite) TestPing() {
	s.NoError(s.repo.Ping(s.ctx))
}
