package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/testutil"
	"secure-auth/internal/auth/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type SessionValidatorTestSuite struct {
	suite.Suite
	h       *harness
	clients testutil.ClientFixture
	ctx     context.Context
}

func (s *SessionValidatorTestSuite) SetupTest() {
	s.h = newHarness()
	s.ctx = context.Background()
}

func (s *SessionValidatorTestSuite) validator(flaky *flakySessions, opts ...config.PolicyOption) *usecase.SessionValidator {
	deps := s.h.deps(opts...)
	if flaky != nil {
		deps.Sessions = flaky
	}
	v, err := usecase.NewSessionValidator(deps)
	s.Require().NoError(err)
	return v
}

func (s *SessionValidatorTestSuite) TestValidate_Success() {
	issued := s.h.login(s.clients.Default())
	later := s.h.clock.Advance(10 * time.Minute)

	auth, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Default())
	s.Require().NoError(err)
	s.Equal(s.h.user.ID, auth.User.ID)
	s.Equal(issued.SessionID, auth.Session.SessionID)
	s.True(auth.Session.LastActivity.Equal(later))

	s.True(s.h.stored(issued.SessionID).LastActivity.Equal(later))
	s.Equal(usecase.OutcomeOK, s.h.observer.lastOutcome())
}

func (s *SessionValidatorTestSuite) TestValidate_NoToken() {
	_, err := s.h.comps.Validator.Validate(s.ctx, "", s.clients.Default())
	s.ErrorIs(err, usecase.ErrNoToken)
	s.ErrorIs(err, usecase.ErrUnauthenticated)
	s.Equal(usecase.OutcomeUnauthenticated, s.h.observer.lastOutcome())
}

func (s *SessionValidatorTestSuite) TestValidate_GarbageToken() {
	_, err := s.h.comps.Validator.Validate(s.ctx, "not-a-jwt", s.clients.Default())
	s.ErrorIs(err, usecase.ErrTokenFailed)
	s.NotErrorIs(err, usecase.ErrNoToken)
}

func (s *SessionValidatorTestSuite) TestValidate_TokenForUnknownSession() {
	token, err := s.h.tokens.GenerateToken(s.h.user.ID, "never-stored")
	s.Require().NoError(err)

	_, err = s.h.comps.Validator.Validate(s.ctx, token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrSessionExpiredOrInvalid)
	s.Equal(usecase.OutcomeInvalid, s.h.observer.lastOutcome())
}

func (s *SessionValidatorTestSuite) TestValidate_TokenForAnotherUsersSession() {
	issued := s.h.login(s.clients.Default())
	token, err := s.h.tokens.GenerateToken("someone-else", issued.SessionID)
	s.Require().NoError(err)

	_, err = s.h.comps.Validator.Validate(s.ctx, token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrSessionExpiredOrInvalid)
}

func (s *SessionValidatorTestSuite) TestValidate_RevokedSession() {
	issued := s.h.login(s.clients.Default())
	s.Require().NoError(s.h.comps.Revocation.Revoke(s.ctx, issued.SessionID, s.h.user.ID, ""))

	_, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrSessionExpiredOrInvalid)
}

func (s *SessionValidatorTestSuite) TestValidate_ExpiredSessionIsDeactivated() {
	issued := s.h.login(s.clients.Default())
	s.h.clock.Advance(7*24*time.Hour + time.Second)

	_, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrSessionExpired)
	s.Equal(usecase.OutcomeExpired, s.h.observer.lastOutcome())

	stored := s.h.stored(issued.SessionID)
	s.False(stored.IsActive)
	s.Equal(model.RevokeReasonExpired, stored.RevokedReason)

	_, err = s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrSessionExpiredOrInvalid)
}

func (s *SessionValidatorTestSuite) TestValidate_ExpiryWinsOverFingerprint() {
	issued := s.h.login(s.clients.Default())
	s.h.clock.Advance(8 * 24 * time.Hour)

	_, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Client(testutil.OtherPublicIP, testutil.FirefoxUA))
	s.ErrorIs(err, usecase.ErrSessionExpired)
	s.Empty(s.h.observer.hijacks)
	s.Equal(model.RevokeReasonExpired, s.h.stored(issued.SessionID).RevokedReason)
}

func (s *SessionValidatorTestSuite) TestValidate_HijackTerminatesSession() {
	issued := s.h.login(s.clients.Default())

	_, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Client(testutil.OtherPublicIP, testutil.FirefoxUA))
	s.ErrorIs(err, usecase.ErrSessionTerminated)

	var terminated *usecase.SessionTerminatedError
	s.Require().True(errors.As(err, &terminated))
	s.Equal(usecase.ReasonIPOrDeviceMismatch, terminated.Reason)
	s.Contains(terminated.Reason, "mismatch")

	stored := s.h.stored(issued.SessionID)
	s.False(stored.IsActive)
	s.Equal(model.RevokeReasonSuspicious, stored.RevokedReason)

	s.Require().Len(s.h.observer.hijacks, 1)
	sig := s.h.observer.hijacks[0]
	s.Equal(issued.SessionID, sig.SessionID)
	s.Equal(testutil.PublicIP, sig.ExpectedIP)
	s.Equal(testutil.OtherPublicIP, sig.ActualIP)
	s.True(sig.IPMismatch)
	s.True(sig.UAMismatch)
	s.Equal(usecase.OutcomeTerminated, s.h.observer.lastOutcome())

	// The original client is locked out too.
	_, err = s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrSessionExpiredOrInvalid)
}

func (s *SessionValidatorTestSuite) TestValidate_LenientToleratesSingleChange() {
	issued := s.h.login(s.clients.Default())

	_, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Client(testutil.OtherPublicIP, testutil.ChromeUserAgent))
	s.NoError(err)
	_, err = s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Client(testutil.PublicIP, testutil.FirefoxUA))
	s.NoError(err)

	s.True(s.h.stored(issued.SessionID).IsActive)
	s.Empty(s.h.observer.hijacks)
}

func (s *SessionValidatorTestSuite) TestValidate_LocalZoneIsExempt() {
	issued := s.h.login(s.clients.Client(testutil.LoopbackIP, testutil.ChromeUserAgent))

	_, err := s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Client(testutil.OtherPublicIP, testutil.FirefoxUA))
	s.NoError(err)
	s.True(s.h.stored(issued.SessionID).IsActive)
}

func (s *SessionValidatorTestSuite) TestValidate_StrictBlocksAnyChange() {
	v := s.validator(nil, config.WithHijackPolicy(config.HijackStrict, ""))
	issued := s.h.login(s.clients.Default())

	_, err := v.Validate(s.ctx, issued.Token, s.clients.Client(testutil.PublicIP, testutil.FirefoxUA))
	s.ErrorIs(err, usecase.ErrSessionTerminated)
	s.Equal(model.RevokeReasonSuspicious, s.h.stored(issued.SessionID).RevokedReason)
}

func (s *SessionValidatorTestSuite) TestValidate_CustomPolicy() {
	v := s.validator(nil, config.WithHijackPolicy(config.HijackCustom, "ip_mismatch"))
	issued := s.h.login(s.clients.Default())

	_, err := v.Validate(s.ctx, issued.Token, s.clients.Client(testutil.PublicIP, testutil.FirefoxUA))
	s.NoError(err)

	_, err = v.Validate(s.ctx, issued.Token, s.clients.Client(testutil.OtherPublicIP, testutil.ChromeUserAgent))
	s.ErrorIs(err, usecase.ErrSessionTerminated)
}

func (s *SessionValidatorTestSuite) TestValidate_MissingUserFailsToken() {
	issued, err := s.h.comps.Issuer.Issue(s.ctx, "deleted-user", s.clients.Default())
	s.Require().NoError(err)

	_, err = s.h.comps.Validator.Validate(s.ctx, issued.Token, s.clients.Default())
	s.ErrorIs(err, usecase.ErrTokenFailed)
}

func (s *SessionValidatorTestSuite) TestValidate_StoreFailures() {
	issued := s.h.login(s.clients.Default())

	cases := map[string]*flakySessions{
		"find":  {SessionRepository: s.h.sessions, failFind: true},
		"touch": {SessionRepository: s.h.sessions, failTouch: true},
	}
	for name, flaky := range cases {
		s.Run(name, func() {
			_, err := s.validator(flaky).Validate(s.ctx, issued.Token, s.clients.Default())
			s.ErrorIs(err, usecase.ErrStoreUnavailable)
			s.NotErrorIs(err, usecase.ErrUnauthenticated)
		})
	}

	s.True(s.h.stored(issued.SessionID).IsActive)
	s.Equal(usecase.OutcomeError, s.h.observer.lastOutcome())
}

func (s *SessionValidatorTestSuite) TestValidate_DeactivateFailureOnHijack() {
	issued := s.h.login(s.clients.Default())
	v := s.validator(&flakySessions{SessionRepository: s.h.sessions, failDeactive: true})

	_, err := v.Validate(s.ctx, issued.Token, s.clients.Client(testutil.OtherPublicIP, testutil.FirefoxUA))
	s.ErrorIs(err, usecase.ErrStoreUnavailable)
	s.Empty(s.h.observer.hijacks)
}

func TestSessionValidatorTestSuite(t *testing.T) {
	suite.Run(t, new(SessionValidatorTestSuite))
}

func TestNewSessionValidator_RejectsBadPolicy(t *testing.T) {
	h := newHarness()

	_, err := usecase.NewSessionValidator(h.deps(config.WithHijackPolicy("paranoid", "")))
	assert.Error(t, err)

	_, err = usecase.NewSessionValidator(h.deps(config.WithHijackPolicy(config.HijackCustom, "ip_mismatch +")))
	assert.Error(t, err)
}

func TestValidate_ConcurrentHijackRevokesOnce(t *testing.T) {
	h := newHarness()
	clients := testutil.ClientFixture{}
	issued := h.login(clients.Default())

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := h.comps.Validator.Validate(context.Background(), issued.Token, clients.Client(testutil.OtherPublicIP, testutil.FirefoxUA))
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		err := <-errs
		require.Error(t, err)
		assert.True(t, errors.Is(err, usecase.ErrSessionTerminated) || errors.Is(err, usecase.ErrSessionExpiredOrInvalid), err.Error())
	}

	assert.Len(t, h.observer.revocations, 1)
}
