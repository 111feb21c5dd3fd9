package usecase

import (
	"context"
	"errors"
	"fmt"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/shared/logger"
)

// Authenticated is the principal and session resolved for a request.
type Authenticated struct {
	User    *model.User
	Session *model.Session
}

// SessionValidator runs the per-request session pipeline: token, lookup,
// expiry, hijack detection, activity update.
type SessionValidator struct {
	deps   SessionDeps
	policy *HijackPolicy
	log    logger.Logger
}

// NewSessionValidator compiles the configured hijack policy and returns a validator.
func NewSessionValidator(deps SessionDeps) (*SessionValidator, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	policy, err := NewHijackPolicy(d.Policy)
	if err != nil {
		return nil, err
	}
	return &SessionValidator{deps: d, policy: policy, log: d.Logger.WithComponent("session_validator")}, nil
}

// Validate authenticates one request. Branches that deactivate the session persist
// the revocation reason before returning.
func (v *SessionValidator) Validate(ctx context.Context, token string, cc model.ClientContext) (*Authenticated, error) {
	auth, err := v.validate(ctx, token, normalizeClient(cc))
	v.deps.Observer.ValidationCompleted(ctx, outcomeOf(err))
	return auth, err
}

func (v *SessionValidator) validate(ctx context.Context, token string, cc model.ClientContext) (*Authenticated, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	claims, err := v.deps.Tokens.ValidateToken(token)
	if err != nil {
		v.log.Debugf("Token rejected: %v", err)
		return nil, ErrTokenFailed
	}

	session, err := v.deps.Sessions.FindActive(ctx, claims.SessionID, claims.UserID)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil, ErrSessionExpiredOrInvalid
	}
	if err != nil {
		return nil, storeError("find session", err)
	}

	now := v.deps.Clock()
	if session.IsExpired(now) {
		if err := v.deactivate(ctx, session, model.RevokeReasonExpired); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}

	if err := v.checkFingerprint(ctx, session, cc); err != nil {
		return nil, err
	}

	if err := v.deps.Sessions.TouchActivity(ctx, session.SessionID, now); err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, ErrSessionExpiredOrInvalid
		}
		return nil, storeError("update activity", err)
	}
	session.LastActivity = now

	user, err := v.deps.Users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, ErrTokenFailed
	}
	if err != nil {
		return nil, storeError("load user", err)
	}

	return &Authenticated{User: user, Session: session}, nil
}

// checkFingerprint compares the stored fingerprint with cc and terminates the
// session when the hijack policy says so.
func (v *SessionValidator) checkFingerprint(ctx context.Context, session *model.Session, cc model.ClientContext) error {
	fp := Compare(
		Fingerprintable{IPAddress: session.IPAddress, UserAgent: session.UserAgent},
		Fingerprintable{IPAddress: cc.IPAddress, UserAgent: cc.UserAgent},
	)
	if !fp.IPMismatch && !fp.UAMismatch {
		return nil
	}

	blocks, err := v.policy.Blocks(fp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTokenFailed, err)
	}

	entry := v.log.WithFields(map[string]interface{}{
		"user_id":     session.UserID,
		"session_id":  session.SessionID,
		"ip_mismatch": fp.IPMismatch,
		"ua_mismatch": fp.UAMismatch,
		"expected_ip": session.IPAddress,
		"actual_ip":   cc.IPAddress,
		"expected_ua": session.UserAgent,
		"actual_ua":   cc.UserAgent,
		"local_zone":  fp.LocalZone,
		"blocked":     blocks,
	})
	if !blocks {
		entry.Info("Fingerprint changed within policy")
		return nil
	}
	entry.Warn("Suspicious activity detected")

	if err := v.deactivate(ctx, session, model.RevokeReasonSuspicious); err != nil {
		return err
	}
	v.deps.Observer.HijackDetected(ctx, HijackSignal{
		UserID:     session.UserID,
		SessionID:  session.SessionID,
		ExpectedIP: session.IPAddress,
		ActualIP:   cc.IPAddress,
		ExpectedUA: session.UserAgent,
		ActualUA:   cc.UserAgent,
		IPMismatch: fp.IPMismatch,
		UAMismatch: fp.UAMismatch,
		LocalZone:  fp.LocalZone,
	})
	return &SessionTerminatedError{Reason: ReasonIPOrDeviceMismatch}
}

func (v *SessionValidator) deactivate(ctx context.Context, session *model.Session, reason string) error {
	now := v.deps.Clock()
	ok, err := v.deps.Sessions.Deactivate(ctx, session.SessionID, reason, now)
	if err != nil {
		return storeError("deactivate session", err)
	}
	if ok {
		session.Revoke(reason, now)
		v.deps.Observer.SessionsRevoked(ctx, Revocation{
			UserID:     session.UserID,
			SessionIDs: []string{session.SessionID},
			Reason:     reason,
			Count:      1,
			At:         now,
		})
	}
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrUnauthenticated):
		return OutcomeUnauthenticated
	case errors.Is(err, ErrSessionExpiredOrInvalid):
		return OutcomeInvalid
	case errors.Is(err, ErrSessionExpired):
		return OutcomeExpired
	case errors.Is(err, ErrSessionTerminated):
		return OutcomeTerminated
	default:
		return OutcomeError
	}
}
