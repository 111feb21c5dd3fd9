package usecase

import (
	"context"
	"errors"
	"fmt"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/shared/logger"
)

// IssuedSession is the result of a successful login or registration.
type IssuedSession struct {
	Token     string
	SessionID string
	Session   *model.Session
}

// SessionIssuer mints a token and its server-side session, enforcing the
// per-user concurrent session cap.
type SessionIssuer struct {
	deps SessionDeps
	log  logger.Logger
}

// NewSessionIssuer creates a new SessionIssuer.
func NewSessionIssuer(deps SessionDeps) (*SessionIssuer, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &SessionIssuer{deps: d, log: d.Logger.WithComponent("session_issuer")}, nil
}

// Issue creates a session for userID bound to the client fingerprint in cc.
//
// When the user is at or over the cap, the oldest active sessions are revoked
// before the new one is stored. Eviction is not rolled back if the insert fails.
func (i *SessionIssuer) Issue(ctx context.Context, userID string, cc model.ClientContext) (*IssuedSession, error) {
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	cc = normalizeClient(cc)
	now := i.deps.Clock()

	sessionID, err := i.deps.NewID(now)
	if err != nil {
		return nil, fmt.Errorf("generate session id: %w", err)
	}
	token, err := i.deps.Tokens.GenerateToken(userID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	evicted, err := i.enforceCap(ctx, userID)
	if err != nil {
		return nil, err
	}

	location := cc.Location
	if location == nil {
		location = i.locate(ctx, cc.IPAddress)
	}

	session := &model.Session{
		SessionID:    sessionID,
		UserID:       userID,
		Token:        token,
		IPAddress:    cc.IPAddress,
		UserAgent:    cc.UserAgent,
		DeviceInfo:   cc.DeviceInfo,
		Location:     location,
		LoginTime:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(i.deps.Policy.SessionTTL()),
		IsActive:     true,
	}
	if err := i.deps.Sessions.Create(ctx, session); err != nil {
		return nil, storeError("create session", err)
	}

	if len(evicted) > 0 {
		i.deps.Observer.SessionsRevoked(ctx, Revocation{
			UserID:     userID,
			SessionIDs: evicted,
			Reason:     model.RevokeReasonMaxSessions,
			Count:      int64(len(evicted)),
			At:         now,
		})
	}
	i.deps.Observer.SessionIssued(ctx, session)

	i.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"ip":         cc.IPAddress,
		"device":     cc.DeviceInfo.Device,
		"evicted":    len(evicted),
	}).Info("Session issued")

	return &IssuedSession{Token: token, SessionID: sessionID, Session: session.Clone()}, nil
}

// enforceCap revokes oldest-first until one slot is free and returns the revoked ids.
func (i *SessionIssuer) enforceCap(ctx context.Context, userID string) ([]string, error) {
	active, err := i.deps.Sessions.CountActive(ctx, userID)
	if err != nil {
		return nil, storeError("count active sessions", err)
	}

	limit := int64(i.deps.Policy.MaxConcurrent())
	var evicted []string
	for ; active >= limit; active-- {
		oldest, err := i.deps.Sessions.FindOldestActive(ctx, userID)
		if errors.Is(err, model.ErrSessionNotFound) {
			break
		}
		if err != nil {
			return evicted, storeError("find oldest session", err)
		}

		ok, err := i.deps.Sessions.Deactivate(ctx, oldest.SessionID, model.RevokeReasonMaxSessions, i.deps.Clock())
		if err != nil {
			return evicted, storeError("evict session", err)
		}
		if ok {
			evicted = append(evicted, oldest.SessionID)
		}
	}
	return evicted, nil
}

// locate resolves ip within the policy timeout. Any failure yields no location.
func (i *SessionIssuer) locate(ctx context.Context, ip string) *model.Location {
	if i.deps.Geo == nil || ip == model.UnknownValue || IsLocalAddress(ip) {
		return nil
	}

	geoCtx, cancel := context.WithTimeout(ctx, i.deps.Policy.GeoTimeout())
	defer cancel()

	result, err := i.deps.Geo.Locate(geoCtx, ip)
	if err != nil {
		i.log.WithFields(map[string]interface{}{"ip": ip}).Debugf("Geolocation failed: %v", err)
		return nil
	}
	if result.Status == model.GeoAbsent {
		return nil
	}
	return result.Location
}
