package usecase

import (
	"context"
	"errors"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/shared/logger"
)

// RevocationManager ends sessions on explicit user request.
type RevocationManager struct {
	deps SessionDeps
	log  logger.Logger
}

// NewRevocationManager creates a new RevocationManager.
func NewRevocationManager(deps SessionDeps) (*RevocationManager, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &RevocationManager{deps: d, log: d.Logger.WithComponent("revocation")}, nil
}

// Revoke ends sessionID on behalf of requestingUserID. A session owned by another
// user is reported as ErrSessionNotFound. Revoking an inactive session succeeds
// without changing it.
func (m *RevocationManager) Revoke(ctx context.Context, sessionID, requestingUserID, reason string) error {
	session, err := m.deps.Sessions.FindByID(ctx, sessionID)
	if errors.Is(err, model.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return storeError("find session", err)
	}
	if session.UserID != requestingUserID {
		return ErrSessionNotFound
	}
	if !session.IsActive {
		return nil
	}
	if reason == "" {
		reason = model.RevokeReasonManual
	}
	return m.deactivate(ctx, session.UserID, session.SessionID, reason)
}

// RevokeAllOthers ends every active session of userID except currentSessionID
// in one store operation and returns how many were ended.
func (m *RevocationManager) RevokeAllOthers(ctx context.Context, userID, currentSessionID string) (int64, error) {
	now := m.deps.Clock()
	count, err := m.deps.Sessions.DeactivateAllExcept(ctx, userID, currentSessionID, model.RevokeReasonLogoutAll, now)
	if err != nil {
		return 0, storeError("revoke sessions", err)
	}

	if count > 0 {
		m.deps.Observer.SessionsRevoked(ctx, Revocation{
			UserID:    userID,
			AllExcept: currentSessionID,
			Reason:    model.RevokeReasonLogoutAll,
			Count:     count,
			At:        now,
		})
	}
	m.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"session_id": currentSessionID,
		"count":      count,
	}).Info("Revoked all other sessions")
	return count, nil
}

// Logout ends the caller's own session.
func (m *RevocationManager) Logout(ctx context.Context, session *model.Session) error {
	if session == nil {
		return ErrSessionNotFound
	}
	if err := m.deactivate(ctx, session.UserID, session.SessionID, model.RevokeReasonLogout); err != nil {
		return err
	}
	session.Revoke(model.RevokeReasonLogout, m.deps.Clock())
	return nil
}

func (m *RevocationManager) deactivate(ctx context.Context, userID, sessionID, reason string) error {
	now := m.deps.Clock()
	ok, err := m.deps.Sessions.Deactivate(ctx, sessionID, reason, now)
	if err != nil {
		return storeError("deactivate session", err)
	}
	if !ok {
		return nil
	}

	m.deps.Observer.SessionsRevoked(ctx, Revocation{
		UserID:     userID,
		SessionIDs: []string{sessionID},
		Reason:     reason,
		Count:      1,
		At:         now,
	})
	m.log.WithFields(map[string]interface{}{
		"user_id":    userID,
		"session_id": sessionID,
		"reason":     reason,
	}).Info("Session revoked")
	return nil
}
