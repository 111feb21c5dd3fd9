package repository

import (
	"context"
	"time"

	"secure-auth/internal/auth/domain/model"
)

// SessionRepository is the persistent session collection.
//
// Every state transition is a single conditional update that only matches
// records with is_active = true, so concurrent transitions on the same record
// cannot both succeed.
type SessionRepository interface {
	// Create inserts a new session. A duplicate session id returns model.ErrSessionExists.
	Create(ctx context.Context, session *model.Session) error

	// FindActive returns the session only if it belongs to userID and is still active.
	// Expiry is not checked here. A miss returns model.ErrSessionNotFound.
	FindActive(ctx context.Context, sessionID, userID string) (*model.Session, error)

	// FindByID returns the session regardless of state.
	FindByID(ctx context.Context, sessionID string) (*model.Session, error)

	CountActive(ctx context.Context, userID string) (int64, error)

	// FindOldestActive returns the active session with the earliest login time.
	FindOldestActive(ctx context.Context, userID string) (*model.Session, error)

	// ListActive returns active sessions ordered by last activity, newest first.
	ListActive(ctx context.Context, userID string) ([]*model.Session, error)

	// ListHistory returns up to limit sessions of any state ordered by login time, newest first.
	ListHistory(ctx context.Context, userID string, limit int) ([]*model.Session, error)

	// TouchActivity sets last activity on an active session. An inactive or
	// missing session returns model.ErrSessionNotFound.
	TouchActivity(ctx context.Context, sessionID string, at time.Time) error

	// Deactivate revokes one active session. It reports false when nothing
	// matched because the session was missing or already inactive.
	Deactivate(ctx context.Context, sessionID, reason string, at time.Time) (bool, error)

	// DeactivateAllExcept revokes every active session of userID other than keepSessionID.
	DeactivateAllExcept(ctx context.Context, userID, keepSessionID, reason string, at time.Time) (int64, error)

	Ping(ctx context.Context) error
}

// ExpiredSessionPurger is implemented by stores without native TTL expiry.
type ExpiredSessionPurger interface {
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
