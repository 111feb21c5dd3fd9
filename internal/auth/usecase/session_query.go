package usecase

import (
	"context"

	"secure-auth/internal/auth/domain/model"
)

// SessionView is a session as listed to its owner.
type SessionView struct {
	*model.Session
	IsCurrent bool `json:"isCurrent"`
}

// SessionQuery lists a user's sessions.
type SessionQuery struct {
	deps SessionDeps
}

// NewSessionQuery creates a new SessionQuery.
func NewSessionQuery(deps SessionDeps) (*SessionQuery, error) {
	d, err := deps.withDefaults()
	if err != nil {
		return nil, err
	}
	return &SessionQuery{deps: d}, nil
}

// ListActive returns the user's active sessions, most recently active first,
// marking currentSessionID.
func (q *SessionQuery) ListActive(ctx context.Context, userID, currentSessionID string) ([]SessionView, error) {
	sessions, err := q.deps.Sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, storeError("list active sessions", err)
	}
	return views(sessions, currentSessionID), nil
}

// ListHistory returns up to limit sessions of any state, newest login first.
// Limits outside 1..policy history limit use the policy limit.
func (q *SessionQuery) ListHistory(ctx context.Context, userID, currentSessionID string, limit int) ([]SessionView, error) {
	ceiling := q.deps.Policy.HistoryLimit()
	if limit <= 0 || limit > ceiling {
		limit = ceiling
	}
	sessions, err := q.deps.Sessions.ListHistory(ctx, userID, limit)
	if err != nil {
		return nil, storeError("list session history", err)
	}
	return views(sessions, currentSessionID), nil
}

func views(sessions []*model.Session, currentSessionID string) []SessionView {
	out := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionView{Session: s, IsCurrent: s.SessionID == currentSessionID})
	}
	return out
}
