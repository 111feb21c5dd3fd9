// Package memory holds process-local repositories used by tests and by
// single-instance deployments with SESSION_STORE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"
)

// SessionRepository keeps sessions in a map guarded by a mutex. Every method
// copies records in and out so callers never share state with the store.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
}

// NewSessionRepository creates an empty store.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*model.Session)}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.SessionID]; exists {
		return model.ErrSessionExists
	}
	r.sessions[session.SessionID] = session.Clone()
	return nil
}

func (r *SessionRepository) FindActive(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.UserID != userID || !s.IsActive {
		return nil, model.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (r *SessionRepository) CountActive(ctx context.Context, userID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, s := range r.sessions {
		if s.UserID == userID && s.IsActive {
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) FindOldestActive(ctx context.Context, userID string) (*model.Session, error) {
	active := r.filter(func(s *model.Session) bool { return s.UserID == userID && s.IsActive })
	if len(active) == 0 {
		return nil, model.ErrSessionNotFound
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].LoginTime.Equal(active[j].LoginTime) {
			return active[i].SessionID < active[j].SessionID
		}
		return active[i].LoginTime.Before(active[j].LoginTime)
	})
	return active[0], nil
}

func (r *SessionRepository) ListActive(ctx context.Context, userID string) ([]*model.Session, error) {
	active := r.filter(func(s *model.Session) bool { return s.UserID == userID && s.IsActive })
	sort.Slice(active, func(i, j int) bool {
		return active[i].LastActivity.After(active[j].LastActivity)
	})
	return active, nil
}

func (r *SessionRepository) ListHistory(ctx context.Context, userID string, limit int) ([]*model.Session, error) {
	all := r.filter(func(s *model.Session) bool { return s.UserID == userID })
	sort.Slice(all, func(i, j int) bool {
		return all[i].LoginTime.After(all[j].LoginTime)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *SessionRepository) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || !s.IsActive {
		return model.ErrSessionNotFound
	}
	s.LastActivity = at
	return nil
}

func (r *SessionRepository) Deactivate(ctx context.Context, sessionID, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false, nil
	}
	return s.Revoke(reason, at), nil
}

func (r *SessionRepository) DeactivateAllExcept(ctx context.Context, userID, keepSessionID, reason string, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.UserID != userID || id == keepSessionID {
			continue
		}
		if s.Revoke(reason, at) {
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// PurgeExpired deletes inactive or expired records whose expiry is before the cutoff.
func (r *SessionRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.ExpiresAt.Before(before) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

func (r *SessionRepository) filter(keep func(*model.Session) bool) []*model.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Session, 0)
	for _, s := range r.sessions {
		if keep(s) {
			out = append(out, s.Clone())
		}
	}
	return out
}

var (
	_ repository.SessionRepository    = (*SessionRepository)(nil)
	_ repository.ExpiredSessionPurger = (*SessionRepository)(nil)
)
