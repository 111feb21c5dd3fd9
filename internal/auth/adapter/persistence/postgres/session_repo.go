// Package postgres stores users and sessions in PostgreSQL through a pgx connection pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"secure-auth/internal/auth/domain/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS auth_sessions (
	session_id     TEXT PRIMARY KEY,
	user_id        TEXT NOT NULL,
	token          TEXT NOT NULL,
	ip_address     TEXT NOT NULL,
	user_agent     TEXT NOT NULL,
	browser        TEXT NOT NULL DEFAULT '',
	os             TEXT NOT NULL DEFAULT '',
	device         TEXT NOT NULL DEFAULT '',
	location       JSONB,
	login_time     TIMESTAMPTZ NOT NULL,
	last_activity  TIMESTAMPTZ NOT NULL,
	expires_at     TIMESTAMPTZ NOT NULL,
	is_active      BOOLEAN NOT NULL DEFAULT TRUE,
	revoked_at     TIMESTAMPTZ,
	revoked_reason TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS auth_sessions_user_active_idx ON auth_sessions (user_id, is_active, login_time);
CREATE INDEX IF NOT EXISTS auth_sessions_expires_idx ON auth_sessions (expires_at);
`

const selectColumns = `
	session_id, user_id, token, ip_address, user_agent,
	browser, os, device, location,
	login_time, last_activity, expires_at,
	is_active, revoked_at, revoked_reason`

// SessionRepository implements repository.SessionRepository on the auth_sessions table.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates the table and indexes if missing.
func NewSessionRepository(ctx context.Context, pool *pgxpool.Pool) (*SessionRepository, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("create session schema: %w", err)
	}
	return &SessionRepository{pool: pool}, nil
}

func (r *SessionRepository) Create(ctx context.Context, s *model.Session) error {
	if s == nil {
		return errors.New("session cannot be nil")
	}
	location, err := encodeLocation(s.Location)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO auth_sessions (
			session_id, user_id, token, ip_address, user_agent,
			browser, os, device, location,
			login_time, last_activity, expires_at,
			is_active, revoked_at, revoked_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, s.SessionID, s.UserID, s.Token, s.IPAddress, s.UserAgent,
		s.DeviceInfo.Browser, s.DeviceInfo.OS, s.DeviceInfo.Device, location,
		s.LoginTime, s.LastActivity, s.ExpiresAt,
		s.IsActive, s.RevokedAt, s.RevokedReason)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.ErrSessionExists
	}
	return err
}

func (r *SessionRepository) FindActive(ctx context.Context, sessionID, userID string) (*model.Session, error) {
	return r.queryOne(ctx, `SELECT`+selectColumns+`
		FROM auth_sessions
		WHERE session_id = $1 AND user_id = $2 AND is_active`, sessionID, userID)
}

func (r *SessionRepository) FindByID(ctx context.Context, sessionID string) (*model.Session, error) {
	return r.queryOne(ctx, `SELECT`+selectColumns+`
		FROM auth_sessions
		WHERE session_id = $1`, sessionID)
}

func (r *SessionRepository) CountActive(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM auth_sessions WHERE user_id = $1 AND is_active
	`, userID).Scan(&n)
	return n, err
}

func (r *SessionRepository) FindOldestActive(ctx context.Context, userID string) (*model.Session, error) {
	return r.queryOne(ctx, `SELECT`+selectColumns+`
		FROM auth_sessions
		WHERE user_id = $1 AND is_active
		ORDER BY login_time ASC, session_id ASC
		LIMIT 1`, userID)
}

func (r *SessionRepository) ListActive(ctx context.Context, userID string) ([]*model.Session, error) {
	return r.query(ctx, `SELECT`+selectColumns+`
		FROM auth_sessions
		WHERE user_id = $1 AND is_active
		ORDER BY last_activity DESC`, userID)
}

func (r *SessionRepository) ListHistory(ctx context.Context, userID string, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		return r.query(ctx, `SELECT`+selectColumns+`
			FROM auth_sessions
			WHERE user_id = $1
			ORDER BY login_time DESC`, userID)
	}
	return r.query(ctx, `SELECT`+selectColumns+`
		FROM auth_sessions
		WHERE user_id = $1
		ORDER BY login_time DESC
		LIMIT $2`, userID, limit)
}

func (r *SessionRepository) TouchActivity(ctx context.Context, sessionID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auth_sessions SET last_activity = $2
		WHERE session_id = $1 AND is_active
	`, sessionID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrSessionNotFound
	}
	return nil
}

// Deactivate relies on the is_active predicate being re-checked after a row
// lock wait, so one of several concurrent updates affects the row.
func (r *SessionRepository) Deactivate(ctx context.Context, sessionID, reason string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auth_sessions
		SET is_active = FALSE, revoked_at = $2, revoked_reason = $3
		WHERE session_id = $1 AND is_active
	`, sessionID, at, reason)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *SessionRepository) DeactivateAllExcept(ctx context.Context, userID, keepSessionID, reason string, at time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE auth_sessions
		SET is_active = FALSE, revoked_at = $3, revoked_reason = $4
		WHERE user_id = $1 AND session_id <> $2 AND is_active
	`, userID, keepSessionID, at, reason)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PurgeExpired deletes records whose expiry is before the cutoff.
func (r *SessionRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *SessionRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *SessionRepository) queryOne(ctx context.Context, sql string, args ...any) (*model.Session, error) {
	s, err := scanSession(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrSessionNotFound
	}
	return s, err
}

func (r *SessionRepository) query(ctx context.Context, sql string, args ...any) ([]*model.Session, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*model.Session, 0)
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*model.Session, error) {
	var (
		s        model.Session
		location []byte
	)
	err := row.Scan(
		&s.SessionID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent,
		&s.DeviceInfo.Browser, &s.DeviceInfo.OS, &s.DeviceInfo.Device, &location,
		&s.LoginTime, &s.LastActivity, &s.ExpiresAt,
		&s.IsActive, &s.RevokedAt, &s.RevokedReason,
	)
	if err != nil {
		return nil, err
	}
	if len(location) > 0 {
		var loc model.Location
		if err := json.Unmarshal(location, &loc); err != nil {
			return nil, fmt.Errorf("decode session location: %w", err)
		}
		s.Location = &loc
	}
	return &s, nil
}

func encodeLocation(loc *model.Location) ([]byte, error) {
	if loc.IsZero() {
		return nil, nil
	}
	b, err := json.Marshal(loc)
	if err != nil {
		return nil, fmt.Errorf("encode session location: %w", err)
	}
	return b, nil
}
