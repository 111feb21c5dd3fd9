package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"secure-auth/internal/auth/domain/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userSchema = `
CREATE TABLE IF NOT EXISTS auth_users (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	role          TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
`

const userColumns = `id, name, email, role, password_hash, created_at, updated_at`

// UserRepository implements repository.UserRepository on the auth_users table.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates the table if missing.
func NewUserRepository(ctx context.Context, pool *pgxpool.Pool) (*UserRepository, error) {
	if _, err := pool.Exec(ctx, userSchema); err != nil {
		return nil, fmt.Errorf("create user schema: %w", err)
	}
	return &UserRepository{pool: pool}, nil
}

func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	if user.ID == "" {
		return errors.New("user ID cannot be empty")
	}
	if user.CreatedAt.IsZero() {
		now := time.Now().UTC()
		user.CreatedAt = now
		user.UpdatedAt = now
	}
	user.Email = model.NormalizeEmail(user.Email)

	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.ID, user.Name, user.Email, user.Role, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return model.ErrUserExists
	}
	return err
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM auth_users WHERE email = $1`, model.NormalizeEmail(email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, errors.New("user ID cannot be empty")
	}
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM auth_users WHERE id = $1`, id)
}

func (r *UserRepository) queryOne(ctx context.Context, sql string, args ...any) (*model.User, error) {
	var u model.User
	err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
