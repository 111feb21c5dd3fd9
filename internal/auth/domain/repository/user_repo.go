package repository

import (
	"context"

	"secure-auth/internal/auth/domain/model"
)

// UserRepository is the credential store.
type UserRepository interface {
	// CreateUser returns model.ErrUserExists when the email is already registered.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// GeoLocator resolves an IP address to a location. Implementations must honor ctx deadlines.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (model.GeoResult, error)
}
