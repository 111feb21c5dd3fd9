package repository

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures.
var (
	ErrTokenInvalid = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token is expired")
)

// TokenService issues and verifies signed session tokens. It never consults the session store.
type TokenService interface {
	GenerateToken(userID, sessionID string) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims binds a token to one user and one server-side session.
type Claims struct {
	UserID    string `json:"id"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}
