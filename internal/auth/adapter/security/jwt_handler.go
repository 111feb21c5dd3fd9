package security

import (
	"errors"
	"time"

	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/repository"

	"github.com/golang-jwt/jwt/v5"
)

// JWTokenService signs session tokens with HS256.
type JWTokenService struct {
	secretKey []byte
	issuer    string
	ttl       time.Duration
	now       func() time.Time
}

// NewJWTokenService creates a new JWT token service
func NewJWTokenService(cfg *config.Config) (*JWTokenService, error) {
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("jwt secret key cannot be empty")
	}
	if cfg.JWTIssuer == "" {
		return nil, errors.New("jwt issuer cannot be empty")
	}
	if cfg.TokenTTL <= 0 {
		return nil, errors.New("jwt token TTL must be positive")
	}

	return &JWTokenService{
		secretKey: []byte(cfg.JWTSecretKey),
		issuer:    cfg.JWTIssuer,
		ttl:       cfg.TokenTTL,
		now:       time.Now,
	}, nil
}

// WithClock replaces the time source used for issued-at and expiry claims.
func (s *JWTokenService) WithClock(now func() time.Time) *JWTokenService {
	s.now = now
	return s
}

// GenerateToken signs a token binding userID to sessionID.
func (s *JWTokenService) GenerateToken(userID, sessionID string) (string, error) {
	if userID == "" || sessionID == "" {
		return "", errors.New("user id and session id are required")
	}

	now := s.now()
	claims := &repository.Claims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken checks signature, issuer and expiry and returns the claims.
func (s *JWTokenService) ValidateToken(tokenString string) (*repository.Claims, error) {
	if tokenString == "" {
		return nil, repository.ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &repository.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, repository.ErrTokenInvalid
		}
		return s.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, repository.ErrTokenExpired
		}
		return nil, repository.ErrTokenInvalid
	}

	claims, ok := token.Claims.(*repository.Claims)
	if !ok || !token.Valid {
		return nil, repository.ErrTokenInvalid
	}
	if claims.UserID == "" || claims.SessionID == "" {
		return nil, repository.ErrTokenInvalid
	}

	return claims, nil
}
