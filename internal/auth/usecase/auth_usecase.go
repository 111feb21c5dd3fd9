package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"
	"secure-auth/internal/shared/logger"

	"github.com/google/uuid"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// AuthUsecaseInterface defines the contract for account use cases.
type AuthUsecaseInterface interface {
	Register(ctx context.Context, req RegisterRequest, cc model.ClientContext) (*AuthResult, error)
	Login(ctx context.Context, req LoginRequest, cc model.ClientContext) (*AuthResult, error)
	GetProfile(ctx context.Context, userID string) (*model.User, error)
	Logout(ctx context.Context, session *model.Session) error
}

// RegisterRequest represents the registration request
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User      *model.User
	Token     string
	SessionID string
}

// AuthUsecase implements registration, login and logout on top of the session issuer.
type AuthUsecase struct {
	users      repository.UserRepository
	hasher     repository.PasswordHasher
	issuer     *SessionIssuer
	revocation *RevocationManager
	clock      func() time.Time
	log        logger.Logger
}

// NewAuthUsecase creates a new instance of AuthUsecase.
func NewAuthUsecase(
	users repository.UserRepository,
	hasher repository.PasswordHasher,
	issuer *SessionIssuer,
	revocation *RevocationManager,
	log logger.Logger,
) *AuthUsecase {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthUsecase{
		users:      users,
		hasher:     hasher,
		issuer:     issuer,
		revocation: revocation,
		clock:      func() time.Time { return time.Now().UTC() },
		log:        log.WithComponent("auth_usecase"),
	}
}

// Register creates an account and opens its first session.
func (uc *AuthUsecase) Register(ctx context.Context, req RegisterRequest, cc model.ClientContext) (*AuthResult, error) {
	name := strings.TrimSpace(req.Name)
	email := model.NormalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, ErrMissingFields
	}
	if !emailRegex.MatchString(email) {
		return nil, ErrInvalidEmailFormat
	}

	_, err := uc.users.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if !errors.Is(err, model.ErrUserNotFound) {
		return nil, storeError("check existing user", err)
	}

	hash, err := uc.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	now := uc.clock()
	user := &model.User{
		ID:           uuid.New().String(),
		Name:         name,
		Email:        email,
		Role:         model.DefaultRole,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, model.ErrUserExists) {
			return nil, ErrEmailTaken
		}
		return nil, storeError("create user", err)
	}

	uc.log.WithFields(map[string]interface{}{"user_id": user.ID}).Info("User registered")
	return uc.openSession(ctx, user, cc)
}

// Login verifies credentials and opens a new session.
func (uc *AuthUsecase) Login(ctx context.Context, req LoginRequest, cc model.ClientContext) (*AuthResult, error) {
	email := model.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := uc.users.GetUserByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeError("get user", err)
	}

	if !uc.hasher.Verify(user.PasswordHash, req.Password) {
		uc.log.WithFields(map[string]interface{}{"user_id": user.ID}).Warn("Failed login attempt")
		return nil, ErrInvalidCredentials
	}

	return uc.openSession(ctx, user, cc)
}

func (uc *AuthUsecase) openSession(ctx context.Context, user *model.User, cc model.ClientContext) (*AuthResult, error) {
	issued, err := uc.issuer.Issue(ctx, user.ID, cc)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}

	out := *user
	out.PasswordHash = ""
	return &AuthResult{User: &out, Token: issued.Token, SessionID: issued.SessionID}, nil
}

// GetProfile returns the user without the password hash.
func (uc *AuthUsecase) GetProfile(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, ErrUserNotFound
	}
	user, err := uc.users.GetUserByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, storeError("get user", err)
	}

	out := *user
	out.PasswordHash = ""
	return &out, nil
}

// Logout ends the given session.
func (uc *AuthUsecase) Logout(ctx context.Context, session *model.Session) error {
	return uc.revocation.Logout(ctx, session)
}

var _ AuthUsecaseInterface = (*AuthUsecase)(nil)
