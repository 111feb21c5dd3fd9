package usecase

import (
	"context"

	"secure-auth/internal/auth/domain/model"
)

// SessionUsecaseInterface is what the transport needs from the session subsystem.
type SessionUsecaseInterface interface {
	Validate(ctx context.Context, token string, cc model.ClientContext) (*Authenticated, error)
	ListActive(ctx context.Context, userID, currentSessionID string) ([]SessionView, error)
	ListHistory(ctx context.Context, userID, currentSessionID string, limit int) ([]SessionView, error)
	Revoke(ctx context.Context, sessionID, requestingUserID, reason string) error
	RevokeAllOthers(ctx context.Context, userID, currentSessionID string) (int64, error)
}

// SessionUsecase groups the validator, query and revocation usecases.
type SessionUsecase struct {
	*SessionValidator
	*SessionQuery
	*RevocationManager
}

// SessionComponents holds every session usecase built from one SessionDeps.
type SessionComponents struct {
	Issuer     *SessionIssuer
	Validator  *SessionValidator
	Query      *SessionQuery
	Revocation *RevocationManager
}

// NewSessionComponents builds all session usecases sharing deps.
func NewSessionComponents(deps SessionDeps) (*SessionComponents, error) {
	issuer, err := NewSessionIssuer(deps)
	if err != nil {
		return nil, err
	}
	validator, err := NewSessionValidator(deps)
	if err != nil {
		return nil, err
	}
	query, err := NewSessionQuery(deps)
	if err != nil {
		return nil, err
	}
	revocation, err := NewRevocationManager(deps)
	if err != nil {
		return nil, err
	}
	return &SessionComponents{Issuer: issuer, Validator: validator, Query: query, Revocation: revocation}, nil
}

// Usecase returns the transport-facing view of the components.
func (c *SessionComponents) Usecase() *SessionUsecase {
	return &SessionUsecase{SessionValidator: c.Validator, SessionQuery: c.Query, RevocationManager: c.Revocation}
}

var _ SessionUsecaseInterface = (*SessionUsecase)(nil)
