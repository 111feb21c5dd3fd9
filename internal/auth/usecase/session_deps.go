package usecase

import (
	"errors"
	"strings"
	"time"

	"secure-auth/internal/auth/config"
	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/domain/repository"
	"secure-auth/internal/shared/ids"
	"secure-auth/internal/shared/logger"
)

// SessionDeps bundles the collaborators shared by the session usecases.
// Sessions, Tokens and Users are required; the rest fall back to defaults.
type SessionDeps struct {
	Sessions repository.SessionRepository
	Users    repository.UserRepository
	Tokens   repository.TokenService
	Geo      repository.GeoLocator
	Policy   config.SessionPolicy
	Logger   logger.Logger
	Observer SessionObserver
	Clock    func() time.Time
	NewID    func(now time.Time) (string, error)
}

func (d SessionDeps) withDefaults() (SessionDeps, error) {
	if d.Sessions == nil {
		return d, errors.New("session repository is required")
	}
	if d.Users == nil {
		return d, errors.New("user repository is required")
	}
	if d.Tokens == nil {
		return d, errors.New("token service is required")
	}
	if d.Policy.MaxConcurrent() < 1 {
		return d, errors.New("session policy must allow at least one session")
	}
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	d.Observer = observerOrNop(d.Observer)
	if d.Clock == nil {
		d.Clock = func() time.Time { return time.Now().UTC() }
	}
	if d.NewID == nil {
		d.NewID = ids.NewULID
	}
	return d, nil
}

// normalizeClient fills absent fingerprint fields with model.UnknownValue so that
// two requests without a user agent still compare equal.
func normalizeClient(cc model.ClientContext) model.ClientContext {
	if strings.TrimSpace(cc.IPAddress) == "" {
		cc.IPAddress = model.UnknownValue
	}
	if strings.TrimSpace(cc.UserAgent) == "" {
		cc.UserAgent = model.UnknownValue
	}
	return cc
}
