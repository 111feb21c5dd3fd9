package usecase

import (
	"context"
	"time"

	"secure-auth/internal/auth/domain/model"
)

// Validation outcomes reported to observers.
const (
	OutcomeOK              = "ok"
	OutcomeUnauthenticated = "unauthenticated"
	OutcomeInvalid         = "invalid"
	OutcomeExpired         = "expired"
	OutcomeTerminated      = "terminated"
	OutcomeError           = "error"
)

// Revocation describes sessions that left the active state in one transition.
// A bulk revocation sets AllExcept and leaves SessionIDs empty.
type Revocation struct {
	UserID     string    `json:"userId"`
	SessionIDs []string  `json:"sessionIds,omitempty"`
	AllExcept  string    `json:"allExcept,omitempty"`
	Reason     string    `json:"reason"`
	Count      int64     `json:"count"`
	At         time.Time `json:"at"`
}

// Affects reports whether sessionID is covered by the revocation.
func (r Revocation) Affects(sessionID string) bool {
	if r.AllExcept != "" {
		return sessionID != r.AllExcept
	}
	for _, id := range r.SessionIDs {
		if id == sessionID {
			return true
		}
	}
	return false
}

// HijackSignal is the fingerprint comparison that triggered a termination.
type HijackSignal struct {
	UserID     string
	SessionID  string
	ExpectedIP string
	ActualIP   string
	ExpectedUA string
	ActualUA   string
	IPMismatch bool
	UAMismatch bool
	LocalZone  bool
}

// SessionObserver receives session lifecycle notifications after the store is updated.
// Implementations must not block.
type SessionObserver interface {
	SessionIssued(ctx context.Context, session *model.Session)
	SessionsRevoked(ctx context.Context, rev Revocation)
	ValidationCompleted(ctx context.Context, outcome string)
	HijackDetected(ctx context.Context, signal HijackSignal)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) SessionIssued(context.Context, *model.Session) {}
func (NopObserver) SessionsRevoked(context.Context, Revocation)   {}
func (NopObserver) ValidationCompleted(context.Context, string)   {}
func (NopObserver) HijackDetected(context.Context, HijackSignal)  {}

// Observers fans notifications out to several observers in order.
type Observers []SessionObserver

func (o Observers) SessionIssued(ctx context.Context, session *model.Session) {
	for _, obs := range o {
		obs.SessionIssued(ctx, session)
	}
}

func (o Observers) SessionsRevoked(ctx context.Context, rev Revocation) {
	for _, obs := range o {
		obs.SessionsRevoked(ctx, rev)
	}
}

func (o Observers) ValidationCompleted(ctx context.Context, outcome string) {
	for _, obs := range o {
		obs.ValidationCompleted(ctx, outcome)
	}
}

func (o Observers) HijackDetected(ctx context.Context, signal HijackSignal) {
	for _, obs := range o {
		obs.HijackDetected(ctx, signal)
	}
}

func observerOrNop(o SessionObserver) SessionObserver {
	if o == nil {
		return NopObserver{}
	}
	return o
}
