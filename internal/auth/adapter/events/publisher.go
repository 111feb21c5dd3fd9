// Package events forwards session lifecycle notifications to the shared event bus.
package events

import (
	"context"
	"time"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"
	"secure-auth/internal/shared/eventbus"
	"secure-auth/internal/shared/logger"
	"secure-auth/internal/shared/utils"
)

// Source is set on every event published by this package.
const Source = "auth.sessions"

// SessionIssued is the payload of eventbus.EventTypeSessionIssued.
type SessionIssued struct {
	UserID    string           `json:"userId"`
	SessionID string           `json:"sessionId"`
	IPAddress string           `json:"ipAddress"`
	Device    model.DeviceInfo `json:"deviceInfo"`
	RequestID string           `json:"requestId,omitempty"`
	At        time.Time        `json:"at"`
}

// Publisher is a usecase.SessionObserver that publishes to an event bus.
// Handlers run synchronously on the caller's goroutine, so subscribers must not block.
type Publisher struct {
	bus eventbus.EventBusInterface
	log logger.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(bus eventbus.EventBusInterface, log logger.Logger) *Publisher {
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{bus: bus, log: log.WithComponent("session_events")}
}

func (p *Publisher) SessionIssued(ctx context.Context, s *model.Session) {
	requestID, _ := utils.GetRequestIDFromContext(ctx)
	p.publish(ctx, eventbus.EventTypeSessionIssued, SessionIssued{
		UserID:    s.UserID,
		SessionID: s.SessionID,
		IPAddress: s.IPAddress,
		Device:    s.DeviceInfo,
		RequestID: requestID,
		At:        s.LoginTime,
	})
}

// SessionsRevoked publishes the usecase.Revocation unchanged.
func (p *Publisher) SessionsRevoked(ctx context.Context, rev usecase.Revocation) {
	p.publish(ctx, eventbus.EventTypeSessionRevoked, rev)
}

func (p *Publisher) ValidationCompleted(context.Context, string) {}

func (p *Publisher) HijackDetected(ctx context.Context, signal usecase.HijackSignal) {
	p.publish(ctx, eventbus.EventTypeHijackDetected, signal)
}

// publish tags ctx with the event type as the operation so handler logs carry it.
func (p *Publisher) publish(ctx context.Context, eventType string, data interface{}) {
	ctx = utils.WithOperation(ctx, eventType)
	if err := p.bus.Publish(ctx, eventbus.NewBasicEvent(eventType, data, Source)); err != nil {
		p.log.WithContext(ctx).Errorf("Failed to publish %s: %v", eventType, err)
	}
}

var _ usecase.SessionObserver = (*Publisher)(nil)
