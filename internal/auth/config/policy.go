package config

import "time"

// Defaults applied when a SessionPolicy is built without a Config.
const (
	DefaultMaxConcurrentSessions = 5
	DefaultSessionTTL            = 7 * 24 * time.Hour
	DefaultHistoryLimit          = 50
	DefaultGeoTimeout            = 1500 * time.Millisecond
)

// SessionPolicy is the read-only set of session rules handed to the issuer and validator.
type SessionPolicy struct {
	maxConcurrent int
	sessionTTL    time.Duration
	historyLimit  int
	hijackMode    string
	hijackExpr    string
	geoTimeout    time.Duration
}

// PolicyOption overrides one field of a SessionPolicy.
type PolicyOption func(*SessionPolicy)

// NewSessionPolicy returns the default policy with opts applied.
func NewSessionPolicy(opts ...PolicyOption) SessionPolicy {
	p := SessionPolicy{
		maxConcurrent: DefaultMaxConcurrentSessions,
		sessionTTL:    DefaultSessionTTL,
		historyLimit:  DefaultHistoryLimit,
		hijackMode:    HijackLenient,
		geoTimeout:    DefaultGeoTimeout,
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func WithMaxConcurrent(n int) PolicyOption {
	return func(p *SessionPolicy) { p.maxConcurrent = n }
}

func WithSessionTTL(d time.Duration) PolicyOption {
	return func(p *SessionPolicy) { p.sessionTTL = d }
}

func WithHistoryLimit(n int) PolicyOption {
	return func(p *SessionPolicy) { p.historyLimit = n }
}

// WithHijackPolicy selects a preset, or a custom CEL expression when mode is HijackCustom.
func WithHijackPolicy(mode, expr string) PolicyOption {
	return func(p *SessionPolicy) {
		p.hijackMode = mode
		p.hijackExpr = expr
	}
}

func WithGeoTimeout(d time.Duration) PolicyOption {
	return func(p *SessionPolicy) { p.geoTimeout = d }
}

func (p SessionPolicy) MaxConcurrent() int        { return p.maxConcurrent }
func (p SessionPolicy) SessionTTL() time.Duration { return p.sessionTTL }
func (p SessionPolicy) HistoryLimit() int         { return p.historyLimit }
func (p SessionPolicy) HijackMode() string        { return p.hijackMode }
func (p SessionPolicy) HijackExpression() string  { return p.hijackExpr }
func (p SessionPolicy) GeoTimeout() time.Duration { return p.geoTimeout }
