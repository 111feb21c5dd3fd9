// Package metrics exposes session lifecycle counters to Prometheus.
package metrics

import (
	"context"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "secure_auth"

// SessionMetrics is a usecase.SessionObserver backed by Prometheus counters.
type SessionMetrics struct {
	issued      prometheus.Counter
	revoked     *prometheus.CounterVec
	validations *prometheus.CounterVec
	hijacks     prometheus.Counter
}

// NewSessionMetrics registers the session counters on reg.
func NewSessionMetrics(reg prometheus.Registerer) *SessionMetrics {
	factory := promauto.With(reg)
	return &SessionMetrics{
		issued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_issued_total",
			Help:      "Sessions created by register or login.",
		}),
		revoked: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_revoked_total",
			Help:      "Sessions that left the active state, by revocation reason.",
		}, []string{"reason"}),
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_validations_total",
			Help:      "Session validations, by outcome.",
		}, []string{"result"}),
		hijacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hijack_detections_total",
			Help:      "Requests whose client fingerprint failed the hijack policy.",
		}),
	}
}

func (m *SessionMetrics) SessionIssued(context.Context, *model.Session) {
	m.issued.Inc()
}

// SessionsRevoked adds the number of sessions that actually changed state.
func (m *SessionMetrics) SessionsRevoked(_ context.Context, rev usecase.Revocation) {
	if rev.Count <= 0 {
		return
	}
	m.revoked.WithLabelValues(rev.Reason).Add(float64(rev.Count))
}

func (m *SessionMetrics) ValidationCompleted(_ context.Context, outcome string) {
	m.validations.WithLabelValues(outcome).Inc()
}

func (m *SessionMetrics) HijackDetected(context.Context, usecase.HijackSignal) {
	m.hijacks.Inc()
}

var _ usecase.SessionObserver = (*SessionMetrics)(nil)
