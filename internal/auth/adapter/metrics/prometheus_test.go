package metrics

import (
	"context"
	"strings"
	"testing"

	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMetrics_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	ctx := context.Background()

	m.SessionIssued(ctx, &model.Session{SessionID: "s1"})
	m.SessionIssued(ctx, &model.Session{SessionID: "s2"})
	m.SessionsRevoked(ctx, usecase.Revocation{Reason: model.RevokeReasonLogoutAll, Count: 3})
	m.SessionsRevoked(ctx, usecase.Revocation{Reason: model.RevokeReasonLogout, Count: 1})
	m.SessionsRevoked(ctx, usecase.Revocation{Reason: model.RevokeReasonLogout, Count: 0})
	m.ValidationCompleted(ctx, usecase.OutcomeOK)
	m.ValidationCompleted(ctx, usecase.OutcomeOK)
	m.ValidationCompleted(ctx, usecase.OutcomeTerminated)
	m.HijackDetected(ctx, usecase.HijackSignal{})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.issued))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.revoked.WithLabelValues(model.RevokeReasonLogoutAll)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.revoked.WithLabelValues(model.RevokeReasonLogout)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.validations.WithLabelValues(usecase.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validations.WithLabelValues(usecase.OutcomeTerminated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.hijacks))
}

func TestSessionMetrics_Exposition(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSessionMetrics(reg)
	m.HijackDetected(context.Background(), usecase.HijackSignal{})

	expected := `
# HELP secure_auth_hijack_detections_total Requests whose client fingerprint failed the hijack policy.
# TYPE secure_auth_hijack_detections_total counter
secure_auth_hijack_detections_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "secure_auth_hijack_detections_total"))
}

func TestSessionMetrics_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewSessionMetrics(reg)
	assert.Panics(t, func() { NewSessionMetrics(reg) })
}
