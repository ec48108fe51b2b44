package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.AuthEvent(EventLogin, "ok")
	m.AuthEvent(EventLogin, "ok")
	m.AuthEvent(EventLogin, "BadCredentials")
	m.ObserveRequest("POST", "/api/auth/login", "200", 0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.authEvents.WithLabelValues(EventLogin, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authEvents.WithLabelValues(EventLogin, "BadCredentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/auth/login", "200")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthEvent(EventToken, "ok")
		m.ObserveRequest("GET", "/", "200", 0)
	})
}
