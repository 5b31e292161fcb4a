package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector("test", prometheus.NewRegistry())

	c.IncRelayed("ParticipantJoined")
	c.IncRelayed("ParticipantJoined")
	c.IncDropped("backpressure")
	c.IncCall("accepted")
	c.IncSessionTimeout()
	c.IncSessionCreated()

	assert.Equal(t, 2.0, testutil.ToFloat64(c.relayed.WithLabelValues("ParticipantJoined")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.dropped.WithLabelValues("backpressure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.calls.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.timeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sessionsOpened))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.IncRelayed("x")
		c.IncDropped("x")
		c.IncCall("x")
		c.IncSessionTimeout()
		c.IncSessionCreated()
		c.Observe("", StateSource{})
	})
}

func TestCollector_ObserveAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg)
	online := 3
	c.Observe("test", StateSource{
		OnlineUsers:  func() int { return online },
		Sessions:     func() int { return 1 },
		Participants: func() int { return 2 },
	})

	n, err := testutil.GatherAndCount(reg, "test_online_users", "test_voice_sessions", "test_voice_participants")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "test_online_users 3"))
}
