package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/core/coretest"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/dkeye/voicehub/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRelay_SendToUserReachesEveryConnection(t *testing.T) {
	rec := coretest.NewRecorder()
	reg := NewRegistry()
	reg.Connect("u1", "c1")
	reg.Connect("u1", "c2")
	r := NewRelay(rec, reg, nil, nil, 0)

	assert.Equal(t, 2, r.SendToUser("u1", core.EventUserOnline, nil))
	assert.Equal(t, 1, r.SendToUserExcept("u1", "c1", core.EventUserOnline, nil))
	assert.Zero(t, r.SendToUser("offline", core.EventUserOnline, nil))
	assert.Len(t, rec.To("c1"), 1)
	assert.Len(t, rec.To("c2"), 2)
}

func TestRelay_BackpressurePolicy(t *testing.T) {
	rec := coretest.NewRecorder()
	promReg := prometheus.NewRegistry()
	m := metrics.NewCollector("test", promReg)
	r := NewRelay(rec, NewRegistry(), SimplePolicy{}, m, 0)
	rec.SetFull("slow", true)

	assert.False(t, r.SendToConnection("slow", core.EventParticipantStartedSpeaking, nil))
	assert.Empty(t, rec.Closed(), "indicator events are dropped")

	assert.False(t, r.SendToConnection("slow", core.EventParticipantJoined, nil))
	assert.Equal(t, []core.ConnID{"slow"}, rec.Closed())

	assert.True(t, r.SendToConnection("fast", core.EventParticipantJoined, nil))

	expected := `
# HELP test_deliveries_dropped_total Events that could not be delivered, by reason.
# TYPE test_deliveries_dropped_total counter
test_deliveries_dropped_total{reason="backpressure_close"} 1
test_deliveries_dropped_total{reason="backpressure_drop"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(promReg, strings.NewReader(expected), "test_deliveries_dropped_total"))
}

func TestRelay_BroadcastSessionExcludesSender(t *testing.T) {
	rec := coretest.NewRecorder()
	r := NewRelay(rec, NewRegistry(), nil, nil, 0)
	st := NewSessionStore(time.Hour, nil)
	for _, uid := range []string{"a", "b", "c"} {
		_, err := st.AddParticipant("chat", participant(uid, "c"+uid), nil)
		require.NoError(t, err)
	}

	st.WithSession("chat", func(s *Session) {
		assert.Equal(t, 2, r.BroadcastSession(s, core.EventParticipantMuteChanged, nil, "a"))
		assert.True(t, r.ToMember(s, "b", core.EventReceiveOffer, nil))
		assert.False(t, r.ToMember(s, "ghost", core.EventReceiveOffer, nil))
	})

	assert.Empty(t, rec.To("ca"))
	assert.Equal(t, []string{core.EventParticipantMuteChanged, core.EventReceiveOffer}, rec.Events("cb"))
	assert.Equal(t, []string{core.EventParticipantMuteChanged}, rec.Events("cc"))
}

func TestRelay_BroadcastToUsers(t *testing.T) {
	rec := coretest.NewRecorder()
	reg := NewRegistry()
	users := make([]domain.UserID, 0, 40)
	for i := range 40 {
		uid := domain.UserID(string(rune('A' + i)))
		reg.Connect(uid, core.ConnID("conn-"+string(uid)))
		users = append(users, uid)
	}
	r := NewRelay(rec, reg, nil, nil, 4)

	r.BroadcastToUsers(context.Background(), users, core.EventVoiceSessionActive, nil)
	assert.Equal(t, 40, rec.Count(core.EventVoiceSessionActive))
}
