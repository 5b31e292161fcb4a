package orch

import (
	"slices"
	"testing"
	"time"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/core/coretest"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callFixture(t *testing.T, cfg Config) *fixture {
	f := newFixture(t, cfg, chat("a", "b", "c"))
	f.connect("a")
	f.connect("b")
	f.connectOn("b", "cb2")
	return f
}

func reasonOf(d coretest.Delivery) string {
	return d.Payload.(core.CallEvent).Reason
}

func TestCall_RingAndAccept(t *testing.T) {
	f := callFixture(t, Config{})

	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))
	assert.Len(t, f.out.To("cb", core.EventIncomingCall), 1)
	assert.Len(t, f.out.To("cb2", core.EventIncomingCall), 1)
	incoming := f.out.To("cb", core.EventIncomingCall)[0].Payload.(core.CallEvent)
	assert.Equal(t, "a", incoming.CallerName)

	snap, ok, err := f.o.AcceptCall(f.ctx, "c1", "a", "b", "cb")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, snap.Count)
	assert.True(t, snap.Has("a"))
	assert.True(t, snap.Has("b"))

	canceled := f.out.To("cb2", core.EventCallCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, core.ReasonAnsweredElsewhere, reasonOf(canceled[0]))
	assert.Empty(t, f.out.To("cb", core.EventCallCanceled))

	events := f.out.Events("ca")
	accepted := slices.Index(events, core.EventCallAccepted)
	state := slices.Index(events, core.EventVoiceSessionState)
	require.NotEqual(t, -1, accepted)
	require.NotEqual(t, -1, state)
	assert.Less(t, accepted, state)

	_, ok, err = f.o.AcceptCall(f.ctx, "c1", "a", "b", "cb")
	assert.NoError(t, err)
	assert.False(t, ok, "a call resolves once")
}

func TestCall_RingIsIdempotent(t *testing.T) {
	f := callFixture(t, Config{})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))
	assert.Len(t, f.out.To("cb", core.EventIncomingCall), 1)
}

func TestCall_BusyCallee(t *testing.T) {
	f := callFixture(t, Config{})
	_, err := f.o.JoinOrCreateSession(f.ctx, "c2", "b", "b", "cb")
	require.NoError(t, err)

	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))
	rejected := f.out.To("ca", core.EventCallRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, core.ReasonBusy, reasonOf(rejected[0]))
	assert.Empty(t, f.out.To("cb", core.EventIncomingCall))
	assert.Zero(t, f.o.Calls.Len())
}

func TestCall_CalleeBusyAtAccept(t *testing.T) {
	f := callFixture(t, Config{})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))
	_, err := f.o.JoinOrCreateSession(f.ctx, "c2", "b", "b", "cb2")
	require.NoError(t, err)

	_, ok, err := f.o.AcceptCall(f.ctx, "c1", "a", "b", "cb")
	assert.True(t, ok)
	assert.ErrorIs(t, err, domain.ErrAlreadyInAnotherSession)

	rejected := f.out.To("ca", core.EventCallRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, core.ReasonBusy, reasonOf(rejected[0]))
	_, ok = f.o.GetSession("c1")
	assert.False(t, ok)
}

func TestCall_OfflineCallee(t *testing.T) {
	f := callFixture(t, Config{})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "c", "ca"))
	rejected := f.out.To("ca", core.EventCallRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, core.ReasonOffline, reasonOf(rejected[0]))
	assert.Zero(t, f.o.Calls.Len())
}

func TestCall_Reject(t *testing.T) {
	f := callFixture(t, Config{})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))

	require.True(t, f.o.RejectCall(f.ctx, "c1", "a", "b", "cb"))
	rejected := f.out.To("ca", core.EventCallRejected)
	require.Len(t, rejected, 1)
	assert.Equal(t, core.ReasonDeclined, reasonOf(rejected[0]))
	assert.Len(t, f.out.To("cb2", core.EventCallCanceled), 1)
	assert.False(t, f.o.RejectCall(f.ctx, "c1", "a", "b", "cb"))
}

func TestCall_Cancel(t *testing.T) {
	f := callFixture(t, Config{})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))

	require.True(t, f.o.CancelCall(f.ctx, "c1", "a", "b"))
	for _, conn := range []core.ConnID{"cb", "cb2"} {
		canceled := f.out.To(conn, core.EventCallCanceled)
		require.Len(t, canceled, 1)
		assert.Equal(t, core.ReasonCanceled, reasonOf(canceled[0]))
	}
	assert.False(t, f.o.CancelCall(f.ctx, "c1", "a", "b"))
}

func TestCall_RingTimeout(t *testing.T) {
	f := callFixture(t, Config{RingTimeout: 20 * time.Millisecond})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))

	require.Eventually(t, func() bool {
		return len(f.out.To("ca", core.EventCallTimedOut)) == 1 &&
			len(f.out.To("cb", core.EventCallCanceled)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, core.ReasonTimeout, reasonOf(f.out.To("cb", core.EventCallCanceled)[0]))

	_, ok, _ := f.o.AcceptCall(f.ctx, "c1", "a", "b", "cb")
	assert.False(t, ok)
}

func TestCall_CallerGoesOffline(t *testing.T) {
	f := callFixture(t, Config{})
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))

	f.o.OnDisconnected(f.ctx, "a", "ca")
	canceled := f.out.To("cb", core.EventCallCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, core.ReasonOffline, reasonOf(canceled[0]))
	assert.Zero(t, f.o.Calls.Len())
}

func TestCall_Validation(t *testing.T) {
	f := callFixture(t, Config{})
	assert.ErrorIs(t, f.o.RingUser(f.ctx, "c1", "a", "a", "ca"), domain.ErrSelfCall)
	assert.ErrorIs(t, f.o.RingUser(f.ctx, "c1", "a", "stranger", "ca"), domain.ErrNotChatMember)

	_, err := f.o.JoinOrCreateSession(f.ctx, "c2", "a", "a", "ca")
	require.NoError(t, err)
	assert.ErrorIs(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"), domain.ErrAlreadyInAnotherSession)
}

func TestCall_RingingTabClosedWhileCallerStaysOnline(t *testing.T) {
	f := callFixture(t, Config{})
	f.connectOn("a", "ca2")
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))

	f.o.OnDisconnected(f.ctx, "a", "ca")
	require.True(t, f.o.IsOnline("a"))
	for _, conn := range []core.ConnID{"cb", "cb2"} {
		canceled := f.out.To(conn, core.EventCallCanceled)
		require.Len(t, canceled, 1)
		assert.Equal(t, core.ReasonDisconnected, reasonOf(canceled[0]))
	}
	assert.Zero(t, f.o.Calls.Len())
	assert.Empty(t, f.out.To("cb", core.EventUserOffline))

	_, ok, err := f.o.AcceptCall(f.ctx, "c1", "a", "b", "cb")
	require.NoError(t, err)
	assert.False(t, ok)
	_, _, inVoice := f.o.SessionOf("a")
	assert.False(t, inVoice)

	_, err = f.o.JoinOrCreateSession(f.ctx, "c2", "a", "a", "ca2")
	assert.NoError(t, err, "caller is free to join from the live device")
}

func TestCall_AcceptAfterRingingConnectionDropped(t *testing.T) {
	f := callFixture(t, Config{})
	f.connectOn("a", "ca2")
	require.NoError(t, f.o.RingUser(f.ctx, "c1", "a", "b", "ca"))

	// registry already updated, disconnect path not finished yet
	f.o.Registry.Disconnect("a", "ca")

	_, ok, err := f.o.AcceptCall(f.ctx, "c1", "a", "b", "cb")
	require.NoError(t, err)
	assert.False(t, ok)
	canceled := f.out.To("cb", core.EventCallCanceled)
	require.Len(t, canceled, 1)
	assert.Equal(t, core.ReasonDisconnected, reasonOf(canceled[0]))
	assert.Empty(t, f.out.To("ca2", core.EventCallAccepted))

	_, live := f.o.GetSession("c1")
	assert.False(t, live)
	_, _, inVoice := f.o.SessionOf("a")
	assert.False(t, inVoice)
}
