package app

import (
	"testing"
	"time"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invite(chat, caller, callee string) PendingCall {
	return PendingCall{
		CallInvitation: domain.CallInvitation{
			ChatID: domain.ChatID(chat),
			Caller: domain.UserID(caller),
			Callee: domain.UserID(callee),
		},
		CallerConn: core.ConnID("conn-" + caller),
	}
}

func TestCallBook_ResolvesOnce(t *testing.T) {
	b := NewCallBook(time.Hour, nil)
	defer b.Stop()

	require.True(t, b.Ring(invite("dm", "a", "b")))
	assert.False(t, b.Ring(invite("dm", "a", "b")), "already ringing")

	_, ok := b.Peek("dm", "a", "b")
	assert.True(t, ok)

	c, ok := b.Take("dm", "a", "b")
	require.True(t, ok)
	assert.Equal(t, domain.UserID("b"), c.Callee)

	_, ok = b.Take("dm", "a", "b")
	assert.False(t, ok)
	assert.Zero(t, b.Len())
}

func TestCallBook_RingTimeout(t *testing.T) {
	timedOut := make(chan PendingCall, 1)
	b := NewCallBook(20*time.Millisecond, func(c PendingCall) { timedOut <- c })
	defer b.Stop()

	require.True(t, b.Ring(invite("dm", "a", "b")))
	select {
	case c := <-timedOut:
		assert.Equal(t, domain.UserID("a"), c.Caller)
	case <-time.After(time.Second):
		t.Fatal("ring did not time out")
	}
	_, ok := b.Take("dm", "a", "b")
	assert.False(t, ok)
}

func TestCallBook_TakeBeforeTimeout(t *testing.T) {
	timedOut := make(chan PendingCall, 1)
	b := NewCallBook(30*time.Millisecond, func(c PendingCall) { timedOut <- c })
	defer b.Stop()

	b.Ring(invite("dm", "a", "b"))
	_, ok := b.Take("dm", "a", "b")
	require.True(t, ok)

	select {
	case <-timedOut:
		t.Fatal("resolved call timed out")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestCallBook_TakeAllFor(t *testing.T) {
	b := NewCallBook(time.Hour, nil)
	defer b.Stop()
	b.Ring(invite("dm1", "a", "b"))
	b.Ring(invite("dm2", "c", "a"))
	b.Ring(invite("dm3", "c", "d"))

	got := b.TakeAllFor("a")
	assert.Len(t, got, 2)
	assert.Equal(t, 1, b.Len())
}

func TestCallBook_TakeRungFrom(t *testing.T) {
	b := NewCallBook(time.Hour, nil)
	defer b.Stop()
	fromPhone := invite("dm2", "a", "c")
	fromPhone.CallerConn = "phone"
	b.Ring(invite("dm1", "a", "b"))
	b.Ring(fromPhone)
	b.Ring(invite("dm3", "b", "a"))

	got := b.TakeRungFrom("a", "conn-a")
	require.Len(t, got, 1)
	assert.Equal(t, domain.UserID("b"), got[0].Callee)
	assert.Equal(t, 2, b.Len(), "calls from other devices and incoming calls stay")

	assert.Empty(t, b.TakeRungFrom("a", "conn-a"))
}
