package app

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler() *TimeoutScheduler[string] {
	return NewTimeoutScheduler[string]("test", hashString[string])
}

func TestTimeoutScheduler_Fires(t *testing.T) {
	s := newTestScheduler()
	var got atomic.Uint64
	tok := s.Arm("k", 10*time.Millisecond, func(tok Token) { got.Store(uint64(tok)) })
	require.NotZero(t, tok)

	require.Eventually(t, func() bool { return got.Load() == uint64(tok) }, time.Second, 5*time.Millisecond)
	_, pending := s.Pending("k")
	assert.False(t, pending)
}

func TestTimeoutScheduler_CancelBeforeFire(t *testing.T) {
	s := newTestScheduler()
	var fired atomic.Bool
	s.Arm("k", 30*time.Millisecond, func(Token) { fired.Store(true) })

	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Cancel("k"))
	time.Sleep(80 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestTimeoutScheduler_RearmInvalidatesOldToken(t *testing.T) {
	s := newTestScheduler()
	var calls atomic.Int32
	old := s.Arm("k", time.Hour, func(Token) { calls.Add(1) })
	cur := s.Arm("k", time.Hour, func(Token) { calls.Add(1) })
	require.NotEqual(t, old, cur)

	assert.False(t, s.CancelToken("k", old))
	tok, ok := s.Pending("k")
	require.True(t, ok)
	assert.Equal(t, cur, tok)

	assert.False(t, s.CancelToken("k", 0))
	assert.True(t, s.CancelToken("k", cur))
	assert.Zero(t, calls.Load())
}

func TestTimeoutScheduler_StaleFireIsIgnored(t *testing.T) {
	s := newTestScheduler()
	var calls atomic.Int32
	old := s.Arm("k", time.Hour, func(Token) { calls.Add(1) })
	s.Arm("k", time.Hour, func(Token) { calls.Add(1) })

	s.fire("k", old, func(Token) { calls.Add(1) })
	assert.Zero(t, calls.Load())
	_, ok := s.Pending("k")
	assert.True(t, ok)
	s.Stop()
}

func TestTimeoutScheduler_Stop(t *testing.T) {
	s := newTestScheduler()
	var fired atomic.Bool
	s.Arm("a", 20*time.Millisecond, func(Token) { fired.Store(true) })
	s.Arm("b", 20*time.Millisecond, func(Token) { fired.Store(true) })
	s.Stop()

	assert.Zero(t, s.Arm("c", time.Millisecond, func(Token) { fired.Store(true) }))
	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}
