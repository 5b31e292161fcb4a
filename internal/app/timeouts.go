package app

import (
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Token identifies one arm cycle. Zero means "not armed".
type Token uint64

type armedTimer struct {
	token Token
	timer *time.Timer
}

// TimeoutScheduler runs at most one delayed action per key.
//
// Every Arm issues a fresh Token; Cancel and re-Arm invalidate the previous one.
// A fired timer only runs its callback if its token is still the current one,
// so a callback canceled before it was claimed never runs. Callbacks that were
// already claimed when a Cancel raced them must re-check their own condition.
type TimeoutScheduler[K comparable] struct {
	timers  *shardedMap[K, armedTimer]
	next    atomic.Uint64
	stopped atomic.Bool
	name    string
}

func NewTimeoutScheduler[K comparable](name string, hash func(K) uint64) *TimeoutScheduler[K] {
	return &TimeoutScheduler[K]{
		timers: newShardedMap[K, armedTimer](defaultShards, hash),
		name:   name,
	}
}

// Arm cancels any timer for key and schedules onExpire after d.
func (s *TimeoutScheduler[K]) Arm(key K, d time.Duration, onExpire func(Token)) Token {
	if s.stopped.Load() {
		return 0
	}
	tok := Token(s.next.Add(1))

	sh := s.timers.shardOf(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if old, ok := sh.m[key]; ok {
		old.timer.Stop()
	}
	sh.m[key] = armedTimer{
		token: tok,
		timer: time.AfterFunc(d, func() { s.fire(key, tok, onExpire) }),
	}
	log.Debug().Str("module", "app.timeouts").Str("scheduler", s.name).Any("key", key).Dur("after", d).Uint64("token", uint64(tok)).Msg("armed")
	return tok
}

// Cancel drops the timer for key, whatever its token. Safe when nothing is armed.
func (s *TimeoutScheduler[K]) Cancel(key K) bool {
	return s.cancel(key, 0)
}

// CancelToken drops the timer for key only if tok is still the armed one,
// so a stale owner cannot cancel a newer arm cycle.
func (s *TimeoutScheduler[K]) CancelToken(key K, tok Token) bool {
	if tok == 0 {
		return false
	}
	return s.cancel(key, tok)
}

func (s *TimeoutScheduler[K]) cancel(key K, tok Token) bool {
	sh := s.timers.shardOf(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	a, ok := sh.m[key]
	if !ok || (tok != 0 && a.token != tok) {
		return false
	}
	a.timer.Stop()
	delete(sh.m, key)
	log.Debug().Str("module", "app.timeouts").Str("scheduler", s.name).Any("key", key).Uint64("token", uint64(a.token)).Msg("canceled")
	return true
}

// Pending returns the armed token for key.
func (s *TimeoutScheduler[K]) Pending(key K) (Token, bool) {
	a, ok := s.timers.get(key)
	return a.token, ok
}

// Stop cancels every timer; later Arm calls are ignored.
func (s *TimeoutScheduler[K]) Stop() {
	s.stopped.Store(true)
	for i := range s.timers.shards {
		sh := &s.timers.shards[i]
		sh.mu.Lock()
		for k, a := range sh.m {
			a.timer.Stop()
			delete(sh.m, k)
		}
		sh.mu.Unlock()
	}
}

func (s *TimeoutScheduler[K]) fire(key K, tok Token, onExpire func(Token)) {
	sh := s.timers.shardOf(key)
	sh.mu.Lock()
	a, ok := sh.m[key]
	if !ok || a.token != tok {
		sh.mu.Unlock()
		return
	}
	delete(sh.m, key)
	sh.mu.Unlock()

	log.Debug().Str("module", "app.timeouts").Str("scheduler", s.name).Any("key", key).Uint64("token", uint64(tok)).Msg("fired")
	onExpire(tok)
}
