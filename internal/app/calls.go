package app

import (
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

type callKey struct {
	chat   domain.ChatID
	caller domain.UserID
	callee domain.UserID
}

func hashCallKey(k callKey) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(string(k.chat))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(string(k.caller))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(string(k.callee))
	return d.Sum64()
}

// PendingCall is a ring that has not been answered yet.
type PendingCall struct {
	domain.CallInvitation
	CallerConn core.ConnID
}

type pendingEntry struct {
	call  PendingCall
	token Token
}

// CallBook tracks ringing invitations and expires them after a ring timeout.
// Each invitation resolves exactly once: accept, reject, cancel or timeout.
type CallBook struct {
	calls     *shardedMap[callKey, pendingEntry]
	timeouts  *TimeoutScheduler[callKey]
	ring      time.Duration
	onTimeout func(PendingCall)
}

func NewCallBook(ring time.Duration, onTimeout func(PendingCall)) *CallBook {
	return &CallBook{
		calls:     newShardedMap[callKey, pendingEntry](defaultShards, hashCallKey),
		timeouts:  NewTimeoutScheduler[callKey]("calls", hashCallKey),
		ring:      ring,
		onTimeout: onTimeout,
	}
}

func keyOf(chatID domain.ChatID, caller, callee domain.UserID) callKey {
	return callKey{chat: chatID, caller: caller, callee: callee}
}

// Ring records the invitation and starts its ring timer.
// A ring that is already pending for the same pair is not replaced.
func (b *CallBook) Ring(call PendingCall) bool {
	k := keyOf(call.ChatID, call.Caller, call.Callee)
	sh := b.calls.shardOf(k)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if _, ok := sh.m[k]; ok {
		return false
	}
	e := pendingEntry{call: call}
	if b.ring > 0 {
		e.token = b.timeouts.Arm(k, b.ring, func(tok Token) { b.expire(k, tok) })
	}
	sh.m[k] = e
	log.Info().Str("module", "app.calls").Str("chat", string(call.ChatID)).Str("caller", string(call.Caller)).Str("callee", string(call.Callee)).Msg("ringing")
	return true
}

func (b *CallBook) Peek(chatID domain.ChatID, caller, callee domain.UserID) (PendingCall, bool) {
	e, ok := b.calls.get(keyOf(chatID, caller, callee))
	return e.call, ok
}

// Take resolves the invitation. Only the first of concurrent resolvers gets it.
func (b *CallBook) Take(chatID domain.ChatID, caller, callee domain.UserID) (PendingCall, bool) {
	k := keyOf(chatID, caller, callee)
	sh := b.calls.shardOf(k)
	sh.mu.Lock()
	e, ok := sh.m[k]
	if ok {
		delete(sh.m, k)
	}
	sh.mu.Unlock()
	if !ok {
		return PendingCall{}, false
	}
	b.timeouts.CancelToken(k, e.token)
	return e.call, true
}

// TakeAllFor resolves every invitation where uid is caller or callee.
func (b *CallBook) TakeAllFor(uid domain.UserID) []PendingCall {
	return b.takeWhere(func(k callKey, _ pendingEntry) bool {
		return k.caller == uid || k.callee == uid
	})
}

// TakeRungFrom resolves every invitation uid placed from conn.
func (b *CallBook) TakeRungFrom(uid domain.UserID, conn core.ConnID) []PendingCall {
	return b.takeWhere(func(k callKey, e pendingEntry) bool {
		return k.caller == uid && e.call.CallerConn == conn
	})
}

func (b *CallBook) takeWhere(match func(callKey, pendingEntry) bool) []PendingCall {
	var keys []callKey
	b.calls.each(func(k callKey, e pendingEntry) {
		if match(k, e) {
			keys = append(keys, k)
		}
	})
	var out []PendingCall
	for _, k := range keys {
		if c, ok := b.Take(k.chat, k.caller, k.callee); ok {
			out = append(out, c)
		}
	}
	return out
}

func (b *CallBook) Len() int {
	n := 0
	b.calls.each(func(callKey, pendingEntry) { n++ })
	return n
}

func (b *CallBook) Stop() { b.timeouts.Stop() }

func (b *CallBook) expire(k callKey, tok Token) {
	sh := b.calls.shardOf(k)
	sh.mu.Lock()
	e, ok := sh.m[k]
	if !ok || e.token != tok {
		sh.mu.Unlock()
		return
	}
	delete(sh.m, k)
	sh.mu.Unlock()

	log.Info().Str("module", "app.calls").Str("chat", string(k.chat)).Str("caller", string(k.caller)).Str("callee", string(k.callee)).Msg("ring timed out")
	if b.onTimeout != nil {
		b.onTimeout(e.call)
	}
}
