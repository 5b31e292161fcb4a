package signal

import (
	"sync"
	"time"

	"github.com/dkeye/voicehub/internal/domain"
)

// RateLimiter allows at most limit attempts per user within a sliding window.
// Users whose attempts all fell out of the window are forgotten on the next sweep.
type RateLimiter struct {
	mu        sync.Mutex
	attempts  map[domain.UserID][]time.Time
	limit     int
	window    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		attempts: make(map[domain.UserID][]time.Time),
		limit:    limit,
		window:   window,
		now:      time.Now,
	}
}

func (rl *RateLimiter) Allow(uid domain.UserID) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cutoff := now.Add(-rl.window)
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(cutoff)
		rl.lastSweep = now
	}

	recent := inWindow(rl.attempts[uid], cutoff)
	if len(recent) >= rl.limit {
		rl.attempts[uid] = recent
		return false
	}
	rl.attempts[uid] = append(recent, now)
	return true
}

// Len reports how many users are tracked.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.attempts)
}

func (rl *RateLimiter) sweep(cutoff time.Time) {
	for uid, ts := range rl.attempts {
		if len(inWindow(ts, cutoff)) == 0 {
			delete(rl.attempts, uid)
		}
	}
}

// inWindow drops attempts at or before cutoff, reusing ts.
func inWindow(ts []time.Time, cutoff time.Time) []time.Time {
	kept := ts[:0]
	for _, t := range ts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	return kept
}
