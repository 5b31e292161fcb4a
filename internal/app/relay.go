package app

import (
	"context"
	"errors"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/dkeye/voicehub/internal/metrics"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const defaultFanOut = 16

// Relay routes events to connections resolved from users, sessions and chats.
// Delivery is best effort and never blocks on a slow peer.
type Relay struct {
	out      core.Deliverer
	registry *Registry
	policy   Policy
	metrics  *metrics.Collector
	fanOut   int
}

func NewRelay(out core.Deliverer, registry *Registry, policy Policy, m *metrics.Collector, fanOut int) *Relay {
	if policy == nil {
		policy = SimplePolicy{}
	}
	if fanOut <= 0 {
		fanOut = defaultFanOut
	}
	return &Relay{out: out, registry: registry, policy: policy, metrics: m, fanOut: fanOut}
}

// SendToConnection delivers to exactly one connection.
func (r *Relay) SendToConnection(conn core.ConnID, event string, payload any) bool {
	return r.deliver(conn, event, payload)
}

// SendToUser delivers to every connection of the user. Offline users are skipped silently.
func (r *Relay) SendToUser(uid domain.UserID, event string, payload any) int {
	return r.sendToUserExcept(uid, "", event, payload)
}

func (r *Relay) sendToUserExcept(uid domain.UserID, skip core.ConnID, event string, payload any) int {
	n := 0
	for _, c := range r.registry.ResolveConnections(uid) {
		if c == skip {
			continue
		}
		if r.deliver(c, event, payload) {
			n++
		}
	}
	return n
}

// SendToUserExcept is SendToUser minus one connection (the one that acted).
func (r *Relay) SendToUserExcept(uid domain.UserID, skip core.ConnID, event string, payload any) int {
	return r.sendToUserExcept(uid, skip, event, payload)
}

// BroadcastSession sends to every participant's voice connection but exclude.
// Call it from a session hook so that broadcasts follow mutation order.
func (r *Relay) BroadcastSession(s *Session, event string, payload any, exclude domain.UserID) int {
	n := 0
	for _, p := range s.participants {
		if p.UserID == exclude {
			continue
		}
		if r.deliver(p.Conn, event, payload) {
			n++
		}
	}
	return n
}

// ToMember sends to one participant's voice connection. Non-participants get nothing.
func (r *Relay) ToMember(s *Session, target domain.UserID, event string, payload any) bool {
	p, ok := s.participants[target]
	if !ok {
		return false
	}
	return r.deliver(p.Conn, event, payload)
}

// BroadcastToUsers fans out to every connection of every user outside any lock.
func (r *Relay) BroadcastToUsers(ctx context.Context, users []domain.UserID, event string, payload any) {
	if len(users) == 0 {
		return
	}
	p := pool.New().WithMaxGoroutines(r.fanOut)
	for _, uid := range users {
		if ctx.Err() != nil {
			break
		}
		p.Go(func() { r.SendToUser(uid, event, payload) })
	}
	p.Wait()
}

func (r *Relay) deliver(conn core.ConnID, event string, payload any) bool {
	err := r.out.SendToConnection(conn, event, payload)
	if err == nil {
		r.metrics.IncRelayed(event)
		return true
	}
	switch {
	case errors.Is(err, core.ErrBackpressure):
		switch r.policy.OnBackPressure(conn, event) {
		case CloseConnection:
			r.metrics.IncDropped("backpressure_close")
			log.Warn().Str("module", "app.relay").Str("conn", string(conn)).Str("event", event).Msg("lagging connection closed")
			r.out.CloseConnection(conn)
		case DropEvent:
			r.metrics.IncDropped("backpressure_drop")
			log.Debug().Str("module", "app.relay").Str("conn", string(conn)).Str("event", event).Msg("event dropped")
		default:
			r.metrics.IncDropped("backpressure")
		}
	case errors.Is(err, core.ErrConnectionClosed), errors.Is(err, core.ErrUnknownConnection):
		r.metrics.IncDropped("closed")
	default:
		r.metrics.IncDropped("error")
		log.Error().Err(err).Str("module", "app.relay").Str("conn", string(conn)).Str("event", event).Msg("deliver failed")
	}
	return false
}
