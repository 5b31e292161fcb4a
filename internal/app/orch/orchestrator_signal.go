package orch

import (
	"github.com/dkeye/voicehub/internal/app"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

// RelayOffer forwards an SDP offer from one participant to another of the same session.
func (o *Orchestrator) RelayOffer(chatID domain.ChatID, from, to domain.UserID, payload any) bool {
	return o.relaySignal(chatID, from, to, core.EventReceiveOffer, payload)
}

func (o *Orchestrator) RelayAnswer(chatID domain.ChatID, from, to domain.UserID, payload any) bool {
	return o.relaySignal(chatID, from, to, core.EventReceiveAnswer, payload)
}

func (o *Orchestrator) RelayIceCandidate(chatID domain.ChatID, from, to domain.UserID, payload any) bool {
	return o.relaySignal(chatID, from, to, core.EventReceiveIceCandidate, payload)
}

// relaySignal drops the payload silently unless both ends are participants
// of the chat's session. The target is addressed on its voice connection.
func (o *Orchestrator) relaySignal(chatID domain.ChatID, from, to domain.UserID, event string, payload any) bool {
	if from == to {
		return false
	}
	delivered := false
	o.Sessions.WithSession(chatID, func(s *app.Session) {
		if _, ok := s.Participant(from); !ok {
			return
		}
		delivered = o.Relay.ToMember(s, to, event, core.SignalEvent{ChatID: chatID, From: from, Payload: payload})
	})
	if !delivered {
		log.Debug().Str("module", "orch").Str("chat", string(chatID)).Str("from", string(from)).Str("to", string(to)).Str("event", event).Msg("signal dropped")
	}
	return delivered
}

// RelayToSessionMember delivers to one participant's voice connection, or drops silently.
func (o *Orchestrator) RelayToSessionMember(chatID domain.ChatID, target domain.UserID, event string, payload any) bool {
	delivered := false
	o.Sessions.WithSession(chatID, func(s *app.Session) {
		delivered = o.Relay.ToMember(s, target, event, payload)
	})
	return delivered
}

// BroadcastToSession delivers to every participant but exclude (may be empty).
func (o *Orchestrator) BroadcastToSession(chatID domain.ChatID, event string, payload any, exclude domain.UserID) int {
	n := 0
	o.Sessions.WithSession(chatID, func(s *app.Session) {
		n = o.Relay.BroadcastSession(s, event, payload, exclude)
	})
	return n
}
