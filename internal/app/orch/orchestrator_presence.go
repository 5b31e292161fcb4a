package orch

import (
	"context"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

// OnConnected registers conn and tells the user's contacts on the offline→online edge.
func (o *Orchestrator) OnConnected(ctx context.Context, user domain.User, conn core.ConnID) bool {
	first := o.Registry.Connect(user.ID, conn)
	if user.Username != "" {
		if err := o.Registry.UpdateUsername(user.ID, user.Username); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("user", string(user.ID)).Msg("keep previous username")
		}
	}
	if first {
		o.notifyContacts(ctx, user.ID, core.EventUserOnline, true)
	}
	return first
}

// OnDisconnected unregisters conn and leaves the voice session bound to it.
// Calls rung from conn are canceled. When it was the user's last connection,
// every pending call of the user is canceled and contacts are told.
//
// The registry is updated before the session is checked: AcceptCall joins a
// caller and then re-checks the registry, so one of the two sees the other.
func (o *Orchestrator) OnDisconnected(ctx context.Context, uid domain.UserID, conn core.ConnID) {
	offline := o.Registry.Disconnect(uid, conn)
	if chatID, voiceConn, ok := o.Sessions.MembershipOf(uid); ok && voiceConn == conn {
		o.leave(ctx, chatID, uid, conn, core.ReasonDisconnected)
	}
	if !offline {
		for _, c := range o.Calls.TakeRungFrom(uid, conn) {
			o.Relay.SendToUser(c.Callee, core.EventCallCanceled, callEvent(c.CallInvitation, core.ReasonDisconnected))
			o.Metrics.IncCall("canceled")
		}
		return
	}
	for _, c := range o.Calls.TakeAllFor(uid) {
		ev := callEvent(c.CallInvitation, core.ReasonOffline)
		if c.Caller == uid {
			o.Relay.SendToUser(c.Callee, core.EventCallCanceled, ev)
		} else {
			o.Relay.SendToUser(c.Caller, core.EventCallRejected, ev)
		}
		o.Metrics.IncCall("offline")
	}
	o.notifyContacts(ctx, uid, core.EventUserOffline, false)
}

// Rename updates the display name used in new joins and call invitations.
func (o *Orchestrator) Rename(uid domain.UserID, name string) error {
	return o.Registry.UpdateUsername(uid, name)
}

func (o *Orchestrator) IsOnline(uid domain.UserID) bool {
	return o.Registry.IsOnline(uid)
}

func (o *Orchestrator) notifyContacts(ctx context.Context, uid domain.UserID, event string, online bool) {
	contacts, err := o.Directory.ResolveContacts(ctx, uid)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("user", string(uid)).Msg("resolve contacts")
		return
	}
	o.Relay.BroadcastToUsers(ctx, contacts, event, core.PresenceEvent{UserID: uid, Online: online})
}
