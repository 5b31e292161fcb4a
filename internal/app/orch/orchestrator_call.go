package orch

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dkeye/voicehub/internal/app"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

// RingUser invites callee to talk in chatID. Both must be members of the chat.
// An offline or busy callee is answered right away with CallRejected.
// Ringing an already ringing pair does nothing.
func (o *Orchestrator) RingUser(ctx context.Context, chatID domain.ChatID, callerID, calleeID domain.UserID, callerConn core.ConnID) error {
	if callerID == calleeID {
		return domain.ErrSelfCall
	}
	if err := chatID.Validate(); err != nil {
		return err
	}
	for _, uid := range []domain.UserID{callerID, calleeID} {
		ok, err := o.Directory.IsUserMemberOfChat(ctx, chatID, uid)
		if err != nil {
			return fmt.Errorf("check chat membership: %w", err)
		}
		if !ok {
			return domain.ErrNotChatMember
		}
	}
	if chat, _, ok := o.Sessions.MembershipOf(callerID); ok && chat != chatID {
		return domain.ErrAlreadyInAnotherSession
	}

	inv := domain.CallInvitation{
		ChatID:     chatID,
		Caller:     callerID,
		CallerName: o.Registry.Username(callerID),
		Callee:     calleeID,
		CreatedAt:  o.now().UTC(),
	}
	ev := callEvent(inv, "")

	if !o.Registry.IsOnline(calleeID) {
		ev.Reason = core.ReasonOffline
		o.Relay.SendToConnection(callerConn, core.EventCallRejected, ev)
		o.Metrics.IncCall("offline")
		return nil
	}
	if chat, _, ok := o.Sessions.MembershipOf(calleeID); ok && chat != chatID {
		ev.Reason = core.ReasonBusy
		o.Relay.SendToConnection(callerConn, core.EventCallRejected, ev)
		o.Metrics.IncCall("busy")
		return nil
	}

	if !o.Calls.Ring(app.PendingCall{CallInvitation: inv, CallerConn: callerConn}) {
		return nil
	}
	o.Relay.SendToUser(calleeID, core.EventIncomingCall, ev)
	o.Metrics.IncCall("ringing")
	return nil
}

// AcceptCall resolves the invitation and joins callee, then caller, into the
// chat's voice session. It reports false when no such call is ringing or the
// connection the caller rang from has closed.
func (o *Orchestrator) AcceptCall(ctx context.Context, chatID domain.ChatID, callerID, calleeID domain.UserID, calleeConn core.ConnID) (core.SessionSnapshot, bool, error) {
	call, ok := o.Calls.Take(chatID, callerID, calleeID)
	if !ok {
		return core.SessionSnapshot{}, false, nil
	}
	ev := callEvent(call.CallInvitation, "")

	if !o.callerConnected(call) {
		o.Relay.SendToUser(calleeID, core.EventCallCanceled, callEvent(call.CallInvitation, core.ReasonDisconnected))
		o.Metrics.IncCall("canceled")
		return core.SessionSnapshot{}, false, nil
	}

	snap, err := o.JoinOrCreateSession(ctx, chatID, calleeID, o.Registry.Username(calleeID), calleeConn)
	if err != nil {
		ev.Reason = core.ReasonBusy
		if !errors.Is(err, domain.ErrAlreadyInAnotherSession) {
			ev.Reason = core.ReasonCanceled
		}
		o.Relay.SendToUser(callerID, core.EventCallRejected, ev)
		o.Metrics.IncCall(ev.Reason)
		return core.SessionSnapshot{}, true, err
	}

	o.Relay.SendToUserExcept(calleeID, calleeConn, core.EventCallCanceled, callEvent(call.CallInvitation, core.ReasonAnsweredElsewhere))
	o.Relay.SendToUser(callerID, core.EventCallAccepted, ev)
	o.Metrics.IncCall("accepted")

	callerSnap, err := o.JoinOrCreateSession(ctx, chatID, callerID, call.CallerName, call.CallerConn)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("chat", string(chatID)).Str("caller", string(callerID)).Msg("caller could not join accepted call")
		return snap, true, nil
	}
	if !o.callerConnected(call) {
		// the ringing connection closed while the caller was being joined
		o.leave(ctx, chatID, callerID, call.CallerConn, core.ReasonDisconnected)
		snap, _ = o.GetSession(chatID)
		return snap, true, nil
	}
	o.Relay.SendToConnection(call.CallerConn, core.EventVoiceSessionState, callerSnap)
	return callerSnap, true, nil
}

// callerConnected reports whether the connection the call was placed from is still open.
func (o *Orchestrator) callerConnected(call app.PendingCall) bool {
	return slices.Contains(o.Registry.ResolveConnections(call.Caller), call.CallerConn)
}

// RejectCall declines a ringing call. The callee's other devices stop ringing.
func (o *Orchestrator) RejectCall(_ context.Context, chatID domain.ChatID, callerID, calleeID domain.UserID, calleeConn core.ConnID) bool {
	call, ok := o.Calls.Take(chatID, callerID, calleeID)
	if !ok {
		return false
	}
	o.Relay.SendToUser(callerID, core.EventCallRejected, callEvent(call.CallInvitation, core.ReasonDeclined))
	o.Relay.SendToUserExcept(calleeID, calleeConn, core.EventCallCanceled, callEvent(call.CallInvitation, core.ReasonDeclined))
	o.Metrics.IncCall("declined")
	return true
}

// CancelCall withdraws a ringing call on the caller's side.
func (o *Orchestrator) CancelCall(_ context.Context, chatID domain.ChatID, callerID, calleeID domain.UserID) bool {
	call, ok := o.Calls.Take(chatID, callerID, calleeID)
	if !ok {
		return false
	}
	o.Relay.SendToUser(calleeID, core.EventCallCanceled, callEvent(call.CallInvitation, core.ReasonCanceled))
	o.Metrics.IncCall("canceled")
	return true
}

func (o *Orchestrator) onRingTimeout(call app.PendingCall) {
	o.Relay.SendToUser(call.Caller, core.EventCallTimedOut, callEvent(call.CallInvitation, core.ReasonTimeout))
	o.Relay.SendToUser(call.Callee, core.EventCallCanceled, callEvent(call.CallInvitation, core.ReasonTimeout))
	o.Metrics.IncCall("timeout")
}

func callEvent(inv domain.CallInvitation, reason string) core.CallEvent {
	return core.CallEvent{
		ChatID:     inv.ChatID,
		CallerID:   inv.Caller,
		CallerName: inv.CallerName,
		CalleeID:   inv.Callee,
		Reason:     reason,
	}
}
