package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/voicehub/internal/app"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

// JoinOrCreateSession authorizes the user and puts it into the chat's voice session.
//
// Peers get ParticipantJoined before the joiner gets its snapshot; chat
// watchers hear about it afterwards. Joining again from the same connection
// returns the current snapshot unchanged; joining from another connection
// moves the user's voice there and tells the old one it was displaced.
func (o *Orchestrator) JoinOrCreateSession(ctx context.Context, chatID domain.ChatID, uid domain.UserID, username string, conn core.ConnID) (core.SessionSnapshot, error) {
	if err := chatID.Validate(); err != nil {
		return core.SessionSnapshot{}, err
	}
	member, err := o.Directory.IsUserMemberOfChat(ctx, chatID, uid)
	if err != nil {
		return core.SessionSnapshot{}, fmt.Errorf("check chat membership: %w", err)
	}
	if !member {
		log.Info().Str("module", "orch").Str("user", string(uid)).Str("chat", string(chatID)).Msg("join rejected: not a chat member")
		return core.SessionSnapshot{}, domain.ErrNotChatMember
	}
	if username == "" {
		username = o.Registry.Username(uid)
	}

	var (
		snap core.SessionSnapshot
		seq  uint64
	)
	p := core.Participant{UserID: uid, Username: username, Conn: conn, JoinedAt: o.now().UTC()}
	res, err := o.Sessions.AddParticipant(chatID, p, func(s *app.Session, res app.JoinResult) {
		switch res.Outcome {
		case app.JoinAdded:
			joined, _ := s.Participant(uid)
			o.Relay.BroadcastSession(s, core.EventParticipantJoined, core.ParticipantJoinedEvent{
				ChatID: chatID, SessionID: s.ID(), Participant: joined.DTO(), Count: s.Count(),
			}, uid)
			o.emitTimeoutChange(s, res.Timeout)
		case app.JoinDisplaced:
			o.Relay.SendToConnection(res.PreviousConn, core.EventVoiceSessionDisplaced, core.DisplacedEvent{ChatID: chatID, SessionID: s.ID()})
			joined, _ := s.Participant(uid)
			o.Relay.BroadcastSession(s, core.EventParticipantJoined, core.ParticipantJoinedEvent{
				ChatID: chatID, SessionID: s.ID(), Participant: joined.DTO(), Count: s.Count(), Rejoined: true,
			}, uid)
		}
		snap, seq = s.Snapshot(), s.Seq()
	})
	if err != nil {
		return core.SessionSnapshot{}, err
	}

	switch {
	case res.Activated:
		o.Metrics.IncSessionCreated()
		o.BroadcastToChatWatchers(ctx, chatID, core.EventVoiceSessionActive, core.SessionActivityEvent{ChatID: chatID, SessionID: snap.SessionID, Seq: seq, Count: snap.Count})
	case res.Outcome == app.JoinAdded:
		o.BroadcastToChatWatchers(ctx, chatID, core.EventVoiceSessionUpdated, core.SessionActivityEvent{ChatID: chatID, SessionID: snap.SessionID, Seq: seq, Count: snap.Count})
	}
	return snap, nil
}

// LeaveSession removes the user from the chat's session. Unknown chat or user is a no-op.
func (o *Orchestrator) LeaveSession(ctx context.Context, chatID domain.ChatID, uid domain.UserID) bool {
	return o.leave(ctx, chatID, uid, "", core.ReasonLeft)
}

func (o *Orchestrator) leave(ctx context.Context, chatID domain.ChatID, uid domain.UserID, conn core.ConnID, reason string) bool {
	var (
		sessionID domain.SessionID
		seq       uint64
		count     int
		destroyed bool
	)
	hook := func(s *app.Session, res app.LeaveResult) {
		sessionID, seq, count, destroyed = s.ID(), s.Seq(), s.Count(), res.Destroyed
		if destroyed {
			return
		}
		o.Relay.BroadcastSession(s, core.EventParticipantLeft, core.ParticipantLeftEvent{
			ChatID: chatID, SessionID: s.ID(), UserID: uid, Count: s.Count(), Reason: reason,
		}, "")
		o.emitTimeoutChange(s, res.Timeout)
	}

	var ok bool
	if conn == "" {
		_, ok = o.Sessions.RemoveParticipant(chatID, uid, hook)
	} else {
		_, ok = o.Sessions.RemoveParticipantOnConn(chatID, uid, conn, hook)
	}
	if !ok {
		return false
	}

	if destroyed {
		o.BroadcastToChatWatchers(ctx, chatID, core.EventVoiceSessionEnded, core.SessionActivityEvent{ChatID: chatID, SessionID: sessionID, Seq: seq, Reason: core.ReasonEmpty})
	} else {
		o.BroadcastToChatWatchers(ctx, chatID, core.EventVoiceSessionUpdated, core.SessionActivityEvent{ChatID: chatID, SessionID: sessionID, Seq: seq, Count: count})
	}
	return true
}

// emitTimeoutChange runs inside a session hook.
func (o *Orchestrator) emitTimeoutChange(s *app.Session, change app.TimeoutChange) {
	switch change {
	case app.TimeoutArmed:
		o.Relay.BroadcastSession(s, core.EventSessionTimeoutStarted, core.SessionTimeoutEvent{
			ChatID: s.ChatID(), SessionID: s.ID(), ExpiresAt: s.TimeoutAt(), GraceSeconds: int(o.Sessions.Grace().Seconds()),
		}, "")
	case app.TimeoutCanceled:
		o.Relay.BroadcastSession(s, core.EventSessionTimeoutCanceled, core.SessionTimeoutEvent{ChatID: s.ChatID(), SessionID: s.ID()}, "")
	}
}

func (o *Orchestrator) onSessionExpired(e app.ExpiredSession) {
	o.Metrics.IncSessionTimeout()
	ev := core.SessionTimeoutEvent{ChatID: e.ChatID, SessionID: e.SessionID}
	for _, p := range e.Remaining {
		o.Relay.SendToConnection(p.Conn, core.EventSessionTimeoutExpired, ev)
	}
	o.BroadcastToChatWatchers(context.Background(), e.ChatID, core.EventVoiceSessionEnded, core.SessionActivityEvent{ChatID: e.ChatID, SessionID: e.SessionID, Seq: e.Seq, Reason: core.ReasonTimeout})
}

// GetSession returns the live session of the chat, if any.
func (o *Orchestrator) GetSession(chatID domain.ChatID) (core.SessionSnapshot, bool) {
	return o.Sessions.GetSession(chatID)
}

// GetActiveSessionCounts maps each chat with a live session to its participant count.
func (o *Orchestrator) GetActiveSessionCounts(chatIDs []domain.ChatID) map[domain.ChatID]int {
	return o.Sessions.Counts(chatIDs)
}

// SessionOf returns the chat whose session the user is in and the connection carrying its voice.
func (o *Orchestrator) SessionOf(uid domain.UserID) (domain.ChatID, core.ConnID, bool) {
	return o.Sessions.MembershipOf(uid)
}
