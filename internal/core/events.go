package core

import (
	"time"

	"github.com/dkeye/voicehub/internal/domain"
)

// Event names are a client contract; do not rename.
const (
	EventParticipantJoined          = "ParticipantJoined"
	EventParticipantLeft            = "ParticipantLeft"
	EventParticipantMuteChanged     = "ParticipantMuteChanged"
	EventParticipantStartedSpeaking = "ParticipantStartedSpeaking"
	EventParticipantStoppedSpeaking = "ParticipantStoppedSpeaking"
	EventParticipantStreamChanged   = "ParticipantStreamChanged"

	EventVoiceSessionState     = "VoiceSessionState"
	EventVoiceSessionActive    = "VoiceSessionActive"
	EventVoiceSessionUpdated   = "VoiceSessionUpdated"
	EventVoiceSessionEnded     = "VoiceSessionEnded"
	EventVoiceSessionDisplaced = "VoiceSessionDisplaced"

	EventSessionTimeoutStarted  = "SessionTimeoutStarted"
	EventSessionTimeoutCanceled = "SessionTimeoutCanceled"
	EventSessionTimeoutExpired  = "SessionTimeoutExpired"

	EventReceiveOffer        = "ReceiveOffer"
	EventReceiveAnswer       = "ReceiveAnswer"
	EventReceiveIceCandidate = "ReceiveIceCandidate"

	EventIncomingCall = "IncomingCall"
	EventCallAccepted = "CallAccepted"
	EventCallRejected = "CallRejected"
	EventCallCanceled = "CallCanceled"
	EventCallTimedOut = "CallTimedOut"

	EventUserOnline  = "UserOnline"
	EventUserOffline = "UserOffline"
)

// Reasons carried by leave/end/cancel events.
const (
	ReasonLeft              = "left"
	ReasonDisconnected      = "disconnected"
	ReasonEmpty             = "empty"
	ReasonTimeout           = "timeout"
	ReasonBusy              = "busy"
	ReasonDeclined          = "declined"
	ReasonCanceled          = "canceled"
	ReasonOffline           = "offline"
	ReasonAnsweredElsewhere = "answered_elsewhere"
)

type ParticipantJoinedEvent struct {
	ChatID      domain.ChatID    `json:"chat_id"`
	SessionID   domain.SessionID `json:"session_id"`
	Participant ParticipantDTO   `json:"participant"`
	Count       int              `json:"count"`
	Rejoined    bool             `json:"rejoined,omitempty"`
}

type ParticipantLeftEvent struct {
	ChatID    domain.ChatID    `json:"chat_id"`
	SessionID domain.SessionID `json:"session_id"`
	UserID    domain.UserID    `json:"user_id"`
	Count     int              `json:"count"`
	Reason    string           `json:"reason"`
}

type MuteChangedEvent struct {
	ChatID     domain.ChatID `json:"chat_id"`
	UserID     domain.UserID `json:"user_id"`
	IsMuted    bool          `json:"is_muted"`
	IsDeafened bool          `json:"is_deafened"`
}

type SpeakingEvent struct {
	ChatID domain.ChatID `json:"chat_id"`
	UserID domain.UserID `json:"user_id"`
}

type StreamChangedEvent struct {
	ChatID      domain.ChatID `json:"chat_id"`
	UserID      domain.UserID `json:"user_id"`
	IsStreaming bool          `json:"is_streaming"`
}

// SessionActivityEvent feeds "voice active" badges of every chat member.
// Watcher events are delivered outside the session lock and may arrive out of
// order; Seq grows with every membership change of a session, so clients keep
// the event with the highest Seq per SessionID.
type SessionActivityEvent struct {
	ChatID    domain.ChatID    `json:"chat_id"`
	SessionID domain.SessionID `json:"session_id"`
	Seq       uint64           `json:"seq"`
	Count     int              `json:"count"`
	Reason    string           `json:"reason,omitempty"`
}

type SessionTimeoutEvent struct {
	ChatID       domain.ChatID    `json:"chat_id"`
	SessionID    domain.SessionID `json:"session_id"`
	ExpiresAt    time.Time        `json:"expires_at,omitzero"`
	GraceSeconds int              `json:"grace_seconds,omitempty"`
}

type DisplacedEvent struct {
	ChatID    domain.ChatID    `json:"chat_id"`
	SessionID domain.SessionID `json:"session_id"`
}

// SignalEvent wraps an opaque WebRTC payload (SDP or ICE candidate).
type SignalEvent struct {
	ChatID  domain.ChatID `json:"chat_id"`
	From    domain.UserID `json:"from"`
	Payload any           `json:"payload"`
}

type CallEvent struct {
	ChatID     domain.ChatID `json:"chat_id"`
	CallerID   domain.UserID `json:"caller_id"`
	CallerName string        `json:"caller_name,omitempty"`
	CalleeID   domain.UserID `json:"callee_id"`
	Reason     string        `json:"reason,omitempty"`
}

type PresenceEvent struct {
	UserID domain.UserID `json:"user_id"`
	Online bool          `json:"online"`
}
