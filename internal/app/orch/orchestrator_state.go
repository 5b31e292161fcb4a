package orch

import (
	"github.com/dkeye/voicehub/internal/app"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
)

// Flag changes are applied and broadcast under the session lock, so peers see
// them in mutation order. A missing session or participant is a silent no-op;
// a refused transition (unmute while deafened, speak while muted) too.

func (o *Orchestrator) SetMute(chatID domain.ChatID, uid domain.UserID, muted bool) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.SetMute(muted) }, o.emitMute)
}

func (o *Orchestrator) SetDeafen(chatID domain.ChatID, uid domain.UserID, deafened bool) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.SetDeafen(deafened) }, o.emitMute)
}

func (o *Orchestrator) ToggleDeafen(chatID domain.ChatID, uid domain.UserID) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.ToggleDeafen() }, o.emitMute)
}

// StartSpeaking and StopSpeaking are broadcast only; nobody acknowledges them.
func (o *Orchestrator) StartSpeaking(chatID domain.ChatID, uid domain.UserID) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.SetSpeaking(true) }, o.emitSpeaking)
}

func (o *Orchestrator) StopSpeaking(chatID domain.ChatID, uid domain.UserID) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.SetSpeaking(false) }, o.emitSpeaking)
}

func (o *Orchestrator) StartStream(chatID domain.ChatID, uid domain.UserID) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.SetStreaming(true) }, o.emitStream)
}

func (o *Orchestrator) StopStream(chatID domain.ChatID, uid domain.UserID) (domain.VoiceFlags, bool) {
	return o.mutate(chatID, uid, func(f *domain.VoiceFlags) bool { return f.SetStreaming(false) }, o.emitStream)
}

type flagEmitter func(s *app.Session, uid domain.UserID, prev, cur domain.VoiceFlags)

func (o *Orchestrator) mutate(chatID domain.ChatID, uid domain.UserID, change func(*domain.VoiceFlags) bool, emit flagEmitter) (domain.VoiceFlags, bool) {
	var (
		flags   domain.VoiceFlags
		changed bool
	)
	o.Sessions.UpdateParticipant(chatID, uid, func(s *app.Session, p *core.Participant) {
		prev := p.Flags
		changed = change(&p.Flags)
		flags = p.Flags
		if changed {
			emit(s, uid, prev, p.Flags)
		}
	})
	return flags, changed
}

func (o *Orchestrator) emitMute(s *app.Session, uid domain.UserID, prev, cur domain.VoiceFlags) {
	o.Relay.BroadcastSession(s, core.EventParticipantMuteChanged, core.MuteChangedEvent{
		ChatID: s.ChatID(), UserID: uid, IsMuted: cur.Muted, IsDeafened: cur.Deafened,
	}, uid)
	if prev.Speaking && !cur.Speaking {
		o.Relay.BroadcastSession(s, core.EventParticipantStoppedSpeaking, core.SpeakingEvent{ChatID: s.ChatID(), UserID: uid}, uid)
	}
}

func (o *Orchestrator) emitSpeaking(s *app.Session, uid domain.UserID, _, cur domain.VoiceFlags) {
	event := core.EventParticipantStoppedSpeaking
	if cur.Speaking {
		event = core.EventParticipantStartedSpeaking
	}
	o.Relay.BroadcastSession(s, event, core.SpeakingEvent{ChatID: s.ChatID(), UserID: uid}, uid)
}

func (o *Orchestrator) emitStream(s *app.Session, uid domain.UserID, _, cur domain.VoiceFlags) {
	o.Relay.BroadcastSession(s, core.EventParticipantStreamChanged, core.StreamChangedEvent{
		ChatID: s.ChatID(), UserID: uid, IsStreaming: cur.Streaming,
	}, uid)
}
