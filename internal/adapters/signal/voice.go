package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

type chatPayload struct {
	ChatID domain.ChatID `json:"chat_id"`
}

type flagPayload struct {
	ChatID domain.ChatID `json:"chat_id"`
	Value  bool          `json:"value"`
}

type voiceStateReply struct {
	ChatID domain.ChatID `json:"chat_id"`
	domain.VoiceFlags
}

func (ctl *SignalWSController) handleJoin(ctx context.Context, cl *client, data []byte) {
	var p chatPayload
	if !ctl.decode(cl, "join", data, &p) {
		return
	}
	snap, err := ctl.Orch.JoinOrCreateSession(ctx, p.ChatID, cl.user.ID, ctl.Orch.Registry.Username(cl.user.ID), cl.id)
	if err != nil {
		ctl.replyErr(cl, "join", err)
		return
	}
	log.Info().Str("module", "signal").Str("user", string(cl.user.ID)).Str("chat", string(p.ChatID)).Int("count", snap.Count).Msg("joined voice")
	ctl.sendJSON(cl, core.EventVoiceSessionState, snap)
}

func (ctl *SignalWSController) handleLeave(ctx context.Context, cl *client, data []byte) {
	var p chatPayload
	if !ctl.decode(cl, "leave", data, &p) {
		return
	}
	if !ctl.ownsVoice(cl, p.ChatID) {
		return
	}
	ctl.Orch.LeaveSession(ctx, p.ChatID, cl.user.ID)
	ctl.sendJSON(cl, "left", p)
}

// ownsVoice reports whether this connection carries the user's voice in chatID.
// Commands from other devices of the same user are stale and dropped.
func (ctl *SignalWSController) ownsVoice(cl *client, chatID domain.ChatID) bool {
	chat, conn, ok := ctl.Orch.SessionOf(cl.user.ID)
	return ok && chat == chatID && conn == cl.id
}

type flagOp func(domain.ChatID, domain.UserID) (domain.VoiceFlags, bool)

func (ctl *SignalWSController) applyFlag(cl *client, op string, data []byte, pick func(flagPayload) flagOp) {
	var p flagPayload
	if !ctl.decode(cl, op, data, &p) {
		return
	}
	if !ctl.ownsVoice(cl, p.ChatID) {
		return
	}
	flags, _ := pick(p)(p.ChatID, cl.user.ID)
	ctl.sendJSON(cl, "voice_state", voiceStateReply{ChatID: p.ChatID, VoiceFlags: flags})
}

func (ctl *SignalWSController) handleMute(cl *client, data []byte) {
	ctl.applyFlag(cl, "mute", data, func(p flagPayload) flagOp {
		return func(c domain.ChatID, u domain.UserID) (domain.VoiceFlags, bool) { return ctl.Orch.SetMute(c, u, p.Value) }
	})
}

func (ctl *SignalWSController) handleDeafen(cl *client, data []byte) {
	ctl.applyFlag(cl, "deafen", data, func(p flagPayload) flagOp {
		return func(c domain.ChatID, u domain.UserID) (domain.VoiceFlags, bool) { return ctl.Orch.SetDeafen(c, u, p.Value) }
	})
}

func (ctl *SignalWSController) handleToggleDeafen(cl *client, data []byte) {
	ctl.applyFlag(cl, "toggle_deafen", data, func(flagPayload) flagOp { return ctl.Orch.ToggleDeafen })
}

// handleStream toggles screen/camera sharing.
func (ctl *SignalWSController) handleStream(cl *client, data []byte) {
	ctl.applyFlag(cl, "stream", data, func(p flagPayload) flagOp {
		if p.Value {
			return ctl.Orch.StartStream
		}
		return ctl.Orch.StopStream
	})
}

// handleSpeaking is fire and forget: no reply, no error.
func (ctl *SignalWSController) handleSpeaking(cl *client, data []byte) {
	var p flagPayload
	if err := json.Unmarshal(data, &p); err != nil || !ctl.ownsVoice(cl, p.ChatID) {
		return
	}
	if p.Value {
		ctl.Orch.StartSpeaking(p.ChatID, cl.user.ID)
	} else {
		ctl.Orch.StopSpeaking(p.ChatID, cl.user.ID)
	}
}
