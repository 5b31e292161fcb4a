package signal

import (
	"encoding/json"

	"github.com/dkeye/voicehub/internal/adapters/rtc"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/pion/webrtc/v4"
)

// signalPayload carries a WebRTC payload between two participants of one session.
// The server validates it and forwards it as is.
type signalPayload struct {
	ChatID  domain.ChatID   `json:"chat_id"`
	To      domain.UserID   `json:"to"`
	Payload json.RawMessage `json:"payload"`
}

func (ctl *SignalWSController) handleOffer(cl *client, data []byte) {
	ctl.relayDescription(cl, "offer", data, webrtc.SDPTypeOffer, ctl.Orch.RelayOffer)
}

func (ctl *SignalWSController) handleAnswer(cl *client, data []byte) {
	ctl.relayDescription(cl, "answer", data, webrtc.SDPTypeAnswer, ctl.Orch.RelayAnswer)
}

type relayFunc func(chatID domain.ChatID, from, to domain.UserID, payload any) bool

func (ctl *SignalWSController) relayDescription(cl *client, op string, data []byte, want webrtc.SDPType, relay relayFunc) {
	var p signalPayload
	if !ctl.decode(cl, op, data, &p) {
		return
	}
	desc, err := rtc.DecodeDescription(p.Payload, want)
	if err != nil {
		ctl.replyErr(cl, op, err)
		return
	}
	if !ctl.ownsVoice(cl, p.ChatID) {
		return
	}
	relay(p.ChatID, cl.user.ID, p.To, desc)
}

func (ctl *SignalWSController) handleCandidate(cl *client, data []byte) {
	var p signalPayload
	if !ctl.decode(cl, "candidate", data, &p) {
		return
	}
	cand, err := rtc.DecodeCandidate(p.Payload)
	if err != nil {
		ctl.replyErr(cl, "candidate", err)
		return
	}
	if !ctl.ownsVoice(cl, p.ChatID) {
		return
	}
	ctl.Orch.RelayIceCandidate(p.ChatID, cl.user.ID, p.To, cand)
}
