package signal

import (
	"context"

	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
)

type callPayload struct {
	ChatID domain.ChatID `json:"chat_id"`
	// Peer is the callee for ring and cancel, the caller for accept and reject.
	Peer domain.UserID `json:"user_id"`
}

func (ctl *SignalWSController) handleRing(ctx context.Context, cl *client, data []byte) {
	var p callPayload
	if !ctl.decode(cl, "ring", data, &p) {
		return
	}
	if !ctl.Rings.Allow(cl.user.ID) {
		ctl.sendError(cl, "ring", codeRateLimited, "too many calls, try again later")
		return
	}
	if err := ctl.Orch.RingUser(ctx, p.ChatID, cl.user.ID, p.Peer, cl.id); err != nil {
		ctl.replyErr(cl, "ring", err)
	}
}

func (ctl *SignalWSController) handleAccept(ctx context.Context, cl *client, data []byte) {
	var p callPayload
	if !ctl.decode(cl, "accept", data, &p) {
		return
	}
	snap, ok, err := ctl.Orch.AcceptCall(ctx, p.ChatID, p.Peer, cl.user.ID, cl.id)
	if err != nil {
		ctl.replyErr(cl, "accept", err)
		return
	}
	if ok {
		ctl.sendJSON(cl, core.EventVoiceSessionState, snap)
	}
}

func (ctl *SignalWSController) handleReject(ctx context.Context, cl *client, data []byte) {
	var p callPayload
	if !ctl.decode(cl, "reject", data, &p) {
		return
	}
	ctl.Orch.RejectCall(ctx, p.ChatID, p.Peer, cl.user.ID, cl.id)
}

func (ctl *SignalWSController) handleCancel(ctx context.Context, cl *client, data []byte) {
	var p callPayload
	if !ctl.decode(cl, "cancel", data, &p) {
		return
	}
	ctl.Orch.CancelCall(ctx, p.ChatID, cl.user.ID, p.Peer)
}
