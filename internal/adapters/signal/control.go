package signal

import (
	"errors"

	"github.com/dkeye/voicehub/internal/adapters/rtc"
	"github.com/dkeye/voicehub/internal/core"
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

// Error codes clients branch on.
const (
	codeNotChatMember  = "not_chat_member"
	codeAlreadyInVoice = "already_in_another_session"
	codeBadPayload     = "bad_payload"
	codeRateLimited    = "rate_limited"
	codeInvalidDesc    = "invalid_description"
	codeInternal       = "internal"
)

type errorReply struct {
	Op      string `json:"op,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func (ctl *SignalWSController) sendError(cl *client, op, code, msg string) {
	ctl.sendJSON(cl, "error", errorReply{Op: op, Code: code, Message: msg})
}

// replyErr maps a command failure to its client code.
func (ctl *SignalWSController) replyErr(cl *client, op string, err error) {
	code := codeInternal
	switch {
	case errors.Is(err, domain.ErrNotChatMember):
		code = codeNotChatMember
	case errors.Is(err, domain.ErrAlreadyInAnotherSession):
		code = codeAlreadyInVoice
	case errors.Is(err, domain.ErrInvalidChatID),
		errors.Is(err, domain.ErrSelfCall),
		errors.Is(err, domain.ErrUsernameEmpty),
		errors.Is(err, domain.ErrUsernameTooLong):
		code = codeBadPayload
	case errors.Is(err, rtc.ErrInvalidDescription), errors.Is(err, rtc.ErrInvalidCandidate):
		code = codeInvalidDesc
	default:
		log.Error().Err(err).Str("module", "signal").Str("op", op).Str("conn", string(cl.id)).Msg("command failed")
		ctl.sendError(cl, op, code, "")
		return
	}
	ctl.sendError(cl, op, code, err.Error())
}

func (ctl *SignalWSController) handlePing(cl *client) {
	ctl.sendJSON(cl, "pong", nil)
}

type sessionReply struct {
	ChatID  domain.ChatID         `json:"chat_id"`
	Session *core.SessionSnapshot `json:"session"`
}

func (ctl *SignalWSController) handleGetSession(cl *client, data []byte) {
	var p chatPayload
	if !ctl.decode(cl, "get_session", data, &p) {
		return
	}
	resp := sessionReply{ChatID: p.ChatID}
	if snap, ok := ctl.Orch.GetSession(p.ChatID); ok {
		resp.Session = &snap
	}
	ctl.sendJSON(cl, "session", resp)
}

func (ctl *SignalWSController) handleSessionCounts(cl *client, data []byte) {
	var p struct {
		ChatIDs []domain.ChatID `json:"chat_ids"`
	}
	if !ctl.decode(cl, "session_counts", data, &p) {
		return
	}
	ctl.sendJSON(cl, "session_counts", ctl.Orch.GetActiveSessionCounts(p.ChatIDs))
}
