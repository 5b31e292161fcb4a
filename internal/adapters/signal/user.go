package signal

import (
	"github.com/dkeye/voicehub/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handleRename(cl *client, data []byte) {
	var p struct {
		Name string `json:"name"`
	}
	if !ctl.decode(cl, "rename", data, &p) {
		return
	}
	if err := ctl.Orch.Rename(cl.user.ID, p.Name); err != nil {
		ctl.replyErr(cl, "rename", err)
		return
	}
	cl.user.Username = ctl.Orch.Registry.Username(cl.user.ID)
	log.Info().Str("module", "signal").Str("user", string(cl.user.ID)).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(cl)
}

type whoAmIReply struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	ConnID   string        `json:"conn_id"`
	ChatID   domain.ChatID `json:"chat_id,omitempty"`
	// Voice is true when this connection carries the user's voice session.
	Voice bool `json:"voice"`
}

func (ctl *SignalWSController) handleWhoAmI(cl *client) {
	resp := whoAmIReply{
		UserID:   cl.user.ID,
		Username: ctl.Orch.Registry.Username(cl.user.ID),
		ConnID:   string(cl.id),
	}
	if chatID, conn, ok := ctl.Orch.SessionOf(cl.user.ID); ok {
		resp.ChatID = chatID
		resp.Voice = conn == cl.id
	}
	ctl.sendJSON(cl, "whoami", resp)
}
