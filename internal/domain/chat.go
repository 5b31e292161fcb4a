package domain

import "errors"

const MaxChatIDLen = 64

var ErrInvalidChatID = errors.New("chat id invalid")

type (
	// ChatID binds a voice session; at most one live session per chat.
	ChatID string
	// SessionID is generated when a voice session is created.
	SessionID string
)

func (c ChatID) Validate() error {
	if len(c) == 0 || len(c) > MaxChatIDLen {
		return ErrInvalidChatID
	}
	return nil
}
