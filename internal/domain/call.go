package domain

import "time"

// CallInvitation is a transient caller→callee ring. It is never persisted;
// on acceptance both parties become participants of the chat's voice session.
type CallInvitation struct {
	ChatID     ChatID    `json:"chat_id"`
	Caller     UserID    `json:"caller_id"`
	CallerName string    `json:"caller_name"`
	Callee     UserID    `json:"callee_id"`
	CreatedAt  time.Time `json:"created_at"`
}
