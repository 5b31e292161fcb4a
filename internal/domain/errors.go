package domain

import "errors"

var (
	// ErrNotChatMember rejects a voice join or call by someone outside the chat.
	ErrNotChatMember = errors.New("not a member of this chat")
	// ErrAlreadyInAnotherSession means the user must leave its current voice session first.
	ErrAlreadyInAnotherSession = errors.New("already in another voice session")
	ErrSelfCall                = errors.New("cannot call yourself")
)
