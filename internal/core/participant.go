package core

import (
	"time"

	"github.com/dkeye/voicehub/internal/domain"
)

// Participant is one user's membership in a voice session.
// Conn is the only connection the session talks to for this user.
type Participant struct {
	UserID   domain.UserID
	Username string
	Conn     ConnID
	Flags    domain.VoiceFlags
	JoinedAt time.Time
}

// ParticipantDTO is a read-only view for clients (no transport fields).
type ParticipantDTO struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	domain.VoiceFlags
	JoinedAt time.Time `json:"joined_at"`
}

func (p Participant) DTO() ParticipantDTO {
	return ParticipantDTO{
		UserID:     p.UserID,
		Username:   p.Username,
		VoiceFlags: p.Flags,
		JoinedAt:   p.JoinedAt,
	}
}

// SessionSnapshot is a consistent copy of a voice session taken under its lock.
type SessionSnapshot struct {
	SessionID    domain.SessionID `json:"session_id"`
	ChatID       domain.ChatID    `json:"chat_id"`
	CreatedAt    time.Time        `json:"created_at"`
	Participants []ParticipantDTO `json:"participants"`
	Count        int              `json:"count"`
}

// Has reports whether userID is among the snapshot's participants.
func (s SessionSnapshot) Has(userID domain.UserID) bool {
	for _, p := range s.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}
