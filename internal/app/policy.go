package app

import "github.com/dkeye/voicehub/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	// DropEvent loses this one event; the connection stays.
	DropEvent
	// CloseConnection kicks the lagging connection; its disconnect path cleans up.
	CloseConnection
)

type Policy interface {
	OnBackPressure(conn core.ConnID, event string) BackpressureAction
}

// SimplePolicy tolerates loss of high-rate indicator events and closes the
// connection for anything that would leave the client with a wrong view.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(_ core.ConnID, event string) BackpressureAction {
	switch event {
	case core.EventParticipantStartedSpeaking, core.EventParticipantStoppedSpeaking,
		core.EventReceiveIceCandidate:
		return DropEvent
	}
	return CloseConnection
}
