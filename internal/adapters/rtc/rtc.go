// Package rtc validates the WebRTC payloads clients exchange through the
// signaling relay. Media itself flows peer to peer and never reaches the server.
package rtc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dkeye/voicehub/internal/config"
	"github.com/pion/ice/v4"
	"github.com/pion/webrtc/v4"
)

const maxSDPLen = 64 << 10

var (
	ErrInvalidDescription = errors.New("invalid session description")
	ErrInvalidCandidate   = errors.New("invalid ice candidate")
)

var defaultICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302"}},
}

// ICEServers converts configured servers, falling back to a public STUN server.
func ICEServers(servers []config.ICEServer) []webrtc.ICEServer {
	if len(servers) == 0 {
		return defaultICEServers
	}
	out := make([]webrtc.ICEServer, 0, len(servers))
	for _, s := range servers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
		}
		out = append(out, srv)
	}
	return out
}

// Configuration is what browsers pass to new RTCPeerConnection.
func Configuration(servers []config.ICEServer) webrtc.Configuration {
	return webrtc.Configuration{ICEServers: ICEServers(servers)}
}

// DecodeDescription parses {"type":..,"sdp":..} and checks it is an offer or answer as wanted.
func DecodeDescription(raw json.RawMessage, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var desc webrtc.SessionDescription
	if err := json.Unmarshal(raw, &desc); err != nil {
		return desc, fmt.Errorf("%w: %w", ErrInvalidDescription, err)
	}
	if desc.Type != want {
		return desc, fmt.Errorf("%w: type %q, want %q", ErrInvalidDescription, desc.Type, want)
	}
	return desc, ValidateDescription(desc)
}

// ValidateDescription parses the SDP body without applying it anywhere.
func ValidateDescription(desc webrtc.SessionDescription) error {
	switch desc.Type {
	case webrtc.SDPTypeOffer, webrtc.SDPTypeAnswer, webrtc.SDPTypePranswer:
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidDescription, desc.Type)
	}
	if desc.SDP == "" || len(desc.SDP) > maxSDPLen {
		return fmt.Errorf("%w: sdp size %d", ErrInvalidDescription, len(desc.SDP))
	}
	if _, err := desc.Unmarshal(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDescription, err)
	}
	return nil
}

// DecodeCandidate parses an RTCIceCandidateInit. An empty candidate marks end of candidates.
func DecodeCandidate(raw json.RawMessage) (webrtc.ICECandidateInit, error) {
	var c webrtc.ICECandidateInit
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}
	return c, ValidateCandidate(c)
}

func ValidateCandidate(c webrtc.ICECandidateInit) error {
	value := strings.TrimPrefix(c.Candidate, "candidate:")
	if value == "" {
		return nil
	}
	if _, err := ice.UnmarshalCandidate(value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCandidate, err)
	}
	return nil
}
