package domain

// VoiceFlags is the per-participant audio state.
// Invariant: Deafened implies Muted. Speaking implies !Muted.
type VoiceFlags struct {
	Muted     bool `json:"is_muted"`
	Deafened  bool `json:"is_deafened"`
	Speaking  bool `json:"is_speaking"`
	Streaming bool `json:"is_streaming"`
}

// SetMute applies a mute request. Unmuting while deafened is refused.
// Muting also clears Speaking.
func (f *VoiceFlags) SetMute(muted bool) (changed bool) {
	if !muted && f.Deafened {
		return false
	}
	if f.Muted == muted {
		return false
	}
	f.Muted = muted
	if muted {
		f.Speaking = false
	}
	return true
}

// SetDeafen turns deafen on or off. Deafening forces mute in the same update;
// undeafening keeps the mute so the client has to unmute explicitly.
func (f *VoiceFlags) SetDeafen(deafened bool) (changed bool) {
	if f.Deafened == deafened {
		return false
	}
	f.Deafened = deafened
	if deafened {
		f.Muted = true
		f.Speaking = false
	}
	return true
}

func (f *VoiceFlags) ToggleDeafen() bool {
	return f.SetDeafen(!f.Deafened)
}

// SetSpeaking refuses to start speaking while muted: the client detector
// runs on raw mic input before the mute gate.
func (f *VoiceFlags) SetSpeaking(speaking bool) (changed bool) {
	if speaking && f.Muted {
		return false
	}
	if f.Speaking == speaking {
		return false
	}
	f.Speaking = speaking
	return true
}

func (f *VoiceFlags) SetStreaming(streaming bool) (changed bool) {
	if f.Streaming == streaming {
		return false
	}
	f.Streaming = streaming
	return true
}
