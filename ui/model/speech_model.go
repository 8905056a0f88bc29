package model

import (
	"sync/atomic"
)

// SpeechModel tracks whether an utterance is playing. The zero value is idle
// and usable. Atomic because speaker listeners run off the UI thread.
type SpeechModel struct{ speaking atomic.Bool }

// Speaking reports whether playback is in progress.
func (m *SpeechModel) Speaking() bool {
	if m == nil {
		return false
	}
	return m.speaking.Load()
}

// SetSpeaking stores the flag and reports whether it changed.
func (m *SpeechModel) SetSpeaking(b bool) bool {
	if m == nil {
		return false
	}
	return m.speaking.Swap(b) != b
}
