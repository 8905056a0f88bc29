package presenter

import (
	"time"

	"github.com/soocke/lipread-go/domain/speech"
	"github.com/soocke/lipread-go/ui/model"
)

// SpeechView reflects playback state on the speech controls.
type SpeechView interface{ SetSpeaking(bool) }

// SpeechPlayer is the playback surface behind the speech buttons.
type SpeechPlayer interface {
	Repeat()
	Cancel()
}

// SpeechPresenter mirrors the speaker state and handles the speech buttons.
type SpeechPresenter struct {
	model  *model.SpeechModel
	player SpeechPlayer
	view   SpeechView
	dirty  bool
	last   bool
}

func NewSpeechPresenter(m *model.SpeechModel, player SpeechPlayer, view SpeechView) *SpeechPresenter {
	return &SpeechPresenter{model: m, player: player, view: view, dirty: true}
}

// OnState is a speaker listener; it may run on any goroutine.
func (p *SpeechPresenter) OnState(prev, next speech.State) {
	if p == nil || p.model == nil {
		return
	}
	p.model.SetSpeaking(next == speech.Playing)
}

// SpeakAgain replays the last utterance.
func (p *SpeechPresenter) SpeakAgain() {
	if p != nil && p.player != nil {
		p.player.Repeat()
	}
}

// StopSpeech cancels playback.
func (p *SpeechPresenter) StopSpeech() {
	if p != nil && p.player != nil {
		p.player.Cancel()
	}
}

func (p *SpeechPresenter) Tick(now time.Time) {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	speaking := p.model.Speaking()
	if !p.dirty && speaking == p.last {
		return
	}
	p.dirty = false
	p.view.SetSpeaking(speaking)
	p.last = speaking
}
