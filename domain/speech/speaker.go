package speech

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/soocke/lipread-go/domain/stage"
)

// State of the playback machine.
type State int

const (
	Idle State = iota
	Playing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	default:
		return "unknown"
	}
}

// Speaker owns the audio device. At most one utterance plays at a time: a new
// Speak cancels the current one and waits for it to release the device.
type Speaker struct {
	synth  Synthesizer
	logger *slog.Logger

	seq sync.Mutex // serializes Speak and Cancel

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	done      chan struct{}
	last      string
	lastOpts  Options
	listeners []func(prev, next State)
	onError   func(error)
}

// NewSpeaker wraps synth. A nil synth behaves like NopSynthesizer.
func NewSpeaker(synth Synthesizer, logger *slog.Logger) *Speaker {
	if synth == nil {
		synth = NopSynthesizer{}
	}
	return &Speaker{synth: synth, logger: logger}
}

// AddListener registers a callback for state transitions. Callbacks run on the
// goroutine that caused the transition.
func (s *Speaker) AddListener(fn func(prev, next State)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// OnError sets the hook receiving synthesis failures.
func (s *Speaker) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

func (s *Speaker) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Speaker) IsSpeaking() bool { return s.State() == Playing }

// Last returns the most recent text handed to Speak and its options.
func (s *Speaker) Last() (string, Options) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastOpts
}

// Speak cancels any current utterance and starts text in the background.
// Blank text only cancels.
func (s *Speaker) Speak(text string, opts Options) {
	s.seq.Lock()
	defer s.seq.Unlock()
	s.stopCurrent()
	if strings.TrimSpace(text) == "" {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.last, s.lastOpts = text, opts
	prev := s.setStateLocked(Playing)
	s.mu.Unlock()
	s.notify(prev, Playing)

	go s.play(ctx, cancel, done, text, opts.Normalized())
}

// Repeat speaks the last utterance again.
func (s *Speaker) Repeat() {
	text, opts := s.Last()
	s.Speak(text, opts)
}

// Wait blocks until the current utterance ends or ctx is done.
func (s *Speaker) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops playback immediately. Idempotent.
func (s *Speaker) Cancel() {
	s.seq.Lock()
	defer s.seq.Unlock()
	s.stopCurrent()
}

func (s *Speaker) play(ctx context.Context, cancel context.CancelFunc, done chan struct{}, text string, opts Options) {
	defer close(done)
	defer cancel()
	err := s.synth.Speak(ctx, text, opts)
	if err != nil && ctx.Err() == nil {
		err = stage.Wrap(stage.Synthesis, err)
		if s.logger != nil {
			s.logger.Error("speech failed", "error", err)
		}
		s.mu.Lock()
		hook := s.onError
		s.mu.Unlock()
		if hook != nil {
			hook(err)
		}
	}

	s.mu.Lock()
	if s.done != done {
		// Superseded or cancelled; the canceller owns the transition.
		s.mu.Unlock()
		return
	}
	s.cancel, s.done = nil, nil
	prev := s.setStateLocked(Idle)
	s.mu.Unlock()
	s.notify(prev, Idle)
}

func (s *Speaker) stopCurrent() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done

	s.mu.Lock()
	prev := s.setStateLocked(Idle)
	s.mu.Unlock()
	s.notify(prev, Idle)
}

func (s *Speaker) setStateLocked(next State) State {
	prev := s.state
	s.state = next
	return prev
}

func (s *Speaker) notify(prev, next State) {
	if prev == next {
		return
	}
	s.mu.Lock()
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(prev, next)
	}
}

// NopSynthesizer accepts every utterance and plays nothing.
type NopSynthesizer struct {
	Logger *slog.Logger
}

func (n NopSynthesizer) Speak(ctx context.Context, text string, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.Logger != nil {
		n.Logger.Debug("speech.nop", "text", text, "language", opts.Language)
	}
	return nil
}

func (NopSynthesizer) Voices(context.Context) ([]Voice, error) { return nil, nil }

var errNoEngine = errors.New("no speech engine found")
