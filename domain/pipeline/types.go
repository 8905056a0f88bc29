// Package pipeline drives samples through detection, recognition,
// translation and speech on a recurring timer.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/recognition"
	"github.com/soocke/lipread-go/domain/speech"
	"github.com/soocke/lipread-go/domain/stage"
	"github.com/soocke/lipread-go/domain/translation"
)

var (
	// ErrAlreadyRunning is returned by Start while a session is active.
	ErrAlreadyRunning = errors.New("pipeline: already running")
	// ErrRunning is returned by calls that require the controller to be idle.
	ErrRunning = errors.New("pipeline: session active")
	// ErrMissingStage reports an incomplete Stages set.
	ErrMissingStage = errors.New("pipeline: missing stage")
)

// State is the controller state.
type State int

const (
	// Idle: no timer armed.
	Idle State = iota
	// Sampling: timer armed, no pass in flight.
	Sampling
	// AwaitingResult: one pass in flight; ticks are dropped.
	AwaitingResult
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Sampling:
		return "Sampling"
	case AwaitingResult:
		return "AwaitingResult"
	default:
		return "Unknown"
	}
}

// Speaker is the speech playback the controller drives. Speak must return
// without waiting for playback to finish and must cancel any prior utterance.
type Speaker interface {
	Speak(text string, opts speech.Options)
	Cancel()
}

// Stages are the collaborators for one controller. Translator and Speaker
// are optional.
type Stages struct {
	Source     capture.Source
	Detector   detection.Detector
	Recognizer recognition.Recognizer
	Translator translation.Translator
	Speaker    Speaker
}

func (s Stages) validate() error {
	switch {
	case s.Source == nil:
		return fmt.Errorf("%w: source", ErrMissingStage)
	case s.Detector == nil:
		return fmt.Errorf("%w: detector", ErrMissingStage)
	case s.Recognizer == nil:
		return fmt.Errorf("%w: recognizer", ErrMissingStage)
	}
	return nil
}

// DefaultInterval is the tick period used when Settings.Interval is unset.
const DefaultInterval = 2 * time.Second

// Settings are snapshotted at Start; changing them requires Stop and Start.
type Settings struct {
	Interval   time.Duration
	SourceLang string
	TargetLang string
	AutoSpeak  bool
	Voice      speech.Options
	// StageTimeout bounds each stage call. Zero disables the bound.
	StageTimeout time.Duration
}

func (s Settings) normalized() Settings {
	if s.Interval <= 0 {
		s.Interval = DefaultInterval
	}
	if s.StageTimeout < 0 {
		s.StageTimeout = 0
	}
	return s
}

// Novel reports whether candidate should propagate downstream: it must be
// non-empty and differ from lastAccepted after trimming.
func Novel(candidate, lastAccepted string) bool {
	candidate = strings.TrimSpace(candidate)
	return candidate != "" && candidate != strings.TrimSpace(lastAccepted)
}

// EventKind distinguishes a caption from a cleared display.
type EventKind int

const (
	EventResult EventKind = iota + 1
	EventEmpty
)

func (k EventKind) String() string {
	switch k {
	case EventResult:
		return "result"
	case EventEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Event is delivered to result sinks.
type Event struct {
	Kind       EventKind
	Original   string
	Translated string
	Confidence float64
	RegionID   string
	Source     string
	Target     string
	SessionID  string
	At         time.Time
}

// StatusKind is a transient controller status.
type StatusKind string

const (
	StatusStarted    StatusKind = "started"
	StatusProcessing StatusKind = "processing"
	StatusIdle       StatusKind = "idle"
	StatusError      StatusKind = "error"
	StatusStopped    StatusKind = "stopped"
)

// Status is delivered to status sinks. Stage and Err are set for
// StatusError only.
type Status struct {
	Kind      StatusKind
	State     State
	Stage     stage.Kind
	Err       error
	SessionID string
	At        time.Time
}

// Stats are cumulative controller counters.
type Stats struct {
	Ticks             uint64 `json:"ticks"`
	Dropped           uint64 `json:"dropped"`
	Passes            uint64 `json:"passes"`
	Published         uint64 `json:"published"`
	Empty             uint64 `json:"empty"`
	Debounced         uint64 `json:"debounced"`
	Errors            uint64 `json:"errors"`
	ConsecutiveErrors uint64 `json:"consecutive_errors"`
	Sessions          uint64 `json:"sessions"`
}

// callStage runs fn under timeout. The caller regains control when the
// deadline passes even if fn ignores ctx.
func callStage[T any](base context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(base)
	}
	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		ch <- result{v, err}
	}()
	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
