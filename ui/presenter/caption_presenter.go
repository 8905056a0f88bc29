package presenter

import (
	"fmt"
	"sync"
	"time"

	"github.com/soocke/lipread-go/domain/pipeline"
	"github.com/soocke/lipread-go/ui/model"
)

// CaptionView shows the current caption and a one-line status.
type CaptionView interface {
	SetCaption(original, translated, confidence string)
	ClearCaption(note string)
	SetStatus(text string)
}

const maxQueuedEvents = 32

// CaptionPresenter marshals controller results and statuses onto the UI
// tick. Callbacks may arrive on any goroutine.
type CaptionPresenter struct {
	model          *model.CaptionModel
	session        *model.SessionModel
	view           CaptionView
	showConfidence bool

	mu     sync.Mutex
	events []pipeline.Event
	status *pipeline.Status
}

func NewCaptionPresenter(m *model.CaptionModel, sess *model.SessionModel, view CaptionView, showConfidence bool) *CaptionPresenter {
	return &CaptionPresenter{model: m, session: sess, view: view, showConfidence: showConfidence}
}

// SetShowConfidence toggles the confidence column for later captions.
func (p *CaptionPresenter) SetShowConfidence(b bool) {
	if p != nil {
		p.showConfidence = b
	}
}

// OnResult queues an event. Oldest events are dropped past a small bound.
func (p *CaptionPresenter) OnResult(ev pipeline.Event) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	if over := len(p.events) - maxQueuedEvents; over > 0 {
		p.events = append(p.events[:0], p.events[over:]...)
	}
	p.mu.Unlock()
}

// OnStatus keeps the latest status.
func (p *CaptionPresenter) OnStatus(st pipeline.Status) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.status = &st
	p.mu.Unlock()
}

// Tick applies queued events in order and pushes the final state to the view.
func (p *CaptionPresenter) Tick(now time.Time) {
	if p == nil || p.model == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	events := p.events
	p.events = nil
	st := p.status
	p.status = nil
	p.mu.Unlock()

	changed := false
	for _, ev := range events {
		if p.model.Apply(ev) {
			changed = true
			if ev.Kind == pipeline.EventResult {
				p.session.AddCaption()
			}
		}
	}
	if changed {
		if c, ok := p.model.Current(); ok {
			conf := ""
			if p.showConfidence {
				conf = c.ConfidenceText()
			}
			p.view.SetCaption(c.Original, c.Translated, conf)
		} else {
			p.view.ClearCaption("No face detected")
		}
	}
	if st != nil {
		p.view.SetStatus(StatusText(*st))
	}
}

// StatusText renders a status for the status line.
func StatusText(st pipeline.Status) string {
	switch st.Kind {
	case pipeline.StatusStarted:
		return "Reading lips..."
	case pipeline.StatusProcessing:
		return "Processing frame..."
	case pipeline.StatusIdle:
		return "Waiting for next frame"
	case pipeline.StatusStopped:
		return "Stopped"
	case pipeline.StatusError:
		if st.Err == nil {
			return fmt.Sprintf("%s error", st.Stage)
		}
		return fmt.Sprintf("%s error: %v", st.Stage, st.Err)
	}
	return string(st.Kind)
}
