package presenter

import (
	"sync"
	"time"

	"github.com/soocke/lipread-go/domain/pipeline"
)

// StateView sets the state label in the view.
type StateView interface{ SetStateLabel(string) }

// StatePresenter receives controller transitions from any goroutine and
// reflects the most recent one on the next Tick.
type StatePresenter struct {
	view StateView

	mu      sync.Mutex
	pending []pipeline.State

	latest pipeline.State
	shown  bool
}

func NewStatePresenter(view StateView) *StatePresenter {
	return &StatePresenter{view: view}
}

// OnState queues a transition. It is a pipeline.StateListener.
func (p *StatePresenter) OnState(prev, next pipeline.State) {
	if p == nil {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, next)
	p.mu.Unlock()
}

// Tick flushes queued states and updates the label when the last one differs
// from what is displayed.
func (p *StatePresenter) Tick(now time.Time) {
	if p == nil || p.view == nil {
		return
	}
	p.mu.Lock()
	n := len(p.pending)
	var last pipeline.State
	if n > 0 {
		last = p.pending[n-1]
		p.pending = p.pending[:0]
	}
	p.mu.Unlock()
	if n == 0 && p.shown {
		return
	}
	if n == 0 {
		last = pipeline.Idle
	}
	if p.shown && last == p.latest {
		return
	}
	p.latest, p.shown = last, true
	p.view.SetStateLabel("State: " + last.String())
}
