package presenter

import (
	"time"

	"github.com/soocke/lipread-go/ui/model"
)

// RunningSource reports whether a pipeline session is active.
type RunningSource interface{ Running() bool }

// SessionView displays session timers and caption counts.
type SessionView interface {
	SetSession(session, total time.Duration)
	SetCaptionCount(session, total int)
}

// SessionPresenter formats session and total durations from the model to the view.
type SessionPresenter struct {
	sess *model.SessionModel
	run  RunningSource
	view SessionView
}

// NewSessionPresenter returns a new SessionPresenter.
func NewSessionPresenter(sess *model.SessionModel, run RunningSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, run: run, view: view}
}

// Tick advances the session model and pushes values to the view.
func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.run == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.run.Running(), now)
	s, t := p.sess.Values()
	p.view.SetSession(s, t)
	cs, ct := p.sess.Captions()
	p.view.SetCaptionCount(cs, ct)
}
