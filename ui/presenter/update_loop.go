package presenter

import "time"

// Loop aggregates feature presenters and drives periodic updates.
//
// It calls Tick/ProcessFrame on the sub-presenters and invokes a
// scheduler callback. The zero value is usable (methods are nil-safe).
type Loop struct {
	State    *StatePresenter
	Session  *SessionPresenter
	Caption  *CaptionPresenter
	Speech   *SpeechPresenter
	Preview  *PreviewPresenter
	Health   *HealthWatcher
	Schedule func()
}

func NewLoop(state *StatePresenter, sess *SessionPresenter, caption *CaptionPresenter, sp *SpeechPresenter, preview *PreviewPresenter, schedule func()) *Loop {
	return &Loop{State: state, Session: sess, Caption: caption, Speech: sp, Preview: preview, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	now := time.Now()
	if l.State != nil {
		l.State.Tick(now)
	}
	// captions before session so the counters include this tick's results
	if l.Caption != nil {
		l.Caption.Tick(now)
	}
	if l.Session != nil {
		l.Session.Tick(now)
	}
	if l.Speech != nil {
		l.Speech.Tick(now)
	}
	if l.Health != nil {
		l.Health.Tick(now)
	}
	if l.Preview != nil {
		l.Preview.ProcessFrame()
	}
	if l.Schedule != nil {
		l.Schedule()
	}
}
