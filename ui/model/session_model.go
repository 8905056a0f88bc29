package model

import (
	"time"
)

// SessionModel tracks the current session duration, the accumulated running
// time and how many captions each session produced. Presenters poll Values()
// and update views. The zero value is ready to use.
type SessionModel struct {
	active              bool
	sessionStart        time.Time
	lastSessionDuration time.Duration
	accumulated         time.Duration
	captions            int
	totalCaptions       int
}

// NewSessionModel returns a pointer to a ready-to-use SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick updates the model from the pipeline running flag.
func (m *SessionModel) OnTick(running bool, now time.Time) {
	if m == nil {
		return
	}
	if running {
		if !m.active { // off -> on
			m.active = true
			m.sessionStart = now
			m.lastSessionDuration = 0
			m.captions = 0
		}
		m.lastSessionDuration = now.Sub(m.sessionStart)
	} else if m.active { // on -> off
		m.lastSessionDuration = now.Sub(m.sessionStart)
		m.accumulated += m.lastSessionDuration
		m.active = false
	}
}

// AddCaption counts one published caption.
func (m *SessionModel) AddCaption() {
	if m == nil {
		return
	}
	m.captions++
	m.totalCaptions++
}

// Values returns the current session duration and the total accumulated duration.
// The total includes the ongoing session when active.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	session = m.lastSessionDuration
	total = m.accumulated
	if m.active {
		total += session
	}
	return
}

// Captions returns the caption counts for the current (or last) session and
// overall.
func (m *SessionModel) Captions() (session, total int) {
	if m == nil {
		return 0, 0
	}
	return m.captions, m.totalCaptions
}
