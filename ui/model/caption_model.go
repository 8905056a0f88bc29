package model

import (
	"fmt"
	"time"

	"github.com/soocke/lipread-go/domain/pipeline"
)

// Caption is one displayed result.
type Caption struct {
	Original   string
	Translated string
	Confidence float64
	Source     string
	Target     string
	At         time.Time
}

// ConfidenceText formats the confidence as a whole percentage.
func (c Caption) ConfidenceText() string {
	return fmt.Sprintf("%.0f%%", c.Confidence*100)
}

// CaptionModel holds the displayed caption plus a short list of recent ones.
// The zero value keeps eight recent captions.
type CaptionModel struct {
	current Caption
	shown   bool
	recent  []Caption
	limit   int
}

func NewCaptionModel(limit int) *CaptionModel { return &CaptionModel{limit: limit} }

// Apply folds a controller event into the model. Results replace the
// current caption; empty events clear it. It reports whether the display
// changed.
func (m *CaptionModel) Apply(ev pipeline.Event) bool {
	if m == nil {
		return false
	}
	switch ev.Kind {
	case pipeline.EventResult:
		c := Caption{
			Original:   ev.Original,
			Translated: ev.Translated,
			Confidence: ev.Confidence,
			Source:     ev.Source,
			Target:     ev.Target,
			At:         ev.At,
		}
		m.current, m.shown = c, true
		m.push(c)
		return true
	case pipeline.EventEmpty:
		if !m.shown {
			return false
		}
		m.current, m.shown = Caption{}, false
		return true
	}
	return false
}

func (m *CaptionModel) push(c Caption) {
	limit := m.limit
	if limit <= 0 {
		limit = 8
	}
	m.recent = append(m.recent, c)
	if over := len(m.recent) - limit; over > 0 {
		m.recent = append(m.recent[:0], m.recent[over:]...)
	}
}

// Current returns the displayed caption; ok is false when cleared.
func (m *CaptionModel) Current() (Caption, bool) {
	if m == nil {
		return Caption{}, false
	}
	return m.current, m.shown
}

// Recent returns displayed captions, newest last.
func (m *CaptionModel) Recent() []Caption {
	if m == nil {
		return nil
	}
	return append([]Caption(nil), m.recent...)
}

// Reset clears the caption and the recent list.
func (m *CaptionModel) Reset() {
	if m == nil {
		return
	}
	m.current, m.shown, m.recent = Caption{}, false, nil
}
