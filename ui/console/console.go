// Package console prints captions and status to a terminal.
package console

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/soocke/lipread-go/domain/pipeline"
)

// Console writes styled lines. Safe for concurrent use.
type Console struct {
	mu             sync.Mutex
	w              io.Writer
	showConfidence bool
	verbose        bool

	timeStyle     lipgloss.Style
	originalStyle lipgloss.Style
	arrowStyle    lipgloss.Style
	translated    lipgloss.Style
	faint         lipgloss.Style
	errStyle      lipgloss.Style
	okStyle       lipgloss.Style
}

// New styles output for w. verbose also prints processing and idle statuses.
func New(w io.Writer, showConfidence, verbose bool) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:              w,
		showConfidence: showConfidence,
		verbose:        verbose,
		timeStyle:      r.NewStyle().Foreground(lipgloss.Color("8")),
		originalStyle:  r.NewStyle().Foreground(lipgloss.Color("252")),
		arrowStyle:     r.NewStyle().Foreground(lipgloss.Color("63")),
		translated:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		faint:          r.NewStyle().Faint(true),
		errStyle:       r.NewStyle().Foreground(lipgloss.Color("203")),
		okStyle:        r.NewStyle().Foreground(lipgloss.Color("42")),
	}
}

// Result prints a caption or a cleared marker.
func (c *Console) Result(ev pipeline.Event) {
	line := c.timeStyle.Render(stamp(ev.At)) + " "
	switch ev.Kind {
	case pipeline.EventEmpty:
		line += c.faint.Render("(no face)")
	default:
		line += c.originalStyle.Render(ev.Original) +
			c.arrowStyle.Render(fmt.Sprintf(" %s→%s ", ev.Source, ev.Target)) +
			c.translated.Render(ev.Translated)
		if c.showConfidence {
			line += c.faint.Render(fmt.Sprintf(" (%.0f%%)", ev.Confidence*100))
		}
	}
	c.println(line)
}

// Status prints lifecycle changes and stage errors.
func (c *Console) Status(st pipeline.Status) {
	var line string
	switch st.Kind {
	case pipeline.StatusError:
		line = c.errStyle.Render(fmt.Sprintf("%s error: %v", st.Stage, st.Err))
	case pipeline.StatusStarted:
		line = c.okStyle.Render("started ") + c.faint.Render(st.SessionID)
	case pipeline.StatusStopped:
		line = c.okStyle.Render("stopped")
	default:
		if !c.verbose {
			return
		}
		line = c.faint.Render(string(st.Kind))
	}
	c.println(c.timeStyle.Render(stamp(st.At)) + " " + line)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}

func stamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.Format("15:04:05")
}
