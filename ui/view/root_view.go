package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the user actions the root view forwards.
type Handlers struct {
	OnToggle        func()
	OnSelection     func()
	OnNextFace      func()
	OnSpeakAgain    func()
	OnStopSpeech    func()
	OnToggleTheme   func()
	OnExit          func()
	OnConfigApplied func(*config.Config)
}

// RootView composes the top-level application layout and wires UI callbacks.
// It owns high-level subviews but exposes minimal exported fields for presenters.
type RootView struct {
	cfg     *config.Config
	cfgPath string
	logger  *slog.Logger

	// Subviews
	Session     SessionStats
	Caption     CaptionPanel
	ConfigPanel ConfigPanel
	CapturePrev CapturePreview

	// Widgets
	StateLabel *TLabelWidget
	toggleBtn  *TButtonWidget
	stopSpeech *TButtonWidget
	speaking   *LabelWidget
}

// UI abstracts the subset of view operations needed by presenters, enabling decoupling
// from the concrete RootView implementation.
type UI interface {
	SetStateLabel(text string)
	SetRunning(running bool)
	PreviewReset()
	ShowError(msg string)
	UpdateCapture(img image.Image)
	UpdateMouth(img image.Image)
	SetSession(session, total time.Duration)
	SetCaptionCount(session, total int)
	SetCaption(original, translated, confidence string)
	ClearCaption(note string)
	SetStatus(text string)
	SetHealth(text string)
	SetSpeaking(bool)
}

var _ UI = (*RootView)(nil)

func NewRootView(cfg *config.Config, cfgPath string, logger *slog.Logger) *RootView {
	return &RootView{cfg: cfg, cfgPath: cfgPath, logger: logger}
}

func orNop(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}

// Build constructs the layout. Handlers are invoked on user actions.
func (rv *RootView) Build(h Handlers) {
	if rv == nil {
		return
	}
	// Row 0: session stats, state label, button column
	rv.Session = NewSessionStats(nil, 0, 0)
	rv.StateLabel = TLabel(Style(theme.StyleStateLabel), Txt("State: Idle"))
	Grid(rv.StateLabel, Row(0), Column(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))

	btnFrame := Frame()
	Grid(btnFrame, Row(0), Column(4), Sticky("ne"), Padx("0.3m"), Pady("0.3m"))
	rv.toggleBtn = TButton(Style(theme.StylePrimaryButton), Txt("Start"), Command(orNop(h.OnToggle)))
	buttons := []Widget{
		rv.toggleBtn,
		Button(Txt("Capture Area"), Command(orNop(h.OnSelection))),
		Button(Txt("Next Face"), Command(orNop(h.OnNextFace))),
		Button(Txt("Speak Again"), Command(orNop(h.OnSpeakAgain))),
	}
	rv.stopSpeech = TButton(Style(theme.StyleDangerButton), Txt("Stop Speech"), Command(orNop(h.OnStopSpeech)))
	buttons = append(buttons, rv.stopSpeech,
		Button(Txt("Dark / Light"), Command(orNop(h.OnToggleTheme))),
		Button(Txt("Exit"), Command(orNop(h.OnExit))),
	)
	for i, b := range buttons {
		Grid(b, In(btnFrame), Row(i), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	}
	rv.speaking = Label(Txt(""))
	Grid(rv.speaking, In(btnFrame), Row(len(buttons)), Column(0), Sticky("we"))

	// Row 1: captions
	rv.Caption = NewCaptionPanel(1)

	// Settings rows
	rv.ConfigPanel = NewConfigPanel(rv.cfg, rv.cfgPath, rv.logger, h.OnConfigApplied)
	endRow := rv.ConfigPanel.Build(2)

	rv.CapturePrev = NewCapturePreview(endRow)
	rv.SetSpeaking(false)
}

func (rv *RootView) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetRunning flips the start button and the apply button wording.
func (rv *RootView) SetRunning(running bool) {
	if rv == nil {
		return
	}
	if rv.toggleBtn != nil {
		if running {
			rv.toggleBtn.Configure(Txt("Stop"))
		} else {
			rv.toggleBtn.Configure(Txt("Start"))
		}
	}
	if rv.ConfigPanel != nil {
		rv.ConfigPanel.SetRunning(running)
	}
}

func (rv *RootView) PreviewReset() {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.Reset()
	}
}

func (rv *RootView) ShowError(msg string) {
	if rv != nil && rv.Caption != nil {
		rv.Caption.SetStatus("Error: " + msg)
	}
}

func (rv *RootView) UpdateCapture(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.UpdateCapture(img)
	}
}

func (rv *RootView) UpdateMouth(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.UpdateMouth(img)
	}
}

func (rv *RootView) SetSession(session, total time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(session)
	rv.Session.SetTotal(total)
}

func (rv *RootView) SetCaptionCount(session, total int) {
	if rv != nil && rv.Session != nil {
		rv.Session.SetCaptions(session, total)
	}
}

func (rv *RootView) SetCaption(original, translated, confidence string) {
	if rv != nil && rv.Caption != nil {
		rv.Caption.SetCaption(original, translated, confidence)
	}
}

func (rv *RootView) ClearCaption(note string) {
	if rv != nil && rv.Caption != nil {
		rv.Caption.ClearCaption(note)
	}
}

func (rv *RootView) SetStatus(text string) {
	if rv != nil && rv.Caption != nil {
		rv.Caption.SetStatus(text)
	}
}

func (rv *RootView) SetHealth(text string) {
	if rv != nil && rv.Caption != nil {
		rv.Caption.SetHealth(text)
	}
}

// SetSpeaking enables Stop Speech only while an utterance plays.
func (rv *RootView) SetSpeaking(speaking bool) {
	if rv == nil || rv.stopSpeech == nil {
		return
	}
	if speaking {
		rv.stopSpeech.Configure(State("normal"))
		rv.speaking.Configure(Txt("Speaking..."))
		return
	}
	rv.stopSpeech.Configure(State("disabled"))
	rv.speaking.Configure(Txt(""))
}
