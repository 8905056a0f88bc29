package view

import (
	"image"
	"log/slog"
	"sync/atomic"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders
	. "modernc.org/tk9.0"
)

// SelectionOverlay is a see-through window the user drags over the video
// call (or any face) to constrain screen capture.
type SelectionOverlay interface {
	OpenOrFocus()
	Clear()
	ActiveRect() *image.Rectangle
}

type selectionOverlay struct {
	logger    *slog.Logger
	cfg       *config.Config
	cfgPath   string
	onChange  func()
	selection atomic.Pointer[image.Rectangle] // read by the capture goroutine
	win       *ToplevelWidget
}

// screen size used to place a fresh overlay
const assumedScreenW, assumedScreenH = 1920, 1080

// NewSelectionOverlay restores the saved selection from cfg. onChange runs
// on the UI thread after the selection changes and may be nil.
func NewSelectionOverlay(cfg *config.Config, cfgPath string, logger *slog.Logger, onChange func()) SelectionOverlay {
	v := &selectionOverlay{logger: logger, cfg: cfg, cfgPath: cfgPath, onChange: onChange}
	if cfg != nil && cfg.SelectionW > 0 && cfg.SelectionH > 0 {
		rect := image.Rect(cfg.SelectionX, cfg.SelectionY, cfg.SelectionX+cfg.SelectionW, cfg.SelectionY+cfg.SelectionH)
		v.selection.Store(&rect)
	}
	return v
}

func (v *selectionOverlay) OpenOrFocus() {
	if v.win != nil {
		WmGeometry(v.win.Window)
		return
	}
	win := App.Toplevel(Borderwidth(2), Background("#008080"))
	win.WmTitle("Capture Area")
	v.win = win
	initial := model.InitialSelection(assumedScreenW, assumedScreenH)
	if cur := v.ActiveRect(); cur != nil {
		initial = *cur
	}
	WmGeometry(win.Window, model.FormatGeometry(initial))
	WmAttributes(win.Window, "-topmost", 1)
	WmAttributes(win.Window, "-toolwindow", true)
	WmAttributes(win.Window, "-transparentcolor", "#008080")
	GridRowConfigure(win.Window, 0, Weight(1))
	GridColumnConfigure(win.Window, 0, Weight(0))
	GridColumnConfigure(win.Window, 1, Weight(1))
	GridColumnConfigure(win.Window, 2, Weight(0))
	left := win.Frame(Width(4), Background("#FFFFFF"))
	Grid(left, Row(0), Column(0), Sticky("ns"))
	center := win.Frame(Background("#008080"))
	Grid(center, Row(0), Column(1), Sticky("nsew"))
	right := win.Frame(Width(4), Background("#FFFFFF"))
	Grid(right, Row(0), Column(2), Sticky("ns"))
	controls := win.Frame()
	Grid(controls, Row(1), Column(0), Columnspan(3), Sticky("we"))
	hint := win.Label(Txt("Frame the speaker's face, then confirm"))
	Grid(hint, In(controls), Row(0), Column(0), Columnspan(3), Sticky("we"))
	confirm := win.Button(Txt("Confirm [Enter]"), Command(v.confirm))
	Grid(confirm, In(controls), Row(1), Column(0), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	cancel := win.Button(Txt("Cancel [Esc]"), Command(v.cancel))
	Grid(cancel, In(controls), Row(1), Column(1), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	clear := win.Button(Txt("Full Screen"), Command(func() { v.Clear(); v.destroy() }))
	Grid(clear, In(controls), Row(1), Column(2), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	Bind(win, "<Return>", Command(v.confirm))
	Bind(win, "<Escape>", Command(v.cancel))
}

func (v *selectionOverlay) Clear() {
	v.selection.Store(nil)
	if v.cfg != nil {
		v.cfg.SelectionX, v.cfg.SelectionY, v.cfg.SelectionW, v.cfg.SelectionH = 0, 0, 0, 0
		v.save()
	}
	if v.onChange != nil {
		v.onChange()
	}
}

func (v *selectionOverlay) confirm() {
	if v.win == nil {
		return
	}
	if rect, ok := model.ParseGeometry(WmGeometry(v.win.Window)); ok {
		v.selection.Store(&rect)
		if v.cfg != nil {
			v.cfg.SelectionX, v.cfg.SelectionY = rect.Min.X, rect.Min.Y
			v.cfg.SelectionW, v.cfg.SelectionH = rect.Dx(), rect.Dy()
			v.save()
		}
		if v.logger != nil {
			v.logger.Info("capture area set", "rect", rect.String())
		}
		if v.onChange != nil {
			v.onChange()
		}
	}
	v.destroy()
}

func (v *selectionOverlay) save() {
	if err := v.cfg.Save(v.cfgPath); err != nil && v.logger != nil {
		v.logger.Error("config save failed", "error", err)
	}
}

func (v *selectionOverlay) cancel() { v.destroy() }

func (v *selectionOverlay) destroy() {
	if v.win != nil {
		Destroy(v.win)
		v.win = nil
	}
}

// ActiveRect returns the selection or nil for full-screen capture. Safe for
// concurrent use.
func (v *selectionOverlay) ActiveRect() *image.Rectangle {
	r := v.selection.Load()
	if r == nil || r.Empty() {
		return nil
	}
	out := *r
	return &out
}
