package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/debug"
	"github.com/soocke/lipread-go/ui/model"
	"github.com/soocke/lipread-go/ui/presenter"
	"github.com/soocke/lipread-go/ui/theme"
	"github.com/soocke/lipread-go/ui/view"
)

const (
	tick           = 100 * time.Millisecond
	healthInterval = 5 * time.Second
	debugInterval  = 30 * time.Second
)

// app is the Tk overlay front end.
type app struct {
	c       *AppContainer
	cfgPath string
	width   int
	height  int
	afterID string

	view    *view.RootView
	overlay view.SelectionOverlay
	regions *model.RegionModel
	control *presenter.ControlPresenter
	caption *presenter.CaptionPresenter
	speech  *presenter.SpeechPresenter
	preview *presenter.PreviewPresenter
	loop    *presenter.Loop

	watcher     *config.Watcher
	pending     atomic.Pointer[config.Config] // reloaded from disk, applied on the UI thread
	stopRuntime context.CancelFunc
}

// NewApp sizes the root window. The container must not be started.
func NewApp(title string, width, height int, c *AppContainer, cfgPath string) *app {
	a := &app{c: c, cfgPath: cfgPath, width: width, height: height}
	App.WmTitle(title)
	WmProtocol(App, "WM_DELETE_WINDOW", a.exitHandler)
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))
	return a
}

// Start builds the UI and blocks in the Tk event loop.
func (a *app) Start() {
	cfg := a.c.Config
	logger := a.c.Logger
	theme.InitStyles()

	a.view = view.NewRootView(cfg, a.cfgPath, logger)
	a.overlay = view.NewSelectionOverlay(cfg, a.cfgPath, logger, func() {
		if a.preview != nil {
			a.preview.Reset()
		}
	})
	a.c.Capture.SetSelectionProvider(a.overlay.ActiveRect)

	a.regions = model.NewRegionModel()
	session := model.NewSessionModel()
	a.control = presenter.NewControlPresenter(a.c.Controller, a.c.Capture, a.c.Settings, a.view, logger)
	a.caption = presenter.NewCaptionPresenter(model.NewCaptionModel(0), session, a.view, cfg.ShowConfidence)
	a.speech = presenter.NewSpeechPresenter(&model.SpeechModel{}, a.c.Speaker, a.view)
	a.preview = presenter.NewPreviewPresenter(a.c.Capture, a.c.Regions, a.view, a.regions, logger)
	state := presenter.NewStatePresenter(a.view)

	a.view.Build(view.Handlers{
		OnToggle:        a.control.Toggle,
		OnSelection:     a.overlay.OpenOrFocus,
		OnNextFace:      a.nextFace,
		OnSpeakAgain:    a.speech.SpeakAgain,
		OnStopSpeech:    a.speech.StopSpeech,
		OnToggleTheme:   func() { theme.ToggleDark() },
		OnExit:          a.exitHandler,
		OnConfigApplied: a.applyConfig,
	})

	ctrl := a.c.Controller
	ctrl.OnResult(a.caption.OnResult)
	ctrl.OnStatus(a.caption.OnStatus)
	ctrl.AddListener(state.OnState)
	a.c.Speaker.AddListener(a.speech.OnState)

	a.loop = presenter.NewLoop(state, presenter.NewSessionPresenter(session, a.control, a.view), a.caption, a.speech, a.preview, a.scheduleUpdate)
	if a.c.HasHealth() {
		hw := presenter.NewHealthWatcher(a.c.Probe, a.view, healthInterval, logger)
		ctrl.AddListener(hw.OnState)
		a.loop.Health = hw
	}

	if a.cfgPath != "" {
		w, err := config.Watch(a.cfgPath, func(next *config.Config) { a.pending.Store(next) }, logger)
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
		} else {
			a.watcher = w
		}
	}
	if cfg.Debug {
		ctx, cancel := context.WithCancel(context.Background())
		a.stopRuntime = cancel
		debug.StartRuntimeLogger(ctx, debugInterval, logger)
	}

	a.scheduleUpdate()
	App.Wait()
}

// scheduleUpdate applies a pending file reload and arms the next loop tick
// with TclAfter so all view work stays on the Tk thread.
func (a *app) scheduleUpdate() {
	if next := a.pending.Swap(nil); next != nil && !SameConfig(a.c.Config, next) {
		a.applyConfig(next)
		a.view.ConfigPanel.Reload()
	}
	a.afterID = TclAfter(tick, a.loop.Tick)
}

// applyConfig copies next into the shared config and restarts a running
// session so the new snapshot takes effect.
func (a *app) applyConfig(next *config.Config) {
	if next == nil {
		return
	}
	a.control.Restart(func() error {
		*a.c.Config = *next.Clone()
		if err := a.c.Reconfigure(); err != nil {
			return err
		}
		a.preview.Regions = a.c.Regions
		return nil
	})
	a.caption.SetShowConfidence(a.c.Config.ShowConfidence)
}

func (a *app) nextFace() {
	id := a.regions.Next()
	if id == "" {
		return
	}
	a.c.Controller.SelectRegion(id)
	a.c.Logger.Info("region selected", "id", id)
}

func (a *app) exitHandler() {
	if a.afterID != "" {
		TclAfterCancel(a.afterID)
	}
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	if a.stopRuntime != nil {
		a.stopRuntime()
	}
	a.c.Close()
	Destroy(App)
}
