package presenter

import (
	"errors"
	"log/slog"

	"github.com/soocke/lipread-go/domain/pipeline"
)

// PipelineControl narrows the controller to what the start/stop button needs.
type PipelineControl interface {
	Start(pipeline.Settings) error
	Stop()
	State() pipeline.State
}

// LifecycleContract is the capture loop feeding the pipeline.
type LifecycleContract interface {
	Start()
	Stop()
}

// ControlView updates UI elements affected by starting and stopping.
type ControlView interface {
	PreviewReset()
	SetRunning(bool)
	ShowError(string)
}

// ControlPresenter owns the start/stop flow. Settings are read at every
// Enable so edits apply on the next start.
type ControlPresenter struct {
	ctrl     PipelineControl
	service  LifecycleContract
	settings func() pipeline.Settings
	view     ControlView
	logger   *slog.Logger
}

func NewControlPresenter(ctrl PipelineControl, service LifecycleContract, settings func() pipeline.Settings, view ControlView, logger *slog.Logger) *ControlPresenter {
	return &ControlPresenter{ctrl: ctrl, service: service, settings: settings, view: view, logger: logger}
}

func (c *ControlPresenter) ready() bool {
	return c != nil && c.ctrl != nil && c.service != nil && c.settings != nil && c.view != nil
}

// Running reports whether a session is active.
func (c *ControlPresenter) Running() bool {
	return c.ready() && c.ctrl.State() != pipeline.Idle
}

// Enable starts the capture loop and a pipeline session. Idempotent.
func (c *ControlPresenter) Enable() {
	if !c.ready() || c.Running() {
		return
	}
	c.service.Start()
	if err := c.ctrl.Start(c.settings()); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			return
		}
		c.service.Stop()
		if c.logger != nil {
			c.logger.Error("pipeline start", "error", err)
		}
		c.view.ShowError(err.Error())
		return
	}
	c.view.SetRunning(true)
}

// Disable stops the session and the capture loop, resetting the preview.
// Idempotent.
func (c *ControlPresenter) Disable() {
	if !c.ready() || !c.Running() {
		return
	}
	c.ctrl.Stop()
	c.service.Stop()
	c.view.PreviewReset()
	c.view.SetRunning(false)
}

// Toggle flips between Enable and Disable.
func (c *ControlPresenter) Toggle() {
	if !c.ready() {
		return
	}
	if c.Running() {
		c.Disable()
		return
	}
	c.Enable()
}

// Restart stops a running session, runs reconfigure while idle and starts
// again. A reconfigure error is shown and the session stays stopped.
func (c *ControlPresenter) Restart(reconfigure func() error) {
	if !c.ready() {
		return
	}
	running := c.Running()
	c.Disable()
	if reconfigure != nil {
		if err := reconfigure(); err != nil {
			if c.logger != nil {
				c.logger.Error("reconfigure", "error", err)
			}
			c.view.ShowError(err.Error())
			return
		}
	}
	if running {
		c.Enable()
	}
}
