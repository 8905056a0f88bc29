package app

import (
	"context"
	"io"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/debug"
	"github.com/soocke/lipread-go/domain/pipeline"
	"github.com/soocke/lipread-go/transport/httpapi"
	"github.com/soocke/lipread-go/transport/mqttpub"
	"github.com/soocke/lipread-go/ui/console"
)

// HeadlessOptions configure a Headless runner.
type HeadlessOptions struct {
	ConfigPath string // watched for changes when set
	Out        io.Writer
	Verbose    bool // print every status, not only errors
	NoHTTP     bool
	Idle       bool // wait for POST /start instead of starting immediately
}

// Headless runs the pipeline without a window, fanning results out to the
// console, the HTTP API and MQTT.
type Headless struct {
	c    *AppContainer
	opts HeadlessOptions

	// mu serializes start, stop and reload.
	mu sync.Mutex
}

func NewHeadless(c *AppContainer, opts HeadlessOptions) *Headless {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &Headless{c: c, opts: opts}
}

// Start starts capture and a controller session.
func (h *Headless) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.c.StartPipeline()
}

// Stop ends the session and the capture loop. Idempotent.
func (h *Headless) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.c.StopPipeline()
}

// Reload applies next, restarting a running session around the change.
func (h *Headless) Reload(next *config.Config) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if next == nil || SameConfig(h.c.Config, next) {
		return nil
	}
	running := h.c.Controller.State() != pipeline.Idle
	h.c.StopPipeline()
	*h.c.Config = *next.Clone()
	if err := h.c.Reconfigure(); err != nil {
		return err
	}
	if running {
		return h.c.StartPipeline()
	}
	return nil
}

// Run blocks until ctx ends or a service fails, then closes the container.
func (h *Headless) Run(ctx context.Context) error {
	c := h.c
	cfg := c.Config
	logger := c.Logger
	defer c.Close()

	con := console.New(h.opts.Out, cfg.ShowConfidence, h.opts.Verbose)
	c.Controller.OnResult(con.Result)
	c.Controller.OnStatus(con.Status)

	if cfg.MQTTBroker != "" {
		pub, err := mqttpub.Connect(ctx, mqttpub.Config{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Prefix:   cfg.MQTTTopic,
		}, logger)
		if err != nil {
			logger.Warn("mqtt disabled", "error", err)
		} else {
			defer pub.Close()
			c.Controller.OnResult(pub.PublishEvent)
			c.Controller.OnStatus(pub.PublishStatus)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if !h.opts.NoHTTP && cfg.HTTPAddr != "" {
		opts := httpapi.Options{
			Pipeline: headlessPipeline{Controller: c.Controller, h: h},
			Start:    h.Start,
			Logger:   logger,
		}
		if c.History != nil {
			opts.History = c.History
		}
		srv := httpapi.New(opts)
		onResult, onStatus := srv.Sinks()
		c.Controller.OnResult(onResult)
		c.Controller.OnStatus(onStatus)
		g.Go(func() error { return srv.Run(gctx, cfg.HTTPAddr) })
	}

	if h.opts.ConfigPath != "" {
		w, err := config.Watch(h.opts.ConfigPath, func(next *config.Config) {
			if err := h.Reload(next); err != nil {
				logger.Error("config apply failed", "error", err)
			}
		}, logger)
		if err != nil {
			logger.Warn("config watch disabled", "error", err)
		} else {
			defer w.Close()
		}
	}

	if cfg.Debug {
		debug.StartRuntimeLogger(gctx, debugInterval, logger)
	}

	g.Go(func() error {
		<-gctx.Done()
		h.Stop()
		return nil
	})
	if !h.opts.Idle {
		if err := h.Start(); err != nil {
			cancel()
			_ = g.Wait()
			return err
		}
	}
	err := g.Wait()
	logger.Info("headless stopped", "stats", c.Controller.Stats())
	return err
}

// headlessPipeline stops capture together with the controller.
type headlessPipeline struct {
	*pipeline.Controller
	h *Headless
}

func (p headlessPipeline) Stop() { p.h.Stop() }
