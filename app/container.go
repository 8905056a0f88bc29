package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/soocke/lipread-go/assets"
	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/history"
	"github.com/soocke/lipread-go/domain/pipeline"
	"github.com/soocke/lipread-go/domain/recognition"
	"github.com/soocke/lipread-go/domain/speech"
	"github.com/soocke/lipread-go/domain/speech/piper"
	"github.com/soocke/lipread-go/domain/translation"
)

// HealthProbe checks that a remote stage is reachable.
type HealthProbe func(ctx context.Context) error

// Options tweak container construction.
type Options struct {
	// ImagePath replaces screen capture with a fixed image file.
	ImagePath string
	// NoHistory skips opening the history store even when enabled in config.
	NoHistory bool
}

// AppContainer assembles the services shared by the desktop and headless
// front ends.
type AppContainer struct {
	Config *config.Config
	Logger *slog.Logger

	// Capture is nil when samples come from a fixed image.
	Capture    capture.CaptureService
	Source     capture.Source
	Regions    *detection.Recorder
	Recognizer recognition.Recognizer
	Translator translation.Translator
	Synth      speech.Synthesizer
	Speaker    *speech.Speaker
	Controller *pipeline.Controller
	History    *history.Store // nil when history is disabled

	mu     sync.Mutex
	health HealthProbe // nil when the recognizer has no health endpoint
}

// BuildContainer constructs every service from cfg. Nothing is started.
func BuildContainer(cfg *config.Config, logger *slog.Logger, opts Options) (*AppContainer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &AppContainer{Config: cfg, Logger: logger}

	if opts.ImagePath != "" {
		src, err := capture.LoadImageSource(opts.ImagePath)
		if err != nil {
			return nil, err
		}
		c.Source = src
	} else {
		c.Capture = capture.NewCaptureService(logger, nil, cfg.CaptureInterval())
		c.Source = capture.NewLatestSource(c.Capture, cfg.MaxFrameAge())
	}

	det, err := newDetector(cfg, logger)
	if err != nil {
		return nil, err
	}
	c.Regions = detection.NewRecorder(det)

	c.Recognizer, c.health, err = newRecognizer(cfg, logger)
	if err != nil {
		return nil, err
	}
	if c.Translator, err = newTranslator(cfg); err != nil {
		return nil, err
	}
	if c.Synth, err = newSynthesizer(cfg, logger); err != nil {
		return nil, err
	}
	c.Speaker = speech.NewSpeaker(c.Synth, logger)
	c.Speaker.OnError(func(err error) { logger.Warn("speech failed", "error", err) })

	c.Controller = pipeline.NewController(pipeline.Stages{
		Source:     c.Source,
		Detector:   c.Regions,
		Recognizer: c.Recognizer,
		Translator: c.Translator,
		Speaker:    c.Speaker,
	}, logger)

	if cfg.SaveHistory && !opts.NoHistory {
		store, err := history.Open(cfg.HistoryPath, logger)
		if err != nil {
			logger.Warn("history disabled", "error", err)
		} else {
			c.History = store
			c.Controller.OnResult(store.Sink())
		}
	}
	return c, nil
}

// HasHealth reports whether the recognizer exposes a health endpoint.
func (c *AppContainer) HasHealth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.health != nil
}

// Probe checks the current recognizer. Recognizers without a health
// endpoint always pass.
func (c *AppContainer) Probe(ctx context.Context) error {
	c.mu.Lock()
	probe := c.health
	c.mu.Unlock()
	if probe == nil {
		return nil
	}
	return probe(ctx)
}

// Reconfigure rebuilds the detector, recognizer and translator from the
// current config. The controller must be idle. The speech engine and capture
// loop are kept.
func (c *AppContainer) Reconfigure() error {
	det, err := newDetector(c.Config, c.Logger)
	if err != nil {
		return err
	}
	rec, probe, err := newRecognizer(c.Config, c.Logger)
	if err != nil {
		return err
	}
	tr, err := newTranslator(c.Config)
	if err != nil {
		return err
	}
	regions := detection.NewRecorder(det)
	if err := c.Controller.SetStages(pipeline.Stages{
		Source:     c.Source,
		Detector:   regions,
		Recognizer: rec,
		Translator: tr,
		Speaker:    c.Speaker,
	}); err != nil {
		return err
	}
	c.Regions, c.Recognizer, c.Translator = regions, rec, tr
	c.mu.Lock()
	c.health = probe
	c.mu.Unlock()
	c.Logger.Info("pipeline reconfigured", "detector", c.Config.Detector, "recognizer", c.Config.Recognizer, "translator", c.Config.Translator)
	return nil
}

// Settings snapshots the current config for a controller session.
func (c *AppContainer) Settings() pipeline.Settings { return PipelineSettings(c.Config) }

// StartPipeline starts capture (when screen-backed) and the controller.
// Capture is stopped again when the controller refuses to start.
func (c *AppContainer) StartPipeline() error {
	if c.Capture != nil {
		c.Capture.Start()
	}
	err := c.Controller.Start(c.Settings())
	if err != nil && !errors.Is(err, pipeline.ErrAlreadyRunning) && c.Capture != nil {
		c.Capture.Stop()
	}
	return err
}

// StopPipeline stops the controller and capture.
func (c *AppContainer) StopPipeline() {
	c.Controller.Stop()
	if c.Capture != nil {
		c.Capture.Stop()
	}
}

// Close stops everything and releases the history store.
func (c *AppContainer) Close() {
	if c == nil {
		return
	}
	c.StopPipeline()
	c.Controller.Close()
	if c.History != nil {
		if err := c.History.Close(); err != nil {
			c.Logger.Warn("history close", "error", err)
		}
	}
}

func newDetector(cfg *config.Config, logger *slog.Logger) (detection.Detector, error) {
	var det detection.Detector
	switch strings.ToLower(cfg.Detector) {
	case "static":
		det = detection.StaticDetector{Regions: []detection.Region{detection.CenterFace}}
	case "", "template":
		img, err := assets.FaceTemplate()
		if err != nil {
			return nil, fmt.Errorf("face template: %w", err)
		}
		td, err := detection.NewTemplateDetector(img, cfg, logger)
		if err != nil {
			return nil, err
		}
		det = td
	default:
		return nil, fmt.Errorf("unknown detector %q", cfg.Detector)
	}
	if cfg.TrackRegions {
		det = detection.NewTracker(det, cfg.TrackIoU)
	}
	return det, nil
}

func newRecognizer(cfg *config.Config, logger *slog.Logger) (recognition.Recognizer, HealthProbe, error) {
	switch strings.ToLower(cfg.Recognizer) {
	case "scripted":
		phrases := cfg.ScriptedPhrases
		if len(phrases) == 0 {
			phrases = recognition.DefaultPhrases
		}
		return recognition.NewScriptedRecognizer(phrases, 0.9, 2), nil, nil
	case "", "http":
		hc := recognition.DefaultHTTPConfig()
		if cfg.RecognizerURL != "" {
			hc.BaseURL = cfg.RecognizerURL
		}
		r := recognition.NewHTTPRecognizer(hc, logger)
		return r, r.Health, nil
	default:
		return nil, nil, fmt.Errorf("unknown recognizer %q", cfg.Recognizer)
	}
}

func newTranslator(cfg *config.Config) (translation.Translator, error) {
	var t translation.Translator
	switch strings.ToLower(cfg.Translator) {
	case "", "dictionary":
		t = translation.NewDictionaryTranslator(nil)
	case "google":
		g, err := translation.NewGoogleTranslator(translation.DefaultGoogleConfig(cfg.TranslateAPIKey))
		if err != nil {
			return nil, err
		}
		t = g
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown translator %q", cfg.Translator)
	}
	return translation.Cached(t, cfg.TranslateCacheSize)
}

// newSynthesizer falls back to a silent engine when the platform has no
// speech command, so captions still flow.
func newSynthesizer(cfg *config.Config, logger *slog.Logger) (speech.Synthesizer, error) {
	switch strings.ToLower(cfg.SpeechEngine) {
	case "none":
		return speech.NopSynthesizer{Logger: logger}, nil
	case "piper":
		return piper.New(piper.Config{Model: cfg.PiperModel}, logger)
	case "", "command":
		s, err := speech.NewCommandSynthesizer(logger)
		if err != nil {
			logger.Warn("speech unavailable, captions only", "error", err)
			return speech.NopSynthesizer{Logger: logger}, nil
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown speech engine %q", cfg.SpeechEngine)
	}
}

// Voices lists the voices of the configured speech engine and the one the
// current target language and gender would use.
func Voices(ctx context.Context, cfg *config.Config, logger *slog.Logger) (voices []speech.Voice, pick speech.Voice, ok bool, err error) {
	synth, err := newSynthesizer(cfg, logger)
	if err != nil {
		return nil, speech.Voice{}, false, err
	}
	voices, err = synth.Voices(ctx)
	if err != nil {
		return nil, speech.Voice{}, false, err
	}
	opts := PipelineSettings(cfg).Voice
	pick, ok = speech.SelectVoice(voices, opts.Language, opts.Gender)
	return voices, pick, ok, nil
}
