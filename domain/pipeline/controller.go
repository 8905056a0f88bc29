package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/recognition"
	"github.com/soocke/lipread-go/domain/stage"
	"github.com/soocke/lipread-go/domain/translation"
)

// StateListener observes controller transitions.
type StateListener func(prev, next State)

type session struct {
	id       string
	gen      uint64
	settings Settings
	stages   Stages
	stop     chan struct{}
}

// Controller owns the sampling timer and runs at most one pass at a time.
//
// Result, status and state callbacks are invoked one at a time in the order
// the controller produced them. They must not call Start, Stop or Tick.
type Controller struct {
	logger *slog.Logger
	base   context.Context
	close  context.CancelFunc

	// notifyMu orders state changes with the callbacks that report them.
	// Lock order: notifyMu, then mu.
	notifyMu sync.Mutex

	mu           sync.Mutex
	state        State
	stages       Stages
	sess         *session
	inFlight     bool // a pass is running, possibly for an ended session
	gen          uint64
	selected     string
	lastAccepted string
	stats        Stats
	onResult     []func(Event)
	onStatus     []func(Status)
	listeners    []StateListener

	wg sync.WaitGroup
}

// NewController builds an idle controller. The translator is always wrapped
// so same-language requests never reach it.
func NewController(stages Stages, logger *slog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	stages.Translator = translation.Identity(stages.Translator)
	return &Controller{logger: logger, base: ctx, close: cancel, stages: stages}
}

// SetStages swaps collaborators. Only allowed while Idle.
func (c *Controller) SetStages(stages Stages) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Idle {
		return ErrRunning
	}
	stages.Translator = translation.Identity(stages.Translator)
	c.stages = stages
	return nil
}

// OnResult registers a result sink.
func (c *Controller) OnResult(fn func(Event)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onResult = append(c.onResult, fn)
	c.mu.Unlock()
}

// OnStatus registers a status sink.
func (c *Controller) OnStatus(fn func(Status)) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.onStatus = append(c.onStatus, fn)
	c.mu.Unlock()
}

// AddListener registers a state transition callback.
func (c *Controller) AddListener(fn StateListener) {
	if fn == nil {
		return
	}
	c.mu.Lock()
	c.listeners = append(c.listeners, fn)
	c.mu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastAccepted returns the text most recently propagated downstream.
func (c *Controller) LastAccepted() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccepted
}

// SelectRegion pins the region used for recognition while it is detected.
// An empty id restores first-region selection.
func (c *Controller) SelectRegion(id string) {
	c.mu.Lock()
	c.selected = id
	c.mu.Unlock()
}

func (c *Controller) SelectedRegion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// SessionID returns the active session id, or "" when Idle.
func (c *Controller) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.id
}

func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Start arms the timer with a snapshot of settings. It returns
// ErrAlreadyRunning, leaving the active session untouched, when not Idle.
func (c *Controller) Start(settings Settings) error {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if err := c.stages.validate(); err != nil {
		c.mu.Unlock()
		return err
	}
	if err := c.base.Err(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.gen++
	s := &session{
		id:       uuid.NewString(),
		gen:      c.gen,
		settings: settings.normalized(),
		stages:   c.stages,
		stop:     make(chan struct{}),
	}
	c.sess = s
	c.state = Sampling
	c.lastAccepted = ""
	c.stats.Sessions++
	c.mu.Unlock()

	c.wg.Add(1)
	go c.timer(s)

	if c.logger != nil {
		c.logger.Info("pipeline started",
			"session", s.id,
			"interval", s.settings.Interval,
			"source", s.settings.SourceLang,
			"target", s.settings.TargetLang,
			"auto_speak", s.settings.AutoSpeak,
		)
	}
	c.notifyState(Idle, Sampling)
	c.notifyStatus(Status{Kind: StatusStarted, State: Sampling, SessionID: s.id, At: time.Now()})
	return nil
}

// Stop disarms the timer, suppresses any late publish from an in-flight pass,
// clears LastAccepted and cancels speech. Idempotent.
func (c *Controller) Stop() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if c.state == Idle {
		c.mu.Unlock()
		return
	}
	prev := c.state
	s := c.sess
	c.state = Idle
	c.sess = nil
	c.lastAccepted = ""
	close(s.stop)
	c.mu.Unlock()

	if s.stages.Speaker != nil {
		s.stages.Speaker.Cancel()
	}
	if r, ok := s.stages.Detector.(interface{ Reset() }); ok {
		r.Reset()
	}
	if c.logger != nil {
		c.logger.Info("pipeline stopped", "session", s.id, "from", prev.String())
	}
	c.notifyState(prev, Idle)
	c.notifyStatus(Status{Kind: StatusStopped, State: Idle, SessionID: s.id, At: time.Now()})
}

// Close stops the controller, aborts in-flight stage calls and waits for
// background goroutines. The controller cannot be restarted afterwards.
func (c *Controller) Close() {
	c.Stop()
	c.close()
	c.wg.Wait()
}

// Tick runs one pass if the controller is Sampling. A tick while a pass is in
// flight is dropped, never queued. That includes a pass left over from a
// stopped session, which keeps running until its current stage call returns. It reports whether a pass was started.
func (c *Controller) Tick() bool { return c.tick(nil) }

// tick with a non-nil owner only acts on that session, so a timer that lost a
// race with Stop cannot tick the next session.
func (c *Controller) tick(owner *session) bool {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.mu.Lock()
	if owner != nil && c.sess != owner {
		c.mu.Unlock()
		return false
	}
	switch c.state {
	case Idle:
		c.mu.Unlock()
		return false
	case AwaitingResult:
		c.stats.Ticks++
		c.stats.Dropped++
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Debug("pipeline tick dropped")
		}
		return false
	}
	if c.inFlight {
		c.stats.Ticks++
		c.stats.Dropped++
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Debug("pipeline tick dropped, previous session still draining")
		}
		return false
	}
	c.stats.Ticks++
	c.stats.Passes++
	c.state = AwaitingResult
	c.inFlight = true
	s := c.sess
	c.mu.Unlock()

	c.notifyState(Sampling, AwaitingResult)
	c.notifyStatus(Status{Kind: StatusProcessing, State: AwaitingResult, SessionID: s.id, At: time.Now()})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.finish(s)
		defer recoverLog(c.logger, "pipeline pass panic")
		c.pass(s)
	}()
	return true
}

func (c *Controller) timer(s *session) {
	defer c.wg.Done()
	ticker := time.NewTicker(s.settings.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-c.base.Done():
			return
		case <-ticker.C:
			c.tick(s)
		}
	}
}

// finish releases the pass slot and returns the controller to Sampling unless
// the session ended.
func (c *Controller) finish(s *session) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	c.inFlight = false
	if c.sess != s || c.state != AwaitingResult {
		c.mu.Unlock()
		return
	}
	c.state = Sampling
	c.mu.Unlock()
	c.notifyState(AwaitingResult, Sampling)
	c.notifyStatus(Status{Kind: StatusIdle, State: Sampling, SessionID: s.id, At: time.Now()})
}

func (c *Controller) pass(s *session) {
	cfg := s.settings
	st := s.stages

	sample, err := callStage(c.base, cfg.StageTimeout, func(ctx context.Context) (capture.Sample, error) {
		return st.Source.Capture(ctx)
	})
	if err == nil && sample.Empty() {
		err = capture.ErrSourceUnavailable
	}
	if err != nil {
		if c.logger != nil && !errors.Is(err, capture.ErrSourceUnavailable) {
			c.logger.Warn("capture failed", "session", s.id, "error", err)
		}
		c.publishEmpty(s, false)
		return
	}
	if !c.current(s) {
		return
	}

	regions, err := callStage(c.base, cfg.StageTimeout, func(ctx context.Context) ([]detection.Region, error) {
		return st.Detector.Detect(ctx, sample)
	})
	if err != nil {
		c.fail(s, stage.Wrap(stage.Detection, err))
		return
	}
	if len(regions) == 0 {
		c.publishEmpty(s, true)
		return
	}
	region, _ := detection.Select(regions, c.SelectedRegion())
	if !c.current(s) {
		return
	}

	res, err := callStage(c.base, cfg.StageTimeout, func(ctx context.Context) (recognition.Result, error) {
		return st.Recognizer.Recognize(ctx, sample, region)
	})
	if err != nil {
		c.fail(s, stage.Wrap(stage.Recognition, err))
		return
	}
	text := strings.TrimSpace(res.Text)
	if !Novel(text, c.LastAccepted()) {
		c.mu.Lock()
		c.stats.Debounced++
		c.stats.ConsecutiveErrors = 0
		c.mu.Unlock()
		return
	}
	if !c.current(s) {
		return
	}

	tr, err := callStage(c.base, cfg.StageTimeout, func(ctx context.Context) (translation.Translation, error) {
		return st.Translator.Translate(ctx, text, cfg.SourceLang, cfg.TargetLang)
	})
	if err != nil {
		c.fail(s, stage.Wrap(stage.Translation, err))
		return
	}

	c.publish(s, Event{
		Kind:       EventResult,
		Original:   text,
		Translated: tr.Translated,
		Confidence: res.Confidence,
		RegionID:   region.ID,
		Source:     cfg.SourceLang,
		Target:     cfg.TargetLang,
		SessionID:  s.id,
		At:         time.Now(),
	})
}

func (c *Controller) current(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sess == s
}

// publish delivers a result and starts speech. Both are skipped when the
// session ended while the pass was running.
func (c *Controller) publish(s *session, ev Event) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		if c.logger != nil {
			c.logger.Debug("late result suppressed", "session", s.id)
		}
		return
	}
	c.lastAccepted = ev.Original
	c.stats.Published++
	c.stats.ConsecutiveErrors = 0
	sinks := c.onResult
	c.mu.Unlock()

	for _, fn := range sinks {
		fn(ev)
	}
	if s.settings.AutoSpeak && s.stages.Speaker != nil && ev.Translated != "" {
		s.stages.Speaker.Speak(ev.Translated, s.settings.Voice)
	}
}

// publishEmpty clears the display. clearLast also resets LastAccepted so the
// next sighting of the same text is novel again.
func (c *Controller) publishEmpty(s *session, clearLast bool) {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	if clearLast {
		c.lastAccepted = ""
	}
	c.stats.Empty++
	sinks := c.onResult
	c.mu.Unlock()

	ev := Event{Kind: EventEmpty, Source: s.settings.SourceLang, Target: s.settings.TargetLang, SessionID: s.id, At: time.Now()}
	for _, fn := range sinks {
		fn(ev)
	}
}

func (c *Controller) fail(s *session, err error) {
	kind := stage.KindOf(err)
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.mu.Lock()
	if c.sess != s {
		c.mu.Unlock()
		return
	}
	c.stats.Errors++
	c.stats.ConsecutiveErrors++
	consecutive := c.stats.ConsecutiveErrors
	state := c.state
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Warn("pipeline stage failed", "session", s.id, "stage", kind.String(), "consecutive", consecutive, "error", err)
	}
	c.notifyStatus(Status{Kind: StatusError, State: state, Stage: kind, Err: err, SessionID: s.id, At: time.Now()})
}

// notifyState and notifyStatus require notifyMu.
func (c *Controller) notifyState(prev, next State) {
	if c.logger != nil {
		c.logger.Debug("pipeline state transition", "from", prev.String(), "to", next.String())
	}
	c.mu.Lock()
	listeners := c.listeners
	c.mu.Unlock()
	for _, l := range listeners {
		l(prev, next)
	}
}

func (c *Controller) notifyStatus(st Status) {
	c.mu.Lock()
	sinks := c.onStatus
	c.mu.Unlock()
	for _, fn := range sinks {
		fn(st)
	}
}

func recoverLog(logger *slog.Logger, msg string) {
	if r := recover(); r != nil && logger != nil {
		logger.Error(msg, "error", r, "stack", string(debug.Stack()))
	}
}
