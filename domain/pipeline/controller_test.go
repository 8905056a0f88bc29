package pipeline

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/recognition"
	"github.com/soocke/lipread-go/domain/speech"
	"github.com/soocke/lipread-go/domain/stage"
	"github.com/soocke/lipread-go/domain/translation"
)

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type stubSource struct {
	mu  sync.Mutex
	err error
	seq uint64
}

func (s *stubSource) Capture(ctx context.Context) (capture.Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return capture.Sample{}, s.err
	}
	s.seq++
	return capture.Sample{Image: image.NewRGBA(image.Rect(0, 0, 8, 8)), CapturedAt: time.Now(), Sequence: s.seq}, nil
}

func (s *stubSource) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

type stubDetector struct {
	mu      sync.Mutex
	regions []detection.Region
	err     error
	resets  atomic.Int64
}

func (d *stubDetector) Detect(ctx context.Context, _ capture.Sample) ([]detection.Region, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return slices.Clone(d.regions), nil
}

func (d *stubDetector) set(regions []detection.Region) {
	d.mu.Lock()
	d.regions = regions
	d.mu.Unlock()
}

func (d *stubDetector) Reset() { d.resets.Add(1) }

var oneFace = []detection.Region{{ID: "face_0", Box: detection.Box{X: 0.1, Y: 0.1, W: 0.5, H: 0.5}, Confidence: 0.8}}

// gatedRecognizer returns a fixed result. When gate is non-nil each call
// blocks until the gate yields or ignoreCtx is false and ctx ends.
type gatedRecognizer struct {
	mu        sync.Mutex
	result    recognition.Result
	err       error
	gate      chan struct{}
	ignoreCtx bool
	regions   []string

	inFlight    atomic.Int64
	maxInFlight atomic.Int64
	calls       atomic.Int64
}

func (r *gatedRecognizer) Recognize(ctx context.Context, _ capture.Sample, region detection.Region) (recognition.Result, error) {
	n := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		m := r.maxInFlight.Load()
		if n <= m || r.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	r.calls.Add(1)
	r.mu.Lock()
	r.regions = append(r.regions, region.ID)
	gate, res, err, ignore := r.gate, r.result, r.err, r.ignoreCtx
	r.mu.Unlock()
	if gate != nil {
		if ignore {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return recognition.Result{}, ctx.Err()
			}
		}
	}
	return res, err
}

func (r *gatedRecognizer) set(res recognition.Result, err error) {
	r.mu.Lock()
	r.result, r.err = res, err
	r.mu.Unlock()
}

type countingTranslator struct {
	inner translation.Translator
	calls atomic.Int64
	err   error
}

func (t *countingTranslator) Translate(ctx context.Context, text, source, target string) (translation.Translation, error) {
	t.calls.Add(1)
	if t.err != nil {
		return translation.Translation{}, t.err
	}
	return t.inner.Translate(ctx, text, source, target)
}

type fakeSpeaker struct {
	mu      sync.Mutex
	spoken  []string
	cancels int
}

func (f *fakeSpeaker) Speak(text string, _ speech.Options) {
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	f.mu.Unlock()
}

func (f *fakeSpeaker) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeSpeaker) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.spoken), f.cancels
}

type recorder struct {
	mu          sync.Mutex
	events      []Event
	statuses    []Status
	transitions []string
}

func (r *recorder) attach(c *Controller) {
	c.OnResult(func(ev Event) { r.mu.Lock(); r.events = append(r.events, ev); r.mu.Unlock() })
	c.OnStatus(func(st Status) { r.mu.Lock(); r.statuses = append(r.statuses, st); r.mu.Unlock() })
	c.AddListener(func(prev, next State) {
		r.mu.Lock()
		r.transitions = append(r.transitions, prev.String()+"->"+next.String())
		r.mu.Unlock()
	})
}

func (r *recorder) snapshot() ([]Event, []Status, []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events), slices.Clone(r.statuses), slices.Clone(r.transitions)
}

func (r *recorder) statusKinds(kind StatusKind) []Status {
	_, statuses, _ := r.snapshot()
	var out []Status
	for _, st := range statuses {
		if st.Kind == kind {
			out = append(out, st)
		}
	}
	return out
}

type harness struct {
	src   *stubSource
	det   *stubDetector
	rec   *gatedRecognizer
	tr    *countingTranslator
	spk   *fakeSpeaker
	ctrl  *Controller
	sinks *recorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		src: &stubSource{},
		det: &stubDetector{regions: oneFace},
		rec: &gatedRecognizer{result: recognition.Result{Text: "Bom dia!", Confidence: 0.9}},
		tr:  &countingTranslator{inner: translation.NewDictionaryTranslator(nil)},
		spk: &fakeSpeaker{},
	}
	h.ctrl = NewController(Stages{Source: h.src, Detector: h.det, Recognizer: h.rec, Translator: h.tr, Speaker: h.spk}, discardLogger())
	h.sinks = &recorder{}
	h.sinks.attach(h.ctrl)
	t.Cleanup(h.ctrl.Close)
	return h
}

// manualSettings never fires the timer within a test; passes run via Tick.
func manualSettings() Settings {
	return Settings{Interval: time.Hour, SourceLang: "pt", TargetLang: "en", AutoSpeak: true}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for state %v (current %v)", want, c.State())
}

func (h *harness) pass(t *testing.T) {
	t.Helper()
	if !h.ctrl.Tick() {
		t.Fatalf("tick did not start a pass (state %v)", h.ctrl.State())
	}
	waitForState(t, h.ctrl, Sampling)
}

func TestNovel(t *testing.T) {
	cases := []struct {
		candidate, last string
		want            bool
	}{
		{"", "", false},
		{"   ", "x", false},
		{"Bom dia!", "", true},
		{"Bom dia!", "Bom dia!", false},
		{" Bom dia! ", "Bom dia!", false},
		{"Bom dia", "Bom dia!", true},
		{"bom dia!", "Bom dia!", true},
	}
	for _, c := range cases {
		if got := Novel(c.candidate, c.last); got != c.want {
			t.Fatalf("Novel(%q, %q) = %v, want %v", c.candidate, c.last, got, c.want)
		}
	}
}

func TestController_StartTwiceReturnsAlreadyRunning(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatalf("start: %v", err)
	}
	id := h.ctrl.SessionID()
	if err := h.ctrl.Start(manualSettings()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if h.ctrl.State() != Sampling || h.ctrl.SessionID() != id {
		t.Fatalf("first session must be unaffected: state=%v id=%q", h.ctrl.State(), h.ctrl.SessionID())
	}
	h.pass(t)
	if events, _, _ := h.sinks.snapshot(); len(events) != 1 {
		t.Fatalf("first session should keep producing results, got %d events", len(events))
	}
}

func TestController_TimerKeepsRunningAfterSecondStart(t *testing.T) {
	h := newHarness(t)
	settings := manualSettings()
	settings.Interval = 5 * time.Millisecond
	if err := h.ctrl.Start(settings); err != nil {
		t.Fatal(err)
	}
	_ = h.ctrl.Start(settings)
	before := h.ctrl.Stats().Ticks
	deadline := time.Now().Add(2 * time.Second)
	for h.ctrl.Stats().Ticks < before+3 {
		if time.Now().After(deadline) {
			t.Fatalf("timer stopped ticking")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestController_AtMostOnePassInFlight(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.rec.gate = gate
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	if !h.ctrl.Tick() {
		t.Fatal("first tick should start a pass")
	}
	for i := 0; i < 5; i++ {
		if h.ctrl.Tick() {
			t.Fatalf("tick %d started a second pass", i)
		}
	}
	if st := h.ctrl.Stats(); st.Dropped != 5 || st.Passes != 1 {
		t.Fatalf("expected 5 dropped and 1 pass, got %+v", st)
	}
	close(gate)
	waitForState(t, h.ctrl, Sampling)
	if h.rec.maxInFlight.Load() != 1 {
		t.Fatalf("max in flight %d", h.rec.maxInFlight.Load())
	}
	// Dropped ticks are not replayed.
	time.Sleep(20 * time.Millisecond)
	if h.rec.calls.Load() != 1 {
		t.Fatalf("dropped ticks must not be queued, recognizer calls=%d", h.rec.calls.Load())
	}
}

func TestController_FastTimerNeverOverlapsPasses(t *testing.T) {
	h := newHarness(t)
	h.rec.ignoreCtx = true
	gate := make(chan struct{})
	h.rec.gate = gate
	go func() {
		// Release one pass every 15ms while the timer fires every 1ms.
		for i := 0; i < 10; i++ {
			time.Sleep(15 * time.Millisecond)
			gate <- struct{}{}
		}
	}()
	settings := manualSettings()
	settings.Interval = time.Millisecond
	if err := h.ctrl.Start(settings); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for h.rec.calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	h.ctrl.Stop()
	if h.rec.maxInFlight.Load() > 1 {
		t.Fatalf("passes overlapped: max in flight %d", h.rec.maxInFlight.Load())
	}
	if h.ctrl.Stats().Dropped == 0 {
		t.Fatalf("expected dropped ticks with a slow pass")
	}
	// Unblock anything still waiting so Close can finish.
	go func() {
		for {
			select {
			case gate <- struct{}{}:
			case <-time.After(200 * time.Millisecond):
				return
			}
		}
	}()
}

func TestController_DebouncesRepeatedText(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	h.pass(t)

	events, _, _ := h.sinks.snapshot()
	if len(events) != 1 {
		t.Fatalf("expected one result event, got %d", len(events))
	}
	ev := events[0]
	if ev.Kind != EventResult || ev.Original != "Bom dia!" || ev.Translated != "Good morning!" || ev.Confidence != 0.9 {
		t.Fatalf("unexpected event %+v", ev)
	}
	if ev.RegionID != "face_0" || ev.SessionID != h.ctrl.SessionID() {
		t.Fatalf("unexpected event ids %+v", ev)
	}
	if h.tr.calls.Load() != 1 {
		t.Fatalf("expected one translator call, got %d", h.tr.calls.Load())
	}
	if spoken, _ := h.spk.snapshot(); !slices.Equal(spoken, []string{"Good morning!"}) {
		t.Fatalf("expected one utterance, got %v", spoken)
	}
	if h.ctrl.LastAccepted() != "Bom dia!" || h.ctrl.Stats().Debounced != 1 {
		t.Fatalf("unexpected last accepted %q stats %+v", h.ctrl.LastAccepted(), h.ctrl.Stats())
	}

	h.rec.set(recognition.Result{Text: "Boa noite!", Confidence: 0.7}, nil)
	h.pass(t)
	if events, _, _ = h.sinks.snapshot(); len(events) != 2 || events[1].Translated != "Good night!" {
		t.Fatalf("new text should publish, got %+v", events)
	}
}

func TestController_EmptyRecognitionIsNotNovel(t *testing.T) {
	h := newHarness(t)
	h.rec.set(recognition.Result{Text: "  ", Confidence: 0.2}, nil)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	if events, _, _ := h.sinks.snapshot(); len(events) != 0 || h.tr.calls.Load() != 0 {
		t.Fatalf("blank text must not publish or translate")
	}
}

func TestController_SameLanguageIsIdentity(t *testing.T) {
	h := newHarness(t)
	settings := manualSettings()
	settings.TargetLang = "pt"
	if err := h.ctrl.Start(settings); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	events, _, _ := h.sinks.snapshot()
	if len(events) != 1 || events[0].Translated != "Bom dia!" {
		t.Fatalf("expected identity translation, got %+v", events)
	}
	if h.tr.calls.Load() != 0 {
		t.Fatalf("translator must not be called for same language")
	}
}

func TestController_NoRegionsPublishesEmptyAndClearsLast(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	if h.ctrl.LastAccepted() != "Bom dia!" {
		t.Fatalf("expected accepted text")
	}

	h.det.set(nil)
	h.pass(t)
	events, _, _ := h.sinks.snapshot()
	var empties int
	for _, ev := range events {
		if ev.Kind == EventEmpty {
			empties++
		}
	}
	if empties != 1 {
		t.Fatalf("expected exactly one empty event, got %d", empties)
	}
	if h.ctrl.LastAccepted() != "" {
		t.Fatalf("last accepted should be cleared, got %q", h.ctrl.LastAccepted())
	}
	if h.rec.calls.Load() != 1 {
		t.Fatalf("recognizer must not run without regions")
	}

	h.det.set(oneFace)
	h.pass(t)
	if events, _, _ = h.sinks.snapshot(); len(events) != 3 || events[2].Original != "Bom dia!" {
		t.Fatalf("same text should be novel again after an empty tick, got %+v", events)
	}
}

func TestController_SourceUnavailableKeepsLastAccepted(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	h.src.setErr(capture.ErrSourceUnavailable)
	h.pass(t)

	events, _, _ := h.sinks.snapshot()
	if len(events) != 2 || events[1].Kind != EventEmpty {
		t.Fatalf("expected an empty event for unavailable source, got %+v", events)
	}
	if h.ctrl.LastAccepted() != "Bom dia!" {
		t.Fatalf("unavailable source should not clear last accepted")
	}
	if h.ctrl.Stats().Errors != 0 {
		t.Fatalf("unavailable source is not a stage error")
	}
}

func TestController_StageErrorsAreRecoverable(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}

	h.rec.set(recognition.Result{}, errors.New("model offline"))
	h.pass(t)
	h.rec.set(recognition.Result{Text: "Bom dia!", Confidence: 0.9}, nil)
	h.tr.err = stage.Wrap(stage.Translation, errors.New("quota"))
	h.pass(t)

	errs := h.sinks.statusKinds(StatusError)
	if len(errs) != 2 {
		t.Fatalf("expected two error statuses, got %d", len(errs))
	}
	if errs[0].Stage != stage.Recognition || !errors.Is(errs[0].Err, stage.ErrRecognition) {
		t.Fatalf("unexpected first error %+v", errs[0])
	}
	if errs[1].Stage != stage.Translation || !errors.Is(errs[1].Err, stage.ErrTranslation) {
		t.Fatalf("unexpected second error %+v", errs[1])
	}
	if events, _, _ := h.sinks.snapshot(); len(events) != 0 {
		t.Fatalf("failed passes must not publish")
	}
	if h.ctrl.LastAccepted() != "" {
		t.Fatalf("failed translation must not accept text")
	}
	if st := h.ctrl.Stats(); st.Errors != 2 || st.ConsecutiveErrors != 2 {
		t.Fatalf("unexpected stats %+v", st)
	}

	h.tr.err = nil
	h.pass(t)
	if events, _, _ := h.sinks.snapshot(); len(events) != 1 {
		t.Fatalf("pass after failures should publish")
	}
	if h.ctrl.Stats().ConsecutiveErrors != 0 {
		t.Fatalf("success should reset consecutive errors")
	}
}

func TestController_DetectorErrorReportsDetectionKind(t *testing.T) {
	h := newHarness(t)
	h.det.err = errors.New("bad frame")
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	errs := h.sinks.statusKinds(StatusError)
	if len(errs) != 1 || errs[0].Stage != stage.Detection {
		t.Fatalf("expected detection error status, got %+v", errs)
	}
	if h.ctrl.State() != Sampling {
		t.Fatalf("controller should stay sampling")
	}
}

func TestController_StageTimeoutUnsticksPass(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	defer close(gate)
	h.rec.gate = gate
	h.rec.ignoreCtx = true
	settings := manualSettings()
	settings.StageTimeout = 20 * time.Millisecond
	if err := h.ctrl.Start(settings); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	errs := h.sinks.statusKinds(StatusError)
	if len(errs) != 1 || !errors.Is(errs[0].Err, context.DeadlineExceeded) || errs[0].Stage != stage.Recognition {
		t.Fatalf("expected recognition timeout, got %+v", errs)
	}
}

func TestController_StopSuppressesLatePublish(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.rec.gate = gate
	h.rec.ignoreCtx = true
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	if !h.ctrl.Tick() {
		t.Fatal("tick should start a pass")
	}
	for h.rec.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	h.ctrl.Stop()
	h.ctrl.Stop()
	if h.ctrl.State() != Idle {
		t.Fatalf("expected Idle after stop, got %v", h.ctrl.State())
	}
	if h.ctrl.Tick() {
		t.Fatalf("tick after stop must not start a pass")
	}

	close(gate)
	h.ctrl.Close()

	events, _, transitions := h.sinks.snapshot()
	if len(events) != 0 {
		t.Fatalf("late result published after stop: %+v", events)
	}
	if spoken, cancels := h.spk.snapshot(); len(spoken) != 0 || cancels != 1 {
		t.Fatalf("expected no speech and one cancel, got spoken=%v cancels=%d", spoken, cancels)
	}
	if h.ctrl.State() != Idle || h.ctrl.LastAccepted() != "" {
		t.Fatalf("controller should remain idle and cleared")
	}
	want := []string{"Idle->Sampling", "Sampling->AwaitingResult", "AwaitingResult->Idle"}
	if !slices.Equal(transitions, want) {
		t.Fatalf("unexpected transitions %v", transitions)
	}
	if h.det.resets.Load() != 1 {
		t.Fatalf("detector tracking should reset on stop")
	}
	if stopped := h.sinks.statusKinds(StatusStopped); len(stopped) != 1 {
		t.Fatalf("expected one stopped status, got %d", len(stopped))
	}
}

func TestController_StopDisarmsTimer(t *testing.T) {
	h := newHarness(t)
	settings := manualSettings()
	settings.Interval = 2 * time.Millisecond
	if err := h.ctrl.Start(settings); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	h.ctrl.Stop()
	time.Sleep(5 * time.Millisecond)
	ticks := h.ctrl.Stats().Ticks
	time.Sleep(30 * time.Millisecond)
	if got := h.ctrl.Stats().Ticks; got != ticks {
		t.Fatalf("timer still firing after stop: %d -> %d", ticks, got)
	}
}

func TestController_RestartAfterStop(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	first := h.ctrl.SessionID()
	h.ctrl.Stop()
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.ctrl.SessionID() == first {
		t.Fatalf("restart should open a new session")
	}
	h.pass(t)
	if events, _, _ := h.sinks.snapshot(); len(events) != 2 {
		t.Fatalf("last accepted should reset between sessions, got %d events", len(events))
	}
}

func TestController_RestartWaitsForDrainingPass(t *testing.T) {
	h := newHarness(t)
	gate := make(chan struct{})
	h.rec.gate = gate
	h.rec.ignoreCtx = true
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	if !h.ctrl.Tick() {
		t.Fatal("tick should start a pass")
	}
	for h.rec.calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	h.ctrl.Stop()
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	if h.ctrl.Tick() {
		t.Fatal("tick must be dropped while the stopped session's pass is running")
	}
	if st := h.ctrl.Stats(); st.Dropped != 1 || st.Passes != 1 {
		t.Fatalf("expected one dropped tick and one pass, got %+v", st)
	}

	close(gate)
	deadline := time.Now().Add(2 * time.Second)
	for !h.ctrl.Tick() {
		if time.Now().After(deadline) {
			t.Fatal("new session never got a pass")
		}
		time.Sleep(2 * time.Millisecond)
	}
	waitForState(t, h.ctrl, Sampling)
	if got := h.rec.maxInFlight.Load(); got != 1 {
		t.Fatalf("passes overlapped across sessions, max in flight %d", got)
	}
	events, _, _ := h.sinks.snapshot()
	if len(events) != 1 || events[0].SessionID != h.ctrl.SessionID() {
		t.Fatalf("only the new session should publish, got %+v", events)
	}
}

func TestController_SelectedRegionWins(t *testing.T) {
	h := newHarness(t)
	h.det.set([]detection.Region{
		{ID: "face_0", Box: detection.Box{W: 0.2, H: 0.2}},
		{ID: "face_1", Box: detection.Box{X: 0.5, W: 0.2, H: 0.2}},
	})
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	h.ctrl.SelectRegion("face_1")
	h.rec.set(recognition.Result{Text: "Boa tarde!", Confidence: 0.5}, nil)
	h.pass(t)
	h.ctrl.SelectRegion("face_9")
	h.rec.set(recognition.Result{Text: "Boa noite!", Confidence: 0.5}, nil)
	h.pass(t)

	h.rec.mu.Lock()
	got := slices.Clone(h.rec.regions)
	h.rec.mu.Unlock()
	if !slices.Equal(got, []string{"face_0", "face_1", "face_0"}) {
		t.Fatalf("unexpected region selection %v", got)
	}
}

func TestController_AutoSpeakOff(t *testing.T) {
	h := newHarness(t)
	settings := manualSettings()
	settings.AutoSpeak = false
	if err := h.ctrl.Start(settings); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	if spoken, _ := h.spk.snapshot(); len(spoken) != 0 {
		t.Fatalf("auto speak off must not speak, got %v", spoken)
	}
}

func TestController_StatusSequenceForOnePass(t *testing.T) {
	h := newHarness(t)
	if err := h.ctrl.Start(manualSettings()); err != nil {
		t.Fatal(err)
	}
	h.pass(t)
	_, statuses, _ := h.sinks.snapshot()
	var kinds []StatusKind
	for _, st := range statuses {
		kinds = append(kinds, st.Kind)
	}
	want := []StatusKind{StatusStarted, StatusProcessing, StatusIdle}
	if !slices.Equal(kinds, want) {
		t.Fatalf("unexpected statuses %v", kinds)
	}
}

func TestController_MissingStagesAndSetStages(t *testing.T) {
	c := NewController(Stages{}, nil)
	defer c.Close()
	if err := c.Start(Settings{}); !errors.Is(err, ErrMissingStage) {
		t.Fatalf("expected ErrMissingStage, got %v", err)
	}
	if c.State() != Idle {
		t.Fatalf("failed start must leave controller idle")
	}
	h := newHarness(t)
	if err := c.SetStages(Stages{Source: h.src, Detector: h.det, Recognizer: h.rec}); err != nil {
		t.Fatal(err)
	}
	if err := c.Start(Settings{Interval: time.Hour}); err != nil {
		t.Fatalf("start after SetStages: %v", err)
	}
	if err := c.SetStages(Stages{}); !errors.Is(err, ErrRunning) {
		t.Fatalf("expected ErrRunning, got %v", err)
	}
}
