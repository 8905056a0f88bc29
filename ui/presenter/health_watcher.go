package presenter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/lipread-go/domain/pipeline"
)

// HealthView shows whether the recognition service answers.
type HealthView interface{ SetHealth(text string) }

// HealthWatcher polls a health probe while the pipeline runs and reports
// changes. Polling starts when the controller leaves Idle and stops when it
// returns there.
type HealthWatcher struct {
	Probe    func(ctx context.Context) error
	Logger   *slog.Logger
	view     HealthView
	interval time.Duration

	mu      sync.Mutex
	done    chan struct{}
	known   bool
	healthy bool
	lastErr error
	dirty   bool
}

// NewHealthWatcher polls probe every interval (default 5s). A nil probe
// disables the watcher.
func NewHealthWatcher(probe func(ctx context.Context) error, view HealthView, interval time.Duration, logger *slog.Logger) *HealthWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &HealthWatcher{Probe: probe, Logger: logger, view: view, interval: interval}
}

// OnState is a pipeline.StateListener.
func (w *HealthWatcher) OnState(prev, next pipeline.State) {
	if w == nil || w.Probe == nil {
		return
	}
	if next == pipeline.Idle {
		w.stop()
		return
	}
	if prev == pipeline.Idle {
		w.start()
	}
}

func (w *HealthWatcher) start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	w.done = make(chan struct{})
	w.known = false
	go w.loop(w.done)
}

func (w *HealthWatcher) stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done == nil {
		return
	}
	close(w.done)
	w.done = nil
}

func (w *HealthWatcher) loop(done chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	w.poll(done)
	for {
		select {
		case <-ticker.C:
			w.poll(done)
		case <-done:
			return
		}
	}
}

func (w *HealthWatcher) poll(done chan struct{}) {
	ctx, cancel := context.WithTimeout(context.Background(), w.interval)
	defer cancel()
	err := w.Probe(ctx)
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != done { // stopped while probing
		return
	}
	healthy := err == nil
	if w.known && healthy == w.healthy { // only react on change
		return
	}
	w.known, w.healthy, w.lastErr, w.dirty = true, healthy, err, true
	if w.Logger != nil {
		if healthy {
			w.Logger.Info("recognizer healthy")
		} else {
			w.Logger.Warn("recognizer unhealthy", "error", err)
		}
	}
}

// Healthy returns the last probe outcome; known is false before the first
// probe of a session.
func (w *HealthWatcher) Healthy() (healthy, known bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.healthy, w.known
}

// Tick pushes a changed outcome to the view.
func (w *HealthWatcher) Tick(now time.Time) {
	if w == nil || w.view == nil {
		return
	}
	w.mu.Lock()
	dirty, healthy, err := w.dirty, w.healthy, w.lastErr
	w.dirty = false
	w.mu.Unlock()
	if !dirty {
		return
	}
	if healthy {
		w.view.SetHealth("Recognizer: online")
		return
	}
	w.view.SetHealth("Recognizer: offline (" + err.Error() + ")")
}
