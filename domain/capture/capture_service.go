package capture

import (
	"image"
	"log/slog"
	"sync/atomic"
	"time"
)

const (
	captureStatsLogInterval = 5 * time.Second
	defaultGrabInterval     = 100 * time.Millisecond
)

// CaptureService grabs frames (selection or full screen) on a background loop
// and exposes the latest one alongside instrumentation data.
type CaptureService interface {
	ServiceContract
	LatestFrame() Sample
	SetSelectionProvider(func() *image.Rectangle)
	Stats() CaptureStats
}

type captureService struct {
	running      atomic.Bool
	run          atomic.Uint64 // incremented per Start; stale loops exit
	latest       atomic.Pointer[Sample]
	selFn        atomic.Pointer[func() *image.Rectangle]
	grab         grabFunc
	interval     time.Duration
	logger       *slog.Logger
	captures     atomic.Uint64
	skipped      atomic.Uint64
	captureNanos atomic.Uint64
	sequence     atomic.Uint64
}

func newCaptureService(logger *slog.Logger, grab grabFunc, interval time.Duration) *captureService {
	if interval <= 0 {
		interval = defaultGrabInterval
	}
	if grab == nil {
		grab = grabScreen
	}
	return &captureService{grab: grab, interval: interval, logger: logger}
}

// NewCaptureService constructs a screen capture service grabbing one frame
// per interval. selectionFn may be nil for full-screen capture.
func NewCaptureService(logger *slog.Logger, selectionFn func() *image.Rectangle, interval time.Duration) CaptureService {
	s := newCaptureService(logger, nil, interval)
	s.SetSelectionProvider(selectionFn)
	return s
}

func (s *captureService) SetSelectionProvider(fn func() *image.Rectangle) {
	if fn == nil {
		s.selFn.Store(nil)
		return
	}
	s.selFn.Store(&fn)
}

func (s *captureService) LatestFrame() Sample {
	snap := s.latest.Load()
	if snap == nil {
		return Sample{}
	}
	return *snap
}

func (s *captureService) Running() bool { return s.running.Load() }

func (s *captureService) Stats() CaptureStats {
	captures := s.captures.Load()
	var avg time.Duration
	if captures > 0 {
		avg = time.Duration(s.captureNanos.Load() / captures)
	}
	snapshot := s.LatestFrame()
	var age time.Duration
	if !snapshot.CapturedAt.IsZero() {
		age = time.Since(snapshot.CapturedAt)
	}
	return CaptureStats{
		Captures:       captures,
		Skipped:        s.skipped.Load(),
		AvgCapture:     avg,
		LastCapture:    snapshot.CapturedAt,
		LatestFrameAge: age,
		Sequence:       snapshot.Sequence,
	}
}

// Start launches the grab loop. Idempotent.
func (s *captureService) Start() {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	id := s.run.Add(1)
	go s.loop(id)
}

// Stop ends the grab loop and drops the latest frame. Idempotent.
func (s *captureService) Stop() {
	if !s.running.CompareAndSwap(true, false) {
		return
	}
	s.run.Add(1)
	s.latest.Store(nil)
}

func (s *captureService) active(id uint64) bool {
	return s.running.Load() && s.run.Load() == id
}

func (s *captureService) loop(id uint64) {
	logTicker := time.NewTicker(captureStatsLogInterval)
	defer logTicker.Stop()
	for s.active(id) {
		start := time.Now()
		var sel *image.Rectangle
		if fn := s.selFn.Load(); fn != nil {
			sel = (*fn)()
		}
		img, err := s.grab(sel)
		if err != nil && sel != nil {
			if s.logger != nil {
				s.logger.Error("capture selection", "error", err)
			}
			img, err = s.grab(nil)
		}
		if err != nil || img == nil {
			if err != nil && s.logger != nil {
				s.logger.Error("capture full", "error", err)
			}
			s.skipped.Add(1)
			time.Sleep(s.interval)
			continue
		}

		s.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
		s.captures.Add(1)
		seq := s.sequence.Add(1)
		snap := &Sample{Image: img, CapturedAt: time.Now(), Sequence: seq}
		s.latest.Store(snap)
		if !s.active(id) {
			// Stop raced with this grab.
			s.latest.CompareAndSwap(snap, nil)
			return
		}

		select {
		case <-logTicker.C:
			s.logStats()
		default:
		}

		time.Sleep(s.interval)
	}
}

func (s *captureService) logStats() {
	if s.logger == nil {
		return
	}
	stats := s.Stats()
	s.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"skipped", stats.Skipped,
		"avg_capture", stats.AvgCapture,
		"age", stats.LatestFrameAge,
	)
}
