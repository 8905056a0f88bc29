package detection

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/soocke/lipread-go/domain/capture"
)

// Observation is the latest detector output together with the sample it was
// computed on.
type Observation struct {
	Regions []Region
	Bounds  image.Rectangle
	At      time.Time
}

// Recorder remembers the most recent successful detection so previews can
// draw it. Reset is forwarded to the wrapped detector.
type Recorder struct {
	inner Detector

	mu   sync.Mutex
	last Observation
}

func NewRecorder(inner Detector) *Recorder { return &Recorder{inner: inner} }

func (r *Recorder) Detect(ctx context.Context, s capture.Sample) ([]Region, error) {
	regions, err := r.inner.Detect(ctx, s)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.last = Observation{
		Regions: append([]Region(nil), regions...),
		Bounds:  s.Bounds(),
		At:      time.Now(),
	}
	r.mu.Unlock()
	return regions, nil
}

// Latest returns a copy of the last observation.
func (r *Recorder) Latest() Observation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.last
	out.Regions = append([]Region(nil), r.last.Regions...)
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.last = Observation{}
	r.mu.Unlock()
	if rs, ok := r.inner.(interface{ Reset() }); ok {
		rs.Reset()
	}
}
