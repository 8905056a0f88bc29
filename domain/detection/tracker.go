package detection

import (
	"context"
	"fmt"
	"sync"

	"github.com/soocke/lipread-go/domain/capture"
)

// Tracker gives regions IDs that persist across ticks: a region overlapping a
// region from the previous tick by at least the IoU threshold keeps its ID.
// New regions get fresh IDs. IDs are scoped to a session; call Reset on stop.
type Tracker struct {
	inner     Detector
	threshold float64

	mu   sync.Mutex
	prev []Region
	next int
}

// NewTracker wraps inner. threshold <= 0 defaults to 0.3.
func NewTracker(inner Detector, threshold float64) *Tracker {
	if threshold <= 0 {
		threshold = 0.3
	}
	return &Tracker{inner: inner, threshold: threshold}
}

func (t *Tracker) Detect(ctx context.Context, s capture.Sample) ([]Region, error) {
	regions, err := t.inner.Detect(ctx, s)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	used := make([]bool, len(t.prev))
	out := make([]Region, len(regions))
	for i, r := range regions {
		best, bestIoU := -1, t.threshold
		for j, p := range t.prev {
			if used[j] {
				continue
			}
			if iou := r.Box.IoU(p.Box); iou >= bestIoU {
				best, bestIoU = j, iou
			}
		}
		if best >= 0 {
			used[best] = true
			r.ID = t.prev[best].ID
		} else {
			r.ID = fmt.Sprintf("face_%d", t.next)
			t.next++
		}
		out[i] = r
	}
	t.prev = append(t.prev[:0:0], out...)
	return out, nil
}

// Reset forgets tracked regions and restarts ID numbering.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.prev = nil
	t.next = 0
	t.mu.Unlock()
}
