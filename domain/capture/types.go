package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrSourceUnavailable reports that no sample could be produced this tick.
// Callers treat it as a skipped tick, never as a fatal error.
var ErrSourceUnavailable = errors.New("capture: source unavailable")

// Sample is one captured instant. It is immutable once produced; consumers
// must not write to Image.
type Sample struct {
	Image      *image.RGBA
	CapturedAt time.Time
	Sequence   uint64
}

// Bounds returns the pixel bounds of the sample, or an empty rectangle.
func (s Sample) Bounds() image.Rectangle {
	if s.Image == nil {
		return image.Rectangle{}
	}
	return s.Image.Bounds()
}

// Empty reports whether the sample carries no pixels.
func (s Sample) Empty() bool { return s.Image == nil || s.Image.Bounds().Empty() }

// Source produces one sample per call. Implementations must honour ctx and
// never block longer than a tick interval.
type Source interface {
	Capture(ctx context.Context) (Sample, error)
}

// FrameSource provides read-only access to the background capture loop.
type FrameSource interface {
	LatestFrame() Sample
	Running() bool
}

// ServiceContract exposes basic lifecycle control for capture services.
type ServiceContract interface {
	Start()
	Stop()
	Running() bool
}
