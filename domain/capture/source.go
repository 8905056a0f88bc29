package capture

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync/atomic"
	"time"
)

// LatestSource adapts a background capture loop to the pull-based Source
// contract. It never blocks: the freshest frame is returned or the tick is
// reported unavailable.
type LatestSource struct {
	frames FrameSource
	maxAge time.Duration
}

// NewLatestSource wraps frames. Frames older than maxAge are reported as
// unavailable; maxAge <= 0 disables the staleness check.
func NewLatestSource(frames FrameSource, maxAge time.Duration) *LatestSource {
	return &LatestSource{frames: frames, maxAge: maxAge}
}

func (s *LatestSource) Capture(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s == nil || s.frames == nil || !s.frames.Running() {
		return Sample{}, fmt.Errorf("%w: capture not running", ErrSourceUnavailable)
	}
	snap := s.frames.LatestFrame()
	if snap.Empty() {
		return Sample{}, fmt.Errorf("%w: no frame yet", ErrSourceUnavailable)
	}
	if s.maxAge > 0 {
		if age := time.Since(snap.CapturedAt); age > s.maxAge {
			return Sample{}, fmt.Errorf("%w: latest frame is %v old", ErrSourceUnavailable, age.Round(time.Millisecond))
		}
	}
	return snap, nil
}

// ImageSource serves the same still image on every call. Useful for offline
// runs against a recorded frame.
type ImageSource struct {
	img *image.RGBA
	seq atomic.Uint64
}

// NewImageSource converts img to RGBA once and serves it.
func NewImageSource(img image.Image) *ImageSource {
	return &ImageSource{img: toRGBA(img)}
}

// LoadImageSource decodes a PNG or JPEG file.
func LoadImageSource(path string) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewImageSource(img), nil
}

func (s *ImageSource) Capture(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if s == nil || s.img == nil {
		return Sample{}, fmt.Errorf("%w: no image loaded", ErrSourceUnavailable)
	}
	return Sample{Image: s.img, CapturedAt: time.Now(), Sequence: s.seq.Add(1)}, nil
}

func toRGBA(img image.Image) *image.RGBA {
	if img == nil {
		return nil
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
