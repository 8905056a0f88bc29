// Package detection finds candidate face regions in a sample.
package detection

import (
	"context"
	"image"
	"math"

	"github.com/soocke/lipread-go/domain/capture"
)

// Box is a bounding box normalized to [0,1] of the sample bounds.
type Box struct {
	X, Y, W, H float64
}

// Valid reports whether the box has positive area.
func (b Box) Valid() bool { return b.W > 0 && b.H > 0 }

// Pixels scales the box to pixel coordinates within bounds, clipped.
func (b Box) Pixels(bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	r := image.Rect(
		bounds.Min.X+int(math.Floor(b.X*w)),
		bounds.Min.Y+int(math.Floor(b.Y*h)),
		bounds.Min.X+int(math.Ceil((b.X+b.W)*w)),
		bounds.Min.Y+int(math.Ceil((b.Y+b.H)*h)),
	)
	return r.Intersect(bounds)
}

// Mouth returns the lower-centre sub-box where the lips sit for a frontal face.
func (b Box) Mouth() Box {
	return Box{X: b.X + b.W*0.25, Y: b.Y + b.H*0.6, W: b.W * 0.5, H: b.H * 0.3}
}

// IoU returns the intersection over union of two boxes.
func (b Box) IoU(o Box) float64 {
	x0 := math.Max(b.X, o.X)
	y0 := math.Max(b.Y, o.Y)
	x1 := math.Min(b.X+b.W, o.X+o.W)
	y1 := math.Min(b.Y+b.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return 0
	}
	inter := (x1 - x0) * (y1 - y0)
	union := b.W*b.H + o.W*o.H - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

// BoxFromPixels normalizes r against bounds.
func BoxFromPixels(r, bounds image.Rectangle) Box {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	if w <= 0 || h <= 0 {
		return Box{}
	}
	return Box{
		X: float64(r.Min.X-bounds.Min.X) / w,
		Y: float64(r.Min.Y-bounds.Min.Y) / h,
		W: float64(r.Dx()) / w,
		H: float64(r.Dy()) / h,
	}
}

// Region is one detected candidate. IDs are only guaranteed stable within a
// single tick unless the detector is wrapped in a Tracker.
type Region struct {
	ID         string
	Box        Box
	Confidence float64
}

// Detector finds regions in a sample. An empty slice is a valid result.
// Unrecoverable input is reported as a stage.Detection error.
type Detector interface {
	Detect(ctx context.Context, s capture.Sample) ([]Region, error)
}

// Select returns the region whose ID equals selectedID when present, else the
// first region in detector order. ok is false for an empty slice.
func Select(regions []Region, selectedID string) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}
	if selectedID != "" {
		for _, r := range regions {
			if r.ID == selectedID {
				return r, true
			}
		}
	}
	return regions[0], true
}
