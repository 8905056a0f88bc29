package images

import (
	"errors"
	"image"
	"image/draw"
)

// ExtractRect copies rect (frame coordinates) grown by pad pixels on every
// side, clamped to the frame and never smaller than 1x1. The copy starts at
// the origin. The returned rectangle is the clamped area in frame
// coordinates.
func ExtractRect(frame *image.RGBA, rect image.Rectangle, pad int) (*image.RGBA, image.Rectangle, error) {
	if frame == nil {
		return nil, image.Rectangle{}, errors.New("nil frame")
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, image.Rectangle{}, errors.New("empty frame")
	}
	if pad > 0 {
		rect = rect.Inset(-pad)
	}
	roi := rect.Canon().Intersect(b)
	if roi.Empty() {
		// keep a 1x1 probe at the nearest in-bounds point
		x := min(max(rect.Min.X, b.Min.X), b.Max.X-1)
		y := min(max(rect.Min.Y, b.Min.Y), b.Max.Y-1)
		roi = image.Rect(x, y, x+1, y+1)
	}
	out := image.NewRGBA(image.Rect(0, 0, roi.Dx(), roi.Dy()))
	draw.Draw(out, out.Bounds(), frame, roi.Min, draw.Src)
	return out, roi, nil
}
