package images

import (
	"image"
	"image/color"
	"image/draw"
)

// Box is one outline to draw on a preview.
type Box struct {
	Rect     image.Rectangle
	Selected bool
}

var (
	boxColor      = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}
	selectedColor = color.RGBA{R: 0x25, G: 0x63, B: 0xeb, A: 0xff}
)

// Annotate returns a copy of src with each box outlined. Box rectangles are in
// src coordinates; the copy is rebased to the origin.
func Annotate(src image.Image, boxes []Box, thickness int) *image.RGBA {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	if thickness < 1 {
		thickness = 1
	}
	for _, box := range boxes {
		c := boxColor
		if box.Selected {
			c = selectedColor
		}
		outline(dst, box.Rect.Sub(b.Min), thickness, c)
	}
	return dst
}

func outline(dst *image.RGBA, r image.Rectangle, t int, c color.RGBA) {
	r = r.Canon()
	if r.Empty() {
		return
	}
	u := image.NewUniform(c)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+t),
		image.Rect(r.Min.X, r.Max.Y-t, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+t, r.Max.Y),
		image.Rect(r.Max.X-t, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		draw.Draw(dst, e.Intersect(dst.Bounds()), u, image.Point{}, draw.Src)
	}
}
