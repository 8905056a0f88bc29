package view

import (
	"image"

	"github.com/soocke/lipread-go/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// CapturePreview shows the annotated capture frame and the mouth close-up.
type CapturePreview interface {
	UpdateCapture(img image.Image)
	UpdateMouth(img image.Image)
	Reset()
}

type capturePreview struct {
	captureLabel *LabelWidget
	mouthLabel   *LabelWidget
	// Tk photos currently shown; deleted before replacement so old pixel
	// data does not accumulate in the interpreter.
	capturePhoto *Img
	mouthPhoto   *Img
}

// NewCapturePreview grids the preview labels: the frame spans columns 0-3,
// the mouth sits in column 4.
func NewCapturePreview(row int) CapturePreview {
	v := &capturePreview{}
	v.capturePhoto = placeholder(200, 120)
	v.mouthPhoto = placeholder(120, 72)
	v.captureLabel = Label(Image(v.capturePhoto), Borderwidth(1), Relief("sunken"))
	v.mouthLabel = Label(Image(v.mouthPhoto), Borderwidth(1), Relief("sunken"))
	Grid(v.captureLabel, Row(row), Column(0), Columnspan(4), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	Grid(v.mouthLabel, Row(row), Column(4), Sticky("n"), Padx("0.4m"), Pady("0.4m"))
	return v
}

func placeholder(w, h int) *Img {
	return NewPhoto(Data(images.EncodePNG(image.NewRGBA(image.Rect(0, 0, w, h)))))
}

func swapPhoto(label *LabelWidget, prev **Img, next *Img) {
	if *prev != nil {
		(*prev).Delete()
	}
	*prev = next
	label.Configure(Image(next))
}

func (v *capturePreview) UpdateCapture(img image.Image) {
	if v.captureLabel == nil || img == nil {
		return
	}
	swapPhoto(v.captureLabel, &v.capturePhoto, NewPhoto(Data(images.EncodePNG(img))))
}

func (v *capturePreview) UpdateMouth(img image.Image) {
	if v.mouthLabel == nil || img == nil {
		return
	}
	swapPhoto(v.mouthLabel, &v.mouthPhoto, NewPhoto(Data(images.EncodePNG(img))))
}

func (v *capturePreview) Reset() {
	if v.captureLabel != nil {
		swapPhoto(v.captureLabel, &v.capturePhoto, placeholder(200, 120))
	}
	if v.mouthLabel != nil {
		swapPhoto(v.mouthLabel, &v.mouthPhoto, placeholder(120, 72))
	}
}
