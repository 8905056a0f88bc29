// Package recognition turns a face region into spoken text.
package recognition

import (
	"context"
	"image"
	"image/draw"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
)

// Result is a recognized utterance.
type Result struct {
	Text       string
	Confidence float64
}

// Recognizer reads lips in one region of a sample. Failures are reported as
// stage.Recognition errors.
type Recognizer interface {
	Recognize(ctx context.Context, s capture.Sample, r detection.Region) (Result, error)
}

// VideoRecognizer reads lips in a recorded clip.
type VideoRecognizer interface {
	RecognizeVideo(ctx context.Context, path string) (Result, error)
}

// RecognizerFunc adapts a function to Recognizer.
type RecognizerFunc func(ctx context.Context, s capture.Sample, r detection.Region) (Result, error)

func (f RecognizerFunc) Recognize(ctx context.Context, s capture.Sample, r detection.Region) (Result, error) {
	return f(ctx, s, r)
}

// Crop copies the pixels of box out of the sample. The copy starts at (0,0).
// An empty rectangle is returned as a nil image.
func Crop(s capture.Sample, box detection.Box) *image.RGBA {
	if s.Empty() || !box.Valid() {
		return nil
	}
	rect := box.Pixels(s.Bounds())
	if rect.Empty() {
		return nil
	}
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), s.Image, rect.Min, draw.Src)
	return out
}
