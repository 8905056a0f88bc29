package capture

import (
	"fmt"
	"image"

	"github.com/vova616/screenshot"
)

// Grab returns a capture of the primary screen.
func Grab() (*image.RGBA, error) {
	img, err := screenshot.CaptureScreen()
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return img, nil
}

// GrabSelection captures the given rectangle in global screen coordinates.
// The rectangle is clipped to the screen first.
func GrabSelection(area image.Rectangle) (*image.RGBA, error) {
	screen, err := screenshot.ScreenRect()
	if err != nil {
		return nil, fmt.Errorf("screen rect: %w", err)
	}
	clipped := area.Intersect(screen)
	if clipped.Empty() {
		return nil, fmt.Errorf("selection %v outside screen %v", area, screen)
	}
	img, err := screenshot.CaptureRect(clipped)
	if err != nil {
		return nil, fmt.Errorf("capture rect: %w", err)
	}
	return img, nil
}

// grabFunc is the capture primitive used by the service; tests replace it.
type grabFunc func(selection *image.Rectangle) (*image.RGBA, error)

func grabScreen(selection *image.Rectangle) (*image.RGBA, error) {
	if selection != nil && !selection.Empty() {
		return GrabSelection(*selection)
	}
	return Grab()
}
