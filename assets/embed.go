package assets

import (
	"bytes"
	_ "embed"
	"errors"
	"image"
	"image/png"
)

// FaceTemplatePNG is the reference face used by the template detector.
//
//go:embed face_template.png
var FaceTemplatePNG []byte

// FaceTemplate decodes the embedded PNG.
func FaceTemplate() (image.Image, error) {
	if len(FaceTemplatePNG) == 0 {
		return nil, errors.New("embedded face_template.png is empty")
	}
	return png.Decode(bytes.NewReader(FaceTemplatePNG))
}
