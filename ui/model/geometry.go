package model

import (
	"fmt"
	"image"
	"regexp"
	"strconv"
	"strings"
)

// geomRe matches Tk window geometry strings "WIDTHxHEIGHT+X+Y".
var geomRe = regexp.MustCompile(`^(\d+)x(\d+)([+-]-?\d+)([+-]-?\d+)$`)

// ParseGeometry converts a Tk geometry string to a screen rectangle.
func ParseGeometry(g string) (image.Rectangle, bool) {
	m := geomRe.FindStringSubmatch(strings.TrimSpace(g))
	if len(m) != 5 {
		return image.Rectangle{}, false
	}
	w, _ := strconv.Atoi(m[1])
	h, _ := strconv.Atoi(m[2])
	x, errX := strconv.Atoi(strings.Replace(m[3], "+", "", 1))
	y, errY := strconv.Atoi(strings.Replace(m[4], "+", "", 1))
	if w <= 0 || h <= 0 || errX != nil || errY != nil {
		return image.Rectangle{}, false
	}
	return image.Rect(x, y, x+w, y+h), true
}

// FormatGeometry is the inverse of ParseGeometry.
func FormatGeometry(r image.Rectangle) string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Dx(), r.Dy(), r.Min.X, r.Min.Y)
}

// InitialSelection centres a selection covering two thirds of the screen
// width and five ninths of its height.
func InitialSelection(screenW, screenH int) image.Rectangle {
	w, h := max(screenW*2/3, 1), max(screenH*5/9, 1)
	x, y := (screenW-w)/2, (screenH-h)/2
	return image.Rect(x, y, x+w, y+h)
}
