package detection

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/stage"
)

// noisePatch returns a deterministic pseudo-random grayscale image.
func noisePatch(w, h int, seed uint32) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			seed = seed*1664525 + 1013904223
			v := uint8(seed >> 24)
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// frameWith pastes tmpl into a flat frame at each of the given points.
func frameWith(w, h int, tmpl *image.RGBA, at ...image.Point) *image.RGBA {
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range frame.Pix {
		frame.Pix[i] = 128
	}
	tb := tmpl.Bounds()
	for _, p := range at {
		for y := 0; y < tb.Dy(); y++ {
			for x := 0; x < tb.Dx(); x++ {
				frame.SetRGBA(p.X+x, p.Y+y, tmpl.RGBAAt(x, y))
			}
		}
	}
	return frame
}

func TestBox_PixelsMouthAndIoU(t *testing.T) {
	b := Box{X: 0.25, Y: 0.5, W: 0.5, H: 0.25}
	r := b.Pixels(image.Rect(0, 0, 200, 100))
	if r != image.Rect(50, 50, 150, 75) {
		t.Fatalf("unexpected pixels %v", r)
	}
	m := Box{X: 0, Y: 0, W: 1, H: 1}.Mouth()
	if m.X != 0.25 || m.Y != 0.6 || m.W != 0.5 || math.Abs(m.H-0.3) > 1e-9 {
		t.Fatalf("unexpected mouth box %+v", m)
	}
	if iou := b.IoU(b); math.Abs(iou-1) > 1e-9 {
		t.Fatalf("self IoU should be 1, got %v", iou)
	}
	if iou := b.IoU(Box{X: 0.9, Y: 0.9, W: 0.1, H: 0.1}); iou != 0 {
		t.Fatalf("disjoint IoU should be 0, got %v", iou)
	}
	back := BoxFromPixels(r, image.Rect(0, 0, 200, 100))
	if back != b {
		t.Fatalf("round trip mismatch %+v", back)
	}
}

func TestSelect_PrefersExplicitThenFirst(t *testing.T) {
	regions := []Region{{ID: "face_0"}, {ID: "face_1"}}
	if r, ok := Select(regions, "face_1"); !ok || r.ID != "face_1" {
		t.Fatalf("expected selected region, got %+v", r)
	}
	if r, ok := Select(regions, "face_9"); !ok || r.ID != "face_0" {
		t.Fatalf("expected fallback to first, got %+v", r)
	}
	if _, ok := Select(nil, "face_0"); ok {
		t.Fatalf("expected no region for empty input")
	}
}

func TestMatchTemplate_FindsPastedPatches(t *testing.T) {
	tmpl := noisePatch(12, 12, 7)
	frame := frameWith(80, 60, tmpl, image.Pt(5, 7), image.Pt(50, 30))
	hits, err := MatchTemplate(context.Background(), frame, NewTemplate(tmpl), MatchOptions{
		Threshold: 0.95,
		Stride:    1,
	})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
	}
	want := map[image.Point]bool{image.Pt(5, 7): true, image.Pt(50, 30): true}
	for _, h := range hits {
		if !want[h.Rect.Min] {
			t.Fatalf("unexpected hit at %v", h.Rect.Min)
		}
		if h.Score < 0.99 {
			t.Fatalf("expected near-perfect score, got %v", h.Score)
		}
	}
}

func TestMatchTemplate_CancelledContext(t *testing.T) {
	tmpl := noisePatch(8, 8, 3)
	frame := frameWith(40, 40, tmpl, image.Pt(1, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := MatchTemplate(ctx, frame, NewTemplate(tmpl), MatchOptions{Threshold: 0.9, Stride: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestTemplateDetector_NormalizedRegions(t *testing.T) {
	tmpl := noisePatch(10, 10, 11)
	frame := frameWith(100, 50, tmpl, image.Pt(20, 10))
	cfg := config.DefaultConfig()
	cfg.MinScale, cfg.MaxScale, cfg.ScaleStep = 1, 1, 0.1
	cfg.Stride = 1
	cfg.Threshold = 0.95
	cfg.AnalysisScale = 1
	d, err := NewTemplateDetector(tmpl, cfg, nil)
	if err != nil {
		t.Fatalf("new detector: %v", err)
	}
	regions, err := d.Detect(context.Background(), capture.Sample{Image: frame, Sequence: 1})
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if len(regions) != 1 || regions[0].ID != "face_0" {
		t.Fatalf("expected one region face_0, got %+v", regions)
	}
	want := Box{X: 0.2, Y: 0.2, W: 0.1, H: 0.2}
	if math.Abs(regions[0].Box.X-want.X) > 1e-9 || math.Abs(regions[0].Box.H-want.H) > 1e-9 {
		t.Fatalf("unexpected box %+v", regions[0].Box)
	}
	if _, err := d.Detect(context.Background(), capture.Sample{}); !errors.Is(err, stage.ErrDetection) {
		t.Fatalf("expected detection error for empty sample, got %v", err)
	}
}

type seqDetector struct {
	frames [][]Region
	i      int
}

func (d *seqDetector) Detect(context.Context, capture.Sample) ([]Region, error) {
	r := d.frames[d.i]
	d.i++
	return r, nil
}

func TestTracker_KeepsIDsAcrossTicks(t *testing.T) {
	left := Box{X: 0.1, Y: 0.1, W: 0.2, H: 0.3}
	right := Box{X: 0.6, Y: 0.1, W: 0.2, H: 0.3}
	inner := &seqDetector{frames: [][]Region{
		{{ID: "face_0", Box: left}, {ID: "face_1", Box: right}},
		// detector order flipped and slight motion
		{{ID: "face_0", Box: Box{X: 0.61, Y: 0.1, W: 0.2, H: 0.3}}, {ID: "face_1", Box: Box{X: 0.12, Y: 0.1, W: 0.2, H: 0.3}}},
		{{ID: "face_0", Box: Box{X: 0.4, Y: 0.6, W: 0.1, H: 0.1}}},
	}}
	tr := NewTracker(inner, 0.3)
	ctx := context.Background()
	first, _ := tr.Detect(ctx, capture.Sample{})
	second, _ := tr.Detect(ctx, capture.Sample{})
	if second[0].ID != first[1].ID || second[1].ID != first[0].ID {
		t.Fatalf("expected IDs to follow boxes: first=%+v second=%+v", first, second)
	}
	third, _ := tr.Detect(ctx, capture.Sample{})
	if third[0].ID != "face_2" {
		t.Fatalf("expected fresh id for new region, got %s", third[0].ID)
	}
	tr.Reset()
	inner.frames = append(inner.frames, []Region{{Box: right}})
	fourth, _ := tr.Detect(ctx, capture.Sample{})
	if fourth[0].ID != "face_0" {
		t.Fatalf("expected numbering restart after reset, got %s", fourth[0].ID)
	}
}

func TestStaticDetector(t *testing.T) {
	d := StaticDetector{Regions: []Region{CenterFace}}
	sample := capture.Sample{Image: image.NewRGBA(image.Rect(0, 0, 4, 4))}
	got, err := d.Detect(context.Background(), sample)
	if err != nil || len(got) != 1 || got[0] != CenterFace {
		t.Fatalf("unexpected %+v err=%v", got, err)
	}
	got[0].ID = "mutated"
	if d.Regions[0].ID != "face_0" {
		t.Fatalf("detector output must be a copy")
	}
}

func TestRecorder_KeepsLatestAndForwardsReset(t *testing.T) {
	left := Box{X: 0.1, Y: 0.1, W: 0.2, H: 0.3}
	inner := &seqDetector{frames: [][]Region{{{Box: left}}, {{Box: left}}}}
	tr := NewTracker(inner, 0.3)
	rec := NewRecorder(tr)
	sample := capture.Sample{Image: image.NewRGBA(image.Rect(0, 0, 40, 20))}

	got, err := rec.Detect(context.Background(), sample)
	if err != nil || len(got) != 1 {
		t.Fatalf("detect: %+v err=%v", got, err)
	}
	obs := rec.Latest()
	if len(obs.Regions) != 1 || obs.Regions[0].ID != "face_0" || obs.Bounds.Dx() != 40 || obs.At.IsZero() {
		t.Fatalf("unexpected observation %+v", obs)
	}
	obs.Regions[0].ID = "mutated"
	if rec.Latest().Regions[0].ID != "face_0" {
		t.Fatalf("Latest must return a copy")
	}

	rec.Reset()
	if len(rec.Latest().Regions) != 0 {
		t.Fatalf("reset should clear the observation")
	}
	again, _ := rec.Detect(context.Background(), sample)
	if again[0].ID != "face_0" {
		t.Fatalf("reset should reach the tracker, got %s", again[0].ID)
	}
}
