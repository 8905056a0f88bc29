package detection

import (
	"context"
	"image"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// MatchOptions configures multi-scale template matching.
type MatchOptions struct {
	MinScale    float64
	MaxScale    float64
	ScaleStep   float64
	Threshold   float64 // minimum NCC score for a match
	Stride      int     // coarse scan stride in pixels
	Refine      bool    // rescan +-Stride around each coarse hit at stride 1
	StopOnScore float64 // skip remaining scales once a hit reaches this; 0 disables
	MaxMatches  int     // cap after suppression; 0 means unlimited
	Overlap     float64 // IoU above which the weaker of two hits is dropped
}

func (o MatchOptions) scales() []float64 {
	if o.MinScale <= 0 || o.MaxScale < o.MinScale || o.ScaleStep <= 0 {
		return []float64{1}
	}
	var out []float64
	for s := o.MinScale; s <= o.MaxScale+1e-9 && len(out) < 200; s += o.ScaleStep {
		out = append(out, s)
	}
	return out
}

// Match is one template hit in frame pixel coordinates.
type Match struct {
	Rect  image.Rectangle
	Score float64
	Scale float64
}

// Template is a reusable matching template. Scaled variants are cached per
// template.
type Template struct {
	base   *patch
	scaled sync.Map // float64 -> *patch
}

// NewTemplate precomputes img for matching. It returns nil for an empty image.
func NewTemplate(img image.Image) *Template {
	if img == nil {
		return nil
	}
	p := newPatch(img)
	if p == nil {
		return nil
	}
	return &Template{base: p}
}

// Size returns the unscaled template size.
func (t *Template) Size() image.Point { return image.Pt(t.base.w, t.base.h) }

func (t *Template) at(scale float64) *patch {
	if v, ok := t.scaled.Load(scale); ok {
		return v.(*patch)
	}
	p := t.base.resize(scale)
	if p == nil {
		return nil
	}
	v, _ := t.scaled.LoadOrStore(scale, p)
	return v.(*patch)
}

// MatchTemplate scans frame for tmpl across scales in parallel and returns
// non-overlapping hits sorted by score, best first.
func MatchTemplate(ctx context.Context, frame *image.RGBA, tmpl *Template, opts MatchOptions) ([]Match, error) {
	if frame == nil || tmpl == nil || frame.Bounds().Empty() {
		return nil, nil
	}
	if opts.Stride <= 0 {
		opts.Stride = 1
	}
	gray := newGrayImage(frame)
	origin := frame.Bounds().Min

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	var (
		mu   sync.Mutex
		hits []Match
		stop atomic.Bool
	)
	for _, scale := range opts.scales() {
		g.Go(func() error {
			if stop.Load() {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			p := tmpl.at(scale)
			if p == nil || p.w > gray.w || p.h > gray.h {
				return nil
			}
			found := scan(gctx, gray, p, opts)
			for i := range found {
				found[i].Scale = scale
				found[i].Rect = found[i].Rect.Add(origin)
				if opts.StopOnScore > 0 && found[i].Score >= opts.StopOnScore {
					stop.Store(true)
				}
			}
			mu.Lock()
			hits = append(hits, found...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return suppress(hits, opts.Overlap, opts.MaxMatches), nil
}

// scan returns every coarse position scoring at least the threshold, refined
// to the best nearby position when requested.
func scan(ctx context.Context, g *grayImage, p *patch, opts MatchOptions) []Match {
	var out []Match
	for y := 0; y <= g.h-p.h; y += opts.Stride {
		if ctx.Err() != nil {
			return out
		}
		for x := 0; x <= g.w-p.w; x += opts.Stride {
			score := g.ncc(p, x, y)
			if score < opts.Threshold {
				continue
			}
			bx, by := x, y
			if opts.Refine && opts.Stride > 1 {
				bx, by, score = refine(g, p, x, y, opts.Stride, score)
			}
			out = append(out, Match{Rect: image.Rect(bx, by, bx+p.w, by+p.h), Score: score})
		}
	}
	return out
}

func refine(g *grayImage, p *patch, cx, cy, radius int, best float64) (int, int, float64) {
	bx, by := cx, cy
	for y := max(0, cy-radius); y <= min(g.h-p.h, cy+radius); y++ {
		for x := max(0, cx-radius); x <= min(g.w-p.w, cx+radius); x++ {
			if s := g.ncc(p, x, y); s > best {
				best, bx, by = s, x, y
			}
		}
	}
	return bx, by, best
}

// suppress keeps the strongest hits, dropping any that overlap a kept hit by
// more than overlap IoU.
func suppress(hits []Match, overlap float64, limit int) []Match {
	if overlap <= 0 {
		overlap = 0.3
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	var kept []Match
	for _, h := range hits {
		dup := false
		for _, k := range kept {
			if rectIoU(h.Rect, k.Rect) > overlap {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		kept = append(kept, h)
		if limit > 0 && len(kept) == limit {
			break
		}
	}
	return kept
}

func rectIoU(a, b image.Rectangle) float64 {
	inter := a.Intersect(b)
	if inter.Empty() {
		return 0
	}
	ia := float64(inter.Dx() * inter.Dy())
	union := float64(a.Dx()*a.Dy()+b.Dx()*b.Dy()) - ia
	if union <= 0 {
		return 0
	}
	return ia / union
}
