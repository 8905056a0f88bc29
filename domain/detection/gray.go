package detection

import (
	"image"
	"math"
)

// grayImage holds per-pixel luminance plus padded summed-area tables so any
// window sum and sum of squares is four lookups.
type grayImage struct {
	w, h  int
	pix   []float64
	sum   []float64 // (w+1)*(h+1), row 0 and column 0 are zero
	sumSq []float64
}

func luminance(r, g, b uint8) float64 {
	return 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
}

func newGrayImage(img *image.RGBA) *grayImage {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	g := &grayImage{
		w:     w,
		h:     h,
		pix:   make([]float64, w*h),
		sum:   make([]float64, (w+1)*(h+1)),
		sumSq: make([]float64, (w+1)*(h+1)),
	}
	stride := w + 1
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		var rowSum, rowSq float64
		for x := 0; x < w; x++ {
			var v float64
			if row[x*4+3] != 0 {
				v = luminance(row[x*4], row[x*4+1], row[x*4+2])
			}
			g.pix[y*w+x] = v
			rowSum += v
			rowSq += v * v
			g.sum[(y+1)*stride+x+1] = g.sum[y*stride+x+1] + rowSum
			g.sumSq[(y+1)*stride+x+1] = g.sumSq[y*stride+x+1] + rowSq
		}
	}
	return g
}

// window returns the sum and sum of squares over [x, x+w) x [y, y+h).
func (g *grayImage) window(x, y, w, h int) (sum, sumSq float64) {
	s := g.w + 1
	a, b, c, d := y*s+x, y*s+x+w, (y+h)*s+x, (y+h)*s+x+w
	return g.sum[d] - g.sum[b] - g.sum[c] + g.sum[a],
		g.sumSq[d] - g.sumSq[b] - g.sumSq[c] + g.sumSq[a]
}

// patch is a template in luminance form with precomputed mean and deviation.
type patch struct {
	w, h int
	pix  []float64
	mean float64
	std  float64
}

func newPatch(img image.Image) *patch {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	p := &patch{w: w, h: h, pix: make([]float64, w*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, gg, bb, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			p.pix[y*w+x] = luminance(uint8(r>>8), uint8(gg>>8), uint8(bb>>8))
		}
	}
	p.stats()
	return p
}

func (p *patch) stats() {
	var s, sq float64
	for _, v := range p.pix {
		s += v
		sq += v * v
	}
	n := float64(len(p.pix))
	p.mean = s / n
	if v := sq/n - p.mean*p.mean; v > 0 {
		p.std = math.Sqrt(v)
	}
}

// resize returns a bilinear resampling of p by factor, or nil when the
// result would be smaller than 2x2.
func (p *patch) resize(factor float64) *patch {
	if factor == 1 {
		return p
	}
	w := int(float64(p.w) * factor)
	h := int(float64(p.h) * factor)
	if w < 2 || h < 2 {
		return nil
	}
	out := &patch{w: w, h: h, pix: make([]float64, w*h)}
	fx := float64(p.w) / float64(w)
	fy := float64(p.h) / float64(h)
	for y := 0; y < h; y++ {
		sy := clampf((float64(y)+0.5)*fy-0.5, 0, float64(p.h-1))
		y0 := int(sy)
		y1 := min(y0+1, p.h-1)
		dy := sy - float64(y0)
		for x := 0; x < w; x++ {
			sx := clampf((float64(x)+0.5)*fx-0.5, 0, float64(p.w-1))
			x0 := int(sx)
			x1 := min(x0+1, p.w-1)
			dx := sx - float64(x0)
			top := p.pix[y0*p.w+x0]*(1-dx) + p.pix[y0*p.w+x1]*dx
			bottom := p.pix[y1*p.w+x0]*(1-dx) + p.pix[y1*p.w+x1]*dx
			out.pix[y*w+x] = top*(1-dy) + bottom*dy
		}
	}
	out.stats()
	return out
}

// ncc scores the patch against the frame window at (x, y). Flat windows and
// flat templates score 0.
func (g *grayImage) ncc(p *patch, x, y int) float64 {
	if p.std <= 1e-9 {
		return 0
	}
	n := float64(p.w * p.h)
	sum, sumSq := g.window(x, y, p.w, p.h)
	meanF := sum / n
	varF := sumSq/n - meanF*meanF
	if varF <= 1e-9 {
		return 0
	}
	var cross float64
	for py := 0; py < p.h; py++ {
		frow := g.pix[(y+py)*g.w+x : (y+py)*g.w+x+p.w]
		trow := p.pix[py*p.w : (py+1)*p.w]
		for i := range trow {
			cross += frow[i] * trow[i]
		}
	}
	return (cross - n*meanF*p.mean) / (n * math.Sqrt(varF) * p.std)
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
