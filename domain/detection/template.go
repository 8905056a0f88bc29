package detection

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/stage"
)

// TemplateDetector finds faces by multi-scale normalized cross-correlation
// against a reference face image.
type TemplateDetector struct {
	tmpl   *Template
	opts   MatchOptions
	scale  float64
	logger *slog.Logger
}

// NewTemplateDetector snapshots the detection settings from cfg.
func NewTemplateDetector(tmpl image.Image, cfg *config.Config, logger *slog.Logger) (*TemplateDetector, error) {
	t := NewTemplate(tmpl)
	if t == nil {
		return nil, errors.New("detection: empty template")
	}
	local := *config.DefaultConfig()
	if cfg != nil {
		local = *cfg
	}
	if err := local.Validate(); err != nil {
		return nil, err
	}
	return &TemplateDetector{
		tmpl: t,
		opts: MatchOptions{
			MinScale:    local.MinScale,
			MaxScale:    local.MaxScale,
			ScaleStep:   local.ScaleStep,
			Threshold:   local.Threshold,
			Stride:      local.Stride,
			Refine:      local.Refine,
			StopOnScore: local.StopOnScore,
			MaxMatches:  local.MaxRegions,
		},
		scale:  local.AnalysisScale,
		logger: logger,
	}, nil
}

func (d *TemplateDetector) Detect(ctx context.Context, s capture.Sample) ([]Region, error) {
	if s.Empty() {
		return nil, stage.Wrap(stage.Detection, errors.New("empty sample"))
	}
	analysis := s.Image
	if d.scale > 0 && d.scale < 1 {
		b := s.Image.Bounds()
		w := max(1, int(float64(b.Dx())*d.scale+0.5))
		h := max(1, int(float64(b.Dy())*d.scale+0.5))
		buf := capture.AcquireFrame(image.Rect(0, 0, w, h))
		defer capture.RecycleFrame(buf)
		xdraw.ApproxBiLinear.Scale(buf, buf.Bounds(), s.Image, b, xdraw.Src, nil)
		analysis = buf
	}
	start := time.Now()
	matches, err := MatchTemplate(ctx, analysis, d.tmpl, d.opts)
	if err != nil {
		return nil, stage.Wrap(stage.Detection, fmt.Errorf("template match: %w", err))
	}
	bounds := analysis.Bounds()
	regions := make([]Region, 0, len(matches))
	for i, m := range matches {
		regions = append(regions, Region{
			ID:         fmt.Sprintf("face_%d", i),
			Box:        BoxFromPixels(m.Rect, bounds),
			Confidence: clampf(m.Score, 0, 1),
		})
	}
	if d.logger != nil {
		d.logger.Debug("detection.template", "regions", len(regions), "seq", s.Sequence, "elapsed", time.Since(start))
	}
	return regions, nil
}

// StaticDetector returns a fixed region list for every non-empty sample.
type StaticDetector struct {
	Regions []Region
}

func (d StaticDetector) Detect(ctx context.Context, s capture.Sample) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, stage.Wrap(stage.Detection, err)
	}
	if s.Empty() {
		return nil, stage.Wrap(stage.Detection, errors.New("empty sample"))
	}
	out := make([]Region, len(d.Regions))
	copy(out, d.Regions)
	return out, nil
}

// CenterFace is the default StaticDetector region: a centred face box.
var CenterFace = Region{ID: "face_0", Box: Box{X: 0.3, Y: 0.2, W: 0.4, H: 0.6}, Confidence: 1}
