package presenter

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/ui/images"
	"github.com/soocke/lipread-go/ui/model"
)

// FrameSource supplies the most recent frame from the capture loop.
type FrameSource interface {
	Running() bool
	LatestFrame() capture.Sample
}

// RegionSource reports the last regions the pipeline detected.
type RegionSource interface {
	Latest() detection.Observation
}

// PreviewView describes the UI surface updated by the presenter.
type PreviewView interface {
	UpdateCapture(img image.Image)
	UpdateMouth(img image.Image)
}

const (
	previewMaxW = 400
	previewMaxH = 225
	mouthMaxW   = 160
	mouthMaxH   = 96
)

type previewTask struct {
	sample   capture.Sample
	regions  []detection.Region
	selected string
}

type previewResult struct {
	sequence uint64
	err      error
	preview  image.Image
	mouth    image.Image
	ids      []string
	rects    []image.Rectangle
	duration time.Duration
}

// PreviewPresenter renders the capture preview with region outlines and a
// mouth close-up. Rendering runs on one worker goroutine; a new frame
// replaces a task the worker has not picked up yet.
type PreviewPresenter struct {
	Source  FrameSource
	Regions RegionSource
	View    PreviewView
	Model   *model.RegionModel
	logger  *slog.Logger

	workerOnce sync.Once
	workCh     chan previewTask
	resultCh   chan previewResult

	lastSeq uint64
}

// NewPreviewPresenter constructs a preview presenter. regions may be nil.
func NewPreviewPresenter(source FrameSource, regions RegionSource, view PreviewView, m *model.RegionModel, logger *slog.Logger) *PreviewPresenter {
	return &PreviewPresenter{
		Source:   source,
		Regions:  regions,
		View:     view,
		Model:    m,
		logger:   logger,
		workCh:   make(chan previewTask, 1),
		resultCh: make(chan previewResult, 1),
	}
}

// ProcessFrame applies finished renders and schedules the latest frame.
func (p *PreviewPresenter) ProcessFrame() {
	if p == nil || p.Source == nil || p.View == nil {
		return
	}
	p.ensureWorker()

	for drained := false; !drained; {
		select {
		case res := <-p.resultCh:
			p.handleResult(res)
		default:
			drained = true
		}
	}

	if !p.Source.Running() {
		return
	}
	snapshot := p.Source.LatestFrame()
	if snapshot.Empty() || snapshot.Sequence == 0 || snapshot.Sequence == p.lastSeq {
		return
	}
	p.lastSeq = snapshot.Sequence
	task := previewTask{sample: snapshot, selected: p.Model.Selected()}
	if p.Regions != nil {
		task.regions = p.Regions.Latest().Regions
	}
	p.dispatchTask(task)
}

// Reset forgets the last frame so the next one is always rendered.
func (p *PreviewPresenter) Reset() {
	if p == nil {
		return
	}
	p.lastSeq = 0
	p.Model.Clear()
}

func (p *PreviewPresenter) ensureWorker() {
	p.workerOnce.Do(func() {
		go p.runWorker()
	})
}

func (p *PreviewPresenter) runWorker() {
	for task := range p.workCh {
		res := renderPreview(task)
		select {
		case p.resultCh <- res:
		default:
			select {
			case <-p.resultCh:
			default:
			}
			select {
			case p.resultCh <- res:
			default:
			}
		}
	}
}

func (p *PreviewPresenter) dispatchTask(task previewTask) {
	select {
	case p.workCh <- task:
	default:
		select {
		case <-p.workCh:
		default:
		}
		select {
		case p.workCh <- task:
		default:
		}
	}
}

// renderPreview scales the frame, outlines regions and crops the mouth of the
// region a pass would pick.
func renderPreview(task previewTask) previewResult {
	start := time.Now()
	res := previewResult{sequence: task.sample.Sequence}
	frame := task.sample.Image
	if frame == nil {
		res.err = errors.New("nil frame")
		return res
	}
	scaled := images.ScaleToFit(frame, previewMaxW, previewMaxH)
	pb := scaled.Bounds()
	active, hasActive := detection.Select(task.regions, task.selected)
	boxes := make([]images.Box, 0, len(task.regions))
	for _, r := range task.regions {
		rect := r.Box.Pixels(pb)
		res.ids = append(res.ids, r.ID)
		res.rects = append(res.rects, rect.Sub(pb.Min))
		boxes = append(boxes, images.Box{Rect: rect, Selected: hasActive && r.ID == active.ID})
	}
	res.preview = images.Annotate(scaled, boxes, 2)
	if hasActive {
		mouth, _, err := images.ExtractRect(frame, active.Box.Mouth().Pixels(frame.Bounds()), 4)
		if err != nil {
			res.err = err
		} else {
			res.mouth = images.ScaleToFit(mouth, mouthMaxW, mouthMaxH)
		}
	}
	res.duration = time.Since(start)
	return res
}

func (p *PreviewPresenter) handleResult(res previewResult) {
	if res.err != nil && p.logger != nil {
		p.logger.Error("preview", "error", res.err)
	}
	if res.preview == nil {
		return
	}
	p.Model.SetRegions(res.ids, res.rects)
	p.View.UpdateCapture(res.preview)
	if res.mouth != nil {
		p.View.UpdateMouth(res.mouth)
	}
	if p.logger != nil {
		p.logger.Debug("preview.render", "sequence", res.sequence, "regions", len(res.ids), "took", res.duration)
	}
}
