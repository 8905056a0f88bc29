package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/stage"
)

const (
	defaultBaseURL  = "http://localhost:5000"
	defaultTimeout  = 10 * time.Second
	videoTimeout    = 60 * time.Second
	jpegQuality     = 85
	minCropEdgePx   = 8
	maxResponseBody = 1 << 20
)

// HTTPConfig configures the lip-reading HTTP service client.
type HTTPConfig struct {
	BaseURL string
	// MouthOnly sends the mouth sub-box instead of the whole face.
	MouthOnly bool
	Client    *http.Client
}

// DefaultHTTPConfig targets a local recognition service.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{BaseURL: defaultBaseURL, MouthOnly: true}
}

// HTTPRecognizer posts cropped frames to a lip-reading service.
type HTTPRecognizer struct {
	base      string
	mouthOnly bool
	client    *http.Client
	logger    *slog.Logger
}

type processResponse struct {
	Success    bool    `json:"success"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// NewHTTPRecognizer builds a client for cfg.BaseURL.
func NewHTTPRecognizer(cfg HTTPConfig, logger *slog.Logger) *HTTPRecognizer {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: videoTimeout}
	}
	return &HTTPRecognizer{base: base, mouthOnly: cfg.MouthOnly, client: client, logger: logger}
}

func (h *HTTPRecognizer) Recognize(ctx context.Context, s capture.Sample, r detection.Region) (Result, error) {
	box := r.Box
	if h.mouthOnly {
		box = box.Mouth()
	}
	crop := Crop(s, box)
	if crop == nil || crop.Bounds().Dx() < minCropEdgePx || crop.Bounds().Dy() < minCropEdgePx {
		// Mouth too small to read; fall back to the face.
		crop = Crop(s, r.Box)
	}
	if crop == nil {
		return Result{}, stage.Wrap(stage.Recognition, errors.New("empty region"))
	}

	body, contentType, err := multipartImage("frame", "frame.jpg", crop)
	if err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	ctx, cancel := withDefaultTimeout(ctx, defaultTimeout)
	defer cancel()
	res, err := h.post(ctx, "/process-frame", body, contentType)
	if err != nil {
		return Result{}, err
	}
	if h.logger != nil {
		h.logger.Debug("recognition.result", "region", r.ID, "text", res.Text, "confidence", res.Confidence)
	}
	return res, nil
}

var _ VideoRecognizer = (*HTTPRecognizer)(nil)

// RecognizeVideo uploads a recorded clip for offline recognition.
func (h *HTTPRecognizer) RecognizeVideo(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("video", filepath.Base(path))
	if err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	ctx, cancel := withDefaultTimeout(ctx, videoTimeout)
	defer cancel()
	return h.post(ctx, "/process-video", &buf, mw.FormDataContentType())
}

// Health reports whether the service answers GET /health with 2xx.
func (h *HTTPRecognizer) Health(ctx context.Context) error {
	ctx, cancel := withDefaultTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.base+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("recognizer health: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("recognizer health: status %d", resp.StatusCode)
	}
	return nil
}

func (h *HTTPRecognizer) post(ctx context.Context, path string, body io.Reader, contentType string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+path, body)
	if err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := h.client.Do(req)
	if err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	defer resp.Body.Close()

	var out processResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(&out); err != nil {
		return Result{}, stage.Wrap(stage.Recognition, fmt.Errorf("status %d: decode: %w", resp.StatusCode, err))
	}
	if resp.StatusCode/100 != 2 || !out.Success {
		msg := out.Error
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return Result{}, stage.Wrap(stage.Recognition, errors.New(msg))
	}
	return Result{Text: out.Text, Confidence: out.Confidence}, nil
}

func multipartImage(field, name string, img image.Image) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, name)
	if err != nil {
		return nil, "", err
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
