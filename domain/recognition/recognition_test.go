package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/stage"
)

func testSample(w, h int) capture.Sample {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return capture.Sample{Image: img, CapturedAt: time.Now(), Sequence: 1}
}

func TestCrop(t *testing.T) {
	s := testSample(200, 100)
	out := Crop(s, detection.Box{X: 0.5, Y: 0.5, W: 0.25, H: 0.5})
	if out == nil || out.Bounds().Dx() != 50 || out.Bounds().Dy() != 50 {
		t.Fatalf("unexpected crop %v", out)
	}
	if got := out.RGBAAt(0, 0); got.R != 100 || got.G != 50 {
		t.Fatalf("crop origin pixel %v", got)
	}
	if Crop(capture.Sample{}, detection.Box{W: 1, H: 1}) != nil {
		t.Fatalf("expected nil for empty sample")
	}
}

func TestHTTPRecognizer_ProcessFrame(t *testing.T) {
	var gotSize image.Point
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-frame" {
			http.NotFound(w, r)
			return
		}
		f, _, err := r.FormFile("frame")
		if err != nil {
			t.Errorf("form file: %v", err)
			return
		}
		defer f.Close()
		img, err := jpeg.Decode(f)
		if err != nil {
			t.Errorf("decode: %v", err)
			return
		}
		gotSize = img.Bounds().Size()
		json.NewEncoder(w).Encode(map[string]any{"success": true, "text": "Bom dia!", "confidence": 0.9})
	}))
	defer srv.Close()

	rec := NewHTTPRecognizer(HTTPConfig{BaseURL: srv.URL + "/", MouthOnly: true, Client: srv.Client()}, nil)
	region := detection.Region{ID: "face_0", Box: detection.Box{X: 0, Y: 0, W: 1, H: 1}, Confidence: 1}
	res, err := rec.Recognize(context.Background(), testSample(200, 100), region)
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if res.Text != "Bom dia!" || res.Confidence != 0.9 {
		t.Fatalf("unexpected result %+v", res)
	}
	if gotSize != (image.Point{X: 100, Y: 30}) {
		t.Fatalf("expected mouth crop 100x30, got %v", gotSize)
	}
}

func TestHTTPRecognizer_FailureIsRecognitionError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "model not loaded"})
	}))
	defer srv.Close()

	rec := NewHTTPRecognizer(HTTPConfig{BaseURL: srv.URL, Client: srv.Client()}, nil)
	_, err := rec.Recognize(context.Background(), testSample(64, 64), detection.Region{Box: detection.Box{W: 1, H: 1}})
	if !errors.Is(err, stage.ErrRecognition) {
		t.Fatalf("expected recognition error, got %v", err)
	}
	if stage.KindOf(err) != stage.Recognition {
		t.Fatalf("unexpected kind %v", stage.KindOf(err))
	}
}

func TestHTTPRecognizer_HealthAndVideo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Write([]byte(`{"status":"ok"}`))
		case "/process-video":
			if _, _, err := r.FormFile("video"); err != nil {
				t.Errorf("video field: %v", err)
			}
			json.NewEncoder(w).Encode(map[string]any{"success": true, "text": "Até logo", "confidence": 0.7})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rec := NewHTTPRecognizer(HTTPConfig{BaseURL: srv.URL, Client: srv.Client()}, nil)
	if err := rec.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	res, err := rec.RecognizeVideo(context.Background(), path)
	if err != nil || res.Text != "Até logo" {
		t.Fatalf("video: %+v err=%v", res, err)
	}
}

func TestScriptedRecognizer_RepeatsAndCycles(t *testing.T) {
	s := NewScriptedRecognizer([]string{"a", "b"}, 0.8, 2)
	want := []string{"a", "a", "b", "b", "a"}
	for i, w := range want {
		res, err := s.Recognize(context.Background(), capture.Sample{}, detection.Region{})
		if err != nil {
			t.Fatal(err)
		}
		if res.Text != w || res.Confidence != 0.8 {
			t.Fatalf("call %d: got %+v want %q", i, res, w)
		}
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Recognize(ctx, capture.Sample{}, detection.Region{}); !errors.Is(err, stage.ErrRecognition) {
		t.Fatalf("expected recognition error on cancelled ctx, got %v", err)
	}
}
