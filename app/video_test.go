package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
)

func writeClip(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestProcessVideo_DetectsLanguageTranslatesAndStores(t *testing.T) {
	var uploads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/process-video" {
			http.NotFound(w, r)
			return
		}
		if _, _, err := r.FormFile("video"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		uploads.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "text": "Bom dia! Olá, como você está?", "confidence": 0.8})
	}))
	defer srv.Close()

	cfg := offlineConfig()
	cfg.Recognizer = "http"
	cfg.RecognizerURL = srv.URL
	cfg.SourceLang = "es"
	cfg.SaveHistory = true
	cfg.HistoryPath = filepath.Join(t.TempDir(), "history.db")
	c, err := BuildContainer(cfg, nil, Options{ImagePath: writeFramePNG(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.ProcessVideo(context.Background(), writeClip(t), VideoOptions{Source: "auto", Speak: true})
	if err != nil {
		t.Fatalf("process video: %v", err)
	}
	if n := uploads.Load(); n != 1 {
		t.Fatalf("expected one upload, got %d", n)
	}
	if res.Source != "pt" || res.Target != "en" {
		t.Fatalf("languages %s->%s", res.Source, res.Target)
	}
	if res.Translated != "Good morning! Hello, how are you?" || len(res.Sentences) != 2 {
		t.Fatalf("unexpected translation %+v", res)
	}
	if text, _ := c.Speaker.Last(); text != res.Translated {
		t.Fatalf("spoke %q", text)
	}

	entries, err := c.History.Recent(context.Background(), 10)
	if err != nil || len(entries) != 1 || entries[0].Translated != res.Translated {
		t.Fatalf("history %+v %v", entries, err)
	}
}

func TestProcessVideo_AutoTranslateOffKeepsSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "text": "Bom dia!", "confidence": 0.7})
	}))
	defer srv.Close()

	cfg := offlineConfig()
	cfg.Recognizer = "http"
	cfg.RecognizerURL = srv.URL
	cfg.AutoTranslate = false
	c, err := BuildContainer(cfg, nil, Options{ImagePath: writeFramePNG(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	res, err := c.ProcessVideo(context.Background(), writeClip(t), VideoOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Target != res.Source || res.Translated != "Bom dia!" {
		t.Fatalf("expected untranslated text, got %+v", res)
	}
	if text, _ := c.Speaker.Last(); text != "" {
		t.Fatalf("nothing should be spoken without Speak, got %q", text)
	}
}

func TestProcessVideo_NeedsVideoRecognizer(t *testing.T) {
	c, err := BuildContainer(offlineConfig(), nil, Options{ImagePath: writeFramePNG(t)})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if _, err := c.ProcessVideo(context.Background(), writeClip(t), VideoOptions{}); err == nil {
		t.Fatal("scripted recognizer cannot read video files")
	}
}

func TestSplitSentences(t *testing.T) {
	cases := map[string][]string{
		"Bom dia! Olá, como você está?": {"Bom dia!", "Olá, como você está?"},
		"Até logo":                      {"Até logo"},
		"Muito obrigado... Desculpe":    {"Muito obrigado...", "Desculpe"},
		"  ":                            nil,
	}
	for in, want := range cases {
		if got := splitSentences(in); !slices.Equal(got, want) {
			t.Fatalf("splitSentences(%q) = %q, want %q", in, got, want)
		}
	}
}
