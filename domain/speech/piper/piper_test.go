package piper

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestPCM16ToFloat(t *testing.T) {
	out := pcm16ToFloat([]byte{0x00, 0x40, 0x00, 0xC0, 0xFF}, 1)
	if len(out) != 2 || out[0] != 0.5 || out[1] != -0.5 {
		t.Fatalf("unexpected samples %v", out)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Binary: "lipread-no-such-piper", Model: "x.onnx"}, nil); err == nil {
		t.Fatal("expected error for missing binary")
	}
	// Any executable works for validation; the test binary is always present.
	bin := os.Args[0]
	if _, err := New(Config{Binary: bin}, nil); err == nil {
		t.Fatal("expected error for missing model")
	}
	if _, err := New(Config{Binary: bin, Model: filepath.Join(t.TempDir(), "none.onnx")}, nil); err == nil {
		t.Fatal("expected error for absent model file")
	}
}

func TestNew_ReadsModelConfig(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "pt_BR-faber-medium.onnx")
	if err := os.WriteFile(model, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	conf := `{"audio":{"sample_rate":16000},"espeak":{"voice":"pt-br"}}`
	if err := os.WriteFile(model+".json", []byte(conf), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := New(Config{Binary: os.Args[0], Model: model}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if p.sampleRate != 16000 {
		t.Fatalf("sample rate %v", p.sampleRate)
	}
	voices, err := p.Voices(context.Background())
	if err != nil || len(voices) != 1 {
		t.Fatalf("voices %v %v", voices, err)
	}
	if voices[0].Name != "pt_BR-faber-medium" || voices[0].Language != "pt-br" {
		t.Fatalf("unexpected voice %+v", voices[0])
	}
}
