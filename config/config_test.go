package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.IntervalMs != 2000 || cfg.SourceLang != "pt" || cfg.TargetLang != "en" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestSaveLoad_AllFormats(t *testing.T) {
	for _, name := range []string{"cfg.json", "cfg.yaml", "cfg.toml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := DefaultConfig()
			cfg.TargetLang = "es"
			cfg.IntervalMs = 1500
			cfg.ScriptedPhrases = []string{"Bom dia!", "Obrigado"}
			cfg.TranslateAPIKey = "secret"
			if err := cfg.Save(path); err != nil {
				t.Fatalf("save: %v", err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if got.TargetLang != "es" || got.IntervalMs != 1500 || len(got.ScriptedPhrases) != 2 {
				t.Fatalf("round trip mismatch: %+v", got)
			}
			if got.TranslateAPIKey != "" {
				t.Fatalf("api key must not be persisted")
			}
			if cfg.TranslateAPIKey != "secret" {
				t.Fatalf("save must not mutate the caller's config")
			}
		})
	}
}

func TestLoad_DecodeErrorReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("interval_ms: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if cfg == nil || cfg.IntervalMs != 2000 {
		t.Fatalf("expected defaults alongside error")
	}
}

func TestValidate_Clamps(t *testing.T) {
	c := &Config{IntervalMs: 5, SpeechRate: -1, Threshold: 3, VoiceGender: "MALE", SourceLang: " PT ", MaxScale: 0.1, MinScale: 0.5}
	_ = c.Validate()
	if c.IntervalMs != 2000 || c.SpeechRate != 1 || c.Threshold != 0.60 {
		t.Fatalf("unexpected clamp result %+v", c)
	}
	if c.VoiceGender != "male" || c.SourceLang != "pt" {
		t.Fatalf("expected normalized strings, got %q %q", c.VoiceGender, c.SourceLang)
	}
	if c.MaxScale < c.MinScale {
		t.Fatalf("max scale below min scale")
	}
}

func TestApplyEnv_OverridesAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("LIPREAD_TARGET_LANG=es\nLIPREAD_INTERVAL_MS=3000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvRecognizerURL, "http://recognizer:9000")
	t.Setenv(EnvTargetLang, "")
	os.Unsetenv(EnvTargetLang)
	t.Setenv(EnvIntervalMs, "")
	os.Unsetenv(EnvIntervalMs)
	if err := LoadDotEnv(envFile, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("dotenv: %v", err)
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.RecognizerURL != "http://recognizer:9000" {
		t.Fatalf("expected env recognizer url, got %q", cfg.RecognizerURL)
	}
	if cfg.TargetLang != "es" || cfg.IntervalMs != 3000 {
		t.Fatalf("expected .env values, got target=%q interval=%d", cfg.TargetLang, cfg.IntervalMs)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lipread.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}
	var mu sync.Mutex
	var got *Config
	w, err := Watch(path, func(c *Config) {
		mu.Lock()
		got = c
		mu.Unlock()
	}, nil)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer w.Close()

	cfg := DefaultConfig()
	cfg.TargetLang = "fr"
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		c := got
		mu.Unlock()
		if c != nil && c.TargetLang == "fr" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for reload")
}
