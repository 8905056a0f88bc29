package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the sampling pipeline, its stages
// and the output surfaces. It may be loaded from JSON, YAML or TOML and is
// overridden by environment variables.
type Config struct {
	Debug bool `json:"debug" yaml:"debug" toml:"debug"`

	// Pipeline timing
	IntervalMs        int `json:"interval_ms" yaml:"interval_ms" toml:"interval_ms"`
	StageTimeoutMs    int `json:"stage_timeout_ms" yaml:"stage_timeout_ms" toml:"stage_timeout_ms"`
	CaptureIntervalMs int `json:"capture_interval_ms" yaml:"capture_interval_ms" toml:"capture_interval_ms"`
	MaxFrameAgeMs     int `json:"max_frame_age_ms" yaml:"max_frame_age_ms" toml:"max_frame_age_ms"`

	// Languages and speech
	SourceLang string `json:"source_lang" yaml:"source_lang" toml:"source_lang"`
	TargetLang string `json:"target_lang" yaml:"target_lang" toml:"target_lang"`
	// AutoTranslate off shows and speaks the recognized text untranslated.
	AutoTranslate bool    `json:"auto_translate" yaml:"auto_translate" toml:"auto_translate"`
	AutoSpeak     bool    `json:"auto_speak" yaml:"auto_speak" toml:"auto_speak"`
	VoiceGender   string  `json:"voice_gender" yaml:"voice_gender" toml:"voice_gender"`
	VoiceID       string  `json:"voice_id,omitempty" yaml:"voice_id,omitempty" toml:"voice_id,omitempty"`
	SpeechRate    float64 `json:"speech_rate" yaml:"speech_rate" toml:"speech_rate"`
	SpeechPitch   float64 `json:"speech_pitch" yaml:"speech_pitch" toml:"speech_pitch"`
	SpeechVolume  float64 `json:"speech_volume" yaml:"speech_volume" toml:"speech_volume"`
	SpeechEngine  string  `json:"speech_engine" yaml:"speech_engine" toml:"speech_engine"` // command, piper, none
	PiperModel    string  `json:"piper_model,omitempty" yaml:"piper_model,omitempty" toml:"piper_model,omitempty"`

	// Display and persistence
	ShowConfidence bool   `json:"show_confidence" yaml:"show_confidence" toml:"show_confidence"`
	SaveHistory    bool   `json:"save_history" yaml:"save_history" toml:"save_history"`
	HistoryPath    string `json:"history_path" yaml:"history_path" toml:"history_path"`

	// Stage selection
	Detector           string   `json:"detector" yaml:"detector" toml:"detector"`       // template, static
	Recognizer         string   `json:"recognizer" yaml:"recognizer" toml:"recognizer"` // http, scripted
	RecognizerURL      string   `json:"recognizer_url" yaml:"recognizer_url" toml:"recognizer_url"`
	ScriptedPhrases    []string `json:"scripted_phrases,omitempty" yaml:"scripted_phrases,omitempty" toml:"scripted_phrases,omitempty"`
	Translator         string   `json:"translator" yaml:"translator" toml:"translator"` // dictionary, google
	TranslateAPIKey    string   `json:"translate_api_key,omitempty" yaml:"translate_api_key,omitempty" toml:"translate_api_key,omitempty"`
	TranslateCacheSize int      `json:"translate_cache_size" yaml:"translate_cache_size" toml:"translate_cache_size"`
	TrackRegions       bool     `json:"track_regions" yaml:"track_regions" toml:"track_regions"`
	TrackIoU           float64  `json:"track_iou" yaml:"track_iou" toml:"track_iou"`

	// Template detection parameters
	MinScale      float64 `json:"min_scale" yaml:"min_scale" toml:"min_scale"`
	MaxScale      float64 `json:"max_scale" yaml:"max_scale" toml:"max_scale"`
	ScaleStep     float64 `json:"scale_step" yaml:"scale_step" toml:"scale_step"`
	Threshold     float64 `json:"threshold" yaml:"threshold" toml:"threshold"`
	Stride        int     `json:"stride" yaml:"stride" toml:"stride"`
	Refine        bool    `json:"refine" yaml:"refine" toml:"refine"`
	StopOnScore   float64 `json:"stop_on_score" yaml:"stop_on_score" toml:"stop_on_score"`
	AnalysisScale float64 `json:"analysis_scale" yaml:"analysis_scale" toml:"analysis_scale"`
	MaxRegions    int     `json:"max_regions" yaml:"max_regions" toml:"max_regions"`

	// Capture selection rectangle (global screen coordinates)
	SelectionX int `json:"selection_x" yaml:"selection_x" toml:"selection_x"`
	SelectionY int `json:"selection_y" yaml:"selection_y" toml:"selection_y"`
	SelectionW int `json:"selection_w" yaml:"selection_w" toml:"selection_w"`
	SelectionH int `json:"selection_h" yaml:"selection_h" toml:"selection_h"`

	// Network sinks
	HTTPAddr     string `json:"http_addr" yaml:"http_addr" toml:"http_addr"`
	MQTTBroker   string `json:"mqtt_broker,omitempty" yaml:"mqtt_broker,omitempty" toml:"mqtt_broker,omitempty"`
	MQTTTopic    string `json:"mqtt_topic" yaml:"mqtt_topic" toml:"mqtt_topic"`
	MQTTClientID string `json:"mqtt_client_id" yaml:"mqtt_client_id" toml:"mqtt_client_id"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		IntervalMs:         2000,
		StageTimeoutMs:     10000,
		CaptureIntervalMs:  100,
		MaxFrameAgeMs:      1500,
		SourceLang:         "pt",
		TargetLang:         "en",
		AutoTranslate:      true,
		AutoSpeak:          true,
		VoiceGender:        "female",
		SpeechRate:         1.0,
		SpeechPitch:        1.0,
		SpeechVolume:       1.0,
		SpeechEngine:       "command",
		ShowConfidence:     true,
		SaveHistory:        true,
		HistoryPath:        "history.db",
		Detector:           "template",
		Recognizer:         "http",
		RecognizerURL:      "http://localhost:5000",
		Translator:         "dictionary",
		TranslateCacheSize: 256,
		TrackRegions:       true,
		TrackIoU:           0.3,
		MinScale:           0.60,
		MaxScale:           1.40,
		ScaleStep:          0.10,
		Threshold:          0.60,
		Stride:             4,
		Refine:             true,
		StopOnScore:        0.95,
		AnalysisScale:      0.5,
		MaxRegions:         4,
		HTTPAddr:           "127.0.0.1:8787",
		MQTTTopic:          "lipread",
		MQTTClientID:       "lipread",
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.IntervalMs < 100 {
		c.IntervalMs = 2000
	}
	if c.StageTimeoutMs < 0 {
		c.StageTimeoutMs = 0
	}
	if c.CaptureIntervalMs <= 0 {
		c.CaptureIntervalMs = 100
	}
	if c.MaxFrameAgeMs < 0 {
		c.MaxFrameAgeMs = 0
	}
	c.SourceLang = strings.ToLower(strings.TrimSpace(c.SourceLang))
	c.TargetLang = strings.ToLower(strings.TrimSpace(c.TargetLang))
	if c.SourceLang == "" {
		c.SourceLang = "pt"
	}
	if c.TargetLang == "" {
		c.TargetLang = "en"
	}
	switch strings.ToLower(c.VoiceGender) {
	case "male":
		c.VoiceGender = "male"
	default:
		c.VoiceGender = "female"
	}
	if c.SpeechRate <= 0 || c.SpeechRate > 4 {
		c.SpeechRate = 1.0
	}
	if c.SpeechPitch <= 0 || c.SpeechPitch > 2 {
		c.SpeechPitch = 1.0
	}
	if c.SpeechVolume < 0 || c.SpeechVolume > 1 {
		c.SpeechVolume = 1.0
	}
	if c.TranslateCacheSize < 0 {
		c.TranslateCacheSize = 0
	}
	if c.TrackIoU <= 0 || c.TrackIoU >= 1 {
		c.TrackIoU = 0.3
	}
	if c.MinScale <= 0 {
		c.MinScale = 0.60
	}
	if c.MaxScale <= 0 || c.MaxScale < c.MinScale {
		c.MaxScale = c.MinScale + 0.80
	}
	if c.ScaleStep <= 0 {
		c.ScaleStep = 0.10
	}
	if c.Threshold <= 0 || c.Threshold > 1 {
		c.Threshold = 0.60
	}
	if c.Stride <= 0 {
		c.Stride = 4
	}
	if c.StopOnScore < 0 || c.StopOnScore > 1 {
		c.StopOnScore = 0.95
	}
	if c.AnalysisScale <= 0 || c.AnalysisScale > 1 {
		c.AnalysisScale = 1
	}
	if c.MaxRegions <= 0 {
		c.MaxRegions = 4
	}
	if c.SelectionW < 0 || c.SelectionH < 0 {
		c.SelectionW, c.SelectionH = 0, 0
	}
	return nil
}

// Interval is the sampling tick period.
func (c *Config) Interval() time.Duration { return time.Duration(c.IntervalMs) * time.Millisecond }

// StageTimeout bounds each stage call; zero disables the bound.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutMs) * time.Millisecond
}

// CaptureInterval is the background grab period.
func (c *Config) CaptureInterval() time.Duration {
	return time.Duration(c.CaptureIntervalMs) * time.Millisecond
}

// MaxFrameAge is how old the latest grabbed frame may be before a tick treats
// the source as unavailable.
func (c *Config) MaxFrameAge() time.Duration {
	return time.Duration(c.MaxFrameAgeMs) * time.Millisecond
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	out.ScriptedPhrases = append([]string(nil), c.ScriptedPhrases...)
	return &out
}

type format int

const (
	formatJSON format = iota
	formatYAML
	formatTOML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML
	case ".toml":
		return formatTOML
	default:
		return formatJSON
	}
}

// Load reads configuration from path, picking the format by extension
// (.json, .yaml/.yml, .toml). A missing file yields DefaultConfig(). On a
// decode error the defaults are returned alongside the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if err := decode(path, data, cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("config %s: %w", path, err)
	}
	_ = cfg.Validate()
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch formatOf(path) {
	case formatYAML:
		return yaml.Unmarshal(data, cfg)
	case formatTOML:
		_, err := toml.Decode(string(data), cfg)
		return err
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		return dec.Decode(cfg)
	}
}

// Save writes the configuration to path in the format implied by its
// extension. Secrets loaded from the environment are not written.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	out := c.Clone()
	out.TranslateAPIKey = ""
	var buf bytes.Buffer
	switch formatOf(path) {
	case formatYAML:
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return err
		}
		if err := enc.Close(); err != nil {
			return err
		}
	case formatTOML:
		if err := toml.NewEncoder(&buf).Encode(out); err != nil {
			return err
		}
	default:
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
