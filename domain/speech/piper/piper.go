// Package piper speaks through the piper neural TTS binary and PortAudio.
package piper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gordonklaus/portaudio"

	"github.com/soocke/lipread-go/domain/speech"
)

const (
	defaultSampleRate = 22050
	playbackFrames    = 1024
)

// Config locates the piper binary and an ONNX voice model. The model's
// JSON config is expected next to it (<model>.json).
type Config struct {
	Binary string
	Model  string
}

// Synthesizer renders raw PCM with piper and plays it through PortAudio.
type Synthesizer struct {
	binary     string
	model      string
	sampleRate float64
	language   string
	logger     *slog.Logger
}

type modelConfig struct {
	Audio struct {
		SampleRate int `json:"sample_rate"`
	} `json:"audio"`
	Espeak struct {
		Voice string `json:"voice"`
	} `json:"espeak"`
}

// New validates cfg and reads the model's sample rate.
func New(cfg Config, logger *slog.Logger) (*Synthesizer, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = "piper"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("piper binary: %w", err)
	}
	if cfg.Model == "" {
		return nil, errors.New("piper model path is required")
	}
	if _, err := os.Stat(cfg.Model); err != nil {
		return nil, fmt.Errorf("piper model: %w", err)
	}
	p := &Synthesizer{binary: path, model: cfg.Model, sampleRate: defaultSampleRate, logger: logger}
	if raw, err := os.ReadFile(cfg.Model + ".json"); err == nil {
		var mc modelConfig
		if err := json.Unmarshal(raw, &mc); err == nil {
			if mc.Audio.SampleRate > 0 {
				p.sampleRate = float64(mc.Audio.SampleRate)
			}
			p.language = mc.Espeak.Voice
		}
	}
	return p, nil
}

func (p *Synthesizer) Speak(ctx context.Context, text string, opts speech.Options) error {
	opts = opts.Normalized()
	args := []string{
		"--model", p.model,
		"--output_raw",
		// piper speeds up as length_scale shrinks.
		"--length_scale", strconv.FormatFloat(1/opts.Rate, 'f', 3, 64),
	}
	cmd := exec.CommandContext(ctx, p.binary, args...)
	cmd.Stdin = strings.NewReader(text)
	cmd.Dir = filepath.Dir(p.binary)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("piper: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	samples := pcm16ToFloat(stdout.Bytes(), float32(min(opts.Volume, 1)))
	if p.logger != nil {
		p.logger.Debug("speech.piper", "samples", len(samples), "rate", p.sampleRate)
	}
	return playFloat32(ctx, samples, p.sampleRate)
}

// Voices reports the single configured model.
func (p *Synthesizer) Voices(context.Context) ([]speech.Voice, error) {
	name := strings.TrimSuffix(filepath.Base(p.model), filepath.Ext(p.model))
	return []speech.Voice{{ID: p.model, Name: name, Language: p.language}}, nil
}

var _ speech.Synthesizer = (*Synthesizer)(nil)

func pcm16ToFloat(data []byte, gain float32) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[2*i:]))
		out[i] = float32(s) / 32768.0 * gain
	}
	return out
}

// playFloat32 writes mono samples to the default output device, checking ctx
// between buffers.
func playFloat32(ctx context.Context, samples []float32, sampleRate float64) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}
	defer portaudio.Terminate()

	buffer := make([]float32, playbackFrames)
	stream, err := portaudio.OpenDefaultStream(0, 1, sampleRate, len(buffer), &buffer)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	defer stream.Close()
	if err := stream.Start(); err != nil {
		return fmt.Errorf("start output stream: %w", err)
	}
	defer stream.Stop()

	for pos := 0; pos < len(samples); pos += len(buffer) {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := copy(buffer, samples[pos:])
		clear(buffer[n:])
		if err := stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}
