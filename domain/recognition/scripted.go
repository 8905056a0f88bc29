package recognition

import (
	"context"
	"sync"

	"github.com/soocke/lipread-go/domain/capture"
	"github.com/soocke/lipread-go/domain/detection"
	"github.com/soocke/lipread-go/domain/stage"
)

// DefaultPhrases is the offline demo script.
var DefaultPhrases = []string{
	"Olá, como você está?",
	"Bom dia!",
	"Obrigado pela atenção",
	"Até logo",
	"Como posso ajudar?",
}

// ScriptedRecognizer returns each phrase Repeat times before moving on,
// cycling forever. It never inspects the pixels.
type ScriptedRecognizer struct {
	mu         sync.Mutex
	phrases    []string
	confidence float64
	repeat     int
	pos        int
	count      int
}

// NewScriptedRecognizer cycles phrases with a fixed confidence. repeat < 1
// is treated as 1.
func NewScriptedRecognizer(phrases []string, confidence float64, repeat int) *ScriptedRecognizer {
	if len(phrases) == 0 {
		phrases = DefaultPhrases
	}
	if repeat < 1 {
		repeat = 1
	}
	return &ScriptedRecognizer{phrases: append([]string(nil), phrases...), confidence: confidence, repeat: repeat}
}

func (s *ScriptedRecognizer) Recognize(ctx context.Context, _ capture.Sample, _ detection.Region) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, stage.Wrap(stage.Recognition, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.phrases[s.pos]
	s.count++
	if s.count >= s.repeat {
		s.count = 0
		s.pos = (s.pos + 1) % len(s.phrases)
	}
	return Result{Text: text, Confidence: s.confidence}, nil
}
