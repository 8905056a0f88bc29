package app

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/soocke/lipread-go/domain/history"
	"github.com/soocke/lipread-go/domain/recognition"
	"github.com/soocke/lipread-go/domain/translation"
)

// VideoOptions override the configured languages for one clip. Source "auto"
// guesses the language from the recognized text.
type VideoOptions struct {
	Source string
	Target string
	Speak  bool
}

// VideoResult is the outcome of ProcessVideo.
type VideoResult struct {
	Original   string
	Translated string
	Confidence float64
	Source     string
	Target     string
	Sentences  []translation.Translation
}

// ProcessVideo recognizes a recorded clip, translates it sentence by sentence
// and optionally speaks the translation, blocking until playback ends.
// The result is stored in history when it is enabled.
func (c *AppContainer) ProcessVideo(ctx context.Context, path string, opts VideoOptions) (VideoResult, error) {
	vr, ok := c.Recognizer.(recognition.VideoRecognizer)
	if !ok {
		return VideoResult{}, fmt.Errorf("recognizer %q cannot process video files", c.Config.Recognizer)
	}
	res, err := vr.RecognizeVideo(ctx, path)
	if err != nil {
		return VideoResult{}, err
	}
	text := strings.TrimSpace(res.Text)
	out := VideoResult{Original: text, Confidence: res.Confidence}

	out.Source = strings.ToLower(strings.TrimSpace(opts.Source))
	if out.Source == "" {
		out.Source = c.Config.SourceLang
	}
	if out.Source == "auto" {
		out.Source = translation.DetectLanguage(text)
	}
	out.Target = strings.ToLower(strings.TrimSpace(opts.Target))
	if out.Target == "" {
		out.Target = c.Config.TargetLang
		if !c.Config.AutoTranslate {
			out.Target = out.Source
		}
	}
	c.Logger.Info("video recognized", "path", path, "text", text, "confidence", res.Confidence, "source", out.Source)
	if text == "" {
		return out, nil
	}

	tr := translation.Identity(c.Translator)
	out.Sentences, err = translation.TranslateBatch(ctx, tr, splitSentences(text), out.Source, out.Target)
	if err != nil {
		return out, err
	}
	parts := make([]string, 0, len(out.Sentences))
	for _, s := range out.Sentences {
		parts = append(parts, s.Translated)
	}
	out.Translated = strings.Join(parts, " ")

	if c.History != nil {
		entry := history.Entry{
			SessionID:  uuid.NewString(),
			Original:   out.Original,
			Translated: out.Translated,
			Confidence: out.Confidence,
			Source:     out.Source,
			Target:     out.Target,
			CreatedAt:  time.Now(),
		}
		if _, err := c.History.Save(ctx, entry); err != nil {
			c.Logger.Warn("history save failed", "error", err)
		}
	}

	if opts.Speak {
		c.Speaker.Speak(out.Translated, VoiceOptions(c.Config, out.Target))
		if err := c.Speaker.Wait(ctx); err != nil {
			c.Speaker.Cancel()
			return out, err
		}
	}
	return out, nil
}

// splitSentences cuts text after ., ! and ?. Runs of punctuation stay with the
// sentence they end.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		piece := strings.TrimSpace(text[start : i+1])
		start = i + 1
		switch {
		case piece == "":
		case !strings.ContainsFunc(piece, unicode.IsLetter) && len(out) > 0:
			out[len(out)-1] += piece
		default:
			out = append(out, piece)
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
