// Package speech synthesizes translated captions aloud.
package speech

import (
	"context"
	"strings"
)

// Gender is a voice preference.
type Gender string

const (
	Female Gender = "female"
	Male   Gender = "male"
)

// Options controls one utterance. Zero Rate, Pitch or Volume mean 1.0.
type Options struct {
	VoiceID  string
	Language string // BCP-47, e.g. pt-BR
	Gender   Gender
	Rate     float64
	Pitch    float64
	Volume   float64
}

// Normalized fills zero Rate, Pitch and Volume with 1.
func (o Options) Normalized() Options {
	if o.Rate <= 0 {
		o.Rate = 1
	}
	if o.Pitch <= 0 {
		o.Pitch = 1
	}
	if o.Volume <= 0 {
		o.Volume = 1
	}
	return o
}

// Voice is an installed synthesizer voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	Gender   Gender // empty when the engine does not say
}

// Synthesizer speaks text. Speak blocks until playback ends or ctx is
// cancelled; cancellation must stop audio promptly.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts Options) error
	Voices(ctx context.Context) ([]Voice, error)
}

// Prosody is a recommended rate and pitch pair.
type Prosody struct {
	Rate  float64
	Pitch float64
}

var recommendations = map[string]map[Gender]Prosody{
	"pt-br": {Female: {Rate: 0.95, Pitch: 1.1}, Male: {Rate: 0.95, Pitch: 0.9}},
	"en-us": {Female: {Rate: 1.0, Pitch: 1.0}, Male: {Rate: 1.0, Pitch: 0.85}},
	"es-es": {Female: {Rate: 0.9, Pitch: 1.05}, Male: {Rate: 0.9, Pitch: 0.88}},
}

// Recommend returns the prosody tuned for a locale and gender, or 1.0/1.0.
func Recommend(locale string, gender Gender) Prosody {
	if byGender, ok := recommendations[strings.ToLower(locale)]; ok {
		if p, ok := byGender[gender]; ok {
			return p
		}
	}
	return Prosody{Rate: 1, Pitch: 1}
}

// SelectVoice picks a voice for language (prefix match on the language
// subtag) preferring gender. When no voice matches the gender, the first voice
// of the language is returned; ok is false when the language has no voice.
func SelectVoice(voices []Voice, language string, gender Gender) (Voice, bool) {
	prefix := languagePrefix(language)
	var fallback *Voice
	for i := range voices {
		v := voices[i]
		if prefix != "" && languagePrefix(v.Language) != prefix {
			continue
		}
		if fallback == nil {
			fallback = &voices[i]
		}
		if gender != "" && voiceGender(v) == gender {
			return v, true
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return Voice{}, false
}

func languagePrefix(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}

func voiceGender(v Voice) Gender {
	if v.Gender != "" {
		return v.Gender
	}
	name := strings.ToLower(v.Name)
	switch {
	case strings.Contains(name, "female"), strings.Contains(name, "woman"):
		return Female
	case strings.Contains(name, "male"), strings.Contains(name, "man"):
		return Male
	}
	return ""
}
