package app

import (
	"reflect"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/domain/pipeline"
	"github.com/soocke/lipread-go/domain/speech"
	"github.com/soocke/lipread-go/domain/translation"
)

// PipelineSettings snapshots cfg for one controller session. With
// auto-translate off the target equals the source, so captions pass through
// untranslated and are spoken in the source language.
func PipelineSettings(cfg *config.Config) pipeline.Settings {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	target := cfg.TargetLang
	if !cfg.AutoTranslate {
		target = cfg.SourceLang
	}
	return pipeline.Settings{
		Interval:     cfg.Interval(),
		SourceLang:   cfg.SourceLang,
		TargetLang:   target,
		AutoSpeak:    cfg.AutoSpeak,
		Voice:        VoiceOptions(cfg, target),
		StageTimeout: cfg.StageTimeout(),
	}
}

// VoiceOptions scales the recommended prosody for the language's locale by
// the user's rate and pitch.
func VoiceOptions(cfg *config.Config, lang string) speech.Options {
	locale := translation.Locale(lang)
	gender := speech.Female
	if cfg.VoiceGender == string(speech.Male) {
		gender = speech.Male
	}
	p := speech.Recommend(locale, gender)
	return speech.Options{
		VoiceID:  cfg.VoiceID,
		Language: locale,
		Gender:   gender,
		Rate:     p.Rate * cfg.SpeechRate,
		Pitch:    p.Pitch * cfg.SpeechPitch,
		Volume:   cfg.SpeechVolume,
	}
}

// SameConfig reports whether a reload would change nothing. Saving from the
// settings panel triggers the file watcher with the config just applied.
func SameConfig(a, b *config.Config) bool {
	if a == nil || b == nil {
		return a == b
	}
	x, y := a.Clone(), b.Clone()
	_ = x.Validate()
	_ = y.Validate()
	return reflect.DeepEqual(x, y)
}
