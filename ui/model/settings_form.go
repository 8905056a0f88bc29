package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/soocke/lipread-go/config"
	"github.com/soocke/lipread-go/domain/translation"
)

// FieldKind selects the widget and parser for a settings row.
type FieldKind int

const (
	FieldText FieldKind = iota
	FieldInt
	FieldFloat
	FieldBool
	FieldChoice
)

// FormField describes one editable settings row.
type FormField struct {
	ID      string
	Label   string
	Kind    FieldKind
	Options []string // FieldChoice only
}

func languageOptions() []string {
	langs := translation.Languages()
	out := make([]string, len(langs))
	for i, l := range langs {
		out[i] = l.Code + " (" + l.Name + ")"
	}
	return out
}

// SettingsFields lists the rows of the settings panel in display order.
func SettingsFields() []FormField {
	langs := languageOptions()
	return []FormField{
		{ID: "source_lang", Label: "Spoken language", Kind: FieldChoice, Options: langs},
		{ID: "target_lang", Label: "Translate to", Kind: FieldChoice, Options: langs},
		{ID: "voice_gender", Label: "Voice", Kind: FieldChoice, Options: []string{"female", "male"}},
		{ID: "interval_ms", Label: "Interval (ms)", Kind: FieldInt},
		{ID: "stage_timeout_ms", Label: "Stage timeout (ms)", Kind: FieldInt},
		{ID: "speech_rate", Label: "Speech rate", Kind: FieldFloat},
		{ID: "speech_pitch", Label: "Speech pitch", Kind: FieldFloat},
		{ID: "speech_volume", Label: "Speech volume", Kind: FieldFloat},
		{ID: "auto_speak", Label: "Auto speak (true/false)", Kind: FieldBool},
		{ID: "show_confidence", Label: "Show confidence (true/false)", Kind: FieldBool},
		{ID: "save_history", Label: "Save history (true/false)", Kind: FieldBool},
		{ID: "threshold", Label: "Face threshold", Kind: FieldFloat},
		{ID: "analysis_scale", Label: "Analysis scale (0.2-1.0)", Kind: FieldFloat},
		{ID: "max_regions", Label: "Max faces", Kind: FieldInt},
	}
}

// ChoiceValue strips the display suffix from a choice option.
func ChoiceValue(option string) string {
	option = strings.TrimSpace(option)
	if i := strings.IndexByte(option, ' '); i >= 0 {
		return option[:i]
	}
	return option
}

// ChoiceIndex finds the option whose value is v, or 0.
func ChoiceIndex(options []string, v string) int {
	for i, o := range options {
		if strings.EqualFold(ChoiceValue(o), v) {
			return i
		}
	}
	return 0
}

// FormValues renders cfg as field text keyed by field ID.
func FormValues(c *config.Config) map[string]string {
	return map[string]string{
		"source_lang":      c.SourceLang,
		"target_lang":      c.TargetLang,
		"voice_gender":     c.VoiceGender,
		"interval_ms":      strconv.Itoa(c.IntervalMs),
		"stage_timeout_ms": strconv.Itoa(c.StageTimeoutMs),
		"speech_rate":      fmt.Sprintf("%.2f", c.SpeechRate),
		"speech_pitch":     fmt.Sprintf("%.2f", c.SpeechPitch),
		"speech_volume":    fmt.Sprintf("%.2f", c.SpeechVolume),
		"auto_speak":       strconv.FormatBool(c.AutoSpeak),
		"show_confidence":  strconv.FormatBool(c.ShowConfidence),
		"save_history":     strconv.FormatBool(c.SaveHistory),
		"threshold":        fmt.Sprintf("%.3f", c.Threshold),
		"analysis_scale":   fmt.Sprintf("%.2f", c.AnalysisScale),
		"max_regions":      strconv.Itoa(c.MaxRegions),
	}
}

// ApplyForm parses values onto a copy of base and validates it. Unparseable
// fields keep the base value and are listed in invalid.
func ApplyForm(base *config.Config, values map[string]string) (cfg *config.Config, invalid []string) {
	cfg = base.Clone()
	for _, f := range SettingsFields() {
		raw, ok := values[f.ID]
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)
		if f.Kind == FieldChoice {
			raw = ChoiceValue(raw)
		}
		if !assignField(cfg, f, raw) {
			invalid = append(invalid, f.ID)
		}
	}
	_ = cfg.Validate()
	return cfg, invalid
}

func assignField(c *config.Config, f FormField, raw string) bool {
	switch f.Kind {
	case FieldInt:
		i, ok := parseIntField(raw)
		if !ok {
			return false
		}
		switch f.ID {
		case "interval_ms":
			c.IntervalMs = i
		case "stage_timeout_ms":
			c.StageTimeoutMs = i
		case "max_regions":
			c.MaxRegions = i
		}
	case FieldFloat:
		v, ok := parseFloatField(raw)
		if !ok {
			return false
		}
		switch f.ID {
		case "speech_rate":
			c.SpeechRate = v
		case "speech_pitch":
			c.SpeechPitch = v
		case "speech_volume":
			c.SpeechVolume = v
		case "threshold":
			c.Threshold = v
		case "analysis_scale":
			c.AnalysisScale = v
		}
	case FieldBool:
		b, ok := parseBoolLoose(raw)
		if !ok {
			return false
		}
		switch f.ID {
		case "auto_speak":
			c.AutoSpeak = b
		case "show_confidence":
			c.ShowConfidence = b
		case "save_history":
			c.SaveHistory = b
		}
	case FieldChoice, FieldText:
		if raw == "" {
			return false
		}
		switch f.ID {
		case "source_lang":
			c.SourceLang = raw
		case "target_lang":
			c.TargetLang = raw
		case "voice_gender":
			c.VoiceGender = raw
		}
	}
	return true
}

func parseFloatField(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func parseIntField(s string) (int, bool) {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return i, true
}

func parseBoolLoose(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "on", "t":
		return true, true
	case "false", "0", "no", "n", "off", "f":
		return false, true
	default:
		return false, false
	}
}
