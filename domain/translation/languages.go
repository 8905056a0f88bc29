package translation

import (
	"regexp"
	"strings"
)

// Language describes a supported language.
type Language struct {
	Code   string // ISO 639-1
	Name   string
	Native string
	Locale string // BCP-47 tag used for voice selection
}

var languages = []Language{
	{Code: "pt", Name: "Portuguese", Native: "Português", Locale: "pt-BR"},
	{Code: "en", Name: "English", Native: "English", Locale: "en-US"},
	{Code: "es", Name: "Spanish", Native: "Español", Locale: "es-ES"},
	{Code: "fr", Name: "French", Native: "Français", Locale: "fr-FR"},
	{Code: "de", Name: "German", Native: "Deutsch", Locale: "de-DE"},
	{Code: "it", Name: "Italian", Native: "Italiano", Locale: "it-IT"},
	{Code: "ja", Name: "Japanese", Native: "日本語", Locale: "ja-JP"},
	{Code: "ko", Name: "Korean", Native: "한국어", Locale: "ko-KR"},
	{Code: "zh", Name: "Chinese", Native: "中文", Locale: "zh-CN"},
}

// Languages returns the supported languages.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Lookup finds a language by code, case-insensitively.
func Lookup(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Locale returns the voice locale for a language code, or the code itself
// when unknown.
func Locale(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Locale
	}
	return code
}

var (
	portugueseMarks = regexp.MustCompile(`[áàâãéêíóôõúç]`)
	spanishMarks    = regexp.MustCompile(`[ñ]`)
)

// DetectLanguage guesses pt, es or en from accented characters.
func DetectLanguage(text string) string {
	lower := strings.ToLower(text)
	switch {
	case portugueseMarks.MatchString(lower):
		return "pt"
	case spanishMarks.MatchString(lower):
		return "es"
	default:
		return "en"
	}
}
