// Package translation converts recognized text between languages.
package translation

import (
	"context"
	"strings"
)

// Translation is the outcome of one translate call.
type Translation struct {
	Text           string
	Translated     string
	Source         string
	Target         string
	DetectedSource string
}

// Translator translates text from source to target language. Failures are
// reported as stage.Translation errors.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (Translation, error)
}

// TranslatorFunc adapts a function to Translator.
type TranslatorFunc func(ctx context.Context, text, source, target string) (Translation, error)

func (f TranslatorFunc) Translate(ctx context.Context, text, source, target string) (Translation, error) {
	return f(ctx, text, source, target)
}

type identity struct{ inner Translator }

// Identity wraps t so that same-language requests and blank text return the
// input unchanged without calling t.
func Identity(t Translator) Translator {
	if _, ok := t.(identity); ok {
		return t
	}
	return identity{inner: t}
}

func (i identity) Translate(ctx context.Context, text, source, target string) (Translation, error) {
	if sameLanguage(source, target) || strings.TrimSpace(text) == "" || i.inner == nil {
		return Translation{Text: text, Translated: text, Source: source, Target: target}, nil
	}
	return i.inner.Translate(ctx, text, source, target)
}

func sameLanguage(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// TranslateBatch translates texts in order, stopping at the first error.
func TranslateBatch(ctx context.Context, t Translator, texts []string, source, target string) ([]Translation, error) {
	out := make([]Translation, 0, len(texts))
	for _, text := range texts {
		tr, err := t.Translate(ctx, text, source, target)
		if err != nil {
			return out, err
		}
		out = append(out, tr)
	}
	return out, nil
}
