package translation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soocke/lipread-go/domain/stage"
)

// DefaultGoogleEndpoint is the Google Cloud Translation v2 REST endpoint.
const DefaultGoogleEndpoint = "https://translation.googleapis.com/language/translate/v2"

// GoogleConfig configures GoogleTranslator.
type GoogleConfig struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// DefaultGoogleConfig returns a config using the public endpoint.
func DefaultGoogleConfig(apiKey string) GoogleConfig {
	return GoogleConfig{
		APIKey:   apiKey,
		Endpoint: DefaultGoogleEndpoint,
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// GoogleTranslator calls the Google Cloud Translation v2 API.
type GoogleTranslator struct {
	cfg GoogleConfig
}

// NewGoogleTranslator validates cfg and returns a translator.
func NewGoogleTranslator(cfg GoogleConfig) (*GoogleTranslator, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("translation: google api key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultGoogleEndpoint
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoogleTranslator{cfg: cfg}, nil
}

type googleResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage"`
		} `json:"translations"`
	} `json:"data"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (g *GoogleTranslator) Translate(ctx context.Context, text, source, target string) (Translation, error) {
	form := url.Values{}
	form.Set("key", g.cfg.APIKey)
	form.Set("q", text)
	if source != "" && source != "auto" {
		form.Set("source", source)
	}
	form.Set("target", target)
	form.Set("format", "text")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Translation{}, stage.Wrap(stage.Translation, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := g.cfg.Client.Do(req)
	if err != nil {
		return Translation{}, stage.Wrap(stage.Translation, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Translation{}, stage.Wrap(stage.Translation, err)
	}
	var parsed googleResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Translation{}, stage.Wrap(stage.Translation, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err))
	}
	if parsed.Error != nil {
		return Translation{}, stage.Wrap(stage.Translation, fmt.Errorf("google api %d: %s", parsed.Error.Code, parsed.Error.Message))
	}
	if resp.StatusCode != http.StatusOK {
		return Translation{}, stage.Wrap(stage.Translation, fmt.Errorf("google api status %d", resp.StatusCode))
	}
	if len(parsed.Data.Translations) == 0 {
		return Translation{}, stage.Wrap(stage.Translation, errors.New("google api returned no translations"))
	}
	first := parsed.Data.Translations[0]
	return Translation{
		Text:           text,
		Translated:     first.TranslatedText,
		Source:         source,
		Target:         target,
		DetectedSource: first.DetectedSourceLanguage,
	}, nil
}
