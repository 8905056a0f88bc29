package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variable names read by ApplyEnv.
const (
	EnvRecognizerURL = "LIPREAD_RECOGNIZER_URL"
	EnvTranslateKey  = "GOOGLE_TRANSLATE_API_KEY"
	EnvMQTTBroker    = "LIPREAD_MQTT_BROKER"
	EnvHTTPAddr      = "LIPREAD_HTTP_ADDR"
	EnvSourceLang    = "LIPREAD_SOURCE_LANG"
	EnvTargetLang    = "LIPREAD_TARGET_LANG"
	EnvIntervalMs    = "LIPREAD_INTERVAL_MS"
	EnvDebug         = "LIPREAD_DEBUG"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env")
// into the process environment without overriding variables already set.
// Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

// ApplyEnv overrides fields from the environment. Blank variables are
// ignored.
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(EnvRecognizerURL, &c.RecognizerURL)
	setString(EnvTranslateKey, &c.TranslateAPIKey)
	setString(EnvMQTTBroker, &c.MQTTBroker)
	setString(EnvHTTPAddr, &c.HTTPAddr)
	setString(EnvSourceLang, &c.SourceLang)
	setString(EnvTargetLang, &c.TargetLang)
	if v := strings.TrimSpace(os.Getenv(EnvIntervalMs)); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.IntervalMs = ms
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebug)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Debug = b
		}
	}
	_ = c.Validate()
}
