package main

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
)

// NewLogger returns a slog.Logger backed by zap: production JSON, or the
// development console encoder at debug level. sync flushes buffered entries.
func NewLogger(debug bool) (logger *slog.Logger, sync func(), err error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	zl, err := cfg.Build()
	if err != nil {
		return nil, nil, err
	}
	h := zapslog.NewHandler(zl.Core(), zapslog.WithCaller(debug))
	return slog.New(h), func() { _ = zl.Sync() }, nil
}
