package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewDevelopmentLoggerEnablesDebug(t *testing.T) {
	t.Parallel()

	logger, err := New(true)
	if err != nil {
		t.Fatalf("New(true) error = %v", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if logger.Check(zap.DebugLevel, "level check") == nil {
		t.Fatal("expected debug level enabled in development mode")
	}
}

func TestNewProductionLoggerSuppressesDebug(t *testing.T) {
	t.Parallel()

	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) error = %v", err)
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	if logger.Check(zap.DebugLevel, "level check") != nil {
		t.Fatal("expected debug level suppressed in production mode")
	}
	if logger.Check(zap.InfoLevel, "ready") == nil {
		t.Fatal("expected info level enabled in production mode")
	}
}

func TestBuildConfigProductionEncoding(t *testing.T) {
	t.Parallel()

	cfg := buildConfig(false)
	if cfg.EncoderConfig.TimeKey != "ts" {
		t.Fatalf("expected time key ts, got %q", cfg.EncoderConfig.TimeKey)
	}
	if cfg.EncoderConfig.EncodeTime == nil {
		t.Fatal("expected a time encoder")
	}
	if cfg.Level.Level() != zapcore.InfoLevel {
		t.Fatalf("expected info level, got %v", cfg.Level.Level())
	}
}
