package logger

import (
	"path/filepath"
	"testing"

	"github.com/readlevel/backend/internal/config"
	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		mode  string
		level string
		want  string
	}{
		{"debug", "warn", "debug"},
		{"release", "warn", "warn"},
		{"release", "error", "error"},
		{"release", "nonsense", "info"},
	}
	for _, tt := range tests {
		cfg := &config.Config{}
		cfg.Server.Mode = tt.mode
		cfg.Log.Level = tt.level
		if got := parseLevel(cfg).String(); got != tt.want {
			t.Errorf("parseLevel(%s, %s) = %s, want %s", tt.mode, tt.level, got, tt.want)
		}
	}
}

func TestNew_WithFile(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Mode = "release"
	cfg.Log.Level = "info"
	cfg.Log.File = filepath.Join(t.TempDir(), "app.log")

	log := New(cfg)
	log.Info("started", zap.String("component", "test"))
	if !log.Core().Enabled(zap.InfoLevel) {
		t.Error("info level not enabled")
	}
	if log.Core().Enabled(zap.DebugLevel) {
		t.Error("debug level enabled in release mode")
	}
}
