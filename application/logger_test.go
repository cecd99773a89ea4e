package application

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLoggerConfig(t *testing.T) {
	for _, tc := range []struct {
		conf   LoggerConfig
		level  zapcore.Level
		format string
	}{
		{LoggerConfig{Environment: "development"}, zapcore.DebugLevel, "console"},
		{LoggerConfig{Environment: "Production"}, zapcore.InfoLevel, "json"},
		{LoggerConfig{Environment: "production", Level: "warn", Format: "console"}, zapcore.WarnLevel, "console"},
	} {
		lvl, err := tc.conf.level()
		if err != nil || lvl != tc.level {
			t.Error("Expect", tc.level, "got", lvl, err)
		}
		format, err := tc.conf.format()
		if err != nil || format != tc.format {
			t.Error("Expect", tc.format, "got", format, err)
		}
	}
}

func TestNewLoggerRejectsBadConfig(t *testing.T) {
	for _, conf := range []*LoggerConfig{
		{Environment: "staging"},
		{Environment: "production", Level: "loud"},
		{Environment: "production", Format: "xml"},
	} {
		if _, err := NewLogger(conf); err == nil {
			t.Error("Expect an error for", *conf)
		}
	}
}

func TestLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ktauditor.log")
	logger, err := NewLogger(&LoggerConfig{Environment: "production", Path: path})
	if err != nil {
		t.Fatal(err)
	}
	logger.With("user", "user-1").Info("Self-audit done", "addresses", 2)
	logger.Debug("not written")
	logger.Sync()

	buf, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(buf)
	if !strings.Contains(out, `"msg":"Self-audit done"`) ||
		!strings.Contains(out, `"user":"user-1"`) || !strings.Contains(out, `"addresses":2`) {
		t.Error("Unexpected log output", out)
	}
	if strings.Contains(out, "not written") {
		t.Error("Expect debug entries to be dropped in production")
	}
}
