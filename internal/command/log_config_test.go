package command

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/joeycumines/colony-brain/internal/config"
)

func TestResolveLogConfig_Defaults(t *testing.T) {
	t.Parallel()
	lc, err := resolveLogConfig("", "info", config.NewConfig())
	if err != nil {
		t.Fatalf("resolveLogConfig: %v", err)
	}
	if lc.logFile != nil {
		t.Fatal("expected nil logFile when no path specified")
	}
	if lc.level != slog.LevelInfo {
		t.Fatalf("expected level Info, got %v", lc.level)
	}
}

func TestResolveLogConfig_FlagOverridesConfig(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "test.log")

	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.level", "warn")
	cfg.SetGlobalOption("log.file", "/should/not/use/this")

	lc, err := resolveLogConfig(logPath, "debug", cfg)
	if err != nil {
		t.Fatalf("resolveLogConfig: %v", err)
	}
	defer func() {
		if lc.logFile != nil {
			lc.logFile.Close()
		}
	}()

	if lc.level != slog.LevelDebug {
		t.Fatalf("expected level Debug (flag override), got %v", lc.level)
	}
	if lc.logFile == nil {
		t.Fatal("expected logFile from flag path")
	}
}

func TestResolveLogConfig_ConfigFallback(t *testing.T) {
	t.Parallel()
	logPath := filepath.Join(t.TempDir(), "nested", "config-log.log")

	cfg := config.NewConfig()
	cfg.SetGlobalOption("log.file", logPath)
	cfg.SetGlobalOption("log.level", "warn")

	// the default flag values fall back to config
	lc, err := resolveLogConfig("", "info", cfg)
	if err != nil {
		t.Fatalf("resolveLogConfig: %v", err)
	}
	defer func() {
		if lc.logFile != nil {
			lc.logFile.Close()
		}
	}()

	if lc.level != slog.LevelWarn {
		t.Fatalf("expected level Warn (config fallback), got %v", lc.level)
	}
	if lc.logFile == nil {
		t.Fatal("expected logFile from config fallback")
	}
	if _, err := os.Stat(logPath); err != nil {
		t.Fatalf("expected log file to be created: %v", err)
	}
}

func TestResolveLogConfig_InvalidLevel(t *testing.T) {
	t.Parallel()
	if _, err := resolveLogConfig("", "invalid", config.NewConfig()); err == nil {
		t.Fatal("expected error for invalid log level")
	}
}

func TestResolveLogConfig_NilConfig(t *testing.T) {
	t.Parallel()
	lc, err := resolveLogConfig("", "", nil)
	if err != nil {
		t.Fatalf("resolveLogConfig with nil cfg: %v", err)
	}
	if lc.logFile != nil {
		t.Fatal("expected nil logFile with nil config and no flags")
	}
	if lc.level != slog.LevelInfo {
		t.Fatalf("expected default LevelInfo, got %v", lc.level)
	}
}

func TestLogConfig_Logger(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	logger := logConfig{level: slog.LevelWarn}.logger(&stderr)
	logger.Info("hidden")
	logger.Warn("[run] shown", "frame", 3)
	if out := stderr.String(); strings.Contains(out, "hidden") || !strings.Contains(out, "frame=3") {
		t.Fatalf("unexpected text output: %q", out)
	}

	logPath := filepath.Join(t.TempDir(), "run.log")
	lc, err := resolveLogConfig(logPath, "debug", nil)
	if err != nil {
		t.Fatalf("resolveLogConfig: %v", err)
	}
	lc.logger(&stderr).Debug("[agent] tick", "frame", 1)
	if err := lc.logFile.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", data, err)
	}
	if entry["msg"] != "[agent] tick" || entry["frame"] != float64(1) {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
