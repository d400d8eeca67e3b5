package config

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestGetConfigPathEnvOverride(t *testing.T) {
	t.Setenv(EnvConfigPath, "/tmp/custom-config")

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath returned error: %v", err)
	}

	if got != "/tmp/custom-config" {
		t.Fatalf("expected override path, got %q", got)
	}
}

func TestGetConfigPathDefault(t *testing.T) {
	dir := t.TempDir()

	homeVar := "HOME"
	if runtime.GOOS == "windows" {
		homeVar = "USERPROFILE"
	}
	t.Setenv(homeVar, dir)
	t.Setenv(EnvConfigPath, "")

	got, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath returned error: %v", err)
	}

	expected := filepath.Join(dir, ".colony", "config")
	if got != expected {
		t.Fatalf("expected default path %q, got %q", expected, got)
	}
}
