package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigParsing(t *testing.T) {
	t.Parallel()
	configContent := `# Global options
log.level debug
sim.ticks 50

[run]
sim.ticks 10
report false

[conditions]
hungry hunger > 0.5
armed   pickaxe >= 1
hungry hunger > 0.7

[version]
format short`

	config, err := LoadFromReader(strings.NewReader(configContent))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if value, ok := config.GetGlobalOption("log.level"); !ok || value != "debug" {
		t.Errorf("Expected log.level=debug, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetCommandOption("run", "sim.ticks"); !ok || value != "10" {
		t.Errorf("Expected run.sim.ticks=10, got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetCommandOption("version", "sim.ticks"); !ok || value != "50" {
		t.Errorf("Expected version.sim.ticks=50 (fallback), got %s (exists: %v)", value, ok)
	}

	if value, ok := config.GetCommandOption("nonexistent", "option"); ok {
		t.Errorf("Expected nonexistent option to not exist, but got %s", value)
	}

	want := []Condition{
		{Name: "hungry", Expression: "hunger > 0.7"},
		{Name: "armed", Expression: "pickaxe >= 1"},
	}
	if len(config.Conditions) != len(want) {
		t.Fatalf("Expected %d conditions, got %v", len(want), config.Conditions)
	}
	for i, c := range want {
		if config.Conditions[i] != c {
			t.Errorf("Condition %d: expected %+v, got %+v", i, c, config.Conditions[i])
		}
	}
	if got := config.ConditionMap()["armed"]; got != "pickaxe >= 1" {
		t.Errorf("Expected armed in condition map, got %q", got)
	}

	if config.HasWarnings() {
		t.Errorf("Expected no warnings, got %v", config.Warnings)
	}
}

func TestEmptyConfig(t *testing.T) {
	t.Parallel()
	config, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Failed to load empty config: %v", err)
	}

	if len(config.Global) != 0 || len(config.Commands) != 0 || len(config.Conditions) != 0 {
		t.Errorf("Expected empty config, got %+v", config)
	}
}

func TestConfigWarnings(t *testing.T) {
	t.Parallel()
	config, err := LoadFromReader(strings.NewReader("sim.ticks many\ncolour blue\n[run]\nbogus 1\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(config.Warnings) != 3 {
		t.Fatalf("Expected 3 warnings, got %v", config.Warnings)
	}
	for _, want := range []string{`"colour"`, `expected int, got "many"`, `"bogus"`} {
		found := false
		for _, w := range config.Warnings {
			if strings.Contains(w, want) {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected a warning containing %s, got %v", want, config.Warnings)
		}
	}
}

func TestConditionWithoutExpression(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader("[conditions]\nhungry\n"))
	if err == nil || !strings.Contains(err.Error(), "hungry") {
		t.Fatalf("Expected an error naming the condition, got %v", err)
	}
}

func TestLoadFromPath(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	config, err := LoadFromPath(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("Missing file must load as empty config: %v", err)
	}
	if len(config.Global) != 0 {
		t.Errorf("Expected empty config, got %v", config.Global)
	}

	path := filepath.Join(dir, "config")
	if err := os.WriteFile(path, []byte("agents.count 7\n"), 0644); err != nil {
		t.Fatal(err)
	}
	config, err = LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath returned error: %v", err)
	}
	if v, _ := config.GetGlobalOption("agents.count"); v != "7" {
		t.Errorf("Expected agents.count=7, got %q", v)
	}

	link := filepath.Join(dir, "link")
	if err := os.Symlink(path, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	if _, err := LoadFromPath(link); err == nil || !strings.Contains(err.Error(), "symlink") {
		t.Errorf("Expected symlink rejection, got %v", err)
	}
}
