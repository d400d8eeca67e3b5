package config

import (
	"strings"
	"testing"
	"time"
)

func TestDefaultSchemaValidatesDefaults(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	for _, o := range append(s.GlobalOptions(), s.SectionOptions("run")...) {
		if o.Default == "" {
			continue
		}
		if err := validateType(o.Type, o.Default); err != nil {
			t.Errorf("default of %s does not validate: %v", o.Key, err)
		}
	}
	if !s.IsKnown("run", "report") || !s.IsKnown("run", "sim.ticks") {
		t.Error("expected run options and global fallbacks to be known")
	}
	if s.IsKnown("", "report") {
		t.Error("section options must not be global")
	}
	if got := s.Sections(); len(got) != 2 || got[0] != "run" || got[1] != "version" {
		t.Errorf("unexpected sections %v", got)
	}
}

func TestResolvePrecedence(t *testing.T) {
	s := DefaultSchema()
	c := NewConfig()

	if got := s.Resolve(c, "sim.ticks"); got != "200" {
		t.Fatalf("expected schema default 200, got %q", got)
	}

	c.SetGlobalOption("sim.ticks", "20")
	c.SetCommandOption("run", "sim.ticks", "30")
	if got := s.Resolve(c, "sim.ticks"); got != "20" {
		t.Fatalf("expected global value 20, got %q", got)
	}
	if got := s.ResolveIn(c, "run", "sim.ticks"); got != "30" {
		t.Fatalf("expected section value 30, got %q", got)
	}

	t.Setenv("COLONY_TICKS", "40")
	if got := s.ResolveIn(c, "run", "sim.ticks"); got != "40" {
		t.Fatalf("expected env value 40, got %q", got)
	}

	if got := s.ResolveIn(nil, "run", "report"); got != "true" {
		t.Fatalf("expected section default true, got %q", got)
	}
	if got := s.Resolve(c, "unknown"); got != "" {
		t.Fatalf("expected empty for unknown key, got %q", got)
	}
}

func TestTypedResolvers(t *testing.T) {
	t.Parallel()
	s := DefaultSchema()
	c := NewConfig()
	c.SetGlobalOption("sim.tick-interval", "250ms")
	c.SetGlobalOption("agents.count", "x")
	c.SetCommandOption("run", "report", "no")

	d, err := s.ResolveDuration(c, "run", "sim.tick-interval")
	if err != nil || d != 250*time.Millisecond {
		t.Errorf("expected 250ms, got %v (%v)", d, err)
	}
	if _, err := s.ResolveInt(c, "run", "agents.count"); err == nil {
		t.Error("expected an int parse error")
	}
	n, err := s.ResolveInt(c, "run", "tasks.work-ticks")
	if err != nil || n != 3 {
		t.Errorf("expected default 3, got %d (%v)", n, err)
	}
	b, err := s.ResolveBool(c, "run", "report")
	if err != nil || b {
		t.Errorf("expected false, got %v (%v)", b, err)
	}
}

func TestFormatHelp(t *testing.T) {
	t.Parallel()
	help := DefaultSchema().FormatHelp()
	for _, want := range []string{
		"Global Options:",
		"sim.ticks",
		"type: int, default: 200, env: COLONY_TICKS",
		"[run] Options:",
		"[version] Options:",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help is missing %q:\n%s", want, help)
		}
	}
}

func TestValidateType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ   OptionType
		value string
		ok    bool
	}{
		{TypeString, "anything", true},
		{TypeBool, "on", true},
		{TypeBool, "maybe", false},
		{TypeInt, "12", true},
		{TypeInt, "1.5", false},
		{TypeDuration, "5s", true},
		{TypeDuration, "5", false},
		{OptionType("weird"), "x", false},
	}
	for _, tt := range tests {
		err := validateType(tt.typ, tt.value)
		if (err == nil) != tt.ok {
			t.Errorf("validateType(%s, %q) = %v", tt.typ, tt.value, err)
		}
	}
}
