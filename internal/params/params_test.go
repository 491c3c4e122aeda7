package params

import (
	"strings"
	"testing"

	"autorxte/internal/config"
)

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	cfg, err := config.Resolve(config.Options{
		HomeDir:    t.TempDir(),
		ProjectDir: t.TempDir(),
		Overrides:  overrides,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return cfg
}

func TestDecide(t *testing.T) {
	cases := []struct {
		mode        Mode
		explicitSet bool
		want        Decision
	}{
		{Scripted, true, UseExplicit},
		{Interactive, true, UseExplicit},
		{Scripted, false, UseDefault},
		{Interactive, false, NeedsPrompt},
	}
	for _, c := range cases {
		if got := Decide(c.mode, c.explicitSet); got != c.want {
			t.Errorf("Decide(%v, %v) = %v, want %v", c.mode, c.explicitSet, got, c.want)
		}
	}
}

// Scripted mode with no explicit value resolves from configuration and
// never touches the prompter.
func TestString_ScriptedUsesConfig(t *testing.T) {
	cfg := testConfig(t, map[string]any{"extraction.prefix": "burst"})
	sp := &ScriptPrompter{Answers: []string{"should-not-be-read"}}
	r := &Resolver{Mode: Scripted, Cfg: cfg, Prompt: sp}

	got, err := r.String("Base event name", nil, "extraction.prefix", "event")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "burst" {
		t.Errorf("got %q, want config value burst", got)
	}
	if len(sp.Prompts) != 0 {
		t.Errorf("scripted mode must never prompt, issued %v", sp.Prompts)
	}
}

func TestString_ExplicitWinsOverEverything(t *testing.T) {
	cfg := testConfig(t, map[string]any{"extraction.prefix": "burst"})
	explicit := "flare"
	r := &Resolver{Mode: Interactive, Cfg: cfg, Prompt: &ScriptPrompter{}}

	got, err := r.String("Base event name", &explicit, "extraction.prefix", "event")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "flare" {
		t.Errorf("got %q, want explicit flare", got)
	}
}

// Interactive with empty operator input accepts the displayed default,
// which is the config value when one exists.
func TestString_InteractiveEmptyTakesDefault(t *testing.T) {
	cfg := testConfig(t, nil)
	sp := &ScriptPrompter{Answers: []string{""}}
	r := &Resolver{Mode: Interactive, Cfg: cfg, Prompt: sp}

	got, err := r.String("Bitmask filename", nil, "extraction.bitmask", "bitmask_event")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "bitmask_event" {
		t.Errorf("got %q, want displayed default bitmask_event", got)
	}
	if len(sp.Prompts) != 1 || !strings.Contains(sp.Prompts[0], "[bitmask_event]") {
		t.Errorf("prompt must display the default, got %v", sp.Prompts)
	}
}

func TestInt_RepromptsOnGarbage(t *testing.T) {
	cfg := testConfig(t, nil)
	sp := &ScriptPrompter{Answers: []string{"many", "12"}}
	r := &Resolver{Mode: Interactive, Cfg: cfg, Prompt: sp}

	got, err := r.Int("Parallel workers", nil, "", 4)
	if err != nil {
		t.Fatalf("Int: %v", err)
	}
	if got != 12 {
		t.Errorf("got %d, want 12", got)
	}
	if len(sp.Prompts) != 2 {
		t.Errorf("want a re-prompt after invalid input, got %d prompts", len(sp.Prompts))
	}
}

func TestFloat_ScriptedFallsBackToBuiltin(t *testing.T) {
	cfg := testConfig(t, nil)
	r := &Resolver{Mode: Scripted, Cfg: cfg, Prompt: &ScriptPrompter{}}

	got, err := r.Float("Search radius (arcmin)", nil, "no.such.key", 5.0)
	if err != nil {
		t.Fatalf("Float: %v", err)
	}
	if got != 5.0 {
		t.Errorf("got %v, want built-in fallback 5.0", got)
	}
}

func TestBool_Interactive(t *testing.T) {
	cfg := testConfig(t, nil)
	sp := &ScriptPrompter{Answers: []string{"Y"}}
	r := &Resolver{Mode: Interactive, Cfg: cfg, Prompt: sp}

	got, err := r.Bool("Overwrite existing downloads?", nil, "", false)
	if err != nil {
		t.Fatalf("Bool: %v", err)
	}
	if !got {
		t.Error("got false, want true for 'Y'")
	}
}

func TestChoice_RejectsBadExplicit(t *testing.T) {
	cfg := testConfig(t, nil)
	bad := "std3"
	r := &Resolver{Mode: Scripted, Cfg: cfg, Prompt: &ScriptPrompter{}}

	if _, err := r.Choice("Light curve type", &bad, []string{"std1", "std2"}, "lightcurves.type", "std2"); err == nil {
		t.Error("want error for explicit value outside choice set")
	}
}

func TestChoice_ScriptedUsesConfig(t *testing.T) {
	cfg := testConfig(t, map[string]any{"lightcurves.type": "std1"})
	r := &Resolver{Mode: Scripted, Cfg: cfg, Prompt: &ScriptPrompter{}}

	got, err := r.Choice("Light curve type", nil, []string{"std1", "std2"}, "lightcurves.type", "std2")
	if err != nil {
		t.Fatalf("Choice: %v", err)
	}
	if got != "std1" {
		t.Errorf("got %q, want std1", got)
	}
}
