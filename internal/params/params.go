// Package params implements the parameter resolution protocol shared by
// every pipeline operation: explicit caller value first, then an
// interactive prompt showing the configured default, then the
// configured value itself, then a built-in fallback. The decision of
// where a value comes from is a pure function; the blocking terminal
// read lives behind the Prompter interface so the protocol is testable
// without a terminal.
package params

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"autorxte/internal/config"
)

// Mode selects between interactive and scripted resolution.
type Mode int

const (
	// Scripted never blocks: absent values resolve from configuration
	// or the built-in fallback.
	Scripted Mode = iota
	// Interactive prompts for absent values, displaying the resolved
	// default. Prompts are only issued from the calling goroutine,
	// never inside workers.
	Interactive
)

// Decision says how a parameter obtains its value.
type Decision int

const (
	UseExplicit Decision = iota
	UseDefault
	NeedsPrompt
)

// Decide is the pure resolution step: explicit wins; otherwise
// interactive mode prompts and scripted mode takes the default.
func Decide(mode Mode, explicitSet bool) Decision {
	if explicitSet {
		return UseExplicit
	}
	if mode == Interactive {
		return NeedsPrompt
	}
	return UseDefault
}

// Resolver bundles the resolution mode, the effective configuration and
// the prompt side-effect. One Resolver serves a whole operation; its
// helpers mirror the parameter kinds operations advertise.
type Resolver struct {
	Mode   Mode
	Cfg    *config.Config
	Prompt Prompter
}

// String resolves a string parameter. explicit is nil when the caller
// did not supply one; cfgPath may be empty for prompt-only parameters.
func (r *Resolver) String(label string, explicit *string, cfgPath, fallback string) (string, error) {
	def := fallback
	if cfgPath != "" {
		def = r.Cfg.GetString(cfgPath, fallback)
	}
	switch Decide(r.Mode, explicit != nil) {
	case UseExplicit:
		return *explicit, nil
	case UseDefault:
		return def, nil
	}
	line, err := r.Prompt.ReadLine(promptText(label, def))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", label, err)
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// Int resolves an integer parameter, re-prompting on unparsable input.
func (r *Resolver) Int(label string, explicit *int, cfgPath string, fallback int) (int, error) {
	def := fallback
	if cfgPath != "" {
		def = r.Cfg.GetInt(cfgPath, fallback)
	}
	switch Decide(r.Mode, explicit != nil) {
	case UseExplicit:
		return *explicit, nil
	case UseDefault:
		return def, nil
	}
	for {
		line, err := r.Prompt.ReadLine(promptText(label, strconv.Itoa(def)))
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", label, err)
		}
		if line == "" {
			return def, nil
		}
		n, err := strconv.Atoi(line)
		if err == nil {
			return n, nil
		}
		if err := r.Prompt.Say(fmt.Sprintf("invalid integer %q", line)); err != nil {
			return 0, err
		}
	}
}

// Float resolves a float parameter, re-prompting on unparsable input.
func (r *Resolver) Float(label string, explicit *float64, cfgPath string, fallback float64) (float64, error) {
	def := fallback
	if cfgPath != "" {
		def = r.Cfg.GetFloat(cfgPath, fallback)
	}
	switch Decide(r.Mode, explicit != nil) {
	case UseExplicit:
		return *explicit, nil
	case UseDefault:
		return def, nil
	}
	for {
		line, err := r.Prompt.ReadLine(promptText(label, strconv.FormatFloat(def, 'g', -1, 64)))
		if err != nil {
			return 0, fmt.Errorf("read %s: %w", label, err)
		}
		if line == "" {
			return def, nil
		}
		f, err := strconv.ParseFloat(line, 64)
		if err == nil {
			return f, nil
		}
		if err := r.Prompt.Say(fmt.Sprintf("invalid number %q", line)); err != nil {
			return 0, err
		}
	}
}

// Bool resolves a yes/no parameter. Any answer starting with y (case
// insensitive) is true; empty input takes the default.
func (r *Resolver) Bool(label string, explicit *bool, cfgPath string, fallback bool) (bool, error) {
	def := fallback
	if cfgPath != "" {
		def = r.Cfg.GetBool(cfgPath, fallback)
	}
	switch Decide(r.Mode, explicit != nil) {
	case UseExplicit:
		return *explicit, nil
	case UseDefault:
		return def, nil
	}
	shown := "n"
	if def {
		shown = "y"
	}
	line, err := r.Prompt.ReadLine(promptText(label, shown))
	if err != nil {
		return false, fmt.Errorf("read %s: %w", label, err)
	}
	if line == "" {
		return def, nil
	}
	return strings.HasPrefix(strings.ToLower(line), "y"), nil
}

// Path resolves a filesystem path parameter and cleans the result.
func (r *Resolver) Path(label string, explicit *string, cfgPath, fallback string) (string, error) {
	s, err := r.String(label, explicit, cfgPath, fallback)
	if err != nil {
		return "", err
	}
	if s == "" {
		return "", nil
	}
	return filepath.Clean(s), nil
}

// Choice resolves a parameter constrained to a fixed set. An explicit
// value outside the set is an error; interactive input re-prompts.
func (r *Resolver) Choice(label string, explicit *string, choices []string, cfgPath, fallback string) (string, error) {
	def := fallback
	if cfgPath != "" {
		def = r.Cfg.GetString(cfgPath, fallback)
	}
	switch Decide(r.Mode, explicit != nil) {
	case UseExplicit:
		if !contains(choices, *explicit) {
			return "", fmt.Errorf("%s: %q is not one of %s", label, *explicit, strings.Join(choices, "/"))
		}
		return *explicit, nil
	case UseDefault:
		return def, nil
	}
	for {
		line, err := r.Prompt.ReadLine(promptText(label+" ("+strings.Join(choices, "/")+")", def))
		if err != nil {
			return "", fmt.Errorf("read %s: %w", label, err)
		}
		if line == "" {
			return def, nil
		}
		line = strings.ToLower(line)
		if contains(choices, line) {
			return line, nil
		}
		if err := r.Prompt.Say("choose one of: " + strings.Join(choices, ", ")); err != nil {
			return "", err
		}
	}
}

func contains(set []string, s string) bool {
	for _, c := range set {
		if c == s {
			return true
		}
	}
	return false
}

func promptText(label, def string) string {
	if def == "" {
		return label + ": "
	}
	return fmt.Sprintf("%s [%s]: ", label, def)
}
