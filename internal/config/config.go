// Package config resolves the layered configuration used by every
// pipeline operation: packaged defaults, a user-home document, a
// project-local document, and explicit call-time overrides, merged in
// that order (later wins). The resolved Config is an immutable value
// passed into operations; there is no process-wide config singleton.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"autorxte/internal/logging"
)

//go:embed defaults.yaml
var packagedDefaults []byte

// Well-known document locations relative to the home and project tiers.
const (
	HomeConfigDir   = ".autorxte"
	HomeConfigFile  = "config.yaml"
	LocalConfigFile = "autorxte_config.yaml"
)

// ConfigError reports a malformed explicit override. Per the resolution
// contract it is fatal: a broken defaults or home/project tier is merely
// skipped with a warning, but a broken explicit source aborts the call.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("config %s: %v", e.Source, e.Err) }
func (e *ConfigError) Unwrap() error { return e.Err }

// Options controls which sources Resolve consults. Zero value means:
// real home directory, current working directory, no explicit override.
type Options struct {
	// HomeDir overrides the user home lookup (tests).
	HomeDir string
	// ProjectDir is where the project-local document is searched;
	// empty means the current working directory.
	ProjectDir string
	// ExplicitPath is an explicit config document. Malformed or
	// missing → *ConfigError.
	ExplicitPath string
	// Overrides are call-time values keyed by dotted path, merged last.
	Overrides map[string]any
}

// Config is the effective parameter set. At most one value per dotted
// path; later-merged sources win. Treat as read-only after Resolve.
type Config struct {
	tree map[string]any
}

// Resolve loads every source in precedence order and deep-merges them.
// Mapping values merge recursively; scalars and sequences are replaced
// wholesale, never concatenated.
func Resolve(opts Options) (*Config, error) {
	logger := logging.New("config")

	tree := map[string]any{}
	if err := yaml.Unmarshal(packagedDefaults, &tree); err != nil {
		// The packaged document ships with the binary; failing to parse
		// it is a build defect, not a user error.
		return nil, fmt.Errorf("parse packaged defaults: %w", err)
	}

	home := opts.HomeDir
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	project := opts.ProjectDir
	if project == "" {
		project = "."
	}

	for _, tier := range []struct {
		name string
		path string
	}{
		{"user-home", filepath.Join(home, HomeConfigDir, HomeConfigFile)},
		{"project-local", filepath.Join(project, LocalConfigFile)},
	} {
		doc, err := loadDocument(tier.path)
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("skipping config tier", "tier", tier.name, "path", tier.path, "error", err)
			}
			continue
		}
		tree = deepMerge(tree, doc)
	}

	if opts.ExplicitPath != "" {
		doc, err := loadDocument(opts.ExplicitPath)
		if err != nil {
			return nil, &ConfigError{Source: opts.ExplicitPath, Err: err}
		}
		tree = deepMerge(tree, doc)
	}

	if len(opts.Overrides) > 0 {
		doc, err := expandDotted(opts.Overrides)
		if err != nil {
			return nil, &ConfigError{Source: "overrides", Err: err}
		}
		tree = deepMerge(tree, doc)
	}

	return &Config{tree: tree}, nil
}

func loadDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return doc, nil
}

// Get returns the value at a dotted path ("extraction.time_bin"), or
// def when no source defines it.
func (c *Config) Get(path string, def any) any {
	var cur any = c.tree
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = m[key]
		if !ok {
			return def
		}
	}
	return cur
}

// Has reports whether any source defines the path.
func (c *Config) Has(path string) bool {
	marker := struct{}{}
	return c.Get(path, marker) != any(marker)
}

// GetString returns the value at path rendered as a string. Numeric and
// boolean YAML scalars are formatted, so "16" and 16 are equivalent.
func (c *Config) GetString(path, def string) string {
	v := c.Get(path, nil)
	if v == nil {
		return def
	}
	return asString(v)
}

// GetInt returns the integer at path, or def when absent or unparsable.
func (c *Config) GetInt(path string, def int) int {
	switch v := c.Get(path, nil).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// GetFloat returns the float at path, or def when absent or unparsable.
func (c *Config) GetFloat(path string, def float64) float64 {
	switch v := c.Get(path, nil).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return def
}

// GetBool returns the boolean at path, or def when absent.
func (c *Config) GetBool(path string, def bool) bool {
	switch v := c.Get(path, nil).(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return def
}

// GetDuration parses the value at path with time.ParseDuration.
func (c *Config) GetDuration(path string, def time.Duration) time.Duration {
	s := c.GetString(path, "")
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}

// Section returns the mapping at a top-level section name, or an empty
// map when the section is absent.
func (c *Config) Section(name string) map[string]any {
	if m, ok := c.Get(name, nil).(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// FilterExpression returns the GTI filter expression for the filtering
// stage. The packaged default always defines one, so this never returns
// empty on a resolved config.
func (c *Config) FilterExpression() string {
	return c.GetString("filtering.filter_expression", "")
}

// ResolveWorkers turns a worker-count setting into a concrete positive
// integer. The string sentinel "auto" (and 0) resolve to the available
// CPU count; this is decided once, at pool construction, never per item.
func (c *Config) ResolveWorkers(path string) int {
	v := c.Get(path, nil)
	if v == nil {
		v = c.Get("global.default_workers", 4)
	}
	switch w := v.(type) {
	case int:
		if w > 0 {
			return w
		}
	case int64:
		if w > 0 {
			return int(w)
		}
	case float64:
		if w > 0 {
			return int(w)
		}
	case string:
		if strings.EqualFold(strings.TrimSpace(w), "auto") {
			return runtime.NumCPU()
		}
		if n, err := strconv.Atoi(strings.TrimSpace(w)); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
