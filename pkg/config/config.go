// Package config loads .truss.yml project configuration: per-rule enable
// and severity overrides, plus ignore globs for file discovery.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"

	"github.com/trussci/truss/pkg/engine"
	"github.com/trussci/truss/pkg/logger"
	"github.com/trussci/truss/pkg/rules"
)

var cfgLog = logger.New("config:load")

// FileName is the configuration file truss looks for.
const FileName = ".truss.yml"

// RuleConfig is one rule's overrides. A nil Enabled means "leave as is".
type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled"`
	Severity string `yaml:"severity"`
}

// Config is the parsed project configuration.
type Config struct {
	Rules  map[string]RuleConfig `yaml:"rules"`
	Ignore []string              `yaml:"ignore"`
}

// Default returns an empty configuration.
func Default() *Config {
	return &Config{}
}

// Load reads and parses one configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfgLog.Printf("loaded %s (%d rule overrides, %d ignore patterns)",
		path, len(cfg.Rules), len(cfg.Ignore))
	return &cfg, nil
}

// Discover walks up from dir looking for a configuration file. It returns
// the parsed config and its path, or a default config with an empty path
// when no file exists between dir and the filesystem root.
func Discover(dir string) (*Config, string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return nil, "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(current, FileName)
		if _, err := os.Stat(candidate); err == nil {
			cfg, err := Load(candidate)
			if err != nil {
				return nil, "", err
			}
			return cfg, candidate, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("stat %s: %w", candidate, err)
		}
		parent := filepath.Dir(current)
		if parent == current {
			return Default(), "", nil
		}
		current = parent
	}
}

// ParseSeverity maps a config severity word to its rules value.
func ParseSeverity(s string) (rules.Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return rules.SeverityError, true
	case "warning":
		return rules.SeverityWarning, true
	case "info":
		return rules.SeverityInfo, true
	}
	return 0, false
}

// EngineOptions converts the rule overrides into engine options. Unknown
// rule ids pass through; the engine ignores them. Keys are applied in
// sorted order so repeated runs configure identically.
func (c *Config) EngineOptions() []engine.Option {
	ids := make([]string, 0, len(c.Rules))
	for id := range c.Rules {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var opts []engine.Option
	for _, id := range ids {
		rc := c.Rules[id]
		if rc.Enabled != nil && !*rc.Enabled {
			opts = append(opts, engine.WithoutRule(id))
			continue
		}
		if rc.Severity != "" {
			if severity, ok := ParseSeverity(rc.Severity); ok {
				opts = append(opts, engine.WithSeverity(id, severity))
			} else {
				cfgLog.Printf("ignoring unknown severity %q for rule %s", rc.Severity, id)
			}
		}
	}
	return opts
}

// Ignored reports whether a path matches any ignore pattern. Patterns use
// doublestar globs and match against the slash-separated path.
func (c *Config) Ignored(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range c.Ignore {
		if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
			return true
		}
		// Also match against the base name so `*.generated.yml` works for
		// files in any directory.
		if ok, err := doublestar.Match(pattern, filepath.Base(slashed)); err == nil && ok {
			return true
		}
	}
	return false
}
