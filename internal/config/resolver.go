// Package config resolves runtime configuration from its three layers:
// the YAML config file, environment variables, and CLI flags, in
// ascending precedence. Each resolved value carries its provenance so
// the CLI can explain where a setting came from.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/retrobase/retrocanon/internal/match"
)

// ValueSource identifies which layer supplied a value.
type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

// ResolvedValue is a configuration value with its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-layer overrides into resolution.
type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIMetric  string
}

// ResolvedConfig is the effective configuration for one run.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath ResolvedValue `json:"db_path"`
	Metric ResolvedValue `json:"metric"`

	// Match holds the deduplication defaults from the config file,
	// overlaid on the built-in defaults. Per-run CLI flags override
	// these at the command layer.
	Match match.DedupeOptions `json:"-"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Match  struct {
		Metric       string   `yaml:"metric"`
		MaxDistance  *float64 `yaml:"max_distance"`
		MinLength    int      `yaml:"min_length"`
		SkipNumeric  bool     `yaml:"skip_numeric"`
		AssumeUnique bool     `yaml:"assume_unique"`
		MatchCap     int      `yaml:"match_cap"`
		Shrink       *bool    `yaml:"shrink"`
	} `yaml:"match"`
}

// DefaultConfigPath is where the config file lives unless overridden.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".retrocanon", "config.yaml")
}

// Resolve layers file, environment, and CLI values into the effective
// configuration. A missing config file is not an error.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		Match:      match.DefaultDedupeOptions(),
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Metric, cfg.Match.Metric, SourceConfig, path)

		if cfg.Match.MaxDistance != nil {
			out.Match.MaxDistance = *cfg.Match.MaxDistance
		}
		if cfg.Match.MinLength > 0 {
			out.Match.MinLength = cfg.Match.MinLength
		}
		if cfg.Match.SkipNumeric {
			out.Match.SkipNumeric = true
		}
		if cfg.Match.AssumeUnique {
			out.Match.AssumeUnique = true
		}
		if cfg.Match.MatchCap > 0 {
			out.Match.MatchCap = cfg.Match.MatchCap
		}
		if cfg.Match.Shrink != nil {
			out.Match.ShrinkPopulation = *cfg.Match.Shrink
		}
	}

	applyEnv(&out.DBPath, "RETROCANON_DB")
	applyEnv(&out.Metric, "RETROCANON_METRIC")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.Metric, opts.CLIMetric, SourceCLI, "--metric")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}

	metric, err := match.ParseMetric(out.Metric.Value)
	if err != nil {
		return out, fmt.Errorf("resolving metric: %w", err)
	}
	out.Match.Metric = metric
	if out.Metric.Value == "" {
		out.Metric = ResolvedValue{Value: string(metric), Source: SourceDefault, From: "built-in default"}
	}

	return out, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
