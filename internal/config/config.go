// Package config holds all warden configuration, loaded from YAML with
// defaults for anything unset.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all warden configuration.
type Config struct {
	Gates   GatesConfig   `yaml:"gates"`
	HITL    HITLConfig    `yaml:"hitl"`
	Audit   AuditConfig   `yaml:"audit"`
	Output  OutputConfig  `yaml:"output"`
	Bench   BenchConfig   `yaml:"bench"`
	Logging LoggingConfig `yaml:"logging"`
}

// GatesConfig tunes the individual gates. The pipeline order itself is fixed
// and deliberately absent here.
type GatesConfig struct {
	MinPromptWords int      `yaml:"min_prompt_words"`
	ExtraPhrases   []string `yaml:"extra_rfl_phrases"`
	ExtraBanned    []string `yaml:"extra_banned_terms"`
	ExtraFlagged   []string `yaml:"extra_flagged_terms"`
}

// HITLConfig selects and tunes the pause resolver.
type HITLConfig struct {
	Mode        string            `yaml:"mode"` // auto, random, scripted, interactive
	Seed        int64             `yaml:"seed"`
	ContinuePct float64           `yaml:"continue_pct"`
	Script      []string          `yaml:"script"`      // Scripted answers, CONTINUE/STOP
	AutoPolicy  map[string]string `yaml:"auto_policy"` // reason code -> CONTINUE/STOP
}

// AuditConfig locates the audit trail and archive.
type AuditConfig struct {
	Dir           string `yaml:"dir"`
	ArchiveSQLite bool   `yaml:"archive_sqlite"`
}

// OutputConfig locates generated artifacts.
type OutputConfig struct {
	DocsDir string `yaml:"docs_dir"`
}

// BenchConfig tunes the stress runner.
type BenchConfig struct {
	Iterations int        `yaml:"iterations"`
	Workers    int        `yaml:"workers"`
	Seed       int64      `yaml:"seed"`
	Faults     FaultRates `yaml:"faults"`
}

// FaultRates sets per-iteration injection probabilities. Each rate is in
// [0, 1]; their sum may not exceed 1, the remainder runs clean.
type FaultRates struct {
	Email             float64 `yaml:"email"`
	RelativeLanguage  float64 `yaml:"relative_language"`
	DirectiveConflict float64 `yaml:"directive_conflict"`
	BannedTerm        float64 `yaml:"banned_term"`
	DropRequester     float64 `yaml:"drop_requester"`
}

// Sum returns the total injection probability.
func (f FaultRates) Sum() float64 {
	return f.Email + f.RelativeLanguage + f.DirectiveConflict + f.BannedTerm + f.DropRequester
}

// LoggingConfig configures the zap logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Gates: GatesConfig{
			MinPromptWords: 3,
		},
		HITL: HITLConfig{
			Mode:        "auto",
			Seed:        1,
			ContinuePct: 0.5,
			AutoPolicy: map[string]string{
				"RFL_RELATIVE_LANGUAGE": "CONTINUE",
				"MEANING_TOO_THIN":      "STOP",
			},
		},
		Audit: AuditConfig{
			Dir:           ".warden/audit",
			ArchiveSQLite: true,
		},
		Output: OutputConfig{
			DocsDir: ".warden/docs",
		},
		Bench: BenchConfig{
			Iterations: 100,
			Workers:    4,
			Seed:       1,
			Faults: FaultRates{
				Email:             0.10,
				RelativeLanguage:  0.15,
				DirectiveConflict: 0.10,
				BannedTerm:        0.05,
				DropRequester:     0.10,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads YAML config from path, layered over defaults. A missing file is
// not an error; the defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot honor.
func (c *Config) Validate() error {
	switch c.HITL.Mode {
	case "auto", "random", "scripted", "interactive":
	default:
		return fmt.Errorf("unknown hitl mode %q", c.HITL.Mode)
	}
	if c.HITL.ContinuePct < 0 || c.HITL.ContinuePct > 1 {
		return fmt.Errorf("hitl continue_pct %.2f outside [0, 1]", c.HITL.ContinuePct)
	}
	if c.Gates.MinPromptWords < 0 {
		return fmt.Errorf("gates min_prompt_words must not be negative")
	}
	if c.Bench.Iterations < 0 || c.Bench.Workers < 0 {
		return fmt.Errorf("bench iterations and workers must not be negative")
	}

	rates := []struct {
		name string
		v    float64
	}{
		{"email", c.Bench.Faults.Email},
		{"relative_language", c.Bench.Faults.RelativeLanguage},
		{"directive_conflict", c.Bench.Faults.DirectiveConflict},
		{"banned_term", c.Bench.Faults.BannedTerm},
		{"drop_requester", c.Bench.Faults.DropRequester},
	}
	for _, r := range rates {
		if r.v < 0 || r.v > 1 {
			return fmt.Errorf("bench fault rate %s = %.2f outside [0, 1]", r.name, r.v)
		}
	}
	if c.Bench.Faults.Sum() > 1 {
		return fmt.Errorf("bench fault rates sum to %.2f, must not exceed 1", c.Bench.Faults.Sum())
	}
	return nil
}
