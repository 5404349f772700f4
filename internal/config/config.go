// Package config loads scopeNERD configuration from YAML with environment
// overrides. The timebox limits live here so the state machine never
// hardcodes them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all scopeNERD configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// LLM provider settings for the field extractor and pipeline stages.
	LLM LLMConfig `yaml:"llm"`

	// Conversational turn budget.
	Timebox TimeboxConfig `yaml:"timebox"`

	// Capability taxonomy location.
	Taxonomy TaxonomyConfig `yaml:"taxonomy"`

	// Session persistence.
	Store StoreConfig `yaml:"store"`

	// Logging.
	Logging LoggingConfig `yaml:"logging"`
}

// LLMConfig configures the inference collaborator.
type LLMConfig struct {
	Provider string `yaml:"provider"` // anthropic, gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`
}

// TimeoutDuration parses the configured timeout, defaulting to 60s.
func (l LLMConfig) TimeoutDuration() time.Duration {
	if d, err := time.ParseDuration(l.Timeout); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// TimeboxConfig bounds the intake conversation.
type TimeboxConfig struct {
	DefaultTurns     int `yaml:"default_turns"`      // soft threshold: offer fast-path
	HardCapTurns     int `yaml:"hard_cap_turns"`     // hard stop
	HardQuestionsMax int `yaml:"hard_questions_max"` // hard-question budget
}

// TaxonomyConfig locates the capability reference table.
type TaxonomyConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"` // reload on file change
}

// StoreConfig configures session persistence.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// LoggingConfig mirrors the logging package's file-based settings.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
	Dir        string          `yaml:"dir"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Name:    "scopenerd",
		Version: "0.3.0",
		LLM: LLMConfig{
			Provider: "anthropic",
			Model:    "claude-sonnet-4-20250514",
			Timeout:  "60s",
		},
		Timebox: TimeboxConfig{
			DefaultTurns:     10,
			HardCapTurns:     18,
			HardQuestionsMax: 4,
		},
		Taxonomy: TaxonomyConfig{
			Path: "data/ai_agent_cpt.yaml",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".scopenerd", "sessions.db"),
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(".scopenerd", "logs"),
		},
	}
}

// Load reads a YAML config file and applies environment overrides on top of
// defaults. A missing file is not an error; defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.normalize()
	return cfg, nil
}

// applyEnvOverrides lets environment variables win over file values.
// SCOPENERD_* take precedence; ANTHROPIC_API_KEY / GEMINI_API_KEY fill an
// empty key for their provider.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCOPENERD_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("SCOPENERD_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SCOPENERD_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "gemini":
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
}

// normalize clamps nonsense values back to defaults so transition logic can
// trust the limits.
func (c *Config) normalize() {
	def := Default()
	if c.Timebox.DefaultTurns <= 0 {
		c.Timebox.DefaultTurns = def.Timebox.DefaultTurns
	}
	if c.Timebox.HardCapTurns <= 0 {
		c.Timebox.HardCapTurns = def.Timebox.HardCapTurns
	}
	if c.Timebox.HardQuestionsMax <= 0 {
		c.Timebox.HardQuestionsMax = def.Timebox.HardQuestionsMax
	}
	if c.Timebox.HardCapTurns < c.Timebox.DefaultTurns {
		c.Timebox.HardCapTurns = c.Timebox.DefaultTurns
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = def.LLM.Provider
	}
	if c.LLM.Model == "" {
		c.LLM.Model = def.LLM.Model
	}
}
