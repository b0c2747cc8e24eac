package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MemoryConfig tunes the long-term store and its persistence backend.
type MemoryConfig struct {
	// Backend is one of "sqlite", "json", "gob" or "none".
	Backend string `yaml:"backend"`
	// Path is the backend file path. Ignored for "none".
	Path string `yaml:"path"`
	// Capacity is the entry cap before weakest-first eviction. Zero means
	// unbounded.
	Capacity int `yaml:"capacity"`
	// ConsolidationInterval is the background maintenance period. Zero
	// disables the worker.
	ConsolidationInterval time.Duration `yaml:"consolidation_interval"`
	// AutoSave writes through to the backend on every mutation.
	AutoSave bool `yaml:"auto_save"`
}

// EngineConfig tunes the cognitive cycle loop.
type EngineConfig struct {
	ActiveCycleLimit      int           `yaml:"active_cycle_limit"`
	BreakDuration         time.Duration `yaml:"break_duration"`
	ConsolidationInterval time.Duration `yaml:"consolidation_interval"`
	MaxWorkingMemory      int           `yaml:"max_working_memory"`
	CycleInterval         time.Duration `yaml:"cycle_interval"`
	DefaultModeCycles     int           `yaml:"default_mode_cycles"`
	MaxChunksPerCycle     int           `yaml:"max_chunks_per_cycle"`
}

// ModelConfig selects the generation provider.
type ModelConfig struct {
	// Provider is one of "anthropic", "openai" or "mock".
	Provider string `yaml:"provider"`
	// Name overrides the provider's default model.
	Name string `yaml:"name"`
	// Temperature for generation, 0 keeps the provider default.
	Temperature float64 `yaml:"temperature"`
	// MaxTokens per generation, 0 keeps the provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// LoggingConfig tunes structured log output.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Config is the full runtime configuration.
type Config struct {
	Memory  MemoryConfig  `yaml:"memory"`
	Engine  EngineConfig  `yaml:"engine"`
	Model   ModelConfig   `yaml:"model"`
	Logging LoggingConfig `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Memory: MemoryConfig{
			Backend:               "json",
			Path:                  "reverie_memory.json",
			Capacity:              1000,
			ConsolidationInterval: time.Hour,
			AutoSave:              true,
		},
		Engine: EngineConfig{
			ActiveCycleLimit:      10,
			BreakDuration:         30 * time.Second,
			ConsolidationInterval: 5 * time.Minute,
			MaxWorkingMemory:      20,
			CycleInterval:         500 * time.Millisecond,
			DefaultModeCycles:     10,
			MaxChunksPerCycle:     8,
		},
		Model: ModelConfig{
			Provider: "mock",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults. A missing
// file returns the defaults; malformed YAML or invalid values error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse overlays YAML from a byte slice on the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validBackends = map[string]bool{
	"sqlite": true,
	"json":   true,
	"gob":    true,
	"none":   true,
}

var validProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"mock":      true,
}

// Validate checks enum fields and path requirements.
func (c *Config) Validate() error {
	if !validBackends[c.Memory.Backend] {
		return fmt.Errorf("unknown memory backend %q", c.Memory.Backend)
	}
	if c.Memory.Backend != "none" && c.Memory.Path == "" {
		return fmt.Errorf("memory backend %q requires a path", c.Memory.Backend)
	}
	if !validProviders[c.Model.Provider] {
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	return nil
}
