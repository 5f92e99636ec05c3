// Package config loads the DDDG builder's configuration: the address mask,
// byte width and loop-depth sanity bound (validated, but not read by the
// builder), the default ready-mode flag, and the trace/output file paths a
// build runs against. It follows the project/global YAML layering and
// environment-variable override pattern used throughout this repo's
// ambient packages.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/archsim/dddg/pkg/memaccess"
)

// Config holds the DDDG builder's tunables and the paths it reads from and
// writes to.
type Config struct {
	// AddressMask is the set of address bits the accelerator model treats
	// as significant, defaulting to pkg/memaccess.AddressMask. It is
	// validated but not read by the builder: pkg/dddg masks addresses with
	// the pkg/memaccess.AddressMask constant.
	AddressMask uint64 `yaml:"address_mask" env:"DDDG_ADDRESS_MASK"`

	// DefaultByteWidth is a byte width (1, 2, 4 or 8) that is validated
	// but not read by any parser: every parameter and result line carries
	// its own size field.
	DefaultByteWidth int `yaml:"default_byte_width" env:"DDDG_DEFAULT_BYTE_WIDTH"`

	// MaxLoopDepth is a loop-depth sanity bound that is validated but not
	// read by the builder: pkg/dddg rejects a basic-block loop depth above
	// its own fixed bound of 1000 as a corrupt trace.
	MaxLoopDepth int `yaml:"max_loop_depth" env:"DDDG_MAX_LOOP_DEPTH"`

	// ReadyMode reports whether loads and stores issue as soon as their
	// data is available. Surfaced to the builder through
	// pkg/dddg.Datapath.
	ReadyMode bool `yaml:"ready_mode" env:"DDDG_READY_MODE"`

	// TracePath is the default trace file a build runs against when the
	// CLI is not given one explicitly.
	TracePath string `yaml:"trace_path" env:"DDDG_TRACE_PATH"`

	// OutputPath is where the builder's summary (node and edge counts)
	// is written.
	OutputPath string `yaml:"output_path" env:"DDDG_OUTPUT_PATH"`

	// SymbolCachePath is where the symbol interner's persisted tables
	// are stored, keyed per trace file (internal/symcache).
	SymbolCachePath string `yaml:"symbol_cache_path" env:"DDDG_SYMBOL_CACHE_PATH"`

	// SymbolCacheMaxEntries bounds the number of trace-file snapshots the
	// symbol cache keeps before evicting the least recently used.
	SymbolCacheMaxEntries int `yaml:"symbol_cache_max_entries" env:"DDDG_SYMBOL_CACHE_MAX_ENTRIES"`

	// Verbose enables debug-level logging during a build.
	Verbose bool `yaml:"verbose" env:"DDDG_VERBOSE"`
}

// IsReadyMode implements pkg/dddg.Datapath.
func (c *Config) IsReadyMode() bool { return c.ReadyMode }

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		AddressMask:           memaccess.AddressMask,
		DefaultByteWidth:      4,
		MaxLoopDepth:          1000,
		ReadyMode:             false,
		TracePath:             "dynamic_trace.gz",
		OutputPath:            "dddg_summary.yaml",
		SymbolCachePath:       ".dddg/cache/symtab.msgpack",
		SymbolCacheMaxEntries: 8,
		Verbose:               false,
	}
}

// globalConfigFilePath returns the global config file path (~/.dddg/config.yaml).
func globalConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dddg/config.yaml"
	}
	return filepath.Join(home, ".dddg", "config.yaml")
}

// projectConfigFilePath returns the project-level config file path
// (./.dddg/config.yaml).
func projectConfigFilePath() string {
	return ".dddg/config.yaml"
}

// Load reads configuration with the following priority (highest to
// lowest): environment variables, project-level config
// (./.dddg/config.yaml), global config (~/.dddg/config.yaml), defaults.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	globalConfigPath := globalConfigFilePath()
	if data, err := os.ReadFile(globalConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", globalConfigPath, err)
		}
	}

	projectConfigPath := projectConfigFilePath()
	if data, err := os.ReadFile(projectConfigPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", projectConfigPath, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the specified YAML file path. It
// creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DDDG_ADDRESS_MASK"); v != "" {
		if m := parseUint(v); m > 0 {
			cfg.AddressMask = m
		}
	}
	if v := os.Getenv("DDDG_DEFAULT_BYTE_WIDTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.DefaultByteWidth = i
		}
	}
	if v := os.Getenv("DDDG_MAX_LOOP_DEPTH"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.MaxLoopDepth = i
		}
	}
	if v := os.Getenv("DDDG_READY_MODE"); v != "" {
		cfg.ReadyMode = v == "true" || v == "1" || v == "yes"
	}
	if v := os.Getenv("DDDG_TRACE_PATH"); v != "" {
		cfg.TracePath = v
	}
	if v := os.Getenv("DDDG_OUTPUT_PATH"); v != "" {
		cfg.OutputPath = v
	}
	if v := os.Getenv("DDDG_SYMBOL_CACHE_PATH"); v != "" {
		cfg.SymbolCachePath = v
	}
	if v := os.Getenv("DDDG_SYMBOL_CACHE_MAX_ENTRIES"); v != "" {
		if i := parseInt(v); i > 0 {
			cfg.SymbolCacheMaxEntries = i
		}
	}
	if v := os.Getenv("DDDG_VERBOSE"); v != "" {
		cfg.Verbose = v == "true" || v == "1" || v == "yes"
	}
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	if c.AddressMask == 0 {
		return fmt.Errorf("address_mask must be non-zero")
	}
	if c.DefaultByteWidth != 1 && c.DefaultByteWidth != 2 && c.DefaultByteWidth != 4 && c.DefaultByteWidth != 8 {
		return fmt.Errorf("default_byte_width must be one of 1, 2, 4, 8")
	}
	if c.MaxLoopDepth <= 0 {
		return fmt.Errorf("max_loop_depth must be positive")
	}
	if c.SymbolCacheMaxEntries <= 0 {
		return fmt.Errorf("symbol_cache_max_entries must be positive")
	}
	if c.TracePath == "" {
		return fmt.Errorf("trace_path must not be empty")
	}
	if c.OutputPath == "" {
		return fmt.Errorf("output_path must not be empty")
	}
	return nil
}

// parseUint attempts to parse a string as uint64, accepting both decimal
// and 0x-prefixed hex forms.
func parseUint(s string) uint64 {
	var u uint64
	if len(s) > 2 && (s[0:2] == "0x" || s[0:2] == "0X") {
		if _, err := fmt.Sscanf(s[2:], "%x", &u); err != nil {
			return 0
		}
		return u
	}
	if _, err := fmt.Sscanf(s, "%d", &u); err != nil {
		return 0
	}
	return u
}

// parseInt attempts to parse a string as int.
func parseInt(s string) int {
	var i int
	if _, err := fmt.Sscanf(s, "%d", &i); err != nil {
		return 0
	}
	return i
}
