package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archsim/dddg/pkg/memaccess"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.EqualValues(t, memaccess.AddressMask, cfg.AddressMask)
	assert.Equal(t, 4, cfg.DefaultByteWidth)
	assert.Equal(t, 1000, cfg.MaxLoopDepth)
	assert.False(t, cfg.ReadyMode)
	assert.Equal(t, "dynamic_trace.gz", cfg.TracePath)
	assert.Equal(t, "dddg_summary.yaml", cfg.OutputPath)
	assert.Equal(t, 8, cfg.SymbolCacheMaxEntries)
	assert.False(t, cfg.Verbose)
}

func TestConfigIsReadyMode(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.IsReadyMode())
	cfg.ReadyMode = true
	assert.True(t, cfg.IsReadyMode())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errContains string
	}{
		{name: "valid defaults", mutate: func(c *Config) {}, wantErr: false},
		{
			name:        "zero address mask",
			mutate:      func(c *Config) { c.AddressMask = 0 },
			wantErr:     true,
			errContains: "address_mask must be non-zero",
		},
		{
			name:        "unsupported byte width",
			mutate:      func(c *Config) { c.DefaultByteWidth = 3 },
			wantErr:     true,
			errContains: "default_byte_width must be one of",
		},
		{
			name:        "non-positive max loop depth",
			mutate:      func(c *Config) { c.MaxLoopDepth = 0 },
			wantErr:     true,
			errContains: "max_loop_depth must be positive",
		},
		{
			name:        "non-positive symbol cache size",
			mutate:      func(c *Config) { c.SymbolCacheMaxEntries = 0 },
			wantErr:     true,
			errContains: "symbol_cache_max_entries must be positive",
		},
		{
			name:        "empty trace path",
			mutate:      func(c *Config) { c.TracePath = "" },
			wantErr:     true,
			errContains: "trace_path must not be empty",
		},
		{
			name:        "empty output path",
			mutate:      func(c *Config) { c.OutputPath = "" },
			wantErr:     true,
			errContains: "output_path must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configYAML := `
address_mask: 4095
default_byte_width: 8
max_loop_depth: 64
ready_mode: true
trace_path: custom_trace.gz
output_path: custom_summary.yaml
symbol_cache_max_entries: 16
verbose: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(configYAML), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.EqualValues(t, 4095, cfg.AddressMask)
	assert.Equal(t, 8, cfg.DefaultByteWidth)
	assert.Equal(t, 64, cfg.MaxLoopDepth)
	assert.True(t, cfg.ReadyMode)
	assert.Equal(t, "custom_trace.gz", cfg.TracePath)
	assert.Equal(t, "custom_summary.yaml", cfg.OutputPath)
	assert.Equal(t, 16, cfg.SymbolCacheMaxEntries)
	assert.True(t, cfg.Verbose)
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("trace_path: x\n  bad: indent\n"), 0644))

	_, err := LoadFromFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestApplyEnvOverrides(t *testing.T) {
	envVars := []string{
		"DDDG_ADDRESS_MASK", "DDDG_DEFAULT_BYTE_WIDTH", "DDDG_MAX_LOOP_DEPTH",
		"DDDG_READY_MODE", "DDDG_TRACE_PATH", "DDDG_OUTPUT_PATH",
		"DDDG_SYMBOL_CACHE_PATH", "DDDG_SYMBOL_CACHE_MAX_ENTRIES", "DDDG_VERBOSE",
	}
	for _, e := range envVars {
		os.Unsetenv(e)
	}
	defer func() {
		for _, e := range envVars {
			os.Unsetenv(e)
		}
	}()

	os.Setenv("DDDG_ADDRESS_MASK", "0xFFFF")
	os.Setenv("DDDG_DEFAULT_BYTE_WIDTH", "2")
	os.Setenv("DDDG_MAX_LOOP_DEPTH", "50")
	os.Setenv("DDDG_READY_MODE", "yes")
	os.Setenv("DDDG_TRACE_PATH", "env_trace.gz")
	os.Setenv("DDDG_OUTPUT_PATH", "env_summary.yaml")
	os.Setenv("DDDG_SYMBOL_CACHE_PATH", "/tmp/env_cache.msgpack")
	os.Setenv("DDDG_SYMBOL_CACHE_MAX_ENTRIES", "32")
	os.Setenv("DDDG_VERBOSE", "1")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.EqualValues(t, 0xFFFF, cfg.AddressMask)
	assert.Equal(t, 2, cfg.DefaultByteWidth)
	assert.Equal(t, 50, cfg.MaxLoopDepth)
	assert.True(t, cfg.ReadyMode)
	assert.Equal(t, "env_trace.gz", cfg.TracePath)
	assert.Equal(t, "env_summary.yaml", cfg.OutputPath)
	assert.Equal(t, "/tmp/env_cache.msgpack", cfg.SymbolCachePath)
	assert.Equal(t, 32, cfg.SymbolCacheMaxEntries)
	assert.True(t, cfg.Verbose)
}

func TestApplyEnvOverrides_InvalidValuesIgnored(t *testing.T) {
	os.Setenv("DDDG_DEFAULT_BYTE_WIDTH", "not-an-int")
	os.Setenv("DDDG_MAX_LOOP_DEPTH", "-5")
	defer os.Unsetenv("DDDG_DEFAULT_BYTE_WIDTH")
	defer os.Unsetenv("DDDG_MAX_LOOP_DEPTH")

	cfg := DefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, 4, cfg.DefaultByteWidth)
	assert.Equal(t, 1000, cfg.MaxLoopDepth)
}

func TestParseUint(t *testing.T) {
	assert.EqualValues(t, 255, parseUint("0xFF"))
	assert.EqualValues(t, 255, parseUint("255"))
	assert.EqualValues(t, 0, parseUint("not-a-number"))
	assert.EqualValues(t, 0, parseUint(""))
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"0", 0},
		{"100", 100},
		{"1000", 1000},
		{"invalid", 0},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseInt(tt.input))
		})
	}
}

func TestConfigSave(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.TracePath = "test_trace.gz"
	cfg.MaxLoopDepth = 200

	require.NoError(t, cfg.Save(configPath))
	require.FileExists(t, configPath)

	loaded, err := LoadFromFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.TracePath, loaded.TracePath)
	assert.Equal(t, cfg.MaxLoopDepth, loaded.MaxLoopDepth)
	assert.Equal(t, cfg.AddressMask, loaded.AddressMask)
}

func TestConfigSaveCreatesParentDirs(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "dirs", "config.yaml")

	cfg := DefaultConfig()
	require.NoError(t, cfg.Save(configPath))
	require.FileExists(t, configPath)
}
