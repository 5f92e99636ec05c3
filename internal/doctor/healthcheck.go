// Package doctor runs health checks against a DDDG build's configuration
// and inputs: that the trace file exists and is readable, that the symbol
// cache directory is usable, and that the output path can be written to.
// It follows the teacher's healthcheck.Check/Result shape, replacing model
// reachability pings with local file and configuration checks.
package doctor

import (
	"compress/gzip"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/archsim/dddg/internal/config"
)

// CheckStatus is the outcome of a single check.
type CheckStatus string

const (
	StatusOK    CheckStatus = "ok"
	StatusWarn  CheckStatus = "warn"
	StatusError CheckStatus = "error"
)

// CheckResult is the outcome of one named check.
type CheckResult struct {
	Name   string
	Status CheckStatus
	Detail string
}

// Result is the full health check output for display.
type Result struct {
	ConfigPath  string
	ConfigScope string // "global" or "project"
	Checks      []CheckResult
}

// HasError reports whether any check in the result failed.
func (r *Result) HasError() bool {
	for _, c := range r.Checks {
		if c.Status == StatusError {
			return true
		}
	}
	return false
}

// Check runs every health check against cfg, loaded from configPath (which
// may be empty if cfg came from defaults rather than a file).
func Check(cfg *config.Config, configPath string) (*Result, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &Result{
		ConfigPath:  configPath,
		ConfigScope: scopeFromPath(configPath),
	}

	result.Checks = append(result.Checks, checkConfigValid(cfg))
	result.Checks = append(result.Checks, checkTraceFile(cfg.TracePath))
	result.Checks = append(result.Checks, checkWritablePath("output_path", cfg.OutputPath))
	result.Checks = append(result.Checks, checkWritablePath("symbol_cache_path", cfg.SymbolCachePath))

	return result, nil
}

// scopeFromPath determines "global" or "project" scope from a config file
// path. Returns empty string if path is empty.
func scopeFromPath(path string) string {
	if path == "" {
		return ""
	}

	home, err := os.UserHomeDir()
	if err == nil {
		globalDir := filepath.Join(home, ".dddg")
		if strings.HasPrefix(path, globalDir) {
			return "global"
		}
	}

	return "project"
}

// checkConfigValid re-runs cfg.Validate so a doctor invocation surfaces
// configuration problems the same way a build would reject them.
func checkConfigValid(cfg *config.Config) CheckResult {
	if err := cfg.Validate(); err != nil {
		return CheckResult{Name: "config", Status: StatusError, Detail: err.Error()}
	}
	return CheckResult{Name: "config", Status: StatusOK, Detail: "valid"}
}

// checkTraceFile verifies the configured trace file exists, is readable,
// and — if it carries a .gz suffix — is a well-formed gzip stream.
func checkTraceFile(path string) CheckResult {
	if path == "" {
		return CheckResult{Name: "trace_file", Status: StatusError, Detail: "trace_path is not configured"}
	}

	f, err := os.Open(path)
	if err != nil {
		return CheckResult{Name: "trace_file", Status: StatusError, Detail: err.Error()}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return CheckResult{Name: "trace_file", Status: StatusError, Detail: err.Error()}
	}
	if info.IsDir() {
		return CheckResult{Name: "trace_file", Status: StatusError, Detail: fmt.Sprintf("%s is a directory", path)}
	}
	if info.Size() == 0 {
		return CheckResult{Name: "trace_file", Status: StatusWarn, Detail: "trace file is empty"}
	}

	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return CheckResult{Name: "trace_file", Status: StatusError, Detail: fmt.Sprintf("not a valid gzip stream: %v", err)}
		}
		gz.Close()
	}

	return CheckResult{Name: "trace_file", Status: StatusOK, Detail: fmt.Sprintf("%s (%d bytes)", path, info.Size())}
}

// checkWritablePath verifies path's parent directory exists or can be
// created, without creating or modifying path itself. name labels the
// check for display (e.g. "output_path", "symbol_cache_path").
func checkWritablePath(name, path string) CheckResult {
	if path == "" {
		return CheckResult{Name: name, Status: StatusError, Detail: "path is not configured"}
	}

	dir := filepath.Dir(path)
	if info, err := os.Stat(dir); err == nil {
		if !info.IsDir() {
			return CheckResult{Name: name, Status: StatusError, Detail: fmt.Sprintf("%s exists and is not a directory", dir)}
		}
		return CheckResult{Name: name, Status: StatusOK, Detail: fmt.Sprintf("%s is writable", dir)}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return CheckResult{Name: name, Status: StatusError, Detail: err.Error()}
	}
	return CheckResult{Name: name, Status: StatusOK, Detail: fmt.Sprintf("%s created", dir)}
}
