package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/archsim/dddg/internal/config"
)

// loadConfigWithPath resolves the effective configuration file: a project
// config under ./.dddg/config.yaml takes precedence over a global config
// under ~/.dddg/config.yaml. If neither exists, DefaultConfig is returned
// with an empty path.
func loadConfigWithPath(explicitPath string) (*config.Config, string, error) {
	if explicitPath != "" {
		cfg, err := config.LoadFromFile(explicitPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", explicitPath, err)
		}
		return cfg, explicitPath, nil
	}

	projectConfigPath := filepath.Join(".dddg", "config.yaml")
	if fileExists(projectConfigPath) {
		cfg, err := config.LoadFromFile(projectConfigPath)
		if err != nil {
			return nil, "", fmt.Errorf("loading config from %s: %w", projectConfigPath, err)
		}
		return cfg, projectConfigPath, nil
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		globalConfigPath := filepath.Join(home, ".dddg", "config.yaml")
		if fileExists(globalConfigPath) {
			cfg, err := config.LoadFromFile(globalConfigPath)
			if err != nil {
				return nil, "", fmt.Errorf("loading config from %s: %w", globalConfigPath, err)
			}
			return cfg, globalConfigPath, nil
		}
	}

	return config.DefaultConfig(), "", nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
