package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archsim/dddg/internal/doctor"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run health checks on configuration and trace inputs",
	Long: `Checks the effective configuration, verifies the configured trace
file is readable, and confirms the output and symbol cache paths are
writable.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		cfg, effectivePath, err := loadConfigWithPath(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		result, err := doctor.Check(cfg, effectivePath)
		if err != nil {
			return fmt.Errorf("health check failed: %w", err)
		}

		displayDoctorResult(result)

		if result.HasError() {
			return fmt.Errorf("health check failed: one or more checks reported an error")
		}

		return nil
	},
}

func displayDoctorResult(result *doctor.Result) {
	if result.ConfigPath != "" {
		fmt.Printf("Using config: %s (%s)\n\n", result.ConfigPath, result.ConfigScope)
	} else {
		fmt.Println("Using config: defaults (no config file found)")
		fmt.Println()
	}

	for _, check := range result.Checks {
		fmt.Printf("%s %-18s %s\n", formatStatusIcon(check.Status), check.Name, check.Detail)
	}
}

func formatStatusIcon(status doctor.CheckStatus) string {
	switch status {
	case doctor.StatusOK:
		return "✓"
	case doctor.StatusWarn:
		return "◐"
	case doctor.StatusError:
		return "✗"
	default:
		return "?"
	}
}

func init() {
	doctorCmd.Flags().String("config", "", "Config file path (defaults to project or global config)")
}
