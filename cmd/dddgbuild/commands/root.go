package commands

import (
	"github.com/spf13/cobra"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "dddgbuild",
	Short: "dddgbuild - Dynamic Data Dependence Graph builder",
	Long: `dddgbuild builds a Dynamic Data Dependence Graph from an accelerator
simulator's dynamic execution trace.

Commands:
  build    Build a DDDG from a trace file
  doctor   Run health checks on configuration and trace inputs
  scan     List trace files under dir and whether they changed since the last scan

Use "dddgbuild [command] --help" for more information about a command.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.AddCommand(buildCmd)
	RootCmd.AddCommand(doctorCmd)
}
