// Package main implements the dddgbuild CLI.
// It drives the DDDG builder against a trace file and reports summary
// counters.
package main

import (
	"os"

	"github.com/archsim/dddg/cmd/dddgbuild/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
