package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	tracehash "github.com/archsim/dddg/internal/tracehash"
	"github.com/archsim/dddg/internal/tracescan"
)

var scanCmd = &cobra.Command{
	Use:   "scan [dir]",
	Short: "List trace files under dir and whether they changed since the last scan",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		files, err := tracescan.Scan(dir)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", dir, err)
		}

		tracker, err := tracehash.NewFromCache()
		if err != nil {
			return fmt.Errorf("loading dirty cache: %w", err)
		}

		changed := 0
		traces := 0
		for _, f := range files {
			if f.Kind != tracescan.KindPlainTrace && f.Kind != tracescan.KindGzipTrace {
				continue
			}
			traces++
			changedNow, err := tracker.CheckAndMark(f.FullPath)
			if err != nil {
				fmt.Printf("? %s (%v)\n", f.Path, err)
				continue
			}
			status := "unchanged"
			if changedNow {
				status = "changed"
				changed++
			}
			fmt.Printf("%-10s %s (%s, %d bytes)\n", status, f.Path, f.Kind, f.Size)
		}

		if err := tracker.Save(); err != nil {
			return fmt.Errorf("saving dirty cache: %w", err)
		}

		fmt.Printf("\n%d trace file(s), %d changed since last scan\n", traces, changed)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scanCmd)
}
