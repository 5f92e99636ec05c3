package commands

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/archsim/dddg/internal/config"
	"github.com/archsim/dddg/internal/log"
	"github.com/archsim/dddg/internal/symcache"
	"github.com/archsim/dddg/internal/tracescan"
	"github.com/archsim/dddg/pkg/dddg"
	"github.com/archsim/dddg/pkg/program"
	"github.com/archsim/dddg/pkg/symtab"
)

var buildCmd = &cobra.Command{
	Use:   "build [trace-path]",
	Short: "Build a DDDG from a trace file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		outputPath, _ := cmd.Flags().GetString("output")
		assumeYes, _ := cmd.Flags().GetBool("yes")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, _, err := loadConfigWithPath(configPath)
		if err != nil {
			return err
		}
		cfg.Verbose = cfg.Verbose || verbose

		tracePath, err := resolveTracePath(args, cfg)
		if err != nil {
			return err
		}
		cfg.TracePath = tracePath

		if outputPath != "" {
			cfg.OutputPath = outputPath
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if !assumeYes && fileExists(cfg.OutputPath) {
			ok, err := confirmOverwrite(cfg.OutputPath)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted: summary file already exists.")
				return nil
			}
		}

		summary, err := runBuild(cfg)
		if err != nil {
			return err
		}

		printSummary(summary)
		return writeSummary(cfg.OutputPath, summary)
	},
}

func init() {
	buildCmd.Flags().String("config", "", "Config file path (defaults to project or global config)")
	buildCmd.Flags().String("output", "", "Path to write the build summary to")
	buildCmd.Flags().BoolP("yes", "y", false, "Do not prompt before overwriting an existing summary")
	buildCmd.Flags().BoolP("verbose", "v", false, "Verbose logging")
}

// buildSummary is the set of counters a build run reports, both to the
// terminal and to the output summary file.
type buildSummary struct {
	TracePath     string `yaml:"trace_path"`
	Invocations   int    `yaml:"invocations"`
	Nodes         int    `yaml:"nodes"`
	Edges         int    `yaml:"edges"`
	RegisterEdges int    `yaml:"register_edges"`
	MemoryEdges   int    `yaml:"memory_edges"`
	ControlEdges  int    `yaml:"control_edges"`
}

// resolveTracePath returns the trace path to build from: the positional
// argument if given, else the configured default if that file exists, else
// an interactive picker over the plain and gzip trace files found under the
// current directory (recursively) when stdin is a terminal.
func resolveTracePath(args []string, cfg *config.Config) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if cfg.TracePath != "" && fileExists(cfg.TracePath) {
		return cfg.TracePath, nil
	}
	if !isTerminal(os.Stdin) {
		return "", fmt.Errorf("no trace path given and stdin is not a terminal")
	}
	return pickTraceFile()
}

func pickTraceFile() (string, error) {
	files, err := tracescan.Scan(".")
	if err != nil {
		return "", fmt.Errorf("scanning for trace files: %w", err)
	}

	var paths []string
	for _, f := range files {
		if f.Kind == tracescan.KindPlainTrace || f.Kind == tracescan.KindGzipTrace {
			paths = append(paths, f.Path)
		}
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("no trace files found under the current directory")
	}
	sort.Strings(paths)

	var options []huh.Option[string]
	for _, p := range paths {
		options = append(options, huh.NewOption(p, p))
	}

	var chosen string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Select a trace file to build").
				Options(options...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		return "", fmt.Errorf("interactive prompt failed: %w", err)
	}
	return chosen, nil
}

func confirmOverwrite(path string) (bool, error) {
	confirmed := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists", path)).
				Description("Overwrite it with the new build summary?").
				Affirmative("Overwrite").
				Negative("Cancel").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("interactive prompt failed: %w", err)
	}
	return confirmed, nil
}

// runBuild opens the trace, restores or creates a symbol table, and drives
// the builder across the trace until it is exhausted, one dynamic function
// invocation at a time, matching the orchestrator's repeated
// BuildInitialDDDG calls.
func runBuild(cfg *config.Config) (*buildSummary, error) {
	f, err := os.Open(cfg.TracePath)
	if err != nil {
		return nil, fmt.Errorf("opening trace file: %w", err)
	}
	defer f.Close()

	var rd io.Reader = f
	if strings.HasSuffix(cfg.TracePath, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("opening gzip trace: %w", err)
		}
		defer gz.Close()
		rd = gz
	}

	table, cache, cacheKey := loadSymbolTable(cfg)
	sink := program.NewProgram()

	var tracker *log.ProgressTracker
	if cfg.Verbose {
		tracker = log.NewProgressTracker("building DDDG", 0)
		tracker.AddStat("nodes", func() int64 { return int64(sink.NumNodes()) })
		defer tracker.Close()
	}

	builder := dddg.NewBuilder(cfg, sink, table, progressOf(tracker))

	reader := bufio.NewReader(rd)
	var offset int64
	invocations := 0
	for {
		next, err := builder.BuildInitialDDDG(reader, offset)
		offset = next
		if err != nil {
			if errors.Is(err, dddg.ErrEndOfTrace) {
				break
			}
			return nil, fmt.Errorf("building DDDG: %w", err)
		}
		invocations++
	}

	if cache != nil && cacheKey != "" {
		cache.Store(cacheKey, table)
		if err := cache.Save(cfg.SymbolCachePath); err != nil {
			fmt.Fprintf(os.Stderr, "warning: saving symbol cache: %v\n", err)
		}
	}

	return &buildSummary{
		TracePath:     cfg.TracePath,
		Invocations:   invocations,
		Nodes:         builder.NumNodes(),
		Edges:         builder.NumEdges(),
		RegisterEdges: builder.RegisterEdges(),
		MemoryEdges:   builder.MemoryEdges(),
		ControlEdges:  builder.ControlEdges(),
	}, nil
}

// progressOf adapts a possibly-nil *log.ProgressTracker to the builder's
// ProgressTracker interface: a nil *log.ProgressTracker passed as a
// non-nil interface value would make the builder's nil checks fail, so we
// return a literal nil interface instead.
func progressOf(t *log.ProgressTracker) dddg.ProgressTracker {
	if t == nil {
		return nil
	}
	return t
}

// loadSymbolTable restores a cached symbol table for this trace file if one
// is on disk and still fresh, else starts a fresh table. A cache file that
// fails to load (e.g. a malformed one) is reported as a warning and the
// build continues with an empty cache.
func loadSymbolTable(cfg *config.Config) (*symtab.Table, *symcache.TableCache, string) {
	cache := symcache.NewTableCache(cfg.SymbolCacheMaxEntries)
	if err := cache.Load(cfg.SymbolCachePath); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: loading symbol cache: %v\n", err)
	}

	key, err := symcache.Key(cfg.TracePath)
	if err != nil {
		return symtab.NewTable(), cache, ""
	}

	if table, ok := cache.Fetch(key); ok {
		return table, cache, key
	}
	return symtab.NewTable(), cache, key
}

func printSummary(s *buildSummary) {
	fmt.Printf("Trace:            %s\n", s.TracePath)
	fmt.Printf("Invocations:      %d\n", s.Invocations)
	fmt.Printf("Nodes:            %d\n", s.Nodes)
	fmt.Printf("Edges:            %d\n", s.Edges)
	fmt.Printf("  Register edges: %d\n", s.RegisterEdges)
	fmt.Printf("  Memory edges:   %d\n", s.MemoryEdges)
	fmt.Printf("  Control edges:  %d\n", s.ControlEdges)
}

func writeSummary(path string, s *buildSummary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// isTerminal reports whether f is connected to an interactive terminal.
func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd())
}
